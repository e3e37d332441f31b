package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// DatabaseURL maps to DB_URL. Empty means the app keeps its data in memory.
	DatabaseURL string `envconfig:"DB_URL"`

	// ListenAddr is where `library serve` binds.
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// BaseURL is the app instance the acceptance runner, crawler and smoke check talk to.
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	AdminUsername string `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" default:"password"`

	// SeedBooks is the minimum number of books guaranteed by the seeder.
	SeedBooks int `envconfig:"SEED_BOOKS" default:"50"`

	SessionCookie string `envconfig:"SESSION_COOKIE" default:"LIBSESSID"`

	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	MaxRedirects   int           `envconfig:"MAX_REDIRECTS" default:"10"`
	UserAgent      string        `envconfig:"USER_AGENT" default:"LibraryAcceptance/1.0"`

	// Link checker settings.
	Workers   int           `envconfig:"WORKERS" default:"4"`
	BatchSize int           `envconfig:"BATCH_SIZE" default:"20"`
	RateLimit time.Duration `envconfig:"RATE_LIMIT" default:"50ms"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
}

// Load processes environment variables and populates the Config struct.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			log.Printf("Warning: .env file found but could not be loaded: %v", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the components cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.SeedBooks < 0:
		return fmt.Errorf("SEED_BOOKS must not be negative, got %d", c.SeedBooks)
	case c.Workers < 1:
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	case c.BatchSize < 1:
		return fmt.Errorf("BATCH_SIZE must be at least 1, got %d", c.BatchSize)
	case c.MaxRedirects < 0:
		return fmt.Errorf("MAX_REDIRECTS must not be negative, got %d", c.MaxRedirects)
	case c.SessionCookie == "":
		return fmt.Errorf("SESSION_COOKIE must not be empty")
	case c.AdminUsername == "":
		return fmt.Errorf("ADMIN_USERNAME must not be empty")
	}
	return nil
}
