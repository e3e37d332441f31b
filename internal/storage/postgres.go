package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib" // registers the "pgx" driver
	"go.uber.org/zap"

	"go-library/pkg/models"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Storage is the PostgreSQL Store.
type Storage struct {
	db  *sql.DB
	log *zap.Logger
}

func NewStorage(db *sql.DB, logger *zap.Logger) *Storage {
	return &Storage{db: db, log: logger.Named("storage")}
}

// Open connects to url, retrying while the database comes up.
func Open(ctx context.Context, url string, attempts int, logger *zap.Logger) (*sql.DB, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		db, err := sql.Open("pgx", url)
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				logger.Info("Connected to database")
				return db, nil
			}
			db.Close()
		}
		lastErr = err
		logger.Warn("Waiting for database", zap.Int("attempt", i+1), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", attempts, lastErr)
}

// Migrate creates the tables if they do not exist yet.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *Storage) ListBooks(ctx context.Context) ([]models.Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, author, genre, created_at FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.Name, &b.Author, &b.Genre, &b.CreatedAt); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *Storage) GetBook(ctx context.Context, id int64) (models.Book, error) {
	b := models.Book{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, author, genre, created_at FROM books WHERE id = $1`, id,
	).Scan(&b.Name, &b.Author, &b.Genre, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Book{}, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return b, err
}

func (s *Storage) AddBook(ctx context.Context, book models.Book) (models.Book, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO books (name, author, genre)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		book.Name, book.Author, book.Genre,
	).Scan(&book.ID, &book.CreatedAt)
	if err != nil {
		return models.Book{}, translate(fmt.Sprintf("book %q", book.Name), err)
	}
	return book, nil
}

func (s *Storage) CountBooks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return n, nil
}

func (s *Storage) ListReaders(ctx context.Context) ([]models.Reader, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM readers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list readers: %w", err)
	}
	defer rows.Close()

	var readers []models.Reader
	for rows.Next() {
		var r models.Reader
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
			return nil, err
		}
		readers = append(readers, r)
	}
	return readers, rows.Err()
}

func (s *Storage) GetReader(ctx context.Context, id int64) (models.Reader, error) {
	r := models.Reader{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, created_at FROM readers WHERE id = $1`, id,
	).Scan(&r.Name, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reader{}, fmt.Errorf("reader %d: %w", id, ErrNotFound)
	}
	return r, err
}

func (s *Storage) AddReader(ctx context.Context, reader models.Reader) (models.Reader, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO readers (name) VALUES ($1) RETURNING id, created_at`, reader.Name,
	).Scan(&reader.ID, &reader.CreatedAt)
	if err != nil {
		return models.Reader{}, translate(fmt.Sprintf("reader %q", reader.Name), err)
	}
	return reader, nil
}

func (s *Storage) LoadSession(ctx context.Context, id string) (map[string]string, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	return values, nil
}

func (s *Storage) SaveSession(ctx context.Context, id string, values map[string]string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		id, raw)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Storage) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// translate maps a unique violation onto ErrDuplicateName.
func translate(subject string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", subject, ErrDuplicateName)
	}
	return fmt.Errorf("%s: %w", subject, err)
}
