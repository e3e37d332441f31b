package crawler

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DomainManager rate limits requests per host and answers robots.txt
// questions for the configured user agent.
type DomainManager struct {
	client    *http.Client
	userAgent string
	interval  time.Duration
	log       *zap.Logger

	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	robotsCache map[string]*robotstxt.Group
}

// NewDomainManager allows one request per interval to each host. A zero
// interval disables rate limiting.
func NewDomainManager(client *http.Client, userAgent string, interval time.Duration, logger *zap.Logger) *DomainManager {
	return &DomainManager{
		client:      client,
		userAgent:   userAgent,
		interval:    interval,
		log:         logger.Named("domains"),
		limiters:    make(map[string]*rate.Limiter),
		robotsCache: make(map[string]*robotstxt.Group),
	}
}

// Wait blocks until the host of targetURL may be requested again or ctx ends.
func (d *DomainManager) Wait(ctx context.Context, targetURL string) error {
	u, err := url.Parse(targetURL)
	if err != nil {
		return err
	}

	d.mu.Lock()
	limiter, exists := d.limiters[u.Host]
	if !exists {
		limit := rate.Inf
		if d.interval > 0 {
			limit = rate.Every(d.interval)
		}
		limiter = rate.NewLimiter(limit, 1)
		d.limiters[u.Host] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}

// IsAllowed reports whether robots.txt permits fetching link. A missing or
// unreadable robots.txt allows everything.
func (d *DomainManager) IsAllowed(ctx context.Context, link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}

	d.mu.Lock()
	group, exists := d.robotsCache[u.Host]
	d.mu.Unlock()

	if !exists {
		group = d.fetchRobots(ctx, u)
		d.mu.Lock()
		d.robotsCache[u.Host] = group
		d.mu.Unlock()
	}

	if group == nil {
		return true
	}
	return group.Test(u.Path)
}

func (d *DomainManager) fetchRobots(ctx context.Context, u *url.URL) *robotstxt.Group {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Debug("No robots.txt", zap.String("host", u.Host), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		d.log.Warn("Unparsable robots.txt", zap.String("host", u.Host), zap.Error(err))
		return nil
	}
	return data.FindGroup(d.userAgent)
}
