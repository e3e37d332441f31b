package crawler

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"go-library/pkg/models"
)

// Report is an in-memory sink that collects every check of a crawl.
type Report struct {
	mu     sync.Mutex
	checks []models.PageCheck
}

func (r *Report) Save(_ context.Context, batch []models.PageCheck) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks = append(r.checks, batch...)
	return nil
}

// Checks returns the collected checks sorted by URL.
func (r *Report) Checks() []models.PageCheck {
	r.mu.Lock()
	checks := slices.Clone(r.checks)
	r.mu.Unlock()

	slices.SortFunc(checks, func(a, b models.PageCheck) int {
		return strings.Compare(a.URL, b.URL)
	})
	return checks
}

func (r *Report) Broken() []models.PageCheck {
	var broken []models.PageCheck
	for _, c := range r.Checks() {
		if c.Broken() {
			broken = append(broken, c)
		}
	}
	return broken
}

// WriteTo prints one line per broken page followed by a summary.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	broken := r.Broken()
	for _, c := range broken {
		if c.Error != "" {
			fmt.Fprintf(&b, "BROKEN %s: %s\n", c.URL, c.Error)
			continue
		}
		fmt.Fprintf(&b, "BROKEN %s: HTTP %d\n", c.URL, c.StatusCode)
	}
	fmt.Fprintf(&b, "%d pages checked, %d broken\n", len(r.Checks()), len(broken))

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
