package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

type URLFilter interface {
	Filter(link string) bool
}

// AlwaysFilter lets every link through.
type AlwaysFilter struct{}

func (AlwaysFilter) Filter(string) bool { return true }

// InDomainFilter keeps the crawl on the start URL's host. A leading "www."
// is ignored on both sides, the port is not.
type InDomainFilter struct {
	Host string
}

func NewInDomainFilter(startURL string) (*InDomainFilter, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}

	host := canonicalHost(u.Host)
	if host == "" {
		return nil, fmt.Errorf("could not extract host from %s", startURL)
	}

	return &InDomainFilter{Host: host}, nil
}

func (filter InDomainFilter) Filter(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return canonicalHost(u.Host) == filter.Host
}

// ExcludePathFilter drops links whose path starts with any of the prefixes,
// e.g. "/logout" so a logged-in crawl keeps its session.
type ExcludePathFilter struct {
	Prefixes []string
}

func (filter ExcludePathFilter) Filter(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	for _, p := range filter.Prefixes {
		if strings.HasPrefix(u.Path, p) {
			return false
		}
	}
	return true
}

// AllFilters passes a link only if every filter does.
type AllFilters []URLFilter

func (filters AllFilters) Filter(link string) bool {
	for _, f := range filters {
		if !f.Filter(link) {
			return false
		}
	}
	return true
}

func canonicalHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
