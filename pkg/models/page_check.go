package models

import "time"

// PageCheck is one observation made by the link checker.
type PageCheck struct {
	URL           string
	Title         string
	StatusCode    int
	LoadTime      time.Duration
	OutboundLinks []string
	CheckedAt     time.Time
	// Error holds the transport failure when no response arrived.
	Error string
}

// Broken reports whether the page answered with a client or server error.
func (p PageCheck) Broken() bool {
	return p.StatusCode >= 400 || p.StatusCode == 0
}
