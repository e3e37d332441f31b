package crawler

import (
	"net/url"
	"sync"
)

// VisitedSet records URLs already scheduled. URLs differing only in their
// fragment count as the same page.
type VisitedSet struct {
	mu sync.Mutex
	v  map[string]bool
}

func NewVisitedSet() *VisitedSet {
	return &VisitedSet{v: make(map[string]bool)}
}

// Add marks link as visited and reports whether it was new.
func (s *VisitedSet) Add(link string) bool {
	key := normalize(link)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.v[key] {
		return false
	}
	s.v[key] = true
	return true
}

func (s *VisitedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.v)
}

func normalize(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
