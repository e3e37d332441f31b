package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"go-library/pkg/models"
)

func TestInDomainFilter(t *testing.T) {
	filter, err := NewInDomainFilter("http://www.library.test:8080/")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	tests := []struct {
		link string
		want bool
	}{
		{"http://library.test:8080/books/1", true},
		{"https://www.library.test:8080/login", true},
		{"http://library.test/", false},
		{"http://evil-library.test:8080/", false},
		{"ftp://library.test:8080/file", false},
		{"://broken", false},
	}
	for _, tt := range tests {
		if got := filter.Filter(tt.link); got != tt.want {
			t.Errorf("Filter(%q) = %v, want %v", tt.link, got, tt.want)
		}
	}

	if _, err := NewInDomainFilter("/relative"); err == nil {
		t.Error("Expected an error for a start URL without host")
	}
}

func TestAllFilters(t *testing.T) {
	filter := AllFilters{
		InDomainFilter{Host: "library.test"},
		ExcludePathFilter{Prefixes: []string{"/logout"}},
	}
	if !filter.Filter("http://library.test/new-book") {
		t.Error("Expected /new-book to pass")
	}
	if filter.Filter("http://library.test/logout") {
		t.Error("Expected /logout to be excluded")
	}
	if filter.Filter("http://other.test/new-book") {
		t.Error("Expected other hosts to be excluded")
	}
}

func TestVisitedSet_IgnoresFragments(t *testing.T) {
	s := NewVisitedSet()
	if !s.Add("http://library.test/books/1") {
		t.Fatal("First add must be new")
	}
	if s.Add("http://library.test/books/1#top") {
		t.Error("Fragment variant must count as visited")
	}
	if !s.Add("http://library.test") || s.Add("http://library.test/") {
		t.Error("Empty path and / must be the same page")
	}
	if s.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", s.Len())
	}
}

func TestDomainManager(t *testing.T) {
	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			fmt.Fprint(w, "User-agent: *\nDisallow: /logout\n")
			return
		}
	}))
	defer server.Close()

	dm := NewDomainManager(server.Client(), "LinkTest/1.0", 20*time.Millisecond, zap.NewNop())
	ctx := context.Background()

	if !dm.IsAllowed(ctx, server.URL+"/books/1") {
		t.Error("Expected /books/1 to be allowed")
	}
	if dm.IsAllowed(ctx, server.URL+"/logout") {
		t.Error("Expected /logout to be disallowed")
	}
	if n := robotsHits.Load(); n != 1 {
		t.Errorf("Expected robots.txt to be fetched once, got %d", n)
	}

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := dm.Wait(ctx, server.URL+"/"); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("Expected rate limiting, three waits took %v", elapsed)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := dm.Wait(cancelled, server.URL+"/"); err == nil {
		t.Error("Expected Wait to honor a cancelled context")
	}
}

func TestDomainManager_NoRobots(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	dm := NewDomainManager(server.Client(), "LinkTest/1.0", 0, zap.NewNop())
	if !dm.IsAllowed(context.Background(), server.URL+"/logout") {
		t.Error("A missing robots.txt must allow everything")
	}
}

func TestReport(t *testing.T) {
	r := &Report{}
	_ = r.Save(context.Background(), []models.PageCheck{
		{URL: "http://x/b", StatusCode: 404},
		{URL: "http://x/a", StatusCode: 200},
		{URL: "http://x/c", Error: "connection refused"},
	})

	checks := r.Checks()
	if len(checks) != 3 || checks[0].URL != "http://x/a" {
		t.Fatalf("Expected checks sorted by URL, got %+v", checks)
	}
	if len(r.Broken()) != 2 {
		t.Errorf("Expected 2 broken pages, got %d", len(r.Broken()))
	}

	var out strings.Builder
	if _, err := r.WriteTo(&out); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"BROKEN http://x/b: HTTP 404", "BROKEN http://x/c: connection refused", "3 pages checked, 2 broken"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Report output missing %q:\n%s", want, out.String())
		}
	}
}
