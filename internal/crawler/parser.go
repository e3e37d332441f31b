package crawler

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"go-library/pkg/models"
)

// NewHTTPClient returns the client the link checker fetches with. It follows
// at most maxRedirects redirects; a longer chain is a transport error.
func NewHTTPClient(timeout time.Duration, maxRedirects int) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

type Parser struct {
	Client    *http.Client
	UserAgent string
}

// NewParser fetches through client, so a client carrying a logged-in cookie
// jar crawls as that user.
func NewParser(client *http.Client, userAgent string) *Parser {
	return &Parser{Client: client, UserAgent: userAgent}
}

// Parse fetches targetURL and extracts its title and links. Any HTTP status
// yields a PageCheck; only transport failures return an error, alongside a
// PageCheck with StatusCode 0.
func (p *Parser) Parse(ctx context.Context, targetURL string) (models.PageCheck, error) {
	start := time.Now()
	resp, err := p.Fetch(ctx, targetURL)
	if err != nil {
		return models.PageCheck{URL: targetURL, LoadTime: time.Since(start), CheckedAt: start, Error: err.Error()}, err
	}
	defer resp.Body.Close()

	data := models.PageCheck{URL: targetURL}
	if isHTML(resp.Header.Get("Content-Type")) {
		// Links resolve against the final URL after redirects.
		data, err = p.Extract(resp.Body, resp.Request.URL.String())
		data.URL = targetURL
	} else {
		_, err = io.Copy(io.Discard, resp.Body)
	}

	data.StatusCode = resp.StatusCode
	data.LoadTime = time.Since(start)
	data.CheckedAt = start
	if err != nil {
		data.Error = err.Error()
	}
	return data, err
}

func (p *Parser) Fetch(ctx context.Context, targetURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.UserAgent)

	return p.Client.Do(req)
}

func (p *Parser) Extract(r io.Reader, baseURL string) (models.PageCheck, error) {
	data := models.PageCheck{URL: baseURL}

	doc, err := html.Parse(r)
	if err != nil {
		return data, err
	}

	var links []string
	seen := make(map[string]bool)

	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil && data.Title == "" {
			data.Title = strings.TrimSpace(n.FirstChild.Data)
		}

		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				absoluteURL := resolveURL(baseURL, a.Val)
				if absoluteURL != "" && !seen[absoluteURL] {
					seen[absoluteURL] = true
					links = append(links, absoluteURL)
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}

	visit(doc)

	data.OutboundLinks = links
	return data, nil
}

// resolveURL makes href absolute against base and drops its fragment.
// Links that cannot be fetched (mailto:, javascript:, bare fragments) resolve to "".
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	abs := baseURL.ResolveReference(u)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String()
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
