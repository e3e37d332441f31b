package browser

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Document is one response together with its parsed HTML tree. The browser
// replaces it on every request.
type Document struct {
	URL        *url.URL
	StatusCode int
	Header     http.Header
	Body       []byte

	root *html.Node
	dom  *goquery.Document
}

// NewDocument parses body as HTML. Non-HTML bodies still produce a document
// (with an empty tree) so status and headers remain inspectable.
func NewDocument(u *url.URL, status int, header http.Header, body []byte) (*Document, error) {
	root, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", u, err)
	}
	dom := goquery.NewDocumentFromNode(root)
	dom.Url = u

	return &Document{
		URL:        u,
		StatusCode: status,
		Header:     header,
		Body:       body,
		root:       root,
		dom:        dom,
	}, nil
}

// Find returns the elements matching a CSS selector. An invalid selector
// matches nothing.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.dom.Find(selector)
}

func (d *Document) Count(selector string) int {
	return d.Find(selector).Length()
}

// Texts returns the whitespace-normalised text of every element matching selector.
func (d *Document) Texts(selector string) []string {
	var texts []string
	d.Find(selector).Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, normalizeSpace(s.Text()))
	})
	return texts
}

// Title returns the <title> text, or "".
func (d *Document) Title() string {
	if n := htmlquery.FindOne(d.root, "//title"); n != nil {
		return normalizeSpace(htmlquery.InnerText(n))
	}
	return ""
}

func (d *Document) IsRedirect() bool {
	return d.StatusCode >= 300 && d.StatusCode < 400
}

// Location resolves the Location header against the document URL.
func (d *Document) Location() (*url.URL, bool) {
	loc := d.Header.Get("Location")
	if loc == "" {
		return nil, false
	}
	u, err := d.URL.Parse(loc)
	if err != nil {
		return nil, false
	}
	return u, true
}

// Link finds the first anchor with an href whose visible text (or the alt
// text of an image inside it) equals text after whitespace normalisation.
func (d *Document) Link(text string) (*html.Node, bool) {
	want := normalizeSpace(text)
	for _, a := range htmlquery.Find(d.root, "//a[@href]") {
		if normalizeSpace(htmlquery.InnerText(a)) == want {
			return a, true
		}
		for _, img := range htmlquery.Find(a, ".//img[@alt]") {
			if normalizeSpace(htmlquery.SelectAttr(img, "alt")) == want {
				return a, true
			}
		}
	}
	return nil, false
}

// SubmitControl finds the submit control labelled text and the form it submits.
// A control matches by its button text, its value (inputs), its alt text
// (image inputs), its id or its name.
func (d *Document) SubmitControl(text string) (control, form *html.Node, ok bool) {
	want := normalizeSpace(text)
	for _, c := range elements(d.root, "button", "input") {
		if !isSubmitControl(c) || !controlMatches(c, want) {
			continue
		}
		if f := ownerForm(d.root, c); f != nil {
			return c, f, true
		}
	}
	return nil, nil, false
}

// elements lists the elements with any of the given tag names in document order.
func elements(root *html.Node, tags ...string) []*html.Node {
	var found []*html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && slices.Contains(tags, n.Data) {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)
	return found
}

func isSubmitControl(n *html.Node) bool {
	typ := strings.ToLower(htmlquery.SelectAttr(n, "type"))
	if n.Data == "button" {
		return typ == "" || typ == "submit"
	}
	return typ == "submit" || typ == "image"
}

func controlMatches(n *html.Node, want string) bool {
	if n.Data == "button" && normalizeSpace(htmlquery.InnerText(n)) == want {
		return true
	}
	for _, attr := range []string{"value", "alt", "id", "name"} {
		if hasAttr(n, attr) && normalizeSpace(htmlquery.SelectAttr(n, attr)) == want {
			if attr == "value" && n.Data == "button" {
				continue
			}
			return true
		}
	}
	return false
}

// ownerForm honours the form="id" attribute before falling back to the
// nearest <form> ancestor.
func ownerForm(root, n *html.Node) *html.Node {
	if id := htmlquery.SelectAttr(n, "form"); id != "" {
		for _, f := range htmlquery.Find(root, "//form[@id]") {
			if htmlquery.SelectAttr(f, "id") == id {
				return f
			}
		}
		return nil
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "form" {
			return p
		}
	}
	return nil
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
