package browser

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Form is a snapshot of an HTML form ready for submission: its resolved
// method and action plus the values a browser would send by default.
type Form struct {
	Method string
	Action *url.URL

	values url.Values
	names  map[string]bool
}

// NewForm collects the default values of form as if submitted through control.
// control may be nil.
func NewForm(doc *Document, form, control *html.Node) *Form {
	f := &Form{
		Method: http.MethodGet,
		values: url.Values{},
		names:  make(map[string]bool),
	}
	if m := strings.ToUpper(htmlquery.SelectAttr(form, "method")); m == http.MethodPost {
		f.Method = http.MethodPost
	}

	f.Action = doc.URL
	if action := strings.TrimSpace(htmlquery.SelectAttr(form, "action")); action != "" {
		if u, err := doc.URL.Parse(action); err == nil {
			f.Action = u
		}
	}

	for _, n := range formControls(doc.root, form) {
		f.collect(n, control)
	}
	return f
}

func (f *Form) collect(n, control *html.Node) {
	name := htmlquery.SelectAttr(n, "name")
	if name == "" || hasAttr(n, "disabled") {
		return
	}

	switch n.Data {
	case "input":
		switch typ := strings.ToLower(htmlquery.SelectAttr(n, "type")); typ {
		case "submit", "image", "button", "reset":
			if n == control {
				f.values.Add(name, htmlquery.SelectAttr(n, "value"))
			}
			return
		case "checkbox", "radio":
			f.names[name] = true
			if hasAttr(n, "checked") {
				value := "on"
				if hasAttr(n, "value") {
					value = htmlquery.SelectAttr(n, "value")
				}
				f.values.Add(name, value)
			}
			return
		case "file":
			f.names[name] = true
			return
		}
		f.names[name] = true
		f.values.Add(name, htmlquery.SelectAttr(n, "value"))
	case "textarea":
		f.names[name] = true
		f.values.Add(name, htmlquery.InnerText(n))
	case "select":
		f.names[name] = true
		if v, ok := selectedOption(n); ok {
			f.values.Add(name, v)
		}
	case "button":
		if n == control {
			f.values.Add(name, htmlquery.SelectAttr(n, "value"))
		}
	}
}

// selectedOption returns the first selected option, falling back to the
// first option like a browser does for single selects.
func selectedOption(sel *html.Node) (string, bool) {
	options := htmlquery.Find(sel, ".//option")
	if len(options) == 0 {
		return "", false
	}
	chosen := options[0]
	for _, opt := range options {
		if hasAttr(opt, "selected") {
			chosen = opt
			break
		}
	}
	if hasAttr(chosen, "value") {
		return htmlquery.SelectAttr(chosen, "value"), true
	}
	return normalizeSpace(htmlquery.InnerText(chosen)), true
}

// formControls returns, in document order, the form's descendants plus
// controls elsewhere in the document bound to it with form="id".
func formControls(root, form *html.Node) []*html.Node {
	var controls []*html.Node
	for _, n := range elements(root, "input", "textarea", "select", "button") {
		if ownerForm(root, n) == form {
			controls = append(controls, n)
		}
	}
	return controls
}

// Has reports whether the form has a field called name.
func (f *Form) Has(name string) bool {
	return f.names[name]
}

// Set replaces the value of an existing field.
func (f *Form) Set(name, value string) bool {
	if !f.names[name] {
		return false
	}
	f.values.Set(name, value)
	return true
}

// Values returns a copy of what would be submitted.
func (f *Form) Values() url.Values {
	out := make(url.Values, len(f.values))
	for k, v := range f.values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Request builds the submission: urlencoded body for POST, query string for GET.
func (f *Form) Request() (method string, target *url.URL, body url.Values) {
	if f.Method == http.MethodPost {
		return http.MethodPost, f.Action, f.Values()
	}
	u := *f.Action
	u.RawQuery = f.values.Encode()
	return http.MethodGet, &u, nil
}
