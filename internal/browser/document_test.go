package browser

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Location(t *testing.T) {
	u, _ := url.Parse("http://library.test/new-book")
	doc, err := NewDocument(u, http.StatusFound, http.Header{"Location": {"/"}}, nil)
	require.NoError(t, err)

	assert.True(t, doc.IsRedirect())
	loc, ok := doc.Location()
	require.True(t, ok)
	assert.Equal(t, "http://library.test/", loc.String())

	doc, err = NewDocument(u, http.StatusOK, http.Header{}, []byte("plain text"))
	require.NoError(t, err)
	_, ok = doc.Location()
	assert.False(t, ok)
	assert.Equal(t, "", doc.Title())
}

func TestDocument_InvalidSelectorMatchesNothing(t *testing.T) {
	doc := mustDocument(t, 200, `<p>text</p>`)
	assert.Equal(t, 0, doc.Count("p[["))
	assert.Empty(t, doc.Texts("p[["))
}

func TestForm_ActionDefaultsToCurrentPage(t *testing.T) {
	doc := mustDocument(t, 200, `<form method="POST"><input name="reader[name]"><input type="submit" value="Save"></form>`)

	control, formNode, ok := doc.SubmitControl("Save")
	require.True(t, ok)

	form := NewForm(doc, formNode, control)
	assert.Equal(t, http.MethodPost, form.Method)
	assert.Equal(t, "http://library.test/page", form.Action.String())
	assert.True(t, form.Has("reader[name]"))
	assert.False(t, form.Has("book[name]"))
	assert.Equal(t, url.Values{"reader[name]": {""}}, form.Values())
}

func TestForm_GetRequestReplacesQuery(t *testing.T) {
	doc := mustDocument(t, 200, `<form action="/search?stale=1"><input name="q" value="a b"><button>Find</button></form>`)

	control, formNode, ok := doc.SubmitControl("Find")
	require.True(t, ok)

	form := NewForm(doc, formNode, control)
	require.True(t, form.Set("q", "go lang"))
	method, target, body := form.Request()

	assert.Equal(t, http.MethodGet, method)
	assert.Equal(t, "http://library.test/search?q=go+lang", target.String())
	assert.Nil(t, body)
}

func TestSubmitControl_OutsideAnyForm(t *testing.T) {
	doc := mustDocument(t, 200, `<button>Orphan</button><form></form>`)
	_, _, ok := doc.SubmitControl("Orphan")
	assert.False(t, ok)
}

func TestSubmitControl_DocumentOrder(t *testing.T) {
	doc := mustDocument(t, 200, `<body>
		<form id="first"><input type="submit" value="Go"></form>
		<form id="second"><button>Go</button></form>
	</body>`)

	control, formNode, ok := doc.SubmitControl("Go")
	require.True(t, ok)
	assert.Equal(t, "input", control.Data)
	assert.Equal(t, "first", htmlquery.SelectAttr(formNode, "id"))

	doc = mustDocument(t, 200, `<body>
		<form id="first"><button>Go</button></form>
		<form id="second"><input type="submit" value="Go"></form>
	</body>`)

	control, formNode, ok = doc.SubmitControl("Go")
	require.True(t, ok)
	assert.Equal(t, "button", control.Data)
	assert.Equal(t, "first", htmlquery.SelectAttr(formNode, "id"))
}

func TestSubmitControl_TypeIsCaseInsensitive(t *testing.T) {
	doc := mustDocument(t, 200, `<form action="/go"><input type="SUBMIT" value="Send"></form>`)

	control, _, ok := doc.SubmitControl("Send")
	require.True(t, ok)
	assert.Equal(t, "SUBMIT", htmlquery.SelectAttr(control, "type"))
}

func TestForm_ValuesKeepDocumentOrder(t *testing.T) {
	doc := mustDocument(t, 200, `<form method="post">
		<button name="tag" value="b">Pick</button>
		<input name="tag" value="a">
	</form>`)

	control, formNode, ok := doc.SubmitControl("Pick")
	require.True(t, ok)
	form := NewForm(doc, formNode, control)
	assert.Equal(t, []string{"b", "a"}, form.Values()["tag"])
}

func TestLink_SkipsAnchorsWithoutHref(t *testing.T) {
	doc := mustDocument(t, 200, `<body>
		<a name="top">Books</a>
		<a href="/">Books</a>
	</body>`)

	a, ok := doc.Link("Books")
	require.True(t, ok)
	assert.Equal(t, "/", htmlquery.SelectAttr(a, "href"))

	_, ok = mustDocument(t, 200, `<a name="top">Books</a>`).Link("Books")
	assert.False(t, ok)
}
