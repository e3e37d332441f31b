// Package library is the server-rendered library app the acceptance suite
// drives: a public book list, a login form and a login-gated area for adding
// books and readers.
package library

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"go-library/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "login", "new_book", "book", "new_reader", "reader", "error"}

const robotsTxt = "User-agent: *\nDisallow: /logout\n"

type Options struct {
	Credentials   *Credentials
	SessionCookie string
	Logger        *zap.Logger
}

type Server struct {
	store  storage.Store
	creds  *Credentials
	cookie string
	log    *zap.Logger
	pages  map[string]*template.Template
}

func NewServer(store storage.Store, opts Options) (*Server, error) {
	if opts.Credentials == nil {
		return nil, fmt.Errorf("credentials are required")
	}
	if opts.SessionCookie == "" {
		opts.SessionCookie = "LIBSESSID"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = t
	}

	return &Server{
		store:  store,
		creds:  opts.Credentials,
		cookie: opts.SessionCookie,
		log:    opts.Logger.Named("http"),
		pages:  pages,
	}, nil
}

// Handler returns the app's routes wrapped in logging and panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("GET /new-book", s.requireLogin(s.handleNewBookForm))
	mux.HandleFunc("POST /new-book", s.requireLogin(s.handleAddBook))
	mux.HandleFunc("GET /books/{id}", s.handleShowBook)
	mux.HandleFunc("GET /new-reader", s.requireLogin(s.handleNewReaderForm))
	mux.HandleFunc("POST /new-reader", s.requireLogin(s.handleAddReader))
	mux.HandleFunc("GET /readers/{id}", s.handleShowReader)
	mux.HandleFunc("GET /robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, robotsTxt)
	})
	return s.recoverPanics(s.logRequests(mux))
}

// render executes a page into a buffer first so template errors still
// produce a clean 500.
func (s *Server) render(w http.ResponseWriter, status int, page string, data *pageData) {
	var buf bytes.Buffer
	if err := s.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.Error("Failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
