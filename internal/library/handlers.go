package library

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"go-library/internal/storage"
	"go-library/pkg/models"
)

// Messages shown to the user. The acceptance suite matches on them.
const (
	MsgWrongCredentials    = "Wrong credentials"
	MsgDuplicateBookName   = "Duplicate Book name"
	MsgDuplicateReaderName = "Duplicate reader name"
)

type pageData struct {
	Title    string
	LoggedIn bool
	Error    string
	Form     url.Values
	Genres   []string
	Books    []models.Book
	Readers  []models.Reader
	Book     models.Book
	Reader   models.Reader
}

func (s *Server) newPage(r *http.Request, title string) *pageData {
	return &pageData{Title: title, LoggedIn: s.loggedIn(r), Genres: models.Genres}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	page := s.newPage(r, http.StatusText(status))
	page.Error = http.StatusText(status)
	s.render(w, status, "error", page)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	books, err := s.store.ListBooks(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	page := s.newPage(r, "Books")
	page.Books = books
	s.render(w, http.StatusOK, "home", page)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "login", s.newPage(r, "Login"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	username := r.PostForm.Get("login[username]")
	password := r.PostForm.Get("login[password]")

	if !s.creds.Check(username, password) {
		s.log.Info("Rejected login", zap.String("username", username))
		page := s.newPage(r, "Login")
		page.Error = MsgWrongCredentials
		page.Form = url.Values{"login[username]": {username}}
		s.render(w, http.StatusOK, "login", page)
		return
	}

	if err := s.startSession(w, r, map[string]string{LoginKey: loginValue}); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.endSession(w, r); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleNewBookForm(w http.ResponseWriter, r *http.Request) {
	s.renderBookForm(w, r, http.StatusOK, "", nil)
}

func (s *Server) renderBookForm(w http.ResponseWriter, r *http.Request, status int, msg string, form url.Values) {
	books, err := s.store.ListBooks(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	page := s.newPage(r, "Add/List Books")
	page.Books = books
	page.Error = msg
	page.Form = form
	s.render(w, status, "new_book", page)
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	book := models.Book{
		Name:   strings.TrimSpace(r.PostForm.Get("book[name]")),
		Author: strings.TrimSpace(r.PostForm.Get("book[author]")),
		Genre:  r.PostForm.Get("book[genre]"),
	}

	if msg := validateBook(book); msg != "" {
		s.renderBookForm(w, r, http.StatusUnprocessableEntity, msg, r.PostForm)
		return
	}

	added, err := s.store.AddBook(r.Context(), book)
	if errors.Is(err, storage.ErrDuplicateName) {
		s.renderBookForm(w, r, http.StatusOK, MsgDuplicateBookName, r.PostForm)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	s.log.Info("Book added", zap.Int64("id", added.ID), zap.String("name", added.Name))
	http.Redirect(w, r, fmt.Sprintf("/books/%d", added.ID), http.StatusFound)
}

func validateBook(b models.Book) string {
	switch {
	case b.Name == "":
		return "Book name is required"
	case b.Author == "":
		return "Author is required"
	case !slices.Contains(models.Genres, b.Genre):
		return "Unknown genre"
	}
	return ""
}

func (s *Server) handleShowBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.fail(w, r, http.StatusNotFound, nil)
		return
	}
	book, err := s.store.GetBook(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.fail(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	page := s.newPage(r, book.Name)
	page.Book = book
	s.render(w, http.StatusOK, "book", page)
}

func (s *Server) handleNewReaderForm(w http.ResponseWriter, r *http.Request) {
	s.renderReaderForm(w, r, http.StatusOK, "", nil)
}

func (s *Server) renderReaderForm(w http.ResponseWriter, r *http.Request, status int, msg string, form url.Values) {
	readers, err := s.store.ListReaders(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	page := s.newPage(r, "Add/List Readers")
	page.Readers = readers
	page.Error = msg
	page.Form = form
	s.render(w, status, "new_reader", page)
}

func (s *Server) handleAddReader(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	reader := models.Reader{Name: strings.TrimSpace(r.PostForm.Get("reader[name]"))}
	if reader.Name == "" {
		s.renderReaderForm(w, r, http.StatusUnprocessableEntity, "Reader name is required", r.PostForm)
		return
	}

	added, err := s.store.AddReader(r.Context(), reader)
	if errors.Is(err, storage.ErrDuplicateName) {
		s.renderReaderForm(w, r, http.StatusOK, MsgDuplicateReaderName, r.PostForm)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	s.log.Info("Reader added", zap.Int64("id", added.ID), zap.String("name", added.Name))
	http.Redirect(w, r, fmt.Sprintf("/readers/%d", added.ID), http.StatusFound)
}

func (s *Server) handleShowReader(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.fail(w, r, http.StatusNotFound, nil)
		return
	}
	reader, err := s.store.GetReader(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.fail(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	page := s.newPage(r, reader.Name)
	page.Reader = reader
	s.render(w, http.StatusOK, "reader", page)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}
