// Package storage persists books, readers and sessions for the library app.
//
// Two implementations exist: Storage (PostgreSQL through the pgx stdlib
// driver) and Memory, which the tests and a database-less `library serve` use.
package storage

import (
	"context"
	"errors"

	"go-library/pkg/models"
)

var (
	// ErrDuplicateName is returned when a book or reader name is already taken.
	ErrDuplicateName = errors.New("duplicate name")
	ErrNotFound      = errors.New("not found")
)

type BookStore interface {
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, id int64) (models.Book, error)
	AddBook(ctx context.Context, book models.Book) (models.Book, error)
	CountBooks(ctx context.Context) (int, error)
}

type ReaderStore interface {
	ListReaders(ctx context.Context) ([]models.Reader, error)
	GetReader(ctx context.Context, id int64) (models.Reader, error)
	AddReader(ctx context.Context, reader models.Reader) (models.Reader, error)
}

// SessionStore keeps server-side session values keyed by the session cookie.
// LoadSession returns ErrNotFound for unknown ids.
type SessionStore interface {
	LoadSession(ctx context.Context, id string) (map[string]string, error)
	SaveSession(ctx context.Context, id string, values map[string]string) error
	DeleteSession(ctx context.Context, id string) error
}

// Store is everything the library app needs.
type Store interface {
	BookStore
	ReaderStore
	SessionStore
}
