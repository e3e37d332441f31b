package storage

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"go-library/pkg/models"
)

type Memory struct {
	mu       sync.RWMutex
	books    []models.Book
	readers  []models.Reader
	sessions map[string]map[string]string
	nextID   int64
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]map[string]string)}
}

func (m *Memory) ListBooks(_ context.Context) ([]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Book(nil), m.books...), nil
}

func (m *Memory) GetBook(_ context.Context, id int64) (models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.books {
		if b.ID == id {
			return b, nil
		}
	}
	return models.Book{}, fmt.Errorf("book %d: %w", id, ErrNotFound)
}

func (m *Memory) AddBook(_ context.Context, book models.Book) (models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.Name == book.Name {
			return models.Book{}, fmt.Errorf("book %q: %w", book.Name, ErrDuplicateName)
		}
	}
	m.nextID++
	book.ID = m.nextID
	book.CreatedAt = time.Now()
	m.books = append(m.books, book)
	return book, nil
}

func (m *Memory) CountBooks(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books), nil
}

func (m *Memory) ListReaders(_ context.Context) ([]models.Reader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Reader(nil), m.readers...), nil
}

func (m *Memory) GetReader(_ context.Context, id int64) (models.Reader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.readers {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Reader{}, fmt.Errorf("reader %d: %w", id, ErrNotFound)
}

func (m *Memory) AddReader(_ context.Context, reader models.Reader) (models.Reader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.readers {
		if r.Name == reader.Name {
			return models.Reader{}, fmt.Errorf("reader %q: %w", reader.Name, ErrDuplicateName)
		}
	}
	m.nextID++
	reader.ID = m.nextID
	reader.CreatedAt = time.Now()
	m.readers = append(m.readers, reader)
	return reader, nil
}

func (m *Memory) LoadSession(_ context.Context, id string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	values, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return maps.Clone(values), nil
}

func (m *Memory) SaveSession(_ context.Context, id string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = maps.Clone(values)
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
