//go:build integration

package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"go-library/pkg/models"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	url := os.Getenv("TEST_DB_URL")
	if url == "" {
		t.Skip("TEST_DB_URL not set")
	}

	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	db, err := Open(ctx, url, 1, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewStorage(db, logger)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestStorage_DuplicateBookName(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()
	name := "it-book-" + uuid.NewString()

	b, err := s.AddBook(ctx, models.Book{Name: name, Author: "a", Genre: "horror"})
	require.NoError(t, err)

	got, err := s.GetBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)

	_, err = s.AddBook(ctx, models.Book{Name: name, Author: "b", Genre: "horror"})
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestStorage_DuplicateReaderName(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()
	name := "it-reader-" + uuid.NewString()

	_, err := s.AddReader(ctx, models.Reader{Name: name})
	require.NoError(t, err)
	_, err = s.AddReader(ctx, models.Reader{Name: name})
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestStorage_SessionRoundTrip(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, s.SaveSession(ctx, id, map[string]string{"isLogin": "1"}))
	values, err := s.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "1", values["isLogin"])

	require.NoError(t, s.DeleteSession(ctx, id))
	_, err = s.LoadSession(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPageCheckSink_Upserts(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()
	sink := &PageCheckSink{Storage: s}
	url := "http://it.test/" + uuid.NewString()

	check := models.PageCheck{URL: url, Title: "t", StatusCode: 200, CheckedAt: time.Now()}
	require.NoError(t, sink.Save(ctx, []models.PageCheck{check}))

	check.StatusCode = 500
	require.NoError(t, sink.Save(ctx, []models.PageCheck{check}))

	var status int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT status_code FROM page_checks WHERE url = $1`, url).Scan(&status))
	assert.Equal(t, 500, status)
}
