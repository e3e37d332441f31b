package storage

import (
	"context"
	"errors"
	"fmt"

	"go-library/pkg/models"
)

// SeedBook returns the fixture book with index i (1-based).
func SeedBook(i int) models.Book {
	return models.Book{
		Name:   fmt.Sprintf("Seed Book %02d", i),
		Author: fmt.Sprintf("Seed Author %02d", (i-1)%10+1),
		Genre:  models.Genres[(i-1)%len(models.Genres)],
	}
}

// Seed makes sure at least n books exist. Fixture names are deterministic, so
// running it again never creates duplicates; it returns how many it inserted.
func Seed(ctx context.Context, books BookStore, n int) (int, error) {
	count, err := books.CountBooks(ctx)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for i := 1; count < n; i++ {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		_, err := books.AddBook(ctx, SeedBook(i))
		if errors.Is(err, ErrDuplicateName) {
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("failed to seed book %d: %w", i, err)
		}
		inserted++
		count++
	}
	return inserted, nil
}
