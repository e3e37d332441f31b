package storage

import (
	"context"

	"go.uber.org/zap"

	"go-library/pkg/models"
)

// PageCheckSink saves link checker observations to the page_checks table.
// A re-check of the same URL replaces the earlier row.
type PageCheckSink struct {
	*Storage
}

func (s *PageCheckSink) Save(ctx context.Context, batch []models.PageCheck) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO page_checks (url, title, status_code, load_time_ms, link_count, checked_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			status_code = EXCLUDED.status_code,
			load_time_ms = EXCLUDED.load_time_ms,
			link_count = EXCLUDED.link_count,
			checked_at = EXCLUDED.checked_at,
			error = EXCLUDED.error`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range batch {
		_, err := stmt.ExecContext(ctx,
			p.URL,
			p.Title,
			p.StatusCode,
			p.LoadTime.Milliseconds(),
			len(p.OutboundLinks),
			p.CheckedAt,
			p.Error,
		)
		if err != nil {
			s.log.Warn("Error saving page check", zap.String("url", p.URL), zap.Error(err))
		}
	}

	return tx.Commit()
}
