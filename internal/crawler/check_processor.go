package crawler

import (
	"context"

	"go-library/pkg/models"
)

// CheckProcessor implements engine.Processor for link checking.
type CheckProcessor struct {
	Parser *Parser
}

// Process checks a single page. Broken pages are still reported, but only
// pages that answered successfully contribute links to follow.
func (p *CheckProcessor) Process(ctx context.Context, url string) ([]models.PageCheck, []string, error) {
	check, err := p.Parser.Parse(ctx, url)
	if err != nil {
		return []models.PageCheck{check}, nil, err
	}
	if check.Broken() {
		return []models.PageCheck{check}, nil, nil
	}
	return []models.PageCheck{check}, check.OutboundLinks, nil
}
