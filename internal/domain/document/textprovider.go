package document

import (
	"context"

	"github.com/google/uuid"

	"github.com/hruflabs/labengine/internal/platform/cache"
)

// TextProvider resolves a document's text, consulting the injected cache
// before the repository. A nil cache disables caching entirely.
type TextProvider struct {
	repo  Repository
	cache *cache.TextCache
}

func NewTextProvider(repo Repository, c *cache.TextCache) *TextProvider {
	return &TextProvider{repo: repo, cache: c}
}

// Text returns the document's extraction text. Cache entries are keyed by
// document id and populated only on successful reads.
func (p *TextProvider) Text(ctx context.Context, id uuid.UUID) (string, error) {
	if p.cache != nil {
		if text, ok := p.cache.Get(id.String()); ok {
			return text, nil
		}
	}

	doc, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	text, err := doc.Text()
	if err != nil {
		return "", err
	}

	if p.cache != nil {
		p.cache.Set(id.String(), text)
	}
	return text, nil
}
