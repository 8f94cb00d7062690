package ports

import (
	"context"

	"github.com/bft-labs/rescue/internal/domain"
)

// MapRepository persists the sector map between batches so an interrupted
// run resumes from its last checkpoint.
type MapRepository interface {
	// Load returns the persisted map. It returns an error wrapping
	// fs.ErrNotExist when no map has been saved yet.
	Load(ctx context.Context) (*domain.Map, error)

	// Save persists m atomically.
	Save(ctx context.Context, m *domain.Map) error
}
