package document

import (
	"context"

	"github.com/google/uuid"
)

// Repository reads documents and their extraction metadata.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	// UpdateMetadata merges patch into the document's metadata blob,
	// overwriting existing keys and preserving the rest.
	UpdateMetadata(ctx context.Context, id uuid.UUID, patch map[string]any) error
}
