package labresult

import (
	"context"

	"github.com/google/uuid"
)

// BiomarkerRepository stores extraction records. All write methods honor a
// transaction bound to the context.
type BiomarkerRepository interface {
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
	InsertBatch(ctx context.Context, records []Biomarker) error
	CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]Biomarker, error)
}

// StatusRepository manages the per-document processing status row.
type StatusRepository interface {
	// BeginProcessing moves the document to StatusProcessing. It returns
	// ErrAlreadyProcessing when a live processing row already exists, so a
	// document is never processed by two runs at once.
	BeginProcessing(ctx context.Context, documentID uuid.UUID, candidateCount int, txID string) error
	MarkCompleted(ctx context.Context, documentID uuid.UUID, storedCount int, methodMix string) error
	MarkError(ctx context.Context, documentID uuid.UUID, message string) error
	GetByDocument(ctx context.Context, documentID uuid.UUID) (*ProcessingStatus, error)
	// ListStale returns ids of documents whose status is StatusError, or
	// which have biomarker-bearing text but no status row at all.
	ListStale(ctx context.Context, limit int) ([]uuid.UUID, error)
	IncrementRetry(ctx context.Context, documentID uuid.UUID) error
}
