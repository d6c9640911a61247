package labresult

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hruflabs/labengine/internal/domain/document"
	"github.com/hruflabs/labengine/internal/extraction"
	"github.com/hruflabs/labengine/internal/platform/db"
)

// TextProvider resolves a document's extraction text.
type TextProvider interface {
	Text(ctx context.Context, id uuid.UUID) (string, error)
}

// Service runs the full pipeline for a document: fetch text, extract,
// persist atomically, keep the status row honest.
type Service struct {
	texts      TextProvider
	docs       document.Repository
	biomarkers BiomarkerRepository
	status     StatusRepository
	pipeline   *extraction.Pipeline
	tx         db.TxRunner
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(
	texts TextProvider,
	docs document.Repository,
	biomarkers BiomarkerRepository,
	status StatusRepository,
	pipeline *extraction.Pipeline,
	tx db.TxRunner,
	logger zerolog.Logger,
) *Service {
	return &Service{
		texts:      texts,
		docs:       docs,
		biomarkers: biomarkers,
		status:     status,
		pipeline:   pipeline,
		tx:         tx,
		logger:     logger.With().Str("component", "labresult").Logger(),
		now:        time.Now,
	}
}

// ExtractPreview runs extraction only, without touching storage.
func (s *Service) ExtractPreview(ctx context.Context, text string) extraction.Result {
	return s.pipeline.ExtractBiomarkers(ctx, text)
}

// ProcessLabResult runs extraction and persists the result set atomically.
// Either every write lands or none do. On failure the status row is updated
// to StatusError outside the rolled-back transaction, then the error is
// returned. ErrAlreadyProcessing is the one exception: the document is
// legitimately mid-run elsewhere, so its status is left alone.
func (s *Service) ProcessLabResult(ctx context.Context, documentID uuid.UUID) error {
	logger := s.logger.With().Stringer("document_id", documentID).Logger()

	text, err := s.texts.Text(ctx, documentID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return err
		}
		s.markError(ctx, documentID, err.Error())
		return fmt.Errorf("resolving document text: %w", err)
	}

	result := s.pipeline.ExtractBiomarkers(ctx, text)
	logger.Info().
		Int("candidates", len(result.ParsedBiomarkers)).
		Int("parsing_errors", len(result.ParsingErrors)).
		Msg("extraction finished")

	txID := uuid.New().String()
	extractedAt := s.now()

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.status.BeginProcessing(ctx, documentID, len(result.ParsedBiomarkers), txID); err != nil {
			return err
		}

		if err := s.biomarkers.DeleteByDocument(ctx, documentID); err != nil {
			return fmt.Errorf("deleting prior records: %w", err)
		}

		records := make([]Biomarker, 0, len(result.ParsedBiomarkers))
		for _, c := range result.ParsedBiomarkers {
			rec, err := RecordFromCandidate(documentID, c, extractedAt)
			if err != nil {
				return fmt.Errorf("mapping candidate: %w", err)
			}
			records = append(records, rec)
		}

		if err := s.biomarkers.InsertBatch(ctx, records); err != nil {
			return err
		}

		patch := SummarizeRecords(records, extractedAt, result.ParsingErrors)
		if err := s.docs.UpdateMetadata(ctx, documentID, patch); err != nil {
			return fmt.Errorf("merging document metadata: %w", err)
		}

		if err := s.status.MarkCompleted(ctx, documentID, len(records), MethodMix(records)); err != nil {
			return fmt.Errorf("marking completed: %w", err)
		}

		stored, err := s.biomarkers.CountByDocument(ctx, documentID)
		if err != nil {
			return fmt.Errorf("verifying stored count: %w", err)
		}
		if stored != len(records) {
			return fmt.Errorf("stored count mismatch: inserted %d, found %d", len(records), stored)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessing) {
			return err
		}
		s.markError(ctx, documentID, err.Error())
		return err
	}

	logger.Info().Int("stored", len(result.ParsedBiomarkers)).Str("tx_id", txID).Msg("document processed")
	return nil
}

// markError records the failure reason on the status row. The write runs
// outside any transaction and survives caller cancellation; its own failure
// is logged and swallowed.
func (s *Service) markError(ctx context.Context, documentID uuid.UUID, message string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.status.MarkError(ctx, documentID, message); err != nil {
		s.logger.Error().Err(err).
			Stringer("document_id", documentID).
			Msg("failed to record error status")
	}
}

// ListBiomarkers returns the stored records for a document.
func (s *Service) ListBiomarkers(ctx context.Context, documentID uuid.UUID) ([]Biomarker, error) {
	return s.biomarkers.ListByDocument(ctx, documentID)
}

// GetStatus returns the processing status row for a document.
func (s *Service) GetStatus(ctx context.Context, documentID uuid.UUID) (*ProcessingStatus, error) {
	return s.status.GetByDocument(ctx, documentID)
}

// SweepStale resubmits documents whose status is error or missing. Failures
// are logged per document and do not stop the sweep. Returns how many
// documents were reprocessed successfully.
func (s *Service) SweepStale(ctx context.Context, limit int) (int, error) {
	ids, err := s.status.ListStale(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("listing stale documents: %w", err)
	}

	processed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		if err := s.status.IncrementRetry(ctx, id); err != nil {
			s.logger.Warn().Err(err).Stringer("document_id", id).Msg("retry count bump failed")
		}
		if err := s.ProcessLabResult(ctx, id); err != nil {
			s.logger.Error().Err(err).Stringer("document_id", id).Msg("sweep reprocess failed")
			continue
		}
		processed++
	}

	s.logger.Info().Int("candidates", len(ids)).Int("processed", processed).Msg("sweep finished")
	return processed, nil
}
