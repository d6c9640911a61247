package labresult

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hruflabs/labengine/internal/platform/db"
)

// =========== Biomarker Repository ===========

type biomarkerRepoPG struct {
	pool      *pgxpool.Pool
	batchSize int
}

// NewBiomarkerRepoPG creates the Postgres biomarker repository. Inserts are
// chunked into batches of batchSize rows to bound statement size.
func NewBiomarkerRepoPG(pool *pgxpool.Pool, batchSize int) BiomarkerRepository {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &biomarkerRepoPG{pool: pool, batchSize: batchSize}
}

func (r *biomarkerRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *biomarkerRepoPG) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM biomarker WHERE document_id = $1`, documentID)
	return err
}

func (r *biomarkerRepoPG) InsertBatch(ctx context.Context, records []Biomarker) error {
	conn := r.conn(ctx)
	for start := 0; start < len(records); start += r.batchSize {
		end := min(start+r.batchSize, len(records))

		batch := &pgx.Batch{}
		for _, rec := range records[start:end] {
			batch.Queue(`
				INSERT INTO biomarker (id, document_id, name, value, unit, category,
					reference_range, test_date, status, method, confidence, metadata)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
				rec.ID, rec.DocumentID, rec.Name, rec.Value, rec.Unit, rec.Category,
				rec.ReferenceRange, rec.TestDate, rec.Status, rec.Method, rec.Confidence, rec.Metadata)
		}

		if err := sendBatch(ctx, conn, batch); err != nil {
			return fmt.Errorf("inserting biomarker batch at offset %d: %w", start, err)
		}
	}
	return nil
}

// sendBatch issues a pgx batch on whatever connection the context resolved
// to. Both pgx.Tx and *pgxpool.Pool expose SendBatch.
func sendBatch(ctx context.Context, conn db.Queryable, batch *pgx.Batch) error {
	sender, ok := conn.(interface {
		SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	})
	if !ok {
		return errors.New("connection does not support batch sends")
	}
	results := sender.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}

func (r *biomarkerRepoPG) CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM biomarker WHERE document_id = $1`, documentID).Scan(&n)
	return n, err
}

const biomarkerCols = `id, document_id, name, value, unit, category,
	reference_range, test_date, status, method, confidence, metadata, created_at`

func (r *biomarkerRepoPG) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]Biomarker, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+biomarkerCols+`
		FROM biomarker WHERE document_id = $1
		ORDER BY name`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Biomarker
	for rows.Next() {
		var b Biomarker
		if err := rows.Scan(&b.ID, &b.DocumentID, &b.Name, &b.Value, &b.Unit, &b.Category,
			&b.ReferenceRange, &b.TestDate, &b.Status, &b.Method, &b.Confidence, &b.Metadata, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// =========== Status Repository ===========

type statusRepoPG struct{ pool *pgxpool.Pool }

func NewStatusRepoPG(pool *pgxpool.Pool) StatusRepository { return &statusRepoPG{pool: pool} }

func (r *statusRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *statusRepoPG) BeginProcessing(ctx context.Context, documentID uuid.UUID, candidateCount int, txID string) error {
	// The conditional update leaves a live processing row untouched; zero
	// affected rows therefore means another run holds the slot. Running this
	// inside the caller's transaction takes a row lock that serializes
	// concurrent attempts on the same document.
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO processing_status (document_id, status, candidate_count, tx_id, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (document_id) DO UPDATE
		SET status = $2, candidate_count = $3, tx_id = $4, error_message = NULL, updated_at = NOW()
		WHERE processing_status.status <> $2`,
		documentID, StatusProcessing, candidateCount, txID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyProcessing
	}
	return nil
}

func (r *statusRepoPG) MarkCompleted(ctx context.Context, documentID uuid.UUID, storedCount int, methodMix string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE processing_status
		SET status = $2, stored_count = $3, method_mix = $4, error_message = NULL, updated_at = NOW()
		WHERE document_id = $1`,
		documentID, StatusCompleted, storedCount, methodMix)
	return err
}

func (r *statusRepoPG) MarkError(ctx context.Context, documentID uuid.UUID, message string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO processing_status (document_id, status, error_message, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (document_id) DO UPDATE
		SET status = $2, error_message = $3, updated_at = NOW()`,
		documentID, StatusError, message)
	return err
}

func (r *statusRepoPG) GetByDocument(ctx context.Context, documentID uuid.UUID) (*ProcessingStatus, error) {
	var s ProcessingStatus
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT document_id, status, candidate_count, stored_count, method_mix,
			error_message, retry_count, tx_id, updated_at
		FROM processing_status WHERE document_id = $1`, documentID).
		Scan(&s.DocumentID, &s.Status, &s.CandidateCount, &s.StoredCount, &s.MethodMix,
			&s.ErrorMessage, &s.RetryCount, &s.TxID, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *statusRepoPG) ListStale(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT d.id
		FROM document d
		LEFT JOIN processing_status ps ON ps.document_id = d.id
		WHERE ps.document_id IS NULL OR ps.status = $1
		ORDER BY d.uploaded_at
		LIMIT $2`, StatusError, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *statusRepoPG) IncrementRetry(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE processing_status
		SET retry_count = retry_count + 1, updated_at = NOW()
		WHERE document_id = $1`, documentID)
	return err
}
