// Package labresult stores extracted biomarkers and coordinates the
// delete-then-insert persistence protocol around the extraction pipeline.
package labresult

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hruflabs/labengine/internal/extraction"
)

// ErrAlreadyProcessing signals that another run holds the document's
// processing slot. Callers should retry later rather than run in parallel.
var ErrAlreadyProcessing = errors.New("document is already being processed")

// ErrNotFound is returned when no status row exists for a document.
var ErrNotFound = errors.New("processing status not found")

// Processing status states. A document can return to StatusProcessing from
// StatusError or StatusCompleted; only a live StatusProcessing row blocks it.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Biomarker is one stored extraction record. Value is kept as text so the
// table can hold results verbatim regardless of precision.
type Biomarker struct {
	ID             uuid.UUID      `json:"id"`
	DocumentID     uuid.UUID      `json:"document_id"`
	Name           string         `json:"name"`
	Value          string         `json:"value"`
	Unit           string         `json:"unit"`
	Category       string         `json:"category"`
	ReferenceRange *string        `json:"reference_range,omitempty"`
	TestDate       time.Time      `json:"test_date"`
	Status         *string        `json:"status,omitempty"`
	Method         string         `json:"method"`
	Confidence     float64        `json:"confidence"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ProcessingStatus tracks one document's extraction lifecycle.
type ProcessingStatus struct {
	DocumentID     uuid.UUID `json:"document_id"`
	Status         string    `json:"status"`
	CandidateCount int       `json:"candidate_count"`
	StoredCount    int       `json:"stored_count"`
	MethodMix      string    `json:"method_mix"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	RetryCount     int       `json:"retry_count"`
	TxID           string    `json:"tx_id"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RecordFromCandidate maps a validated candidate to its storable record.
// Empty name or non-finite value at this point is a hard failure: upstream
// validation should have dropped it, so finding one means the pipeline is
// broken, not the data.
func RecordFromCandidate(documentID uuid.UUID, c extraction.Candidate, extractedAt time.Time) (Biomarker, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Biomarker{}, fmt.Errorf("candidate has empty name (value %v)", c.Value)
	}
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return Biomarker{}, fmt.Errorf("candidate %q has non-finite value", c.Name)
	}

	rec := Biomarker{
		ID:         uuid.New(),
		DocumentID: documentID,
		Name:       c.Key(),
		Value:      strconv.FormatFloat(c.Value, 'f', -1, 64),
		Unit:       c.Unit,
		Category:   string(c.Category),
		TestDate:   c.TestDate,
		Method:     c.Method.String(),
		Confidence: c.Confidence,
		Metadata: map[string]any{
			"source_text":  c.SourceText,
			"extracted_at": extractedAt.UTC().Format(time.RFC3339),
		},
	}
	if c.ReferenceRange != "" {
		rr := c.ReferenceRange
		rec.ReferenceRange = &rr
	}
	if c.Status != extraction.StatusUnknown {
		s := string(c.Status)
		rec.Status = &s
	}
	return rec, nil
}

// Summary is the light-weight shape denormalized into the document's
// metadata blob for join-free reads.
type Summary struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Unit           string  `json:"unit"`
	Category       string  `json:"category"`
	ReferenceRange *string `json:"referenceRange,omitempty"`
	TestDate       string  `json:"testDate"`
	Status         *string `json:"status,omitempty"`
}

// SummarizeRecords builds the metadata-blob payload for a record set.
func SummarizeRecords(records []Biomarker, extractedAt time.Time, parsingErrors []string) map[string]any {
	items := make([]Summary, 0, len(records))
	for _, r := range records {
		items = append(items, Summary{
			Name:           r.Name,
			Value:          r.Value,
			Unit:           r.Unit,
			Category:       r.Category,
			ReferenceRange: r.ReferenceRange,
			TestDate:       r.TestDate.UTC().Format(time.RFC3339),
			Status:         r.Status,
		})
	}
	payload := map[string]any{
		"biomarkers":   items,
		"extracted_at": extractedAt.UTC().Format(time.RFC3339),
	}
	if len(parsingErrors) > 0 {
		payload["parsing_errors"] = parsingErrors
	}
	return payload
}

// MethodMix summarizes which extractors contributed to a stored set:
// "regex", "llm", "pattern", a "hybrid" of several, or "none".
func MethodMix(records []Biomarker) string {
	seen := map[string]bool{}
	for _, r := range records {
		seen[r.Method] = true
	}
	switch len(seen) {
	case 0:
		return "none"
	case 1:
		for m := range seen {
			return m
		}
	}
	return "hybrid"
}
