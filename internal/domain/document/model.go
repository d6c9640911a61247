// Package document holds the uploaded-report model that extraction reads
// text from. Documents arrive through an upstream ingestion path; this
// service only consumes them.
package document

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoText is returned when a document carries neither normalized nor raw text.
var ErrNoText = errors.New("document has no extractable text")

// ErrNotFound is returned when the document id does not exist.
var ErrNotFound = errors.New("document not found")

// Document is an uploaded lab report.
type Document struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	FileName       string         `json:"file_name"`
	NormalizedText *string        `json:"normalized_text,omitempty"`
	RawText        *string        `json:"raw_text,omitempty"`
	Summary        *string        `json:"summary,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	UploadedAt     time.Time      `json:"uploaded_at"`
}

// Text returns the best available text for extraction: normalized text if
// present and non-blank, otherwise raw OCR text.
func (d *Document) Text() (string, error) {
	if d.NormalizedText != nil && strings.TrimSpace(*d.NormalizedText) != "" {
		return *d.NormalizedText, nil
	}
	if d.RawText != nil && strings.TrimSpace(*d.RawText) != "" {
		return *d.RawText, nil
	}
	return "", ErrNoText
}
