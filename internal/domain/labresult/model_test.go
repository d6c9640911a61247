package labresult

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hruflabs/labengine/internal/extraction"
)

func TestRecordFromCandidate(t *testing.T) {
	docID := uuid.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	c := extraction.Candidate{
		Name:           "Glucose",
		Value:          95.5,
		Unit:           "mg/dL",
		Category:       extraction.CategoryMetabolic,
		ReferenceRange: "70-99",
		TestDate:       now,
		Status:         extraction.StatusNormal,
		Method:         extraction.MethodRegex,
		Confidence:     0.9,
		SourceText:     "Glucose: 95.5 mg/dL",
	}

	rec, err := RecordFromCandidate(docID, c, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Name != "glucose" {
		t.Errorf("expected lower-cased name, got %q", rec.Name)
	}
	if rec.Value != "95.5" {
		t.Errorf("expected stringified value 95.5, got %q", rec.Value)
	}
	if rec.ReferenceRange == nil || *rec.ReferenceRange != "70-99" {
		t.Errorf("unexpected reference range: %v", rec.ReferenceRange)
	}
	if rec.Status == nil || *rec.Status != "Normal" {
		t.Errorf("unexpected status: %v", rec.Status)
	}
	if rec.Method != "regex" {
		t.Errorf("unexpected method %q", rec.Method)
	}
	if rec.Metadata["source_text"] != "Glucose: 95.5 mg/dL" {
		t.Errorf("unexpected metadata: %v", rec.Metadata)
	}
}

func TestRecordFromCandidate_NullableFields(t *testing.T) {
	rec, err := RecordFromCandidate(uuid.New(), extraction.Candidate{
		Name:     "hdl",
		Value:    45,
		Unit:     "mg/dL",
		Category: extraction.CategoryLipid,
		Method:   extraction.MethodPattern,
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != nil {
		t.Errorf("expected nil status for undetermined flag, got %v", *rec.Status)
	}
	if rec.ReferenceRange != nil {
		t.Errorf("expected nil reference range, got %v", *rec.ReferenceRange)
	}
	if rec.Value != "45" {
		t.Errorf("expected whole number without trailing zeros, got %q", rec.Value)
	}
}

func TestRecordFromCandidate_HardInvariants(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		c    extraction.Candidate
	}{
		{"empty name", extraction.Candidate{Name: "  ", Value: 1, Unit: "u"}},
		{"NaN value", extraction.Candidate{Name: "glucose", Value: math.NaN(), Unit: "u"}},
		{"infinite value", extraction.Candidate{Name: "glucose", Value: math.Inf(1), Unit: "u"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := RecordFromCandidate(uuid.New(), tc.c, now); err == nil {
				t.Error("expected hard invariant failure")
			}
		})
	}
}

func TestMethodMix(t *testing.T) {
	cases := []struct {
		name    string
		methods []string
		want    string
	}{
		{"empty", nil, "none"},
		{"single", []string{"regex", "regex"}, "regex"},
		{"mixed", []string{"regex", "llm"}, "hybrid"},
		{"all three", []string{"regex", "llm", "pattern"}, "hybrid"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var records []Biomarker
			for _, m := range tc.methods {
				records = append(records, Biomarker{Method: m})
			}
			if got := MethodMix(records); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestSummarizeRecords(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	status := "High"
	records := []Biomarker{
		{Name: "cholesterol", Value: "220", Unit: "mg/dL", Category: "lipid", Status: &status, TestDate: now},
	}

	payload := SummarizeRecords(records, now, []string{"one bad line"})

	items, ok := payload["biomarkers"].([]Summary)
	if !ok || len(items) != 1 {
		t.Fatalf("unexpected biomarkers payload: %v", payload["biomarkers"])
	}
	if items[0].Name != "cholesterol" || items[0].Value != "220" {
		t.Errorf("unexpected summary item: %+v", items[0])
	}
	if payload["extracted_at"] != "2025-06-01T00:00:00Z" {
		t.Errorf("unexpected extracted_at: %v", payload["extracted_at"])
	}
	if payload["parsing_errors"] == nil {
		t.Error("expected parsing errors to be carried")
	}

	clean := SummarizeRecords(nil, now, nil)
	if _, ok := clean["parsing_errors"]; ok {
		t.Error("expected no parsing_errors key for clean runs")
	}
}
