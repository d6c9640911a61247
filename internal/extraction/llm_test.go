package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func fixedResponse(payload string) ExtractFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		return payload, nil
	}
}

func llmExtract(t *testing.T, call ExtractFunc, seed []Candidate) []Candidate {
	t.Helper()
	e := NewLLMExtractor(call, time.Second, zerolog.Nop())
	return e.Extract(context.Background(), "some report text", seed, "test")
}

func TestLLMExtractor_ValidPayload(t *testing.T) {
	payload := `[
		{"name": "Vitamin D", "value": 28, "unit": "ng/mL", "category": "vitamin",
		 "referenceRange": "30-100", "testDate": "2025-03-15", "status": "Low", "confidence": 0.92}
	]`

	out := llmExtract(t, fixedResponse(payload), nil)
	if len(out) != 1 {
		t.Fatalf("expected one candidate, got %d", len(out))
	}
	c := out[0]
	if c.Name != "Vitamin D" || c.Value != 28 || c.Unit != "ng/mL" {
		t.Errorf("unexpected candidate: %+v", c)
	}
	if c.Category != CategoryVitamin || c.Status != StatusLow {
		t.Errorf("unexpected category/status: %+v", c)
	}
	if c.Confidence != 0.92 {
		t.Errorf("expected model-reported confidence, got %v", c.Confidence)
	}
	if c.TestDate.Format("2006-01-02") != "2025-03-15" {
		t.Errorf("unexpected test date: %v", c.TestDate)
	}
	if c.Method != MethodLLM {
		t.Errorf("expected llm method, got %v", c.Method)
	}
}

func TestLLMExtractor_MarkdownFences(t *testing.T) {
	payload := "```json\n[{\"name\": \"tsh\", \"value\": 2.3, \"unit\": \"mIU/L\", \"category\": \"thyroid\"}]\n```"

	out := llmExtract(t, fixedResponse(payload), nil)
	if len(out) != 1 || out[0].Name != "tsh" {
		t.Fatalf("expected fenced payload to parse, got %+v", out)
	}
	if out[0].Confidence != 0.95 {
		t.Errorf("expected default confidence 0.95, got %v", out[0].Confidence)
	}
}

func TestLLMExtractor_StringValue(t *testing.T) {
	payload := `[{"name": "glucose", "value": "95.5", "unit": "mg/dL", "category": "metabolic"}]`

	out := llmExtract(t, fixedResponse(payload), nil)
	if len(out) != 1 || out[0].Value != 95.5 {
		t.Fatalf("expected numeric string to coerce, got %+v", out)
	}
}

func TestLLMExtractor_DropsInvalidItems(t *testing.T) {
	payload := `[
		{"name": "", "value": 5, "unit": "u", "category": "other"},
		{"name": "bad bounds", "value": 99999, "unit": "u", "category": "other"},
		{"name": "no unit", "value": 5, "unit": "", "category": "other"},
		{"name": "no category", "value": 5, "unit": "u", "category": ""},
		{"name": "keeper", "value": 5, "unit": "u", "category": "other"}
	]`

	out := llmExtract(t, fixedResponse(payload), nil)
	if len(out) != 1 || out[0].Name != "keeper" {
		t.Fatalf("expected only the valid item to survive, got %+v", out)
	}
}

func TestLLMExtractor_NormalizesUnknownCategory(t *testing.T) {
	payload := `[{"name": "glucose", "value": 95, "unit": "mg/dL", "category": "Lipids"}]`

	out := llmExtract(t, fixedResponse(payload), nil)
	if len(out) != 1 {
		t.Fatalf("expected one candidate, got %d", len(out))
	}
	if out[0].Category != CategoryOther {
		t.Errorf("expected normalization to other, got %q", out[0].Category)
	}
}

func TestLLMExtractor_BadDateDefaultsToNow(t *testing.T) {
	payload := `[{"name": "glucose", "value": 95, "unit": "mg/dL", "category": "metabolic", "testDate": "sometime last week"}]`

	before := time.Now()
	out := llmExtract(t, fixedResponse(payload), nil)
	if len(out) != 1 {
		t.Fatalf("expected one candidate, got %d", len(out))
	}
	if out[0].TestDate.Before(before.Add(-time.Minute)) {
		t.Errorf("expected test date to default near now, got %v", out[0].TestDate)
	}
}

func TestLLMExtractor_CallFailureDegrades(t *testing.T) {
	call := func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("upstream unavailable")
	}
	if out := llmExtract(t, call, nil); out != nil {
		t.Errorf("expected empty result on failure, got %+v", out)
	}
}

func TestLLMExtractor_MalformedPayloadDegrades(t *testing.T) {
	if out := llmExtract(t, fixedResponse("I could not find any biomarkers."), nil); out != nil {
		t.Errorf("expected empty result on malformed payload, got %+v", out)
	}
}

func TestLLMExtractor_TimeoutDegrades(t *testing.T) {
	call := func(ctx context.Context, prompt string) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return "[]", nil
		}
	}

	e := NewLLMExtractor(call, 10*time.Millisecond, zerolog.Nop())
	start := time.Now()
	out := e.Extract(context.Background(), "text", nil, "test")
	if out != nil {
		t.Errorf("expected empty result on timeout, got %+v", out)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout was not enforced")
	}
}

func TestLLMExtractor_NilCall(t *testing.T) {
	e := NewLLMExtractor(nil, time.Second, zerolog.Nop())
	if out := e.Extract(context.Background(), "text", nil, "test"); out != nil {
		t.Errorf("expected nil without a configured call, got %+v", out)
	}
}

func TestBuildPrompt_SeedsFindings(t *testing.T) {
	seed := []Candidate{
		{Name: "glucose", Value: 95, Unit: "mg/dL", Category: CategoryMetabolic},
		{Name: "tsh", Value: 2.1, Unit: "mIU/L", Category: CategoryThyroid},
	}

	var captured string
	call := func(ctx context.Context, prompt string) (string, error) {
		captured = prompt
		return "[]", nil
	}
	llmExtract(t, call, seed)

	for _, want := range []string{"glucose = 95 mg/dL", "tsh = 2.1 mIU/L", "lipid", "vitamin"} {
		if !strings.Contains(captured, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.Contains(captured, "some report text") {
		t.Error("prompt missing report text")
	}
}
