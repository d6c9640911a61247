package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const llmDefaultConfidence = 0.95

// ExtractFunc is the contract with the external text-understanding model:
// prompt in, raw JSON text out. Implementations are expected to enforce a
// JSON-only response; this package still tolerates markdown fences and
// malformed payloads by degrading to an empty result.
type ExtractFunc func(ctx context.Context, prompt string) (string, error)

// llmItem is the fixed output shape required from the model.
type llmItem struct {
	Name           string     `json:"name"`
	Value          flexNumber `json:"value"`
	Unit           string     `json:"unit"`
	Category       string     `json:"category"`
	ReferenceRange string     `json:"referenceRange,omitempty"`
	TestDate       string     `json:"testDate,omitempty"`
	Status         string     `json:"status,omitempty"`
	Confidence     *float64   `json:"confidence,omitempty"`
}

// flexNumber accepts a JSON number or a numeric string.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("numeric value expected, got %s", string(data))
	}
	*f = flexNumber(v)
	return nil
}

// LLMExtractor invokes the external model with a prompt seeded by what the
// regex pass already found, so the model focuses on gaps. The stage is
// best-effort: call failures, timeouts, and unparseable payloads all yield an
// empty list and never fail the pipeline.
type LLMExtractor struct {
	call    ExtractFunc
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

func NewLLMExtractor(call ExtractFunc, timeout time.Duration, logger zerolog.Logger) *LLMExtractor {
	return &LLMExtractor{
		call:    call,
		timeout: timeout,
		logger:  logger.With().Str("extractor", MethodLLM.String()).Logger(),
		now:     time.Now,
	}
}

// Extract asks the model for biomarkers the regex pass did not cover.
func (e *LLMExtractor) Extract(ctx context.Context, text string, seed []Candidate, correlationID string) []Candidate {
	log := e.logger.With().Str("correlation_id", correlationID).Logger()
	if e.call == nil {
		return nil
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	raw, err := e.call(ctx, buildPrompt(text, seed))
	if err != nil {
		log.Warn().Err(err).Msg("model call failed, continuing without llm candidates")
		return nil
	}

	var items []llmItem
	if err := json.Unmarshal([]byte(stripFences(raw)), &items); err != nil {
		log.Warn().Err(err).Msg("unparseable model payload, continuing without llm candidates")
		return nil
	}

	var out []Candidate
	for _, it := range items {
		c, ok := e.validate(log, it)
		if ok {
			out = append(out, c)
		}
	}
	return out
}

// validate re-checks every returned item against the same closed category set
// and numeric bounds used elsewhere. Failing items are dropped with a logged
// reason; the batch continues.
func (e *LLMExtractor) validate(log zerolog.Logger, it llmItem) (Candidate, bool) {
	name := strings.TrimSpace(it.Name)
	value := float64(it.Value)

	switch {
	case name == "":
		log.Debug().Msg("dropping item with empty name")
		return Candidate{}, false
	case math.IsNaN(value) || math.IsInf(value, 0):
		log.Debug().Str("name", name).Msg("dropping item with non-finite value")
		return Candidate{}, false
	case value < 0 || value > 10000:
		log.Debug().Str("name", name).Float64("value", value).Msg("dropping item outside gross bounds")
		return Candidate{}, false
	case strings.TrimSpace(it.Unit) == "":
		log.Debug().Str("name", name).Msg("dropping item without unit")
		return Candidate{}, false
	case strings.TrimSpace(it.Category) == "":
		log.Debug().Str("name", name).Msg("dropping item without category")
		return Candidate{}, false
	}

	category, known := ParseCategory(it.Category)
	if !known {
		log.Warn().Str("name", name).Str("category", it.Category).Msg("unrecognized category, normalizing to other")
	}

	testDate := e.now()
	if it.TestDate != "" {
		parsed, err := parseTestDate(it.TestDate)
		if err != nil {
			log.Warn().Str("name", name).Str("test_date", it.TestDate).Msg("unparseable test date, defaulting to now")
		} else {
			testDate = parsed
		}
	}

	confidence := llmDefaultConfidence
	if it.Confidence != nil && *it.Confidence > 0 && *it.Confidence <= 1 {
		confidence = *it.Confidence
	}

	return Candidate{
		Name:           name,
		Value:          value,
		Unit:           strings.TrimSpace(it.Unit),
		Category:       category,
		ReferenceRange: strings.TrimSpace(it.ReferenceRange),
		TestDate:       testDate,
		Status:         ParseStatus(it.Status),
		Method:         MethodLLM,
		Confidence:     confidence,
	}, true
}

var testDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
}

func parseTestDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range testDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}

// stripFences removes a surrounding ```json ... ``` block when the model
// ignores the JSON-only instruction.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

func buildPrompt(text string, seed []Candidate) string {
	var b strings.Builder

	b.WriteString(`You are a clinical lab report parser. Extract biomarker results from the report text below.

Return ONLY a JSON array (no prose, no markdown) of objects with this exact shape:
  {"name": string, "value": number, "unit": string, "category": string,
   "referenceRange": string (optional), "testDate": "YYYY-MM-DD" (optional),
   "status": "High"|"Low"|"Normal" (optional), "confidence": number 0-1 (optional)}

Rules:
- "category" must be one of: lipid, metabolic, thyroid, vitamin, mineral, blood, liver, kidney, hormone, other.
- "value" must be the patient's actual measured result. NEVER report a reference-range boundary (the numbers printed as "normal range", "reference", or "70-99") as a value.
- "unit" is mandatory. If the report does not print one, use the clinically standard unit for that analyte.
- Put the printed normal/reference interval, if any, in "referenceRange" as free text.
`)

	if len(seed) > 0 {
		covered := map[Category]bool{}
		b.WriteString("\nAlready extracted (do not repeat these):\n")
		for _, c := range seed {
			fmt.Fprintf(&b, "- %s = %g %s\n", c.Key(), c.Value, c.Unit)
			covered[c.Category] = true
		}
		var missing []string
		for cat := range validCategories {
			if cat != CategoryOther && !covered[cat] {
				missing = append(missing, string(cat))
			}
		}
		sort.Strings(missing)
		if len(missing) > 0 {
			fmt.Fprintf(&b, "\nFocus on biomarkers in categories not yet covered: %s.\n", strings.Join(missing, ", "))
		}
	}

	b.WriteString("\nReport text:\n\"\"\"\n")
	b.WriteString(text)
	b.WriteString("\n\"\"\"\n")
	return b.String()
}
