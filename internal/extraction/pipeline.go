package extraction

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Pipeline runs the full multi-pass extraction: regex, model-assisted (seeded
// by the regex output), secondary pattern pass, reconciliation, then
// validation and standardization. It is pure with respect to storage and is
// safe to call for previews.
type Pipeline struct {
	regex     *RegexExtractor
	llm       *LLMExtractor
	secondary *PatternExtractor
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPipeline wires the three extractors. call may be nil, in which case the
// model-assisted stage is skipped entirely (the pipeline degrades the same
// way it does on a model failure).
func NewPipeline(logger zerolog.Logger, call ExtractFunc, llmTimeout time.Duration) *Pipeline {
	return &Pipeline{
		regex:     NewRegexExtractor(logger),
		llm:       NewLLMExtractor(call, llmTimeout, logger),
		secondary: NewPatternExtractor(logger),
		logger:    logger,
		now:       time.Now,
	}
}

// ExtractBiomarkers is the pure extraction entry point. It never returns an
// error: data-quality problems end up in Result.ParsingErrors, and a clean
// run over text with no biomarkers is a legitimate empty result.
func (p *Pipeline) ExtractBiomarkers(ctx context.Context, text string) Result {
	correlationID := uuid.New().String()
	log := p.logger.With().Str("correlation_id", correlationID).Logger()

	if strings.TrimSpace(text) == "" {
		return Result{ParsingErrors: []string{"document text is empty"}}
	}

	regexCands := p.regex.Extract(text, correlationID)
	llmCands := p.llm.Extract(ctx, text, regexCands, correlationID)
	patternCands := p.secondary.Extract(text, correlationID)

	merged := Reconcile(patternCands, regexCands, llmCands)

	result := Result{
		RegexCount:   len(regexCands),
		LLMCount:     len(llmCands),
		PatternCount: len(patternCands),
	}

	// Standardization pass. Every extractor validated its own output, so
	// this mostly normalizes numeric types and dates; anything that still
	// fails is collected, never thrown.
	for _, c := range merged {
		if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
			result.ParsingErrors = append(result.ParsingErrors,
				fmt.Sprintf("%s: non-finite value", c.Key()))
			continue
		}
		if !c.Storable() {
			result.ParsingErrors = append(result.ParsingErrors,
				fmt.Sprintf("%s: failed validation (unit=%q category=%q)", c.Key(), c.Unit, c.Category))
			continue
		}
		if c.TestDate.IsZero() {
			c.TestDate = p.now()
		}
		result.ParsedBiomarkers = append(result.ParsedBiomarkers, c)
	}

	if len(result.ParsedBiomarkers) == 0 && len(result.ParsingErrors) == 0 {
		result.ParsingErrors = append(result.ParsingErrors, "no biomarkers found in document text")
	}

	log.Info().
		Int("regex", result.RegexCount).
		Int("llm", result.LLMCount).
		Int("pattern", result.PatternCount).
		Int("parsed", len(result.ParsedBiomarkers)).
		Int("errors", len(result.ParsingErrors)).
		Msg("extraction complete")

	return result
}
