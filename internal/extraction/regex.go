package extraction

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const regexConfidence = 0.9

// RegexExtractor applies the pattern library to preprocessed text. A single
// pattern's failure is logged and skipped; it never aborts the scan of the
// remaining patterns.
type RegexExtractor struct {
	patterns []Pattern
	ranges   *RangeDetector
	logger   zerolog.Logger
}

func NewRegexExtractor(logger zerolog.Logger) *RegexExtractor {
	return &RegexExtractor{
		patterns: Patterns,
		ranges:   NewRangeDetector(),
		logger:   logger.With().Str("extractor", MethodRegex.String()).Logger(),
	}
}

// SetRangeDetector swaps the reference-range rejection strategy.
func (e *RegexExtractor) SetRangeDetector(d *RangeDetector) { e.ranges = d }

// statusIsRangeProse catches a Normal/High/Low capture that is actually the
// start of a reference phrase, e.g. the "Normal" in "(Normal range: 70-99)".
var statusIsRangeProse = regexp.MustCompile(`(?i)^\s*(?:range|limits?|values?|interval)`)

// Extract scans the full document text and returns validated candidates with
// method regex and fixed confidence 0.9.
func (e *RegexExtractor) Extract(text, correlationID string) []Candidate {
	log := e.logger.With().Str("correlation_id", correlationID).Logger()
	text = Preprocess(text)

	var out []Candidate
	for _, p := range e.patterns {
		matches := p.re.FindAllStringSubmatchIndex(text, -1)
		for _, m := range matches {
			c, ok := e.candidateFromMatch(log, p, text, m)
			if ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// Submatch layout: 1 = value, 2 = unit (optional), 3 = status (optional).
func (e *RegexExtractor) candidateFromMatch(log zerolog.Logger, p Pattern, text string, m []int) (Candidate, bool) {
	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return text[m[2*i]:m[2*i+1]]
	}

	if e.excludedPrefix(p, text, m[0]) {
		return Candidate{}, false
	}

	raw := group(1)
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		log.Debug().Str("biomarker", p.Key).Str("raw", raw).Msg("discarding non-finite value")
		return Candidate{}, false
	}

	valStart, valEnd := m[2], m[3]
	if e.ranges.IsRangeBoundary(text, valStart, valEnd, p.Key, value) {
		log.Debug().Str("biomarker", p.Key).Float64("value", value).Msg("rejected reference-range boundary")
		return Candidate{}, false
	}

	unit := group(2)
	if unit == "" {
		unit = p.DefaultUnit
	}

	status := ParseStatus(group(3))
	if status != StatusUnknown && m[6] >= 0 && statusIsRangeProse.MatchString(text[m[7]:min(m[7]+12, len(text))]) {
		status = StatusUnknown
	}

	if band, ok := SanityBands[p.Key]; ok && (value < band.Min || value > band.Max) {
		// Recall over precision: abnormal values are accepted, only logged.
		log.Warn().Str("biomarker", p.Key).Float64("value", value).
			Float64("band_min", band.Min).Float64("band_max", band.Max).
			Msg("value outside plausibility band")
	}

	return Candidate{
		Name:       p.Key,
		Value:      value,
		Unit:       unit,
		Category:   p.Category,
		Status:     status,
		Method:     MethodRegex,
		Confidence: regexConfidence,
		SourceText: strings.TrimSpace(text[m[0]:m[1]]),
	}, true
}

// excludedPrefix rejects a match whose name is really the tail of a longer
// biomarker name, e.g. the "Cholesterol" inside "HDL Cholesterol".
func (e *RegexExtractor) excludedPrefix(p Pattern, text string, start int) bool {
	if len(p.excludeBefore) == 0 {
		return false
	}
	lo := start - 12
	if lo < 0 {
		lo = 0
	}
	before := strings.ToLower(text[lo:start])
	for _, ex := range p.excludeBefore {
		if strings.Contains(before, ex) {
			return true
		}
	}
	return false
}
