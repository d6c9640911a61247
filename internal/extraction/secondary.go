package extraction

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// PatternExtractor is a second, independently-configured pass over the raw
// text. Where the primary extractor anchors on known biomarker names, this
// one scans line by line with a generic "label separator value [unit] [flag]"
// grammar and an alias table, to catch layouts the primary patterns miss.
type PatternExtractor struct {
	logger zerolog.Logger
}

func NewPatternExtractor(logger zerolog.Logger) *PatternExtractor {
	return &PatternExtractor{logger: logger.With().Str("extractor", MethodPattern.String()).Logger()}
}

// lineRe: label, a : or - separator (required here, unlike the primary pass),
// value, optional unit token, optional trailing flag text.
var lineRe = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9 ./()-]{0,40}?)\s*[:\-]\s*(\d+(?:\.\d+)?)\s*([A-Za-zµ%][A-Za-zµ0-9./^]*)?\s*(.*)$`)

// aliases maps shorthand labels seen on printed reports to library keys.
var aliases = map[string]string{
	"glu":             "glucose",
	"fbs":             "glucose",
	"blood sugar":     "glucose",
	"sugar (fasting)": "glucose",
	"a1c":             "hba1c",
	"glycohemoglobin": "hba1c",
	"chol":            "cholesterol",
	"total chol":      "cholesterol",
	"tc":              "cholesterol",
	"hdl-c":           "hdl",
	"ldl-c":           "ldl",
	"tg":              "triglycerides",
	"trig":            "triglycerides",
	"s-tsh":           "tsh",
	"ultra tsh":       "tsh",
	"t4 free":         "free t4",
	"t3 free":         "free t3",
	"vit d":           "vitamin d",
	"vit d3":          "vitamin d",
	"25-oh d":         "vitamin d",
	"vit b12":         "vitamin b12",
	"b12":             "vitamin b12",
	"fe":              "iron",
	"serum fe":        "iron",
	"ca":              "calcium",
	"mg":              "magnesium",
	"na":              "sodium",
	"k":               "potassium",
	"hgb":             "hemoglobin",
	"hb":              "hemoglobin",
	"hct":             "hematocrit",
	"pcv":             "hematocrit",
	"plt":             "platelets",
	"sgpt":            "alt",
	"sgot":            "ast",
	"t bil":           "bilirubin",
	"creat":           "creatinine",
	"scr":             "creatinine",
	"urea n":          "bun",
	"tt":              "testosterone",
	"e2":              "estradiol",
}

// validation tri-state for a parsed line.
type lineValidation int

const (
	lineValid lineValidation = iota
	lineWarning
	lineInvalid
)

// Extract runs the secondary pass. Failures are isolated per line; the pass
// itself never fails the pipeline.
func (e *PatternExtractor) Extract(text, correlationID string) []Candidate {
	log := e.logger.With().Str("correlation_id", correlationID).Logger()

	var out []Candidate
	for _, line := range strings.Split(text, "\n") {
		c, ok := e.parseLine(log, line)
		if ok {
			out = append(out, c)
		}
	}
	return out
}

func (e *PatternExtractor) parseLine(log zerolog.Logger, line string) (Candidate, bool) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return Candidate{}, false
	}

	key := e.resolveLabel(m[1])
	if key == "" {
		return Candidate{}, false
	}
	entry, ok := LookupPattern(key)
	if !ok {
		return Candidate{}, false
	}

	value, err := strconv.ParseFloat(m[2], 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		log.Debug().Str("biomarker", key).Str("raw", m[2]).Msg("discarding unparseable line value")
		return Candidate{}, false
	}

	confidence := 0.8
	unit := m[3]
	if unit == "" {
		unit = entry.DefaultUnit
	} else {
		confidence += 0.1
	}

	validation := e.validateLine(key, value, m[4])

	return Candidate{
		Name:       key,
		Value:      value,
		Unit:       unit,
		Category:   entry.Category,
		Status:     validation.status(),
		Method:     MethodPattern,
		Confidence: confidence,
		SourceText: strings.TrimSpace(line),
	}, true
}

// resolveLabel maps a printed label to a library key via the alias table,
// falling back to a direct key match.
func (e *PatternExtractor) resolveLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.TrimSuffix(label, ".")
	if key, ok := aliases[label]; ok {
		return key
	}
	if _, ok := LookupPattern(label); ok {
		return label
	}
	return ""
}

// validateLine derives the tri-state from the trailing flag text when one is
// printed, otherwise from the plausibility band.
func (e *PatternExtractor) validateLine(key string, value float64, trailing string) lineValidation {
	t := strings.ToLower(trailing)
	switch {
	case strings.Contains(t, "high") || strings.HasPrefix(t, "h ") || t == "h" || strings.Contains(t, "*h"):
		return lineWarning
	case strings.Contains(t, "low") || strings.HasPrefix(t, "l ") || t == "l" || strings.Contains(t, "*l"):
		return lineInvalid
	}
	if band, ok := SanityBands[key]; ok {
		if value > band.Max {
			return lineWarning
		}
		if value < band.Min {
			return lineInvalid
		}
	}
	return lineValid
}

// status maps the tri-state onto the candidate status the rest of the
// pipeline understands: valid reads as Normal, warning as High, invalid as
// Low.
func (v lineValidation) status() Status {
	switch v {
	case lineWarning:
		return StatusHigh
	case lineInvalid:
		return StatusLow
	}
	return StatusNormal
}
