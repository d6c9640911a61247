package extraction

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// RangeDetector decides whether a matched value is really a reference-range
// boundary printed alongside the result rather than the result itself. It is
// a replaceable strategy: thresholds and the boundary table are plain fields
// so they can be tuned without touching extractor control flow.
//
// Two tiers:
//
//	(a) the surrounding text carries an explicit range-indicator phrase AND
//	    the value sits on (or within Epsilon of) an endpoint of a nearby
//	    numeric range such as "70-99", "70 to 99", or "between 70 and 99";
//	(b) the value equals a known textbook cutoff for that biomarker AND the
//	    surrounding text contains at least two generic reference-context
//	    words.
//
// Tier (b) keeps borderline but genuine patient results (a real result can
// be abnormal) while still suppressing the classic failure of a regex
// capturing "99" out of "normal range: 70-99". A real result that happens to
// land exactly on a cutoff inside reference-flavored prose is a known,
// accepted false negative of this heuristic.
type RangeDetector struct {
	// Epsilon is the near-equality tolerance for endpoint comparison.
	Epsilon float64
	// Window is how many characters of context on each side of a match are
	// inspected.
	Window int
	// Boundaries is the curated table of common textbook cutoffs per
	// biomarker key.
	Boundaries map[string][]float64
	// MinContextWords is how many generic reference words tier (b) needs.
	MinContextWords int
}

var (
	rangePhraseRe = regexp.MustCompile(`(?i)normal\s+range|reference\s*(?:range|interval)?\s*:|ref\.?\s*:|expected\s*:|desirable|between\s+\d`)

	// Numeric range forms: "70-99", "70 – 99", "70 to 99", "between 70 and 99".
	numericRangeRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:[-–—]|to|and)\s*(\d+(?:\.\d+)?)`)

	contextWordRe = regexp.MustCompile(`(?i)\b(normal|reference|range|expected|typical|standard|limits?|baseline|target|optimal)\b`)
)

// DefaultBoundaries lists the reference cutoffs most commonly printed in lab
// reports, per biomarker key.
var DefaultBoundaries = map[string][]float64{
	"glucose":       {70, 99, 100, 125, 126},
	"hba1c":         {4, 5.6, 5.7, 6.4, 6.5},
	"cholesterol":   {125, 200, 239, 240},
	"hdl":           {40, 60},
	"ldl":           {100, 129, 130, 159, 160, 190},
	"triglycerides": {150, 199, 200, 499, 500},
	"tsh":           {0.4, 0.45, 4.0, 4.5, 5.0},
	"free t4":       {0.8, 1.8},
	"vitamin d":     {20, 30, 50, 100},
	"vitamin b12":   {200, 300, 900},
	"ferritin":      {12, 150, 300},
	"creatinine":    {0.6, 0.7, 1.2, 1.3},
	"bun":           {7, 20},
	"alt":           {7, 40, 55, 56},
	"ast":           {8, 40, 48},
	"hemoglobin":    {12, 13.5, 15.5, 17.5},
	"hematocrit":    {36, 41, 48, 50},
	"calcium":       {8.5, 10.2, 10.5},
	"potassium":     {3.5, 5.0, 5.1},
	"sodium":        {135, 145},
}

// NewRangeDetector returns a detector with the production defaults.
func NewRangeDetector() *RangeDetector {
	return &RangeDetector{
		Epsilon:         0.01,
		Window:          80,
		Boundaries:      DefaultBoundaries,
		MinContextWords: 2,
	}
}

// IsRangeBoundary reports whether the value matched at [start,end) in text
// should be discarded as a reference-range boundary for the given biomarker
// key.
func (d *RangeDetector) IsRangeBoundary(text string, start, end int, key string, value float64) bool {
	ctx := d.context(text, start, end)

	if rangePhraseRe.MatchString(ctx) && d.nearRangeEndpoint(ctx, value) {
		return true
	}

	if d.isKnownBoundary(key, value) && d.countContextWords(ctx) >= d.MinContextWords {
		return true
	}

	return false
}

func (d *RangeDetector) context(text string, start, end int) string {
	lo := start - d.Window
	if lo < 0 {
		lo = 0
	}
	hi := end + d.Window
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

func (d *RangeDetector) nearRangeEndpoint(ctx string, value float64) bool {
	for _, m := range numericRangeRe.FindAllStringSubmatch(ctx, -1) {
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		// Require an ascending pair so "taken 12 and 45 minutes apart" style
		// prose is less likely to count as a range.
		if hi <= lo {
			continue
		}
		if math.Abs(value-lo) <= d.Epsilon || math.Abs(value-hi) <= d.Epsilon {
			return true
		}
	}
	return false
}

func (d *RangeDetector) isKnownBoundary(key string, value float64) bool {
	for _, b := range d.Boundaries[strings.ToLower(key)] {
		if math.Abs(value-b) <= d.Epsilon {
			return true
		}
	}
	return false
}

func (d *RangeDetector) countContextWords(ctx string) int {
	seen := map[string]bool{}
	for _, m := range contextWordRe.FindAllStringSubmatch(ctx, -1) {
		seen[strings.ToLower(m[1])] = true
	}
	return len(seen)
}
