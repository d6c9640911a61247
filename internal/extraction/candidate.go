package extraction

import (
	"math"
	"strings"
	"time"
)

// Method identifies which extractor produced a candidate.
type Method int

const (
	MethodRegex Method = iota
	MethodLLM
	MethodPattern
)

func (m Method) String() string {
	switch m {
	case MethodRegex:
		return "regex"
	case MethodLLM:
		return "llm"
	case MethodPattern:
		return "pattern"
	}
	return "unknown"
}

// Category is the closed medical category set for biomarkers.
type Category string

const (
	CategoryLipid     Category = "lipid"
	CategoryMetabolic Category = "metabolic"
	CategoryThyroid   Category = "thyroid"
	CategoryVitamin   Category = "vitamin"
	CategoryMineral   Category = "mineral"
	CategoryBlood     Category = "blood"
	CategoryLiver     Category = "liver"
	CategoryKidney    Category = "kidney"
	CategoryHormone   Category = "hormone"
	CategoryOther     Category = "other"
)

var validCategories = map[Category]bool{
	CategoryLipid: true, CategoryMetabolic: true, CategoryThyroid: true,
	CategoryVitamin: true, CategoryMineral: true, CategoryBlood: true,
	CategoryLiver: true, CategoryKidney: true, CategoryHormone: true,
	CategoryOther: true,
}

// ParseCategory maps an input string onto the closed category set. Anything
// not an exact member normalizes to CategoryOther; the second return reports
// whether the input was recognized so callers can log a warning.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if validCategories[c] {
		return c, true
	}
	return CategoryOther, false
}

// Status is the explicit result flag printed in the source document.
type Status string

const (
	StatusHigh   Status = "High"
	StatusLow    Status = "Low"
	StatusNormal Status = "Normal"
	// StatusUnknown means no explicit marker was found.
	StatusUnknown Status = ""
)

// ParseStatus normalizes High/Low/Normal markers, including the single-letter
// forms common in printed reports. Anything else is StatusUnknown.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "h":
		return StatusHigh
	case "low", "l":
		return StatusLow
	case "normal", "n":
		return StatusNormal
	}
	return StatusUnknown
}

// Candidate is one extractor-produced biomarker observation awaiting
// reconciliation and validation.
type Candidate struct {
	Name           string
	Value          float64
	Unit           string
	Category       Category
	ReferenceRange string
	TestDate       time.Time
	Status         Status
	Method         Method
	Confidence     float64
	SourceText     string
}

// Key returns the lower-cased merge key for the candidate.
func (c Candidate) Key() string {
	return strings.ToLower(strings.TrimSpace(c.Name))
}

// Storable reports whether the candidate satisfies the minimum persistence
// invariant: non-empty name, finite value, known category, non-empty unit.
func (c Candidate) Storable() bool {
	if strings.TrimSpace(c.Name) == "" || c.Unit == "" {
		return false
	}
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return false
	}
	return validCategories[c.Category]
}

// Result is the pipeline's public output. It is always returned; data-quality
// problems are collected into ParsingErrors instead of failing the call.
type Result struct {
	ParsedBiomarkers []Candidate `json:"parsedBiomarkers"`
	ParsingErrors    []string    `json:"parsingErrors"`

	// Per-stage counts, kept for processing-status bookkeeping only.
	RegexCount   int `json:"-"`
	LLMCount     int `json:"-"`
	PatternCount int `json:"-"`
}
