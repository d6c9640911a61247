package extraction

import (
	"fmt"
	"regexp"
)

// Pattern is one entry in the biomarker pattern library: a text-matching rule
// paired with a medical category and a default unit. The library is pure
// configuration; adding a biomarker means adding one entry.
type Pattern struct {
	Key         string
	Category    Category
	DefaultUnit string

	re *regexp.Regexp
	// excludeBefore lists name fragments that, when found immediately before
	// the match, disqualify it (e.g. "HDL Cholesterol" must not also count
	// as total cholesterol).
	excludeBefore []string
}

// SanityBand is a wide numeric plausibility band per biomarker. Values
// outside the band are logged but never rejected.
type SanityBand struct {
	Min, Max float64
}

const (
	valueExpr  = `(\d+(?:\.\d+)?)`
	statusExpr = `(?:\s*\(?\b(High|Low|Normal|H|L|N)\b\)?)?`
)

func newPattern(key string, cat Category, defaultUnit, names, units string, exclude ...string) Pattern {
	expr := fmt.Sprintf(`(?i)\b(?:%s)\s*[:\-]?\s*%s\s*(%s)?%s`, names, valueExpr, units, statusExpr)
	return Pattern{
		Key:           key,
		Category:      cat,
		DefaultUnit:   defaultUnit,
		re:            regexp.MustCompile(expr),
		excludeBefore: exclude,
	}
}

// Unit alternations. Ordered longest-first so the regex engine prefers the
// full unit over a prefix.
const (
	unitsConc    = `mg/dL|mmol/L|g/dL|g/L`
	unitsTrace   = `ng/mL|pg/mL|nmol/L|pmol/L|ng/dL|mcg/dL|µg/dL|ug/dL|µg/L`
	unitsThyroid = `µIU/mL|uIU/mL|mIU/L|mIU/mL`
	unitsEnzyme  = `IU/L|U/L`
	unitsElec    = `mEq/L|mmol/L`
	unitsCount   = `K/µL|K/uL|10\^3/µL|thousand/µL|lakh/mm3|million/µL|M/µL|cells/mcL`
	unitsPct     = `%|percent`
)

// Patterns is the biomarker pattern library. Matchers tolerate OCR artifacts
// (missing spaces are repaired by Preprocess before matching), alternate unit
// systems, and inline High/Low/Normal or H/L/N markers.
var Patterns = []Pattern{
	newPattern("glucose", CategoryMetabolic, "mg/dL", `(?:fasting\s+)?(?:blood\s+)?glucose|fbs|fasting\s+sugar`, unitsConc),
	newPattern("hba1c", CategoryMetabolic, "%", `hba1c|hb\s*a1c|hemoglobin\s+a1c|glycated\s+hemoglobin`, unitsPct),
	newPattern("insulin", CategoryMetabolic, "µIU/mL", `(?:fasting\s+)?insulin`, unitsThyroid),
	newPattern("cholesterol", CategoryLipid, "mg/dL", `(?:total\s+)?cholesterol`, unitsConc, "hdl", "ldl", "vldl", "non-hdl", "non hdl"),
	newPattern("hdl", CategoryLipid, "mg/dL", `hdl(?:\s+cholesterol|-c)?`, unitsConc),
	newPattern("ldl", CategoryLipid, "mg/dL", `ldl(?:\s+cholesterol|-c)?`, unitsConc, "vldl"),
	newPattern("triglycerides", CategoryLipid, "mg/dL", `triglycerides?|trigs?\b`, unitsConc),
	newPattern("tsh", CategoryThyroid, "mIU/L", `tsh|thyroid\s+stimulating\s+hormone|thyrotropin`, unitsThyroid),
	newPattern("free t4", CategoryThyroid, "ng/dL", `free\s*t4|ft4|free\s+thyroxine`, unitsTrace),
	newPattern("free t3", CategoryThyroid, "pg/mL", `free\s*t3|ft3|free\s+triiodothyronine`, unitsTrace),
	newPattern("vitamin d", CategoryVitamin, "ng/mL", `vitamin\s*d3?|25-?oh\s*(?:vitamin\s*)?d|25-?hydroxyvitamin\s*d`, unitsTrace),
	newPattern("vitamin b12", CategoryVitamin, "pg/mL", `vitamin\s*b-?12|b-?12|cobalamin`, unitsTrace),
	newPattern("folate", CategoryVitamin, "ng/mL", `folate|folic\s+acid`, unitsTrace),
	newPattern("iron", CategoryMineral, "mcg/dL", `(?:serum\s+)?iron`, unitsTrace),
	newPattern("ferritin", CategoryMineral, "ng/mL", `ferritin`, unitsTrace),
	newPattern("calcium", CategoryMineral, "mg/dL", `(?:serum\s+)?calcium`, unitsConc),
	newPattern("magnesium", CategoryMineral, "mg/dL", `magnesium`, unitsConc),
	newPattern("zinc", CategoryMineral, "mcg/dL", `zinc`, unitsTrace),
	newPattern("sodium", CategoryMineral, "mEq/L", `sodium|na\+`, unitsElec),
	newPattern("potassium", CategoryMineral, "mEq/L", `potassium|k\+`, unitsElec),
	newPattern("hemoglobin", CategoryBlood, "g/dL", `hemoglobin|haemoglobin|hgb|hb\b`, unitsConc),
	newPattern("hematocrit", CategoryBlood, "%", `hematocrit|haematocrit|hct`, unitsPct),
	newPattern("wbc", CategoryBlood, "K/µL", `wbc|white\s+blood\s+cells?|leukocytes?`, unitsCount),
	newPattern("platelets", CategoryBlood, "K/µL", `platelets?|plt\b`, unitsCount),
	newPattern("alt", CategoryLiver, "U/L", `alt\b|sgpt|alanine\s+(?:amino)?transferase`, unitsEnzyme),
	newPattern("ast", CategoryLiver, "U/L", `ast\b|sgot|aspartate\s+(?:amino)?transferase`, unitsEnzyme),
	newPattern("bilirubin", CategoryLiver, "mg/dL", `(?:total\s+)?bilirubin`, unitsConc, "direct", "indirect"),
	newPattern("albumin", CategoryLiver, "g/dL", `(?:serum\s+)?albumin`, unitsConc),
	newPattern("creatinine", CategoryKidney, "mg/dL", `(?:serum\s+)?creatinine`, unitsConc),
	newPattern("bun", CategoryKidney, "mg/dL", `bun\b|blood\s+urea\s+nitrogen|urea\s+nitrogen`, unitsConc),
	newPattern("egfr", CategoryKidney, "mL/min/1.73m2", `egfr|estimated\s+gfr`, `mL/min(?:/1\.73\s*m2?)?`),
	newPattern("testosterone", CategoryHormone, "ng/dL", `(?:total\s+)?testosterone`, unitsTrace, "free"),
	newPattern("estradiol", CategoryHormone, "pg/mL", `estradiol|oestradiol|e2\b`, unitsTrace),
	newPattern("cortisol", CategoryHormone, "mcg/dL", `cortisol`, unitsTrace),
}

// SanityBands are deliberately wide. The pipeline favors recall: a wildly
// abnormal value might still be the true result, so breaches are logged and
// accepted.
var SanityBands = map[string]SanityBand{
	"glucose":       {20, 600},
	"hba1c":         {2, 20},
	"insulin":       {0.1, 300},
	"cholesterol":   {50, 500},
	"hdl":           {5, 150},
	"ldl":           {10, 400},
	"triglycerides": {10, 2000},
	"tsh":           {0.01, 100},
	"free t4":       {0.1, 10},
	"free t3":       {0.5, 20},
	"vitamin d":     {1, 200},
	"vitamin b12":   {50, 3000},
	"folate":        {0.5, 50},
	"iron":          {10, 500},
	"ferritin":      {1, 2000},
	"calcium":       {4, 16},
	"magnesium":     {0.5, 5},
	"zinc":          {20, 300},
	"sodium":        {110, 170},
	"potassium":     {1.5, 9},
	"hemoglobin":    {3, 25},
	"hematocrit":    {10, 70},
	"wbc":           {0.5, 100},
	"platelets":     {10, 1500},
	"alt":           {1, 2000},
	"ast":           {1, 2000},
	"bilirubin":     {0.1, 30},
	"albumin":       {1, 7},
	"creatinine":    {0.1, 20},
	"bun":           {2, 150},
	"egfr":          {5, 150},
	"testosterone":  {10, 2000},
	"estradiol":     {1, 1000},
	"cortisol":      {0.5, 60},
}

// patternIndex resolves a library key to its entry; the secondary extractor
// uses it to inherit category and default unit from the library.
var patternIndex = func() map[string]*Pattern {
	idx := make(map[string]*Pattern, len(Patterns))
	for i := range Patterns {
		idx[Patterns[i].Key] = &Patterns[i]
	}
	return idx
}()

// LookupPattern returns the library entry for key, if any.
func LookupPattern(key string) (*Pattern, bool) {
	p, ok := patternIndex[key]
	return p, ok
}
