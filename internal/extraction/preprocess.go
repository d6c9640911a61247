package extraction

import "regexp"

// OCR output frequently drops the whitespace between a value and whatever
// follows it. These repairs run before any pattern matching.
var (
	// "10.7g/dL" -> "10.7 g/dL"
	glueUnit = regexp.MustCompile(`(?i)(\d)(mg/dL|mmol/L|g/dL|g/L|ng/mL|pg/mL|nmol/L|pmol/L|ng/dL|mcg/dL|µg/dL|ug/dL|µIU/mL|uIU/mL|mIU/L|mIU/mL|IU/L|U/L|mEq/L|K/µL|K/uL|%)`)

	// "220High" -> "220 High"
	glueStatus = regexp.MustCompile(`(?i)(\d)(High|Low|Normal)\b`)

	// Two decimal numbers run together, e.g. "95.2105.0" -> "95.2 105.0".
	glueNumbers = regexp.MustCompile(`(\d+\.\d{1,2})(\d{2,3}\.\d)`)
)

// Preprocess repairs common OCR fragmentation in raw report text so the
// pattern library can match it. It is idempotent.
func Preprocess(text string) string {
	text = glueNumbers.ReplaceAllString(text, "$1 $2")
	text = glueStatus.ReplaceAllString(text, "$1 $2")
	text = glueUnit.ReplaceAllString(text, "$1 $2")
	return text
}
