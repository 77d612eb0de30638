package workflow

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"bitbucket.org/grupodatos/dwh_backend/models"
	"bitbucket.org/grupodatos/dwh_backend/utils"
	"github.com/shopspring/decimal"
)

// ErrNotANumber is the sentinel for numeric strings that cannot be cleaned.
// Rows carrying such values are dropped downstream, never defaulted.
var ErrNotANumber = errors.New("not a number")

// europeanNumber matches amounts like "1.200,50" or "1.750.000": groups of
// exactly three digits separated by dots, with an optional comma-delimited
// fractional part.
var europeanNumber = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+(,\d+)?$`)

// americanNumber matches plain or comma-grouped amounts like "1200.50",
// "1,200.50" or "12,345,678.99". Strings matching neither pattern carry stray
// separators and must reject, never be absorbed by separator stripping.
var americanNumber = regexp.MustCompile(`^-?\d+(,\d{3})*(\.\d+)?$`)

// StandardizeGender maps any source gender token to the canonical encoding.
// Total function: unknown or missing tokens become GenderUnspecified.
func StandardizeGender(raw string) models.Gender {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "m", "masculino":
		return models.GenderMale
	case "f", "femenino":
		return models.GenderFemale
	default:
		return models.GenderUnspecified
	}
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// StandardizeDate parses the date formats the source systems emit. Returns
// ok=false when unparseable so the caller can drop the row instead of
// aborting the batch.
func StandardizeDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CleanNumericString normalizes locale-formatted amount strings to a decimal.
// European strings ("1.200,50") have dots stripped and the comma turned into
// a decimal point; American strings ("1,200.50") have their comma groups
// stripped. Anything matching neither shape yields ErrNotANumber so the row
// drops instead of loading a silently wrong value.
func CleanNumericString(raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)

	switch {
	case europeanNumber.MatchString(value):
		value = strings.ReplaceAll(value, ".", "")
		value = strings.Replace(value, ",", ".", 1)
	case americanNumber.MatchString(value):
		value = strings.ReplaceAll(value, ",", "")
	default:
		return decimal.Zero, ErrNotANumber
	}

	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, ErrNotANumber
	}
	return dec, nil
}

// NormalizeEmail lowercases and trims an email and validates its shape.
// ok=false means the row has no usable natural key and must be dropped.
func NormalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || !utils.IsValidEmail(email) {
		return "", false
	}
	return email, true
}

// NormalizeSKU uppercases and trims a product code.
func NormalizeSKU(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NormalizeChannel uppercases and trims a channel name. Sources that carry no
// channel at all default to WEB, matching how their orders were classified
// before consolidation.
func NormalizeChannel(raw string) string {
	channel := strings.ToUpper(strings.TrimSpace(raw))
	if channel == "" {
		return "WEB"
	}
	return channel
}

// NormalizeCategory uppercases and trims a category name.
func NormalizeCategory(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

var (
	decimalZero    = decimal.Zero
	decimalHundred = decimal.NewFromInt(100)
)

// ParseDiscount reads a discount percentage, clamped to [0, 100]. An empty
// value means the source carries no discount and yields 0. A non-empty value
// that cannot be read also yields 0 but reports defaulted=true so the caller
// can count it; the line still loads.
func ParseDiscount(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimalZero, false
	}
	d, err := CleanNumericString(raw)
	if err != nil {
		return decimalZero, true
	}
	if d.LessThan(decimalZero) {
		return decimalZero, false
	}
	if d.GreaterThan(decimalHundred) {
		return decimalHundred, false
	}
	return d, false
}
