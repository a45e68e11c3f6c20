// Package phone normalizes phone numbers to canonical E.164 strings and
// derives display fragments from them.
package phone

import (
	"fmt"

	"github.com/nyaruka/phonenumbers"
)

// Normalize parses raw in the given default region and returns the
// canonical E.164 form.
func Normalize(raw, region string) (string, error) {
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("parse number %q: %w", raw, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid number %q", raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// AreaCode returns the leading digits of the national number, used to tell
// same-named contacts apart in replies. Returns "" when the number cannot
// be parsed.
func AreaCode(number, region string) string {
	num, err := phonenumbers.Parse(number, region)
	if err != nil {
		return ""
	}
	national := phonenumbers.GetNationalSignificantNumber(num)
	if len(national) > 3 {
		return national[:3]
	}
	return national
}
