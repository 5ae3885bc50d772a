// Package phone turns user-typed phone numbers into E.164 and keeps them
// out of logs in full.
package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalid is wrapped by every Normalize failure.
var ErrInvalid = errors.New("invalid phone number")

// separators may appear between digits and are dropped.
const separators = " -()."

// Normalize returns input in E.164 form. The number must carry its country
// code after a leading '+'; no default region is assumed.
func Normalize(input string) (string, error) {
	raw := strings.TrimSpace(input)
	if !strings.HasPrefix(raw, "+") {
		return "", fmt.Errorf("%w: must start with '+' and a country code", ErrInvalid)
	}

	var digits strings.Builder
	digits.WriteByte('+')
	for _, r := range raw[1:] {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case strings.ContainsRune(separators, r):
		default:
			return "", fmt.Errorf("%w: unexpected character %q", ErrInvalid, r)
		}
	}

	num, err := phonenumbers.Parse(digits.String(), "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%w: no such number in country code +%d", ErrInvalid, num.GetCountryCode())
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Region returns the ISO 3166-1 region of an E.164 number, or "" when unknown.
func Region(e164 string) string {
	num, err := phonenumbers.Parse(e164, "")
	if err != nil {
		return ""
	}
	return phonenumbers.GetRegionCodeForNumber(num)
}

// Mask hides all but the last four digits, for logs.
func Mask(e164 string) string {
	if len(e164) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(e164)-4) + e164[len(e164)-4:]
}
