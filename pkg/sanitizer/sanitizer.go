// Package sanitizer normalizes request input before validation and storage.
// All functions are idempotent and handle invalid input by returning the
// empty string rather than an error.
package sanitizer

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	reCollapseSpace = regexp.MustCompile(`\s+`)
	reValidPhone    = regexp.MustCompile(`^\+?[0-9 \-()]{7,20}$`)

	supportedRegions = []string{
		"US",
		"GB",
	}
)

// SanitizeText collapses internal whitespace and trims the result. Used for
// free-text fields such as cancellation reasons.
func SanitizeText(input string) string {
	return strings.TrimSpace(reCollapseSpace.ReplaceAllString(input, " "))
}

// SanitizePhone normalizes a contact phone to E.164. Returns the empty
// string when the input cannot be parsed as a phone number.
func SanitizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" || !reValidPhone.MatchString(phone) {
		return ""
	}

	for _, region := range supportedRegions {
		parsed, err := phonenumbers.Parse(phone, region)
		if err == nil && phonenumbers.IsValidNumber(parsed) {
			return phonenumbers.Format(parsed, phonenumbers.E164)
		}
	}
	return ""
}
