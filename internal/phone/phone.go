// Package phone canonicalizes Brazilian phone numbers into the digits-only
// key used to join database sales to CRM deals.
package phone

import "regexp"

// Matches an optional +55 country code with an optional trailing space, a
// two-digit area code with optional parentheses, an optional space, and an
// 8-or-9-digit local number with an optional dash before the final four
// digits. Without the space after the country code, "+55 (11)" would only
// match from the parenthesis on and the prefix would survive replacement.
var numberPattern = regexp.MustCompile(`(?:\+55)?[ ]?\(?(\d{2})\)?[ ]?(\d{4,5})-?(\d{4})`)

// Normalize reduces a phone number to area code + local number digits.
// Inputs that do not match the expected shape are returned unchanged; a
// bad number should fail the deal lookup, not abort extraction.
func Normalize(raw string) string {
	return numberPattern.ReplaceAllString(raw, "${1}${2}${3}")
}
