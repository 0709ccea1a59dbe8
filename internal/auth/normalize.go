package auth

import (
	"strings"
	"unicode"
)

const syntheticKeyDomain = "@mytt.com"

// NormalizePhone returns the international form of a phone number: separators
// are stripped and the default country prefix is applied when the number does
// not already carry a leading +. Normalizing an already-normalized number is a
// no-op.
func NormalizePhone(number, countryPrefix string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(number) {
		if unicode.IsDigit(r) || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	n := b.String()
	if strings.HasPrefix(n, "+") {
		return n
	}
	return countryPrefix + n
}

// SyntheticKey derives the deterministic login key the password flow uses for
// a phone number. The provider only understands email-shaped keys, so the
// number is wrapped into one.
func SyntheticKey(phoneNumber string) string {
	return strings.TrimSpace(phoneNumber) + syntheticKeyDomain
}

// SanitizeKey strips everything but letters and digits, producing the stable
// identity key the mock flow stores profiles under.
func SanitizeKey(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
