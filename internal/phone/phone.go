// Package phone canonicalizes mobile numbers to "+<country code><number>".
package phone

import (
	"errors"
	"strings"
)

var ErrInvalid = errors.New("invalid mobile number")

// DefaultCountryCode is used for bare 10-digit local numbers
const DefaultCountryCode = "91"

// Normalize strips formatting from raw and returns the canonical E.164 form.
// A bare 10-digit number (optionally with a trunk 0) gets countryCode
// prepended; a "00" international prefix is treated like "+".
func Normalize(raw, countryCode string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalid
	}
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	countryCode = strings.TrimPrefix(countryCode, "+")

	explicit := strings.HasPrefix(raw, "+")

	// Remove any non-digit characters
	var b strings.Builder
	for _, c := range raw {
		switch {
		case c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '+' || c == ' ' || c == '-' || c == '(' || c == ')' || c == '.':
		default:
			return "", ErrInvalid
		}
	}
	cleaned := b.String()

	switch {
	case explicit:
	case strings.HasPrefix(cleaned, "00"):
		cleaned = cleaned[2:]
	case len(cleaned) == 11 && cleaned[0] == '0':
		cleaned = countryCode + cleaned[1:]
	case len(cleaned) == 10:
		cleaned = countryCode + cleaned
	}

	if len(cleaned) < 8 || len(cleaned) > 15 || cleaned[0] == '0' {
		return "", ErrInvalid
	}
	return "+" + cleaned, nil
}

// Digits returns the number without the leading "+", the form SMS gateways expect
func Digits(canonical string) string {
	return strings.TrimPrefix(canonical, "+")
}

// Local returns the last 10 digits, the form Fast2SMS expects for Indian numbers
func Local(canonical string) string {
	d := Digits(canonical)
	if len(d) > 10 {
		return d[len(d)-10:]
	}
	return d
}
