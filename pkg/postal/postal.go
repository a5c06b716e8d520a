// Package postal holds small US postal-code helpers shared by the shipment
// validators.
package postal

import (
	"regexp"
	"strings"
)

var zipRe = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// IsValidZIPCode reports whether s is a 5-digit ZIP or a ZIP+4.
func IsValidZIPCode(s string) bool {
	return zipRe.MatchString(strings.TrimSpace(s))
}

// ParseZIPCode strips non-digit characters and splits into the base ZIP and
// the +4 extension. Returns ok=false when the digit count is neither 5 nor 9.
func ParseZIPCode(s string) (zip, plus4 string, ok bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch len(digits) {
	case 5:
		return digits, "", true
	case 9:
		return digits[:5], digits[5:], true
	default:
		return "", "", false
	}
}
