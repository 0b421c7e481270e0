package flow

import (
	"fmt"
	"strings"

	"github.com/emberworks/emberchat/internal/auth"
)

// DefaultCountryCode is prefixed to national numbers.
const DefaultCountryCode = "92"

// NormalizePhone converts user input to E.164: strip everything but digits,
// prefix the country code when missing, then a leading "+".
func NormalizePhone(raw, countryCode string) (string, error) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return "", fmt.Errorf("%w: %q has no digits", auth.ErrInvalidContact, raw)
	}

	number := digits.String()
	if !strings.HasPrefix(number, countryCode) {
		number = countryCode + number
	}
	return "+" + number, nil
}
