package notify

import (
	"fmt"
	"strings"
)

// NormalizePhone validates a stored phone number and returns it in E.164
// form. Ten-digit numbers are treated as US and prefixed +1. Rejecting
// bad numbers here keeps malformed input off the SMS API entirely.
func NormalizePhone(phone string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return "", fmt.Errorf("empty phone number")
	}

	hasPlus := strings.HasPrefix(trimmed, "+")
	var digits strings.Builder
	for _, c := range trimmed {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		} else if c != '+' && c != '-' && c != ' ' && c != '(' && c != ')' && c != '.' {
			return "", fmt.Errorf("invalid character %q in phone number", c)
		}
	}

	d := digits.String()
	switch {
	case hasPlus:
		if len(d) < 8 || len(d) > 15 {
			return "", fmt.Errorf("phone number has %d digits, expected 8-15", len(d))
		}
		return "+" + d, nil
	case len(d) == 10:
		return "+1" + d, nil
	case len(d) == 11 && d[0] == '1':
		return "+" + d, nil
	default:
		return "", fmt.Errorf("cannot infer country code for %d-digit number", len(d))
	}
}

// ValidEmail is a cheap shape check, not RFC validation; the mail
// provider is the real gate.
func ValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t\n")
}
