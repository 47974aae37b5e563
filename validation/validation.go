package validation

import (
	"math"
	"net/mail"
	"strings"
)

// Violations maps a field name to an error code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 || math.IsNaN(val) || math.IsInf(val, 0) {
		v[field] = "must_be_non_negative"
	}
}

func Email(field, value string, v Violations) {
	if _, err := mail.ParseAddress(strings.TrimSpace(value)); err != nil {
		v[field] = "invalid_email"
	}
}

func MinLength(field, value string, n int, v Violations) {
	if len([]rune(value)) < n {
		v[field] = "too_short"
	}
}
