package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned by ParseAmount for text without digits.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount reads a monetary amount as printed in statements.
//
// Kaspi statements put the minus sign on either side of the number and
// sometimes in the middle of it ("- 1 500,00 T", "1 500,00 - T",
// "13 - 050,00 T"); any minus marks the amount as negative. Spaces are
// thousands separators and either ',' or '.' may be the decimal separator.
func ParseAmount(s string) (float64, error) {
	negative := strings.ContainsAny(s, "-−")

	var digits strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.':
			digits.WriteRune(r)
		}
	}
	num := strings.Trim(digits.String(), ".,")
	if num == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	num = normalizeSeparators(num)
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if negative {
		v = -v
	}
	return v, nil
}

// normalizeSeparators rewrites num so that '.' is the only separator left
// and it is the decimal one.
func normalizeSeparators(num string) string {
	lastComma := strings.LastIndex(num, ",")
	lastDot := strings.LastIndex(num, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			num = strings.ReplaceAll(num, ".", "")
			return strings.Replace(num, ",", ".", 1)
		}
		return strings.ReplaceAll(num, ",", "")
	case lastComma >= 0:
		if strings.Count(num, ",") == 1 && len(num)-lastComma-1 <= 2 {
			return strings.Replace(num, ",", ".", 1)
		}
		return strings.ReplaceAll(num, ",", "")
	case lastDot >= 0:
		if strings.Count(num, ".") > 1 {
			return strings.ReplaceAll(num, ".", "")
		}
	}
	return num
}
