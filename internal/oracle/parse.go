package oracle

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNoAmount is returned for display text that carries no number, such as
// loading placeholders.
var ErrNoAmount = errors.New("no amount in display text")

// sign, digits with separators, optional magnitude suffix, and the letter after
// it so "12 BTC" is not read as twelve billion.
var amountPattern = regexp.MustCompile(`(-?)(\d[\d.,'\x{00a0}\x{202f} ]*)([kKmMbBtT]?)([A-Za-z]?)`)

var magnitudes = map[string]int32{"k": 3, "m": 6, "b": 9, "t": 12}

// ParseAmount reads a balance off display text. It accepts thousands separators,
// decimal-comma locales, currency symbols and k/m/b/t suffixes.
func ParseAmount(text string) (float64, error) {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, ErrNoAmount
	}
	digits := normalizeSeparators(m[2])
	if digits == "" {
		return 0, ErrNoAmount
	}

	d, err := decimal.NewFromString(m[1] + digits)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", text, err)
	}
	if m[3] != "" && m[4] == "" {
		d = d.Shift(magnitudes[strings.ToLower(m[3])])
	}
	return d.InexactFloat64(), nil
}

func normalizeSeparators(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\'', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, s)
	s = strings.TrimRight(s, ".,")

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		// whichever separator comes last is the decimal point
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		intPart, frac := s[:comma], s[comma+1:]
		if len(frac) == 3 && intPart != "0" {
			return intPart + frac
		}
		return intPart + "." + frac
	case dot >= 0:
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}
