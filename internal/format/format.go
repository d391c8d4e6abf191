// Package format renders numbers and currency values in pt-BR conventions.
package format

import (
	"fmt"
	"strings"
)

// Currency renders a value in reais, compacting large magnitudes the way the
// answers read naturally in Portuguese: "R$ 2,3 bi", "R$ 15,7 mi",
// "R$ 830,0 mil", plain "R$ 1.234,56" below a thousand.
func Currency(value float64) string {
	abs := value
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1e9:
		return fmt.Sprintf("R$ %s bi", decimalComma(value/1e9, 1))
	case abs >= 1e6:
		return fmt.Sprintf("R$ %s mi", decimalComma(value/1e6, 1))
	case abs >= 1e3:
		return fmt.Sprintf("R$ %s mil", decimalComma(value/1e3, 1))
	default:
		return "R$ " + Number(value, 2)
	}
}

// Number renders a value with pt-BR separators: dot for thousands, comma for
// decimals. decimals controls the fractional digits.
func Number(value float64, decimals int) string {
	s := fmt.Sprintf("%.*f", decimals, value)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := b.String()
	if fracPart != "" {
		out += "," + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

// Count renders an integer with pt-BR thousand separators.
func Count(n int) string {
	return Number(float64(n), 0)
}

// Percent renders a ratio as "12,3%".
func Percent(value float64) string {
	return decimalComma(value, 1) + "%"
}

func decimalComma(value float64, decimals int) string {
	return strings.ReplaceAll(fmt.Sprintf("%.*f", decimals, value), ".", ",")
}
