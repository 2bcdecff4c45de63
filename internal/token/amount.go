// Package token defines the CONVO token parameters and a typed amount that
// carries its decimal precision. The reward calculator works in whole tokens;
// the treasury engine moves base units. Amount makes the unit explicit at
// every boundary so the two never mix silently.
package token

import (
	"fmt"
	"strconv"
	"strings"
)

// CONVO token configuration.
const (
	MintAddress = "DHyRK8gue96rB8QxAg7d16ghDjxvRERJramcGCFNmoon"
	Symbol      = "CONVO"
	Decimals    = 6
)

// UnitsPerToken is 10^Decimals.
const UnitsPerToken = 1_000_000

// Amount is a CONVO token amount in base units (10^-6 tokens).
type Amount struct {
	base int64
}

// FromBaseUnits builds an Amount from smallest-unit integers, the
// representation the on-chain token program uses.
func FromBaseUnits(base int64) Amount {
	return Amount{base: base}
}

// FromTokens builds an Amount from whole display tokens.
func FromTokens(tokens int64) Amount {
	return Amount{base: tokens * UnitsPerToken}
}

// BaseUnits returns the amount in smallest units.
func (a Amount) BaseUnits() int64 { return a.base }

// Tokens returns the whole-token part, truncating fractional units.
func (a Amount) Tokens() int64 { return a.base / UnitsPerToken }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.base == 0 }

// IsPositive reports whether the amount is strictly positive.
func (a Amount) IsPositive() bool { return a.base > 0 }

// Add returns a+b.
func (a Amount) Add(b Amount) Amount { return Amount{base: a.base + b.base} }

// String formats the amount as a decimal token count with the symbol,
// e.g. "13.000000 CONVO".
func (a Amount) String() string {
	sign := ""
	base := a.base
	if base < 0 {
		sign = "-"
		base = -base
	}
	whole := base / UnitsPerToken
	frac := base % UnitsPerToken
	return fmt.Sprintf("%s%d.%0*d %s", sign, whole, Decimals, frac, Symbol)
}

// ParseTokens parses a whole-token decimal string ("12" or "12.5") into an
// Amount. Fractional digits beyond the token precision are rejected.
func ParseTokens(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	wholePart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		wholePart, fracPart = s[:i], s[i+1:]
	}
	if len(fracPart) > Decimals {
		return Amount{}, fmt.Errorf("amount %q exceeds %d decimal places", s, Decimals)
	}
	var whole int64
	if wholePart != "" {
		n, err := strconv.ParseUint(wholePart, 10, 63)
		if err != nil {
			return Amount{}, fmt.Errorf("invalid amount %q", s)
		}
		whole = int64(n)
	}
	base := whole * UnitsPerToken
	if fracPart != "" {
		n, err := strconv.ParseUint(fracPart, 10, 32)
		if err != nil {
			return Amount{}, fmt.Errorf("invalid amount %q", s)
		}
		frac := int64(n)
		for i := len(fracPart); i < Decimals; i++ {
			frac *= 10
		}
		base += frac
	}
	if neg {
		base = -base
	}
	return Amount{base: base}, nil
}
