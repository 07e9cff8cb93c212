// Package core holds the domain types shared by storage, transport and the
// API client: users, transactions, calendar dates and fixed-precision money.
package core

import (
	"strconv"
	"strings"
)

// Money is a fixed-precision monetary amount held as integer cents.
// It marshals to a plain JSON number with at most two decimals, matching
// the DECIMAL(10,2) columns it is stored in.
type Money struct {
	Cents int64
}

// ParseCents converts a decimal string to cents with half-up rounding on the
// third decimal place. Both dot and comma separators are accepted. Negative
// amounts are allowed; no sign policy is enforced here.
//
//	ParseCents("12.34")  -> 1234
//	ParseCents("12,345") -> 1235
//	ParseCents("-3")     -> -300
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, ErrInvalidAmount
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	if intPart == "0" && fracPart == "" && len(parts) == 2 {
		return 0, ErrInvalidAmount
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}

	var frac int64
	switch {
	case fracPart == "":
	case len(fracPart) == 1:
		d, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
		frac = d * 10
	default:
		d, err := strconv.ParseInt(fracPart[:2], 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
		frac = d
		// Half-up rounding on the third decimal.
		if len(fracPart) > 2 {
			third := fracPart[2]
			if third < '0' || third > '9' {
				return 0, ErrInvalidAmount
			}
			if third >= '5' {
				frac++
			}
		}
	}

	cents := whole*100 + frac
	if neg {
		cents = -cents
	}
	return cents, nil
}

// String renders the amount as a decimal with no trailing zeros,
// e.g. "600", "400.5", "-12.34".
func (m Money) String() string {
	c := m.Cents
	neg := c < 0
	if neg {
		c = -c
	}
	s := strconv.FormatInt(c/100, 10)
	if rem := c % 100; rem != 0 {
		if rem%10 == 0 {
			s += "." + strconv.FormatInt(rem/10, 10)
		} else {
			s += "."
			if rem < 10 {
				s += "0"
			}
			s += strconv.FormatInt(rem, 10)
		}
	}
	if neg {
		return "-" + s
	}
	return s
}

// Float64 returns the amount in currency units. Chart payloads use it; exact
// arithmetic stays in cents.
func (m Money) Float64() float64 {
	return float64(m.Cents) / 100
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		m.Cents = 0
		return nil
	}
	cents, err := ParseCents(s)
	if err != nil {
		return err
	}
	m.Cents = cents
	return nil
}
