package domain

import (
	"fmt"
	"math"
)

// Money is an amount in ringgit as carried on the wire (a JSON number).
// Comparisons and sums go through Cents to stay exact.
type Money float64

// Cents rounds m to the nearest sen.
func (m Money) Cents() int64 {
	return int64(math.Round(float64(m) * 100))
}

// MoneyFromCents converts an exact sen amount back to Money.
func MoneyFromCents(c int64) Money {
	return Money(float64(c) / 100)
}

func (m Money) String() string {
	c := m.Cents()
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%sRM %s.%02d", sign, groupThousands(c/100), c%100)
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	head := len(s) % 3
	out := s[:head]
	for i := head; i < len(s); i += 3 {
		if out != "" {
			out += ","
		}
		out += s[i : i+3]
	}
	return out
}
