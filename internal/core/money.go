// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and the decimal representation the ledger
// store speaks on the wire.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var maxCents = decimal.NewFromInt(1<<63 - 1)

// ParseMoney converts a decimal string to Money with half-up rounding to cents.
//
// It accepts dot (12.34) and comma (12,34) decimal separators; when both are
// present the pt-BR convention applies (1.234,56). Negative amounts and
// anything that is not a plain decimal number are rejected. Zero is valid.
//
// Examples:
//
//	ParseMoney("12.34")    -> 1234 cents
//	ParseMoney("12,345")   -> 1235 cents (rounds up)
//	ParseMoney("1.234,56") -> 123456 cents
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrMissingAmount
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	if strings.Count(s, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return Money{}, ErrInvalidAmount
		}
	}
	if s == "." {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if cents.GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// MoneyFromFloat converts a wire amount (e.g. 12.34) to Money, rounding to
// the nearest cent.
func MoneyFromFloat(f float64) Money {
	return Money{Cents: decimal.NewFromFloat(f).Shift(2).Round(0).IntPart()}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float64 returns the amount in currency units for the wire format.
// Use cents for calculations.
func (m Money) Float64() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsZero() bool { return m.Cents == 0 }

// String returns the plain decimal representation, e.g. "1234.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Format renders the amount as Brazilian currency, e.g. "R$ 1.234,50".
func (m Money) Format() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	units := strconv.FormatInt(cents/100, 10)
	var grouped strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	s := fmt.Sprintf("R$ %s,%02d", grouped.String(), cents%100)
	if neg {
		return "-" + s
	}
	return s
}
