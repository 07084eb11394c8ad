// Package core provides money parsing and handling utilities.
//
// This file contains the helpers that turn user input into amounts and
// amounts into the two-decimal currency text used by listings and exports.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrAmountNotNumber is returned by ParseAmount when the input is not a number.
var ErrAmountNotNumber = errors.New("amount must be a valid number")

// ParseAmount converts user input to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// surrounding spaces. Returns ErrAmountNotNumber for text that is not a
// number and ErrInvalidAmount for zero or negative values.
//
// Examples:
//   ParseAmount("12.34") -> 12.34, nil
//   ParseAmount("12,34") -> 12.34, nil
//   ParseAmount("0")     -> 0, ErrInvalidAmount
//   ParseAmount("abc")   -> 0, ErrAmountNotNumber
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrAmountNotNumber
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrAmountNotNumber
	}
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	amount, _ := d.Float64()
	return amount, nil
}

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// SumAmounts adds amounts in decimal arithmetic so that totals of
// two-decimal values do not drift.
func SumAmounts(expenses []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(decimal.NewFromFloat(e.Amount()))
	}
	return total
}
