package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Amount is a monetary value in whole currency units. The domain has no
// fractional cents.
type Amount int64

func (a Amount) Validate() error {
	if a <= 0 {
		return NewValidationError("amount", ErrInvalidAmount, "amount must be positive")
	}
	return nil
}

// String formats the amount the way the app displays it: "$12.500".
func (a Amount) String() string {
	neg := a < 0
	n := int64(a)
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseAmount reads a positive whole amount typed by a user. A leading "$",
// spaces and dot thousands separators are accepted: "$12.500", "12 500", "12500".
//
// Examples:
//
//	ParseAmount("$1.234") -> 1234, nil
//	ParseAmount("1234")   -> 1234, nil
//	ParseAmount("12,5")   -> 0, error (no fractional amounts)
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.NewReplacer(".", "", " ", "").Replace(s)
	if s == "" {
		return 0, NewValidationError("amount", ErrInvalidAmount, "amount is required")
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0, NewValidationError("amount", ErrInvalidAmount, "amount must be a whole positive number")
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, NewValidationError("amount", ErrInvalidAmount, "amount is too large")
	}
	a := Amount(v)
	if err := a.Validate(); err != nil {
		return 0, err
	}
	return a, nil
}

// SumAmounts adds up the amounts of expenses.
func SumAmounts(expenses []Expense) Amount {
	var total Amount
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}
