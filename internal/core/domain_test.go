package core

import (
	"errors"
	"strings"
	"testing"
)

func TestRecurringDefinitionValidate(t *testing.T) {
	good := RecurringDefinition{Name: "Arriendo", Amount: 500000, DayOfMonth: 30, Active: true}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name  string
		def   RecurringDefinition
		cause error
	}{
		{"empty name", RecurringDefinition{Name: "  ", Amount: 1, DayOfMonth: 1}, ErrEmptyName},
		{"long name", RecurringDefinition{Name: strings.Repeat("x", 121), Amount: 1, DayOfMonth: 1}, ErrEmptyName},
		{"zero amount", RecurringDefinition{Name: "a", Amount: 0, DayOfMonth: 1}, ErrInvalidAmount},
		{"negative amount", RecurringDefinition{Name: "a", Amount: -5, DayOfMonth: 1}, ErrInvalidAmount},
		{"day zero", RecurringDefinition{Name: "a", Amount: 1, DayOfMonth: 0}, ErrInvalidDay},
		{"day 32", RecurringDefinition{Name: "a", Amount: 1, DayOfMonth: 32}, ErrInvalidDay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.def.Validate()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !errors.Is(err, tc.cause) {
				t.Fatalf("expected cause %v, got %v", tc.cause, err)
			}
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{Date: "2025-01-01", Amount: 100, CategoryID: "c1"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Date: "", Amount: 1},
		{Date: "2025-02-30", Amount: 1},
		{Date: "2025-01-01", Amount: 0},
		{Date: "2025-01-01", Amount: 1, Note: strings.Repeat("n", 501)},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestUserSettingsValidate(t *testing.T) {
	if err := DefaultSettings("u1").Validate(); err != nil {
		t.Fatalf("default settings should be valid: %v", err)
	}
	for _, p := range []int{0, -1, 101} {
		s := UserSettings{UserID: "u1", NotifyAtPercent: p}
		if err := s.Validate(); !errors.Is(err, ErrInvalidPercent) {
			t.Fatalf("percent %d: expected ErrInvalidPercent, got %v", p, err)
		}
	}
}

func TestParseOccurrenceState(t *testing.T) {
	cases := []struct {
		in   string
		want OccurrenceState
		ok   bool
	}{
		{"pending", StatePending, true},
		{"CONFIRMED", StateConfirmed, true},
		{" omitted ", StateOmitted, true},
		{"pendiente", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseOccurrenceState(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	nf := &NotFoundError{Kind: "occurrence", ID: "o1"}
	if !IsNotFound(nf) || IsValidation(nf) || IsStorage(nf) {
		t.Fatalf("not found error misclassified: %v", nf)
	}

	cause := errors.New("connection reset")
	se := WrapStorage("fetch occurrences", cause)
	if !IsStorage(se) || !errors.Is(se, cause) {
		t.Fatalf("storage error should match ErrStorage and its cause: %v", se)
	}

	// Domain errors pass through untouched.
	if got := WrapStorage("update", nf); got != error(nf) {
		t.Fatalf("WrapStorage should not rewrap a not found error, got %v", got)
	}
	if WrapStorage("noop", nil) != nil {
		t.Fatal("WrapStorage(nil) should be nil")
	}
}
