package core

import (
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2024-03-01" {
		t.Fatalf("round-trip mismatch: %q", d.String())
	}
	if d.YearMonth() != "2024-03" {
		t.Fatalf("YearMonth = %q", d.YearMonth())
	}

	for _, bad := range []string{"", "01/03/2024", "2024-13-01", "yesterday"} {
		if _, err := ParseDate(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -100}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:        NewDate(2024, 3, 1),
		Category:    "Food",
		Description: "Lunch",
		Amount:      Money{Cents: 1250},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Date: Date{Time: time.Time{}}, Category: "c", Description: "d", Amount: Money{Cents: 1}},
		{Date: NewDate(2024, 3, 1), Category: "", Description: "d", Amount: Money{Cents: 1}},
		{Date: NewDate(2024, 3, 1), Category: "c", Description: "  ", Amount: Money{Cents: 1}},
		{Date: NewDate(2024, 3, 1), Category: "c", Description: "d", Amount: Money{Cents: 0}},
		{Date: NewDate(2024, 3, 1), Category: "c", Description: strings.Repeat("x", 201), Amount: Money{Cents: 1}},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
