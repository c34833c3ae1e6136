package codec

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToMajorUnits(t *testing.T) {
	got := ToMajorUnits(250_000_000)
	if !got.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("expected 2.5, got %s", got)
	}
}

func TestToMinorUnits(t *testing.T) {
	minor, err := ToMinorUnits(decimal.RequireFromString("2.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minor != 250_000_000 {
		t.Errorf("expected 250000000, got %d", minor)
	}
}

func TestToMinorUnits_Rounds(t *testing.T) {
	// 0.123456789 coins is 12345678.9 minor units; nearest integer wins.
	minor, err := ToMinorUnits(decimal.RequireFromString("0.123456789"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minor != 12_345_679 {
		t.Errorf("expected 12345679, got %d", minor)
	}
}

func TestToMinorUnits_Negative(t *testing.T) {
	_, err := ToMinorUnits(decimal.RequireFromString("-1"))
	if err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestCurrencyRoundTrip(t *testing.T) {
	// Any amount representable at 2 decimal places must round-trip exactly.
	cases := []string{"0", "0.01", "1", "3.5", "99.99", "12345.67"}
	for _, c := range cases {
		want := decimal.RequireFromString(c)
		minor, err := ToMinorUnits(want)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c, err)
		}
		got := ToMajorUnits(minor)
		if !got.Equal(want) {
			t.Errorf("%s: round-trip produced %s", c, got)
		}
	}
}

func TestFormatMinorUnits(t *testing.T) {
	s, err := FormatMinorUnits(decimal.RequireFromString("3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "300000000" {
		t.Errorf("expected 300000000, got %s", s)
	}
}

func TestParseMinorUnits(t *testing.T) {
	got, err := ParseMinorUnits("150000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected 1.5, got %s", got)
	}
}

func TestParseMinorUnits_Malformed(t *testing.T) {
	if _, err := ParseMinorUnits("not-a-number"); err == nil {
		t.Fatal("expected error for malformed input")
	}
	if _, err := ParseMinorUnits("-5"); err == nil {
		t.Fatal("expected error for negative input")
	}
}
