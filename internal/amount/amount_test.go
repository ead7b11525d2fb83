package amount

import (
	"math/big"
	"testing"
)

func TestToBaseUnitsWholeNumber(t *testing.T) {
	v, err := ToBaseUnits("2", 18)
	if err != nil {
		t.Fatalf("convert whole number: %v", err)
	}
	want, _ := new(big.Int).SetString("2000000000000000000", 10)
	if v.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, v)
	}
}

func TestToBaseUnitsFraction(t *testing.T) {
	v, err := ToBaseUnits("0.05", 18)
	if err != nil {
		t.Fatalf("convert fraction: %v", err)
	}
	want, _ := new(big.Int).SetString("50000000000000000", 10)
	if v.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, v)
	}
}

func TestToBaseUnitsRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "-1", "1.2.3", "abc", "1,5"} {
		if _, err := ToBaseUnits(in, 18); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestToBaseUnitsRejectsExcessPrecision(t *testing.T) {
	if _, err := ToBaseUnits("0.123", 2); err == nil {
		t.Fatal("expected precision error")
	}
}

func TestFromBaseUnitsRoundTrip(t *testing.T) {
	v, err := ToBaseUnits("1.337", 18)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got := FromBaseUnits(v, 18); got != "1.337" {
		t.Fatalf("expected 1.337, got %q", got)
	}
	if got := FromBaseUnits(big.NewInt(0), 18); got != "0" {
		t.Fatalf("expected 0, got %q", got)
	}
}
