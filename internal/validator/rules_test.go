package validator

import (
	"math"
	"testing"
)

func TestNotBlank(t *testing.T) {
	validator := New()
	validator.Check(NotBlank(""), "name", "Name is required")
	if validator.Valid() {
		t.Error("validator.Valid() should return false")
	}
	if len(validator.Errors) != 1 {
		t.Error("validator.Errors should contain one entry")
	}
	if validator.Errors["name"] != "Name is required" {
		t.Error("validator.Errors[name] should contain the correct error message")
	}
}

func TestRunes(t *testing.T) {
	if !MinRunes("abc", 3) || MinRunes("ab", 3) {
		t.Error("MinRunes should count runes against the minimum")
	}
	if !MaxRunes("abc", 3) || MaxRunes("abcd", 3) {
		t.Error("MaxRunes should count runes against the maximum")
	}
}

func TestIn(t *testing.T) {
	if !In("YES", "YES", "NO") {
		t.Error("In should find a listed value")
	}
	if !NotIn("MKT", "YES", "NO") {
		t.Error("NotIn should reject an unlisted value")
	}
}

func TestNoDuplicates(t *testing.T) {
	if !NoDuplicates([]string{"a", "b", "c"}) {
		t.Error("NoDuplicates should accept unique values")
	}
	if NoDuplicates([]string{"a", "b", "a"}) {
		t.Error("NoDuplicates should reject repeated values")
	}
}

func TestIsProbability(t *testing.T) {
	for _, p := range []float64{0.01, 0.5, 0.99} {
		if !IsProbability(p) {
			t.Errorf("IsProbability(%v) should be true", p)
		}
	}
	for _, p := range []float64{0, 1, -0.2, 1.5, math.NaN()} {
		if IsProbability(p) {
			t.Errorf("IsProbability(%v) should be false", p)
		}
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(42.0) {
		t.Error("IsFinite should accept a regular value")
	}
	if IsFinite(math.Inf(1)) || IsFinite(math.NaN()) {
		t.Error("IsFinite should reject NaN and infinities")
	}
}
