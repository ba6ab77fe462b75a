package types

import (
	"encoding/json"
	"testing"
)

func TestParseDate(t *testing.T) {
	date, err := ParseDate("2025-03-09")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if date != (Date{Year: 2025, Month: 3, Day: 9}) {
		t.Errorf("Unexpected date: %+v", date)
	}
	if date.String() != "2025-03-09" {
		t.Errorf("Expected 2025-03-09, got %s", date.String())
	}

	if _, err := ParseDate("09/03/2025"); err == nil {
		t.Error("Expected error for non-ISO date")
	}
}

func TestDateComparisons(t *testing.T) {
	earlier := Date{Year: 2024, Month: 12, Day: 31}
	later := Date{Year: 2025, Month: 1, Day: 1}

	if !earlier.Before(later) || later.Before(earlier) {
		t.Error("Before comparison incorrect")
	}
	if !later.After(earlier) {
		t.Error("After comparison incorrect")
	}
	if earlier.AddDays(1) != later {
		t.Errorf("AddDays(1) = %s, want %s", earlier.AddDays(1), later)
	}
	if earlier.DaysUntil(later) != 1 {
		t.Errorf("DaysUntil = %d, want 1", earlier.DaysUntil(later))
	}
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		Verified Date `json:"verified"`
	}

	payload, err := json.Marshal(wrapper{Verified: Date{Year: 2026, Month: 2, Day: 14}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(payload) != `{"verified":"2026-02-14"}` {
		t.Errorf("Unexpected JSON: %s", payload)
	}

	var restored wrapper
	if err := json.Unmarshal([]byte(`{"verified":""}`), &restored); err != nil {
		t.Fatalf("Unmarshal of empty date failed: %v", err)
	}
	if !restored.Verified.IsZero() {
		t.Error("Expected zero date")
	}

	if err := json.Unmarshal([]byte(`{"verified":"yesterday"}`), &restored); err == nil {
		t.Error("Expected error for malformed date")
	}
}
