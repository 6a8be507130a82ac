package models

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateEventID(t *testing.T) {
	date := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	id1 := GenerateEventID("おわら風の盆", date)
	id2 := GenerateEventID("おわら風の盆", date)
	if id1 != id2 {
		t.Errorf("same inputs produced different IDs: %s vs %s", id1, id2)
	}

	if !strings.HasPrefix(id1, "evt_") {
		t.Errorf("expected evt_ prefix, got %s", id1)
	}
	if len(id1) != len("evt_")+16 {
		t.Errorf("expected 16 hex chars after prefix, got %s", id1)
	}

	// Different title or date must change the ID.
	if id1 == GenerateEventID("富山まつり", date) {
		t.Error("different titles produced the same ID")
	}
	if id1 == GenerateEventID("おわら風の盆", date.AddDate(0, 0, 1)) {
		t.Error("different dates produced the same ID")
	}

	// Time of day must not affect the ID.
	afternoon := time.Date(2025, 8, 1, 15, 30, 0, 0, time.UTC)
	if id1 != GenerateEventID("おわら風の盆", afternoon) {
		t.Error("time of day changed the ID")
	}
}

func TestLevenshteinRatio(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"", "", 1.0, 1.0},
		{"abc", "abc", 1.0, 1.0},
		{"abc", "", 0.0, 0.0},
		{"おわら風の盆", "おわら風の盆前夜祭", 0.6, 0.7},
		{"富山まつり", "高岡まつり", 0.55, 0.65},
		{"kitten", "sitting", 0.5, 0.6},
	}

	for _, tt := range tests {
		got := LevenshteinRatio(tt.a, tt.b)
		if got < tt.min || got > tt.max {
			t.Errorf("LevenshteinRatio(%q, %q) = %.3f, want in [%.2f, %.2f]",
				tt.a, tt.b, got, tt.min, tt.max)
		}
		if sym := LevenshteinRatio(tt.b, tt.a); sym != got {
			t.Errorf("LevenshteinRatio not symmetric for %q/%q: %.3f vs %.3f",
				tt.a, tt.b, got, sym)
		}
	}
}

func TestDateRangeHelpers(t *testing.T) {
	dr := DateRange{
		Start: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC),
	}

	if dr.SingleDay() {
		t.Error("three-day range reported as single day")
	}
	if !dr.ContainsDay(time.Date(2025, 8, 2, 18, 0, 0, 0, time.UTC)) {
		t.Error("range should contain 2025-08-02 regardless of time of day")
	}
	if dr.ContainsDay(time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)) {
		t.Error("range should not contain 2025-08-04")
	}

	other := DateRange{
		Start: time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC),
	}
	if !dr.OverlapsDays(other) {
		t.Error("ranges sharing 2025-08-03 should overlap")
	}

	disjoint := DateRange{
		Start: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	if dr.OverlapsDays(disjoint) {
		t.Error("disjoint ranges reported as overlapping")
	}
}

func TestIsValidURL(t *testing.T) {
	valid := []string{"https://www.info-toyama.com/events/1", "http://example.jp/"}
	invalid := []string{"", "not-a-url", "ftp://example.com", "www.example.com"}

	for _, u := range valid {
		if !IsValidURL(u) {
			t.Errorf("IsValidURL(%q) = false, want true", u)
		}
	}
	for _, u := range invalid {
		if IsValidURL(u) {
			t.Errorf("IsValidURL(%q) = true, want false", u)
		}
	}
}
