package services

import (
	"errors"
	"testing"
	"time"
)

func testResolver() *DateResolver {
	return &DateResolver{GraceDays: 14}
}

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestCleanDateTextIdempotent(t *testing.T) {
	inputs := []string{
		"２０２５年７月２０日（土）〜２２日（月・祝）",
		"8/1㈮・2㈯・3㈰",
		"2025-07-20 〜 2025-07-22 ※雨天中止",
		"7.20~7.22 開催予定",
		"2025.8.1",
		"2025.10.11~10.13",
		"　 8月1日 　10:00〜15:00 　",
	}

	for _, input := range inputs {
		once := CleanDateText(input)
		twice := CleanDateText(once)
		if once != twice {
			t.Errorf("CleanDateText not idempotent for %q:\n once: %q\ntwice: %q", input, once, twice)
		}
	}
}

func TestCleanDateTextNormalization(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"7月20日（土）", "7月20日"},
		{"7/20〜7/22", "7/20~7/22"},
		{"2025-07-20", "2025/07/20"},
		{"7.20", "7/20"},
		{"2025.8.1", "2025/8/1"},
		{"8/1・8/2", "8/1、8/2"},
		{"8月1日 ※荒天時は中止", "8月1日"},
	}

	for _, tt := range tests {
		if got := CleanDateText(tt.input); got != tt.want {
			t.Errorf("CleanDateText(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestResolveExplicitRange(t *testing.T) {
	resolver := testResolver()
	reference := day(2025, 6, 1)

	tests := []struct {
		input string
		start time.Time
		end   time.Time
	}{
		{"2025年7月20日〜22日", day(2025, 7, 20), day(2025, 7, 22)},
		{"2025年7月20日(土)～2025年7月22日(月)", day(2025, 7, 20), day(2025, 7, 22)},
		{"7/20〜7/22", day(2025, 7, 20), day(2025, 7, 22)},
		{"7月30日〜8月2日", day(2025, 7, 30), day(2025, 8, 2)},
		// End day before start day rolls into the next month.
		{"7/30~2", day(2025, 7, 30), day(2025, 8, 2)},
		// December into January crosses the year boundary.
		{"12月28日〜1月3日", day(2025, 12, 28), day(2026, 1, 3)},
	}

	for _, tt := range tests {
		ranges, err := resolver.Resolve(tt.input, reference)
		if err != nil {
			t.Errorf("Resolve(%q) failed: %v", tt.input, err)
			continue
		}
		if len(ranges) != 1 {
			t.Errorf("Resolve(%q) returned %d ranges, want 1", tt.input, len(ranges))
			continue
		}
		if !ranges[0].Start.Equal(tt.start) || !ranges[0].End.Equal(tt.end) {
			t.Errorf("Resolve(%q) = %v..%v, want %v..%v",
				tt.input, ranges[0].Start, ranges[0].End, tt.start, tt.end)
		}
	}
}

func TestResolveAdjacentList(t *testing.T) {
	resolver := testResolver()
	reference := day(2025, 6, 1)

	ranges, err := resolver.Resolve("2025年8月1日(金)、2日(土)、3日(日)", reference)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(ranges) != 3 {
		t.Fatalf("expected 3 single-day ranges, got %d: %v", len(ranges), ranges)
	}
	for i, want := range []time.Time{day(2025, 8, 1), day(2025, 8, 2), day(2025, 8, 3)} {
		if !ranges[i].Start.Equal(want) || !ranges[i].End.Equal(want) {
			t.Errorf("range %d = %v..%v, want single day %v", i, ranges[i].Start, ranges[i].End, want)
		}
	}
}

func TestResolveYearInference(t *testing.T) {
	resolver := testResolver()

	// Before the event: same year.
	ranges, err := resolver.Resolve("8/1", day(2025, 7, 1))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !ranges[0].Start.Equal(day(2025, 8, 1)) {
		t.Errorf("reference 2025-07-01: got %v, want 2025-08-01", ranges[0].Start)
	}

	// Well past the event: next year.
	ranges, err = resolver.Resolve("8/1", day(2025, 9, 1))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !ranges[0].Start.Equal(day(2026, 8, 1)) {
		t.Errorf("reference 2025-09-01: got %v, want 2026-08-01", ranges[0].Start)
	}

	// Within the grace window: stays in the reference year.
	ranges, err = resolver.Resolve("8/1", day(2025, 8, 10))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !ranges[0].Start.Equal(day(2025, 8, 1)) {
		t.Errorf("reference 2025-08-10 with 14 grace days: got %v, want 2025-08-01", ranges[0].Start)
	}
}

func TestResolveLooseScan(t *testing.T) {
	resolver := testResolver()
	reference := day(2025, 6, 1)

	ranges, err := resolver.Resolve("毎年恒例 8月15日に開催", reference)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !ranges[0].Start.Equal(day(2025, 8, 15)) {
		t.Errorf("loose scan = %v, want 2025-08-15", ranges[0].Start)
	}

	// An earlier date-looking token with an impossible month must not
	// stop the scan from reaching the real date.
	ranges, err = resolver.Resolve("第99/99回記念 8月15日", reference)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !ranges[0].Start.Equal(day(2025, 8, 15)) {
		t.Errorf("loose scan past invalid token = %v, want 2025-08-15", ranges[0].Start)
	}
}

func TestResolveDottedDate(t *testing.T) {
	resolver := testResolver()
	reference := day(2025, 6, 1)

	ranges, err := resolver.Resolve("2025.8.1", reference)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(ranges) != 1 || !ranges[0].Start.Equal(day(2025, 8, 1)) || !ranges[0].End.Equal(day(2025, 8, 1)) {
		t.Errorf("Resolve(\"2025.8.1\") = %v, want single day 2025-08-01", ranges)
	}
}

func TestResolveRejectsGarbage(t *testing.T) {
	resolver := testResolver()
	reference := day(2025, 6, 1)

	for _, input := range []string{"", "日程未定", "近日公開", "毎週土曜日", "2/30"} {
		_, err := resolver.Resolve(input, reference)
		if err == nil {
			t.Errorf("Resolve(%q) succeeded, want DateParseError", input)
			continue
		}
		var parseErr *DateParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("Resolve(%q) returned %T, want *DateParseError", input, err)
		}
	}
}

func TestResolveDeterministic(t *testing.T) {
	resolver := testResolver()
	reference := day(2025, 6, 1)
	input := "2025年7月20日〜22日"

	first, err := resolver.Resolve(input, reference)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := resolver.Resolve(input, reference)
		if err != nil {
			t.Fatalf("Resolve failed on repeat: %v", err)
		}
		if len(again) != len(first) || !again[0].Start.Equal(first[0].Start) || !again[0].End.Equal(first[0].End) {
			t.Fatalf("Resolve not deterministic: %v vs %v", first, again)
		}
	}
}
