package services

import (
	"testing"

	"toyama-events-pipeline/internal/models"
)

func baseEvent() models.Event {
	return models.Event{
		ID:             "evt_test",
		Title:          "おわら風の盆",
		CanonicalTitle: models.CanonicalTitle("おわら風の盆"),
		Venue:          "八尾町中心部",
		CanonicalVenue: models.CanonicalVenue("八尾町中心部"),
		Category:       models.CategoryFestival,
		Description:    "富山の代表的な祭り",
		Price:          models.PriceInfo{Kind: models.PriceFree},
		Contact:        models.ContactInfo{Phone: "076-123-4567"},
		Dates: []models.DateRange{
			{Start: day(2025, 9, 1), End: day(2025, 9, 3)},
		},
		Sources: []models.SourceRef{{Site: "info-toyama", URL: "https://www.info-toyama.com/ev/1"}},
	}
}

func TestValidatePerfectEvent(t *testing.T) {
	validator := NewQualityValidator()

	event := validator.Validate(baseEvent())
	if event.QualityScore != 100 {
		t.Errorf("complete event scored %d, want 100; issues: %v", event.QualityScore, event.Issues)
	}
	if len(event.Issues) != 0 {
		t.Errorf("complete event has issues: %v", event.Issues)
	}
}

func TestValidatePenalties(t *testing.T) {
	validator := NewQualityValidator()

	tests := []struct {
		name      string
		mutate    func(*models.Event)
		issueKind string
		severity  string
		penalty   int
	}{
		{"missing dates", func(e *models.Event) { e.Dates = nil }, models.IssueMissingDate, models.SeverityCritical, 30},
		{"missing venue", func(e *models.Event) { e.Venue = ""; e.CanonicalVenue = "" }, models.IssueMissingVenue, models.SeverityWarning, 15},
		{"short title", func(e *models.Event) { e.Title = "祭" }, models.IssueShortTitle, models.SeverityWarning, 10},
		{"suspicious title", func(e *models.Event) { e.Title = "テストイベント" }, models.IssueSuspiciousTitle, models.SeverityWarning, 10},
		{"missing description", func(e *models.Event) { e.Description = "" }, models.IssueMissingDesc, models.SeverityInfo, 5},
		{"unknown price", func(e *models.Event) { e.Price = models.PriceInfo{Kind: models.PriceUnknown} }, models.IssueMissingPrice, models.SeverityInfo, 5},
		{"no contact", func(e *models.Event) { e.Contact = models.ContactInfo{} }, models.IssueMissingContact, models.SeverityInfo, 5},
		{"bad source URL", func(e *models.Event) { e.Sources[0].URL = "not-a-url" }, models.IssueInvalidURL, models.SeverityInfo, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := baseEvent()
			tt.mutate(&event)
			scored := validator.Validate(event)

			if !scored.HasIssue(tt.issueKind) {
				t.Fatalf("expected issue %s, got %v", tt.issueKind, scored.Issues)
			}
			for _, issue := range scored.Issues {
				if issue.Kind == tt.issueKind && issue.Severity != tt.severity {
					t.Errorf("issue %s severity = %q, want %q", tt.issueKind, issue.Severity, tt.severity)
				}
			}
			if want := 100 - tt.penalty; scored.QualityScore != want {
				t.Errorf("score = %d, want %d; issues: %v", scored.QualityScore, want, scored.Issues)
			}
		})
	}
}

func TestValidateScoreClamped(t *testing.T) {
	validator := NewQualityValidator()

	event := validator.Validate(models.Event{Title: "x"})
	if event.QualityScore < 0 || event.QualityScore > 100 {
		t.Errorf("score %d outside [0,100]", event.QualityScore)
	}
}

func TestValidateMonotonic(t *testing.T) {
	validator := NewQualityValidator()

	// Start from a sparse event and improve one field at a time. The
	// score must never go down.
	event := models.Event{
		Title: "富山のイベント情報",
		Dates: []models.DateRange{{Start: day(2025, 8, 1), End: day(2025, 8, 1)}},
	}
	prev := validator.Validate(event).QualityScore

	improvements := []func(*models.Event){
		func(e *models.Event) { e.Venue = "富山市民プラザ" },
		func(e *models.Event) { e.Category = models.CategoryFestival },
		func(e *models.Event) { e.Description = "詳細な説明" },
		func(e *models.Event) { e.Price = models.PriceInfo{Kind: models.PriceFree} },
		func(e *models.Event) { e.Contact = models.ContactInfo{Phone: "076-000-0000"} },
	}

	for i, improve := range improvements {
		improve(&event)
		score := validator.Validate(event).QualityScore
		if score < prev {
			t.Errorf("improvement %d lowered score from %d to %d", i, prev, score)
		}
		prev = score
	}
}

func TestAutoFixWhitespace(t *testing.T) {
	validator := NewQualityValidator()

	event := baseEvent()
	event.Title = "  おわら風の盆 　 前夜祭  "
	scored := validator.Validate(event)

	if scored.Title != "おわら風の盆 前夜祭" {
		t.Errorf("title = %q, want whitespace collapsed", scored.Title)
	}
	if len(scored.Fixes) == 0 {
		t.Fatal("whitespace fix not recorded")
	}
	if scored.Fixes[0].Field != "title" {
		t.Errorf("fix field = %q, want title", scored.Fixes[0].Field)
	}
}

func TestAutoFixReversedDates(t *testing.T) {
	validator := NewQualityValidator()

	event := baseEvent()
	event.Dates = []models.DateRange{{
		Start:     day(2025, 9, 3),
		End:       day(2025, 9, 1),
		StartTime: "23:00",
		EndTime:   "19:00",
	}}
	scored := validator.Validate(event)

	dr := scored.Dates[0]
	if dr.End.Before(dr.Start) {
		t.Errorf("dates still reversed: %v..%v", dr.Start, dr.End)
	}
	if dr.StartTime > dr.EndTime {
		t.Errorf("times still reversed: %s..%s", dr.StartTime, dr.EndTime)
	}
	if len(scored.Fixes) < 2 {
		t.Errorf("expected date and time fixes recorded, got %v", scored.Fixes)
	}
}

func TestSuspiciousTitles(t *testing.T) {
	suspicious := []string{"テスト", "sample event", "ダミー", "12345", "ああああああ", "タイトル未定"}
	for _, title := range suspicious {
		if !isSuspiciousTitle(title) {
			t.Errorf("isSuspiciousTitle(%q) = false, want true", title)
		}
	}

	legitimate := []string{"おわら風の盆", "となみチューリップフェア", "高岡御車山祭"}
	for _, title := range legitimate {
		if isSuspiciousTitle(title) {
			t.Errorf("isSuspiciousTitle(%q) = true, want false", title)
		}
	}
}
