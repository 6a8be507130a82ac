package services

import (
	"testing"
	"time"

	"toyama-events-pipeline/internal/models"
)

func TestNormalizeCompleteRecord(t *testing.T) {
	normalizer := NewEventNormalizer(testResolver())
	reference := day(2025, 6, 1)

	rec := models.RawRecord{
		Source:       "info-toyama",
		Title:        "第30回 おわら風の盆",
		DateText:     "2025年9月1日〜3日 19:00〜23:00",
		LocationText: "八尾町中心部",
		Description:  "富山の代表的な祭り。入場無料。問い合わせ先: 観光協会 TEL: 076-123-4567 https://www.info-toyama.com/owara",
		URL:          "https://www.info-toyama.com/events/owara",
	}

	event := normalizer.Normalize(rec, reference, 0)

	if event.ID == "" {
		t.Error("event ID not generated")
	}
	if event.CanonicalTitle != models.CanonicalTitle(rec.Title) {
		t.Errorf("canonical title mismatch: %q", event.CanonicalTitle)
	}
	if len(event.Dates) != 1 {
		t.Fatalf("expected 1 date range, got %d", len(event.Dates))
	}
	dr := event.Dates[0]
	if !dr.Start.Equal(day(2025, 9, 1)) || !dr.End.Equal(day(2025, 9, 3)) {
		t.Errorf("dates = %v..%v, want 2025-09-01..2025-09-03", dr.Start, dr.End)
	}
	if dr.StartTime != "19:00" || dr.EndTime != "23:00" {
		t.Errorf("times = %q..%q, want 19:00..23:00", dr.StartTime, dr.EndTime)
	}
	if event.Category != models.CategoryFestival {
		t.Errorf("category = %q, want festival", event.Category)
	}
	if event.Price.Kind != models.PriceFree {
		t.Errorf("price kind = %q, want free", event.Price.Kind)
	}
	if event.Contact.Phone != "076-123-4567" {
		t.Errorf("phone = %q, want 076-123-4567", event.Contact.Phone)
	}
	if event.Contact.Website == "" {
		t.Error("website not extracted")
	}
	if len(event.Sources) != 1 || event.Sources[0].Site != "info-toyama" {
		t.Errorf("sources = %v", event.Sources)
	}
}

func TestNormalizeUnparsableDateNeverFails(t *testing.T) {
	normalizer := NewEventNormalizer(testResolver())

	rec := models.RawRecord{
		Source:   "toyama-life",
		Title:    "開催日未定のイベント",
		DateText: "日程は追ってお知らせします",
	}

	event := normalizer.Normalize(rec, day(2025, 6, 1), 3)

	if len(event.Dates) != 0 {
		t.Errorf("expected no dates, got %v", event.Dates)
	}
	if !event.HasIssue(models.IssueDateUnparsed) {
		t.Fatalf("expected date_unparsed issue, got %v", event.Issues)
	}
	for _, issue := range event.Issues {
		if issue.Kind == models.IssueDateUnparsed && issue.Severity != models.SeverityCritical {
			t.Errorf("date_unparsed severity = %q, want critical", issue.Severity)
		}
	}
	if event.ID == "" {
		t.Error("event without dates still needs an ID")
	}
	if event.ScrapeOrder != 3 {
		t.Errorf("scrape order = %d, want 3", event.ScrapeOrder)
	}
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"となみチューリップフェア", models.CategoryFestival},
		{"高岡朝市", models.CategoryMarket},
		{"富山県美術館コレクション展", models.CategoryExhibition},
		{"富山マラソン2025", models.CategorySports},
		{"なにかの集まり", models.CategoryOther},
	}

	for _, tt := range tests {
		if got := detectCategory(tt.text); got != tt.want {
			t.Errorf("detectCategory(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestExtractTimes(t *testing.T) {
	tests := []struct {
		text      string
		wantStart string
		wantEnd   string
	}{
		{"10:00〜15:00", "10:00", "15:00"},
		{"10時〜15時30分", "10:00", "15:30"},
		{"午後7時開演", "19:00", ""},
		{"午前9時30分", "09:30", ""},
		{"19:00開始", "19:00", ""},
		{"時間未定", "", ""},
	}

	for _, tt := range tests {
		start, end := extractTimes(tt.text)
		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("extractTimes(%q) = %q, %q, want %q, %q",
				tt.text, start, end, tt.wantStart, tt.wantEnd)
		}
	}
}

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		text  string
		kind  string
		adult int
	}{
		{"入場無料", models.PriceFree, 0},
		{"大人 1500円、子ども 500円", models.PricePaid, 1500},
		{"前売 1200円", models.PricePaid, 0},
		{"観覧自由", models.PriceUnknown, 0},
		{"", models.PriceUnknown, 0},
	}

	for _, tt := range tests {
		price := extractPrice(tt.text)
		if price.Kind != tt.kind {
			t.Errorf("extractPrice(%q).Kind = %q, want %q", tt.text, price.Kind, tt.kind)
		}
		if price.AdultPrice != tt.adult {
			t.Errorf("extractPrice(%q).AdultPrice = %d, want %d", tt.text, price.AdultPrice, tt.adult)
		}
	}
}

func TestExtractContact(t *testing.T) {
	text := "主催: 富山市観光協会\nTEL: 076-443-2072 info@toyama-kankou.jp https://toyama-kankou.jp/events"
	contact := extractContact(text)

	if contact.Organizer != "富山市観光協会" {
		t.Errorf("organizer = %q", contact.Organizer)
	}
	if contact.Phone != "076-443-2072" {
		t.Errorf("phone = %q", contact.Phone)
	}
	if contact.Email != "info@toyama-kankou.jp" {
		t.Errorf("email = %q", contact.Email)
	}
	if contact.Website != "https://toyama-kankou.jp/events" {
		t.Errorf("website = %q", contact.Website)
	}

	if !(models.ContactInfo{}).Empty() {
		t.Error("zero ContactInfo should be Empty")
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	normalizer := NewEventNormalizer(testResolver())
	reference := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := models.RawRecord{
		Source:   "info-toyama",
		Title:    "富山まつり",
		DateText: "8/2〜8/3",
	}

	first := normalizer.Normalize(rec, reference, 0)
	second := normalizer.Normalize(rec, reference, 0)
	if first.ID != second.ID {
		t.Errorf("same input produced different IDs: %s vs %s", first.ID, second.ID)
	}
}
