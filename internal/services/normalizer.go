package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"toyama-events-pipeline/internal/models"
)

// EventNormalizer canonicalizes raw scraped records into structured events.
// Normalize never fails: extraction failures downgrade the affected field to
// unknown and record a quality issue instead.
type EventNormalizer struct {
	resolver *DateResolver
}

// NewEventNormalizer returns a normalizer backed by the given date resolver.
func NewEventNormalizer(resolver *DateResolver) *EventNormalizer {
	if resolver == nil {
		resolver = NewDateResolver()
	}
	return &EventNormalizer{resolver: resolver}
}

// categoryRule maps keyword patterns to a category. Rules are tried in
// order; the first match wins.
type categoryRule struct {
	re       *regexp.Regexp
	category string
}

var categoryRules = []categoryRule{
	{regexp.MustCompile(`まつり|祭|花火|盆踊り|七夕|神楽|太鼓|おわら|風の盆|フェスティバル|フェア|festival`), models.CategoryFestival},
	{regexp.MustCompile(`朝市|市場|マーケット|market|マルシェ|バザー|物産展|特産品|直売|販売会`), models.CategoryMarket},
	{regexp.MustCompile(`展示|展覧|美術館|博物館|資料館|ギャラリー|アート|exhibition|art`), models.CategoryExhibition},
	{regexp.MustCompile(`スポーツ|マラソン|サッカー|野球|テニス|ゴルフ|水泳|競技|駅伝|sports|marathon`), models.CategorySports},
}

// Time-of-day patterns, tried in order. Range forms come before
// single-start forms so "10:00~15:00" is not read as a lone start time.
var (
	timeRangeColon = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*~\s*(\d{1,2}):(\d{2})`)
	timeRangeKanji = regexp.MustCompile(`(\d{1,2})時(?:(\d{1,2})分)?\s*~\s*(\d{1,2})時(?:(\d{1,2})分)?`)
	timeStartColon = regexp.MustCompile(`(\d{1,2}):(\d{2})(?:\s*開始)?`)
	timeStartKanji = regexp.MustCompile(`午(前|後)(\d{1,2})時(?:(\d{1,2})分)?`)
)

// Price patterns.
var (
	freePattern  = regexp.MustCompile(`入場無料|参加無料|無料|free|FREE`)
	adultPrice   = regexp.MustCompile(`(?:大人|一般|高校生以上)\s*[:：]?\s*(\d{1,6})\s*[円￥]`)
	childPrice   = regexp.MustCompile(`(?:子[ど供]?も|小中学生|小学生)\s*[:：]?\s*(\d{1,6})\s*[円￥]`)
	advancePrice = regexp.MustCompile(`前売り?\s*[:：]?\s*(\d{1,6})\s*[円￥]`)
	anyPrice     = regexp.MustCompile(`(\d{1,6})\s*[円￥]`)
)

// Contact patterns.
var (
	phonePattern     = regexp.MustCompile(`(?:TEL|Tel|tel|電話)\s*[:：]?\s*(\d{2,4}[-\s]?\d{2,4}[-\s]?\d{3,4})`)
	emailPattern     = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	websitePattern   = regexp.MustCompile(`https?://[^\s　]+`)
	organizerPattern = regexp.MustCompile(`(?:主催|問い?合わせ先?)\s*[:：]\s*([^\n\r　]+)`)
)

// Normalize converts one raw record into an Event. A date that cannot be
// parsed becomes a critical date_unparsed issue with an empty date list, so
// downstream stages can report the record instead of dropping it.
func (n *EventNormalizer) Normalize(rec models.RawRecord, reference time.Time, scrapeOrder int) models.Event {
	title := strings.TrimSpace(rec.Title)
	venue := strings.TrimSpace(rec.LocationText)

	event := models.Event{
		Title:          title,
		CanonicalTitle: models.CanonicalTitle(title),
		Venue:          venue,
		CanonicalVenue: models.CanonicalVenue(venue),
		Description:    strings.TrimSpace(rec.Description),
		Sources:        []models.SourceRef{{Site: rec.Source, URL: rec.URL}},
		ScrapeOrder:    scrapeOrder,
	}

	ranges, err := n.resolver.Resolve(rec.DateText, reference)
	if err != nil {
		event.Dates = nil
		event.Issues = append(event.Issues, models.QualityIssue{
			Kind:     models.IssueDateUnparsed,
			Severity: models.SeverityCritical,
			Message:  fmt.Sprintf("date text %q could not be parsed", rec.DateText),
		})
	} else {
		event.Dates = ranges
	}

	// Time of day may live in the date text or the description.
	combined := rec.DateText + " " + rec.Description
	startTime, endTime := extractTimes(combined)
	for i := range event.Dates {
		event.Dates[i].StartTime = startTime
		event.Dates[i].EndTime = endTime
	}

	event.Category = detectCategory(title + " " + rec.Description)
	event.Price = extractPrice(rec.Description)
	event.Contact = extractContact(rec.Description)

	event.ID = models.GenerateEventID(event.CanonicalTitle, event.PrimaryDate())
	return event
}

// detectCategory returns the first matching category, or other when no rule
// matches. No match is not an error.
func detectCategory(text string) string {
	folded := models.CanonicalTitle(text)
	for _, rule := range categoryRules {
		if rule.re.MatchString(folded) || rule.re.MatchString(text) {
			return rule.category
		}
	}
	return models.CategoryOther
}

// extractTimes pulls a start/end time-of-day pair from free text. Unknown
// components stay empty rather than being fabricated.
func extractTimes(text string) (string, string) {
	cleaned := CleanDateText(text)

	if m := timeRangeColon.FindStringSubmatch(cleaned); m != nil {
		return clockString(m[1], m[2]), clockString(m[3], m[4])
	}
	if m := timeRangeKanji.FindStringSubmatch(cleaned); m != nil {
		return clockString(m[1], m[2]), clockString(m[3], m[4])
	}
	if m := timeStartKanji.FindStringSubmatch(cleaned); m != nil {
		hour, _ := strconv.Atoi(m[2])
		if m[1] == "後" && hour < 12 {
			hour += 12
		}
		return clockString(strconv.Itoa(hour), m[3]), ""
	}
	if m := timeStartColon.FindStringSubmatch(cleaned); m != nil {
		return clockString(m[1], m[2]), ""
	}
	return "", ""
}

// clockString renders an HH:MM value, treating a missing minute part as 00.
// Out-of-range values yield the empty (unknown) value.
func clockString(hourStr, minStr string) string {
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour > 23 {
		return ""
	}
	minute := 0
	if minStr != "" {
		minute, err = strconv.Atoi(minStr)
		if err != nil || minute > 59 {
			return ""
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// extractPrice applies the price rules in order. Free markers beat amounts
// so "入場無料(一部500円)" reads as free.
func extractPrice(text string) models.PriceInfo {
	if text == "" {
		return models.PriceInfo{Kind: models.PriceUnknown}
	}
	if freePattern.MatchString(text) {
		return models.PriceInfo{Kind: models.PriceFree}
	}

	price := models.PriceInfo{Kind: models.PriceUnknown}
	if m := adultPrice.FindStringSubmatch(text); m != nil {
		price.AdultPrice, _ = strconv.Atoi(m[1])
		price.Kind = models.PricePaid
	}
	if m := childPrice.FindStringSubmatch(text); m != nil {
		price.ChildPrice, _ = strconv.Atoi(m[1])
		price.Kind = models.PricePaid
	}
	if m := advancePrice.FindStringSubmatch(text); m != nil {
		price.AdvancePrice, _ = strconv.Atoi(m[1])
		price.Kind = models.PricePaid
	}
	if price.Kind == models.PriceUnknown {
		if m := anyPrice.FindStringSubmatch(text); m != nil {
			price.AdultPrice, _ = strconv.Atoi(m[1])
			price.Kind = models.PricePaid
		}
	}
	return price
}

// extractContact pulls phone, email, website and organizer details from the
// description. Missing fields stay empty.
func extractContact(text string) models.ContactInfo {
	contact := models.ContactInfo{}
	if text == "" {
		return contact
	}
	if m := phonePattern.FindStringSubmatch(text); m != nil {
		contact.Phone = strings.ReplaceAll(m[1], " ", "-")
	}
	if m := emailPattern.FindString(text); m != "" {
		contact.Email = m
	}
	if m := websitePattern.FindString(text); m != "" {
		contact.Website = strings.TrimRight(m, "。、)")
	}
	if m := organizerPattern.FindStringSubmatch(text); m != nil {
		contact.Organizer = strings.TrimSpace(m[1])
	}
	return contact
}
