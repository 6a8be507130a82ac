package models

import "time"

// RawRecord represents a single scraped event listing before normalization.
// It is created once per scraped item and owned by the pipeline until it has
// been turned into an Event.
type RawRecord struct {
	Source       string `json:"source"`       // site identifier, e.g. info-toyama
	Title        string `json:"title"`
	DateText     string `json:"dateText"`     // raw, possibly malformed date notation
	LocationText string `json:"locationText"`
	Description  string `json:"description"`
	URL          string `json:"url"`
}

// RawBatch is the JSON envelope scraped input files arrive in.
type RawBatch struct {
	ScrapedAt time.Time   `json:"scrapedAt,omitempty"`
	Records   []RawRecord `json:"records"`
}

// DateRange is one inclusive calendar date span for an event. End equals
// Start for single-day events. StartTime/EndTime use HH:MM (24h) and stay
// empty when the time of day is unknown.
type DateRange struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	StartTime string    `json:"startTime,omitempty"`
	EndTime   string    `json:"endTime,omitempty"`
}

// SingleDay reports whether the range covers exactly one calendar day.
func (dr DateRange) SingleDay() bool {
	return dr.Start.Equal(dr.End)
}

// ContainsDay reports whether the given calendar day falls inside the range.
func (dr DateRange) ContainsDay(day time.Time) bool {
	d := DayOf(day)
	return !d.Before(DayOf(dr.Start)) && !d.After(DayOf(dr.End))
}

// OverlapsDays reports whether two ranges share at least one calendar day.
func (dr DateRange) OverlapsDays(other DateRange) bool {
	return !DayOf(dr.End).Before(DayOf(other.Start)) && !DayOf(other.End).Before(DayOf(dr.Start))
}

// DayOf truncates a timestamp to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SourceRef identifies one originating site/URL pair contributing to an
// Event. Merged events accumulate one SourceRef per contributing record.
type SourceRef struct {
	Site string `json:"site"`
	URL  string `json:"url"`
}

// PriceInfo captures pricing extracted from a listing.
type PriceInfo struct {
	Kind         string `json:"kind"` // free|paid|unknown
	AdultPrice   int    `json:"adultPrice,omitempty"`   // JPY
	ChildPrice   int    `json:"childPrice,omitempty"`   // JPY
	AdvancePrice int    `json:"advancePrice,omitempty"` // JPY
}

// ContactInfo captures contact details extracted from a listing.
type ContactInfo struct {
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Website   string `json:"website,omitempty"`
	Organizer string `json:"organizer,omitempty"`
}

// Empty reports whether no contact channel is known.
func (c ContactInfo) Empty() bool {
	return c.Phone == "" && c.Email == "" && c.Website == "" && c.Organizer == ""
}

// QualityIssue is one data-quality finding for an Event.
type QualityIssue struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"` // info|warning|critical
	Message  string `json:"message"`
}

// FixEntry logs one auto-fix applied during validation, with the value
// before and after so the fix is auditable and reversible.
type FixEntry struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Event is a normalized calendar entry produced by the pipeline.
type Event struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	CanonicalTitle string `json:"canonicalTitle"`

	Dates []DateRange `json:"dates"`

	Venue          string `json:"venue,omitempty"`
	CanonicalVenue string `json:"canonicalVenue,omitempty"`
	Category       string `json:"category"` // festival|market|exhibition|sports|other

	Price   PriceInfo   `json:"price"`
	Contact ContactInfo `json:"contact"`

	Description string      `json:"description,omitempty"`
	Sources     []SourceRef `json:"sources"`

	QualityScore int            `json:"qualityScore"`
	Issues       []QualityIssue `json:"issues,omitempty"`
	Fixes        []FixEntry     `json:"fixes,omitempty"`

	// ScrapeOrder is the zero-based position of the originating record in
	// the input batch. Used to break ties deterministically.
	ScrapeOrder int `json:"scrapeOrder"`
}

// PrimaryDate returns the start of the first DateRange, or the zero time
// when no date could be resolved.
func (e Event) PrimaryDate() time.Time {
	if len(e.Dates) == 0 {
		return time.Time{}
	}
	return DayOf(e.Dates[0].Start)
}

// HasCriticalIssue reports whether any recorded issue is critical. Events
// with critical issues stay in the output but are excluded from the default
// sync scope by downstream policy.
func (e Event) HasCriticalIssue() bool {
	for _, issue := range e.Issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// SyncEligible reports whether the event should be pushed to the calendar
// store given a minimum quality score. Ineligible events still appear in
// the published output.
func (e Event) SyncEligible(minScore int) bool {
	return !e.HasCriticalIssue() && e.QualityScore >= minScore
}

// HasIssue reports whether an issue of the given kind was recorded.
func (e Event) HasIssue(kind string) bool {
	for _, issue := range e.Issues {
		if issue.Kind == kind {
			return true
		}
	}
	return false
}

// Category constants
const (
	CategoryFestival   = "festival"
	CategoryMarket     = "market"
	CategoryExhibition = "exhibition"
	CategorySports     = "sports"
	CategoryOther      = "other"
)

// Issue severity constants
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Price kind constants
const (
	PriceFree    = "free"
	PricePaid    = "paid"
	PriceUnknown = "unknown"
)

// Issue kind constants
const (
	IssueDateUnparsed    = "date_unparsed"
	IssueMissingDate     = "missing_date"
	IssueMissingVenue    = "missing_venue"
	IssueMissingCategory = "missing_category"
	IssueShortTitle      = "short_title"
	IssueSuspiciousTitle = "suspicious_title"
	IssueMissingDesc     = "missing_description"
	IssueMissingPrice    = "missing_price"
	IssueMissingContact  = "missing_contact"
	IssueInvalidURL      = "invalid_url"
	IssueDateOrder       = "date_order"
	IssueTimeOrder       = "time_order"
)

// Conflict severity constants
const (
	ConflictHard = "hard"
	ConflictSoft = "soft"
)
