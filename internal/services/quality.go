package services

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"toyama-events-pipeline/internal/models"
)

// QualityValidator scores events and applies conservative auto-fixes. Every
// fix is recorded on the event so a run report can show what changed.
type QualityValidator struct {
	// Logger defaults to the standard logger when nil.
	Logger *log.Logger
}

func NewQualityValidator() *QualityValidator {
	return &QualityValidator{Logger: log.Default()}
}

// Fixed penalty per issue kind. The score starts at 100 and each detected
// issue subtracts its penalty, clamped to [0, 100].
var qualityPenalties = map[string]int{
	models.IssueMissingDate:     30,
	models.IssueDateUnparsed:    30,
	models.IssueMissingVenue:    15,
	models.IssueShortTitle:      10,
	models.IssueSuspiciousTitle: 10,
	models.IssueMissingCategory: 5,
	models.IssueMissingDesc:     5,
	models.IssueMissingPrice:    5,
	models.IssueMissingContact:  5,
	models.IssueInvalidURL:      5,
	models.IssueDateOrder:       5,
	models.IssueTimeOrder:       5,
}

var severityFor = map[string]string{
	models.IssueMissingDate:     models.SeverityCritical,
	models.IssueDateUnparsed:    models.SeverityCritical,
	models.IssueMissingVenue:    models.SeverityWarning,
	models.IssueShortTitle:      models.SeverityWarning,
	models.IssueSuspiciousTitle: models.SeverityWarning,
	models.IssueMissingCategory: models.SeverityInfo,
	models.IssueMissingDesc:     models.SeverityInfo,
	models.IssueMissingPrice:    models.SeverityInfo,
	models.IssueMissingContact:  models.SeverityInfo,
	models.IssueInvalidURL:      models.SeverityInfo,
	models.IssueDateOrder:       models.SeverityWarning,
	models.IssueTimeOrder:       models.SeverityWarning,
}

var (
	suspiciousWords = regexp.MustCompile(`(?i)test|テスト|sample|サンプル|dummy|ダミー|未定|TBD|仮`)
	digitsOnlyTitle = regexp.MustCompile(`^[\d\s/\-.]+$`)
)

// Validate applies auto-fixes, detects issues and returns the scored event.
// Input events are not mutated.
func (v *QualityValidator) Validate(event models.Event) models.Event {
	fixed := v.autoFix(event)

	var issues []models.QualityIssue

	// Date issues from normalization survive re-validation.
	for _, issue := range fixed.Issues {
		if issue.Kind == models.IssueDateUnparsed {
			issues = append(issues, issue)
		}
	}

	if len(fixed.Dates) == 0 && !hasIssueKind(issues, models.IssueDateUnparsed) {
		issues = addIssue(issues, models.IssueMissingDate, "event has no dates")
	}
	if fixed.Venue == "" {
		issues = addIssue(issues, models.IssueMissingVenue, "venue is empty")
	}
	if fixed.Category == models.CategoryOther {
		issues = addIssue(issues, models.IssueMissingCategory, "no category keyword matched")
	}
	if runeLen(fixed.Title) < 3 {
		issues = addIssue(issues, models.IssueShortTitle, fmt.Sprintf("title %q is too short", fixed.Title))
	}
	if isSuspiciousTitle(fixed.Title) {
		issues = addIssue(issues, models.IssueSuspiciousTitle, fmt.Sprintf("title %q looks like placeholder text", fixed.Title))
	}
	if fixed.Description == "" {
		issues = addIssue(issues, models.IssueMissingDesc, "description is empty")
	}
	if fixed.Price.Kind == "" {
		fixed.Price.Kind = models.PriceUnknown
	}
	if fixed.Price.Kind == models.PriceUnknown {
		issues = addIssue(issues, models.IssueMissingPrice, "no price information")
	}
	if fixed.Contact.Empty() {
		issues = addIssue(issues, models.IssueMissingContact, "no contact information")
	}
	for _, src := range fixed.Sources {
		if src.URL != "" && !models.IsValidURL(src.URL) {
			issues = addIssue(issues, models.IssueInvalidURL, fmt.Sprintf("source URL %q is not absolute http(s)", src.URL))
			break
		}
	}

	score := 100
	for _, issue := range issues {
		score -= qualityPenalties[issue.Kind]
	}
	if score < 0 {
		score = 0
	}

	fixed.Issues = issues
	fixed.QualityScore = score
	return fixed
}

// autoFix applies the safe normalizations: whitespace cleanup on title and
// venue, defaulting an empty category, and swapping reversed date or time
// pairs. Each applied fix is logged and recorded.
func (v *QualityValidator) autoFix(event models.Event) models.Event {
	logger := v.Logger
	if logger == nil {
		logger = log.Default()
	}

	record := func(field, before, after string) {
		event.Fixes = append(event.Fixes, models.FixEntry{Field: field, Before: before, After: after})
		logger.Printf("auto-fix %s: %q -> %q (event %s)", field, before, after, event.ID)
	}

	if cleaned := cleanWhitespace(event.Title); cleaned != event.Title {
		record("title", event.Title, cleaned)
		event.Title = cleaned
		event.CanonicalTitle = models.CanonicalTitle(cleaned)
	}
	if cleaned := cleanWhitespace(event.Venue); cleaned != event.Venue {
		record("venue", event.Venue, cleaned)
		event.Venue = cleaned
		event.CanonicalVenue = models.CanonicalVenue(cleaned)
	}
	if !models.ValidateCategory(event.Category) {
		record("category", event.Category, models.CategoryOther)
		event.Category = models.CategoryOther
	}

	if len(event.Dates) > 0 {
		dates := make([]models.DateRange, len(event.Dates))
		copy(dates, event.Dates)
		event.Dates = dates
	}
	for i, dr := range event.Dates {
		if !dr.Start.IsZero() && !dr.End.IsZero() && dr.End.Before(dr.Start) {
			record("dates", dr.Start.Format("2006-01-02"), dr.End.Format("2006-01-02"))
			event.Dates[i].Start, event.Dates[i].End = dr.End, dr.Start
		}
		if dr.StartTime != "" && dr.EndTime != "" && dr.EndTime < dr.StartTime {
			record("times", dr.StartTime, dr.EndTime)
			event.Dates[i].StartTime, event.Dates[i].EndTime = dr.EndTime, dr.StartTime
		}
	}
	return event
}

func cleanWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " "))
}

// isSuspiciousTitle flags placeholder-looking titles: known filler words,
// digit-only strings, or long runs of a repeated character.
func isSuspiciousTitle(title string) bool {
	if title == "" {
		return false
	}
	return suspiciousWords.MatchString(title) ||
		digitsOnlyTitle.MatchString(title) ||
		hasRepeatedRun(title, 5)
}

// hasRepeatedRun reports whether any rune repeats n or more times in a row.
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	count := 0
	for _, r := range s {
		if r == prev {
			count++
			if count >= n {
				return true
			}
		} else {
			prev, count = r, 1
		}
	}
	return false
}

func addIssue(issues []models.QualityIssue, kind, message string) []models.QualityIssue {
	return append(issues, models.QualityIssue{
		Kind:     kind,
		Severity: severityFor[kind],
		Message:  message,
	})
}

func hasIssueKind(issues []models.QualityIssue, kind string) bool {
	for _, issue := range issues {
		if issue.Kind == kind {
			return true
		}
	}
	return false
}

func runeLen(s string) int {
	return len([]rune(s))
}
