package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"

	"toyama-events-pipeline/internal/models"
)

// DateParseError indicates that a raw date string contained zero
// interpretable date tokens after cleanup. Callers demote it to a quality
// issue; it never aborts a batch.
type DateParseError struct {
	Raw string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("no parseable date in %q", e.Raw)
}

// DateResolver parses raw Japanese/mixed-format date strings into calendar
// date ranges. Year inference depends only on the reference date passed to
// Resolve, never on ambient process time.
type DateResolver struct {
	// GraceDays extends how far before the reference date a yearless date
	// may fall before it is rolled forward to the next year. Zero means
	// any date before the reference day rolls forward.
	GraceDays int
}

// NewDateResolver returns a resolver with the default grace window.
func NewDateResolver() *DateResolver {
	return &DateResolver{}
}

// Cleanup rules, applied in a fixed order. Each rule is individually
// idempotent so CleanDateText(CleanDateText(x)) == CleanDateText(x).
var (
	circledWeekdays = regexp.MustCompile(`[㈪㈫㈬㈭㈮㈯㈰㊊㊋㊌㊍㊎㊏㊐]`)
	parenWeekdays   = regexp.MustCompile(`\([月火水木金土日祝休・\s]{1,5}\)`)
	noteSuffix      = regexp.MustCompile(`※.*$`)
	trailingWords   = regexp.MustCompile(`(?:開催|予定|など)\s*$`)
	isoDate         = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	dottedDigits    = regexp.MustCompile(`(\d)\.(\d)`)
	rangeSeparators = regexp.MustCompile(`[〜～–—-]`)
	listSeparators  = regexp.MustCompile(`[・]`)
	whitespaceRuns  = regexp.MustCompile(`[\s　]+`)
)

// Time-of-day tokens inside a date string. Removed before date recognition
// so "9月1日~3日 19:00~23:00" does not read as a three-part range. The
// normalizer extracts times from the uncleaned text separately.
var (
	clockTokens = regexp.MustCompile(`\d{1,2}:\d{2}`)
	kanjiTimes  = regexp.MustCompile(`(?:午[前後])?\d{1,2}時(?:\d{1,2}分)?(?:開始|開演|開場|頃)?`)
)

func stripTimeTokens(cleaned string) string {
	s := clockTokens.ReplaceAllString(cleaned, "")
	s = kanjiTimes.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.Trim(s, "~ ")
}

// CleanDateText strips decorative characters and normalizes separators in a
// raw date string. Exported so the idempotence of the cleanup step can be
// verified directly.
func CleanDateText(raw string) string {
	s := width.Fold.String(raw)
	s = circledWeekdays.ReplaceAllString(s, "")
	s = parenWeekdays.ReplaceAllString(s, "")
	s = noteSuffix.ReplaceAllString(s, "")
	s = trailingWords.ReplaceAllString(s, "")
	s = isoDate.ReplaceAllString(s, "$1/$2/$3")
	// Alternating dots overlap ("2025.8.1"): each pass consumes the digit
	// the next dot needs, so repeat until stable.
	for {
		next := dottedDigits.ReplaceAllString(s, "$1/$2")
		if next == s {
			break
		}
		s = next
	}
	s = rangeSeparators.ReplaceAllString(s, "~")
	s = listSeparators.ReplaceAllString(s, "、")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Resolve parses rawText into one or more date ranges. Recognizers run in
// priority order: explicit range, adjacent-date list, single date, then a
// loose scan for any date-looking token. It fails only when nothing in the
// text can be read as a date.
func (r *DateResolver) Resolve(rawText string, reference time.Time) ([]models.DateRange, error) {
	cleaned := stripTimeTokens(CleanDateText(rawText))
	if cleaned == "" {
		return nil, &DateParseError{Raw: rawText}
	}

	if ranges, ok := r.parseExplicitRange(cleaned, reference); ok {
		return ranges, nil
	}
	if ranges, ok := r.parseAdjacentList(cleaned, reference); ok {
		return ranges, nil
	}
	if day, ok := r.parseSingle(cleaned, reference); ok {
		return []models.DateRange{{Start: day, End: day}}, nil
	}
	if day, ok := r.scanLooseDate(cleaned, reference); ok {
		return []models.DateRange{{Start: day, End: day}}, nil
	}
	return nil, &DateParseError{Raw: rawText}
}

// parseExplicitRange handles "7/20 ~ 7/22" and "2025年7月20日~22日" forms.
func (r *DateResolver) parseExplicitRange(cleaned string, reference time.Time) ([]models.DateRange, bool) {
	if !strings.Contains(cleaned, "~") {
		return nil, false
	}
	parts := splitNonEmpty(cleaned, "~")
	if len(parts) == 0 {
		return nil, false
	}

	start, ok := r.parseSingle(parts[0], reference)
	if !ok {
		start, ok = r.scanLooseDate(parts[0], reference)
		if !ok {
			return nil, false
		}
	}
	if len(parts) == 1 {
		return []models.DateRange{{Start: start, End: start}}, true
	}

	end, ok := r.completeEndDate(parts[1], start, reference)
	if !ok || end.Before(start) {
		end = start
	}
	return []models.DateRange{{Start: start, End: end}}, true
}

// completeEndDate parses the second half of a range, inheriting month and
// year from the start date when the text omits them.
func (r *DateResolver) completeEndDate(text string, start, reference time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)

	// Day only: "22日" or "22".
	if m := dayOnlyPattern.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		end, ok := makeDate(start.Year(), int(start.Month()), day)
		if !ok {
			return time.Time{}, false
		}
		if end.Before(start) {
			end = end.AddDate(0, 1, 0) // "7/30~2" means into the next month
		}
		return end, true
	}

	// Month and day: inherit the year, rolling across year end.
	if m := monthDayPattern.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		end, ok := makeDate(start.Year(), month, day)
		if !ok {
			return time.Time{}, false
		}
		if end.Before(start) {
			end = end.AddDate(1, 0, 0)
		}
		return end, true
	}

	return r.parseSingle(text, reference)
}

// parseAdjacentList handles comma-separated dates that share a month and
// year, like "2025年8月1日、2日、3日". Each entry becomes its own
// single-day range; recurrence on unrelated days is preserved, not
// collapsed.
func (r *DateResolver) parseAdjacentList(cleaned string, reference time.Time) ([]models.DateRange, bool) {
	parts := splitNonEmpty(cleaned, "、")
	if len(parts) < 2 {
		parts = splitNonEmpty(cleaned, ",")
		if len(parts) < 2 {
			return nil, false
		}
	}

	first, ok := r.parseSingle(parts[0], reference)
	if !ok {
		first, ok = r.scanLooseDate(parts[0], reference)
		if !ok {
			return nil, false
		}
	}

	ranges := []models.DateRange{{Start: first, End: first}}
	for _, part := range parts[1:] {
		if m := dayOnlyPattern.FindStringSubmatch(strings.TrimSpace(part)); m != nil {
			day, _ := strconv.Atoi(m[1])
			d, ok := makeDate(first.Year(), int(first.Month()), day)
			if !ok {
				continue
			}
			ranges = append(ranges, models.DateRange{Start: d, End: d})
			continue
		}
		if d, ok := r.parseSingle(part, reference); ok {
			ranges = append(ranges, models.DateRange{Start: d, End: d})
			continue
		}
		if d, ok := r.scanLooseDate(part, reference); ok {
			ranges = append(ranges, models.DateRange{Start: d, End: d})
		}
	}

	if len(ranges) < 2 {
		return nil, false
	}
	return ranges, true
}

var (
	dayOnlyPattern    = regexp.MustCompile(`^(\d{1,2})日?$`)
	monthDayPattern   = regexp.MustCompile(`^(\d{1,2})[月/](\d{1,2})日?$`)
	fullDatePattern   = regexp.MustCompile(`^(\d{4})[年/](\d{1,2})[月/](\d{1,2})日?$`)
	looseFullPattern  = regexp.MustCompile(`(\d{4})[年/](\d{1,2})[月/](\d{1,2})日?`)
	looseMonthPattern = regexp.MustCompile(`(\d{1,2})[月/](\d{1,2})日?`)
)

// parseSingle parses one complete date token. Month/day-only tokens get
// their year inferred relative to the reference date.
func (r *DateResolver) parseSingle(text string, reference time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)

	if m := fullDatePattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return makeDate(year, month, day)
	}

	if m := monthDayPattern.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		return r.inferYear(month, day, reference)
	}

	return time.Time{}, false
}

// scanLooseDate finds the first date-looking token anywhere in the text.
// Last-resort recognizer for strings with surrounding prose.
func (r *DateResolver) scanLooseDate(text string, reference time.Time) (time.Time, bool) {
	for _, m := range looseFullPattern.FindAllStringSubmatch(text, -1) {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if d, ok := makeDate(year, month, day); ok {
			return d, true
		}
	}
	for _, m := range looseMonthPattern.FindAllStringSubmatch(text, -1) {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if d, ok := r.inferYear(month, day, reference); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// inferYear assumes the reference year for a yearless date, rolling forward
// to the next year when the result falls more than GraceDays before the
// reference day. Deterministic for a fixed reference.
func (r *DateResolver) inferYear(month, day int, reference time.Time) (time.Time, bool) {
	candidate, ok := makeDate(reference.Year(), month, day)
	if !ok {
		return time.Time{}, false
	}
	cutoff := models.DayOf(reference).AddDate(0, 0, -r.GraceDays)
	if candidate.Before(cutoff) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate, true
}

// makeDate builds a UTC calendar day, rejecting impossible month/day
// combinations that time.Date would silently normalize.
func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(d.Month()) != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
