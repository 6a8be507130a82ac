package services

import (
	"fmt"
	"math"
	"sort"

	"toyama-events-pipeline/internal/models"
)

// VenueInfo describes a known venue: coordinates and rough capacity.
type VenueInfo struct {
	Name     string
	Lat      float64
	Lon      float64
	Capacity int
}

// Geocoder resolves a venue name to coordinates. Implementations may call
// out to an external service; the analyzer treats a false return as
// "location unknown" and skips proximity checks.
type Geocoder interface {
	Geocode(venue string) (lat, lon float64, ok bool)
}

// ScheduleAnalyzer detects scheduling conflicts between events. It is
// read-only: input events are never modified.
type ScheduleAnalyzer struct {
	// ProximityKm is the distance under which two different venues are
	// considered close enough to compete for the same audience.
	ProximityKm float64
	// Geocoder is optional. When nil, only registry venues have
	// coordinates.
	Geocoder Geocoder

	venues map[string]VenueInfo
}

// Registry of major Toyama venues. Keys are canonical venue names.
var toyamaVenues = []VenueInfo{
	{Name: "富山市総合体育館", Lat: 36.7006, Lon: 137.2137, Capacity: 5000},
	{Name: "富山県民会館", Lat: 36.6953, Lon: 137.2113, Capacity: 1500},
	{Name: "富山国際会議場", Lat: 36.6889, Lon: 137.2108, Capacity: 800},
	{Name: "富山市民プラザ", Lat: 36.6912, Lon: 137.2095, Capacity: 600},
	{Name: "富岩運河環水公園", Lat: 36.7104, Lon: 137.2155, Capacity: 10000},
	{Name: "富山城址公園", Lat: 36.6937, Lon: 137.2107, Capacity: 8000},
	{Name: "高岡テクノドーム", Lat: 36.7297, Lon: 137.0166, Capacity: 4000},
	{Name: "高岡古城公園", Lat: 36.7461, Lon: 137.0239, Capacity: 12000},
	{Name: "魚津総合公園", Lat: 36.8317, Lon: 137.4196, Capacity: 6000},
	{Name: "八尾町中心部", Lat: 36.5833, Lon: 137.1500, Capacity: 20000},
	{Name: "砺波チューリップ公園", Lat: 36.6481, Lon: 136.9622, Capacity: 15000},
	{Name: "黒部市総合公園", Lat: 36.8700, Lon: 137.4400, Capacity: 5000},
}

func NewScheduleAnalyzer() *ScheduleAnalyzer {
	venues := make(map[string]VenueInfo, len(toyamaVenues))
	for _, v := range toyamaVenues {
		venues[models.CanonicalVenue(v.Name)] = v
	}
	return &ScheduleAnalyzer{ProximityKm: 2.0, venues: venues}
}

// LookupVenue returns registry details for a venue name, if known.
func (s *ScheduleAnalyzer) LookupVenue(venue string) (VenueInfo, bool) {
	info, ok := s.venues[models.CanonicalVenue(venue)]
	return info, ok
}

// categoryDraw scales attendance estimates by how broadly each category
// pulls visitors.
var categoryDraw = map[string]float64{
	models.CategoryFestival:   20.0,
	models.CategoryMarket:     5.0,
	models.CategorySports:     8.0,
	models.CategoryExhibition: 3.0,
	models.CategoryOther:      2.0,
}

// EstimateAttendance returns a rough expected head count for an event,
// derived from its category and quality score. Never below 10.
func (s *ScheduleAnalyzer) EstimateAttendance(event models.Event) int {
	draw, ok := categoryDraw[event.Category]
	if !ok {
		draw = categoryDraw[models.CategoryOther]
	}
	estimate := int(100 * draw * float64(event.QualityScore) / 100)
	if estimate < 10 {
		estimate = 10
	}
	return estimate
}

// Analyze examines every pair of events sharing a calendar day and reports
// conflicts. Two events at the same venue with overlapping time-of-day
// windows are a hard conflict; same venue without a provable time overlap,
// or distinct venues within ProximityKm, is a soft conflict. A nearby-venue
// pair whose combined attendance estimate exceeds the smaller venue's
// capacity is escalated to hard.
func (s *ScheduleAnalyzer) Analyze(events []models.Event) models.ConflictReport {
	report := models.ConflictReport{}

	byDay := map[string][]int{}
	for i, ev := range events {
		seen := map[string]bool{}
		for _, dr := range ev.Dates {
			for day := models.DayOf(dr.Start); !day.After(models.DayOf(dr.End)); day = day.AddDate(0, 0, 1) {
				key := day.Format("2006-01-02")
				if !seen[key] {
					seen[key] = true
					byDay[key] = append(byDay[key], i)
				}
			}
		}
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	reported := map[[2]string]bool{}
	for _, day := range days {
		idxs := byDay[day]
		for a := 0; a < len(idxs); a++ {
			for b := a + 1; b < len(idxs); b++ {
				e1, e2 := &events[idxs[a]], &events[idxs[b]]
				conflict, ok := s.checkPair(e1, e2, day)
				if !ok {
					continue
				}
				key := [2]string{e1.ID, e2.ID}
				if key[0] > key[1] {
					key[0], key[1] = key[1], key[0]
				}
				if reported[key] {
					continue
				}
				reported[key] = true
				report.Conflicts = append(report.Conflicts, conflict)
			}
		}
	}
	return report
}

func (s *ScheduleAnalyzer) checkPair(e1, e2 *models.Event, day string) (models.Conflict, bool) {
	sameVenue := e1.CanonicalVenue != "" && e1.CanonicalVenue == e2.CanonicalVenue

	var distKm float64 = -1
	if !sameVenue {
		if lat1, lon1, ok1 := s.locate(e1.Venue); ok1 {
			if lat2, lon2, ok2 := s.locate(e2.Venue); ok2 {
				distKm = haversineKm(lat1, lon1, lat2, lon2)
			}
		}
	}

	nearby := distKm >= 0 && distKm <= s.ProximityKm
	if !sameVenue && !nearby {
		return models.Conflict{}, false
	}

	overlap := timeOverlapMinutes(e1, e2)
	conflict := models.Conflict{
		EventID1:       e1.ID,
		EventID2:       e2.ID,
		Date:           day,
		Venue:          e1.Venue,
		OverlapMinutes: overlap,
	}

	switch {
	case sameVenue && overlap > 0:
		conflict.Severity = models.ConflictHard
		conflict.Note = fmt.Sprintf("same venue, %d minute overlap", overlap)
	case sameVenue:
		conflict.Severity = models.ConflictSoft
		conflict.Note = "same venue, time windows unknown or disjoint"
	default:
		conflict.Severity = models.ConflictSoft
		conflict.Venue = ""
		conflict.Note = fmt.Sprintf("venues %.1f km apart", distKm)
	}

	combined := s.EstimateAttendance(*e1) + s.EstimateAttendance(*e2)
	if sameVenue {
		if info, ok := s.LookupVenue(e1.Venue); ok && combined > info.Capacity {
			conflict.CapacityExceeded = true
			if conflict.Severity == models.ConflictSoft {
				conflict.Note += fmt.Sprintf("; combined attendance %d exceeds capacity %d", combined, info.Capacity)
			}
		}
	} else if limit, ok := s.smallerCapacity(e1.Venue, e2.Venue); ok && combined > limit {
		// Nearby venues compete for one crowd; judge against the tighter
		// of the two capacities, and treat an overflow as hard.
		conflict.CapacityExceeded = true
		conflict.Severity = models.ConflictHard
		conflict.Note += fmt.Sprintf("; combined attendance %d exceeds nearby capacity %d", combined, limit)
	}
	return conflict, true
}

// smallerCapacity returns the smallest known registry capacity among the
// two venues.
func (s *ScheduleAnalyzer) smallerCapacity(v1, v2 string) (int, bool) {
	limit := 0
	for _, v := range []string{v1, v2} {
		if info, ok := s.LookupVenue(v); ok && info.Capacity > 0 {
			if limit == 0 || info.Capacity < limit {
				limit = info.Capacity
			}
		}
	}
	return limit, limit > 0
}

func (s *ScheduleAnalyzer) locate(venue string) (float64, float64, bool) {
	if info, ok := s.LookupVenue(venue); ok {
		return info.Lat, info.Lon, true
	}
	if s.Geocoder != nil {
		return s.Geocoder.Geocode(venue)
	}
	return 0, 0, false
}

// timeOverlapMinutes measures the overlap of the two events' time-of-day
// windows in minutes. Unknown times count as no provable overlap.
func timeOverlapMinutes(e1, e2 *models.Event) int {
	s1, en1, ok1 := timeWindow(e1)
	s2, en2, ok2 := timeWindow(e2)
	if !ok1 || !ok2 {
		return 0
	}
	start := s1
	if s2 > start {
		start = s2
	}
	end := en1
	if en2 < end {
		end = en2
	}
	if end <= start {
		return 0
	}
	return end - start
}

// timeWindow returns the event's first time-of-day window in minutes since
// midnight. An event with a start but no end is assumed to run two hours.
func timeWindow(e *models.Event) (start, end int, ok bool) {
	for _, dr := range e.Dates {
		if dr.StartTime == "" {
			continue
		}
		start, ok = parseClock(dr.StartTime)
		if !ok {
			continue
		}
		if dr.EndTime != "" {
			if end, ok = parseClock(dr.EndTime); ok && end > start {
				return start, end, true
			}
		}
		return start, start + 120, true
	}
	return 0, 0, false
}

func parseClock(hhmm string) (int, bool) {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return 0, false
	}
	hour := int(hhmm[0]-'0')*10 + int(hhmm[1]-'0')
	minute := int(hhmm[3]-'0')*10 + int(hhmm[4]-'0')
	if hour > 23 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// haversineKm returns the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
