package models

import "time"

// EventsMetadata describes a published events file.
type EventsMetadata struct {
	GeneratedAt time.Time `json:"generatedAt"`
	EventCount  int       `json:"eventCount"`
	Sources     []string  `json:"sources"`
	Version     string    `json:"version"`
}

// EventsOutput is the JSON document published for downstream consumers.
type EventsOutput struct {
	Metadata EventsMetadata `json:"metadata"`
	Events   []Event        `json:"events"`
}

// NewEventsMetadata builds metadata for a publish of the given events.
func NewEventsMetadata(events []Event) EventsMetadata {
	seen := map[string]bool{}
	var sources []string
	for _, ev := range events {
		for _, src := range ev.Sources {
			if src.Site != "" && !seen[src.Site] {
				seen[src.Site] = true
				sources = append(sources, src.Site)
			}
		}
	}
	return EventsMetadata{
		GeneratedAt: time.Now().UTC(),
		EventCount:  len(events),
		Sources:     sources,
		Version:     "1.0",
	}
}

// PairScore records the similarity that justified grouping two events.
type PairScore struct {
	EventID1 string  `json:"eventId1"`
	EventID2 string  `json:"eventId2"`
	Score    float64 `json:"score"`
}

// DuplicateCluster is a set of events believed to denote one real-world
// event. Built by the deduplicator, consumed immediately to produce the
// merged event, kept only for reporting.
type DuplicateCluster struct {
	EventIDs         []string    `json:"eventIds"`
	RepresentativeID string      `json:"representativeId"`
	PairScores       []PairScore `json:"pairScores"`
	// MinPairScore is the weakest direct similarity inside the cluster.
	// A low value flags possible over-merging through transitive chains.
	MinPairScore float64 `json:"minPairScore"`
}

// Conflict is one advisory scheduling collision between two events.
type Conflict struct {
	EventID1         string `json:"eventId1"`
	EventID2         string `json:"eventId2"`
	Date             string `json:"date"` // first shared calendar day, ISO
	Venue            string `json:"venue"`
	Severity         string `json:"severity"` // hard|soft
	OverlapMinutes   int    `json:"overlapMinutes,omitempty"`
	CapacityExceeded bool   `json:"capacityExceeded,omitempty"`
	Note             string `json:"note,omitempty"`
}

// ConflictReport is the full advisory output of the schedule analyzer.
// Regenerated on every run, never persisted.
type ConflictReport struct {
	Conflicts []Conflict `json:"conflicts"`
}

// HardCount returns the number of hard conflicts in the report.
func (r ConflictReport) HardCount() int {
	n := 0
	for _, c := range r.Conflicts {
		if c.Severity == ConflictHard {
			n++
		}
	}
	return n
}

// RunStats aggregates per-run counters for reporting.
type RunStats struct {
	RecordsProcessed  int `json:"recordsProcessed"`
	EventsMerged      int `json:"eventsMerged"`
	DuplicatesRemoved int `json:"duplicatesRemoved"`
	IssuesFound       int `json:"issuesFound"`
	AutoFixesApplied  int `json:"autoFixesApplied"`
	ConflictsFound    int `json:"conflictsFound"`
	SyncEligible      int `json:"syncEligible"`
}

// EventSummary is the per-event line item in a run report.
type EventSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Date         string `json:"date,omitempty"`
	Venue        string `json:"venue,omitempty"`
	Category     string `json:"category"`
	QualityScore int    `json:"qualityScore"`
	Critical     bool   `json:"critical,omitempty"`
	Sources      int    `json:"sources"`
}

// RunReport is the machine-readable summary of one pipeline run, consumed
// by the reporting collaborator.
type RunReport struct {
	RunID         string             `json:"runId"`
	ReferenceDate string             `json:"referenceDate"`
	Stats         RunStats           `json:"stats"`
	QualityGrade  string             `json:"qualityGrade"`
	AverageScore  float64            `json:"averageScore"`
	ByCategory    map[string]int     `json:"byCategory"`
	BySource      map[string]int     `json:"bySource"`
	Events        []EventSummary     `json:"events"`
	Clusters      []DuplicateCluster `json:"clusters,omitempty"`
	Conflicts     []Conflict         `json:"conflicts,omitempty"`
}

// QualityGrade maps an average quality score to a letter grade.
func QualityGrade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
