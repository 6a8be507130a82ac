package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"toyama-events-pipeline/internal/models"
)

// PipelineOptions controls one batch run.
type PipelineOptions struct {
	// ReferenceNow anchors year inference for dates without a year.
	// Zero means time.Now().
	ReferenceNow time.Time
	// MinQualityScore marks merged events scoring below it as ineligible
	// for sync. They stay in the published output, flagged for review.
	MinQualityScore int
	FuzzyThreshold  float64
	GreyZoneLow     float64
	GraceDays       int
	DryRun          bool
}

// PipelineResult is everything one run produced.
type PipelineResult struct {
	Events    []models.Event
	Clusters  []models.DuplicateCluster
	Conflicts models.ConflictReport
	Report    models.RunReport
}

// Pipeline runs the full normalize, validate, deduplicate, analyze
// sequence over a scraped batch.
type Pipeline struct {
	normalizer *EventNormalizer
	validator  *QualityValidator
	dedup      *Deduplicator
	scheduler  *ScheduleAnalyzer
	opts       PipelineOptions
}

// NewPipeline builds a pipeline from options, applying defaults for any
// zero-valued tunables.
func NewPipeline(opts PipelineOptions) *Pipeline {
	if opts.FuzzyThreshold == 0 {
		opts.FuzzyThreshold = 0.85
	}
	if opts.GreyZoneLow == 0 {
		opts.GreyZoneLow = 0.70
	}
	if opts.GraceDays == 0 {
		opts.GraceDays = 14
	}

	resolver := NewDateResolver()
	resolver.GraceDays = opts.GraceDays

	dedup := NewDeduplicator()
	dedup.FuzzyThreshold = opts.FuzzyThreshold
	dedup.GreyZoneLow = opts.GreyZoneLow

	return &Pipeline{
		normalizer: NewEventNormalizer(resolver),
		validator:  NewQualityValidator(),
		dedup:      dedup,
		scheduler:  NewScheduleAnalyzer(),
		opts:       opts,
	}
}

// Run processes a batch of raw records. A structurally broken record (no
// title at all) fails the run; everything softer degrades into quality
// issues on the produced event.
func (p *Pipeline) Run(records []models.RawRecord) (*PipelineResult, error) {
	reference := p.opts.ReferenceNow
	if reference.IsZero() {
		reference = time.Now()
	}

	var events []models.Event
	for i, rec := range records {
		if rec.Title == "" {
			return nil, fmt.Errorf("record %d from %s has no title", i, rec.Source)
		}
		event := p.normalizer.Normalize(rec, reference, i)
		event = p.validator.Validate(event)
		events = append(events, event)
	}

	merged, clusters := p.dedup.Deduplicate(events)

	// Merging can fill gaps, so scores are recomputed on the survivors.
	for i := range merged {
		merged[i] = p.validator.Validate(merged[i])
	}

	if p.opts.MinQualityScore > 0 {
		for _, ev := range merged {
			if ev.QualityScore < p.opts.MinQualityScore {
				log.Printf("event %s (%s) scores %d, below sync minimum %d; kept in output only",
					ev.ID, ev.Title, ev.QualityScore, p.opts.MinQualityScore)
			}
		}
	}

	conflicts := p.scheduler.Analyze(merged)

	report := p.buildReport(records, events, merged, clusters, conflicts, reference)

	return &PipelineResult{
		Events:    merged,
		Clusters:  clusters,
		Conflicts: conflicts,
		Report:    report,
	}, nil
}

func (p *Pipeline) buildReport(records []models.RawRecord, raw, merged []models.Event,
	clusters []models.DuplicateCluster, conflicts models.ConflictReport, reference time.Time) models.RunReport {

	stats := models.RunStats{
		RecordsProcessed:  len(records),
		EventsMerged:      len(merged),
		DuplicatesRemoved: len(raw) - len(merged),
		ConflictsFound:    len(conflicts.Conflicts),
	}

	byCategory := map[string]int{}
	bySource := map[string]int{}
	var summaries []models.EventSummary
	var totalScore float64

	for _, ev := range merged {
		stats.IssuesFound += len(ev.Issues)
		stats.AutoFixesApplied += len(ev.Fixes)
		if ev.SyncEligible(p.opts.MinQualityScore) {
			stats.SyncEligible++
		}
		byCategory[ev.Category]++
		for _, src := range ev.Sources {
			bySource[src.Site]++
		}
		totalScore += float64(ev.QualityScore)

		summary := models.EventSummary{
			ID:           ev.ID,
			Title:        ev.Title,
			Venue:        ev.Venue,
			Category:     ev.Category,
			QualityScore: ev.QualityScore,
			Critical:     ev.HasCriticalIssue(),
			Sources:      len(ev.Sources),
		}
		if d := ev.PrimaryDate(); !d.IsZero() {
			summary.Date = d.Format("2006-01-02")
		}
		summaries = append(summaries, summary)
	}

	average := 0.0
	if len(merged) > 0 {
		average = totalScore / float64(len(merged))
	}

	return models.RunReport{
		RunID:         uuid.New().String(),
		ReferenceDate: reference.Format("2006-01-02"),
		Stats:         stats,
		QualityGrade:  models.QualityGrade(average),
		AverageScore:  average,
		ByCategory:    byCategory,
		BySource:      bySource,
		Events:        summaries,
		Clusters:      clusters,
		Conflicts:     conflicts.Conflicts,
	}
}
