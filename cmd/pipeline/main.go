package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"toyama-events-pipeline/internal/models"
	"toyama-events-pipeline/internal/services"
)

// Local runner for the event pipeline: reads a scraped batch from a JSON
// file, writes normalized events and the run report to the filesystem.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	var (
		inputPath  = flag.String("input", "", "path to raw batch JSON (required)")
		outputPath = flag.String("output", "events.json", "path for normalized events JSON")
		reportPath = flag.String("report", "report.json", "path for run report JSON")
		reference  = flag.String("reference", "", "reference date for year inference (YYYY-MM-DD, default today)")
		minQuality = flag.Int("min-quality", 0, "flag events scoring below this as ineligible for sync")
		dryRun     = flag.Bool("dry-run", false, "process without writing outputs")
		s3Bucket   = flag.String("s3-bucket", "", "publish events to this S3 bucket after writing local files")
		s3Region   = flag.String("s3-region", "", "AWS region for -s3-bucket")
		awsProfile = flag.String("aws-profile", "", "AWS shared config profile for -s3-bucket")
	)
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := services.LoadConfigFromEnv()
	if *minQuality > 0 {
		cfg.MinQuality = *minQuality
	}

	opts := services.PipelineOptions{
		MinQualityScore: cfg.MinQuality,
		FuzzyThreshold:  cfg.FuzzyThreshold,
		GreyZoneLow:     cfg.GreyZoneLow,
		GraceDays:       cfg.GraceDays,
		DryRun:          *dryRun || cfg.DryRun,
	}
	if *reference != "" {
		ref, err := time.Parse("2006-01-02", *reference)
		if err != nil {
			log.Fatalf("invalid -reference value %q: %v", *reference, err)
		}
		opts.ReferenceNow = ref
	}

	records, err := loadBatch(*inputPath)
	if err != nil {
		log.Fatalf("failed to load input: %v", err)
	}
	log.Printf("Loaded %d raw records from %s", len(records), *inputPath)

	result, err := services.NewPipeline(opts).Run(records)
	if err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}

	stats := result.Report.Stats
	log.Printf("Processed %d records into %d events (%d duplicates removed)",
		stats.RecordsProcessed, stats.EventsMerged, stats.DuplicatesRemoved)
	log.Printf("Quality grade %s (average %.1f), %d conflicts, %d sync-eligible",
		result.Report.QualityGrade, result.Report.AverageScore,
		stats.ConflictsFound, stats.SyncEligible)

	if opts.DryRun {
		log.Printf("dry-run: skipping output files")
		return
	}

	output := models.EventsOutput{
		Metadata: models.NewEventsMetadata(result.Events),
		Events:   result.Events,
	}
	if err := writeJSON(*outputPath, output); err != nil {
		log.Fatalf("failed to write events: %v", err)
	}
	if err := writeJSON(*reportPath, result.Report); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}
	fmt.Printf("Wrote %d events to %s and report to %s\n", len(result.Events), *outputPath, *reportPath)

	if *s3Bucket != "" {
		client, err := services.NewS3ClientWithConfig(services.S3Config{
			BucketName: *s3Bucket,
			Region:     *s3Region,
			Profile:    *awsProfile,
		})
		if err != nil {
			log.Fatalf("failed to initialize S3 client: %v", err)
		}
		if _, err := client.UploadLatestEvents(result.Events); err != nil {
			log.Fatalf("failed to publish events to bucket %s: %v", client.GetBucketName(), err)
		}
		fmt.Printf("Published %d events to %s\n", len(result.Events), client.GetPublicURL(services.LatestEventsKey))
	}
}

func loadBatch(path string) ([]models.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var batch models.RawBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(batch.Records) == 0 {
		// Accept a bare array as well as the envelope form.
		var records []models.RawRecord
		if err := json.Unmarshal(data, &records); err == nil {
			return records, nil
		}
	}
	return batch.Records, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
