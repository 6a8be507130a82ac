package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"toyama-events-pipeline/internal/models"
	"toyama-events-pipeline/internal/services"
)

// LambdaEvent represents the EventBridge trigger event
type LambdaEvent struct {
	Source      string                 `json:"source"`
	DetailType  string                 `json:"detail-type"`
	Detail      map[string]interface{} `json:"detail"`
	TriggerType string                 `json:"trigger-type,omitempty"` // manual, scheduled
	// InputKey is the S3 key of the raw batch to process. Empty means
	// the default drop location.
	InputKey string `json:"input-key,omitempty"`
	DryRun   bool   `json:"dry-run,omitempty"`
}

// LambdaResponse represents the function response
type LambdaResponse struct {
	Success        bool             `json:"success"`
	Message        string           `json:"message"`
	RunID          string           `json:"run_id"`
	TotalEvents    int              `json:"total_events"`
	ProcessingTime int64            `json:"processing_time_ms"`
	NewEvents      int              `json:"new_events"`
	Stats          *models.RunStats `json:"stats,omitempty"`
	UploadedFiles  []string         `json:"uploaded_files,omitempty"`
	Errors         []string         `json:"errors,omitempty"`
}

const defaultInputKey = "raw/latest.json"

// HandleLambdaEvent is the main Lambda handler function
func HandleLambdaEvent(ctx context.Context, event LambdaEvent) (LambdaResponse, error) {
	start := time.Now()

	log.Printf("Lambda function started with event: %+v", event)

	cfg := services.LoadConfigFromEnv()
	if event.DryRun {
		cfg.DryRun = true
	}

	s3Client, err := services.NewS3Client()
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to initialize S3 client: %v", err)
		log.Printf("ERROR: %s", errorMsg)
		return LambdaResponse{
			Success:        false,
			Message:        errorMsg,
			ProcessingTime: time.Since(start).Milliseconds(),
		}, err
	}

	inputKey := event.InputKey
	if inputKey == "" {
		inputKey = defaultInputKey
	}

	if exists, err := s3Client.FileExists(inputKey); err == nil && !exists {
		errorMsg := fmt.Sprintf("Input batch not found: s3://%s/%s", s3Client.GetBucketName(), inputKey)
		log.Printf("ERROR: %s", errorMsg)
		return LambdaResponse{
			Success:        false,
			Message:        errorMsg,
			ProcessingTime: time.Since(start).Milliseconds(),
		}, fmt.Errorf("input batch %s does not exist", inputKey)
	}

	records, err := loadRawBatch(s3Client, inputKey)
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to load input batch: %v", err)
		log.Printf("ERROR: %s", errorMsg)
		return LambdaResponse{
			Success:        false,
			Message:        errorMsg,
			ProcessingTime: time.Since(start).Milliseconds(),
		}, err
	}

	log.Printf("Loaded %d raw records from %s", len(records), inputKey)

	pipeline := services.NewPipeline(services.PipelineOptions{
		MinQualityScore: cfg.MinQuality,
		FuzzyThreshold:  cfg.FuzzyThreshold,
		GreyZoneLow:     cfg.GreyZoneLow,
		GraceDays:       cfg.GraceDays,
		DryRun:          cfg.DryRun,
	})

	result, err := pipeline.Run(records)
	if err != nil {
		errorMsg := fmt.Sprintf("Pipeline failed: %v", err)
		log.Printf("ERROR: %s", errorMsg)
		return LambdaResponse{
			Success:        false,
			Message:        errorMsg,
			ProcessingTime: time.Since(start).Milliseconds(),
		}, err
	}

	response := LambdaResponse{
		Success:        true,
		RunID:          result.Report.RunID,
		TotalEvents:    len(result.Events),
		Stats:          &result.Report.Stats,
		ProcessingTime: time.Since(start).Milliseconds(),
	}

	// Publish outputs. Upload failures are warnings, not run failures.
	if len(result.Events) > 0 && !cfg.DryRun {
		if newCount := countNewEvents(s3Client, result.Events); newCount >= 0 {
			response.NewEvents = newCount
			log.Printf("%d of %d events are new since the last publish", newCount, len(result.Events))
		}

		latest, err := s3Client.UploadLatestEvents(result.Events)
		if err != nil {
			log.Printf("WARNING: Failed to upload latest events: %v", err)
			response.Errors = append(response.Errors, err.Error())
		} else {
			response.UploadedFiles = append(response.UploadedFiles, latest.Key)
			log.Printf("Uploaded latest events: %s", latest.PublicURL)
		}

		snapshot, err := s3Client.UploadEventsWithTimestamp(result.Events)
		if err != nil {
			log.Printf("WARNING: Failed to upload events snapshot: %v", err)
			response.Errors = append(response.Errors, err.Error())
		} else {
			response.UploadedFiles = append(response.UploadedFiles, snapshot.Key)
		}
	}

	if !cfg.DryRun {
		reportKey := fmt.Sprintf("reports/%s.json", result.Report.RunID)
		if uploaded, err := s3Client.UploadRunReport(&result.Report, reportKey); err != nil {
			log.Printf("WARNING: Failed to upload run report: %v", err)
			response.Errors = append(response.Errors, err.Error())
		} else {
			response.UploadedFiles = append(response.UploadedFiles, uploaded.Key)
		}
	}

	// Sync quality-gated events to DynamoDB.
	stored, skipped, err := syncToStore(ctx, cfg, result.Events)
	if err != nil {
		log.Printf("WARNING: Event sync incomplete: %v", err)
		response.Errors = append(response.Errors, err.Error())
	} else {
		log.Printf("Synced %d events, skipped %d outside the sync scope", stored, skipped)
	}

	response.Message = fmt.Sprintf("Processed %d records into %d events (%d duplicates removed, %d conflicts)",
		result.Report.Stats.RecordsProcessed, len(result.Events),
		result.Report.Stats.DuplicatesRemoved, result.Report.Stats.ConflictsFound)

	log.Printf("Lambda function completed: %s", response.Message)
	log.Printf("Total processing time: %dms", response.ProcessingTime)

	return response, nil
}

// countNewEvents compares event IDs against the previously published set.
// Returns -1 when the previous set cannot be read.
func countNewEvents(s3Client *services.S3Client, events []models.Event) int {
	exists, err := s3Client.FileExists(services.LatestEventsKey)
	if err != nil {
		log.Printf("WARNING: Could not check previous events: %v", err)
		return -1
	}
	if !exists {
		return len(events)
	}

	previous, err := s3Client.DownloadEvents(services.LatestEventsKey)
	if err != nil {
		log.Printf("WARNING: Could not load previous events: %v", err)
		return -1
	}

	known := make(map[string]bool, len(previous.Events))
	for _, ev := range previous.Events {
		known[ev.ID] = true
	}
	count := 0
	for _, ev := range events {
		if !known[ev.ID] {
			count++
		}
	}
	return count
}

func loadRawBatch(s3Client *services.S3Client, key string) ([]models.RawRecord, error) {
	output, err := s3Client.DownloadRawBatch(key)
	if err != nil {
		return nil, err
	}
	return output.Records, nil
}

func syncToStore(ctx context.Context, cfg services.PipelineConfig, events []models.Event) (int, int, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load AWS config: %w", err)
	}
	store := services.NewEventStore(dynamodb.NewFromConfig(awsCfg), cfg.EventsTable)
	return store.SyncEvents(ctx, events, cfg.MinQuality, cfg.DryRun)
}

// main is the entry point for the Lambda function
func main() {
	lambda.Start(HandleLambdaEvent)
}
