package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"toyama-events-pipeline/internal/models"
)

// LatestEventsKey is the well-known object key for the current published
// event set.
const LatestEventsKey = "events/latest.json"

// S3Client publishes normalized event data and run reports for downstream
// consumers.
type S3Client struct {
	client     *s3.Client
	bucketName string
	region     string
}

// S3Config holds configuration for S3 client
type S3Config struct {
	BucketName string
	Region     string
	Profile    string // AWS profile to use
}

// S3UploadResult represents the result of an S3 upload operation
type S3UploadResult struct {
	Key         string    `json:"key"`
	Location    string    `json:"location"`
	ETag        string    `json:"etag"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
	ContentType string    `json:"content_type"`
	PublicURL   string    `json:"public_url"`
}

// NewS3Client creates a new S3 client with AWS SDK v2
func NewS3Client() (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	bucketName := os.Getenv("S3_BUCKET_NAME")
	if bucketName == "" {
		bucketName = "toyama-events-data"
	}

	return &S3Client{
		client:     s3.NewFromConfig(cfg),
		bucketName: bucketName,
		region:     cfg.Region,
	}, nil
}

// NewS3ClientWithConfig creates an S3 client with custom configuration
func NewS3ClientWithConfig(s3Config S3Config) (*S3Client, error) {
	var cfg aws.Config
	var err error

	if s3Config.Profile != "" {
		cfg, err = config.LoadDefaultConfig(
			context.TODO(),
			config.WithSharedConfigProfile(s3Config.Profile),
		)
	} else {
		cfg, err = config.LoadDefaultConfig(context.TODO())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if s3Config.Region != "" {
		cfg.Region = s3Config.Region
	}

	return &S3Client{
		client:     s3.NewFromConfig(cfg),
		bucketName: s3Config.BucketName,
		region:     cfg.Region,
	}, nil
}

// UploadEvents uploads normalized events to S3 as JSON
func (s *S3Client) UploadEvents(events []models.Event, key string) (*S3UploadResult, error) {
	output := models.EventsOutput{
		Metadata: models.NewEventsMetadata(events),
		Events:   events,
	}

	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal events to JSON: %w", err)
	}

	return s.uploadJSON(jsonData, key, "application/json")
}

// UploadRunReport uploads a pipeline run report to S3
func (s *S3Client) UploadRunReport(report *models.RunReport, key string) (*S3UploadResult, error) {
	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run report to JSON: %w", err)
	}

	return s.uploadJSON(jsonData, key, "application/json")
}

// uploadJSON is a helper method to upload JSON data to S3
func (s *S3Client) uploadJSON(data []byte, key, contentType string) (*S3UploadResult, error) {
	// Ensure key doesn't start with /
	key = strings.TrimPrefix(key, "/")

	uploadInput := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		// Set cache control for frontend consumption
		CacheControl: aws.String("public, max-age=300"), // 5 minutes
		Metadata: map[string]string{
			"uploaded-by":  "toyama-events-pipeline",
			"content-type": contentType,
			"upload-time":  time.Now().UTC().Format(time.RFC3339),
		},
	}

	result, err := s.client.PutObject(context.TODO(), uploadInput)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, key)

	return &S3UploadResult{
		Key:         key,
		Location:    publicURL,
		ETag:        strings.Trim(*result.ETag, `"`),
		Size:        int64(len(data)),
		UploadedAt:  time.Now(),
		ContentType: contentType,
		PublicURL:   publicURL,
	}, nil
}

// DownloadEvents downloads and parses an events JSON document from S3
func (s *S3Client) DownloadEvents(key string) (*models.EventsOutput, error) {
	data, err := s.downloadJSON(key)
	if err != nil {
		return nil, err
	}

	var output models.EventsOutput
	err = json.Unmarshal(data, &output)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal events JSON: %w", err)
	}

	return &output, nil
}

// DownloadRawBatch downloads and parses a scraped input batch from S3
func (s *S3Client) DownloadRawBatch(key string) (*models.RawBatch, error) {
	data, err := s.downloadJSON(key)
	if err != nil {
		return nil, err
	}

	var batch models.RawBatch
	err = json.Unmarshal(data, &batch)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal raw batch JSON: %w", err)
	}

	return &batch, nil
}

// downloadJSON is a helper method to download JSON data from S3
func (s *S3Client) downloadJSON(key string) ([]byte, error) {
	key = strings.TrimPrefix(key, "/")

	getInput := &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}

	result, err := s.client.GetObject(context.TODO(), getInput)
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}

	return data, nil
}

// FileExists checks if a file exists in S3
func (s *S3Client) FileExists(key string) (bool, error) {
	key = strings.TrimPrefix(key, "/")

	headInput := &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}

	_, err := s.client.HeadObject(context.TODO(), headInput)
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if S3 object exists: %w", err)
	}

	return true, nil
}

// GetBucketName returns the configured bucket name
func (s *S3Client) GetBucketName() string {
	return s.bucketName
}

// GetPublicURL generates the public URL for an S3 object
func (s *S3Client) GetPublicURL(key string) string {
	key = strings.TrimPrefix(key, "/")
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, key)
}

// UploadEventsWithTimestamp uploads events with a timestamp-based key
func (s *S3Client) UploadEventsWithTimestamp(events []models.Event) (*S3UploadResult, error) {
	timestamp := time.Now().UTC().Format("2006-01-02T15-04-05Z")
	key := fmt.Sprintf("events/%s.json", timestamp)
	return s.UploadEvents(events, key)
}

// UploadLatestEvents uploads events as the "latest" version for frontend consumption
func (s *S3Client) UploadLatestEvents(events []models.Event) (*S3UploadResult, error) {
	return s.UploadEvents(events, LatestEventsKey)
}
