package services

import (
	"os"

	"github.com/spf13/cast"
)

// PipelineConfig collects the environment-driven settings of a run.
type PipelineConfig struct {
	S3Bucket       string
	EventsTable    string
	MinQuality     int
	FuzzyThreshold float64
	GreyZoneLow    float64
	GraceDays      int
	DryRun         bool
}

// LoadConfigFromEnv reads pipeline settings from the environment, falling
// back to defaults for anything unset or unparsable.
func LoadConfigFromEnv() PipelineConfig {
	return PipelineConfig{
		S3Bucket:       envString("S3_BUCKET_NAME", "toyama-events-data"),
		EventsTable:    envString("EVENTS_TABLE", "toyama-events"),
		MinQuality:     envInt("MIN_QUALITY_SCORE", 0),
		FuzzyThreshold: envFloat("FUZZY_THRESHOLD", 0.85),
		GreyZoneLow:    envFloat("GREY_ZONE_LOW", 0.70),
		GraceDays:      envInt("DATE_GRACE_DAYS", 14),
		DryRun:         envBool("DRY_RUN", false),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := cast.ToIntE(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := cast.ToFloat64E(v); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
	}
	return fallback
}
