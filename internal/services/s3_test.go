package services

import "testing"

func TestGetPublicURL(t *testing.T) {
	client := &S3Client{bucketName: "toyama-events-data", region: "ap-northeast-1"}

	want := "https://toyama-events-data.s3.ap-northeast-1.amazonaws.com/events/latest.json"
	if got := client.GetPublicURL(LatestEventsKey); got != want {
		t.Errorf("GetPublicURL(%q) = %q, want %q", LatestEventsKey, got, want)
	}

	// Leading slashes in keys are dropped, not doubled in the URL.
	if got := client.GetPublicURL("/reports/run.json"); got != "https://toyama-events-data.s3.ap-northeast-1.amazonaws.com/reports/run.json" {
		t.Errorf("GetPublicURL with leading slash = %q", got)
	}
}
