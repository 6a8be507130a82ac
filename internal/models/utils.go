package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateEventID creates a stable identifier for an event from its
// canonical title and primary date. The same listing scraped on different
// runs (or by different sources) maps to the same ID.
func GenerateEventID(canonicalTitle string, primaryDate time.Time) string {
	datePart := ""
	if !primaryDate.IsZero() {
		datePart = primaryDate.Format("2006-01-02")
	}
	input := fmt.Sprintf("%s|%s", canonicalTitle, datePart)
	hash := sha256.Sum256([]byte(input))
	return "evt_" + hex.EncodeToString(hash[:])[:16]
}

// ValidateCategory checks if the category is one of the known values.
func ValidateCategory(category string) bool {
	switch category {
	case CategoryFestival, CategoryMarket, CategoryExhibition, CategorySports, CategoryOther:
		return true
	}
	return false
}

// ValidateSeverity checks if the severity is one of the known values.
func ValidateSeverity(severity string) bool {
	switch severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// IsValidURL performs basic URL validation.
func IsValidURL(url string) bool {
	if url == "" {
		return false
	}
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// LevenshteinRatio returns a normalized similarity in [0,1] between two
// strings based on edit distance: 1.0 means identical, 0.0 means nothing in
// common. Operates on runes so multibyte Japanese text is measured per
// character.
func LevenshteinRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}
	dist := levenshtein(ra, rb)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	return 1.0 - float64(dist)/float64(longer)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// CharOverlapRatio returns the Jaccard overlap of the character sets of two
// strings. A cheap secondary signal for Japanese titles where word
// boundaries are unreliable.
func CharOverlapRatio(a, b string) float64 {
	setA := map[rune]bool{}
	for _, r := range a {
		setA[r] = true
	}
	setB := map[rune]bool{}
	for _, r := range b {
		setB[r] = true
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}
	both := 0
	for r := range setA {
		if setB[r] {
			both++
		}
	}
	union := len(setA) + len(setB) - both
	return float64(both) / float64(union)
}
