// Package quality computes deterministic quality measurements for a report draft.
// All functions are pure; malformed inputs are skipped rather than reported.
package quality

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ncolesummers/deep-research-agent/pkg/domain"
)

var (
	sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)
	citationMarker   = regexp.MustCompile(`\[\d+\]`)
)

// timestampLayouts are the zone-aware formats accepted for published_at.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04Z07:00",
}

const hoursPerDay = 24

// Compute derives all metrics for a draft against the catalog it was written from.
func Compute(markdown string, sources []domain.Source, now time.Time) domain.Metrics {
	urls := make([]string, len(sources))
	timestamps := make([]string, len(sources))
	for i, s := range sources {
		urls[i] = s.URL
		timestamps[i] = s.PublishedAt
	}

	return domain.Metrics{
		CitationCoverage:    CitationCoverage(markdown),
		SourceDiversity:     SourceDiversity(urls),
		MedianSourceAgeDays: MedianSourceAgeDays(timestamps, now),
	}
}

// CitationCoverage returns the fraction of sentences carrying at least one [n] marker.
func CitationCoverage(markdown string) float64 {
	sentences := SplitSentences(markdown)
	if len(sentences) == 0 {
		return 0
	}

	cited := 0
	for _, s := range sentences {
		if citationMarker.MatchString(s) {
			cited++
		}
	}
	return float64(cited) / float64(len(sentences))
}

// SplitSentences breaks text after '.', '!' or '?' when followed by whitespace.
// Blank fragments are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		sentences = appendSentence(sentences, text[start:loc[0]+1])
		start = loc[1]
	}
	return appendSentence(sentences, text[start:])
}

func appendSentence(sentences []string, s string) []string {
	if strings.TrimSpace(s) == "" {
		return sentences
	}
	return append(sentences, s)
}

// SourceDiversity returns 1 minus Simpson's index over the domains of urls.
func SourceDiversity(urls []string) float64 {
	counts := make(map[string]int)
	total := 0
	for _, u := range urls {
		d, ok := ExtractDomain(u)
		if !ok {
			continue
		}
		counts[d]++
		total++
	}
	if total == 0 {
		return 0
	}

	var simpson float64
	for _, c := range counts {
		p := float64(c) / float64(total)
		simpson += p * p
	}
	return 1 - simpson
}

// ExtractDomain returns the lowercased host of rawURL without a leading "www.".
// URLs without a scheme separator or with an empty host are rejected.
func ExtractDomain(rawURL string) (string, bool) {
	_, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return "", false
	}
	host, _, _ := strings.Cut(rest, "/")
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if host == "" {
		return "", false
	}
	return host, true
}

// MedianSourceAgeDays returns the median age in whole days of the parseable
// timestamps relative to now, or +Inf when none parse.
func MedianSourceAgeDays(timestamps []string, now time.Time) float64 {
	ages := make([]float64, 0, len(timestamps))
	for _, ts := range timestamps {
		t, ok := ParseTimestamp(ts)
		if !ok {
			continue
		}
		ages = append(ages, math.Floor(now.Sub(t).Hours()/hoursPerDay))
	}
	if len(ages) == 0 {
		return math.Inf(1)
	}

	sort.Float64s(ages)
	mid := len(ages) / 2
	if len(ages)%2 == 1 {
		return ages[mid]
	}
	return (ages[mid-1] + ages[mid]) / 2
}

// ParseTimestamp parses an absolute, zone-qualified timestamp.
func ParseTimestamp(ts string) (time.Time, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
