package quality_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncolesummers/deep-research-agent/pkg/domain"
	"github.com/ncolesummers/deep-research-agent/pkg/quality"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) string {
	return now.AddDate(0, 0, -n).Format(time.RFC3339)
}

func TestCitationCoverage(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     float64
	}{
		{"empty", "", 0},
		{"whitespace only", "   \n\t ", 0},
		{"all cited", "Go is fast [1]. It compiles quickly [2]! Is it safe [3]?", 1},
		{"none cited", "Go is fast. It compiles quickly.", 0},
		{"half cited", "Go is fast [1]. It compiles quickly.", 0.5},
		{"multiple markers count once", "Claim [1][2]. Another claim.", 0.5},
		{"non numeric brackets ignored", "See [note]. And [2].", 0.5},
		{"single sentence without terminator", "A claim with a source [4]", 1},
		{"newline separates sentences", "First [1].\nSecond.\n\nThird [3].", 2.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, quality.CitationCoverage(tt.markdown), 1e-9)
		})
	}
}

func TestSplitSentences(t *testing.T) {
	got := quality.SplitSentences("One. Two!  Three? Four")
	assert.Equal(t, []string{"One.", "Two!", "Three?", "Four"}, got)

	assert.Empty(t, quality.SplitSentences(""))
	assert.Equal(t, []string{"v1.2 is out."}, quality.SplitSentences("v1.2 is out."))
}

func TestSourceDiversity(t *testing.T) {
	tests := []struct {
		name string
		urls []string
		want float64
	}{
		{"no urls", nil, 0},
		{"all same domain", []string{
			"https://example.com/a",
			"https://www.example.com/b",
			"http://EXAMPLE.com/c",
		}, 0},
		{"two distinct", []string{"https://a.com", "https://b.org/x"}, 0.5},
		{"four distinct", []string{
			"https://a.com", "https://b.com", "https://c.com", "https://d.com",
		}, 0.75},
		{"uneven split", []string{
			"https://a.com/1", "https://a.com/2", "https://a.com/3", "https://b.com",
		}, 1 - (0.75*0.75 + 0.25*0.25)},
		{"malformed skipped", []string{"not a url", "", "https://a.com", "https://b.com"}, 0.5},
		{"only malformed", []string{"example.com/path", "://"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, quality.SourceDiversity(tt.urls), 1e-9)
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://www.Example.com/path?q=1", "example.com", true},
		{"http://news.example.com", "news.example.com", true},
		{"ftp://files.example.org/x", "files.example.org", true},
		{"example.com/path", "", false},
		{"https:///path", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := quality.ExtractDomain(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMedianSourceAgeDays(t *testing.T) {
	tests := []struct {
		name       string
		timestamps []string
		want       float64
	}{
		{"odd count", []string{daysAgo(30), daysAgo(10), daysAgo(20)}, 20},
		{"even count", []string{daysAgo(10), daysAgo(20)}, 15},
		{"single", []string{daysAgo(7)}, 7},
		{"malformed skipped", []string{"yesterday", daysAgo(10), "", daysAgo(30)}, 20},
		{"naive timestamps skipped", []string{"2025-05-01T00:00:00", daysAgo(4)}, 4},
		{"space separated layout", []string{"2025-05-22 12:00:00+00:00"}, 10},
		{"partial days floor", []string{now.Add(-36 * time.Hour).Format(time.RFC3339)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, quality.MedianSourceAgeDays(tt.timestamps, now), 1e-9)
		})
	}
}

func TestMedianSourceAgeDays_Unknown(t *testing.T) {
	assert.True(t, math.IsInf(quality.MedianSourceAgeDays(nil, now), 1))
	assert.True(t, math.IsInf(quality.MedianSourceAgeDays([]string{"", "bogus"}, now), 1))
}

func TestCompute(t *testing.T) {
	sources := []domain.Source{
		{URL: "https://a.com/1", PublishedAt: daysAgo(10)},
		{URL: "https://b.com/2", PublishedAt: daysAgo(20)},
		{URL: "https://c.com/3"},
	}

	m := quality.Compute("Fact one [1]. Fact two [2]. Opinion.", sources, now)

	assert.InDelta(t, 2.0/3.0, m.CitationCoverage, 1e-9)
	assert.InDelta(t, 1-3*(1.0/9.0), m.SourceDiversity, 1e-9)
	require.True(t, m.AgeKnown())
	assert.InDelta(t, 15, m.MedianSourceAgeDays, 1e-9)
}
