package catalog_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncolesummers/deep-research-agent/pkg/catalog"
	"github.com/ncolesummers/deep-research-agent/pkg/domain"
)

func testPlan() *domain.SearchPlan {
	return &domain.SearchPlan{Searches: []domain.SearchDirective{
		{Reason: "r0", Query: "alpha"},
		{Reason: "r1", Query: "beta"},
		{Reason: "r2", Query: "gamma"},
		{Reason: "r3", Query: "delta"},
		{Reason: "r4", Query: "epsilon"},
	}}
}

func TestBuild_DropsAbsentSummaries(t *testing.T) {
	outcomes := []domain.SearchOutcome{
		{DirectiveIndex: 0, Summary: "first"},
		{DirectiveIndex: 1},
		{DirectiveIndex: 2, Summary: "third"},
		{DirectiveIndex: 3},
		{DirectiveIndex: 4, Summary: "fifth"},
	}

	sources := catalog.Build(testPlan(), outcomes, catalog.DefaultOptions())

	require.Len(t, sources, 3)
	assert.Equal(t, "Notes for: alpha", sources[0].Title)
	assert.Equal(t, "Notes for: gamma", sources[1].Title)
	assert.Equal(t, "Notes for: epsilon", sources[2].Title)
	assert.Equal(t, "https://example.com/search/1", sources[0].URL)
	assert.Equal(t, "https://example.com/search/3", sources[2].URL)
	for _, s := range sources {
		assert.Empty(t, s.PublishedAt)
	}
}

func TestBuild_Ordering(t *testing.T) {
	arrival := []domain.SearchOutcome{
		{DirectiveIndex: 3, Summary: "d"},
		{DirectiveIndex: 0, Summary: "a"},
		{DirectiveIndex: 2, Summary: "c"},
	}

	t.Run("directive", func(t *testing.T) {
		sources := catalog.Build(testPlan(), arrival, catalog.DefaultOptions())
		require.Len(t, sources, 3)
		assert.Equal(t, []string{"a", "c", "d"}, snippets(sources))
		assert.Equal(t, "Notes for: alpha", sources[0].Title)
	})

	t.Run("arrival", func(t *testing.T) {
		opts := catalog.Options{SnippetLength: 400, Ordering: catalog.OrderByArrival}
		sources := catalog.Build(testPlan(), arrival, opts)
		require.Len(t, sources, 3)
		assert.Equal(t, []string{"d", "a", "c"}, snippets(sources))
		// title still follows the originating directive
		assert.Equal(t, "Notes for: delta", sources[0].Title)
	})

	t.Run("input not mutated", func(t *testing.T) {
		catalog.Build(testPlan(), arrival, catalog.DefaultOptions())
		assert.Equal(t, 3, arrival[0].DirectiveIndex)
	})
}

func TestSummaries_FollowCatalogOrder(t *testing.T) {
	long := strings.Repeat("x", 600)
	arrival := []domain.SearchOutcome{
		{DirectiveIndex: 2, Summary: long},
		{DirectiveIndex: 1},
		{DirectiveIndex: 0, Summary: "a"},
	}

	assert.Equal(t, []string{"a", long}, catalog.Summaries(arrival, catalog.OrderByDirective))
	assert.Equal(t, []string{long, "a"}, catalog.Summaries(arrival, catalog.OrderByArrival))
}

func TestBuild_UsesSearchMetadata(t *testing.T) {
	outcomes := []domain.SearchOutcome{{
		DirectiveIndex: 1,
		Summary:        "notes",
		URL:            "https://go.dev/blog/x",
		Title:          "Go Blog",
		PublishedAt:    "2025-01-02T00:00:00Z",
	}}

	sources := catalog.Build(testPlan(), outcomes, catalog.DefaultOptions())

	require.Len(t, sources, 1)
	assert.Equal(t, domain.Source{
		URL:         "https://go.dev/blog/x",
		Title:       "Go Blog",
		PublishedAt: "2025-01-02T00:00:00Z",
		Snippet:     "notes",
	}, sources[0])
}

func TestBuild_TruncatesSnippet(t *testing.T) {
	long := strings.Repeat("é", 500)
	sources := catalog.Build(testPlan(), []domain.SearchOutcome{{DirectiveIndex: 0, Summary: long}}, catalog.Options{})

	require.Len(t, sources, 1)
	assert.Equal(t, 400, len([]rune(sources[0].Snippet)))
}

func TestBuild_DirectiveOutOfRange(t *testing.T) {
	sources := catalog.Build(&domain.SearchPlan{}, []domain.SearchOutcome{{DirectiveIndex: 6, Summary: "x"}}, catalog.DefaultOptions())
	require.Len(t, sources, 1)
	assert.Equal(t, "Notes for: Search 7", sources[0].Title)
}

func TestBuild_Empty(t *testing.T) {
	assert.Empty(t, catalog.Build(testPlan(), nil, catalog.DefaultOptions()))
}

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		in      string
		want    catalog.Ordering
		wantErr bool
	}{
		{"", catalog.OrderByDirective, false},
		{"directive", catalog.OrderByDirective, false},
		{" Arrival ", catalog.OrderByArrival, false},
		{"random", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := catalog.ParseOrdering(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatNumbered(t *testing.T) {
	sources := []domain.Source{
		{URL: "https://a.com", Title: "A"},
		{URL: "https://b.com"},
		{},
	}

	want := "[1] A — https://a.com\n" +
		"[2] https://b.com — https://b.com\n" +
		"[3] Source 3 — "
	assert.Equal(t, want, catalog.FormatNumbered(sources))
	assert.Equal(t, "", catalog.FormatNumbered(nil))
}

func TestFormatForEvaluation(t *testing.T) {
	sources := []domain.Source{
		{URL: "https://a.com", Title: "A", PublishedAt: "2025-01-01T00:00:00Z", Snippet: "snip"},
		{URL: "https://b.com", Title: "B"},
		{Title: "C", Snippet: strings.Repeat("x", 300)},
	}

	lines := strings.Split(catalog.FormatForEvaluation(sources), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[1] A (2025-01-01T00:00:00Z): snip — https://a.com", lines[0])
	assert.Equal(t, "[2] B — https://b.com", lines[1])
	assert.Equal(t, "[3] C: "+strings.Repeat("x", 250), lines[2])
}

func snippets(sources []domain.Source) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = s.Snippet
	}
	return out
}
