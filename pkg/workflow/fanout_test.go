package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ncolesummers/deep-research-agent/internal/testutil"
	"github.com/ncolesummers/deep-research-agent/pkg/domain"
	"github.com/ncolesummers/deep-research-agent/pkg/observability"
	"github.com/ncolesummers/deep-research-agent/pkg/workflow"
)

func TestSearchFanOut_PartialFailure(t *testing.T) {
	caps := &testutil.FakeCapabilities{
		SearchFunc: func(ctx context.Context, d domain.SearchDirective) (*domain.SearchSummary, error) {
			switch d.Query {
			case "q2":
				return nil, errors.New("search backend timeout")
			case "q4":
				return &domain.SearchSummary{Summary: "   "}, nil
			}
			return &domain.SearchSummary{Summary: "notes on " + d.Query}, nil
		},
	}

	var (
		mu       sync.Mutex
		progress []int
	)
	fanout := workflow.NewSearchFanOut(caps, nil, nil)
	outcomes := fanout.Run(testutil.NewTestContext(t), testutil.NewTestPlan("q0", "q1", "q2", "q3", "q4"), func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 5, total)
		progress = append(progress, completed)
	})

	require.Len(t, outcomes, 3)
	indices := make([]int, 0, len(outcomes))
	for _, o := range outcomes {
		assert.True(t, o.HasSummary())
		indices = append(indices, o.DirectiveIndex)
	}
	assert.ElementsMatch(t, []int{0, 1, 3}, indices)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, progress)
}

func TestSearchFanOut_ArrivalOrder(t *testing.T) {
	fastDone := make(chan struct{})
	caps := &testutil.FakeCapabilities{
		SearchFunc: func(ctx context.Context, d domain.SearchDirective) (*domain.SearchSummary, error) {
			if d.Query == "slow" {
				select {
				case <-fastDone:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return &domain.SearchSummary{Summary: d.Query, URL: "https://" + d.Query + ".com/"}, nil
		},
	}

	// progress runs after the outcome is collected, so slow can only finish second
	release := func(completed, total int) {
		if completed == 1 {
			close(fastDone)
		}
	}
	outcomes := workflow.NewSearchFanOut(caps, nil, nil).Run(testutil.NewTestContext(t), testutil.NewTestPlan("slow", "fast"), release)

	require.Len(t, outcomes, 2)
	assert.Equal(t, 1, outcomes[0].DirectiveIndex)
	assert.Equal(t, "https://fast.com/", outcomes[0].URL)
	assert.Equal(t, 0, outcomes[1].DirectiveIndex)
}

func TestSearchFanOut_RecoversPanics(t *testing.T) {
	caps := &testutil.FakeCapabilities{
		SearchFunc: func(ctx context.Context, d domain.SearchDirective) (*domain.SearchSummary, error) {
			if d.Query == "boom" {
				panic("nil map write")
			}
			return &domain.SearchSummary{Summary: "ok"}, nil
		},
	}

	outcomes := workflow.NewSearchFanOut(caps, nil, nil).Run(testutil.NewTestContext(t), testutil.NewTestPlan("a", "boom", "b"), nil)
	assert.Len(t, outcomes, 2)
}

func TestSearchFanOut_EmptyPlan(t *testing.T) {
	caps := &testutil.FakeCapabilities{}
	fanout := workflow.NewSearchFanOut(caps, nil, nil)

	called := false
	outcomes := fanout.Run(context.Background(), &domain.SearchPlan{}, func(int, int) { called = true })
	assert.Empty(t, outcomes)
	assert.False(t, called)

	assert.Empty(t, fanout.Run(context.Background(), nil, nil))

	_, searches, _, _, _ := caps.Calls()
	assert.Equal(t, 0, searches)
}

func TestSearchFanOut_Telemetry(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	telemetry := testutil.SetupTestTelemetry(recorder, reader)
	metrics, err := observability.NewMetrics(telemetry.Meter())
	require.NoError(t, err)

	caps := &testutil.FakeCapabilities{
		SearchFunc: func(ctx context.Context, d domain.SearchDirective) (*domain.SearchSummary, error) {
			switch d.Query {
			case "bad":
				return nil, errors.New("503 from backend")
			case "empty":
				return nil, nil
			}
			return &domain.SearchSummary{Summary: "ok"}, nil
		},
	}

	ctx := context.Background()
	workflow.NewSearchFanOut(caps, telemetry, metrics).Run(ctx, testutil.NewTestPlan("good", "bad", "empty", "fine"), nil)

	spans := 0
	for _, s := range recorder.Ended() {
		if s.Name() == "search.task" {
			spans++
		}
	}
	assert.Equal(t, 4, spans)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	byStatus := searchCountsByStatus(t, rm)
	assert.Equal(t, int64(2), byStatus[observability.SearchStatusSuccess])
	assert.Equal(t, int64(1), byStatus[observability.SearchStatusFailed])
	assert.Equal(t, int64(1), byStatus[observability.SearchStatusEmpty])
}

func searchCountsByStatus(t *testing.T, rm metricdata.ResourceMetrics) map[string]int64 {
	t.Helper()
	counts := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "research_searches_total" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value("status")
				counts[status.AsString()] += dp.Value
			}
		}
	}
	return counts
}
