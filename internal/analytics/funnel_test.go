package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository"
)

var (
	funnelStart = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	funnelEnd   = funnelStart.AddDate(0, 0, 7)
	threeSteps  = []domain.EventType{domain.EventPromptViewed, domain.EventPromptClicked, domain.EventPromptPurchased}
)

func TestComputeFunnel_ViewClickPurchase(t *testing.T) {
	events := new(MockEventReader)
	engine := NewFunnelEngine(events, zap.NewNop())

	events.On("CountDistinctUsers", mock.Anything, hasTypes(domain.EventPromptViewed)).Return(uint64(100), nil)
	events.On("CountDistinctUsers", mock.Anything, hasTypes(domain.EventPromptClicked)).Return(uint64(40), nil)
	events.On("CountDistinctUsers", mock.Anything, hasTypes(domain.EventPromptPurchased)).Return(uint64(10), nil)
	events.On("ListEvents", mock.Anything, hasTypes(domain.EventPromptPurchased)).Return([]domain.AnalyticsEvent{}, nil)

	result, err := engine.ComputeFunnel(context.Background(), threeSteps, funnelStart, funnelEnd, nil)
	require.NoError(t, err)

	require.Len(t, result.Steps, 3)
	assert.Equal(t, 100.0, result.Steps[0].ConversionRate)
	assert.Equal(t, 0.0, result.Steps[0].DropOffRate)
	assert.Equal(t, 40.0, result.Steps[1].ConversionRate)
	assert.Equal(t, 60.0, result.Steps[1].DropOffRate)
	assert.Equal(t, 25.0, result.Steps[2].ConversionRate)
	assert.Equal(t, 75.0, result.Steps[2].DropOffRate)
	assert.Equal(t, 10.0, result.OverallConversion)
	assert.Nil(t, result.AverageTimeToConvert)
	assert.Equal(t, "prompt", result.FunnelName)

	assert.Equal(t, []DropOff{
		{FromStep: domain.EventPromptViewed, ToStep: domain.EventPromptClicked, DropOffRate: 60, Severity: SeverityMedium},
		{FromStep: domain.EventPromptClicked, ToStep: domain.EventPromptPurchased, DropOffRate: 75, Severity: SeverityHigh},
	}, result.DropOffAnalysis)
}

func TestComputeFunnel_RatesAlwaysSumTo100(t *testing.T) {
	cases := [][]uint64{
		{0, 0, 0},
		{3, 1, 1},
		{7, 3, 0},
		{0, 5, 2},
		{9, 9, 9},
	}

	for _, counts := range cases {
		events := new(MockEventReader)
		engine := NewFunnelEngine(events, zap.NewNop())
		for i, step := range threeSteps {
			events.On("CountDistinctUsers", mock.Anything, hasTypes(step)).Return(counts[i], nil)
		}
		events.On("ListEvents", mock.Anything, mock.Anything).Return([]domain.AnalyticsEvent{}, nil)

		result, err := engine.ComputeFunnel(context.Background(), threeSteps, funnelStart, funnelEnd, nil)
		require.NoError(t, err)

		assert.Equal(t, 100.0, result.Steps[0].ConversionRate, "counts %v", counts)
		for _, step := range result.Steps {
			assert.InDelta(t, 100.0, step.ConversionRate+step.DropOffRate, 1e-9, "counts %v", counts)
		}
	}
}

func TestComputeFunnel_PreviousStepEmpty(t *testing.T) {
	events := new(MockEventReader)
	engine := NewFunnelEngine(events, zap.NewNop())
	events.On("CountDistinctUsers", mock.Anything, hasTypes(domain.EventPromptViewed)).Return(uint64(0), nil)
	events.On("CountDistinctUsers", mock.Anything, hasTypes(domain.EventPromptClicked)).Return(uint64(4), nil)
	events.On("ListEvents", mock.Anything, mock.Anything).Return([]domain.AnalyticsEvent{}, nil)

	result, err := engine.ComputeFunnel(context.Background(), threeSteps[:2], funnelStart, funnelEnd, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.Steps[1].ConversionRate)
	assert.Equal(t, 100.0, result.Steps[1].DropOffRate)
	assert.Equal(t, 0.0, result.OverallConversion)
}

func TestComputeFunnel_TimeToConvert(t *testing.T) {
	events := new(MockEventReader)
	engine := NewFunnelEngine(events, zap.NewNop())
	events.On("CountDistinctUsers", mock.Anything, mock.Anything).Return(uint64(3), nil)

	base := funnelStart.Add(time.Hour)
	finals := []domain.AnalyticsEvent{
		{UserID: "u1", SessionID: "s1", EventType: domain.EventPromptPurchased, CreatedAt: base.Add(10 * time.Minute)},
		{UserID: "u2", SessionID: "s2", EventType: domain.EventPromptPurchased, CreatedAt: base.Add(30 * time.Minute)},
		// no first step in this session
		{UserID: "u3", SessionID: "s3", EventType: domain.EventPromptPurchased, CreatedAt: base.Add(time.Hour)},
		// later purchase by u1 is ignored, the earliest matched one counts
		{UserID: "u1", SessionID: "s1", EventType: domain.EventPromptPurchased, CreatedAt: base.Add(50 * time.Minute)},
	}
	starts := []domain.AnalyticsEvent{
		{SessionID: "s1", EventType: domain.EventPromptViewed, CreatedAt: base},
		{SessionID: "s1", EventType: domain.EventPromptViewed, CreatedAt: base.Add(5 * time.Minute)},
		{SessionID: "s2", EventType: domain.EventPromptViewed, CreatedAt: base},
	}
	events.On("ListEvents", mock.Anything, mock.MatchedBy(func(f repository.EventFilter) bool {
		return len(f.EventTypes) == 1 && f.EventTypes[0] == domain.EventPromptPurchased &&
			f.IdentifiedOnly && f.WithSession
	})).Return(finals, nil)
	events.On("ListEvents", mock.Anything, mock.MatchedBy(func(f repository.EventFilter) bool {
		return len(f.EventTypes) == 1 && f.EventTypes[0] == domain.EventPromptViewed &&
			assert.ObjectsAreEqual([]string{"s1", "s2", "s3"}, f.SessionIDs)
	})).Return(starts, nil)

	result, err := engine.ComputeFunnel(context.Background(), threeSteps, funnelStart, funnelEnd, nil)
	require.NoError(t, err)

	require.NotNil(t, result.AverageTimeToConvert)
	assert.Equal(t, int64(1200), result.AverageTimeToConvert.Seconds)
	assert.Equal(t, "0:20:00", result.AverageTimeToConvert.Formatted)
}

func TestComputeFunnel_SegmentFilterApplied(t *testing.T) {
	events := new(MockEventReader)
	engine := NewFunnelEngine(events, zap.NewNop())
	segment := &SegmentFilter{EntityType: "prompt", EntityID: "p1", Metadata: map[string]string{"source": "search"}}

	events.On("CountDistinctUsers", mock.Anything, mock.MatchedBy(func(f repository.EventFilter) bool {
		return f.EntityType == "prompt" && f.EntityID == "p1" && f.Metadata["source"] == "search" &&
			f.Start.Equal(funnelStart) && f.End.Equal(funnelEnd)
	})).Return(uint64(2), nil)
	events.On("ListEvents", mock.Anything, mock.Anything).Return([]domain.AnalyticsEvent{}, nil)

	_, err := engine.ComputeFunnel(context.Background(), threeSteps, funnelStart, funnelEnd, segment)

	require.NoError(t, err)
	events.AssertNumberOfCalls(t, "CountDistinctUsers", 3)
}

func TestComputeFunnel_Validation(t *testing.T) {
	engine := NewFunnelEngine(new(MockEventReader), zap.NewNop())
	ctx := context.Background()

	_, err := engine.ComputeFunnel(ctx, threeSteps[:1], funnelStart, funnelEnd, nil)
	assert.ErrorIs(t, err, ErrInvalidFunnel)

	_, err = engine.ComputeFunnel(ctx, []domain.EventType{domain.EventPromptViewed, " "}, funnelStart, funnelEnd, nil)
	assert.ErrorIs(t, err, ErrInvalidFunnel)

	_, err = engine.ComputeFunnel(ctx, threeSteps, funnelEnd, funnelStart, nil)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = engine.ComputeFunnel(ctx, threeSteps, funnelStart, funnelStart, nil)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestComputeFunnel_StoreError(t *testing.T) {
	events := new(MockEventReader)
	engine := NewFunnelEngine(events, zap.NewNop())
	events.On("CountDistinctUsers", mock.Anything, mock.Anything).Return(uint64(0), errors.New("timeout"))

	result, err := engine.ComputeFunnel(context.Background(), threeSteps, funnelStart, funnelEnd, nil)

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestFunnelName_Predefined(t *testing.T) {
	assert.Equal(t, "purchase", funnelName(domain.PurchaseFunnel.Steps))
	assert.Equal(t, "search", funnelName([]domain.EventType{"search_performed", "search_result_clicked"}))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00:45", formatDuration(45*time.Second))
	assert.Equal(t, "2:03:04", formatDuration(2*time.Hour+3*time.Minute+4*time.Second))
	assert.Equal(t, "1 day, 0:00:01", formatDuration(24*time.Hour+time.Second))
	assert.Equal(t, "3 days, 1:00:00", formatDuration(73*time.Hour))
}
