package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/analytics"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/dto"
)

// MockReportService is a mock implementation of service.ReportServicer
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Funnel(ctx context.Context, req *dto.FunnelRequest) (*analytics.FunnelResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.FunnelResult), args.Error(1)
}

func (m *MockReportService) AbandonedCarts(ctx context.Context, threshold time.Duration) ([]analytics.AbandonedCart, error) {
	args := m.Called(ctx, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.AbandonedCart), args.Error(1)
}

func (m *MockReportService) CohortRetention(ctx context.Context, cohortDate time.Time, offsets []int) (*analytics.CohortRetention, error) {
	args := m.Called(ctx, cohortDate, offsets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.CohortRetention), args.Error(1)
}

func (m *MockReportService) LifetimeValue(ctx context.Context, userID string) (*analytics.LifetimeValue, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.LifetimeValue), args.Error(1)
}

func (m *MockReportService) PowerUsers(ctx context.Context, criteria analytics.PowerUserCriteria) ([]analytics.PowerUser, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.PowerUser), args.Error(1)
}

func (m *MockReportService) ChurnRisk(ctx context.Context, userID string, lookbackDays int) (*analytics.ChurnRisk, error) {
	args := m.Called(ctx, userID, lookbackDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.ChurnRisk), args.Error(1)
}

func (m *MockReportService) PromptAnalytics(ctx context.Context, promptID string, days int) (*analytics.PromptAnalytics, error) {
	args := m.Called(ctx, promptID, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.PromptAnalytics), args.Error(1)
}

func (m *MockReportService) UserSummary(ctx context.Context, userID string, days int) (*analytics.UserSummary, error) {
	args := m.Called(ctx, userID, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.UserSummary), args.Error(1)
}

func (m *MockReportService) UserJourney(ctx context.Context, userID string, limit int) ([]analytics.JourneyStep, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.JourneyStep), args.Error(1)
}

func (m *MockReportService) MarketplaceAnalytics(ctx context.Context, days int) (*analytics.MarketplaceAnalytics, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.MarketplaceAnalytics), args.Error(1)
}

func (m *MockReportService) DailyReport(ctx context.Context, day time.Time) (*analytics.DailyReport, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.DailyReport), args.Error(1)
}

func TestHandler_GetFunnel(t *testing.T) {
	handler, _, reports, _ := newTestHandler(nil)

	reports.On("Funnel", mock.Anything, &dto.FunnelRequest{
		Funnel:   "purchase",
		From:     1750000000,
		To:       1750086400,
		Metadata: []string{"category:writing"},
	}).Return(&analytics.FunnelResult{
		FunnelName:        "prompt_viewed_to_prompt_purchased",
		OverallConversion: 25,
		Steps: []analytics.FunnelStep{
			{StepName: "prompt_viewed", Users: 4, ConversionRate: 100},
			{StepName: "prompt_purchased", Users: 1, ConversionRate: 25, DropOffRate: 75},
		},
	}, nil)

	w := doRequest(handler, http.MethodGet,
		"/analytics/funnel?funnel=purchase&from=1750000000&to=1750086400&metadata=category:writing", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var result analytics.FunnelResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 25.0, result.OverallConversion)
	assert.Len(t, result.Steps, 2)
	reports.AssertExpectations(t)
}

func TestHandler_GetFunnel_MissingRange(t *testing.T) {
	handler, _, reports, _ := newTestHandler(nil)

	w := doRequest(handler, http.MethodGet, "/analytics/funnel?funnel=purchase", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	reports.AssertNotCalled(t, "Funnel", mock.Anything, mock.Anything)
}

func TestHandler_GetFunnel_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantError string
	}{
		{"invalid range", analytics.ErrInvalidRange, http.StatusBadRequest, "validation_error"},
		{"invalid funnel", fmt.Errorf("%w: unknown funnel %q", analytics.ErrInvalidFunnel, "x"), http.StatusBadRequest, "validation_error"},
		{"store failure", errors.New("failed to count users: connection reset"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, reports, _ := newTestHandler(nil)
			reports.On("Funnel", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := doRequest(handler, http.MethodGet, "/analytics/funnel?steps=a,b&from=2&to=1", nil)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantError, decodeError(t, w).Error)
		})
	}
}

func TestHandler_GetAbandonedCarts_DefaultThreshold(t *testing.T) {
	handler, _, reports, _ := newTestHandler(nil)

	reports.On("AbandonedCarts", mock.Anything, time.Hour).Return([]analytics.AbandonedCart{
		{SessionID: "sess-1", CartValue: 29.98, ItemsCount: 2},
	}, nil)

	w := doRequest(handler, http.MethodGet, "/analytics/abandoned-carts", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		AbandonedCarts []analytics.AbandonedCart `json:"abandoned_carts"`
		Count          int                       `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, 29.98, response.AbandonedCarts[0].CartValue)
}

func TestHandler_GetAbandonedCarts_InvalidHours(t *testing.T) {
	handler, _, reports, _ := newTestHandler(nil)

	w := doRequest(handler, http.MethodGet, "/analytics/abandoned-carts?hours=0", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	reports.AssertNotCalled(t, "AbandonedCarts", mock.Anything, mock.Anything)
}

func TestHandler_GetCohortRetention(t *testing.T) {
	handler, _, reports, _ := newTestHandler(nil)
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	reports.On("CohortRetention", mock.Anything, day, []int{1, 7}).Return(&analytics.CohortRetention{
		CohortDate: "2026-05-01",
		CohortSize: 10,
		RetentionPeriods: []analytics.RetentionPeriod{
			{Day: 1, ActiveUsers: 4, RetentionRate: 40},
			{Day: 7, ActiveUsers: 2, RetentionRate: 20},
		},
	}, nil)

	w := doRequest(handler, http.MethodGet, "/analytics/cohorts/2026-05-01?days=1&days=7", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var result analytics.CohortRetention
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 10, result.CohortSize)
	assert.Len(t, result.RetentionPeriods, 2)
}

func TestHandler_GetPowerUsers(t *testing.T) {
	handler, _, reports, _ := newTestHandler(nil)

	reports.On("PowerUsers", mock.Anything, analytics.PowerUserCriteria{
		MinEvents:    20,
		MinPurchases: 2,
		Window:       14 * 24 * time.Hour,
	}).Return([]analytics.PowerUser{{UserID: "u1", EngagementScore: 12.5}}, nil)

	w := doRequest(handler, http.MethodGet, "/analytics/power-users?min_events=20&min_purchases=2&window_days=14", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	reports.AssertExpectations(t)
}

func TestHandler_UserEndpoints(t *testing.T) {
	handler, _, reports, _ := newTestHandler(nil)

	reports.On("LifetimeValue", mock.Anything, "u1").
		Return(&analytics.LifetimeValue{UserID: "u1", CurrentLTV: 60}, nil)
	reports.On("ChurnRisk", mock.Anything, "u1", 30).
		Return(&analytics.ChurnRisk{UserID: "u1", RiskLevel: analytics.RiskLow}, nil)
	reports.On("UserJourney", mock.Anything, "u1", 50).
		Return([]analytics.JourneyStep{{EventType: "prompt_viewed"}}, nil)
	reports.On("UserSummary", mock.Anything, "u1", 7).
		Return(&analytics.UserSummary{UserID: "u1", TotalEvents: 3}, nil)

	for _, target := range []string{
		"/analytics/users/u1/ltv",
		"/analytics/users/u1/churn",
		"/analytics/users/u1/journey?limit=50",
		"/analytics/users/u1/summary?days=7",
	} {
		w := doRequest(handler, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusOK, w.Code, target)
	}
	reports.AssertExpectations(t)
}

func TestHandler_GetChurnRisk_InvalidLookback(t *testing.T) {
	handler, _, reports, _ := newTestHandler(nil)

	reports.On("ChurnRisk", mock.Anything, "u1", 5).
		Return(nil, fmt.Errorf("%w: lookback must exceed 7 days", analytics.ErrInvalidArgument))

	w := doRequest(handler, http.MethodGet, "/analytics/users/u1/churn?lookback_days=5", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "lookback")
}

func TestHandler_PromptAndMarketplace(t *testing.T) {
	handler, _, reports, _ := newTestHandler(nil)

	reports.On("PromptAnalytics", mock.Anything, "p1", 30).
		Return(&analytics.PromptAnalytics{PromptID: "p1", Views: 10}, nil)
	reports.On("MarketplaceAnalytics", mock.Anything, 7).
		Return(&analytics.MarketplaceAnalytics{PeriodDays: 7}, nil)

	w := doRequest(handler, http.MethodGet, "/analytics/prompts/p1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(handler, http.MethodGet, "/analytics/marketplace?days=7", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	reports.AssertExpectations(t)
}
