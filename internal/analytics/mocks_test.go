package analytics

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository"
)

type MockEventReader struct {
	mock.Mock
}

func (m *MockEventReader) CountEvents(ctx context.Context, filter repository.EventFilter) (uint64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockEventReader) CountDistinctUsers(ctx context.Context, filter repository.EventFilter) (uint64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockEventReader) CountByType(ctx context.Context, filter repository.EventFilter) (map[domain.EventType]uint64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.EventType]uint64), args.Error(1)
}

func (m *MockEventReader) ListEvents(ctx context.Context, filter repository.EventFilter) ([]domain.AnalyticsEvent, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AnalyticsEvent), args.Error(1)
}

func (m *MockEventReader) DailyCounts(ctx context.Context, filter repository.EventFilter) ([]repository.DayCount, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.DayCount), args.Error(1)
}

func (m *MockEventReader) TopEntities(ctx context.Context, filter repository.EventFilter, limit int) ([]repository.ValueCount, error) {
	args := m.Called(ctx, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ValueCount), args.Error(1)
}

func (m *MockEventReader) TopMetadataValues(ctx context.Context, filter repository.EventFilter, key string, limit int) ([]repository.ValueCount, error) {
	args := m.Called(ctx, filter, key, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ValueCount), args.Error(1)
}

func (m *MockEventReader) ActiveUsers(ctx context.Context, since time.Time, minEvents, minPurchases uint64) ([]repository.UserActivity, error) {
	args := m.Called(ctx, since, minEvents, minPurchases)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.UserActivity), args.Error(1)
}

type MockMarketplaceReader struct {
	mock.Mock
}

func (m *MockMarketplaceReader) UsersCreatedBetween(ctx context.Context, start, end time.Time) ([]string, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockMarketplaceReader) UserProfiles(ctx context.Context, ids []string) (map[string]domain.UserProfile, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.UserProfile), args.Error(1)
}

func (m *MockMarketplaceReader) TransactionsByBuyer(ctx context.Context, buyerID string) ([]domain.Transaction, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockMarketplaceReader) CompletedRevenue(ctx context.Context, start, end time.Time) (float64, int64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(float64), args.Get(1).(int64), args.Error(2)
}

func hasTypes(types ...domain.EventType) interface{} {
	return mock.MatchedBy(func(f repository.EventFilter) bool {
		if len(f.EventTypes) != len(types) {
			return false
		}
		for i := range types {
			if f.EventTypes[i] != types[i] {
				return false
			}
		}
		return true
	})
}
