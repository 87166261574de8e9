package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	called := m.Called(ctx, sql, args)
	rows, _ := called.Get(0).(pgx.Rows)
	return rows, called.Error(1)
}

func (m *MockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	called := m.Called(ctx, sql, args)
	return called.Get(0).(pgx.Row)
}

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch v := d.(type) {
		case *float64:
			*v = r.values[i].(float64)
		case *int64:
			*v = r.values[i].(int64)
		}
	}
	return nil
}

func TestUserProfiles_NoIDs(t *testing.T) {
	db := new(MockQuerier)
	reader := NewMarketplaceReader(db, zap.NewNop())

	profiles, err := reader.UserProfiles(context.Background(), nil)

	assert.NoError(t, err)
	assert.Empty(t, profiles)
	db.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}

func TestUsersCreatedBetween_QueryError(t *testing.T) {
	db := new(MockQuerier)
	reader := NewMarketplaceReader(db, zap.NewNop())
	db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	ids, err := reader.UsersCreatedBetween(context.Background(), time.Now().Add(-24*time.Hour), time.Now())

	assert.Error(t, err)
	assert.Nil(t, ids)
	assert.Contains(t, err.Error(), "failed to query cohort users")
}

func TestCompletedRevenue(t *testing.T) {
	db := new(MockQuerier)
	reader := NewMarketplaceReader(db, zap.NewNop())
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(stubRow{values: []any{125.5, int64(3)}})

	revenue, count, err := reader.CompletedRevenue(context.Background(), time.Now().Add(-24*time.Hour), time.Now())

	assert.NoError(t, err)
	assert.Equal(t, 125.5, revenue)
	assert.Equal(t, int64(3), count)
}

func TestCompletedRevenue_ScanError(t *testing.T) {
	db := new(MockQuerier)
	reader := NewMarketplaceReader(db, zap.NewNop())
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(stubRow{err: pgx.ErrNoRows})

	_, _, err := reader.CompletedRevenue(context.Background(), time.Now().Add(-24*time.Hour), time.Now())

	assert.ErrorIs(t, err, pgx.ErrNoRows)
}
