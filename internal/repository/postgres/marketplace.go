package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
)

// Querier is the subset of pgxpool.Pool used by the reader
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// MarketplaceReader reads users and transactions owned by the marketplace.
// It implements repository.MarketplaceReader.
type MarketplaceReader struct {
	db  Querier
	log *zap.Logger
}

// NewMarketplaceReader creates a new marketplace reader
func NewMarketplaceReader(db Querier, log *zap.Logger) *MarketplaceReader {
	return &MarketplaceReader{db: db, log: log}
}

// UsersCreatedBetween returns ids of users created in [start, end)
func (m *MarketplaceReader) UsersCreatedBetween(ctx context.Context, start, end time.Time) ([]string, error) {
	rows, err := m.db.Query(ctx,
		`SELECT id::text FROM users WHERE created_at >= $1 AND created_at < $2`,
		start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query cohort users: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect cohort users: %w", err)
	}
	return ids, nil
}

// UserProfiles loads profiles for the given ids; unknown ids are absent from the result
func (m *MarketplaceReader) UserProfiles(ctx context.Context, ids []string) (map[string]domain.UserProfile, error) {
	profiles := make(map[string]domain.UserProfile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	rows, err := m.db.Query(ctx,
		`SELECT id::text, email, COALESCE(name, ''), created_at FROM users WHERE id::text = ANY($1)`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query user profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.UserProfile
		if err := rows.Scan(&p.ID, &p.Email, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user profile: %w", err)
		}
		profiles[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user profiles: %w", err)
	}
	return profiles, nil
}

// TransactionsByBuyer returns every transaction of a buyer, oldest first
func (m *MarketplaceReader) TransactionsByBuyer(ctx context.Context, buyerID string) ([]domain.Transaction, error) {
	rows, err := m.db.Query(ctx, `
		SELECT id::text, buyer_id::text, prompt_id::text, amount::float8, status, created_at
		FROM transactions
		WHERE buyer_id::text = $1
		ORDER BY created_at ASC`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.BuyerID, &t.PromptID, &t.Amount, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}

// CompletedRevenue sums completed transactions created in [start, end)
func (m *MarketplaceReader) CompletedRevenue(ctx context.Context, start, end time.Time) (float64, int64, error) {
	var (
		revenue float64
		count   int64
	)
	err := m.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::float8, COUNT(*)
		FROM transactions
		WHERE status = $1 AND created_at >= $2 AND created_at < $3`,
		domain.TransactionStatusCompleted, start.UTC(), end.UTC()).Scan(&revenue, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query completed revenue: %w", err)
	}
	return revenue, count, nil
}
