package analytics

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository"
)

// DefaultRetentionOffsets are the cohort retention days reported when none are given.
var DefaultRetentionOffsets = []int{1, 7, 14, 30, 60, 90}

const (
	RiskHigh    = "high"
	RiskMedium  = "medium"
	RiskLow     = "low"
	RiskMinimal = "minimal"

	recentWindowDays = 7
	noActivityDays   = 999
)

var retentionRecommendations = map[string][]string{
	RiskHigh: {
		"Send win-back email campaign",
		"Offer personalized discount",
		"Reach out with customer success call",
		"Highlight new features or prompts",
	},
	RiskMedium: {
		"Send engagement email with popular prompts",
		"Offer loyalty rewards",
		"Send tutorial or tips content",
	},
	RiskLow: {
		"Include in regular newsletter",
		"Show personalized recommendations",
	},
	RiskMinimal: {
		"Continue normal engagement",
	},
}

// BehaviorConfig holds the tunables of the behavior engine.
type BehaviorConfig struct {
	SinglePurchaseFrequency float64
	ProjectionMonths        int
	PowerUsers              PowerUserCriteria
}

// PowerUserCriteria are inclusive minimums over a trailing window.
type PowerUserCriteria struct {
	MinEvents    int
	MinPurchases int
	Window       time.Duration
}

// AbandonedCart is a session that added to cart and never purchased.
type AbandonedCart struct {
	SessionID           string    `json:"session_id"`
	UserID              string    `json:"user_id,omitempty"`
	LastActivity        time.Time `json:"last_activity"`
	CartValue           float64   `json:"cart_value"`
	ItemsCount          int       `json:"items_count"`
	AbandonmentDuration string    `json:"abandonment_duration"`
}

type RetentionPeriod struct {
	Day           int     `json:"day"`
	ActiveUsers   uint64  `json:"active_users"`
	RetentionRate float64 `json:"retention_rate"`
}

// CohortRetention is the share of a signup cohort active on each offset day.
type CohortRetention struct {
	CohortDate       string            `json:"cohort_date"`
	CohortSize       int               `json:"cohort_size"`
	RetentionPeriods []RetentionPeriod `json:"retention_periods"`
}

// LifetimeValue is a user's realized and projected spend.
type LifetimeValue struct {
	UserID                   string  `json:"user_id"`
	CurrentLTV               float64 `json:"current_ltv"`
	TransactionCount         int     `json:"transaction_count"`
	AverageOrderValue        float64 `json:"average_order_value"`
	PurchaseFrequencyMonthly float64 `json:"purchase_frequency_monthly"`
	ProjectedLTV             float64 `json:"projected_ltv"`
	ProjectionMonths         int     `json:"projection_months"`
}

// PowerUser is a user meeting PowerUserCriteria, enriched with profile data
// when available.
type PowerUser struct {
	UserID          string  `json:"user_id"`
	Email           string  `json:"email,omitempty"`
	Name            string  `json:"name,omitempty"`
	SessionsCount   uint64  `json:"sessions_count"`
	TotalEvents     uint64  `json:"total_events"`
	Purchases       uint64  `json:"purchases"`
	EngagementScore float64 `json:"engagement_score"`
}

// ChurnRisk compares recent with baseline activity for one user.
type ChurnRisk struct {
	UserID                string   `json:"user_id"`
	RiskLevel             string   `json:"churn_risk_level"`
	RiskScore             float64  `json:"churn_risk_score"`
	ActivityChangePercent float64  `json:"activity_change_percent"`
	DaysSinceLastActivity int      `json:"days_since_last_activity"`
	BaselineEvents        uint64   `json:"baseline_events"`
	RecentEvents          uint64   `json:"recent_events"`
	Recommendations       []string `json:"recommendations"`
}

// BehaviorEngine derives per-user and per-cohort behavior aggregates from
// persisted events and marketplace transactions.
type BehaviorEngine struct {
	events      repository.EventReader
	marketplace repository.MarketplaceReader
	cfg         BehaviorConfig
	now         func() time.Time
	log         *zap.Logger
}

// NewBehaviorEngine creates a new behavior engine
func NewBehaviorEngine(events repository.EventReader, marketplace repository.MarketplaceReader, cfg BehaviorConfig, log *zap.Logger) *BehaviorEngine {
	return &BehaviorEngine{
		events:      events,
		marketplace: marketplace,
		cfg:         cfg,
		now:         time.Now,
		log:         log,
	}
}

// AbandonedCarts finds sessions that added to cart before now-threshold and
// never purchased.
func (b *BehaviorEngine) AbandonedCarts(ctx context.Context, threshold time.Duration) ([]AbandonedCart, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: threshold must be positive", ErrInvalidArgument)
	}
	now := b.now().UTC()
	cutoff := now.Add(-threshold)

	stale, err := b.events.ListEvents(ctx, repository.EventFilter{
		EventTypes:  []domain.EventType{domain.EventPromptAddToCart},
		End:         cutoff,
		WithSession: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load cart events: %w", err)
	}
	if len(stale) == 0 {
		return []AbandonedCart{}, nil
	}

	var sessions []string
	seen := make(map[string]bool)
	for _, e := range stale {
		if !seen[e.SessionID] {
			seen[e.SessionID] = true
			sessions = append(sessions, e.SessionID)
		}
	}

	sessionEvents, err := b.events.ListEvents(ctx, repository.EventFilter{
		EventTypes: []domain.EventType{domain.EventPromptAddToCart, domain.EventPromptPurchased},
		SessionIDs: sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load session events: %w", err)
	}

	purchased := make(map[string]bool)
	carts := make(map[string]*AbandonedCart)
	for _, e := range sessionEvents {
		if e.EventType == domain.EventPromptPurchased {
			purchased[e.SessionID] = true
			continue
		}
		cart, ok := carts[e.SessionID]
		if !ok {
			cart = &AbandonedCart{SessionID: e.SessionID}
			carts[e.SessionID] = cart
		}
		if cart.UserID == "" {
			cart.UserID = e.UserID
		}
		cart.ItemsCount++
		cart.CartValue += metadataPrice(e.MetadataMap())
		if e.CreatedAt.After(cart.LastActivity) {
			cart.LastActivity = e.CreatedAt
		}
	}

	abandoned := make([]AbandonedCart, 0, len(carts))
	for _, session := range sessions {
		cart, ok := carts[session]
		if !ok || purchased[session] {
			continue
		}
		cart.CartValue = round2(cart.CartValue)
		cart.LastActivity = cart.LastActivity.UTC()
		cart.AbandonmentDuration = formatDuration(now.Sub(cart.LastActivity))
		abandoned = append(abandoned, *cart)
	}

	sort.SliceStable(abandoned, func(i, j int) bool {
		return abandoned[i].LastActivity.After(abandoned[j].LastActivity)
	})
	return abandoned, nil
}

func metadataPrice(metadata map[string]any) float64 {
	switch v := metadata["price"].(type) {
	case float64:
		return v
	case string:
		price, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return price
	default:
		return 0
	}
}

// CohortRetention reports, for users created on the UTC day of cohortDate,
// the share active on each offset day.
func (b *BehaviorEngine) CohortRetention(ctx context.Context, cohortDate time.Time, offsets []int) (*CohortRetention, error) {
	if len(offsets) == 0 {
		offsets = DefaultRetentionOffsets
	}
	for _, o := range offsets {
		if o < 0 {
			return nil, fmt.Errorf("%w: retention offset %d is negative", ErrInvalidArgument, o)
		}
	}

	day := startOfDay(cohortDate)
	cohort, err := b.marketplace.UsersCreatedBetween(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to load cohort users: %w", err)
	}

	result := &CohortRetention{
		CohortDate:       day.Format(time.DateOnly),
		CohortSize:       len(cohort),
		RetentionPeriods: make([]RetentionPeriod, 0, len(offsets)),
	}

	for _, offset := range offsets {
		period := RetentionPeriod{Day: offset}
		if len(cohort) > 0 {
			start := day.AddDate(0, 0, offset)
			active, err := b.events.CountDistinctUsers(ctx, repository.EventFilter{
				UserIDs: cohort,
				Start:   start,
				End:     start.AddDate(0, 0, 1),
			})
			if err != nil {
				return nil, fmt.Errorf("failed to count active cohort users for day %d: %w", offset, err)
			}
			period.ActiveUsers = active
			period.RetentionRate = clampPercent(round2(percent(active, uint64(len(cohort)))))
		}
		result.RetentionPeriods = append(result.RetentionPeriods, period)
	}

	return result, nil
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// LifetimeValue sums a user's completed transactions and projects future value.
func (b *BehaviorEngine) LifetimeValue(ctx context.Context, userID string) (*LifetimeValue, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}

	txs, err := b.marketplace.TransactionsByBuyer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	ltv := &LifetimeValue{UserID: userID, ProjectionMonths: b.cfg.ProjectionMonths}

	var (
		total       float64
		count       int
		first, last time.Time
	)
	for _, tx := range txs {
		if !tx.Completed() {
			continue
		}
		total += tx.Amount
		count++
		if first.IsZero() || tx.CreatedAt.Before(first) {
			first = tx.CreatedAt
		}
		if tx.CreatedAt.After(last) {
			last = tx.CreatedAt
		}
	}
	if count == 0 {
		return ltv, nil
	}

	aov := total / float64(count)
	frequency := b.cfg.SinglePurchaseFrequency
	if count > 1 {
		days := int(last.Sub(first).Hours() / 24)
		if days < 1 {
			days = 1
		}
		frequency = float64(count) / float64(days) * 30
	}

	ltv.CurrentLTV = round2(total)
	ltv.TransactionCount = count
	ltv.AverageOrderValue = round2(aov)
	ltv.PurchaseFrequencyMonthly = round2(frequency)
	ltv.ProjectedLTV = round2(aov * frequency * float64(b.cfg.ProjectionMonths))
	return ltv, nil
}

// PowerUsers lists users meeting both activity thresholds in the trailing
// window, most engaged first. Zero criteria fields fall back to the
// configured defaults.
func (b *BehaviorEngine) PowerUsers(ctx context.Context, criteria PowerUserCriteria) ([]PowerUser, error) {
	if criteria.MinEvents < 0 || criteria.MinPurchases < 0 || criteria.Window < 0 {
		return nil, fmt.Errorf("%w: power user thresholds must not be negative", ErrInvalidArgument)
	}
	if criteria.MinEvents == 0 {
		criteria.MinEvents = b.cfg.PowerUsers.MinEvents
	}
	if criteria.MinPurchases == 0 {
		criteria.MinPurchases = b.cfg.PowerUsers.MinPurchases
	}
	if criteria.Window == 0 {
		criteria.Window = b.cfg.PowerUsers.Window
	}

	since := b.now().UTC().Add(-criteria.Window)
	rows, err := b.events.ActiveUsers(ctx, since, uint64(criteria.MinEvents), uint64(criteria.MinPurchases))
	if err != nil {
		return nil, fmt.Errorf("failed to load active users: %w", err)
	}
	if len(rows) == 0 {
		return []PowerUser{}, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}
	profiles, err := b.marketplace.UserProfiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load user profiles: %w", err)
	}

	users := make([]PowerUser, 0, len(rows))
	for _, r := range rows {
		sessions := r.Sessions
		if sessions == 0 {
			sessions = 1
		}
		u := PowerUser{
			UserID:          r.UserID,
			SessionsCount:   r.Sessions,
			TotalEvents:     r.TotalEvents,
			Purchases:       r.Purchases,
			EngagementScore: round2(float64(r.TotalEvents) / float64(sessions)),
		}
		if p, ok := profiles[r.UserID]; ok {
			u.Email = p.Email
			u.Name = p.Name
		}
		users = append(users, u)
	}

	sort.SliceStable(users, func(i, j int) bool {
		if users[i].EngagementScore != users[j].EngagementScore {
			return users[i].EngagementScore > users[j].EngagementScore
		}
		return users[i].UserID < users[j].UserID
	})
	return users, nil
}

// ChurnRisk compares a user's daily event rate over the last seven days with
// the rest of the lookback period.
func (b *BehaviorEngine) ChurnRisk(ctx context.Context, userID string, lookbackDays int) (*ChurnRisk, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	if lookbackDays <= recentWindowDays {
		return nil, fmt.Errorf("%w: lookback must exceed %d days", ErrInvalidArgument, recentWindowDays)
	}

	now := b.now().UTC()
	baselineStart := now.AddDate(0, 0, -lookbackDays)
	recentStart := now.AddDate(0, 0, -recentWindowDays)

	baseline, err := b.events.CountEvents(ctx, repository.EventFilter{
		UserID: userID,
		Start:  baselineStart,
		End:    recentStart,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count baseline events: %w", err)
	}

	recent, err := b.events.CountEvents(ctx, repository.EventFilter{
		UserID: userID,
		Start:  recentStart,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count recent events: %w", err)
	}

	change := activityChange(baseline, recent, lookbackDays-recentWindowDays)
	level, score := churnLevel(change)

	last, err := b.events.ListEvents(ctx, repository.EventFilter{
		UserID: userID,
		Newest: true,
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load last activity: %w", err)
	}
	daysSince := noActivityDays
	if len(last) > 0 {
		daysSince = int(now.Sub(last[0].CreatedAt).Hours() / 24)
	}

	return &ChurnRisk{
		UserID:                userID,
		RiskLevel:             level,
		RiskScore:             score,
		ActivityChangePercent: round2(change),
		DaysSinceLastActivity: daysSince,
		BaselineEvents:        baseline,
		RecentEvents:          recent,
		Recommendations:       slices.Clone(retentionRecommendations[level]),
	}, nil
}

func activityChange(baseline, recent uint64, baselineDays int) float64 {
	if baseline == 0 {
		if recent == 0 {
			return -100
		}
		return 0
	}
	dailyBaseline := float64(baseline) / float64(baselineDays)
	dailyRecent := float64(recent) / recentWindowDays
	return (dailyRecent - dailyBaseline) / dailyBaseline * 100
}

func churnLevel(change float64) (string, float64) {
	switch {
	case change < -70:
		return RiskHigh, 0.9
	case change < -40:
		return RiskMedium, 0.6
	case change < -10:
		return RiskLow, 0.3
	default:
		return RiskMinimal, 0.1
	}
}
