package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/analytics"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/cache"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/dto"
)

// Cache kinds, also used as metric labels.
const (
	kindFunnel      = "funnel"
	kindCohort      = "cohort"
	kindLTV         = "ltv"
	kindPowerUsers  = "power_users"
	kindPrompt      = "prompt"
	kindMarketplace = "marketplace"
	kindDailyReport = "daily_report"
)

type ReportConfig struct {
	// DailyReportTTL applies to reports of days that have already ended.
	DailyReportTTL time.Duration
}

// ReportService validates read requests, memoizes the expensive ones in the
// cache and delegates to the analytics engines.
type ReportService struct {
	funnels  FunnelComputer
	behavior BehaviorAnalyzer
	insights InsightsProvider
	reports  DailyReportBuilder
	cache    *cache.Cache
	cfg      ReportConfig
	now      func() time.Time
	log      *zap.Logger
}

// NewReportService creates a new report service. cache may be nil.
func NewReportService(funnels FunnelComputer, behavior BehaviorAnalyzer, insights InsightsProvider, reports DailyReportBuilder, c *cache.Cache, cfg ReportConfig, log *zap.Logger) *ReportService {
	return &ReportService{
		funnels:  funnels,
		behavior: behavior,
		insights: insights,
		reports:  reports,
		cache:    c,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

// Funnel resolves the requested steps and segment and computes the funnel
func (s *ReportService) Funnel(ctx context.Context, req *dto.FunnelRequest) (*analytics.FunnelResult, error) {
	steps, err := funnelSteps(req)
	if err != nil {
		return nil, err
	}
	segment, err := segmentFilter(req)
	if err != nil {
		return nil, err
	}

	start := time.Unix(req.From, 0).UTC()
	end := time.Unix(req.To, 0).UTC()

	key := cache.Key(kindFunnel, funnelCacheKey(steps, req.From, req.To, segment))
	return cache.Remember(ctx, s.cache, kindFunnel, key, 0, func(ctx context.Context) (*analytics.FunnelResult, error) {
		return s.funnels.ComputeFunnel(ctx, steps, start, end, segment)
	})
}

func funnelSteps(req *dto.FunnelRequest) ([]domain.EventType, error) {
	if req.Funnel != "" {
		def, ok := domain.Funnels[req.Funnel]
		if !ok {
			return nil, fmt.Errorf("%w: unknown funnel %q", analytics.ErrInvalidFunnel, req.Funnel)
		}
		return def.Steps, nil
	}

	var raw []string
	for _, s := range req.Steps {
		for _, part := range strings.Split(s, ",") {
			raw = append(raw, strings.TrimSpace(part))
		}
	}
	return domain.ParseEventTypes(raw), nil
}

func segmentFilter(req *dto.FunnelRequest) (*analytics.SegmentFilter, error) {
	if req.EntityType == "" && req.EntityID == "" && len(req.Metadata) == 0 {
		return nil, nil
	}

	segment := &analytics.SegmentFilter{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
	}
	for _, pair := range req.Metadata {
		k, v, ok := strings.Cut(pair, ":")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: metadata filter %q must be key:value", analytics.ErrInvalidArgument, pair)
		}
		if segment.Metadata == nil {
			segment.Metadata = make(map[string]string)
		}
		segment.Metadata[k] = v
	}
	return segment, nil
}

func funnelCacheKey(steps []domain.EventType, from, to int64, segment *analytics.SegmentFilter) string {
	parts := make([]string, 0, len(steps)+4)
	for _, s := range steps {
		parts = append(parts, string(s))
	}
	parts = append(parts, strconv.FormatInt(from, 10), strconv.FormatInt(to, 10))
	if segment != nil {
		parts = append(parts, segment.EntityType, segment.EntityID)
		keys := make([]string, 0, len(segment.Metadata))
		for k := range segment.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			parts = append(parts, k+"="+segment.Metadata[k])
		}
	}
	return strings.Join(parts, "|")
}

func (s *ReportService) AbandonedCarts(ctx context.Context, threshold time.Duration) ([]analytics.AbandonedCart, error) {
	return s.behavior.AbandonedCarts(ctx, threshold)
}

func (s *ReportService) CohortRetention(ctx context.Context, cohortDate time.Time, offsets []int) (*analytics.CohortRetention, error) {
	if len(offsets) == 0 {
		offsets = analytics.DefaultRetentionOffsets
	}
	days := make([]string, 0, len(offsets))
	for _, o := range offsets {
		days = append(days, strconv.Itoa(o))
	}

	key := cache.Key(kindCohort, cohortDate.UTC().Format(time.DateOnly), strings.Join(days, ","))
	return cache.Remember(ctx, s.cache, kindCohort, key, 0, func(ctx context.Context) (*analytics.CohortRetention, error) {
		return s.behavior.CohortRetention(ctx, cohortDate, offsets)
	})
}

func (s *ReportService) LifetimeValue(ctx context.Context, userID string) (*analytics.LifetimeValue, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", analytics.ErrInvalidArgument)
	}
	return cache.Remember(ctx, s.cache, kindLTV, cache.Key(kindLTV, userID), 0, func(ctx context.Context) (*analytics.LifetimeValue, error) {
		return s.behavior.LifetimeValue(ctx, userID)
	})
}

func (s *ReportService) PowerUsers(ctx context.Context, criteria analytics.PowerUserCriteria) ([]analytics.PowerUser, error) {
	key := cache.Key(kindPowerUsers,
		strconv.Itoa(criteria.MinEvents),
		strconv.Itoa(criteria.MinPurchases),
		criteria.Window.String())
	return cache.Remember(ctx, s.cache, kindPowerUsers, key, 0, func(ctx context.Context) ([]analytics.PowerUser, error) {
		return s.behavior.PowerUsers(ctx, criteria)
	})
}

// ChurnRisk is computed on every call; it depends on the last seven days.
func (s *ReportService) ChurnRisk(ctx context.Context, userID string, lookbackDays int) (*analytics.ChurnRisk, error) {
	return s.behavior.ChurnRisk(ctx, userID, lookbackDays)
}

func (s *ReportService) PromptAnalytics(ctx context.Context, promptID string, days int) (*analytics.PromptAnalytics, error) {
	if promptID == "" {
		return nil, fmt.Errorf("%w: prompt id is required", analytics.ErrInvalidArgument)
	}
	key := cache.Key(kindPrompt, promptID, strconv.Itoa(days))
	return cache.Remember(ctx, s.cache, kindPrompt, key, 0, func(ctx context.Context) (*analytics.PromptAnalytics, error) {
		return s.insights.PromptAnalytics(ctx, promptID, days)
	})
}

func (s *ReportService) UserSummary(ctx context.Context, userID string, days int) (*analytics.UserSummary, error) {
	return s.insights.UserSummary(ctx, userID, days)
}

func (s *ReportService) UserJourney(ctx context.Context, userID string, limit int) ([]analytics.JourneyStep, error) {
	return s.insights.UserJourney(ctx, userID, limit)
}

func (s *ReportService) MarketplaceAnalytics(ctx context.Context, days int) (*analytics.MarketplaceAnalytics, error) {
	key := cache.Key(kindMarketplace, strconv.Itoa(days))
	return cache.Remember(ctx, s.cache, kindMarketplace, key, 0, func(ctx context.Context) (*analytics.MarketplaceAnalytics, error) {
		return s.insights.MarketplaceAnalytics(ctx, days)
	})
}

// DailyReport returns the report for the UTC day of day. Reports of
// finished days are kept for DailyReportTTL, the current day only for the
// default cache TTL.
func (s *ReportService) DailyReport(ctx context.Context, day time.Time) (*analytics.DailyReport, error) {
	day = day.UTC()
	if day.After(s.now()) {
		return nil, fmt.Errorf("%w: report date is in the future", analytics.ErrInvalidArgument)
	}

	return cache.Remember(ctx, s.cache, kindDailyReport, cache.DailyReportKey(day), s.reportTTL(day), func(ctx context.Context) (*analytics.DailyReport, error) {
		return s.reports.Build(ctx, day)
	})
}

// StoreDailyReport builds the report for day and overwrites its cache entry.
func (s *ReportService) StoreDailyReport(ctx context.Context, day time.Time) (*analytics.DailyReport, error) {
	day = day.UTC()
	report, err := s.reports.Build(ctx, day)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cache.DailyReportKey(day), report, s.reportTTL(day))
	return report, nil
}

func (s *ReportService) reportTTL(day time.Time) time.Duration {
	y, m, d := day.Date()
	dayEnd := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	if s.now().Before(dayEnd) {
		return 0
	}
	return s.cfg.DailyReportTTL
}
