package analytics

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository"
)

const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// SegmentFilter restricts a funnel to events about one entity or carrying
// given metadata values.
type SegmentFilter struct {
	EntityType string            `json:"entity_type,omitempty"`
	EntityID   string            `json:"entity_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// FunnelStep is the distinct user count at one step and its conversion from
// the previous step. The first step always converts at 100%.
type FunnelStep struct {
	StepName       domain.EventType `json:"step_name"`
	Users          uint64           `json:"users"`
	ConversionRate float64          `json:"conversion_rate"`
	DropOffRate    float64          `json:"drop_off_rate"`
}

// DropOff flags a transition whose drop-off rate is medium or high.
type DropOff struct {
	FromStep    domain.EventType `json:"from_step"`
	ToStep      domain.EventType `json:"to_step"`
	DropOffRate float64          `json:"drop_off_rate"`
	Severity    string           `json:"severity"`
}

type TimeToConvert struct {
	Seconds   int64  `json:"seconds"`
	Formatted string `json:"formatted"`
}

// FunnelResult is the outcome of ComputeFunnel. AverageTimeToConvert is nil
// when no user completed the funnel within one session.
type FunnelResult struct {
	FunnelName           string         `json:"funnel_name"`
	Start                time.Time      `json:"start"`
	End                  time.Time      `json:"end"`
	Steps                []FunnelStep   `json:"steps"`
	OverallConversion    float64        `json:"overall_conversion"`
	AverageTimeToConvert *TimeToConvert `json:"average_time_to_convert"`
	DropOffAnalysis      []DropOff      `json:"drop_off_analysis"`
}

// FunnelEngine computes step-wise conversion over persisted events
type FunnelEngine struct {
	events repository.EventReader
	log    *zap.Logger
}

// NewFunnelEngine creates a new funnel engine
func NewFunnelEngine(events repository.EventReader, log *zap.Logger) *FunnelEngine {
	return &FunnelEngine{events: events, log: log}
}

// ComputeFunnel counts distinct identified users per step within [start, end)
// and derives conversion, drop-off and average time to convert.
func (f *FunnelEngine) ComputeFunnel(ctx context.Context, steps []domain.EventType, start, end time.Time, segment *SegmentFilter) (*FunnelResult, error) {
	if len(steps) < 2 {
		return nil, ErrInvalidFunnel
	}
	for _, s := range steps {
		if strings.TrimSpace(string(s)) == "" {
			return nil, ErrInvalidFunnel
		}
	}
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}

	base := repository.EventFilter{Start: start, End: end}
	if segment != nil {
		base.EntityType = segment.EntityType
		base.EntityID = segment.EntityID
		base.Metadata = segment.Metadata
	}

	result := &FunnelResult{
		FunnelName:      funnelName(steps),
		Start:           start.UTC(),
		End:             end.UTC(),
		Steps:           make([]FunnelStep, 0, len(steps)),
		DropOffAnalysis: []DropOff{},
	}

	users := make([]uint64, len(steps))
	for i, step := range steps {
		filter := base
		filter.EventTypes = []domain.EventType{step}

		count, err := f.events.CountDistinctUsers(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count users for step %q: %w", step, err)
		}
		users[i] = count

		conversion, dropOff := 100.0, 0.0
		if i > 0 {
			conversion = 0
			if users[i-1] > 0 {
				conversion = round2(percent(users[i], users[i-1]))
			}
			dropOff = round2(100 - conversion)

			if severity := dropOffSeverity(dropOff); severity != "" {
				result.DropOffAnalysis = append(result.DropOffAnalysis, DropOff{
					FromStep:    steps[i-1],
					ToStep:      step,
					DropOffRate: dropOff,
					Severity:    severity,
				})
			}
		}

		result.Steps = append(result.Steps, FunnelStep{
			StepName:       step,
			Users:          count,
			ConversionRate: conversion,
			DropOffRate:    dropOff,
		})
	}

	result.OverallConversion = round2(percent(users[len(users)-1], users[0]))

	ttc, err := f.averageTimeToConvert(ctx, base, steps[0], steps[len(steps)-1])
	if err != nil {
		return nil, err
	}
	result.AverageTimeToConvert = ttc

	f.log.Debug("Funnel computed",
		zap.String("funnel", result.FunnelName),
		zap.Int("steps", len(steps)),
		zap.Float64("overall_conversion", result.OverallConversion))

	return result, nil
}

// averageTimeToConvert pairs each converting user's earliest final-step event
// that has a first-step event in the same session, at or before it, with the
// earliest such first-step event. Users without a pair are left out.
func (f *FunnelEngine) averageTimeToConvert(ctx context.Context, base repository.EventFilter, first, last domain.EventType) (*TimeToConvert, error) {
	finalFilter := base
	finalFilter.EventTypes = []domain.EventType{last}
	finalFilter.IdentifiedOnly = true
	finalFilter.WithSession = true

	finals, err := f.events.ListEvents(ctx, finalFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to load final step events: %w", err)
	}
	if len(finals) == 0 {
		return nil, nil
	}

	sessions := make([]string, 0, len(finals))
	seenSession := make(map[string]bool, len(finals))
	for _, e := range finals {
		if !seenSession[e.SessionID] {
			seenSession[e.SessionID] = true
			sessions = append(sessions, e.SessionID)
		}
	}

	firstFilter := base
	firstFilter.EventTypes = []domain.EventType{first}
	firstFilter.SessionIDs = sessions
	firstFilter.WithSession = true

	starts, err := f.events.ListEvents(ctx, firstFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to load first step events: %w", err)
	}

	earliestStart := make(map[string]time.Time, len(starts))
	for _, e := range starts {
		if t, ok := earliestStart[e.SessionID]; !ok || e.CreatedAt.Before(t) {
			earliestStart[e.SessionID] = e.CreatedAt
		}
	}

	perUser := make(map[string]time.Duration)
	for _, e := range finals {
		if _, done := perUser[e.UserID]; done {
			continue
		}
		startAt, ok := earliestStart[e.SessionID]
		if !ok || startAt.After(e.CreatedAt) {
			continue
		}
		perUser[e.UserID] = e.CreatedAt.Sub(startAt)
	}
	if len(perUser) == 0 {
		return nil, nil
	}

	var total time.Duration
	for _, d := range perUser {
		total += d
	}
	avgSeconds := total.Seconds() / float64(len(perUser))

	return &TimeToConvert{
		Seconds:   int64(math.Round(avgSeconds)),
		Formatted: formatDuration(time.Duration(avgSeconds * float64(time.Second))),
	}, nil
}

func dropOffSeverity(dropOff float64) string {
	switch {
	case dropOff > 70:
		return SeverityHigh
	case dropOff > 50:
		return SeverityMedium
	default:
		return ""
	}
}

func funnelName(steps []domain.EventType) string {
	for _, def := range domain.Funnels {
		if slices.Equal(def.Steps, steps) {
			return def.Name
		}
	}
	name, _, _ := strings.Cut(string(steps[0]), "_")
	return name
}
