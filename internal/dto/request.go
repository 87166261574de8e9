package dto

// TrackEventRequest represents a single tracked event
type TrackEventRequest struct {
	EventType  string         `json:"event_type" binding:"required"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Metadata   map[string]any `json:"metadata"`
}

// TrackEventsBulkRequest represents a bulk tracking request
type TrackEventsBulkRequest struct {
	Events []TrackEventRequest `json:"events" binding:"required,min=1,max=1000,dive"`
}

// FunnelRequest selects a predefined funnel by name or an explicit list of
// steps, over [from, to) in Unix seconds. Metadata entries are "key:value".
type FunnelRequest struct {
	Funnel     string   `form:"funnel"`
	Steps      []string `form:"steps"`
	From       int64    `form:"from" binding:"required"`
	To         int64    `form:"to" binding:"required"`
	EntityType string   `form:"entity_type"`
	EntityID   string   `form:"entity_id"`
	Metadata   []string `form:"metadata"`
}

type AbandonedCartsRequest struct {
	Hours int `form:"hours,default=1" binding:"min=1"`
}

type CohortRequest struct {
	Days []int `form:"days"`
}

type PowerUsersRequest struct {
	MinEvents    int `form:"min_events" binding:"min=0"`
	MinPurchases int `form:"min_purchases" binding:"min=0"`
	WindowDays   int `form:"window_days" binding:"min=0"`
}

type ChurnRequest struct {
	LookbackDays int `form:"lookback_days,default=30"`
}

// PeriodRequest is the trailing window, in days, of summary endpoints
type PeriodRequest struct {
	Days int `form:"days,default=30"`
}

type JourneyRequest struct {
	Limit int `form:"limit,default=100"`
}
