package dto

import "github.com/juanpasaflipz/ai-prompt-marketplace/internal/pipeline"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// TrackEventResponse represents an accepted tracking request. Events are
// buffered, so acceptance does not imply persistence.
type TrackEventResponse struct {
	Status string `json:"status"`
}

// TrackEventsBulkResponse represents the outcome of a bulk tracking request
type TrackEventsBulkResponse struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// HealthResponse reports the status of each dependency
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// FlushResponse acknowledges a flush request
type FlushResponse struct {
	Status   string `json:"status"`
	Buffered int    `json:"buffered"`
}

// PipelineStatsResponse reports ingestion buffer and flush worker state
type PipelineStatsResponse struct {
	Worker       pipeline.FlushStats `json:"worker"`
	BreakerState string              `json:"breaker_state"`
}
