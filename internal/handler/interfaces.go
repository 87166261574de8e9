package handler

import "context"

// HealthChecker is a dependency reported by GET /health
type HealthChecker interface {
	Ping(ctx context.Context) error
}
