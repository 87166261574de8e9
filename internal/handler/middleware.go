package handler

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/pipeline"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/service"
)

const (
	SessionHeader = "X-Session-ID"
	UserHeader    = "X-User-ID"

	// UserIDKey is the gin context key an authentication layer sets.
	UserIDKey = "user_id"
)

// TrackingMiddleware assigns every request a session id, echoed in the
// X-Session-ID response header, and records prompt views, searches and
// category browsing for successful requests under /api/. The analytics API
// itself serves no /api/ routes; the tracking branch is meant for the
// marketplace router that mounts this middleware in front of its handlers.
func TrackingMiddleware(tracker service.EventTracker, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetHeader(SessionHeader)
		if sid == "" {
			sid = uuid.NewString()
		}
		c.Header(SessionHeader, sid)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.Request.URL.Path
		if status >= http.StatusBadRequest || !strings.HasPrefix(path, "/api/") {
			return
		}

		p, ok := requestEvent(c)
		if !ok {
			return
		}

		p.UserID = requestUserID(c)
		p.SessionID = sid
		p.IPAddress = c.ClientIP()
		p.UserAgent = c.Request.UserAgent()
		p.Metadata = mergeMetadata(requestMetadata(c, status, time.Since(start)), p.Metadata)

		log.Debug("Tracking request event",
			zap.String("event_type", string(p.EventType)),
			zap.String("path", path))
		tracker.Track(p)
	}
}

// requestEvent classifies a request into the event it represents, if any.
func requestEvent(c *gin.Context) (pipeline.TrackParams, bool) {
	path := c.Request.URL.Path

	switch {
	case c.Request.Method == http.MethodGet && strings.Contains(path, "/prompts/"):
		// /api/v1/prompts/{id}
		parts := strings.Split(path, "/")
		if len(parts) < 5 || parts[3] != "prompts" {
			return pipeline.TrackParams{}, false
		}
		if _, err := uuid.Parse(parts[4]); err != nil {
			return pipeline.TrackParams{}, false
		}
		return pipeline.TrackParams{
			EventType:  domain.EventPromptViewed,
			EntityType: "prompt",
			EntityID:   parts[4],
			Referrer:   c.Request.Referer(),
		}, true

	case strings.Contains(path, "/marketplace/search"):
		q := c.Query("q")
		if q == "" {
			return pipeline.TrackParams{}, false
		}
		return pipeline.TrackParams{
			EventType:  domain.EventSearchPerformed,
			EntityType: "search",
			Metadata:   map[string]any{"query": q},
		}, true

	case strings.Contains(path, "/marketplace/categories"):
		category := c.Query("category")
		if category == "" {
			return pipeline.TrackParams{}, false
		}
		return pipeline.TrackParams{
			EventType:  domain.EventCategoryBrowsed,
			EntityType: "category",
			EntityID:   category,
			Metadata:   map[string]any{"category": category},
		}, true
	}

	return pipeline.TrackParams{}, false
}

func requestMetadata(c *gin.Context, status int, elapsed time.Duration) map[string]any {
	query := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	return map[string]any{
		"method":           c.Request.Method,
		"path":             c.Request.URL.Path,
		"status_code":      status,
		"response_time_ms": math.Round(float64(elapsed.Microseconds())/10) / 100,
		"query_params":     query,
	}
}

func mergeMetadata(base, extra map[string]any) map[string]any {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

func requestUserID(c *gin.Context) string {
	if id := c.GetString(UserIDKey); id != "" {
		return id
	}
	return c.GetHeader(UserHeader)
}
