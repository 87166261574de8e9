package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/analytics"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/dto"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/service"
)

const healthCheckTimeout = 2 * time.Second

type Handler struct {
	eventService  service.EventServicer
	reportService service.ReportServicer
	checks        map[string]HealthChecker
	router        *gin.Engine
	log           *zap.Logger
}

// NewHandler builds the HTTP surface. tracker feeds the request tracking
// middleware; checks are pinged by GET /health.
func NewHandler(eventService service.EventServicer, reportService service.ReportServicer, tracker service.EventTracker, checks map[string]HealthChecker, log *zap.Logger) *Handler {
	h := &Handler{
		eventService:  eventService,
		reportService: reportService,
		checks:        checks,
		router:        gin.Default(),
		log:           log,
	}

	h.router.Use(TrackingMiddleware(tracker, log))
	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/internal/metrics", gin.WrapH(promhttp.Handler()))

	h.router.POST("/events", h.trackEvent)
	h.router.POST("/events/bulk", h.trackEventsBulk)

	admin := h.router.Group("/admin")
	admin.POST("/flush", h.requestFlush)
	admin.GET("/pipeline/stats", h.pipelineStats)

	a := h.router.Group("/analytics")
	a.GET("/funnel", h.getFunnel)
	a.GET("/abandoned-carts", h.getAbandonedCarts)
	a.GET("/cohorts/:date", h.getCohortRetention)
	a.GET("/power-users", h.getPowerUsers)
	a.GET("/marketplace", h.getMarketplaceAnalytics)
	a.GET("/prompts/:id", h.getPromptAnalytics)
	a.GET("/reports/daily/:date", h.getDailyReport)
	a.GET("/users/:id/ltv", h.getLifetimeValue)
	a.GET("/users/:id/churn", h.getChurnRisk)
	a.GET("/users/:id/journey", h.getUserJourney)
	a.GET("/users/:id/summary", h.getUserSummary)
}

// healthCheck pings every registered dependency
func (h *Handler) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	resp := dto.HealthResponse{Status: "ok"}
	code := http.StatusOK

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(names))
		}
		if err := h.checks[name].Ping(ctx); err != nil {
			h.log.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	c.JSON(code, resp)
}

// trackEvent handles POST /events
func (h *Handler) trackEvent(c *gin.Context) {
	var req dto.TrackEventRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid event request",
			zap.Error(err),
			zap.String("event_type", req.EventType))
		h.validationError(c, err)
		return
	}

	if err := h.eventService.ProcessEvent(&req, clientInfo(c)); err != nil {
		h.respondError(c, err, "Failed to process event")
		return
	}

	c.JSON(http.StatusAccepted, dto.TrackEventResponse{Status: "accepted"})
}

// trackEventsBulk handles POST /events/bulk
func (h *Handler) trackEventsBulk(c *gin.Context) {
	var bulkRequest dto.TrackEventsBulkRequest

	if err := c.ShouldBindJSON(&bulkRequest); err != nil {
		h.log.Warn("Invalid bulk event request", zap.Error(err))
		h.validationError(c, err)
		return
	}

	accepted, rejected := h.eventService.ProcessBulkEvents(bulkRequest.Events, clientInfo(c))

	h.log.Info("Bulk events processed",
		zap.Int("accepted", accepted),
		zap.Int("rejected", len(rejected)),
		zap.Int("total", len(bulkRequest.Events)))

	c.JSON(http.StatusAccepted, dto.TrackEventsBulkResponse{
		Accepted: accepted,
		Rejected: len(rejected),
		Errors:   rejected,
	})
}

// requestFlush handles POST /admin/flush. The flush itself runs on the
// worker goroutine.
func (h *Handler) requestFlush(c *gin.Context) {
	buffered := h.eventService.RequestFlush()
	c.JSON(http.StatusAccepted, dto.FlushResponse{Status: "flush_requested", Buffered: buffered})
}

func (h *Handler) pipelineStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.eventService.PipelineStats())
}

// clientInfo uses the caller's own X-Session-ID; ids generated by the
// tracking middleware are not attached to explicitly tracked events.
func clientInfo(c *gin.Context) service.ClientInfo {
	return service.ClientInfo{
		SessionID: c.GetHeader(SessionHeader),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
	}
}

func (h *Handler) validationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}

// respondError maps rejected input to 400 and everything else to 500
func (h *Handler) respondError(c *gin.Context, err error, msg string) {
	if isValidationError(err) {
		h.log.Warn(msg, zap.Error(err), zap.String("path", c.FullPath()))
		h.validationError(c, err)
		return
	}

	h.log.Error(msg, zap.Error(err), zap.String("path", c.FullPath()))
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error:   "internal_error",
		Message: err.Error(),
	})
}

func isValidationError(err error) bool {
	return errors.Is(err, analytics.ErrInvalidRange) ||
		errors.Is(err, analytics.ErrInvalidFunnel) ||
		errors.Is(err, analytics.ErrInvalidArgument) ||
		errors.Is(err, service.ErrMissingEventType)
}
