package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/analytics"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/dto"
)

// getFunnel handles GET /analytics/funnel
func (h *Handler) getFunnel(c *gin.Context) {
	var req dto.FunnelRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.validationError(c, err)
		return
	}

	result, err := h.reportService.Funnel(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Failed to compute funnel")
		return
	}
	c.JSON(http.StatusOK, result)
}

// getAbandonedCarts handles GET /analytics/abandoned-carts?hours=N
func (h *Handler) getAbandonedCarts(c *gin.Context) {
	var req dto.AbandonedCartsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.validationError(c, err)
		return
	}

	carts, err := h.reportService.AbandonedCarts(c.Request.Context(), time.Duration(req.Hours)*time.Hour)
	if err != nil {
		h.respondError(c, err, "Failed to find abandoned carts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"abandoned_carts": carts, "count": len(carts)})
}

// getCohortRetention handles GET /analytics/cohorts/:date
func (h *Handler) getCohortRetention(c *gin.Context) {
	day, ok := h.dateParam(c)
	if !ok {
		return
	}
	var req dto.CohortRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.validationError(c, err)
		return
	}

	result, err := h.reportService.CohortRetention(c.Request.Context(), day, req.Days)
	if err != nil {
		h.respondError(c, err, "Failed to compute cohort retention")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getPowerUsers(c *gin.Context) {
	var req dto.PowerUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.validationError(c, err)
		return
	}

	users, err := h.reportService.PowerUsers(c.Request.Context(), analytics.PowerUserCriteria{
		MinEvents:    req.MinEvents,
		MinPurchases: req.MinPurchases,
		Window:       time.Duration(req.WindowDays) * 24 * time.Hour,
	})
	if err != nil {
		h.respondError(c, err, "Failed to find power users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"power_users": users, "count": len(users)})
}

func (h *Handler) getMarketplaceAnalytics(c *gin.Context) {
	var req dto.PeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.validationError(c, err)
		return
	}

	result, err := h.reportService.MarketplaceAnalytics(c.Request.Context(), req.Days)
	if err != nil {
		h.respondError(c, err, "Failed to compute marketplace analytics")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getPromptAnalytics(c *gin.Context) {
	var req dto.PeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.validationError(c, err)
		return
	}

	result, err := h.reportService.PromptAnalytics(c.Request.Context(), c.Param("id"), req.Days)
	if err != nil {
		h.respondError(c, err, "Failed to compute prompt analytics")
		return
	}
	c.JSON(http.StatusOK, result)
}

// getDailyReport handles GET /analytics/reports/daily/:date
func (h *Handler) getDailyReport(c *gin.Context) {
	day, ok := h.dateParam(c)
	if !ok {
		return
	}

	report, err := h.reportService.DailyReport(c.Request.Context(), day)
	if err != nil {
		h.respondError(c, err, "Failed to build daily report")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) getLifetimeValue(c *gin.Context) {
	result, err := h.reportService.LifetimeValue(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to compute lifetime value")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getChurnRisk(c *gin.Context) {
	var req dto.ChurnRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.validationError(c, err)
		return
	}

	result, err := h.reportService.ChurnRisk(c.Request.Context(), c.Param("id"), req.LookbackDays)
	if err != nil {
		h.respondError(c, err, "Failed to compute churn risk")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getUserJourney(c *gin.Context) {
	var req dto.JourneyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.validationError(c, err)
		return
	}

	journey, err := h.reportService.UserJourney(c.Request.Context(), c.Param("id"), req.Limit)
	if err != nil {
		h.respondError(c, err, "Failed to load user journey")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": c.Param("id"), "events": journey, "count": len(journey)})
}

func (h *Handler) getUserSummary(c *gin.Context) {
	var req dto.PeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.validationError(c, err)
		return
	}

	result, err := h.reportService.UserSummary(c.Request.Context(), c.Param("id"), req.Days)
	if err != nil {
		h.respondError(c, err, "Failed to load user summary")
		return
	}
	c.JSON(http.StatusOK, result)
}

// dateParam parses the :date path parameter as YYYY-MM-DD in UTC
func (h *Handler) dateParam(c *gin.Context) (time.Time, bool) {
	raw := c.Param("date")
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		h.validationError(c, fmt.Errorf("date %q must be formatted as YYYY-MM-DD", raw))
		return time.Time{}, false
	}
	return day, true
}
