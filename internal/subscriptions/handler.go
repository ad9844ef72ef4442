package subscriptions

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/response"
)

// Handler handles subscription HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a subscriptions handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// UpdateTierRequest is the body for PUT /companies/:id/subscription.
type UpdateTierRequest struct {
	Tier      string  `json:"tier" binding:"required"`
	ExpiresAt *string `json:"expires_at"` // RFC3339
}

// Usage handles GET /companies/:id/subscription.
func (h *Handler) Usage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	u, err := h.svc.GetSubscriptionUsage(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}

// Check handles GET /companies/:id/subscription/check/:action.
func (h *Handler) Check(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	d, err := h.svc.CheckSubscriptionLimit(c.Request.Context(), id, models.LimitAction(c.Param("action")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, d)
}

// UpdateTier handles PUT /companies/:id/subscription (admin only).
func (h *Handler) UpdateTier(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "tier required")
		return
	}
	var expiresAt *time.Time
	if req.ExpiresAt != nil && *req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			response.BadRequest(c, "invalid expires_at")
			return
		}
		expiresAt = &t
	}
	company, err := h.svc.UpdateSubscriptionTier(c.Request.Context(), id, models.Tier(req.Tier), expiresAt)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// Cancel handles POST /companies/:id/subscription/cancel (admin only).
func (h *Handler) Cancel(c *gin.Context) {
	h.statusChange(c, h.svc.CancelSubscription)
}

// Suspend handles POST /companies/:id/subscription/suspend (admin only).
func (h *Handler) Suspend(c *gin.Context) {
	h.statusChange(c, h.svc.SuspendSubscription)
}

// Reactivate handles POST /companies/:id/subscription/reactivate (admin only).
func (h *Handler) Reactivate(c *gin.Context) {
	h.statusChange(c, h.svc.ReactivateSubscription)
}

func (h *Handler) statusChange(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*models.Company, error)) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	company, err := fn(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// Recommendation handles GET /companies/:id/subscription/recommendation.
func (h *Handler) Recommendation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rec, err := h.svc.GetRecommendedUpgrade(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"recommendation": rec})
}

// Expiring handles GET /subscriptions/expiring?days=7 (admin only).
func (h *Handler) Expiring(c *gin.Context) {
	days := ExpiryWarningDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.BadRequest(c, "days must be a positive integer")
			return
		}
		days = n
	}
	list, err := h.svc.GetExpiringSubscriptions(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid company id")
		return uuid.Nil, false
	}
	return id, true
}
