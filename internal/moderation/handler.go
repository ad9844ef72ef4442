package moderation

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventhive/backend/internal/middleware"
	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/response"
)

// Handler handles moderation HTTP endpoints. Routes are mounted under /moderation/:kind/:id.
type Handler struct {
	svc *Service
}

// NewHandler creates a moderation handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ReasonRequest is the body for reject and request-changes.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// RequireModerator allows platform admins only. Call after JWT.
func RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(middleware.ContextUserRole)
		if role != string(models.RoleAdmin) {
			response.Error(c, Unauthorized("only administrators can moderate listings"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Approve handles POST /moderation/:kind/:id/approve.
func (h *Handler) Approve(c *gin.Context) {
	kind, id, ok := parseTarget(c)
	if !ok {
		return
	}
	l, err := h.svc.Approve(c.Request.Context(), kind, id, c.MustGet(middleware.ContextUserID).(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, l)
}

// Reject handles POST /moderation/:kind/:id/reject.
func (h *Handler) Reject(c *gin.Context) {
	kind, id, ok := parseTarget(c)
	if !ok {
		return
	}
	var body ReasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}
	l, err := h.svc.Reject(c.Request.Context(), kind, id, c.MustGet(middleware.ContextUserID).(uuid.UUID), body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, l)
}

// RequestChanges handles POST /moderation/:kind/:id/request-changes.
func (h *Handler) RequestChanges(c *gin.Context) {
	kind, id, ok := parseTarget(c)
	if !ok {
		return
	}
	var body ReasonRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "reason required")
		return
	}
	l, err := h.svc.RequestChanges(c.Request.Context(), kind, id, c.MustGet(middleware.ContextUserID).(uuid.UUID), body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, l)
}

// Checks handles POST /moderation/:kind/:id/checks.
func (h *Handler) Checks(c *gin.Context) {
	kind, id, ok := parseTarget(c)
	if !ok {
		return
	}
	res, err := h.svc.CheckListing(c.Request.Context(), kind, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// History handles GET /moderation/:kind/:id/history.
func (h *Handler) History(c *gin.Context) {
	kind, id, ok := parseTarget(c)
	if !ok {
		return
	}
	logs, err := h.svc.History(c.Request.Context(), kind, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, logs)
}

// parseTarget accepts both singular and plural kinds (event, events, hackathon, hackathons).
func parseTarget(c *gin.Context) (models.ListingKind, uuid.UUID, bool) {
	var kind models.ListingKind
	switch c.Param("kind") {
	case "event", "events":
		kind = models.KindEvent
	case "hackathon", "hackathons":
		kind = models.KindHackathon
	default:
		response.BadRequest(c, "kind must be event or hackathon")
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return "", uuid.Nil, false
	}
	return kind, id, true
}
