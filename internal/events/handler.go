package events

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventhive/backend/internal/middleware"
	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/internal/moderation"
	"github.com/eventhive/backend/pkg/response"
)

// Handler serves events and hackathons. Each route is bound to one kind.
type Handler struct {
	svc *Service
}

// NewHandler creates a listings handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /companies/:id/events and /companies/:id/hackathons. Mount behind company access.
func (h *Handler) Create(kind models.ListingKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid company id")
			return
		}
		var in CreateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
		userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		sub, err := h.svc.Create(c.Request.Context(), kind, companyID, in, userID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, sub)
	}
}

// Get handles GET /events/:id and /hackathons/:id. Listings that are not approved are only shown to their
// creator and to admins.
func (h *Handler) Get(kind models.ListingKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid id")
			return
		}
		l, err := h.svc.Get(c.Request.Context(), kind, id)
		if err != nil {
			response.Error(c, err)
			return
		}
		if l.ApprovalStatus != models.ApprovalApproved && !canSeeUnapproved(c, l) {
			response.Error(c, moderation.NotFound(string(kind)+" not found"))
			return
		}
		response.OK(c, l)
	}
}

func canSeeUnapproved(c *gin.Context, l *models.Listing) bool {
	if role, _ := c.Get(middleware.ContextUserRole); role == string(models.RoleAdmin) {
		return true
	}
	v, ok := c.Get(middleware.ContextUserID)
	if !ok {
		return false
	}
	userID, _ := v.(uuid.UUID)
	return userID == l.CreatedBy
}

// ListByCompany handles GET /companies/:id/events and /companies/:id/hackathons. Mount behind company access.
func (h *Handler) ListByCompany(kind models.ListingKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid company id")
			return
		}
		list, err := h.svc.ListByCompany(c.Request.Context(), kind, companyID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, list)
	}
}

// ListPublic handles GET /events and /hackathons.
func (h *Handler) ListPublic(kind models.ListingKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		offset, _ := strconv.Atoi(c.Query("offset"))
		list, err := h.svc.ListPublic(c.Request.Context(), kind, limit, offset)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, list)
	}
}
