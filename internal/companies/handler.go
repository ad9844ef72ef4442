package companies

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventhive/backend/internal/middleware"
	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/response"
)

// Handler handles company HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a companies handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /companies. The caller becomes the owner.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body CreateInput
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	company, err := h.svc.CreateCompany(c.Request.Context(), body, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, company)
}

// List handles GET /companies?search=&industry=&company_size=&verification_status=&limit=&offset=.
func (h *Handler) List(c *gin.Context) {
	f := ListFilters{
		Search:             c.Query("search"),
		Industry:           c.Query("industry"),
		CompanySize:        c.Query("company_size"),
		VerificationStatus: models.VerificationStatus(c.Query("verification_status")),
	}
	var err error
	if v := c.Query("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			response.BadRequest(c, "invalid limit")
			return
		}
	}
	if v := c.Query("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil {
			response.BadRequest(c, "invalid offset")
			return
		}
	}
	res, err := h.svc.ListCompanies(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// GetBySlug handles GET /companies/slug/:slug.
func (h *Handler) GetBySlug(c *gin.Context) {
	company, err := h.svc.GetCompanyBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if company == nil {
		response.NotFound(c, "company not found")
		return
	}
	response.OK(c, company)
}

// GetByID handles GET /companies/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	company, err := h.svc.GetCompanyByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if company == nil {
		response.NotFound(c, "company not found")
		return
	}
	response.OK(c, company)
}

// Update handles PATCH /companies/:id with a partial JSON profile.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	company, err := h.svc.UpdateCompany(c.Request.Context(), id, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// Delete handles DELETE /companies/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteCompany(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Verify handles POST /companies/:id/verify (admin only).
func (h *Handler) Verify(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	adminID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	company, err := h.svc.VerifyCompany(c.Request.Context(), id, adminID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// Reject handles POST /companies/:id/reject (admin only).
func (h *Handler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	adminID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	company, err := h.svc.RejectCompany(c.Request.Context(), id, adminID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// CheckLimits handles GET /companies/:id/limits/:action.
func (h *Handler) CheckLimits(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	action := models.LimitAction(c.Param("action"))
	allowed, err := h.svc.CheckSubscriptionLimits(c.Request.Context(), id, action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"action": action, "allowed": allowed})
}

// ListMembers handles GET /companies/:id/members.
func (h *Handler) ListMembers(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	members, err := h.svc.ListMembers(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if members == nil {
		members = []models.CompanyMember{}
	}
	response.OK(c, members)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid company id")
		return uuid.Nil, false
	}
	return id, true
}
