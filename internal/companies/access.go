package companies

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventhive/backend/internal/middleware"
	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/response"
)

// RequireCompanyAccess lets platform admins and active members of the company in :id through.
// Call after JWT.
func RequireCompanyAccess(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := c.Get(middleware.ContextUserRole); role == string(models.RoleAdmin) {
			c.Next()
			return
		}
		companyID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid company id")
			c.Abort()
			return
		}
		userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		ok, err := svc.IsActiveMember(c.Request.Context(), companyID, userID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !ok {
			response.Forbidden(c, "not authorized for this company")
			c.Abort()
			return
		}
		c.Next()
	}
}
