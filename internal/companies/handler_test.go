package companies

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhive/backend/internal/middleware"
	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/response"
)

func newTestRouter(svc *Service, userID uuid.UUID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserRole, role)
		c.Next()
	})
	h := NewHandler(svc)
	r.POST("/companies", h.Create)
	r.GET("/companies/slug/:slug", h.GetBySlug)
	r.GET("/companies/:id", h.GetByID)
	r.PATCH("/companies/:id", RequireCompanyAccess(svc), h.Update)
	r.GET("/companies/:id/limits/:action", h.CheckLimits)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, response.Body) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out response.Body
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestHandler_CreateAndFetch(t *testing.T) {
	svc, _ := newTestService(t)
	r := newTestRouter(svc, uuid.New(), string(models.RoleMember))

	w, body := doJSON(t, r, http.MethodPost, "/companies", validInput("Acme Inc"))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, body.Success)

	w, _ = doJSON(t, r, http.MethodPost, "/companies", validInput("ACME inc"))
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = doJSON(t, r, http.MethodGet, "/companies/slug/acme-inc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, "Acme Inc", data["name"])

	w, _ = doJSON(t, r, http.MethodGet, "/companies/slug/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/companies/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_CreateValidationError(t *testing.T) {
	svc, _ := newTestService(t)
	r := newTestRouter(svc, uuid.New(), string(models.RoleMember))

	w, body := doJSON(t, r, http.MethodPost, "/companies", CreateInput{Name: "Acme"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidDocuments, body.Code)
}

func TestHandler_UpdateRequiresMembership(t *testing.T) {
	svc, _ := newTestService(t)
	owner := uuid.New()
	c, err := svc.CreateCompany(context.Background(), validInput("Acme"), owner)
	require.NoError(t, err)

	outsider := newTestRouter(svc, uuid.New(), string(models.RoleMember))
	w, _ := doJSON(t, outsider, http.MethodPatch, "/companies/"+c.ID.String(), map[string]string{"city": "Oslo"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	member := newTestRouter(svc, owner, string(models.RoleMember))
	w, body := doJSON(t, member, http.MethodPatch, "/companies/"+c.ID.String(), map[string]string{"city": "Oslo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Oslo", body.Data.(map[string]interface{})["city"])

	admin := newTestRouter(svc, uuid.New(), string(models.RoleAdmin))
	w, _ = doJSON(t, admin, http.MethodPatch, "/companies/"+c.ID.String(), map[string]string{"city": "Rome"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_CheckLimits(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.CreateCompany(context.Background(), validInput("Acme"), uuid.New())
	require.NoError(t, err)
	r := newTestRouter(svc, uuid.New(), string(models.RoleMember))

	w, body := doJSON(t, r, http.MethodGet, "/companies/"+c.ID.String()+"/limits/create_event", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body.Data.(map[string]interface{})["allowed"])

	w, body = doJSON(t, r, http.MethodGet, "/companies/"+c.ID.String()+"/limits/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidDocuments, body.Code)
}

func TestHandler_GetBySlugAfterDelete(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.CreateCompany(context.Background(), validInput("Acme"), uuid.New())
	require.NoError(t, err)
	r := newTestRouter(svc, uuid.New(), string(models.RoleMember))

	w, _ := doJSON(t, r, http.MethodGet, "/companies/slug/acme", nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, svc.DeleteCompany(context.Background(), c.ID))
	w, body := doJSON(t, r, http.MethodGet, "/companies/slug/acme", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, body.Success)
}

func TestHandler_StorageFailureHidesCause(t *testing.T) {
	svc, store := newTestService(t)
	store.getErr = errors.New("FATAL: password authentication failed for user \"app\" (SQLSTATE 28P01)")
	r := newTestRouter(svc, uuid.New(), string(models.RoleMember))

	w, body := doJSON(t, r, http.MethodGet, "/companies/slug/acme", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, CodeDatabase, body.Code)
	assert.Equal(t, "failed to load company", body.Error)
	assert.NotContains(t, w.Body.String(), "SQLSTATE")
	assert.NotContains(t, w.Body.String(), "password")
}
