package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/crs-api/internal/models"
)

func performWithClaims(t *testing.T, claims *models.JWTClaims, allowed ...models.UserRole) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/protected", nil)
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}

	RequireRoles(allowed...)(c)
	if !c.IsAborted() {
		c.Status(http.StatusOK)
	}
	return rec
}

func TestRequireRolesAllowsMatchingRole(t *testing.T) {
	rec := performWithClaims(t, &models.JWTClaims{UserID: "u1", Role: models.RoleInstructor}, models.RoleInstructor)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	rec := performWithClaims(t, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, models.RoleInstructor)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRolesRejectsMissingClaims(t *testing.T) {
	rec := performWithClaims(t, nil, models.RoleInstructor)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
