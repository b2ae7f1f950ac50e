package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/procurahq/license-api/internal/domain/account"
	"github.com/procurahq/license-api/internal/handler/dto"
	"github.com/procurahq/license-api/internal/ierr"
	"github.com/procurahq/license-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(ErrorHandlerMiddleware(zap.NewNop()))
	chain := append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/probe", chain...)
	return router
}

func withClaims(role account.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(claimsContextKey, &service.Claims{UserID: uuid.New(), Email: "x@y.com", Role: role})
	}
}

func doProbe(t *testing.T, router *gin.Engine) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	router := newTestRouter(
		withClaims(account.RoleAdmin),
		RequireRoles(zap.NewNop(), account.RoleAdmin, account.RoleSuperadmin),
	)

	w := doProbe(t, router)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesRejectsOutsider(t *testing.T) {
	router := newTestRouter(
		withClaims(account.RoleAdmin),
		RequireRoles(zap.NewNop(), account.RoleSuperadmin),
	)

	w := doProbe(t, router)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp dto.APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "FORBIDDEN", resp.Code)
	assert.Contains(t, resp.Message, "superadmin access required")
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	router := newTestRouter(RequireRoles(zap.NewNop(), account.RoleSuperadmin))

	w := doProbe(t, router)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestErrorHandlerStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: bad key", ierr.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{fmt.Errorf("%w: both given", ierr.ErrInvalidArgument), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{ierr.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{fmt.Errorf("%w: nope", ierr.ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{fmt.Errorf("%w: invalid license key", ierr.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("%w: already used", ierr.ErrConflict), http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("%w after 10 attempts", ierr.ErrKeyspaceExhausted), http.StatusInternalServerError, "KEYSPACE_EXHAUSTED"},
		{fmt.Errorf("plain failure"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			router := newTestRouter(func(c *gin.Context) {
				_ = c.Error(tc.err)
				c.Abort()
			})

			w := doProbe(t, router)
			assert.Equal(t, tc.status, w.Code)

			var resp dto.APIErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.code, resp.Code)
		})
	}
}

func TestErrorHandlerHidesInternalDetail(t *testing.T) {
	router := newTestRouter(func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("pq: connection refused at 10.0.0.5"))
		c.Abort()
	})

	w := doProbe(t, router)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}
