package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "ledgerd/internal/core/context"
	"ledgerd/internal/core/security"
)

func newAuthRouter(validator JWTValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())

	protected := router.Group("", Auth(validator))
	protected.GET("/me", func(c *gin.Context) {
		user := appctx.GetUser(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"userId": user.UserID})
	})
	protected.GET("/admin", RequireRole("admin"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func testTokenService() *security.TokenService {
	return security.NewTokenService(security.DefaultConfig("test-secret"))
}

func TestAuth_ValidTokenBindsUser(t *testing.T) {
	svc := testTokenService()
	token, _, err := svc.GenerateAccessToken("user-1", "user@example.com", []string{"ledger:read"}, "sess-1", false)
	require.NoError(t, err)

	router := newAuthRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestAuth_MissingHeaderRejected(t *testing.T) {
	router := newAuthRouter(testTokenService())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_MalformedHeaderRejected(t *testing.T) {
	router := newAuthRouter(testTokenService())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_TokenSignedWithOtherSecretRejected(t *testing.T) {
	other := security.NewTokenService(security.DefaultConfig("other-secret"))
	token, _, err := other.GenerateAccessToken("user-1", "user@example.com", nil, "", false)
	require.NoError(t, err)

	router := newAuthRouter(testTokenService())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_MissingRoleForbidden(t *testing.T) {
	svc := testTokenService()
	token, _, err := svc.GenerateAccessToken("user-1", "user@example.com", []string{"ledger:read"}, "", false)
	require.NoError(t, err)

	router := newAuthRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRole_AdminBypassesChecks(t *testing.T) {
	svc := testTokenService()
	token, _, err := svc.GenerateAccessToken("root", "root@example.com", nil, "", true)
	require.NoError(t, err)

	router := newAuthRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
