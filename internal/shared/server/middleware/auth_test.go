package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newAuthRouter(keys []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(APIKeyAuth(keys, "/api/v1/health"))
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"principal": PrincipalFromContext(c)})
	}
	router.GET("/api/v1/reports", handler)
	router.GET("/api/v1/health", handler)
	return router
}

func TestAPIKeyAuthRejectsMissingKey(t *testing.T) {
	rec := httptest.NewRecorder()
	newAuthRouter([]string{"secret"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"unauthorized"`)
}

func TestAPIKeyAuthRejectsWrongKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	req.Header.Set("X-Api-Key", "nope")
	rec := httptest.NewRecorder()
	newAuthRouter([]string{"secret", "other"}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuthAcceptsAnyConfiguredKey(t *testing.T) {
	router := newAuthRouter([]string{"secret", " other "})
	for _, key := range []string{"secret", "other"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
		req.Header.Set("X-Api-Key", key)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, key)
		assert.Contains(t, rec.Body.String(), `"principal":"key:`)
		assert.NotContains(t, rec.Body.String(), key+`"`)
	}
}

func TestAPIKeyAuthPrincipalIsStablePerKey(t *testing.T) {
	router := newAuthRouter([]string{"secret"})
	bodies := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
		req.Header.Set("X-Api-Key", "secret")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		bodies = append(bodies, rec.Body.String())
	}
	assert.Equal(t, bodies[0], bodies[1])
}

func TestAPIKeyAuthOpenPath(t *testing.T) {
	rec := httptest.NewRecorder()
	newAuthRouter([]string{"secret"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuthDisabledWithoutKeys(t *testing.T) {
	rec := httptest.NewRecorder()
	newAuthRouter([]string{"", "  "}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"principal":"anonymous"`))
}

func TestPrincipalFromNilContext(t *testing.T) {
	assert.Equal(t, "", PrincipalFromContext(nil))
}
