package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"report-backend/internal/shared/server/respond"
	"report-backend/internal/shared/util"
)

const (
	principalKey  = "principal"
	apiKeyHeader  = "X-Api-Key"
	anonPrincipal = "anonymous"
)

// APIKeyAuth accepts requests carrying one of keys in the X-Api-Key header.
// With no keys configured every request passes as anonymous. Paths in open
// skip the check.
func APIKeyAuth(keys []string, open ...string) gin.HandlerFunc {
	accepted := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if trimmed := strings.TrimSpace(k); trimmed != "" {
			accepted = append(accepted, []byte(trimmed))
		}
	}
	openPaths := make(map[string]struct{}, len(open))
	for _, p := range open {
		openPaths[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if len(accepted) == 0 {
			c.Set(principalKey, anonPrincipal)
			c.Next()
			return
		}
		if _, ok := openPaths[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		provided := []byte(strings.TrimSpace(c.GetHeader(apiKeyHeader)))
		if len(provided) == 0 || !matchKey(accepted, provided) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid API key", nil)
			return
		}
		// Keys never reach logs; the principal is a short digest.
		c.Set(principalKey, "key:"+util.HashKey(string(provided))[:12])
		c.Next()
	}
}

func matchKey(accepted [][]byte, provided []byte) bool {
	match := 0
	for _, k := range accepted {
		match |= subtle.ConstantTimeCompare(k, provided)
	}
	return match == 1
}

// PrincipalFromContext returns the caller identity set by APIKeyAuth.
func PrincipalFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(principalKey)
	if p, ok := val.(string); ok {
		return p
	}
	return ""
}
