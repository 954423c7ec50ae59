package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"report-backend/internal/reports"
	"report-backend/internal/reports/variants"
	"report-backend/internal/services/health"
	"report-backend/internal/shared/config"
	localstore "report-backend/internal/shared/storage/object/local"
)

func newTestRouter(t *testing.T, keys []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := &reports.Service{
		Repo:    reports.NewMemoryRepo(),
		Store:   localstore.New(t.TempDir()),
		Catalog: variants.Builtin(),
	}
	return NewRouter(RouterDeps{
		Config: config.Config{
			Env:                "dev",
			APIKeys:            keys,
			RateLimitPerMinute: 600,
			RateLimitBurst:     50,
		},
		ReportHandler: reports.NewHandler(svc),
	})
}

func TestHealthIsPublic(t *testing.T) {
	r := newTestRouter(t, []string{"secret"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestMetricsIsPublic(t *testing.T) {
	r := newTestRouter(t, []string{"secret"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestReportsRequireKey(t *testing.T) {
	r := newTestRouter(t, []string{"secret"})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/variants", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/variants", nil)
	req.Header.Set("X-Api-Key", "secret")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEndToEndReport(t *testing.T) {
	r := newTestRouter(t, nil)
	body := `{"subjectName":"Acme","variant":"growth","assessment":{"overallScore":61,"scoresByCategory":{"MKT":40,"CXP":80}}}`

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_found"`)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("connection refused") }

func TestHealthReportsDatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterDeps{
		Config: config.Config{Env: "dev"},
		Health: health.NewService(downDB{}),
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"ok":false,"database":"unreachable"}`, rec.Body.String())
}
