package reports

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"report-backend/internal/shared/server/middleware"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch v := body.(type) {
		case string:
			buf.WriteString(v)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(v))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateReportSync(t *testing.T) {
	svc, _, _ := newTestService()
	r := newTestRouter(svc)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/reports", sampleInput())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "r-1", body["reportId"])
	assert.Equal(t, StatusCompleted, body["status"])
	assert.Equal(t, "/api/v1/reports/r-1/html", body["htmlUrl"])
	assert.Len(t, body["sectionTitles"], 13)
	assert.Equal(t, true, body["narrativeFallback"])
}

func TestCreateReportAsync(t *testing.T) {
	svc, _, _ := newTestService()
	q := &fakeQueue{}
	svc.Queue = q
	r := newTestRouter(svc)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/reports?async=true", sampleInput())
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/api/v1/reports/r-1", rec.Header().Get("Location"))
	body := decodeBody(t, rec)
	assert.Equal(t, StatusQueued, body["status"])
	require.Len(t, q.sent, 1)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), q.sent[0].RequestID)
}

func TestCreateReportValidation(t *testing.T) {
	svc, _, _ := newTestService()
	r := newTestRouter(svc)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{name: "missing subject", body: map[string]any{"variant": "growth", "assessment": map[string]any{}}, field: "subjectName"},
		{name: "unknown variant", body: map[string]any{"subjectName": "Acme", "variant": "nope", "assessment": map[string]any{}}, field: "variant"},
		{name: "string assessment", body: map[string]any{"subjectName": "Acme", "variant": "growth", "assessment": "hi"}, field: "assessment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/api/v1/reports", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			errBody := decodeBody(t, rec)["error"].(map[string]any)
			assert.Equal(t, "validation_error", errBody["code"])
			details := errBody["details"].([]any)
			assert.Equal(t, tt.field, details[0].(map[string]any)["field"])
		})
	}
}

func TestCreateReportMalformedBody(t *testing.T) {
	svc, _, _ := newTestService()
	rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/v1/reports", `{"subjectName":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReportTooLarge(t *testing.T) {
	svc, _, _ := newTestService()
	big := `{"subjectName":"` + strings.Repeat("a", maxRequestBytes+10) + `"}`
	rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/v1/reports", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCreateReportBuildFailure(t *testing.T) {
	svc, _, store := newTestService()
	store.putErr = errors.New("bucket gone")

	rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/v1/reports", sampleInput())
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	details := errBody["details"].(map[string]any)
	assert.Equal(t, ErrorCodeStorage, details["code"])
	assert.Equal(t, "r-1", details["reportId"])
}

func TestGetReport(t *testing.T) {
	svc, _, _ := newTestService()
	r := newTestRouter(svc)
	doJSON(t, r, http.MethodPost, "/api/v1/reports", sampleInput())

	rec := doJSON(t, r, http.MethodGet, "/api/v1/reports/r-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acme Corp", decodeBody(t, rec)["subjectName"])

	rec = doJSON(t, r, http.MethodGet, "/api/v1/reports/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"not_found","message":"report not found"}}`, rec.Body.String())
}

func TestGetReportHTML(t *testing.T) {
	svc, _, _ := newTestService()
	r := newTestRouter(svc)
	doJSON(t, r, http.MethodPost, "/api/v1/reports", sampleInput())

	rec := doJSON(t, r, http.MethodGet, "/api/v1/reports/r-1/html?download=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="acme-corp-report.html"`, rec.Header().Get("Content-Disposition"))

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 13, doc.Find("main > section").Length())
}

func TestGetReportHTMLNotReady(t *testing.T) {
	svc, _, _ := newTestService()
	svc.Queue = &fakeQueue{}
	r := newTestRouter(svc)
	doJSON(t, r, http.MethodPost, "/api/v1/reports?async=1", sampleInput())

	rec := doJSON(t, r, http.MethodGet, "/api/v1/reports/r-1/html", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"queued"`)
}

func TestListReports(t *testing.T) {
	svc, _, _ := newTestService()
	svc.Queue = &fakeQueue{}
	r := newTestRouter(svc)
	for i := 0; i < 3; i++ {
		doJSON(t, r, http.MethodPost, "/api/v1/reports?async=true", sampleInput())
	}

	rec := doJSON(t, r, http.MethodGet, "/api/v1/reports?limit=2&offset=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "r-3", items[0]["reportId"])
}

func TestListVariants(t *testing.T) {
	svc, _, _ := newTestService()
	rec := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/v1/variants", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item["key"].(string))
	}
	assert.Equal(t, []string{"finance", "growth", "people", "technology"}, keys)
}
