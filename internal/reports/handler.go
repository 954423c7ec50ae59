package reports

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"report-backend/internal/shared/server/middleware"
	"report-backend/internal/shared/server/respond"
	"report-backend/internal/shared/util"
)

const maxRequestBytes = 1 << 20

// Handler wires HTTP handlers to the reports service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches report routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reports", h.createReport)
	rg.GET("/reports", h.listReports)
	rg.GET("/reports/:id", h.getReport)
	rg.GET("/reports/:id/html", h.getReportHTML)
	rg.GET("/variants", h.listVariants)
}

type createReportRequest struct {
	SubjectName  string          `json:"subjectName"`
	Variant      string          `json:"variant"`
	CallToAction string          `json:"callToAction"`
	Assessment   json.RawMessage `json:"assessment"`
}

func (h *Handler) createReport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)
	var req createReportRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "request body must be a JSON object", nil)
		return
	}

	in := GenerateInput{
		SubjectName:  req.SubjectName,
		Variant:      req.Variant,
		CallToAction: req.CallToAction,
		Assessment:   req.Assessment,
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	principal := middleware.PrincipalFromContext(c)

	async, _ := strconv.ParseBool(c.Query("async"))
	if async {
		report, err := h.Svc.Enqueue(ctx, in, principal)
		if err != nil {
			h.writeCreateError(c, err, "failed to enqueue report")
			return
		}
		c.Set("reportId", report.ID)
		c.Header("Location", "/api/v1/reports/"+report.ID)
		respond.JSON(c, http.StatusAccepted, gin.H{
			"reportId": report.ID,
			"status":   report.Status,
		})
		return
	}

	report, err := h.Svc.Generate(ctx, in, principal)
	if report.ID != "" {
		c.Set("reportId", report.ID)
	}
	if err != nil {
		h.writeCreateError(c, err, "failed to generate report")
		return
	}
	respond.JSON(c, http.StatusCreated, toResponse(report))
}

func (h *Handler) writeCreateError(c *gin.Context, err error, message string) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		respond.Error(c, http.StatusBadRequest, "validation_error", verr.Error(), []map[string]string{
			{"field": verr.Field, "issue": verr.Message},
		})
		return
	}
	details := gin.H{"code": classifyFailure(err)}
	if id := c.GetString("reportId"); id != "" {
		details["reportId"] = id
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", message, details)
}

func (h *Handler) getReport(c *gin.Context) {
	reportID := c.Param("id")
	c.Set("reportId", reportID)

	report, err := h.Svc.Get(c.Request.Context(), reportID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch report", nil)
		}
		return
	}
	respond.OK(c, toResponse(report))
}

func (h *Handler) getReportHTML(c *gin.Context) {
	reportID := c.Param("id")
	c.Set("reportId", reportID)

	body, report, err := h.Svc.OpenHTML(c.Request.Context(), reportID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
		case errors.Is(err, ErrNotReady):
			respond.Error(c, http.StatusConflict, "not_ready", "report is not completed", gin.H{"status": report.Status})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load report document", nil)
		}
		return
	}
	defer body.Close()

	disposition := "inline"
	if download, _ := strconv.ParseBool(c.Query("download")); download {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", disposition+`; filename="`+util.ReportFileName(report.SubjectName)+`"`)
	c.Header("Cache-Control", "private, max-age=300")
	c.Header("Content-Type", htmlContentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		_ = c.Error(err)
	}
}

func (h *Handler) listReports(c *gin.Context) {
	limit := DefaultListLimit
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	items, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list reports", nil)
		return
	}

	resp := make([]gin.H, 0, len(items))
	for _, r := range items {
		resp = append(resp, gin.H{
			"reportId":    r.ID,
			"subjectName": r.SubjectName,
			"variant":     r.Variant,
			"status":      r.Status,
			"createdAt":   r.CreatedAt,
		})
	}
	respond.OK(c, resp)
}

func (h *Handler) listVariants(c *gin.Context) {
	respond.OK(c, h.Svc.catalog().List())
}

func toResponse(r Report) gin.H {
	resp := gin.H{
		"reportId":    r.ID,
		"subjectName": r.SubjectName,
		"variant":     r.Variant,
		"status":      r.Status,
		"createdAt":   r.CreatedAt,
		"updatedAt":   r.UpdatedAt,
	}
	if r.StartedAt != nil {
		resp["startedAt"] = r.StartedAt
	}
	if r.Terminal() {
		resp["completedAt"] = r.CompletedAt
	}
	switch r.Status {
	case StatusCompleted:
		resp["sectionTitles"] = r.SectionTitles
		resp["pageCount"] = r.PageCount
		resp["tokensUsed"] = r.TokensUsed
		resp["narrativeFallback"] = r.NarrativeFallback
		resp["htmlUrl"] = "/api/v1/reports/" + r.ID + "/html"
	case StatusFailed:
		resp["errorCode"] = r.ErrorCode
		resp["errorMessage"] = r.ErrorMessage
	}
	return resp
}
