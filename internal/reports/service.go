package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"report-backend/internal/queue"
	"report-backend/internal/reports/assessment"
	"report-backend/internal/reports/builder"
	"report-backend/internal/reports/variants"
	"report-backend/internal/shared/metrics"
	"report-backend/internal/shared/storage/object"
	"report-backend/internal/shared/telemetry"
)

const (
	MaxSubjectNameLen = 200
	DefaultListLimit  = 20
	MaxListLimit      = 100

	htmlContentType = "text/html; charset=utf-8"
)

// ReportBuilder renders a report document.
type ReportBuilder interface {
	Build(ctx context.Context, req builder.Request) (builder.Output, error)
}

// Service contains business logic for reports.
type Service struct {
	Repo    Repo
	Store   object.ObjectStore
	Builder ReportBuilder
	Catalog variants.Catalog
	Queue   queue.Client
	Clock   func() time.Time
	NewID   func() string

	inflight sync.WaitGroup
}

// Generate validates in and builds the report before returning. A build
// failure is recorded on the report and also returned.
func (s *Service) Generate(ctx context.Context, in GenerateInput, principal string) (Report, error) {
	report, err := s.create(ctx, in, principal)
	if err != nil {
		return Report{}, err
	}
	if err := s.ProcessReport(ctx, report.ID); err != nil {
		stored, getErr := s.Repo.GetByID(context.Background(), report.ID)
		if getErr != nil {
			return report, err
		}
		return stored, err
	}
	return s.Repo.GetByID(ctx, report.ID)
}

// Enqueue validates in, stores a queued report and hands it to the queue.
// Without a queue the build runs in a background goroutine.
func (s *Service) Enqueue(ctx context.Context, in GenerateInput, principal string) (Report, error) {
	report, err := s.create(ctx, in, principal)
	if err != nil {
		return Report{}, err
	}

	if s.Queue == nil {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			_ = s.ProcessReport(backgroundWithRequestID(ctx), report.ID)
		}()
		return report, nil
	}

	msg := queue.Message{
		ReportID:   report.ID,
		RequestID:  requestIDFromContext(ctx),
		EnqueuedAt: s.now().Format(time.RFC3339),
		Version:    queue.MessageVersion,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		err = fmt.Errorf("enqueue report %s: %w", report.ID, err)
		s.fail(ctx, report, err, nil)
		return Report{}, err
	}
	telemetry.Info("report.enqueued", map[string]any{
		"request_id": msg.RequestID,
		"report_id":  report.ID,
		"variant":    report.Variant,
	})
	return report, nil
}

// Wait blocks until background builds started by Enqueue finish.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Get returns a report by ID.
func (s *Service) Get(ctx context.Context, reportID string) (Report, error) {
	if strings.TrimSpace(reportID) == "" {
		return Report{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, reportID)
}

// List returns reports newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Report, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.List(ctx, limit, offset)
}

// OpenHTML opens the stored document of a completed report.
func (s *Service) OpenHTML(ctx context.Context, reportID string) (io.ReadCloser, Report, error) {
	report, err := s.Get(ctx, reportID)
	if err != nil {
		return nil, Report{}, err
	}
	if report.Status != StatusCompleted || report.StorageKey == "" {
		return nil, report, ErrNotReady
	}
	body, err := s.Store.Open(ctx, report.StorageKey)
	if err != nil {
		return nil, report, storageErr("open html", err)
	}
	return body, report, nil
}

// ProcessReport builds a stored report. Completed reports are left alone so
// redelivered queue messages are harmless.
func (s *Service) ProcessReport(ctx context.Context, reportID string) (err error) {
	report, err := s.Repo.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return storageErr("load report", err)
	}
	if report.Status == StatusCompleted {
		return nil
	}

	startedAt := s.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.fail(ctx, report, err, &startedAt)
		}
	}()

	if err := s.Repo.UpdateStatus(ctx, report.ID, StatusProcessing, startedAt); err != nil {
		err = storageErr("set processing", err)
		s.fail(ctx, report, err, &startedAt)
		return err
	}
	s.logStatus(ctx, report, StatusProcessing, report.Status+"->"+StatusProcessing, nil)

	in, result, err := decodeStoredRequest(report.Request)
	if err != nil {
		s.fail(ctx, report, err, &startedAt)
		return err
	}

	out, err := s.builder().Build(ctx, builder.Request{
		SubjectName:  in.SubjectName,
		VariantKey:   in.Variant,
		CallToAction: in.CallToAction,
		Result:       result,
	})
	if err != nil {
		err = fmt.Errorf("build report: %w", err)
		s.fail(ctx, report, err, &startedAt)
		return err
	}
	if out.NarrativeFallback {
		metrics.IncNarrativeFallback()
	}

	key := object.ReportKey(report.ID)
	if _, err := s.Store.Put(ctx, key, htmlContentType, strings.NewReader(out.HTML)); err != nil {
		err = storageErr("store html", err)
		s.fail(ctx, report, err, &startedAt)
		return err
	}

	completedAt := s.now()
	if err := s.Repo.Complete(ctx, report.ID, Completion{
		SectionTitles:     out.SectionTitles,
		PageCount:         out.PageCount,
		TokensUsed:        out.TokensUsed,
		NarrativeFallback: out.NarrativeFallback,
		StorageKey:        key,
		CompletedAt:       completedAt,
	}); err != nil {
		err = storageErr("set completed", err)
		s.fail(ctx, report, err, &startedAt)
		return err
	}

	duration := completedAt.Sub(startedAt)
	metrics.IncGenerated(report.Variant)
	metrics.ObserveBuildDuration(duration)
	s.logStatus(ctx, report, StatusCompleted, "processing->completed", map[string]any{
		"duration_ms":        float64(duration.Microseconds()) / 1000.0,
		"page_count":         out.PageCount,
		"tokens_used":        out.TokensUsed,
		"narrative_fallback": out.NarrativeFallback,
	})
	return nil
}

func (s *Service) create(ctx context.Context, in GenerateInput, principal string) (Report, error) {
	in, _, err := s.validate(in)
	if err != nil {
		return Report{}, err
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return Report{}, fmt.Errorf("encode request: %w", err)
	}

	now := s.now()
	report := Report{
		ID:          s.newID(),
		SubjectName: in.SubjectName,
		Variant:     in.Variant,
		Status:      StatusQueued,
		Request:     payload,
		RequestID:   requestIDFromContext(ctx),
		Principal:   principal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, report); err != nil {
		return Report{}, storageErr("create report", err)
	}
	s.logStatus(ctx, report, StatusQueued, "->queued", nil)
	return report, nil
}

// validate normalizes in and returns the decoded assessment.
func (s *Service) validate(in GenerateInput) (GenerateInput, assessment.Result, error) {
	in.SubjectName = strings.TrimSpace(in.SubjectName)
	in.CallToAction = strings.TrimSpace(in.CallToAction)
	if in.SubjectName == "" {
		return in, assessment.Result{}, invalid("subjectName", "is required")
	}
	if utf8.RuneCountInString(in.SubjectName) > MaxSubjectNameLen {
		return in, assessment.Result{}, invalid("subjectName", "must be at most %d characters", MaxSubjectNameLen)
	}

	variant, err := s.catalog().Get(in.Variant)
	if err != nil {
		return in, assessment.Result{}, invalid("variant", "unknown variant %q", strings.TrimSpace(in.Variant))
	}
	in.Variant = variant.Key

	if len(in.Assessment) == 0 {
		return in, assessment.Result{}, invalid("assessment", "is required")
	}
	result, err := assessment.Decode(in.Assessment)
	if err != nil {
		return in, assessment.Result{}, invalid("assessment", "must be a JSON object")
	}
	return in, result, nil
}

func decodeStoredRequest(raw json.RawMessage) (GenerateInput, assessment.Result, error) {
	var in GenerateInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, assessment.Result{}, invalid("request", "stored request is unreadable")
	}
	result, err := assessment.Decode(in.Assessment)
	if err != nil {
		return in, assessment.Result{}, invalid("assessment", "must be a JSON object")
	}
	return in, result, nil
}

func (s *Service) fail(ctx context.Context, report Report, err error, startedAt *time.Time) {
	code := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := s.now()
	if updateErr := s.Repo.Fail(context.Background(), report.ID, code, msg, completedAt); updateErr != nil {
		telemetry.Error("report.fail_update", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"report_id":  report.ID,
			"error":      updateErr,
			"cause":      msg,
		})
	}
	metrics.IncFailed(code)
	fields := map[string]any{
		"error_code": code,
		"error":      msg,
	}
	if startedAt != nil {
		fields["duration_ms"] = float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
	}
	s.logStatus(ctx, report, StatusFailed, "->failed", fields)
}

func (s *Service) logStatus(ctx context.Context, report Report, status, transition string, extra map[string]any) {
	fields := map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"report_id":         report.ID,
		"variant":           report.Variant,
		"status":            status,
		"status_transition": transition,
	}
	for k, v := range extra {
		fields[k] = v
	}
	if status == StatusFailed {
		telemetry.Error("report.status", fields)
		return
	}
	telemetry.Info("report.status", fields)
}

func (s *Service) builder() ReportBuilder {
	if s.Builder != nil {
		return s.Builder
	}
	return &builder.Builder{Catalog: s.Catalog, Clock: s.Clock}
}

func (s *Service) catalog() variants.Catalog {
	if s.Catalog.Empty() {
		return variants.Builtin()
	}
	return s.Catalog
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func classifyFailure(err error) string {
	switch {
	case err == nil:
		return ErrorCodeInternal
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, variants.ErrUnknownVariant),
		errors.Is(err, builder.ErrBlankSubject):
		return ErrorCodeValidation
	case errors.Is(err, errStorage):
		return ErrorCodeStorage
	default:
		return ErrorCodeInternal
	}
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
