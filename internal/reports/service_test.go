package reports

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"report-backend/internal/reports/builder"
	"report-backend/internal/shared/storage/object"
)

func TestGenerateStoresCompletedReport(t *testing.T) {
	svc, _, store := newTestService()

	report, err := svc.Generate(context.Background(), sampleInput(), "key:abc")
	require.NoError(t, err)

	assert.Equal(t, "r-1", report.ID)
	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, "technology", report.Variant)
	assert.Equal(t, builder.SectionTitles, report.SectionTitles)
	assert.Greater(t, report.PageCount, 0)
	assert.True(t, report.NarrativeFallback)
	assert.Equal(t, object.ReportKey("r-1"), report.StorageKey)
	require.NotNil(t, report.StartedAt)
	require.NotNil(t, report.CompletedAt)

	html := store.objects[report.StorageKey]
	assert.Contains(t, html, "Acme Corp")
	assert.Contains(t, html, "Upgrade firewall")
}

func TestGenerateNormalizesInput(t *testing.T) {
	svc, _, _ := newTestService()
	in := sampleInput()
	in.SubjectName = "  Acme Corp  "
	in.Variant = " Technology "

	report, err := svc.Generate(context.Background(), in, "")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", report.SubjectName)
	assert.Equal(t, "technology", report.Variant)

	var stored GenerateInput
	require.NoError(t, json.Unmarshal(report.Request, &stored))
	assert.Equal(t, "technology", stored.Variant)
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*GenerateInput)
		field string
	}{
		{name: "blank subject", edit: func(in *GenerateInput) { in.SubjectName = "   " }, field: "subjectName"},
		{name: "long subject", edit: func(in *GenerateInput) { in.SubjectName = strings.Repeat("x", MaxSubjectNameLen+1) }, field: "subjectName"},
		{name: "unknown variant", edit: func(in *GenerateInput) { in.Variant = "nope" }, field: "variant"},
		{name: "missing assessment", edit: func(in *GenerateInput) { in.Assessment = nil }, field: "assessment"},
		{name: "array assessment", edit: func(in *GenerateInput) { in.Assessment = json.RawMessage(`[1,2]`) }, field: "assessment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService()
			in := sampleInput()
			tt.edit(&in)

			_, err := svc.Generate(context.Background(), in, "")
			require.ErrorIs(t, err, ErrInvalidRequest)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)

			list, _ := repo.List(context.Background(), 0, 0)
			assert.Empty(t, list)
		})
	}
}

func TestGenerateSubjectLengthCountsRunes(t *testing.T) {
	svc, _, _ := newTestService()
	in := sampleInput()
	in.SubjectName = strings.Repeat("é", MaxSubjectNameLen)

	_, err := svc.Generate(context.Background(), in, "")
	assert.NoError(t, err)
}

func TestGenerateStorageFailureMarksReportFailed(t *testing.T) {
	svc, repo, store := newTestService()
	store.putErr = errors.New("disk full")

	report, err := svc.Generate(context.Background(), sampleInput(), "")
	require.Error(t, err)
	assert.Equal(t, ErrorCodeStorage, classifyFailure(err))
	assert.Equal(t, StatusFailed, report.Status)
	assert.Equal(t, ErrorCodeStorage, report.ErrorCode)
	assert.Contains(t, report.ErrorMessage, "disk full")

	stored, err := repo.GetByID(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
}

func TestProcessReportRecoversPanics(t *testing.T) {
	svc, _, _ := newTestService()
	svc.Builder = builderFunc(func(context.Context, builder.Request) (builder.Output, error) {
		panic("template exploded")
	})

	report, err := svc.Generate(context.Background(), sampleInput(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template exploded")
	assert.Equal(t, StatusFailed, report.Status)
	assert.Equal(t, ErrorCodeInternal, report.ErrorCode)
}

func TestProcessReportSkipsCompleted(t *testing.T) {
	svc, _, _ := newTestService()
	report, err := svc.Generate(context.Background(), sampleInput(), "")
	require.NoError(t, err)

	calls := 0
	svc.Builder = builderFunc(func(context.Context, builder.Request) (builder.Output, error) {
		calls++
		return builder.Output{}, nil
	})
	require.NoError(t, svc.ProcessReport(context.Background(), report.ID))
	assert.Zero(t, calls)
}

func TestProcessReportUnknownID(t *testing.T) {
	svc, _, _ := newTestService()
	assert.ErrorIs(t, svc.ProcessReport(context.Background(), "missing"), ErrNotFound)
}

func TestEnqueueSendsMessage(t *testing.T) {
	svc, repo, _ := newTestService()
	q := &fakeQueue{}
	svc.Queue = q

	ctx := WithRequestID(context.Background(), "req-9")
	report, err := svc.Enqueue(ctx, sampleInput(), "")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, report.Status)

	require.Len(t, q.sent, 1)
	assert.Equal(t, report.ID, q.sent[0].ReportID)
	assert.Equal(t, "req-9", q.sent[0].RequestID)

	stored, err := repo.GetByID(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, stored.Status)
	assert.Equal(t, "req-9", stored.RequestID)

	require.NoError(t, svc.ProcessReport(ctx, report.ID))
	stored, _ = repo.GetByID(context.Background(), report.ID)
	assert.Equal(t, StatusCompleted, stored.Status)
}

func TestEnqueueSendFailureMarksFailed(t *testing.T) {
	svc, repo, _ := newTestService()
	svc.Queue = &fakeQueue{err: errors.New("queue down")}

	_, err := svc.Enqueue(context.Background(), sampleInput(), "")
	require.ErrorContains(t, err, "queue down")

	list, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusFailed, list[0].Status)
}

func TestEnqueueWithoutQueueRunsInBackground(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	svc, repo, _ := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	report, err := svc.Enqueue(ctx, sampleInput(), "")
	require.NoError(t, err)
	cancel()

	svc.Wait()
	stored, err := repo.GetByID(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
}

func TestOpenHTML(t *testing.T) {
	svc, _, _ := newTestService()
	report, err := svc.Generate(context.Background(), sampleInput(), "")
	require.NoError(t, err)

	body, got, err := svc.OpenHTML(context.Background(), report.ID)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<!DOCTYPE html>"))
	assert.Equal(t, report.ID, got.ID)
}

func TestOpenHTMLNotReady(t *testing.T) {
	svc, _, _ := newTestService()
	svc.Queue = &fakeQueue{}
	report, err := svc.Enqueue(context.Background(), sampleInput(), "")
	require.NoError(t, err)

	_, got, err := svc.OpenHTML(context.Background(), report.ID)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, StatusQueued, got.Status)

	_, _, err = svc.OpenHTML(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListClampsLimit(t *testing.T) {
	svc, _, _ := newTestService()
	svc.Queue = &fakeQueue{}
	for i := 0; i < 3; i++ {
		_, err := svc.Enqueue(context.Background(), sampleInput(), "")
		require.NoError(t, err)
	}

	list, err := svc.List(context.Background(), 0, -5)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	list, err = svc.List(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestClassifyFailure(t *testing.T) {
	assert.Equal(t, ErrorCodeInternal, classifyFailure(nil))
	assert.Equal(t, ErrorCodeValidation, classifyFailure(invalid("variant", "bad")))
	assert.Equal(t, ErrorCodeValidation, classifyFailure(builder.ErrBlankSubject))
	assert.Equal(t, ErrorCodeStorage, classifyFailure(storageErr("put", errors.New("x"))))
	assert.Equal(t, ErrorCodeInternal, classifyFailure(errors.New("boom")))
}

func TestSanitizeError(t *testing.T) {
	assert.Equal(t, "", sanitizeError(nil))
	assert.Equal(t, "a b", sanitizeError(errors.New(" a\nb\r")))
	assert.Len(t, sanitizeError(errors.New(strings.Repeat("x", 900))), 500)
}
