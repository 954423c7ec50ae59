package workerproc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"report-backend/internal/queue"
	"report-backend/internal/reports"
)

type fakeProcessor struct {
	ids []string
	err error
}

func (f *fakeProcessor) ProcessReport(ctx context.Context, reportID string) error {
	f.ids = append(f.ids, reportID)
	return f.err
}

func encode(t *testing.T, msg queue.Message) string {
	t.Helper()
	b, err := queue.EncodeMessage(msg)
	require.NoError(t, err)
	return string(b)
}

func TestParseMessage(t *testing.T) {
	_, meta, err := ParseMessage("  ")
	assert.ErrorAs(t, err, &ErrEmptyBody{})
	assert.Equal(t, 2, meta.BodyLen)

	_, meta, err = ParseMessage("{not json")
	var decodeErr ErrDecode
	require.ErrorAs(t, err, &decodeErr)
	assert.Len(t, meta.BodySHA, 64)

	_, _, err = ParseMessage(`{"requestId":"req-1","version":1}`)
	var missing ErrMissingReportID
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "req-1", missing.RequestID)

	msg, _, err := ParseMessage(`{"reportId":"r-1","version":1}`)
	require.NoError(t, err)
	assert.Equal(t, "r-1", msg.ReportID)
}

func TestHandleMessage(t *testing.T) {
	p := &fakeProcessor{}
	msg, err := HandleMessage(context.Background(), p, encode(t, queue.Message{ReportID: "r-7", RequestID: "req-7"}))
	require.NoError(t, err)
	assert.Equal(t, "r-7", msg.ReportID)
	assert.Equal(t, []string{"r-7"}, p.ids)
}

func TestHandleMessageProcessError(t *testing.T) {
	p := &fakeProcessor{err: errors.New("boom")}
	_, err := HandleMessage(context.Background(), p, encode(t, queue.Message{ReportID: "r-7"}))

	var procErr ErrProcess
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "r-7", procErr.ReportID)
	assert.False(t, Unrecoverable(err))
}

func TestHandleMessageNilProcessor(t *testing.T) {
	_, err := HandleMessage(context.Background(), nil, "{}")
	assert.Error(t, err)
}

func TestUnrecoverable(t *testing.T) {
	assert.True(t, Unrecoverable(ErrEmptyBody{}))
	assert.True(t, Unrecoverable(ErrDecode{Err: errors.New("x")}))
	assert.True(t, Unrecoverable(ErrMissingReportID{}))
	assert.True(t, Unrecoverable(ErrProcess{Err: reports.ErrNotFound}))
	assert.True(t, Unrecoverable(ErrProcess{Err: &reports.ValidationError{Field: "assessment"}}))
	assert.False(t, Unrecoverable(ErrProcess{Err: errors.New("storage: put: timeout")}))
}
