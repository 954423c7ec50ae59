package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"

	"report-backend/internal/reports"
)

type processorFunc func(ctx context.Context, reportID string) error

func (f processorFunc) ProcessReport(ctx context.Context, reportID string) error {
	return f(ctx, reportID)
}

func TestProcessBatchReportsOnlyRetryableFailures(t *testing.T) {
	p := processorFunc(func(ctx context.Context, reportID string) error {
		switch reportID {
		case "ok":
			return nil
		case "gone":
			return reports.ErrNotFound
		default:
			return errors.New("storage: put: timeout")
		}
	})
	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "1", Body: `{"reportId":"ok","version":1}`},
		{MessageId: "2", Body: `{"reportId":"gone","version":1}`},
		{MessageId: "3", Body: `{"reportId":"flaky","version":1}`},
		{MessageId: "4", Body: `not json`},
	}}

	resp := processBatch(context.Background(), p, event)

	assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "3"}}, resp.BatchItemFailures)
}
