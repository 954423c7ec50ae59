package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"report-backend/internal/bootstrap"
	"report-backend/internal/shared/config"
	"report-backend/internal/shared/metrics"
	"report-backend/internal/shared/telemetry"
	"report-backend/internal/workerproc"
)

var (
	initOnce  sync.Once
	initErr   error
	processor workerproc.Processor
)

func initApp() {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		initErr = err
		return
	}
	processor = app.Processor
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda_worker.bootstrap", map[string]any{"error": initErr})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, processor, event), nil
}

func processBatch(ctx context.Context, p workerproc.Processor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncJobsReceived()
		msg, err := workerproc.HandleMessage(ctx, p, record.Body)
		fields := map[string]any{
			"sqs_message_id": record.MessageId,
			"report_id":      msg.ReportID,
			"request_id":     msg.RequestID,
		}
		if err == nil {
			metrics.IncJobOutcome("completed")
			telemetry.Info("worker.report.completed", fields)
			continue
		}
		fields["error"] = err.Error()
		if workerproc.Unrecoverable(err) {
			// Acknowledged so the record is not redelivered.
			metrics.IncJobOutcome("dropped")
			telemetry.Error("worker.report.dropped", fields)
			continue
		}
		metrics.IncJobOutcome("failed")
		telemetry.Error("worker.report.failed", fields)
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
