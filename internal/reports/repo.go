package reports

import (
	"context"
	"time"
)

// Repo defines persistence operations for reports.
type Repo interface {
	Create(ctx context.Context, report Report) error
	GetByID(ctx context.Context, reportID string) (Report, error)
	UpdateStatus(ctx context.Context, reportID, status string, at time.Time) error
	Complete(ctx context.Context, reportID string, c Completion) error
	Fail(ctx context.Context, reportID, code, message string, at time.Time) error
	List(ctx context.Context, limit, offset int) ([]Report, error)
}
