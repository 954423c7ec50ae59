package reports

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores reports in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Report
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Report)}
}

// Create stores the report.
func (r *MemoryRepo) Create(ctx context.Context, report Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[report.ID] = cloneReport(report)
	return nil
}

// GetByID returns a report by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, reportID string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.byID[reportID]
	if !ok {
		return Report{}, ErrNotFound
	}
	return cloneReport(report), nil
}

// UpdateStatus moves a report to status, stamping StartedAt on processing.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, reportID, status string, at time.Time) error {
	return r.update(ctx, reportID, func(report *Report) {
		report.Status = status
		if status == StatusProcessing {
			report.StartedAt = &at
			report.ErrorCode = ""
			report.ErrorMessage = ""
		}
		report.UpdatedAt = at
	})
}

// Complete records a finished build.
func (r *MemoryRepo) Complete(ctx context.Context, reportID string, c Completion) error {
	return r.update(ctx, reportID, func(report *Report) {
		report.Status = StatusCompleted
		report.SectionTitles = append([]string(nil), c.SectionTitles...)
		report.PageCount = c.PageCount
		report.TokensUsed = c.TokensUsed
		report.NarrativeFallback = c.NarrativeFallback
		report.StorageKey = c.StorageKey
		report.ErrorCode = ""
		report.ErrorMessage = ""
		completedAt := c.CompletedAt
		report.CompletedAt = &completedAt
		report.UpdatedAt = completedAt
	})
}

// Fail records a failed build.
func (r *MemoryRepo) Fail(ctx context.Context, reportID, code, message string, at time.Time) error {
	return r.update(ctx, reportID, func(report *Report) {
		report.Status = StatusFailed
		report.ErrorCode = code
		report.ErrorMessage = message
		report.CompletedAt = &at
		report.UpdatedAt = at
	})
}

func (r *MemoryRepo) update(ctx context.Context, reportID string, fn func(*Report)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.byID[reportID]
	if !ok {
		return ErrNotFound
	}
	fn(&report)
	r.byID[reportID] = report
	return nil
}

// List returns reports newest first, with limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	all := make([]Report, 0, len(r.byID))
	for _, report := range r.byID {
		all = append(all, cloneReport(report))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []Report{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

func cloneReport(r Report) Report {
	r.Request = append([]byte(nil), r.Request...)
	r.SectionTitles = append([]string(nil), r.SectionTitles...)
	return r
}

var _ Repo = (*MemoryRepo)(nil)
