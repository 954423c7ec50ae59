package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const reportColumns = `id, subject_name, variant, status, request, section_titles, page_count, tokens_used,
       narrative_fallback, storage_key, error_code, error_message, request_id, principal,
       created_at, started_at, completed_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new report.
func (r *PGRepo) Create(ctx context.Context, report Report) error {
	const query = `
INSERT INTO reports (
	id, subject_name, variant, status, request, request_id, principal, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	request := report.Request
	if len(request) == 0 {
		request = json.RawMessage("{}")
	}
	_, err := r.DB.ExecContext(ctx, query,
		report.ID,
		report.SubjectName,
		report.Variant,
		report.Status,
		[]byte(request),
		nullString(report.RequestID),
		nullString(report.Principal),
		report.CreatedAt,
		report.CreatedAt,
	)
	return err
}

// GetByID returns a report by ID.
func (r *PGRepo) GetByID(ctx context.Context, reportID string) (Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1 LIMIT 1`
	report, err := scanReport(r.DB.QueryRowContext(ctx, query, reportID))
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	return report, err
}

// UpdateStatus moves a report to status, stamping started_at on processing.
func (r *PGRepo) UpdateStatus(ctx context.Context, reportID, status string, at time.Time) error {
	const query = `
UPDATE reports
SET status = $2,
    started_at = CASE WHEN $2 = 'processing' THEN $3 ELSE started_at END,
    error_code = CASE WHEN $2 = 'processing' THEN NULL ELSE error_code END,
    error_message = CASE WHEN $2 = 'processing' THEN NULL ELSE error_message END,
    updated_at = $3
WHERE id = $1`
	return r.exec(ctx, query, reportID, status, at)
}

// Complete records a finished build.
func (r *PGRepo) Complete(ctx context.Context, reportID string, c Completion) error {
	titles, err := json.Marshal(c.SectionTitles)
	if err != nil {
		return err
	}
	const query = `
UPDATE reports
SET status = 'completed',
    section_titles = $2,
    page_count = $3,
    tokens_used = $4,
    narrative_fallback = $5,
    storage_key = $6,
    error_code = NULL,
    error_message = NULL,
    completed_at = $7,
    updated_at = $7
WHERE id = $1`
	return r.exec(ctx, query, reportID, titles, c.PageCount, c.TokensUsed, c.NarrativeFallback, c.StorageKey, c.CompletedAt)
}

// Fail records a failed build.
func (r *PGRepo) Fail(ctx context.Context, reportID, code, message string, at time.Time) error {
	const query = `
UPDATE reports
SET status = 'failed',
    error_code = $2,
    error_message = $3,
    completed_at = $4,
    updated_at = $4
WHERE id = $1`
	return r.exec(ctx, query, reportID, code, message, at)
}

// List returns reports newest first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Report, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + reportColumns + `
FROM reports
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanReport(row rowScanner) (Report, error) {
	var (
		report        Report
		request       []byte
		sectionTitles []byte
		storageKey    sql.NullString
		errorCode     sql.NullString
		errorMessage  sql.NullString
		requestID     sql.NullString
		principal     sql.NullString
		startedAt     sql.NullTime
		completedAt   sql.NullTime
	)
	err := row.Scan(
		&report.ID,
		&report.SubjectName,
		&report.Variant,
		&report.Status,
		&request,
		&sectionTitles,
		&report.PageCount,
		&report.TokensUsed,
		&report.NarrativeFallback,
		&storageKey,
		&errorCode,
		&errorMessage,
		&requestID,
		&principal,
		&report.CreatedAt,
		&startedAt,
		&completedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return Report{}, err
	}
	report.Request = json.RawMessage(request)
	if len(sectionTitles) > 0 {
		if err := json.Unmarshal(sectionTitles, &report.SectionTitles); err != nil {
			return Report{}, err
		}
	}
	report.StorageKey = storageKey.String
	report.ErrorCode = errorCode.String
	report.ErrorMessage = errorMessage.String
	report.RequestID = requestID.String
	report.Principal = principal.String
	if startedAt.Valid {
		t := startedAt.Time
		report.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		report.CompletedAt = &t
	}
	return report, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Repo = (*PGRepo)(nil)
