package reports

import (
	"encoding/json"
	"time"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Report is one generated (or pending) assessment report.
type Report struct {
	ID                string          `json:"id"`
	SubjectName       string          `json:"subjectName"`
	Variant           string          `json:"variant"`
	Status            string          `json:"status"`
	Request           json.RawMessage `json:"-"`
	SectionTitles     []string        `json:"sectionTitles,omitempty"`
	PageCount         int             `json:"pageCount,omitempty"`
	TokensUsed        int             `json:"tokensUsed"`
	NarrativeFallback bool            `json:"narrativeFallback"`
	StorageKey        string          `json:"-"`
	ErrorCode         string          `json:"errorCode,omitempty"`
	ErrorMessage      string          `json:"errorMessage,omitempty"`
	RequestID         string          `json:"requestId,omitempty"`
	Principal         string          `json:"-"`
	CreatedAt         time.Time       `json:"createdAt"`
	StartedAt         *time.Time      `json:"startedAt,omitempty"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Terminal reports whether the report will not change again.
func (r Report) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// GenerateInput is a report request as accepted by the API and stored with
// the record so a worker can rebuild it.
type GenerateInput struct {
	SubjectName  string          `json:"subjectName"`
	Variant      string          `json:"variant"`
	CallToAction string          `json:"callToAction,omitempty"`
	Assessment   json.RawMessage `json:"assessment"`
}

// Completion carries the metadata of a finished build.
type Completion struct {
	SectionTitles     []string
	PageCount         int
	TokensUsed        int
	NarrativeFallback bool
	StorageKey        string
	CompletedAt       time.Time
}
