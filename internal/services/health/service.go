package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	db Pinger
}

// Status is the health payload.
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database,omitempty"`
}

// NewService constructs a new health service. A nil db skips the database
// check, which is the case for the in-memory repository.
func NewService(db Pinger) *Service {
	return &Service{db: db}
}

// Status runs the checks.
func (s *Service) Status(ctx context.Context) Status {
	if s == nil || s.db == nil {
		return Status{OK: true}
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return Status{OK: false, Database: "unreachable"}
	}
	return Status{OK: true, Database: "ok"}
}
