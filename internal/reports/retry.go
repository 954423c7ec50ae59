package reports

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"report-backend/internal/llm"
	"report-backend/internal/shared/telemetry"
)

const narratorRetryDelay = 300 * time.Millisecond

type retryingNarrator struct {
	base  llm.NarrativeGenerator
	delay time.Duration
}

// NewRetryingNarrator wraps base so transient failures get one more attempt.
func NewRetryingNarrator(base llm.NarrativeGenerator) llm.NarrativeGenerator {
	if base == nil {
		return nil
	}
	return retryingNarrator{base: base, delay: narratorRetryDelay}
}

func (r retryingNarrator) GenerateNarrative(ctx context.Context, input llm.NarrativeInput) (llm.Narrative, error) {
	resp, err := r.base.GenerateNarrative(ctx, input)
	if err == nil || !shouldRetryNarrative(err) || ctx.Err() != nil {
		return resp, err
	}

	telemetry.Warn("narrative.retry", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"attempt":    1,
		"error":      sanitizeError(err),
	})
	timer := time.NewTimer(r.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return llm.Narrative{}, ctx.Err()
	}

	return r.base.GenerateNarrative(ctx, input)
}

func shouldRetryNarrative(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, llm.ErrNotImplemented) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "http status 429") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "llm") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof")
}
