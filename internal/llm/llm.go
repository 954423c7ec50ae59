package llm

import (
	"context"
	"errors"
)

// NarrativeGenerator writes the executive summary of a report.
type NarrativeGenerator interface {
	GenerateNarrative(ctx context.Context, input NarrativeInput) (Narrative, error)
}

// NarrativeInput is the structured prompt context for a narrative.
type NarrativeInput struct {
	SubjectName   string
	OverallScore  float64
	Categories    []CategorySummary
	TopStrengths  []string
	TopWeaknesses []string
}

// CategorySummary condenses one focus category.
type CategorySummary struct {
	Code       string
	Name       string
	Score      float64
	Strengths  []string
	Weaknesses []string
}

// Narrative is generated HTML paragraph markup plus the tokens spent on it.
type Narrative struct {
	HTML       string
	TokensUsed int
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// ErrEmptyNarrative is returned when a provider answers with no text.
var ErrEmptyNarrative = errors.New("narrative is empty")

// PlaceholderClient is used when no provider is configured. Reports built with
// it carry the fallback summary.
type PlaceholderClient struct{}

// GenerateNarrative returns ErrNotImplemented.
func (PlaceholderClient) GenerateNarrative(ctx context.Context, input NarrativeInput) (Narrative, error) {
	_ = ctx
	_ = input
	return Narrative{}, ErrNotImplemented
}

// StaticClient returns a fixed narrative. The CLI uses it in offline mode.
type StaticClient struct {
	HTML string
}

func (c StaticClient) GenerateNarrative(ctx context.Context, input NarrativeInput) (Narrative, error) {
	if err := ctx.Err(); err != nil {
		return Narrative{}, err
	}
	if c.HTML == "" {
		return Narrative{}, ErrEmptyNarrative
	}
	return Narrative{HTML: c.HTML}, nil
}
