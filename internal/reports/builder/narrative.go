package builder

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"report-backend/internal/llm"
	"report-backend/internal/reports/assessment"
	"report-backend/internal/reports/variants"
	"report-backend/internal/shared/telemetry"
)

const narrativeListLimit = 3

var narrativePolicy = bluemonday.UGCPolicy()

type narrativeResult struct {
	html     template.HTML
	tokens   int
	fallback bool
}

func (b *Builder) narrate(ctx context.Context, subject string, result assessment.Result, variant variants.Variant) narrativeResult {
	narrator := b.Narrator
	if narrator == nil {
		narrator = llm.PlaceholderClient{}
	}
	timeout := b.NarrativeTimeout
	if timeout <= 0 {
		timeout = DefaultNarrativeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := generateSafely(ctx, narrator, narrativeInput(subject, result, variant))
	if err == nil {
		if html := sanitizeNarrative(out.HTML); html != "" {
			return narrativeResult{html: html, tokens: out.TokensUsed}
		}
		err = llm.ErrEmptyNarrative
	}
	telemetry.Warn("report.narrative_fallback", map[string]any{
		"variant": variant.Key,
		"error":   err.Error(),
	})
	return narrativeResult{html: fallbackNarrative(subject, result.OverallScore), fallback: true}
}

type generated struct {
	out llm.Narrative
	err error
}

// generateSafely bounds the generator by ctx even when the generator ignores
// it. An abandoned call finishes in the background and its result is dropped.
func generateSafely(ctx context.Context, narrator llm.NarrativeGenerator, input llm.NarrativeInput) (llm.Narrative, error) {
	done := make(chan generated, 1)
	go func() {
		var res generated
		defer func() {
			if rec := recover(); rec != nil {
				res = generated{err: fmt.Errorf("narrative generator panic: %v", rec)}
			}
			done <- res
		}()
		res.out, res.err = narrator.GenerateNarrative(ctx, input)
	}()

	var res generated
	select {
	case res = <-done:
		if res.err == nil && ctx.Err() != nil {
			res.err = ctx.Err()
		}
	case <-ctx.Done():
		res = generated{err: ctx.Err()}
	}
	if errors.Is(res.err, context.DeadlineExceeded) {
		res.err = fmt.Errorf("narrative timed out: %w", res.err)
	}
	return res.out, res.err
}

func narrativeInput(subject string, result assessment.Result, variant variants.Variant) llm.NarrativeInput {
	categories := make([]llm.CategorySummary, 0, len(variant.Primary))
	for _, code := range variant.Primary {
		detail := result.Detail(code)
		categories = append(categories, llm.CategorySummary{
			Code:       string(code),
			Name:       assessment.CategoryName(code),
			Score:      result.Score(code),
			Strengths:  firstN(detail.Strengths, narrativeListLimit),
			Weaknesses: firstN(detail.Weaknesses, narrativeListLimit),
		})
	}
	return llm.NarrativeInput{
		SubjectName:   subject,
		OverallScore:  result.OverallScore,
		Categories:    categories,
		TopStrengths:  firstN(result.Insights.TopStrengths, narrativeListLimit),
		TopWeaknesses: firstN(result.Insights.TopWeaknesses, narrativeListLimit),
	}
}

// sanitizeNarrative strips scripts, handlers and unknown markup from model
// output. An empty result means nothing usable was returned.
func sanitizeNarrative(raw string) template.HTML {
	clean := strings.TrimSpace(narrativePolicy.Sanitize(raw))
	if strings.TrimSpace(stripTags(clean)) == "" {
		return ""
	}
	return template.HTML(clean)
}

func fallbackNarrative(subject string, overall float64) template.HTML {
	return render("fallbackNarrative", struct {
		Score   string
		Subject string
	}{Score: formatScore(overall), Subject: subject})
}

func buildNarrative(html template.HTML) template.HTML {
	return render("narrative", html)
}

func stripTags(s string) string {
	return bluemonday.StrictPolicy().Sanitize(s)
}

func firstN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
