// Package builder assembles a scored assessment into a self-contained HTML
// report.
package builder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"report-backend/internal/llm"
	"report-backend/internal/reports/assessment"
	"report-backend/internal/reports/variants"
)

const (
	// SnapshotBenchmark is where the benchmark marker sits on snapshot bars.
	SnapshotBenchmark = 70.0
	// ExcellenceTarget is the score the gap chart measures against.
	ExcellenceTarget = 80.0
	// CharsPerPage is the page-count heuristic divisor.
	CharsPerPage = 3000

	DefaultNarrativeTimeout = 45 * time.Second

	dateLayout = "January 2, 2006"
	yearLayout = "2006"
)

// SectionTitles lists the report sections in emission order.
var SectionTitles = []string{
	"Cover",
	"Executive Summary",
	"Performance Snapshot",
	"Priority Action",
	"Priority Focus Areas",
	"Gap to Excellence",
	"Category Deep Dive",
	"Quick Wins",
	"90-Day Action Plan",
	"Resources & Support",
	"Metrics & Targets",
	"Progress Tracker",
	"Next Steps",
}

// ErrBlankSubject is returned when the request has no subject name.
var ErrBlankSubject = errors.New("subject name is required")

// Request is one report build.
type Request struct {
	SubjectName  string
	VariantKey   string
	CallToAction string
	Result       assessment.Result
}

// Output is the assembled document and its metadata.
type Output struct {
	HTML              string
	SectionTitles     []string
	GeneratedAt       time.Time
	PageCount         int
	TokensUsed        int
	NarrativeFallback bool
}

// Builder renders reports. The zero value uses the builtin variant catalog,
// the wall clock and the fallback narrative.
type Builder struct {
	Narrator         llm.NarrativeGenerator
	Catalog          variants.Catalog
	Clock            func() time.Time
	NarrativeTimeout time.Duration
}

// Build renders req. The narrative request runs alongside the section
// builders; its failures never fail the build.
func (b *Builder) Build(ctx context.Context, req Request) (Output, error) {
	subject := strings.TrimSpace(req.SubjectName)
	if subject == "" {
		return Output{}, ErrBlankSubject
	}
	catalog := b.Catalog
	if catalog.Empty() {
		catalog = variants.Builtin()
	}
	variant, err := catalog.Get(req.VariantKey)
	if err != nil {
		return Output{}, err
	}
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	result := assessment.Normalize(req.Result)
	now := b.now()

	var (
		narrative narrativeResult
		sections  []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		narrative = b.narrate(gctx, subject, result, variant)
		return nil
	})
	g.Go(func() error {
		sections = buildSections(subject, now, result, variant, req.CallToAction)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Output{}, fmt.Errorf("build report: %w", err)
	}

	// Executive summary goes right after the cover.
	all := make([]string, 0, len(sections)+1)
	all = append(all, sections[0], string(buildNarrative(narrative.html)))
	all = append(all, sections[1:]...)

	doc := assemble(subject, now, strings.Join(all, "\n"))
	return Output{
		HTML:              doc,
		SectionTitles:     append([]string(nil), SectionTitles...),
		GeneratedAt:       now,
		PageCount:         pageCount(doc),
		TokensUsed:        narrative.tokens,
		NarrativeFallback: narrative.fallback,
	}, nil
}

func (b *Builder) now() time.Time {
	if b.Clock != nil {
		return b.Clock()
	}
	return time.Now().UTC()
}

func buildSections(subject string, now time.Time, result assessment.Result, variant variants.Variant, callToAction string) []string {
	fragments := []string{
		string(buildCover(subject, now, variant)),
		string(buildSnapshot(result, variant)),
		string(buildPriorityCallout(result, variant)),
		string(buildPriorityTable(result, variant)),
		string(buildGapChart(result, variant)),
		string(buildDeepDive(result, variant)),
		string(buildQuickWins(result, variant)),
		string(buildActionPlan(result, variant)),
		string(buildResources()),
		string(buildMetricsTargets(result, variant)),
		string(buildProgressTracker(result, variant)),
		string(buildClosing(result, variant, callToAction)),
	}
	return fragments
}

func assemble(subject string, now time.Time, sections string) string {
	replacer := strings.NewReplacer(
		"[[SUBJECT_NAME]]", escapeText(subject),
		"[[REPORT_DATE]]", now.Format(dateLayout),
		"[[REPORT_YEAR]]", now.Format(yearLayout),
		"[[REPORT_SECTIONS]]", sections,
	)
	return replacer.Replace(shellHTML)
}

func pageCount(doc string) int {
	pages := int(math.Ceil(float64(len(doc)) / CharsPerPage))
	if pages < 1 {
		return 1
	}
	return pages
}
