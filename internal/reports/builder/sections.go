package builder

import (
	"html/template"
	"math"
	"sort"
	"strings"
	"time"

	"report-backend/internal/reports/assessment"
	"report-backend/internal/reports/scoring"
	"report-backend/internal/reports/variants"
)

const (
	deepDiveLimit        = 3
	quickWinsPerCategory = 2
	horizonLimit         = 3
	habitsLimit          = 5
	metricsLimit         = 3

	defaultCallToAction  = "Book a follow-up session with your advisor to turn these priorities into a plan."
	defaultActionTitle   = "Review recommendations"
	defaultMetricValue   = "n/a"
	defaultVariantHeader = "Business Assessment Report"
)

func buildCover(subject string, now time.Time, variant variants.Variant) template.HTML {
	title := strings.TrimSpace(variant.Title)
	if title == "" {
		title = defaultVariantHeader
	}
	return render("cover", struct {
		VariantTitle string
		Subject      string
		Date         string
	}{VariantTitle: title, Subject: subject, Date: now.Format(dateLayout)})
}

type snapshotBar struct {
	Code  assessment.CategoryCode
	Name  string
	Score string
	Width int
	Band  scoring.ScoreBand
}

func buildSnapshot(result assessment.Result, variant variants.Variant) template.HTML {
	bars := make([]snapshotBar, 0, len(variant.Primary))
	for _, code := range variant.Primary {
		score := result.Score(code)
		bars = append(bars, snapshotBar{
			Code:  code,
			Name:  assessment.CategoryName(code),
			Score: formatScore(score),
			Width: percent(score, 100),
			Band:  scoring.ClassifyScoreBand(score),
		})
	}
	return render("snapshot", struct {
		Overall string
		Band    scoring.ScoreBand
		Bars    []snapshotBar
		Marker  int
	}{
		Overall: formatScore(result.OverallScore),
		Band:    scoring.ClassifyScoreBand(result.OverallScore),
		Bars:    bars,
		Marker:  int(SnapshotBenchmark),
	})
}

type priorityAction struct {
	Found        bool
	CategoryName string
	Title        string
	Description  string
}

// selectPriorityAction picks the first recommendation of the lowest-scoring
// primary category that has any. Ties keep primary order.
func selectPriorityAction(result assessment.Result, variant variants.Variant) priorityAction {
	var (
		best     priorityAction
		bestCode assessment.CategoryCode
		found    bool
	)
	for _, code := range variant.Primary {
		recs := result.Detail(code).Recommendations
		if len(recs) == 0 {
			continue
		}
		if found && result.Score(code) >= result.Score(bestCode) {
			continue
		}
		rec := recs[0]
		title := strings.TrimSpace(rec.Title)
		description := strings.TrimSpace(rec.Description)
		if title == "" {
			title, description = description, ""
		}
		if title == "" {
			title = defaultActionTitle
		}
		best = priorityAction{
			Found:        true,
			CategoryName: assessment.CategoryName(code),
			Title:        strings.TrimRight(title, "."),
			Description:  description,
		}
		bestCode = code
		found = true
	}
	return best
}

func buildPriorityCallout(result assessment.Result, variant variants.Variant) template.HTML {
	return render("priorityCallout", selectPriorityAction(result, variant))
}

type priorityRow struct {
	Code     assessment.CategoryCode
	Name     string
	Score    string
	Gap      string
	GapClass string
	Tier     scoring.PriorityTier
	score    float64
}

// priorityRows classifies each primary category, applies the bumps in primary
// order and sorts ascending by score.
func priorityRows(result assessment.Result, variant variants.Variant) []priorityRow {
	dims := make([]scoring.Dimension, 0, len(variant.Primary))
	tiers := make(map[assessment.CategoryCode]scoring.PriorityTier, len(variant.Primary))
	for _, code := range variant.Primary {
		score := result.Score(code)
		dims = append(dims, scoring.Dimension{
			Code:           code,
			Score:          score,
			GapToBenchmark: variant.Benchmark(code) - score,
		})
		tiers[code] = scoring.ClassifyPriorityTier(score)
	}
	scoring.ApplyPriorityBumps(dims, tiers)

	rows := make([]priorityRow, 0, len(dims))
	for _, d := range dims {
		diff := d.Score - variant.Benchmark(d.Code)
		class := ""
		switch gap := formatSigned(diff); {
		case strings.HasPrefix(gap, "+"):
			class = "gap-positive"
		case strings.HasPrefix(gap, "-"):
			class = "gap-negative"
		}
		rows = append(rows, priorityRow{
			Code:     d.Code,
			Name:     assessment.CategoryName(d.Code),
			Score:    formatScore(d.Score),
			Gap:      formatSigned(diff),
			GapClass: class,
			Tier:     tiers[d.Code],
			score:    d.Score,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].score < rows[j].score })
	return rows
}

func buildPriorityTable(result assessment.Result, variant variants.Variant) template.HTML {
	return render("priorityTable", priorityRows(result, variant))
}

type gapBar struct {
	Code    assessment.CategoryCode
	Name    string
	Gap     string
	Width   int
	OnTrack bool
}

func buildGapChart(result assessment.Result, variant variants.Variant) template.HTML {
	bars := make([]gapBar, 0, len(variant.Primary))
	for _, code := range variant.Primary {
		gap := math.Max(0, ExcellenceTarget-result.Score(code))
		bars = append(bars, gapBar{
			Code:    code,
			Name:    assessment.CategoryName(code),
			Gap:     formatScore(gap),
			Width:   percent(gap, ExcellenceTarget),
			OnTrack: gap == 0,
		})
	}
	return render("gapChart", struct {
		Target string
		Bars   []gapBar
	}{Target: formatScore(ExcellenceTarget), Bars: bars})
}

type weakness struct {
	Text  string
	Badge scoring.SeverityBadge
}

type deepDiveCategory struct {
	Code       assessment.CategoryCode
	Name       string
	Score      string
	Band       scoring.ScoreBand
	Strengths  []string
	Weaknesses []weakness
	Evidence   string
}

func buildDeepDive(result assessment.Result, variant variants.Variant) template.HTML {
	cats := make([]deepDiveCategory, 0, len(variant.Primary))
	for _, code := range variant.Primary {
		detail := result.Detail(code)
		// The detail score drives the header, band and badges alike. Weaknesses
		// carry no score of their own.
		score := detail.Score
		badge := scoring.ClassifySeverityBadge(score)
		weaknesses := make([]weakness, 0, deepDiveLimit)
		for _, w := range firstN(detail.Weaknesses, deepDiveLimit) {
			weaknesses = append(weaknesses, weakness{Text: w, Badge: badge})
		}
		cats = append(cats, deepDiveCategory{
			Code:       code,
			Name:       assessment.CategoryName(code),
			Score:      formatScore(score),
			Band:       scoring.ClassifyScoreBand(score),
			Strengths:  firstN(detail.Strengths, deepDiveLimit),
			Weaknesses: weaknesses,
			Evidence:   evidence(detail.KeyMetrics),
		})
	}
	return render("deepDive", cats)
}

func evidence(metrics []assessment.Metric) string {
	if len(metrics) == 0 {
		return ""
	}
	m := metrics[0]
	out := m.Name + ": " + valueOr(m.Value, defaultMetricValue)
	if b := strings.TrimSpace(m.Benchmark); b != "" {
		out += " (benchmark " + b + ")"
	}
	return out
}

type quickWin struct {
	Code              assessment.CategoryCode
	CategoryName      string
	Title             string
	Description       string
	Impact            string
	Timeframe         string
	ExpectedScore     string
	ImprovementPoints string
	GapClosurePercent int
}

// quickWins takes up to two recommendations per extended category and drops
// titles already seen in an earlier category, compared case-insensitively.
func quickWins(result assessment.Result, variant variants.Variant) []quickWin {
	seen := make(map[string]bool)
	var out []quickWin
	for _, code := range variant.Extended() {
		score := result.Score(code)
		taken := 0
		for _, rec := range result.Detail(code).Recommendations {
			if taken == quickWinsPerCategory {
				break
			}
			title := strings.TrimSpace(rec.Title)
			description := strings.TrimSpace(rec.Description)
			if title == "" {
				title, description = description, ""
			}
			if title == "" {
				continue
			}
			taken++
			key := strings.ToLower(title)
			if seen[key] {
				continue
			}
			seen[key] = true
			outcome := scoring.ProjectExpectedOutcome(score, scoring.DefaultOutcomeBenchmark)
			out = append(out, quickWin{
				Code:              code,
				CategoryName:      assessment.CategoryName(code),
				Title:             title,
				Description:       description,
				Impact:            strings.TrimSpace(rec.EstimatedImpact),
				Timeframe:         strings.TrimSpace(rec.Timeframe),
				ExpectedScore:     formatScore(outcome.ExpectedScore),
				ImprovementPoints: formatScore(outcome.ImprovementPoints),
				GapClosurePercent: outcome.GapClosurePercent,
			})
		}
	}
	return out
}

func buildQuickWins(result assessment.Result, variant variants.Variant) template.HTML {
	return render("quickWins", quickWins(result, variant))
}

type planItem struct {
	Action       string
	CategoryName string
	Impact       string
}

type horizon struct {
	Label string
	Items []planItem
}

func buildActionPlan(result assessment.Result, variant variants.Variant) template.HTML {
	scope := make(map[assessment.CategoryCode]bool)
	for _, code := range variant.Extended() {
		scope[code] = true
	}
	bucket := func(label string, items []assessment.ActionItem) horizon {
		h := horizon{Label: label}
		for _, item := range items {
			if len(h.Items) == horizonLimit {
				break
			}
			if !scope[item.Category] {
				continue
			}
			h.Items = append(h.Items, planItem{
				Action:       item.Action,
				CategoryName: assessment.CategoryName(item.Category),
				Impact:       item.Impact,
			})
		}
		return h
	}
	return render("actionPlan", struct {
		Horizons []horizon
		Habits   []string
	}{
		Horizons: []horizon{
			bucket("Next 30 Days", result.Roadmap.NearTerm),
			bucket("30–60 Days", result.Roadmap.MidTerm),
			bucket("60–90 Days", result.Roadmap.LongTerm),
		},
		Habits: firstN(result.Insights.OngoingHabits, habitsLimit),
	})
}

func buildResources() template.HTML {
	return render("resources", nil)
}

type metricView struct {
	Name      string
	Value     string
	Benchmark string
	Status    string
}

type targetView struct {
	Code    assessment.CategoryCode
	Name    string
	Current string
	Target  string
	Metrics []metricView
}

func targets(result assessment.Result, variant variants.Variant) []targetView {
	out := make([]targetView, 0, len(variant.Primary))
	for _, code := range variant.Primary {
		score := result.Score(code)
		var metrics []metricView
		for _, m := range firstN(result.Detail(code).KeyMetrics, metricsLimit) {
			status := string(m.Status)
			if status == "" {
				status = "neutral"
			}
			metrics = append(metrics, metricView{
				Name:      m.Name,
				Value:     valueOr(m.Value, defaultMetricValue),
				Benchmark: valueOr(m.Benchmark, "-"),
				Status:    status,
			})
		}
		out = append(out, targetView{
			Code:    code,
			Name:    assessment.CategoryName(code),
			Current: formatScore(score),
			Target:  formatScore(scoring.TargetScore(score)),
			Metrics: metrics,
		})
	}
	return out
}

func buildMetricsTargets(result assessment.Result, variant variants.Variant) template.HTML {
	return render("metricsTargets", targets(result, variant))
}

func buildProgressTracker(result assessment.Result, variant variants.Variant) template.HTML {
	return render("progressTracker", targets(result, variant))
}

func buildClosing(result assessment.Result, variant variants.Variant, callToAction string) template.HTML {
	cta := strings.TrimSpace(callToAction)
	if cta == "" {
		cta = strings.TrimSpace(variant.CallToAction)
	}
	if cta == "" {
		cta = defaultCallToAction
	}
	return render("closing", struct {
		Overall      string
		Band         scoring.ScoreBand
		CallToAction string
	}{
		Overall:      formatScore(result.OverallScore),
		Band:         scoring.ClassifyScoreBand(result.OverallScore),
		CallToAction: cta,
	})
}

func valueOr(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}
