package assessment

import (
	"math"
	"slices"
	"strings"
)

// Normalize applies the input invariants to an already typed Result: scores
// are finite and within [0,100], strings are trimmed, blank entries and unknown
// categories are dropped. A category scored in only one of ScoresByCategory and
// CategoryDetails is filled in on the other side. r is not modified.
func Normalize(r Result) Result {
	out := Result{
		OverallScore:     clampScore(r.OverallScore),
		ScoresByCategory: make(map[CategoryCode]float64, len(r.ScoresByCategory)),
		CategoryDetails:  make(map[CategoryCode]CategoryDetail, len(r.CategoryDetails)),
	}
	for code, score := range canonicalCodes(r.ScoresByCategory) {
		out.ScoresByCategory[code] = clampScore(score)
	}
	for code, detail := range canonicalCodes(r.CategoryDetails) {
		out.CategoryDetails[code] = normalizeDetail(detail)
	}
	for code, score := range out.ScoresByCategory {
		if _, ok := out.CategoryDetails[code]; !ok {
			out.CategoryDetails[code] = CategoryDetail{Score: score}
		}
	}
	for code, detail := range out.CategoryDetails {
		if _, ok := out.ScoresByCategory[code]; !ok {
			out.ScoresByCategory[code] = detail.Score
		}
	}

	out.Roadmap = Roadmap{
		NearTerm: normalizeActions(r.Roadmap.NearTerm),
		MidTerm:  normalizeActions(r.Roadmap.MidTerm),
		LongTerm: normalizeActions(r.Roadmap.LongTerm),
	}
	out.Insights = Insights{
		TopStrengths:    cleanStrings(r.Insights.TopStrengths),
		TopWeaknesses:   cleanStrings(r.Insights.TopWeaknesses),
		CriticalActions: cleanStrings(r.Insights.CriticalActions),
		OngoingHabits:   cleanStrings(r.Insights.OngoingHabits),
	}
	return out
}

// canonicalCodes upper-cases keys and drops unknown ones. When several keys
// name the same category the exact upper-case key wins; otherwise the last in
// sorted order does, so the outcome never depends on map iteration.
func canonicalCodes[V any](in map[CategoryCode]V) map[CategoryCode]V {
	raw := make([]CategoryCode, 0, len(in))
	for k := range in {
		raw = append(raw, k)
	}
	slices.Sort(raw)

	out := make(map[CategoryCode]V, len(in))
	exact := make(map[CategoryCode]bool, len(in))
	for _, k := range raw {
		code := CategoryCode(strings.ToUpper(strings.TrimSpace(string(k))))
		if !IsKnownCategory(code) || exact[code] {
			continue
		}
		out[code] = in[k]
		if k == code {
			exact[code] = true
		}
	}
	return out
}

func normalizeDetail(d CategoryDetail) CategoryDetail {
	out := CategoryDetail{
		Score:      clampScore(d.Score),
		Strengths:  cleanStrings(d.Strengths),
		Weaknesses: cleanStrings(d.Weaknesses),
	}
	for _, rec := range d.Recommendations {
		rec = Recommendation{
			Title:           strings.TrimSpace(rec.Title),
			Description:     strings.TrimSpace(rec.Description),
			EstimatedImpact: strings.TrimSpace(rec.EstimatedImpact),
			Timeframe:       strings.TrimSpace(rec.Timeframe),
		}
		if rec.Title == "" && rec.Description == "" {
			continue
		}
		out.Recommendations = append(out.Recommendations, rec)
	}
	for _, m := range d.KeyMetrics {
		m = Metric{
			Name:      strings.TrimSpace(m.Name),
			Value:     strings.TrimSpace(m.Value),
			Benchmark: strings.TrimSpace(m.Benchmark),
			Status:    normalizeStatus(m.Status),
		}
		if m.Name == "" {
			continue
		}
		out.KeyMetrics = append(out.KeyMetrics, m)
	}
	return out
}

func normalizeActions(items []ActionItem) []ActionItem {
	var out []ActionItem
	for _, item := range items {
		item.Action = strings.TrimSpace(item.Action)
		item.Impact = strings.TrimSpace(item.Impact)
		item.Category = CategoryCode(strings.ToUpper(strings.TrimSpace(string(item.Category))))
		if item.Action == "" || !IsKnownCategory(item.Category) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func normalizeStatus(s MetricStatus) MetricStatus {
	switch MetricStatus(strings.ToLower(strings.TrimSpace(string(s)))) {
	case MetricGood:
		return MetricGood
	case MetricWarning:
		return MetricWarning
	case MetricCritical:
		return MetricCritical
	default:
		return ""
	}
}

func cleanStrings(items []string) []string {
	var out []string
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
