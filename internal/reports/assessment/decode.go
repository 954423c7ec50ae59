package assessment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNotObject is returned when the payload is valid JSON but not an object.
var ErrNotObject = errors.New("assessment must be a JSON object")

// Decode parses an assessment payload. Only unparseable JSON or a non-object
// top level is an error; every field inside degrades to its fallback instead.
func Decode(raw []byte) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var top any
	if err := dec.Decode(&top); err != nil {
		return Result{}, fmt.Errorf("decode assessment: %w", err)
	}
	obj, ok := top.(map[string]any)
	if !ok {
		return Result{}, ErrNotObject
	}

	out := Result{
		OverallScore:     number(obj["overallScore"]),
		ScoresByCategory: map[CategoryCode]float64{},
		CategoryDetails:  map[CategoryCode]CategoryDetail{},
	}
	for code, v := range byCategory(object(obj["scoresByCategory"])) {
		out.ScoresByCategory[code] = number(v)
	}
	for code, v := range byCategory(object(obj["categoryDetails"])) {
		out.CategoryDetails[code] = decodeDetail(object(v), out.ScoresByCategory[code])
	}

	roadmap := object(obj["roadmap"])
	out.Roadmap = Roadmap{
		NearTerm: decodeActions(field(roadmap, "nearTerm", "near_term", "immediate")),
		MidTerm:  decodeActions(field(roadmap, "midTerm", "mid_term", "shortTerm")),
		LongTerm: decodeActions(field(roadmap, "longTerm", "long_term")),
	}

	insights := object(obj["insights"])
	out.Insights = Insights{
		TopStrengths:    stringList(insights["topStrengths"]),
		TopWeaknesses:   stringList(insights["topWeaknesses"]),
		CriticalActions: stringList(insights["criticalActions"]),
		OngoingHabits:   stringList(field(insights, "ongoingHabits", "habits")),
	}

	return Normalize(out), nil
}

func decodeDetail(obj map[string]any, fallbackScore float64) CategoryDetail {
	detail := CategoryDetail{
		Score:      fallbackScore,
		Strengths:  stringList(obj["strengths"]),
		Weaknesses: stringList(obj["weaknesses"]),
	}
	if v, ok := obj["score"]; ok {
		detail.Score = number(v)
	}
	for _, item := range list(obj["recommendations"]) {
		rec := object(item)
		if rec == nil {
			if s := str(item); s != "" {
				detail.Recommendations = append(detail.Recommendations, Recommendation{Title: s})
			}
			continue
		}
		detail.Recommendations = append(detail.Recommendations, Recommendation{
			Title:           str(rec["title"]),
			Description:     str(rec["description"]),
			EstimatedImpact: str(field(rec, "estimatedImpact", "impact")),
			Timeframe:       str(rec["timeframe"]),
		})
	}
	for _, item := range list(obj["keyMetrics"]) {
		m := object(item)
		if m == nil {
			continue
		}
		detail.KeyMetrics = append(detail.KeyMetrics, Metric{
			Name:      str(m["name"]),
			Value:     scalarString(m["value"]),
			Benchmark: scalarString(m["benchmark"]),
			Status:    MetricStatus(strings.ToLower(str(m["status"]))),
		})
	}
	return detail
}

func decodeActions(v any) []ActionItem {
	var out []ActionItem
	for _, item := range list(v) {
		obj := object(item)
		if obj == nil {
			continue
		}
		code, ok := parseCode(str(obj["category"]))
		if !ok {
			continue
		}
		out = append(out, ActionItem{
			Action:   str(obj["action"]),
			Category: code,
			Impact:   str(obj["impact"]),
		})
	}
	return out
}

func byCategory(obj map[string]any) map[CategoryCode]any {
	keyed := make(map[CategoryCode]any, len(obj))
	for k, v := range obj {
		keyed[CategoryCode(k)] = v
	}
	return canonicalCodes(keyed)
}

func parseCode(raw string) (CategoryCode, bool) {
	code := CategoryCode(strings.ToUpper(strings.TrimSpace(raw)))
	return code, IsKnownCategory(code)
}

func field(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v
		}
	}
	return nil
}

func object(v any) map[string]any {
	obj, _ := v.(map[string]any)
	return obj
}

func list(v any) []any {
	items, _ := v.([]any)
	return items
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// scalarString accepts strings and numbers, since metric values arrive as both.
func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

func stringList(v any) []string {
	var out []string
	for _, item := range list(v) {
		if s := str(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// number coerces v to a finite float. Anything unusable becomes 0.
func number(v any) float64 {
	var f float64
	switch val := v.(type) {
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(val), "%"), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
