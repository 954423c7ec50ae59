package llm

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

// NarrativePromptVersion identifies the embedded narrative prompt.
const NarrativePromptVersion = "narrative_v1"

//go:embed prompts/narrative_v1.txt
var narrativePromptV1 string

// BuildNarrativePrompt renders the narrative prompt for input.
func BuildNarrativePrompt(input NarrativeInput) string {
	replacer := strings.NewReplacer(
		"{{SUBJECT_NAME}}", strings.TrimSpace(input.SubjectName),
		"{{OVERALL_SCORE}}", formatScore(input.OverallScore),
		"{{CATEGORY_SUMMARY}}", categoryLines(input.Categories),
		"{{TOP_STRENGTHS}}", bulletList(input.TopStrengths),
		"{{TOP_WEAKNESSES}}", bulletList(input.TopWeaknesses),
	)
	return replacer.Replace(narrativePromptV1)
}

func categoryLines(categories []CategorySummary) string {
	if len(categories) == 0 {
		return "- none"
	}
	var b strings.Builder
	for i, c := range categories {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s (%s): %s/100", c.Name, c.Code, formatScore(c.Score))
		if len(c.Strengths) > 0 {
			fmt.Fprintf(&b, "\n  strengths: %s", strings.Join(c.Strengths, "; "))
		}
		if len(c.Weaknesses) > 0 {
			fmt.Fprintf(&b, "\n  weaknesses: %s", strings.Join(c.Weaknesses, "; "))
		}
	}
	return b.String()
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			lines = append(lines, "- "+s)
		}
	}
	if len(lines) == 0 {
		return "- none"
	}
	return strings.Join(lines, "\n")
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
