package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNarrativePromptFillsPlaceholders(t *testing.T) {
	prompt := BuildNarrativePrompt(NarrativeInput{
		SubjectName:  " Acme Ltd ",
		OverallScore: 62.5,
		Categories: []CategorySummary{
			{Code: "TIN", Name: "Technology & Innovation", Score: 30, Strengths: []string{"Cloud email"}, Weaknesses: []string{"No MFA", "Old firewall"}},
		},
		TopStrengths:  []string{"Loyal customers", " "},
		TopWeaknesses: nil,
	})

	assert.Contains(t, prompt, "report for Acme Ltd.")
	assert.Contains(t, prompt, "Overall score: 62.5/100")
	assert.Contains(t, prompt, "- Technology & Innovation (TIN): 30/100")
	assert.Contains(t, prompt, "weaknesses: No MFA; Old firewall")
	assert.Contains(t, prompt, "Top strengths:\n- Loyal customers\n")
	assert.Contains(t, prompt, "Top weaknesses:\n- none")
	assert.NotContains(t, prompt, "{{")
}

func TestBuildNarrativePromptDoesNotExpandInputPlaceholders(t *testing.T) {
	prompt := BuildNarrativePrompt(NarrativeInput{SubjectName: "{{OVERALL_SCORE}}"})
	assert.True(t, strings.Contains(prompt, "report for {{OVERALL_SCORE}}."))
}

func TestPlaceholderClient(t *testing.T) {
	_, err := PlaceholderClient{}.GenerateNarrative(context.Background(), NarrativeInput{})
	require.ErrorIs(t, err, ErrNotImplemented)
}

func TestStaticClient(t *testing.T) {
	n, err := StaticClient{HTML: "<p>hi</p>"}.GenerateNarrative(context.Background(), NarrativeInput{})
	require.NoError(t, err)
	assert.Equal(t, Narrative{HTML: "<p>hi</p>"}, n)

	_, err = StaticClient{}.GenerateNarrative(context.Background(), NarrativeInput{})
	require.ErrorIs(t, err, ErrEmptyNarrative)
}
