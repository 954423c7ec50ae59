package openai

import "report-backend/internal/llm"

const systemPrompt = "You write concise, encouraging executive summaries for business assessment reports. Respond with HTML paragraphs only."

// BuildMessages creates the chat messages for a narrative request.
func BuildMessages(input llm.NarrativeInput) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: llm.BuildNarrativePrompt(input)},
	}
}
