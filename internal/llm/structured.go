package llm

import (
	"context"
	"encoding/json"
)

// JSONInstruction is appended to prompts that expect structured output.
const JSONInstruction = "\n\nCRITICAL: Your response must be ONLY valid JSON. Do not include any markdown formatting, code blocks, or explanatory text. Output raw JSON only."

// CompleteStructured asks client for JSON output and normalizes the response.
func CompleteStructured(ctx context.Context, client Client, prompt string, temperature float64) (json.RawMessage, error) {
	text, err := client.Complete(ctx, prompt+JSONInstruction, temperature, StructuredMaxTokens)
	if err != nil {
		return nil, err
	}
	return Normalize(text)
}
