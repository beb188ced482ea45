package openaicompat

import (
	"encoding/json"

	"github.com/aksara-ai/aksara"
)

// ParseResponse converts an OpenAI-format ChatResponse to an aksara
// ChatResponse. It extracts content, tool calls, and usage from choices[0].
func ParseResponse(resp ChatResponse) (aksara.ChatResponse, error) {
	var out aksara.ChatResponse

	if len(resp.Choices) == 0 {
		return out, nil
	}

	choice := resp.Choices[0]
	if choice.Message != nil {
		out.Content = choice.Message.Content
		out.ToolCalls = ParseToolCalls(choice.Message.ToolCalls)
	}

	if resp.Usage != nil {
		out.Usage = aksara.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}

	return out, nil
}

// ParseToolCalls converts OpenAI tool call requests to aksara ToolCalls.
// OpenAI returns function.arguments as a JSON string; invalid JSON degrades
// to an empty object so the caller's argument validation reports it.
func ParseToolCalls(tcs []ToolCallRequest) []aksara.ToolCall {
	if len(tcs) == 0 {
		return nil
	}

	out := make([]aksara.ToolCall, 0, len(tcs))
	for _, tc := range tcs {
		args := json.RawMessage(tc.Function.Arguments)
		if !json.Valid(args) {
			args = json.RawMessage(`{}`)
		}
		out = append(out, aksara.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return out
}
