package aksara

import "encoding/json"

// --- Domain types ---

// Turn roles. Turns use "agent" for the assistant's replies; the LLM wire
// protocol uses "assistant"; the engine maps between the two.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
	RoleTool  = "tool"
)

// Turn is one entry in a conversation's history. Immutable once appended;
// order is significant and never changes.
type Turn struct {
	Role      string `json:"role"` // "user", "agent", or "tool"
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// Evidence is one retrieved candidate passage. Fingerprint identifies the
// normalized content and is used to deduplicate results across query variants.
type Evidence struct {
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Score       float32        `json:"score"`
	Fingerprint string         `json:"fingerprint"`
}

// Source is one citation in an AnswerPayload.
type Source struct {
	Title     string `json:"title"`
	Quote     string `json:"quote"`
	SourceURL string `json:"source_url"`
}

// AnswerPayload is the structured answer returned to the caller. It is always
// present: extraction degrades from structured to text-only to the empty
// sentinel, so consumers never need a nil check.
type AnswerPayload struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Emotion is the classified emotional tone of a user message.
type Emotion string

const (
	EmotionNeutral Emotion = "neutral"
	EmotionHappy   Emotion = "happy"
	EmotionSad     Emotion = "sad"
	EmotionAngry   Emotion = "angry"
)

// --- LLM protocol types ---

type ChatMessage struct {
	Role       string     `json:"role"` // "system", "user", "assistant", "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type ChatRequest struct {
	Messages []ChatMessage    `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

type ChatResponse struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage      `json:"usage"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// --- ChatMessage constructors ---

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: "user", Content: text}
}

func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: "system", Content: text}
}

func AssistantMessage(text string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: text}
}

func ToolResultMessage(callID, content string) ChatMessage {
	return ChatMessage{Role: "tool", Content: content, ToolCallID: callID}
}
