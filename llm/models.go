package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a chat message with role and content.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDefinition describes a tool as a JSON schema.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// LLMResponse represents a response from an LLM provider.
type LLMResponse struct {
	Content string
	Usage   *TokenUsage
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}

// ResponseFormatType defines the type of response format.
type ResponseFormatType string

const (
	ResponseFormatText       ResponseFormatType = "text"
	ResponseFormatJSONObject ResponseFormatType = "json_object"
	ResponseFormatJSONSchema ResponseFormatType = "json_schema"
)

// ResponseFormat specifies how the LLM should format its response.
type ResponseFormat struct {
	Type       ResponseFormatType `json:"type"`
	JSONSchema *JSONSchemaFormat  `json:"json_schema,omitempty"`
}

// JSONSchemaFormat defines a JSON schema for structured outputs.
type JSONSchemaFormat struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"schema"`
	Strict      bool            `json:"strict"`
}

// NewJSONObjectFormat creates a JSON object response format.
func NewJSONObjectFormat() *ResponseFormat {
	return &ResponseFormat{Type: ResponseFormatJSONObject}
}

// NewJSONSchemaFormat creates a non-strict JSON schema response format.
// Tool arguments vary per tool, so the schema leaves them open and strict
// mode, which forbids open objects, stays off.
func NewJSONSchemaFormat(name, description string, schema json.RawMessage) *ResponseFormat {
	return &ResponseFormat{
		Type: ResponseFormatJSONSchema,
		JSONSchema: &JSONSchemaFormat{
			Name:        name,
			Description: description,
			Schema:      schema,
		},
	}
}

func (f *ResponseFormat) wantsJSON() bool {
	return f != nil && (f.Type == ResponseFormatJSONObject || f.Type == ResponseFormatJSONSchema)
}

func (f *ResponseFormat) hasSchema() bool {
	return f != nil && f.Type == ResponseFormatJSONSchema && f.JSONSchema != nil && len(f.JSONSchema.Schema) > 0
}

// instruction renders the format as prompt text for providers without
// native schema enforcement.
func (f *ResponseFormat) instruction() string {
	if !f.wantsJSON() {
		return ""
	}
	var b strings.Builder
	b.WriteString("Respond with a single JSON object and nothing else.")
	if f.hasSchema() {
		fmt.Fprintf(&b, " The object must match this JSON schema:\n%s", string(f.JSONSchema.Schema))
	}
	return b.String()
}

func joinInstructions(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

// conversation is a chat reshaped for vendor APIs: one system instruction
// and strictly alternating user/assistant turns.
type conversation struct {
	system string
	turns  []ChatMessage
}

// splitConversation joins system messages into one instruction, drops blank
// turns and merges consecutive turns of the same role.
func splitConversation(messages []ChatMessage) conversation {
	var conv conversation
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			conv.system = joinInstructions(conv.system, msg.Content)
		case RoleUser, RoleAssistant:
			if strings.TrimSpace(msg.Content) == "" {
				continue
			}
			if n := len(conv.turns); n > 0 && conv.turns[n-1].Role == msg.Role {
				conv.turns[n-1].Content = joinInstructions(conv.turns[n-1].Content, msg.Content)
				continue
			}
			conv.turns = append(conv.turns, msg)
		}
	}
	return conv
}

// newTokenUsage returns nil when the vendor reported no counts. A zero total
// is derived from the parts.
func newTokenUsage[N int | int32 | int64](prompt, completion, total N) *TokenUsage {
	if prompt == 0 && completion == 0 && total == 0 {
		return nil
	}
	if total == 0 {
		total = prompt + completion
	}
	return &TokenUsage{
		PromptTokens:     uint32(prompt),
		CompletionTokens: uint32(completion),
		TotalTokens:      uint32(total),
	}
}
