// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - System instruction handling via config
// - JSON schema to genai.Schema conversion for constrained replies

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	initErr     error // reported on first use
}

// NewGeminiProvider creates a new Gemini provider.
// If client initialization fails, the error is stored and returned on first use.
func NewGeminiProvider(apiKey, model string, maxTokens uint32, temperature float32) *GeminiProvider {
	p := &GeminiProvider{
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: temperature,
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		p.initErr = fmt.Errorf("failed to initialize Gemini client: %w", err)
		return p
	}
	p.client = client
	return p
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the current model.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Chat sends a chat completion request.
func (p *GeminiProvider) Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error) {
	return p.ChatWithFormat(ctx, messages, nil)
}

// ChatWithFormat sends a chat completion request. A JSON schema format is
// enforced through ResponseSchema.
func (p *GeminiProvider) ChatWithFormat(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (LLMResponse, error) {
	if p.initErr != nil {
		return LLMResponse{}, providerError(p.Name(), p.initErr)
	}

	contents, systemInstruction := convertToGeminiMessages(messages)
	config, err := p.generateConfig(systemInstruction, format)
	if err != nil {
		return LLMResponse{}, providerError(p.Name(), err)
	}

	response, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return LLMResponse{}, providerError(p.Name(), fmt.Errorf("chat completion failed: %w", err))
	}

	content := response.Text()
	if strings.TrimSpace(content) == "" {
		return LLMResponse{}, providerError(p.Name(), ErrEmptyResponse)
	}

	var usage *TokenUsage
	if m := response.UsageMetadata; m != nil {
		usage = newTokenUsage(m.PromptTokenCount, m.CandidatesTokenCount, m.TotalTokenCount)
	}

	return LLMResponse{Content: content, Usage: usage}, nil
}

func (p *GeminiProvider) generateConfig(systemInstruction string, format *ResponseFormat) (*genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
	}
	if format.wantsJSON() {
		config.ResponseMIMEType = "application/json"
	}
	if format.hasSchema() {
		var schema map[string]any
		if err := json.Unmarshal(format.JSONSchema.Schema, &schema); err != nil {
			return nil, fmt.Errorf("decode response schema %q: %w", format.JSONSchema.Name, err)
		}
		// Gemini rejects objects without properties; open schemas are
		// described in the instruction instead.
		if closedSchema(schema) {
			config.ResponseSchema = convertToGeminiSchema(schema)
		} else {
			systemInstruction = joinInstructions(systemInstruction, format.instruction())
		}
	}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}
	return config, nil
}

// closedSchema reports whether every object in schema declares properties.
func closedSchema(schema map[string]any) bool {
	t, _ := schema["type"].(string)
	switch t {
	case "object", "":
		props, _ := schema["properties"].(map[string]any)
		if len(props) == 0 {
			return false
		}
		for _, prop := range props {
			if propMap, ok := prop.(map[string]any); ok && !closedSchema(propMap) {
				return false
			}
		}
	case "array":
		if items, ok := schema["items"].(map[string]any); ok {
			return closedSchema(items)
		}
	}
	return true
}

// convertToGeminiMessages converts messages to Gemini contents plus the
// system instruction. Assistant turns use the model role.
func convertToGeminiMessages(messages []ChatMessage) ([]*genai.Content, string) {
	conv := splitConversation(messages)
	contents := make([]*genai.Content, 0, len(conv.turns))
	for _, t := range conv.turns {
		role := genai.Role(genai.RoleUser)
		if t.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	return contents, conv.system
}

// convertToGeminiSchema recursively converts a JSON schema object to Gemini
// format. Arrays always get an items schema.
func convertToGeminiSchema(params map[string]any) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}

	if t, ok := params["type"].(string); ok {
		schema.Type = mapToGeminiType(t)
	}
	if d, ok := params["description"].(string); ok {
		schema.Description = d
	}
	schema.Required = stringList(params["required"])
	schema.Enum = stringList(params["enum"])

	switch schema.Type {
	case genai.TypeArray:
		if items, ok := params["items"].(map[string]any); ok {
			schema.Items = convertToGeminiSchema(items)
		} else {
			schema.Items = &genai.Schema{Type: genai.TypeString}
		}
	case genai.TypeObject:
		if props, ok := params["properties"].(map[string]any); ok {
			schema.Properties = make(map[string]*genai.Schema, len(props))
			for name, prop := range props {
				if propMap, ok := prop.(map[string]any); ok {
					schema.Properties[name] = convertToGeminiSchema(propMap)
				}
			}
		}
	}

	return schema
}

// stringList accepts both decoded JSON arrays and []string.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// mapToGeminiType maps JSON schema type to Gemini type.
func mapToGeminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

var _ Provider = (*GeminiProvider)(nil)
