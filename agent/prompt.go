package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kongjiyu/dotivra-sub004/llm"
	"github.com/kongjiyu/dotivra-sub004/markup"
)

const defaultSystemPrompt = "You are a technical writing assistant. You improve the user's document by calling tools that read and edit it."

const turnSchemaName = "agent_turn"

// instructions builds the system message for a session. Repository tools
// appear only when the session has them registered.
func instructions(cfg Config, session *Session, maxToolCalls int) string {
	var b strings.Builder
	b.WriteString(cfg.SystemPrompt)
	b.WriteString("\n\n")

	b.WriteString(`Work in stages. Every reply is exactly one JSON object:
{"stage": "<stage>", "content": "<text>", "tool": "<tool name>", "args": {...}}

Stages:
- planning: outline the steps you will take
- reasoning: think about the document or the last tool result
- executing: announce the edit you are about to make
- toolUsed: call one tool; "tool" and "args" are required
- summary: report what changed; this ends the session

After a toolUsed reply you receive the tool result and continue.
Offsets are character positions counted from 0. Scan or search before
editing so offsets are current. Content may be Markdown or HTML.
`)
	fmt.Fprintf(&b, "You may call at most %d tools in this session.\n\n", maxToolCalls)

	if doc, ok := session.Document(); ok {
		name := doc.Name
		if name == "" {
			name = doc.ID
		}
		fmt.Fprintf(&b, "Active document: %q (%d characters).\n", name, markup.Length(doc.Content))
	} else {
		b.WriteString("No document is open; editing tools will fail.\n")
	}
	if repo := session.Repository(); repo != nil {
		fmt.Fprintf(&b, "Linked repository: %s. Use the repository tools for source context.\n", repo.Ref())
	}

	b.WriteString("\nAvailable Tools:\n")
	b.WriteString(session.Registry().Description())
	return b.String()
}

// turnFormat constrains replies to the stage object. The tool enum is the
// session's registry, so absent tools cannot be named.
func turnFormat(session *Session) *llm.ResponseFormat {
	stages := make([]string, len(modelStages))
	for i, s := range modelStages {
		stages[i] = string(s)
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"stage":   map[string]any{"type": "string", "enum": stages},
			"content": map[string]any{"type": "string"},
			"tool":    map[string]any{"type": "string", "enum": session.ToolNames()},
			"args":    map[string]any{"type": "object"},
		},
		"required": []string{"stage"},
	}
	raw, _ := json.Marshal(schema)
	return llm.NewJSONSchemaFormat(turnSchemaName, "One stage of the document agent", raw)
}

func correction(err error) string {
	return fmt.Sprintf("Your last reply could not be used: %v. Reply again with exactly one JSON object, for example "+
		`{"stage": "reasoning", "content": "..."}`+".", err)
}

func toolResultMessage(tool string, result string) string {
	return fmt.Sprintf("Tool result for %s:\n%s", tool, result)
}

const continueMessage = "Continue with the next stage."
