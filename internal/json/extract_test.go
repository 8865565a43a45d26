package json

import (
	"strings"
	"testing"
)

type stagePayload struct {
	Stage   string `json:"stage"`
	Content string `json:"content"`
}

func TestPureJSON(t *testing.T) {
	result, err := ExtractJSONFromResponse[stagePayload](`{"stage": "planning", "content": "outline"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stage != "planning" {
		t.Errorf("expected stage 'planning', got '%s'", result.Stage)
	}
}

func TestJSONWithCommentary(t *testing.T) {
	response := `Sure! Here's my next step: {"stage": "reasoning", "content": "check headings"} Let me know.`
	result, err := ExtractJSONFromResponse[stagePayload](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "check headings" {
		t.Errorf("expected content 'check headings', got '%s'", result.Content)
	}
}

func TestFirstObjectWinsOverLaterOnes(t *testing.T) {
	response := `{"stage": "planning", "content": "a"} and later {"stage": "summary", "content": "b"}`
	result, err := ExtractJSONFromResponse[stagePayload](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stage != "planning" {
		t.Errorf("expected first object, got stage %q", result.Stage)
	}
}

func TestBracesInsideStrings(t *testing.T) {
	response := `prefix {"stage": "executing", "content": "use {braces} and \"quotes\""} suffix }`
	result, err := ExtractJSONFromResponse[stagePayload](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != `use {braces} and "quotes"` {
		t.Errorf("unexpected content %q", result.Content)
	}
}

func TestSkipsMalformedLeadingSpan(t *testing.T) {
	response := `{not json} then {"stage": "summary", "content": "done"}`
	result, err := ExtractJSONFromResponse[stagePayload](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stage != "summary" {
		t.Errorf("expected stage 'summary', got %q", result.Stage)
	}
}

func TestFencedJSON(t *testing.T) {
	response := "```json\n{\"stage\": \"planning\", \"content\": \"x\"}\n```"
	raw, err := ExtractJSON(response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(raw, "{") || !strings.HasSuffix(raw, "}") {
		t.Errorf("expected bare object, got %q", raw)
	}
}

func TestNoJSON(t *testing.T) {
	_, err := ExtractJSONFromResponse[stagePayload]("This is just plain text without any JSON.")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to extract valid JSON") {
		t.Errorf("expected 'failed to extract valid JSON' in error, got: %v", err)
	}
}

func TestUnbalancedJSON(t *testing.T) {
	if _, err := ExtractJSON(`{"stage": "planning", "content": `); err == nil {
		t.Fatal("expected error for unbalanced object")
	}
}
