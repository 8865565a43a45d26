// Package json provides JSON extraction utilities for parsing LLM responses.
//
// Models often wrap the structured payload in commentary or markdown fences.
// The extractor locates the first well-formed object span anywhere in the
// reply instead of requiring the whole reply to be JSON.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON returns the first well-formed JSON object in response.
//
// Order of attempts:
// 1. the whole response (after stripping a surrounding code fence)
// 2. every '{' in order, matched to its balancing '}' while skipping braces
//    inside string literals; the first span that parses wins
func extractJSON(response string) (string, error) {
	response = stripMarkdownCodeBlocks(response)

	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	for start := strings.IndexByte(response, '{'); start != -1; {
		if end := matchBrace(response, start); end != -1 {
			candidate := response[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
		next := strings.IndexByte(response[start+1:], '{')
		if next == -1 {
			break
		}
		start += next + 1
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("failed to extract valid JSON from response: %q", preview)
}

// matchBrace returns the index of the '}' balancing the '{' at start, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// stripMarkdownCodeBlocks removes a surrounding ```json ... ``` fence.
func stripMarkdownCodeBlocks(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, "```") {
		return response
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// ExtractJSONFromResponse extracts the first JSON object from an LLM response
// and unmarshals it into T.
func ExtractJSONFromResponse[T any](response string) (T, error) {
	var result T
	jsonStr, err := extractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// ExtractJSON extracts the raw JSON object text from a response string.
func ExtractJSON(response string) (string, error) {
	return extractJSON(response)
}
