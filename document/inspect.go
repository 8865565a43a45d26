package document

import (
	"context"
	"strings"
	"unicode"

	"github.com/kongjiyu/dotivra-sub004/markup"
	"github.com/kongjiyu/dotivra-sub004/storage"
)

const (
	previewRunes = 200
	contextRunes = 40
	maxMatches   = 10
)

// ScanResult summarizes the bound document.
type ScanResult struct {
	Lines      int              `json:"lines"`
	Words      int              `json:"words"`
	Characters int              `json:"characters"`
	Outline    []markup.Heading `json:"outline"`
	Preview    string           `json:"preview"`
}

// Match is one search hit. Offset is a rune offset into the searched field.
type Match struct {
	Offset  int    `json:"offset"`
	Text    string `json:"text"`
	Context string `json:"context"`
}

// SearchResult lists the first matches of a query plus the total count.
type SearchResult struct {
	Query   string  `json:"query"`
	Total   int     `json:"total"`
	Matches []Match `json:"matches"`
}

// Scan returns counts, the heading outline and a preview of the content.
// It never mutates the document.
func (e *Engine) Scan(ctx context.Context) (ScanResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, err := e.bound()
	if err != nil {
		return ScanResult{}, err
	}
	content, err := e.read(ctx, h, storage.FieldContent)
	if err != nil {
		return ScanResult{}, err
	}

	result := ScanResult{
		Words:      len(strings.Fields(content)),
		Characters: markup.Length(content),
		Outline:    markup.Outline(content),
		Preview:    markup.Slice(content, 0, previewRunes),
	}
	if content != "" {
		result.Lines = strings.Count(content, "\n") + 1
	}
	if result.Outline == nil {
		result.Outline = []markup.Heading{}
	}

	e.logUsage(e.handle.ID, OpScan, storage.FieldContent, 0, 0, result.Characters)
	return result, nil
}

// Search finds case-insensitive occurrences of query in the content.
func (e *Engine) Search(ctx context.Context, query string) (SearchResult, error) {
	return e.searchField(ctx, OpSearch, storage.FieldContent, query)
}

// SearchSummary finds case-insensitive occurrences of query in the summary.
func (e *Engine) SearchSummary(ctx context.Context, query string) (SearchResult, error) {
	return e.searchField(ctx, OpSearchSummary, storage.FieldSummary, query)
}

func (e *Engine) searchField(ctx context.Context, op, field, query string) (SearchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, err := e.bound()
	if err != nil {
		return SearchResult{}, err
	}
	if query == "" {
		return SearchResult{}, invalid(op, "query is required")
	}
	text, err := e.read(ctx, h, field)
	if err != nil {
		return SearchResult{}, err
	}

	result := search(text, query)
	e.logUsage(e.handle.ID, op, field, 0, 0, markup.Length(text))
	return result, nil
}

// search scans text one rune at a time so overlapping matches are all
// counted.
func search(text, query string) SearchResult {
	result := SearchResult{Query: query, Matches: []Match{}}

	orig := []rune(text)
	hay := lowerRunes(orig)
	needle := lowerRunes([]rune(query))

	for i := 0; i+len(needle) <= len(hay); i++ {
		if !equalRunes(hay[i:i+len(needle)], needle) {
			continue
		}
		result.Total++
		if len(result.Matches) < maxMatches {
			from := max(0, i-contextRunes)
			to := min(len(orig), i+len(needle)+contextRunes)
			result.Matches = append(result.Matches, Match{
				Offset:  i,
				Text:    string(orig[i : i+len(needle)]),
				Context: string(orig[from:to]),
			})
		}
	}
	return result
}

// lowerRunes folds case rune by rune so offsets stay aligned with the input.
func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
