package tools

import (
	"context"
	"fmt"

	"github.com/kongjiyu/dotivra-sub004/document"
)

// Document tool names.
const (
	ScanDocument     = "scan_document"
	SearchDocument   = "search_document"
	AppendContent    = "append_content"
	InsertContent    = "insert_content"
	InsertAtLocation = "insert_at_location"
	ReplaceContent   = "replace_content"
	RemoveContent    = "remove_content"
	UndoLastEdit     = "undo_last_edit"
	AppendSummary    = "append_summary"
	InsertSummary    = "insert_summary"
	ReplaceSummary   = "replace_summary"
	RemoveSummary    = "remove_summary"
	SearchSummary    = "search_summary"
)

// NoArgs is the argument struct of tools that take no parameters.
type NoArgs struct{}

// SearchArgs are the arguments for search_document and search_summary.
type SearchArgs struct {
	Query string `json:"query"`
}

// ContentArgs are the arguments for append_content and append_summary.
type ContentArgs struct {
	Content string `json:"content"`
}

// InsertArgs are the arguments for insert_content and insert_summary.
type InsertArgs struct {
	Position Offset `json:"position"`
	Content  string `json:"content"`
}

// LocationArgs are the arguments for insert_at_location.
type LocationArgs struct {
	Target   string `json:"target"`
	Position string `json:"position"`
	Content  string `json:"content"`
}

// ReplaceArgs are the arguments for replace_content and replace_summary.
type ReplaceArgs struct {
	From    Offset `json:"from"`
	To      Offset `json:"to"`
	Content string `json:"content"`
}

// RangeArgs are the arguments for remove_content and remove_summary.
type RangeArgs struct {
	From Offset `json:"from"`
	To   Offset `json:"to"`
}

var (
	contentParam = Parameter{Name: "content", Type: "string", Description: "Text to write; markdown is converted to markup, existing markup is kept", Required: true}
	fromParam    = Parameter{Name: "from", Type: "integer", Description: "Start character offset (inclusive)", Required: true}
	toParam      = Parameter{Name: "to", Type: "integer", Description: "End character offset (exclusive)", Required: true}
)

func checkSearch(a *SearchArgs) error { return requireString("query", a.Query) }

func checkContent(a *ContentArgs) error { return requireString("content", a.Content) }

func checkInsert(a *InsertArgs) error {
	if err := requireOffset("position", a.Position); err != nil {
		return err
	}
	if a.Position.Value < 0 {
		return fmt.Errorf("position must not be negative")
	}
	return requireString("content", a.Content)
}

func checkLocation(a *LocationArgs) error {
	if err := requireString("target", a.Target); err != nil {
		return err
	}
	switch document.Placement(a.Position) {
	case document.Before, document.After:
	default:
		return fmt.Errorf("position must be %q or %q", document.Before, document.After)
	}
	return requireString("content", a.Content)
}

func checkReplace(a *ReplaceArgs) error {
	if err := requireOffset("from", a.From); err != nil {
		return err
	}
	if err := requireOffset("to", a.To); err != nil {
		return err
	}
	return requireString("content", a.Content)
}

func checkRange(a *RangeArgs) error {
	if err := requireOffset("from", a.From); err != nil {
		return err
	}
	return requireOffset("to", a.To)
}

// DocumentTools returns the content and summary tools bound to engine.
func DocumentTools(engine *document.Engine) []Tool {
	return []Tool{
		newTool(Metadata{
			Name:        ScanDocument,
			Description: "Summarize the active document: line, word and character counts, heading outline with offsets, and a short preview. Read-only.",
		}, nil, func(ctx context.Context, _ NoArgs) (any, error) {
			return engine.Scan(ctx)
		}),

		newTool(Metadata{
			Name:        SearchDocument,
			Description: "Case-insensitive search of the document content. Returns up to 10 matches with offsets and surrounding context, plus the total count.",
			Parameters:  []Parameter{{Name: "query", Type: "string", Description: "Text to find", Required: true}},
		}, checkSearch, func(ctx context.Context, a SearchArgs) (any, error) {
			return engine.Search(ctx, a.Query)
		}),

		newTool(Metadata{
			Name:        AppendContent,
			Description: "Append content to the end of the document.",
			Parameters:  []Parameter{contentParam},
		}, checkContent, func(ctx context.Context, a ContentArgs) (any, error) {
			return engine.Append(ctx, a.Content)
		}),

		newTool(Metadata{
			Name:        InsertContent,
			Description: "Insert content at a character offset. Offsets past the end of the document are rejected.",
			Parameters: []Parameter{
				{Name: "position", Type: "integer", Description: "Character offset to insert at", Required: true},
				contentParam,
			},
		}, checkInsert, func(ctx context.Context, a InsertArgs) (any, error) {
			return engine.Insert(ctx, a.Position.Value, a.Content)
		}),

		newTool(Metadata{
			Name:        InsertAtLocation,
			Description: "Insert content before or after the first exact occurrence of target. After a heading tag, content goes to the end of that heading's section.",
			Parameters: []Parameter{
				{Name: "target", Type: "string", Description: "Exact text to locate, e.g. '<h2>Setup</h2>'", Required: true},
				{Name: "position", Type: "string", Description: "Which side of the target to insert on", Required: true, Enum: []string{string(document.Before), string(document.After)}},
				contentParam,
			},
		}, checkLocation, func(ctx context.Context, a LocationArgs) (any, error) {
			return engine.InsertAtLocation(ctx, a.Target, document.Placement(a.Position), a.Content)
		}),

		newTool(Metadata{
			Name:        ReplaceContent,
			Description: "Replace the character range [from, to) with content. Returns the removed text.",
			Parameters:  []Parameter{fromParam, toParam, contentParam},
		}, checkReplace, func(ctx context.Context, a ReplaceArgs) (any, error) {
			return engine.Replace(ctx, a.From.Value, a.To.Value, a.Content)
		}),

		newTool(Metadata{
			Name:        RemoveContent,
			Description: "Remove the character range [from, to). Returns the removed text.",
			Parameters:  []Parameter{fromParam, toParam},
		}, checkRange, func(ctx context.Context, a RangeArgs) (any, error) {
			return engine.Remove(ctx, a.From.Value, a.To.Value)
		}),

		newTool(Metadata{
			Name:        UndoLastEdit,
			Description: "Revert the most recent content edit of the active document.",
		}, nil, func(ctx context.Context, _ NoArgs) (any, error) {
			return engine.Undo(ctx)
		}),

		newTool(Metadata{
			Name:        AppendSummary,
			Description: "Append text to the document summary.",
			Parameters:  []Parameter{contentParam},
		}, checkContent, func(ctx context.Context, a ContentArgs) (any, error) {
			return engine.AppendSummary(ctx, a.Content)
		}),

		newTool(Metadata{
			Name:        InsertSummary,
			Description: "Insert text into the document summary at a character offset.",
			Parameters: []Parameter{
				{Name: "position", Type: "integer", Description: "Character offset in the summary", Required: true},
				contentParam,
			},
		}, checkInsert, func(ctx context.Context, a InsertArgs) (any, error) {
			return engine.InsertSummary(ctx, a.Position.Value, a.Content)
		}),

		newTool(Metadata{
			Name:        ReplaceSummary,
			Description: "Replace the summary range [from, to) with content.",
			Parameters:  []Parameter{fromParam, toParam, contentParam},
		}, checkReplace, func(ctx context.Context, a ReplaceArgs) (any, error) {
			return engine.ReplaceSummary(ctx, a.From.Value, a.To.Value, a.Content)
		}),

		newTool(Metadata{
			Name:        RemoveSummary,
			Description: "Remove the summary range [from, to).",
			Parameters:  []Parameter{fromParam, toParam},
		}, checkRange, func(ctx context.Context, a RangeArgs) (any, error) {
			return engine.RemoveSummary(ctx, a.From.Value, a.To.Value)
		}),

		newTool(Metadata{
			Name:        SearchSummary,
			Description: "Case-insensitive search of the document summary.",
			Parameters:  []Parameter{{Name: "query", Type: "string", Description: "Text to find", Required: true}},
		}, checkSearch, func(ctx context.Context, a SearchArgs) (any, error) {
			return engine.SearchSummary(ctx, a.Query)
		}),
	}
}
