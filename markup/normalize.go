package markup

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	// tagProbe matches the first tag-like token: <p>, </h2>, <br/>, <a href="x">.
	tagProbe = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9-]*(\s[^<>]*)?/?>`)

	// headingRule matches a top-level heading followed by a divider and an
	// optional line break.
	headingRule = regexp.MustCompile(`(?is)(<h1\b[^>]*>.*?</h1>)\s*<hr\b[^>]*>\s*(?:<br\b[^>]*>)?`)

	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
)

// LooksLikeMarkup reports whether s already contains a tag-like token.
func LooksLikeMarkup(s string) bool {
	return tagProbe.MatchString(s)
}

// Normalize converts free-form input into markup suitable for the document.
// Input that already looks like markup is kept as-is; anything else is parsed
// as Markdown. Plain text that renders to a single unformatted paragraph is
// inline content and keeps its surrounding whitespace. Blank input normalizes
// to "".
func Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if LooksLikeMarkup(trimmed) {
		return strings.TrimSpace(CollapseHeadingRules(trimmed))
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(trimmed), &buf); err != nil {
		return trimmed
	}
	rendered := strings.TrimSpace(buf.String())

	if inner, ok := plainParagraph(rendered, trimmed); ok {
		lead := input[:strings.Index(input, trimmed)]
		trail := input[len(lead)+len(trimmed):]
		return lead + inner + trail
	}
	return strings.TrimSpace(CollapseHeadingRules(rendered))
}

// plainParagraph returns the escaped body of rendered when it is one <p>
// holding exactly the source text and nothing else.
func plainParagraph(rendered, source string) (string, bool) {
	if !strings.HasPrefix(rendered, "<p>") || !strings.HasSuffix(rendered, "</p>") {
		return "", false
	}
	inner := rendered[len("<p>") : len(rendered)-len("</p>")]
	if strings.Contains(inner, "<") || html.UnescapeString(inner) != source {
		return "", false
	}
	return inner, true
}

// CollapseHeadingRules merges "<h1>..</h1><hr><br>" into just the heading so
// repeated edits do not pile up separators.
func CollapseHeadingRules(s string) string {
	return headingRule.ReplaceAllString(s, "$1")
}
