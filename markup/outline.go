package markup

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Heading is one entry of a document outline. Offset is a rune offset.
type Heading struct {
	Level  int    `json:"level"`
	Text   string `json:"text"`
	Offset int    `json:"offset"`
}

var headingTarget = regexp.MustCompile(`(?i)^\s*<h([1-6])\b`)

// HeadingLevel returns the level of a heading tag at the start of target.
func HeadingLevel(target string) (int, bool) {
	m := headingTarget.FindStringSubmatch(target)
	if m == nil {
		return 0, false
	}
	return int(m[1][0] - '0'), true
}

// Outline lists the headings of content in document order. Lines starting
// with '#' count one level per leading marker; <h1>..<h6> tags use their tag
// level.
func Outline(content string) []Heading {
	headings := append(markerHeadings(content), tagHeadings(content)...)
	sort.SliceStable(headings, func(i, j int) bool {
		return headings[i].Offset < headings[j].Offset
	})
	return headings
}

// SectionEnd returns the rune offset of the first heading tag at or after
// `after` whose level is <= level, or the content length when there is none.
func SectionEnd(content string, after, level int) int {
	for _, h := range tagHeadings(content) {
		if h.Offset >= after && h.Level <= level {
			return h.Offset
		}
	}
	return Length(content)
}

func markerHeadings(content string) []Heading {
	var headings []Heading
	offset := 0
	for _, line := range strings.SplitAfter(content, "\n") {
		if strings.HasPrefix(line, "#") {
			level := len(line) - len(strings.TrimLeft(line, "#"))
			headings = append(headings, Heading{
				Level:  level,
				Text:   strings.TrimSpace(strings.TrimLeft(line, "#")),
				Offset: RuneOffset(content, offset),
			})
		}
		offset += len(line)
	}
	return headings
}

func tagHeadings(content string) []Heading {
	var headings []Heading
	var current *Heading
	var text strings.Builder

	z := html.NewTokenizer(strings.NewReader(content))
	pos := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		start := pos
		pos += len(z.Raw())

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			if level := tagLevel(name); level > 0 {
				current = &Heading{Level: level, Offset: RuneOffset(content, start)}
				text.Reset()
			}
		case html.TextToken:
			if current != nil {
				text.Write(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if current != nil && tagLevel(name) == current.Level {
				current.Text = strings.TrimSpace(text.String())
				headings = append(headings, *current)
				current = nil
			}
		}
	}
	return headings
}

func tagLevel(name []byte) int {
	if len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6' {
		return int(name[1] - '0')
	}
	return 0
}
