package markup

import (
	"strings"
	"testing"
)

func TestClampRangeOrdering(t *testing.T) {
	for length := 0; length <= 6; length++ {
		for from := -3; from <= 9; from++ {
			for to := -3; to <= 9; to++ {
				r := ClampRange(from, to, length)
				if r.From < 0 || r.From > r.To || r.To > length {
					t.Fatalf("ClampRange(%d, %d, %d) = %+v violates 0 <= from <= to <= len", from, to, length, r)
				}
			}
		}
	}
}

func TestClampRangeInvertedDegradesToEmpty(t *testing.T) {
	r := ClampRange(8, 2, 10)
	if r.From != 8 || r.To != 8 {
		t.Errorf("expected {8 8}, got %+v", r)
	}
	if r.Len() != 0 {
		t.Errorf("expected zero length, got %d", r.Len())
	}
}

func TestSpliceUsesRuneOffsets(t *testing.T) {
	got, removed := Splice("héllo wörld", 6, 11, "there")
	if got != "héllo there" {
		t.Errorf("expected 'héllo there', got %q", got)
	}
	if removed != "wörld" {
		t.Errorf("expected removed 'wörld', got %q", removed)
	}
}

func TestOffsetConversionRoundTrip(t *testing.T) {
	s := "aé😀b"
	for i := 0; i <= Length(s); i++ {
		if got := RuneOffset(s, ByteOffset(s, i)); got != i {
			t.Errorf("round trip of rune offset %d gave %d", i, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "blank", input: "   \n\t ", want: ""},
		{name: "markup kept", input: "<p>Hello</p>", want: "<p>Hello</p>"},
		{name: "plain text stays inline", input: "Hello", want: "Hello"},
		{name: "inline text keeps spacing", input: " there", want: " there"},
		{name: "plain text escaped", input: "a < b", want: "a &lt; b"},
		{name: "paragraphs", input: "one\n\ntwo", want: "<p>one</p>\n<p>two</p>"},
		{name: "markdown emphasis", input: "some **bold** text", want: "<p>some <strong>bold</strong> text</p>"},
		{name: "heading rule collapsed", input: "<h1>Title</h1><hr><br>", want: "<h1>Title</h1>"},
		{name: "markdown heading rule collapsed", input: "# Title\n\n---", want: "<h1>Title</h1>"},
		{name: "h2 rule kept", input: "<h2>Sub</h2><hr>", want: "<h2>Sub</h2><hr>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLooksLikeMarkup(t *testing.T) {
	if !LooksLikeMarkup("text <br/> more") {
		t.Error("expected <br/> to be detected")
	}
	if LooksLikeMarkup("a < b and c > d") {
		t.Error("comparison operators should not look like markup")
	}
}

func TestOutlineMarkersAndTags(t *testing.T) {
	content := "# Intro\ntext\n## Details\n<h3>Deep</h3>"
	outline := Outline(content)
	if len(outline) != 3 {
		t.Fatalf("expected 3 headings, got %d: %+v", len(outline), outline)
	}
	want := []Heading{
		{Level: 1, Text: "Intro", Offset: 0},
		{Level: 2, Text: "Details", Offset: 13},
		{Level: 3, Text: "Deep", Offset: 24},
	}
	for i, h := range want {
		if outline[i] != h {
			t.Errorf("heading %d = %+v, want %+v", i, outline[i], h)
		}
	}
}

func TestSectionEndSkipsNestedHeadings(t *testing.T) {
	content := "<h2>A</h2><p>a</p><h3>A.1</h3><p>x</p><h2>B</h2><p>b</p>"
	after := Length("<h2>A</h2>")
	end := SectionEnd(content, after, 2)
	want := strings.Index(content, "<h2>B</h2>")
	if end != want {
		t.Errorf("SectionEnd = %d, want %d", end, want)
	}
}

func TestSectionEndLastSection(t *testing.T) {
	content := "<h1>Top</h1><h2>Only</h2><p>body</p>"
	after := strings.Index(content, "<p>")
	if end := SectionEnd(content, after, 2); end != Length(content) {
		t.Errorf("expected end of content %d, got %d", Length(content), end)
	}
}

func TestHeadingLevel(t *testing.T) {
	if lvl, ok := HeadingLevel("<h2>Setup</h2>"); !ok || lvl != 2 {
		t.Errorf("expected level 2, got %d (ok=%v)", lvl, ok)
	}
	if _, ok := HeadingLevel("<p>Setup</p>"); ok {
		t.Error("paragraph should not be a heading")
	}
	if _, ok := HeadingLevel("<hr>"); ok {
		t.Error("<hr> should not be a heading")
	}
}
