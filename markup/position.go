// Package markup provides position arithmetic and content normalization for
// document edits.
//
// Information Hiding:
// - Rune/byte offset conversion hidden behind rune-addressed helpers
// - Range clamping rules hidden behind ClampRange
// - Markdown parsing and markup cleanup hidden behind Normalize

package markup

import "unicode/utf8"

// Range is a half-open span of rune offsets into a string.
// A clamped Range always satisfies 0 <= From <= To <= length.
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Len returns the number of runes covered by the range.
func (r Range) Len() int {
	return r.To - r.From
}

// Clamp limits v to [0, length].
func Clamp(v, length int) int {
	if v > length {
		v = length
	}
	if v < 0 {
		return 0
	}
	return v
}

// ClampRange clamps both ends to [0, length]. An inverted pair degrades to a
// zero-length range at from rather than failing.
func ClampRange(from, to, length int) Range {
	f := Clamp(from, length)
	t := Clamp(to, length)
	if t < f {
		t = f
	}
	return Range{From: f, To: t}
}

// Length returns the length of s in runes.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// ByteOffset converts a rune offset into a byte offset within s.
// Offsets past the end map to len(s).
func ByteOffset(s string, runeOffset int) int {
	if runeOffset <= 0 {
		return 0
	}
	n := 0
	for i := range s {
		if n == runeOffset {
			return i
		}
		n++
	}
	return len(s)
}

// RuneOffset converts a byte offset within s into a rune offset.
func RuneOffset(s string, byteOffset int) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset >= len(s) {
		return utf8.RuneCountInString(s)
	}
	return utf8.RuneCountInString(s[:byteOffset])
}

// Slice returns the runes of s in r. The range is clamped first.
func Slice(s string, from, to int) string {
	r := ClampRange(from, to, Length(s))
	return s[ByteOffset(s, r.From):ByteOffset(s, r.To)]
}

// Splice replaces the runes in [from, to) with insert and returns the new
// string together with the removed segment. The range is clamped first.
func Splice(s string, from, to int, insert string) (string, string) {
	r := ClampRange(from, to, Length(s))
	start := ByteOffset(s, r.From)
	end := ByteOffset(s, r.To)
	return s[:start] + insert + s[end:], s[start:end]
}
