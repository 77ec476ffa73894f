package vds

import (
	"strconv"
	"strings"
)

// NameTemplate is a source file or dataset name that may contain "%b",
// replaced by the block index, and "%%", a literal percent sign.
type NameTemplate struct {
	raw       string
	text      string // unescaped name when there are no substitutions
	segments  []nameSegment
	staticLen int
	subs      int
}

// nameSegment is literal text, optionally followed by the block index.
type nameSegment struct {
	literal    string
	substitute bool
}

// ParseNameTemplate parses a source name.
func ParseNameTemplate(text string) (*NameTemplate, error) {
	t := &NameTemplate{raw: text, text: text}
	var lit strings.Builder
	escapes := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '%' {
			lit.WriteByte(text[i])
			continue
		}
		if i+1 == len(text) {
			return nil, validationErr("parse name template", "invalid format specifier: trailing %% in %q", text)
		}
		i++
		switch text[i] {
		case 'b':
			t.segments = append(t.segments, nameSegment{literal: lit.String(), substitute: true})
			lit.Reset()
			t.subs++
		case '%':
			lit.WriteByte('%')
			escapes++
		default:
			return nil, validationErr("parse name template", "invalid format specifier %%%c in %q", text[i], text)
		}
	}
	if t.subs == 0 {
		// Only "%%" escapes; the name is the unescaped text.
		if escapes > 0 {
			t.text = lit.String()
		}
		t.segments = nil
		t.staticLen = len(t.text)
		return t, nil
	}
	if lit.Len() > 0 {
		t.segments = append(t.segments, nameSegment{literal: lit.String()})
	}
	t.staticLen = len(text) - 2*t.subs - escapes
	return t, nil
}

// Substitutions returns the number of "%b" tokens.
func (t *NameTemplate) Substitutions() int { return t.subs }

// String returns the name as written.
func (t *NameTemplate) String() string { return t.raw }

// Build returns the name of block index.
func (t *NameTemplate) Build(index uint64) string {
	if t.subs == 0 {
		return t.text
	}
	var digits [20]byte
	num := strconv.AppendUint(digits[:0], index, 10)

	var sb strings.Builder
	sb.Grow(t.staticLen + t.subs*len(num))
	for _, seg := range t.segments {
		sb.WriteString(seg.literal)
		if seg.substitute {
			sb.Write(num)
		}
	}
	return sb.String()
}
