// Package markup implements the small inline markup used in bot replies:
// text between double asterisks is emphasized and newlines are line breaks.
// Nothing else is interpreted.
package markup

import (
	"html"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentBold
	SegmentLineBreak
)

type Segment struct {
	Kind SegmentKind
	Text string
}

const marker = "**"

// Parse splits text into segments. A marker without a closing partner on the
// same line, or enclosing nothing, is kept as literal text.
func Parse(text string) []Segment {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var out []Segment
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out = append(out, Segment{Kind: SegmentLineBreak})
		}
		out = appendLine(out, line)
	}
	return out
}

func appendLine(out []Segment, line string) []Segment {
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			out = appendText(out, literal.String())
			literal.Reset()
		}
	}

	rest := line
	for rest != "" {
		open := strings.Index(rest, marker)
		if open < 0 {
			literal.WriteString(rest)
			break
		}
		literal.WriteString(rest[:open])
		after := rest[open+len(marker):]

		closing := strings.Index(after, marker)
		if closing <= 0 {
			literal.WriteString(marker)
			rest = after
			continue
		}

		flush()
		out = append(out, Segment{Kind: SegmentBold, Text: after[:closing]})
		rest = after[closing+len(marker):]
	}
	flush()
	return out
}

func appendText(out []Segment, s string) []Segment {
	if n := len(out); n > 0 && out[n-1].Kind == SegmentText {
		out[n-1].Text += s
		return out
	}
	return append(out, Segment{Kind: SegmentText, Text: s})
}

// HTML renders text with every character escaped; only <strong> and <br>
// elements are emitted.
func HTML(text string) string {
	var b strings.Builder
	for _, seg := range Parse(text) {
		switch seg.Kind {
		case SegmentText:
			b.WriteString(html.EscapeString(seg.Text))
		case SegmentBold:
			b.WriteString("<strong>")
			b.WriteString(html.EscapeString(seg.Text))
			b.WriteString("</strong>")
		case SegmentLineBreak:
			b.WriteString("<br>")
		}
	}
	return b.String()
}

// Terminal renders emphasized segments with bold and keeps line breaks.
func Terminal(text string, bold lipgloss.Style) string {
	var b strings.Builder
	for _, seg := range Parse(text) {
		switch seg.Kind {
		case SegmentText:
			b.WriteString(seg.Text)
		case SegmentBold:
			b.WriteString(bold.Render(seg.Text))
		case SegmentLineBreak:
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Strip removes the emphasis markers, e.g. for copying a reply as plain text.
func Strip(text string) string {
	var b strings.Builder
	for _, seg := range Parse(text) {
		switch seg.Kind {
		case SegmentText, SegmentBold:
			b.WriteString(seg.Text)
		case SegmentLineBreak:
			b.WriteString("\n")
		}
	}
	return b.String()
}
