package fieldtext

import (
	"regexp"
	"strings"
)

var (
	lineBreakTag  = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTag        = regexp.MustCompile(`<[^>]*>`)
	blankLineRuns = regexp.MustCompile(`\n{3,}`)
)

// entityDecoder decodes the only entities the format's producers emit.
// &amp; goes first, so "&amp;lt;" decodes to "<".
var entityDecoder = []struct{ entity, text string }{
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#039;", "'"},
	{"&nbsp;", " "},
}

// Normalize turns a stored note field back into plain text.
// Line-break tags become newlines, every other tag is dropped, the six
// known entities are decoded (anything else is left as is), runs of three or
// more newlines collapse to a blank line, and the result is trimmed.
func Normalize(html string) string {
	text := lineBreakTag.ReplaceAllString(html, "\n")
	text = anyTag.ReplaceAllString(text, "")
	for _, e := range entityDecoder {
		text = strings.ReplaceAll(text, e.entity, e.text)
	}
	text = blankLineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
