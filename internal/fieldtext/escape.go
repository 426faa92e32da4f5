package fieldtext

import (
	"strings"

	"github.com/conorfennell/decksmith/internal/domain"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
	"\n", "<br>",
)

// Escape makes text safe to store in a note field.
func Escape(text string) string {
	return htmlEscaper.Replace(text)
}

// Format renders a flashcard into its front and back note fields.
// The example and its translation are appended to the back; a translation
// without an example is dropped.
func Format(card domain.Flashcard) (front, back string) {
	front = Escape(card.Front)

	var b strings.Builder
	b.WriteString(Escape(card.Back))
	if card.Example != "" {
		b.WriteString("<br><br><i>")
		b.WriteString(Escape(card.Example))
		b.WriteString("</i>")
		if card.ExampleTranslation != "" {
			b.WriteString("<br><small>")
			b.WriteString(Escape(card.ExampleTranslation))
			b.WriteString("</small>")
		}
	}
	return front, b.String()
}
