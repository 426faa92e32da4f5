package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/decksmith/internal/domain"
)

// section is a labelled block of a card.
type section int

const (
	seeking section = iota
	readingFront
	readingBack
	readingExample
	readingTranslation
	readingNotes
)

// prefixes maps a line prefix to the section it opens.
var prefixes = []struct {
	prefix  string
	section section
}{
	{"Q:", readingFront},
	{"A:", readingBack},
	{"E:", readingExample},
	{"T:", readingTranslation},
	{"N:", readingNotes},
}

const separator = "---"

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Flashcard, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all cards.
//
// A card starts at a "Q:" line. "A:", "E:", "T:" and "N:" lines start its
// back, example, example translation and notes; lines without a prefix
// continue the current block. A "---" line or the next "Q:" ends the card.
// Cards without a question are dropped.
func Parse(r io.Reader) ([]domain.Flashcard, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Flashcard
	var current domain.Flashcard
	var block []string
	state := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch state {
		case readingFront:
			current.Front = content
		case readingBack:
			current.Back = content
		case readingExample:
			current.Example = content
		case readingTranslation:
			current.ExampleTranslation = content
		case readingNotes:
			current.Notes = content
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if current.Front != "" {
			cards = append(cards, current)
		}
		current = domain.Flashcard{}
		state = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == separator {
			finishCard()
			continue
		}

		next, content, ok := matchPrefix(line)
		if !ok {
			if state != seeking {
				block = append(block, line)
			}
			continue
		}

		if next == readingFront && state != seeking {
			finishCard() // A new question always starts a new card
		} else {
			flushBlock()
		}
		state = next
		block = append(block, content)
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

// matchPrefix reports the section a line opens and the text after its prefix.
func matchPrefix(line string) (section, string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(line, p.prefix) {
			return p.section, strings.TrimPrefix(line[len(p.prefix):], " "), true
		}
	}
	return seeking, "", false
}
