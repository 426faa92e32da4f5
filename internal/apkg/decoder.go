package apkg

import (
	"context"
	"fmt"
	"strings"

	"github.com/conorfennell/decksmith/internal/domain"
	"github.com/conorfennell/decksmith/internal/fieldtext"
	"github.com/conorfennell/decksmith/internal/schema"
	"github.com/conorfennell/decksmith/internal/storage"
)

// FallbackDeckName names decks whose name cannot be resolved.
const FallbackDeckName = "Imported Deck"

// NotePolicy decides which decoded notes become flashcards.
type NotePolicy int

const (
	// RequireBothSides keeps a note only when front and back are both
	// non-empty after normalization.
	RequireBothSides NotePolicy = iota
	// RequireEitherSide keeps a note when at least one side is non-empty.
	RequireEitherSide
)

// ParseNotePolicy maps "both" and "either" to a NotePolicy.
func ParseNotePolicy(s string) (NotePolicy, error) {
	switch strings.ToLower(s) {
	case "", "both":
		return RequireBothSides, nil
	case "either":
		return RequireEitherSide, nil
	}
	return RequireBothSides, fmt.Errorf("unknown note policy %q", s)
}

func (p NotePolicy) String() string {
	if p == RequireEitherSide {
		return "either"
	}
	return "both"
}

func (p NotePolicy) keep(front, back string) bool {
	if p == RequireEitherSide {
		return front != "" || back != ""
	}
	return front != "" && back != ""
}

// Decoder reads packages. The zero value requires both sides of a note.
type Decoder struct {
	Policy NotePolicy
}

// Import reads the deck name and flashcards of a package.
func Import(ctx context.Context, data []byte) (string, []domain.Flashcard, error) {
	deck, err := Decoder{}.Decode(ctx, data)
	if err != nil {
		return "", nil, err
	}
	return deck.Name, deck.Cards, nil
}

// Decode reads the deck name and flashcards of a package.
func (d Decoder) Decode(ctx context.Context, data []byte) (domain.Deck, error) {
	collection, err := readCollection(data)
	if err != nil {
		return domain.Deck{}, err
	}
	return d.DecodeCollection(ctx, collection)
}

// DecodeCollection reads a collection database already taken out of its package.
func (d Decoder) DecodeCollection(ctx context.Context, collection []byte) (domain.Deck, error) {
	db, err := storage.Load(ctx, collection)
	if err != nil {
		return domain.Deck{}, fmt.Errorf("%w: %v", ErrNoCollectionData, err)
	}
	defer db.Close()

	name := resolveDeckName(ctx, db)

	rows, err := db.NoteFields(ctx)
	if err != nil {
		return domain.Deck{}, fmt.Errorf("%w: %v", ErrNoCollectionData, err)
	}

	var cards []domain.Flashcard
	for _, flds := range rows {
		fields := fieldtext.SplitFields(flds)
		if len(fields) < 2 {
			continue
		}
		front := fieldtext.Normalize(fields[0])
		back := fieldtext.Normalize(fields[1])
		if !d.Policy.keep(front, back) {
			continue
		}
		cards = append(cards, domain.Flashcard{Front: front, Back: back})
	}
	if len(cards) == 0 {
		return domain.Deck{}, ErrNoCardsFound
	}

	return domain.Deck{Name: name, Cards: cards}, nil
}

// deckNameResolver returns a usable deck name, or "" when it has none.
type deckNameResolver func(ctx context.Context, db *storage.DB) string

// deckNameResolvers are tried in order; the first non-empty name wins.
var deckNameResolvers = []deckNameResolver{
	deckNameFromTable,
	deckNameFromCollection,
}

func resolveDeckName(ctx context.Context, db *storage.DB) string {
	for _, resolve := range deckNameResolvers {
		if name := resolve(ctx, db); name != "" {
			return name
		}
	}
	return FallbackDeckName
}

// deckNameFromTable reads the decks table of current-layout collections.
func deckNameFromTable(ctx context.Context, db *storage.DB) string {
	names, err := db.DeckTableNames(ctx)
	if err != nil {
		return ""
	}
	for _, name := range names {
		if name != "" && name != schema.DefaultDeckName {
			return name
		}
	}
	return ""
}

// deckNameFromCollection reads the col.decks blob of legacy collections.
func deckNameFromCollection(ctx context.Context, db *storage.DB) string {
	blob, err := db.CollectionDecks(ctx)
	if err != nil {
		return ""
	}
	decks, err := schema.ParseDecks(blob)
	if err != nil {
		return ""
	}

	defaultID := fmt.Sprint(schema.DefaultDeckID)
	var defaultName string
	for _, d := range decks {
		if d.ID == defaultID {
			defaultName = d.Name
			continue
		}
		if d.Name != "" {
			return d.Name
		}
	}
	if defaultName != schema.DefaultDeckName {
		return defaultName
	}
	return ""
}
