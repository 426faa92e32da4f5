package apkg

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/conorfennell/decksmith/internal/domain"
	"github.com/conorfennell/decksmith/internal/fieldtext"
	"github.com/conorfennell/decksmith/internal/schema"
	"github.com/conorfennell/decksmith/internal/storage"
)

// Encoder writes packages. The zero value is not usable; use NewEncoder.
type Encoder struct {
	// IDs allocates deck, model, note and card ids.
	IDs IDSource
	// Clock supplies the collection and row timestamps.
	Clock func() time.Time
}

// NewEncoder returns an Encoder on the wall clock.
func NewEncoder() *Encoder {
	return &Encoder{
		IDs:   NewClockIDs(time.Now),
		Clock: time.Now,
	}
}

var defaultEncoder = NewEncoder()

// Export writes cards into a new package using a shared wall-clock encoder.
// Callers should drop cards without a front or back beforehand.
func Export(ctx context.Context, deckName, description string, cards []domain.Flashcard) ([]byte, error) {
	return defaultEncoder.Encode(ctx, deckName, description, cards)
}

// Encode writes cards into a new package.
func (e *Encoder) Encode(ctx context.Context, deckName, description string, cards []domain.Flashcard) ([]byte, error) {
	if len(cards) == 0 {
		return nil, ErrEmptyInput
	}

	n := len(cards)
	start, _ := e.IDs.NextBlock(2 + 2*n)
	deckID := start
	modelID := deckID + 1
	base := start + 2

	now := e.Clock()
	secs := now.Unix()

	blobs, err := schema.Build(schema.Params{
		DeckID:      deckID,
		ModelID:     modelID,
		DeckName:    deckName,
		Description: description,
		Now:         now,
	}).Blobs()
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := db.CreateTables(ctx); err != nil {
		return nil, err
	}
	err = db.InsertCollection(ctx, storage.Collection{
		ID:     1,
		Crt:    secs,
		Mod:    secs,
		Scm:    secs,
		Ver:    schema.Version,
		Conf:   blobs.Conf,
		Models: blobs.Models,
		Decks:  blobs.Decks,
		DConf:  blobs.DConf,
		Tags:   "{}",
	})
	if err != nil {
		return nil, err
	}

	notes := make([]domain.Note, 0, n)
	records := make([]domain.CardRecord, 0, n)
	for i, card := range cards {
		noteID := base + int64(i)
		front, back := fieldtext.Format(card)
		notes = append(notes, domain.Note{
			ID:        noteID,
			GUID:      "card_" + strconv.FormatInt(noteID, 10),
			ModelID:   modelID,
			Mod:       secs,
			USN:       -1,
			Fields:    []string{front, back},
			SortField: front,
			Checksum:  fieldtext.Checksum(front),
		})
		records = append(records, domain.CardRecord{
			ID:     base + int64(i) + int64(n),
			NoteID: noteID,
			DeckID: deckID,
			Mod:    secs,
			USN:    -1,
			Due:    int64(i) + 1,
		})
	}
	if err := db.InsertNotes(ctx, notes, records); err != nil {
		return nil, err
	}

	collection, err := db.Serialize()
	if err != nil {
		return nil, err
	}
	media, err := json.Marshal(map[string]string{})
	if err != nil {
		return nil, fmt.Errorf("failed to encode media manifest: %w", err)
	}

	return writeContainer(now,
		entry{name: LegacyCollectionName, data: collection},
		entry{name: MediaName, data: media},
	)
}
