package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DeckRef is the part of a col.decks entry needed to name a deck.
type DeckRef struct {
	ID   string
	Name string
}

// ParseDecks decodes a col.decks blob into its entries in document order.
// Entries that are not objects, or whose name is not a string, yield an
// empty Name instead of failing the whole blob.
func ParseDecks(blob string) ([]DeckRef, error) {
	dec := json.NewDecoder(strings.NewReader(blob))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read decks: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("decks is not a JSON object")
	}

	var refs []DeckRef
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read deck id: %w", err)
		}
		id, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to read deck %s: %w", id, err)
		}
		var entry struct {
			Name any `json:"name"`
		}
		ref := DeckRef{ID: id}
		if json.Unmarshal(raw, &entry) == nil {
			ref.Name, _ = entry.Name.(string)
		}
		refs = append(refs, ref)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read decks: %w", err)
	}
	return refs, nil
}
