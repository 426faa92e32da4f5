package domain

// Flashcard is a single front/back entry as seen by callers of the codec.
// Example, ExampleTranslation and Notes are empty when absent.
type Flashcard struct {
	Front              string `json:"front" validate:"required"`
	Back               string `json:"back" validate:"required"`
	Example            string `json:"example,omitempty"`
	ExampleTranslation string `json:"exampleTranslation,omitempty"`
	Notes              string `json:"notes,omitempty"`
}

// Deck is a named list of flashcards.
type Deck struct {
	Name        string      `json:"deckName"`
	Description string      `json:"description,omitempty"`
	Cards       []Flashcard `json:"cards"`
}

// Note is the content record stored in a package's notes table.
// Fields are joined with the unit separator when written.
type Note struct {
	ID        int64
	GUID      string
	ModelID   int64
	Mod       int64
	USN       int
	Tags      string
	Fields    []string
	SortField string
	Checksum  uint32
}

// CardRecord is a scheduling row derived from a Note. Scheduling columns are
// always written with the values of a brand new card:
// Type 0 (new), Queue 0, no interval, factor, reps or lapses.
type CardRecord struct {
	ID     int64
	NoteID int64
	DeckID int64
	Ord    int
	Mod    int64
	USN    int
	Type   int
	Queue  int
	Due    int64
	Ivl    int
	Factor int
	Reps   int
	Lapses int
	Left   int
	ODue   int64
	ODid   int64
	Flags  int
	Data   string
}
