package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// DefaultDeckID is the id of the deck every collection carries.
	DefaultDeckID int64 = 1
	// DefaultDeckName is the name of that deck.
	DefaultDeckName = "Default"
	// DefaultOptionsID is the id of the single deck options group.
	DefaultOptionsID int64 = 1
	// Version is the collection schema version written to col.ver.
	Version = 11
)

const (
	questionFormat = "{{Front}}"
	answerFormat   = `{{FrontSide}}<hr id="answer">{{Back}}`

	stylesheet = `.card {
  font-family: arial;
  font-size: 20px;
  text-align: center;
  color: black;
  background-color: white;
}`

	latexPre  = "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n\\setlength{\\parindent}{0in}\n\\begin{document}\n"
	latexPost = "\\end{document}"
)

// Params are the inputs of a fresh collection.
type Params struct {
	DeckID      int64
	ModelID     int64
	DeckName    string
	Description string
	Now         time.Time
}

// Metadata holds the typed records stored as JSON in the col row.
type Metadata struct {
	Config      CollectionConfig
	Models      map[int64]Model
	Decks       map[int64]Deck
	DeckOptions map[int64]DeckOptions
}

// Blobs are the serialized forms of Metadata, one per col column.
type Blobs struct {
	Conf   string
	Models string
	Decks  string
	DConf  string
}

// Build returns the metadata of a collection holding one basic model and one
// deck besides the default deck.
func Build(p Params) Metadata {
	mod := p.Now.Unix()

	model := Model{
		ID:     p.ModelID,
		Name:   "Basic",
		Type:   0,
		Mod:    mod,
		USN:    -1,
		SortF:  0,
		DeckID: p.DeckID,
		Templates: []Template{{
			Name: "Card 1",
			Ord:  0,
			QFmt: questionFormat,
			AFmt: answerFormat,
		}},
		Fields: []Field{
			basicField("Front", 0),
			basicField("Back", 1),
		},
		CSS:       stylesheet,
		LatexPre:  latexPre,
		LatexPost: latexPost,
		Req:       []Requirement{{Ord: 0, Kind: "any", Fields: []int{0}}},
		Vers:      []any{},
		Tags:      []string{},
	}

	return Metadata{
		Config: CollectionConfig{
			NextPos:      1,
			EstTimes:     true,
			ActiveDecks:  []int64{DefaultDeckID},
			SortType:     "noteFld",
			AddToCur:     true,
			CurDeck:      p.DeckID,
			DueCounts:    true,
			CurModel:     p.ModelID,
			CollapseTime: 1200,
		},
		Models: map[int64]Model{p.ModelID: model},
		Decks: map[int64]Deck{
			DefaultDeckID: newDeck(DefaultDeckID, DefaultDeckName, "", mod),
			p.DeckID:      newDeck(p.DeckID, p.DeckName, p.Description, mod),
		},
		DeckOptions: map[int64]DeckOptions{DefaultOptionsID: defaultOptions()},
	}
}

// Blobs serializes the metadata into the JSON text stored in col.
func (m Metadata) Blobs() (Blobs, error) {
	var b Blobs
	var err error
	if b.Conf, err = marshal(m.Config); err != nil {
		return Blobs{}, fmt.Errorf("failed to encode conf: %w", err)
	}
	if b.Models, err = marshal(m.Models); err != nil {
		return Blobs{}, fmt.Errorf("failed to encode models: %w", err)
	}
	if b.Decks, err = marshal(m.Decks); err != nil {
		return Blobs{}, fmt.Errorf("failed to encode decks: %w", err)
	}
	if b.DConf, err = marshal(m.DeckOptions); err != nil {
		return Blobs{}, fmt.Errorf("failed to encode dconf: %w", err)
	}
	return b, nil
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func basicField(name string, ord int) Field {
	return Field{Name: name, Ord: ord, Font: "Arial", Size: 20}
}

func newDeck(id int64, name, desc string, mod int64) Deck {
	return Deck{
		ID:   id,
		Name: name,
		Mod:  mod,
		USN:  -1,
		Desc: desc,
		Conf: DefaultOptionsID,
	}
}

func defaultOptions() DeckOptions {
	return DeckOptions{
		ID:   DefaultOptionsID,
		Name: DefaultDeckName,
		New: NewCardOptions{
			Delays:        []float64{1, 10},
			Ints:          []int{1, 4, 0},
			InitialFactor: 2500,
			Separate:      true,
			Order:         1,
			PerDay:        20,
		},
		Lapse: LapseOptions{
			Delays:     []float64{10},
			Mult:       0,
			MinInt:     1,
			LeechFails: 8,
		},
		Rev: ReviewOptions{
			PerDay:     200,
			Ease4:      1.3,
			Fuzz:       0.05,
			MinSpace:   1,
			IvlFct:     1,
			MaxIvl:     36500,
			HardFactor: 1.2,
		},
		MaxTaken: 60,
		Autoplay: true,
		ReplayQ:  true,
		USN:      -1,
	}
}
