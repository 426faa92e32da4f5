package schema

import (
	"encoding/json"
	"fmt"
)

// CollectionConfig is the col.conf blob.
type CollectionConfig struct {
	NextPos       int     `json:"nextPos"`
	EstTimes      bool    `json:"estTimes"`
	ActiveDecks   []int64 `json:"activeDecks"`
	SortType      string  `json:"sortType"`
	TimeLim       int     `json:"timeLim"`
	SortBackwards bool    `json:"sortBackwards"`
	AddToCur      bool    `json:"addToCur"`
	CurDeck       int64   `json:"curDeck"`
	NewSpread     int     `json:"newSpread"`
	DueCounts     bool    `json:"dueCounts"`
	CurModel      int64   `json:"curModel"`
	CollapseTime  int     `json:"collapseTime"`
}

// Model is a note type: its fields, card templates and stylesheet.
type Model struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Type      int           `json:"type"`
	Mod       int64         `json:"mod"`
	USN       int           `json:"usn"`
	SortF     int           `json:"sortf"`
	DeckID    int64         `json:"did"`
	Templates []Template    `json:"tmpls"`
	Fields    []Field       `json:"flds"`
	CSS       string        `json:"css"`
	LatexPre  string        `json:"latexPre"`
	LatexPost string        `json:"latexPost"`
	LatexSVG  bool          `json:"latexsvg"`
	Req       []Requirement `json:"req"`
	Vers      []any         `json:"vers"`
	Tags      []string      `json:"tags"`
}

// Template renders one card from a note.
type Template struct {
	Name   string `json:"name"`
	Ord    int    `json:"ord"`
	QFmt   string `json:"qfmt"`
	AFmt   string `json:"afmt"`
	BQFmt  string `json:"bqfmt"`
	BAFmt  string `json:"bafmt"`
	DeckID *int64 `json:"did"`
	BFont  string `json:"bfont"`
	BSize  int    `json:"bsize"`
}

// Field describes one note field.
type Field struct {
	Name        string `json:"name"`
	Ord         int    `json:"ord"`
	Sticky      bool   `json:"sticky"`
	RTL         bool   `json:"rtl"`
	Font        string `json:"font"`
	Size        int    `json:"size"`
	Description string `json:"description"`
}

// Requirement states which fields must be non-empty for a template to
// produce a card. It is stored as a [ord, kind, [fields...]] tuple.
type Requirement struct {
	Ord    int
	Kind   string
	Fields []int
}

// MarshalJSON encodes the requirement as a tuple.
func (r Requirement) MarshalJSON() ([]byte, error) {
	fields := r.Fields
	if fields == nil {
		fields = []int{}
	}
	return json.Marshal([]any{r.Ord, r.Kind, fields})
}

// UnmarshalJSON decodes the tuple form.
func (r *Requirement) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 3 {
		return fmt.Errorf("requirement has %d elements, want 3", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &r.Ord); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[1], &r.Kind); err != nil {
		return err
	}
	return json.Unmarshal(tuple[2], &r.Fields)
}

// Deck is one entry of the col.decks blob.
type Deck struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Mod              int64  `json:"mod"`
	USN              int    `json:"usn"`
	LrnToday         [2]int `json:"lrnToday"`
	RevToday         [2]int `json:"revToday"`
	NewToday         [2]int `json:"newToday"`
	TimeToday        [2]int `json:"timeToday"`
	Collapsed        bool   `json:"collapsed"`
	BrowserCollapsed bool   `json:"browserCollapsed"`
	Desc             string `json:"desc"`
	Dyn              int    `json:"dyn"`
	Conf             int64  `json:"conf"`
	ExtendNew        int    `json:"extendNew"`
	ExtendRev        int    `json:"extendRev"`
}

// DeckOptions is one entry of the col.dconf blob.
type DeckOptions struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	New      NewCardOptions `json:"new"`
	Lapse    LapseOptions   `json:"lapse"`
	Rev      ReviewOptions  `json:"rev"`
	MaxTaken int            `json:"maxTaken"`
	Timer    int            `json:"timer"`
	Autoplay bool           `json:"autoplay"`
	ReplayQ  bool           `json:"replayq"`
	Mod      int64          `json:"mod"`
	USN      int            `json:"usn"`
}

// NewCardOptions configures how new cards are introduced.
type NewCardOptions struct {
	Delays        []float64 `json:"delays"`
	Ints          []int     `json:"ints"`
	InitialFactor int       `json:"initialFactor"`
	Separate      bool      `json:"separate"`
	Order         int       `json:"order"`
	PerDay        int       `json:"perDay"`
	Bury          bool      `json:"bury"`
}

// LapseOptions configures relearning after a failed review.
type LapseOptions struct {
	Delays      []float64 `json:"delays"`
	Mult        float64   `json:"mult"`
	MinInt      int       `json:"minInt"`
	LeechFails  int       `json:"leechFails"`
	LeechAction int       `json:"leechAction"`
}

// ReviewOptions configures reviews of mature cards.
type ReviewOptions struct {
	PerDay     int     `json:"perDay"`
	Ease4      float64 `json:"ease4"`
	Fuzz       float64 `json:"fuzz"`
	MinSpace   int     `json:"minSpace"`
	IvlFct     float64 `json:"ivlFct"`
	MaxIvl     int     `json:"maxIvl"`
	Bury       bool    `json:"bury"`
	HardFactor float64 `json:"hardFactor"`
}
