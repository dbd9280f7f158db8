package notation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
)

// Document is the serialised form of an already-parsed score.
// It is what score files, the API and the TUI exchange.
type Document struct {
	Title string         `json:"title,omitempty" yaml:"title,omitempty"`
	Items []ItemDocument `json:"items" yaml:"items"`
}

// ItemDocument is one score item. Kind selects which fields apply:
// note, chord, bar, ending, key or tempo.
type ItemDocument struct {
	Kind string `json:"kind" yaml:"kind"`
	NoteDocument

	// chord
	Notes []NoteDocument `json:"notes,omitempty" yaml:"notes,omitempty"`
	// bar
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	// ending
	Endings []int `json:"endings,omitempty" yaml:"endings,omitempty"`
	// key
	Fifths      *int              `json:"fifths,omitempty" yaml:"fifths,omitempty"`
	Accidentals map[string]string `json:"accidentals,omitempty" yaml:"accidentals,omitempty"`
	// tempo
	BPM       float64 `json:"bpm,omitempty" yaml:"bpm,omitempty"`
	Reference int     `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// NoteDocument describes a note, a chord member or a grace note
type NoteDocument struct {
	ID         string         `json:"id,omitempty" yaml:"id,omitempty"`
	Pitch      string         `json:"pitch,omitempty" yaml:"pitch,omitempty"`
	Octave     int            `json:"octave,omitempty" yaml:"octave,omitempty"`
	Accidental string         `json:"accidental,omitempty" yaml:"accidental,omitempty"`
	Transpose  int            `json:"transpose,omitempty" yaml:"transpose,omitempty"`
	Duration   int            `json:"duration,omitempty" yaml:"duration,omitempty"`
	Rest       bool           `json:"rest,omitempty" yaml:"rest,omitempty"`
	Tie        string         `json:"tie,omitempty" yaml:"tie,omitempty"` // start, stop or both
	TiedTo     string         `json:"tiedTo,omitempty" yaml:"tiedTo,omitempty"`
	Grace      []NoteDocument `json:"grace,omitempty" yaml:"grace,omitempty"`
}

// ErrEmptyDocument is returned for documents without items
var ErrEmptyDocument = errors.New("score document has no items")

// DecodeJSON decodes a JSON score document
func DecodeJSON(data []byte) (*Score, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse score JSON: %w", err)
	}
	return doc.Score()
}

// DecodeYAML decodes a YAML score document
func DecodeYAML(data []byte) (*Score, error) {
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse score YAML: %w", err)
	}
	return DecodeJSON(js)
}

// IsScoreFile reports whether the file extension is a score document
func IsScoreFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadFile reads a score document, choosing the decoder by extension
func LoadFile(filename string) (*Score, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read score file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return DecodeJSON(data)
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return nil, fmt.Errorf("unsupported score file extension: %s", filepath.Ext(filename))
	}
}

// Score converts the document to a score
func (d *Document) Score() (*Score, error) {
	if len(d.Items) == 0 {
		return nil, ErrEmptyDocument
	}

	items := make([]Item, 0, len(d.Items))
	for i, doc := range d.Items {
		item, err := doc.item()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}
	linkTies(items)

	s := NewScore(items...)
	s.Title = d.Title
	return s, nil
}

func (d ItemDocument) item() (Item, error) {
	switch strings.ToLower(d.Kind) {
	case "note", "rest":
		if strings.EqualFold(d.Kind, "rest") {
			d.Rest = true
		}
		return d.NoteDocument.note(Quarter)

	case "chord":
		if len(d.Notes) == 0 {
			return nil, errors.New("chord without notes")
		}
		def := d.Duration
		if def <= 0 {
			def = Quarter
		}
		c := Chord{Notes: make([]Note, 0, len(d.Notes))}
		for _, nd := range d.Notes {
			n, err := nd.note(def)
			if err != nil {
				return nil, err
			}
			c.Notes = append(c.Notes, n)
		}
		return c, nil

	case "bar":
		t, err := ParseBarType(d.Type)
		if err != nil {
			return nil, err
		}
		return BarLine{Type: t}, nil

	case "ending":
		if len(d.Endings) == 0 {
			return nil, errors.New("ending without pass numbers")
		}
		for _, n := range d.Endings {
			if n < 1 {
				return nil, fmt.Errorf("invalid ending number %d", n)
			}
		}
		return RepeatBarLine{Endings: append([]int(nil), d.Endings...)}, nil

	case "key":
		if d.Fifths != nil {
			return KeyFromFifths(*d.Fifths)
		}
		accs := make(map[Letter]Accidental, len(d.Accidentals))
		for name, acc := range d.Accidentals {
			l, err := ParseLetter(name)
			if err != nil {
				return nil, err
			}
			a, err := ParseAccidental(acc)
			if err != nil {
				return nil, err
			}
			accs[l] = a
		}
		return NewKeySignature(accs), nil

	case "tempo":
		if d.BPM <= 0 {
			return nil, fmt.Errorf("invalid tempo %v", d.BPM)
		}
		return Tempo{BPM: d.BPM, Reference: d.Reference}, nil
	}
	return nil, fmt.Errorf("unknown item kind %q", d.Kind)
}

func (d NoteDocument) note(defaultDuration int) (Note, error) {
	n := Note{
		ID:        d.ID,
		Octave:    d.Octave,
		Transpose: d.Transpose,
		Duration:  d.Duration,
		Rest:      d.Rest,
		TiedTo:    d.TiedTo,
	}
	if n.Duration <= 0 {
		n.Duration = defaultDuration
	}

	if !n.Rest || d.Pitch != "" {
		l, err := ParseLetter(d.Pitch)
		if err != nil {
			return Note{}, err
		}
		n.Letter = l
	}

	a, err := ParseAccidental(d.Accidental)
	if err != nil {
		return Note{}, err
	}
	n.Accidental = a

	switch strings.ToLower(d.Tie) {
	case "":
	case "start":
		n.TieStart = true
	case "stop":
		n.TieStop = true
	case "both":
		n.TieStart, n.TieStop = true, true
	default:
		return Note{}, fmt.Errorf("unknown tie %q", d.Tie)
	}
	if n.TiedTo != "" {
		n.TieStart = true
	}

	for _, gd := range d.Grace {
		g, err := gd.note(SixtyFourth)
		if err != nil {
			return Note{}, fmt.Errorf("grace note: %w", err)
		}
		n.Grace = append(n.Grace, g)
	}
	return n, nil
}

// linkTies connects a single note that starts a tie without naming its
// partner to the next note item, which becomes the tie ending. The partner
// gets a fresh ID unless it already has one that no other note uses.
func linkTies(items []Item) {
	ids := make(map[string]int)
	for _, item := range items {
		switch v := item.(type) {
		case Note:
			countIDs(ids, v)
		case Chord:
			for _, n := range v.Notes {
				countIDs(ids, n)
			}
		}
	}

	for i, item := range items {
		n, ok := item.(Note)
		if !ok || !n.TieStart || n.TiedTo != "" {
			continue
		}
		for j := i + 1; j < len(items); j++ {
			next, ok := items[j].(Note)
			if !ok {
				continue
			}
			if next.ID == "" || ids[next.ID] > 1 {
				next.ID = "tie-" + uuid.NewString()
				ids[next.ID] = 1
			}
			next.TieStop = true
			n.TiedTo = next.ID
			items[j] = next
			items[i] = n
			break
		}
	}
}

func countIDs(ids map[string]int, n Note) {
	if n.ID != "" {
		ids[n.ID]++
	}
	for _, g := range n.Grace {
		countIDs(ids, g)
	}
}
