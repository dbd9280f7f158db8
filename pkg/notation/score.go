package notation

// Item is one element of a score. The set of implementations is closed:
// Note, Chord, BarLine, RepeatBarLine, KeySignature and Tempo.
type Item interface {
	isItem()
}

// Note is a single pitched note or a rest
type Note struct {
	ID         string     // Reference used by ties, optional
	Letter     Letter     // Diatonic letter
	Octave     int        // 0 is the octave starting at middle C
	Accidental Accidental // Explicit accidental, None to follow the key
	Transpose  int        // Octave transposition
	Duration   int        // Length in duration units (Quarter = 96)
	Rest       bool       // Silent note
	TieStart   bool       // Begins a tie
	TieStop    bool       // Ends a tie
	TiedTo     string     // ID of the continuation when TieStart is set
	Grace      []Note     // Grace notes played before this note
}

// Height returns the natural height in semitones relative to middle C,
// ignoring accidentals and transposition
func (n Note) Height() int {
	return n.Octave*12 + n.Letter.Height()
}

// PitchClass returns the natural pitch class (0-11) the running key is
// indexed by
func (n Note) PitchClass() int {
	return n.Letter.Height()
}

// Chord is a set of simultaneous notes sharing one nominal duration
type Chord struct {
	Notes []Note
}

// BarLine is a plain, repeat-open or repeat-close bar line
type BarLine struct {
	Type BarType
}

// RepeatBarLine marks the start of a numbered ending
type RepeatBarLine struct {
	Endings []int // Passes this ending is played on
}

// Target returns the lowest pass number the ending applies to
func (r RepeatBarLine) Target() int {
	if len(r.Endings) == 0 {
		return 1
	}
	lo := r.Endings[0]
	for _, n := range r.Endings[1:] {
		if n < lo {
			lo = n
		}
	}
	return lo
}

// Covers reports whether the ending is played on the given pass
func (r RepeatBarLine) Covers(pass int) bool {
	if len(r.Endings) == 0 {
		return pass == 1
	}
	for _, n := range r.Endings {
		if n == pass {
			return true
		}
	}
	return false
}

// Tempo is a tempo marker. BPM counts beats of Reference duration units.
type Tempo struct {
	BPM       float64
	Reference int // Beat length in duration units, 0 means a quarter note
}

// QuarterBPM returns the tempo expressed in quarter notes per minute
func (t Tempo) QuarterBPM() float64 {
	ref := t.Reference
	if ref <= 0 {
		ref = Quarter
	}
	return t.BPM * float64(ref) / Quarter
}

func (Note) isItem()          {}
func (Chord) isItem()         {}
func (BarLine) isItem()       {}
func (RepeatBarLine) isItem() {}
func (*KeySignature) isItem() {}
func (Tempo) isItem()         {}

// Score is an ordered, read-only sequence of notation items
type Score struct {
	Title string
	items []Item
	index map[string]Note
}

// NewScore builds a score and indexes every note carrying an ID,
// including notes inside chords and grace notes
func NewScore(items ...Item) *Score {
	s := &Score{
		items: items,
		index: make(map[string]Note),
	}
	for _, item := range items {
		switch v := item.(type) {
		case Note:
			s.indexNote(v)
		case Chord:
			for _, n := range v.Notes {
				s.indexNote(n)
			}
		}
	}
	return s
}

func (s *Score) indexNote(n Note) {
	if n.ID != "" {
		if _, exists := s.index[n.ID]; !exists {
			s.index[n.ID] = n
		}
	}
	for _, g := range n.Grace {
		s.indexNote(g)
	}
}

// Len returns the number of items
func (s *Score) Len() int {
	return len(s.items)
}

// At returns the item at index i
func (s *Score) At(i int) Item {
	return s.items[i]
}

// Items returns a copy of the item list
func (s *Score) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Lookup finds a note by its ID
func (s *Score) Lookup(id string) (Note, bool) {
	if id == "" {
		return Note{}, false
	}
	n, ok := s.index[id]
	return n, ok
}
