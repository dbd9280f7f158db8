package converter

import "github.com/james-see/tune2midi/pkg/notation"

// NoteTicks returns the sounding length of a note in ticks. A note that
// starts a tie also sounds for the length of its partner, one hop only.
func NoteTicks(note notation.Note, score *notation.Score, resolution uint16) int64 {
	units := note.Duration
	if note.TieStart && score != nil {
		if end, ok := score.Lookup(note.TiedTo); ok {
			units += end.Duration
		}
	}
	return unitsToTicks(units, resolution)
}

// ChordTicks returns the length of a chord. Notes ending a tie are ignored
// and the shortest remaining note decides; an empty chord lasts 0 ticks.
func ChordTicks(chord notation.Chord, score *notation.Score, resolution uint16) int64 {
	var shortest *notation.Note
	for i := range chord.Notes {
		n := &chord.Notes[i]
		if n.TieStop {
			continue
		}
		if shortest == nil || n.Duration < shortest.Duration {
			shortest = n
		}
	}
	if shortest == nil {
		return 0
	}
	return NoteTicks(*shortest, score, resolution)
}

func unitsToTicks(units int, resolution uint16) int64 {
	if units <= 0 {
		return 0
	}
	return int64(units) * int64(resolution) / notation.Quarter
}
