package converter

import "github.com/james-see/tune2midi/pkg/notation"

// The A above middle C (octave 0) is MIDI note 69
const referenceNumber = 69

// MIDINoteNumber returns the MIDI note number of a note in the given key.
// An explicit accidental wins; otherwise the key's accidental for the
// note's pitch class applies.
func MIDINoteNumber(note notation.Note, key *notation.KeySignature) int {
	n := note.Height() + (referenceNumber - notation.A.Height())
	n += note.Transpose * 12
	if note.Accidental.InKey() {
		n += key.AccidentalFor(note.PitchClass()).Semitones()
	} else {
		n += note.Accidental.Semitones()
	}
	return n
}

// updateKey carries an explicit accidental over to later notes of the
// same pitch class until the running key is reset at the next bar line
func updateKey(key *notation.KeySignature, note notation.Note) {
	if key != nil && !note.Accidental.InKey() {
		key.SetAccidental(note.PitchClass(), note.Accidental)
	}
}
