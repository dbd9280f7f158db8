package notation

import "fmt"

// Order in which sharps and flats are added to a key signature,
// as natural pitch classes
var (
	sharpOrder = [...]Letter{F, C, G, D, A, E, B}
	flatOrder  = [...]Letter{B, E, A, D, G, C, F}
)

// KeySignature maps each natural pitch class to its active accidental.
// A score's declared key is never mutated; the converter works on clones.
type KeySignature struct {
	accidentals [12]Accidental
}

// NewKeySignature creates a key from explicit per-letter accidentals.
// Letters not present are natural.
func NewKeySignature(accidentals map[Letter]Accidental) *KeySignature {
	k := &KeySignature{}
	for l, a := range accidentals {
		k.accidentals[l.Height()] = a
	}
	return k
}

// KeyFromFifths returns the major key with the given number of sharps
// (positive) or flats (negative)
func KeyFromFifths(fifths int) (*KeySignature, error) {
	if fifths < -7 || fifths > 7 {
		return nil, fmt.Errorf("key signature out of range: %d fifths", fifths)
	}
	k := &KeySignature{}
	for i := 0; i < fifths; i++ {
		k.accidentals[sharpOrder[i].Height()] = Sharp
	}
	for i := 0; i < -fifths; i++ {
		k.accidentals[flatOrder[i].Height()] = Flat
	}
	return k, nil
}

// Clone returns an independent copy of the key
func (k *KeySignature) Clone() *KeySignature {
	if k == nil {
		return &KeySignature{}
	}
	c := *k
	return &c
}

// AccidentalFor returns the accidental the key applies to a pitch class
func (k *KeySignature) AccidentalFor(pitchClass int) Accidental {
	if k == nil {
		return None
	}
	return k.accidentals[mod12(pitchClass)]
}

// SetAccidental changes the accidental applied to a pitch class
func (k *KeySignature) SetAccidental(pitchClass int, a Accidental) {
	k.accidentals[mod12(pitchClass)] = a
}

// Accidentals returns the full accidental table
func (k *KeySignature) Accidentals() [12]Accidental {
	if k == nil {
		return [12]Accidental{}
	}
	return k.accidentals
}

func mod12(n int) int {
	n %= 12
	if n < 0 {
		n += 12
	}
	return n
}
