// Package notation provides the parsed score model consumed by the converter
package notation

import (
	"fmt"
	"strings"
)

// Duration units. A quarter note is 96 units so that triplets and
// sixty-fourth notes stay integral.
const (
	SixtyFourth  = 6
	ThirtySecond = 12
	Sixteenth    = 24
	Eighth       = 48
	Quarter      = 96
	Half         = 192
	Whole        = 384
)

// Letter is a diatonic pitch letter
type Letter uint8

const (
	C Letter = iota
	D
	E
	F
	G
	A
	B
)

var letterNames = [...]string{"C", "D", "E", "F", "G", "A", "B"}

// naturalHeights maps each letter to its semitone offset above C
var naturalHeights = [...]int{0, 2, 4, 5, 7, 9, 11}

// String returns the letter name
func (l Letter) String() string {
	if int(l) < len(letterNames) {
		return letterNames[l]
	}
	return fmt.Sprintf("Letter(%d)", uint8(l))
}

// Height returns the semitone offset of the natural letter above C
func (l Letter) Height() int {
	return naturalHeights[l%7]
}

// ParseLetter parses a pitch letter, case insensitive
func ParseLetter(s string) (Letter, error) {
	for i, name := range letterNames {
		if strings.EqualFold(s, name) {
			return Letter(i), nil
		}
	}
	return 0, fmt.Errorf("unknown pitch letter %q", s)
}

// Accidental is the alteration written on a note or held by a key.
// None means the note carries no explicit accidental and follows the key.
type Accidental int8

const (
	None Accidental = iota
	DoubleFlat
	Flat
	Natural
	Sharp
	DoubleSharp
)

var accidentalNames = map[Accidental]string{
	None:        "none",
	DoubleFlat:  "double-flat",
	Flat:        "flat",
	Natural:     "natural",
	Sharp:       "sharp",
	DoubleSharp: "double-sharp",
}

// Semitones returns the pitch alteration. None alters nothing.
func (a Accidental) Semitones() int {
	switch a {
	case DoubleFlat:
		return -2
	case Flat:
		return -1
	case Sharp:
		return 1
	case DoubleSharp:
		return 2
	default:
		return 0
	}
}

// InKey reports whether the accidental defers to the key signature
func (a Accidental) InKey() bool {
	return a == None
}

func (a Accidental) String() string {
	if name, ok := accidentalNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Accidental(%d)", int8(a))
}

// ParseAccidental accepts the names returned by String plus the usual
// ABC-style shorthands (^, ^^, _, __, =).
func ParseAccidental(s string) (Accidental, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "double-flat", "doubleflat", "__", "bb":
		return DoubleFlat, nil
	case "flat", "_", "b":
		return Flat, nil
	case "natural", "=":
		return Natural, nil
	case "sharp", "^", "#":
		return Sharp, nil
	case "double-sharp", "doublesharp", "^^", "x", "##":
		return DoubleSharp, nil
	}
	return None, fmt.Errorf("unknown accidental %q", s)
}

// BarType is the kind of a plain bar line
type BarType uint8

const (
	Simple BarType = iota
	RepeatOpen
	RepeatClose
)

func (t BarType) String() string {
	switch t {
	case Simple:
		return "simple"
	case RepeatOpen:
		return "repeat-open"
	case RepeatClose:
		return "repeat-close"
	}
	return fmt.Sprintf("BarType(%d)", uint8(t))
}

// ParseBarType parses a bar line type name
func ParseBarType(s string) (BarType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simple", "|":
		return Simple, nil
	case "repeat-open", "open", "|:":
		return RepeatOpen, nil
	case "repeat-close", "close", ":|":
		return RepeatClose, nil
	}
	return Simple, fmt.Errorf("unknown bar line type %q", s)
}
