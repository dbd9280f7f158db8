// Package encodings provides the MIDI encodings a conversion can target
package encodings

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/james-see/tune2midi/pkg/converter"
	"github.com/james-see/tune2midi/pkg/notation"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Encoding defaults
const (
	DefaultChannel  = 0
	DefaultVelocity = 100
	MaxChannel      = 15
	maxTempoMicros  = 0xFFFFFF
	maxBank         = 0x3FFF
	ccBankMSB       = 0
	ccBankLSB       = 32
)

var (
	ErrPitchOutOfRange = errors.New("pitch out of MIDI range")
	ErrInvalidChannel  = errors.New("invalid MIDI channel")
	ErrInvalidVelocity = errors.New("invalid MIDI velocity")
	ErrInvalidProgram  = errors.New("invalid MIDI program")
	ErrInvalidBank     = errors.New("invalid MIDI bank")
	ErrInvalidTempo    = errors.New("invalid tempo")
	ErrUnknownEncoding = errors.New("unknown encoding")
)

// Standard encodes notes as note-on / note-off channel messages
type Standard struct {
	Channel  uint8
	Velocity uint8
}

// NewStandard creates a standard encoding on channel 0
func NewStandard() *Standard {
	return &Standard{Channel: DefaultChannel, Velocity: DefaultVelocity}
}

// Name returns the encoding name
func (s *Standard) Name() string {
	return "standard"
}

func (s *Standard) check() error {
	if s.Channel > MaxChannel {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, s.Channel)
	}
	if s.Velocity == 0 || s.Velocity > 127 {
		return fmt.Errorf("%w: %d", ErrInvalidVelocity, s.Velocity)
	}
	return nil
}

// key resolves the MIDI note number of a note
func (s *Standard) key(note notation.Note, key *notation.KeySignature) (uint8, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	n := converter.MIDINoteNumber(note, key)
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("%w: %s%d resolves to %d", ErrPitchOutOfRange, note.Letter, note.Octave, n)
	}
	return uint8(n), nil
}

// NoteOn returns the note-on message for a note
func (s *Standard) NoteOn(note notation.Note, key *notation.KeySignature) ([]smf.Message, error) {
	k, err := s.key(note, key)
	if err != nil {
		return nil, err
	}
	return []smf.Message{smf.Message(midi.NoteOn(s.Channel, k, s.Velocity))}, nil
}

// NoteOff returns the note-off message for a note
func (s *Standard) NoteOff(note notation.Note, key *notation.KeySignature) ([]smf.Message, error) {
	k, err := s.key(note, key)
	if err != nil {
		return nil, err
	}
	return []smf.Message{smf.Message(midi.NoteOff(s.Channel, k))}, nil
}

// Tempo returns the set-tempo meta message
func (s *Standard) Tempo(tempo notation.Tempo) ([]smf.Message, error) {
	bpm := tempo.QuarterBPM()
	// The meta event stores microseconds per quarter in 3 bytes
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return nil, fmt.Errorf("%w: %v bpm", ErrInvalidTempo, tempo.BPM)
	}
	if usec := math.Round(60000000 / bpm); usec < 1 || usec > maxTempoMicros {
		return nil, fmt.Errorf("%w: %v bpm does not fit a tempo event", ErrInvalidTempo, tempo.BPM)
	}
	return []smf.Message{smf.MetaTempo(bpm)}, nil
}

// BankSelect returns the bank select MSB (CC 0) and LSB (CC 32) pair
func (s *Standard) BankSelect(bank int) ([]smf.Message, error) {
	if s.Channel > MaxChannel {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannel, s.Channel)
	}
	if bank < 0 || bank > maxBank {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBank, bank)
	}
	return []smf.Message{
		smf.Message(midi.ControlChange(s.Channel, ccBankMSB, uint8(bank>>7))),
		smf.Message(midi.ControlChange(s.Channel, ccBankLSB, uint8(bank&0x7F))),
	}, nil
}

// ProgramChange returns the program change selecting the instrument
func (s *Standard) ProgramChange(program uint8) ([]smf.Message, error) {
	if s.Channel > MaxChannel {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannel, s.Channel)
	}
	if program > 127 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidProgram, program)
	}
	return []smf.Message{smf.Message(midi.ProgramChange(s.Channel, program))}, nil
}

// ZeroVelocity ends notes with a velocity-0 note-on, which keeps a
// running status across a whole melody
type ZeroVelocity struct {
	Standard
}

// NewZeroVelocity creates a zero-velocity encoding on channel 0
func NewZeroVelocity() *ZeroVelocity {
	return &ZeroVelocity{Standard{Channel: DefaultChannel, Velocity: DefaultVelocity}}
}

// Name returns the encoding name
func (z *ZeroVelocity) Name() string {
	return "zerovel"
}

// NoteOff returns a note-on with velocity 0
func (z *ZeroVelocity) NoteOff(note notation.Note, key *notation.KeySignature) ([]smf.Message, error) {
	k, err := z.key(note, key)
	if err != nil {
		return nil, err
	}
	return []smf.Message{smf.Message(midi.NoteOn(z.Channel, k, 0))}, nil
}

// Info describes an available encoding
type Info struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// List returns the available encodings
func List() []Info {
	return []Info{
		{ID: "standard", Description: "Note-on / note-off channel messages"},
		{ID: "zerovel", Description: "Note-on with velocity 0 as note-off"},
	}
}

// ByName returns a fresh encoding for the given name
func ByName(name string) (converter.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "standard", "std":
		return NewStandard(), nil
	case "zerovel", "zero-velocity", "running-status":
		return NewZeroVelocity(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, name)
	}
}

// Configure sets the channel and velocity of an encoding from this package
func Configure(enc converter.Encoding, channel, velocity uint8) error {
	var s *Standard
	switch e := enc.(type) {
	case *Standard:
		s = e
	case *ZeroVelocity:
		s = &e.Standard
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEncoding, enc.Name())
	}
	s.Channel = channel
	s.Velocity = velocity
	return s.check()
}
