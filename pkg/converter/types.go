// Package converter turns a parsed score into a timed sequence of MIDI events
package converter

import (
	"log/slog"

	"github.com/james-see/tune2midi/pkg/instrument"
	"github.com/james-see/tune2midi/pkg/notation"
	"gitlab.com/gomidi/midi/v2/smf"
)

// DefaultResolution is the number of ticks per quarter note
const DefaultResolution = 480

// EventKind identifies what an output event does
type EventKind uint8

const (
	KindNoteOn EventKind = iota
	KindNoteOff
	KindTempo
	KindProgramChange
	KindControlChange
)

func (k EventKind) String() string {
	switch k {
	case KindNoteOn:
		return "note-on"
	case KindNoteOff:
		return "note-off"
	case KindTempo:
		return "tempo"
	case KindProgramChange:
		return "program-change"
	case KindControlChange:
		return "control-change"
	}
	return "unknown"
}

// Event is a single output event at an absolute tick
type Event struct {
	Tick    int64
	Kind    EventKind
	Message smf.Message
}

// Sequence is the append-only list of events produced by a conversion
type Sequence struct {
	Resolution uint16
	Events     []Event
}

// Encoding produces the messages for a target sound encoding.
// Each method may return zero or more messages.
type Encoding interface {
	Name() string
	NoteOn(note notation.Note, key *notation.KeySignature) ([]smf.Message, error)
	NoteOff(note notation.Note, key *notation.KeySignature) ([]smf.Message, error)
	Tempo(tempo notation.Tempo) ([]smf.Message, error)
	BankSelect(bank int) ([]smf.Message, error)
	ProgramChange(program uint8) ([]smf.Message, error)
}

// Converter handles score conversions
type Converter struct {
	encoding       Encoding
	instruments    instrument.Source
	instrumentName string
	resolution     uint16
	logger         *slog.Logger
}

// New creates a new Converter with the specified encoding. The General MIDI
// instrument table is used until SetInstrument selects something else.
func New(encoding Encoding) *Converter {
	return &Converter{
		encoding:    encoding,
		instruments: instrument.GeneralMIDI(),
		resolution:  DefaultResolution,
		logger:      slog.Default(),
	}
}

// GetEncoding returns the current encoding
func (c *Converter) GetEncoding() Encoding {
	return c.encoding
}

// SetEncoding sets the encoding for conversion
func (c *Converter) SetEncoding(encoding Encoding) {
	c.encoding = encoding
}

// SetInstrument selects the instrument source and the instrument name or
// program number within it. An empty name picks the first instrument.
func (c *Converter) SetInstrument(source instrument.Source, name string) {
	c.instruments = source
	c.instrumentName = name
}

// SetResolution sets the ticks per quarter note
func (c *Converter) SetResolution(ticksPerQuarter uint16) {
	if ticksPerQuarter > 0 {
		c.resolution = ticksPerQuarter
	}
}

// GetResolution returns the ticks per quarter note
func (c *Converter) GetResolution() uint16 {
	return c.resolution
}

// SetLogger sets the logger used for conversion diagnostics
func (c *Converter) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}
