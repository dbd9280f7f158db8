package converter

import (
	"errors"

	"github.com/Southclaws/fault/ftag"
)

// Failure kinds attached to conversion errors, readable with ftag.Get
const (
	KindInstrumentUnavailable ftag.Kind = "INSTRUMENT_UNAVAILABLE"
	KindInvalidEvent          ftag.Kind = "INVALID_EVENT"
)

var (
	ErrNilScore       = errors.New("nil score")
	ErrNoEncoding     = errors.New("no encoding configured")
	ErrInvalidMessage = errors.New("invalid MIDI message")
)
