package converter

import (
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/james-see/tune2midi/pkg/instrument"
	"github.com/james-see/tune2midi/pkg/notation"
	"gitlab.com/gomidi/midi/v2/smf"
)

// emitter timestamps the encoding's messages and appends them to a sequence
type emitter struct {
	seq      *Sequence
	encoding Encoding
}

func (e *emitter) add(tick int64, kind EventKind, msgs []smf.Message, err error) error {
	if err != nil {
		return fault.Wrap(err,
			ftag.With(KindInvalidEvent),
			fmsg.With(fmt.Sprintf("%s encoding failed for %s event at tick %d", e.encoding.Name(), kind, tick)),
		)
	}
	for _, msg := range msgs {
		if err := ValidateMessage(msg); err != nil {
			return fault.Wrap(err,
				ftag.With(KindInvalidEvent),
				fmsg.With(fmt.Sprintf("invalid %s event at tick %d", kind, tick)),
			)
		}
		e.seq.Events = append(e.seq.Events, Event{Tick: tick, Kind: kind, Message: msg})
	}
	return nil
}

// programChange selects the instrument at tick 0. Bank 0 needs no
// bank select.
func (e *emitter) programChange(inst instrument.Instrument) error {
	if inst.Bank != 0 {
		msgs, err := e.encoding.BankSelect(inst.Bank)
		if err := e.add(0, KindControlChange, msgs, err); err != nil {
			return err
		}
	}
	msgs, err := e.encoding.ProgramChange(inst.Program)
	return e.add(0, KindProgramChange, msgs, err)
}

func (e *emitter) tempo(tempo notation.Tempo, at int64) error {
	msgs, err := e.encoding.Tempo(tempo)
	return e.add(at, KindTempo, msgs, err)
}

// playNote emits the note-on at `at` and the note-off at `at+duration`,
// then lets an explicit accidental carry over in the running key.
// Rests and tie endings produce nothing.
func (e *emitter) playNote(note notation.Note, key *notation.KeySignature, at, duration int64) error {
	if note.Rest || note.TieStop {
		return nil
	}
	msgs, err := e.encoding.NoteOn(note, key)
	if err := e.add(at, KindNoteOn, msgs, err); err != nil {
		return err
	}
	msgs, err = e.encoding.NoteOff(note, key)
	if err := e.add(at+duration, KindNoteOff, msgs, err); err != nil {
		return err
	}
	updateKey(key, note)
	return nil
}

// playChord emits every note-on at `at`, then every note-off at
// `at+duration`, then updates the running key for all members
func (e *emitter) playChord(chord notation.Chord, key *notation.KeySignature, at, duration int64) error {
	for _, note := range chord.Notes {
		if note.Rest || note.TieStop {
			continue
		}
		msgs, err := e.encoding.NoteOn(note, key)
		if err := e.add(at, KindNoteOn, msgs, err); err != nil {
			return err
		}
	}
	for _, note := range chord.Notes {
		if note.Rest || note.TieStop {
			continue
		}
		msgs, err := e.encoding.NoteOff(note, key)
		if err := e.add(at+duration, KindNoteOff, msgs, err); err != nil {
			return err
		}
	}
	for _, note := range chord.Notes {
		updateKey(key, note)
	}
	return nil
}
