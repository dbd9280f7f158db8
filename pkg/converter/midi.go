package converter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Duration returns the tick of the last event
func (s *Sequence) Duration() int64 {
	var last int64
	for _, ev := range s.Events {
		if ev.Tick > last {
			last = ev.Tick
		}
	}
	return last
}

// Filter returns the events of the given kind in sequence order
func (s *Sequence) Filter(kind EventKind) []Event {
	var out []Event
	for _, ev := range s.Events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// SMF builds a single-track standard MIDI file from the sequence
func (s *Sequence) SMF() (*smf.SMF, error) {
	resolution := s.Resolution
	if resolution == 0 {
		resolution = DefaultResolution
	}

	events := make([]Event, len(s.Events))
	copy(events, s.Events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Tick < events[j].Tick
	})

	file := smf.New()
	file.TimeFormat = smf.MetricTicks(resolution)

	var track smf.Track
	var currentTick int64
	for _, ev := range events {
		track.Add(uint32(ev.Tick-currentTick), ev.Message)
		currentTick = ev.Tick
	}

	// Add end of track
	track.Close(0)

	if err := file.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}
	return file, nil
}

// WriteTo writes the sequence as a standard MIDI file
func (s *Sequence) WriteTo(w io.Writer) (int64, error) {
	file, err := s.SMF()
	if err != nil {
		return 0, err
	}
	n, err := file.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return n, nil
}

// Bytes returns the sequence encoded as a standard MIDI file
func (s *Sequence) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteMIDIFile writes the sequence to a MIDI file
func (s *Sequence) WriteMIDIFile(filename string) error {
	data, err := s.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ReadMIDIFile reads a MIDI file back into a sequence
func ReadMIDIFile(filename string) (*Sequence, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return ReadSequence(bytes.NewReader(data))
}

// ReadSequence parses a standard MIDI file and collects the note, tempo,
// control and program-change events of all tracks at absolute ticks
func ReadSequence(r io.Reader) (*Sequence, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	seq := &Sequence{Resolution: DefaultResolution}
	// Get ticks per quarter note from time format
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		seq.Resolution = mt.Resolution()
	}

	for _, track := range s.Tracks {
		var currentTick int64
		for _, ev := range track {
			currentTick += int64(ev.Delta)

			var bpm float64
			var channel, key, velocity, program, controller, value uint8
			msg := midi.Message(ev.Message)

			var kind EventKind
			switch {
			case ev.Message.GetMetaTempo(&bpm):
				kind = KindTempo
			case msg.GetProgramChange(&channel, &program):
				kind = KindProgramChange
			case msg.GetControlChange(&channel, &controller, &value):
				kind = KindControlChange
			case msg.GetNoteStart(&channel, &key, &velocity):
				kind = KindNoteOn
			case msg.GetNoteEnd(&channel, &key):
				kind = KindNoteOff
			default:
				continue
			}
			seq.Events = append(seq.Events, Event{Tick: currentTick, Kind: kind, Message: ev.Message})
		}
	}

	sort.SliceStable(seq.Events, func(i, j int) bool {
		return seq.Events[i].Tick < seq.Events[j].Tick
	})
	return seq, nil
}
