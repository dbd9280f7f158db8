package converter

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Southclaws/fault/ftag"
	"github.com/james-see/tune2midi/pkg/instrument"
	"github.com/james-see/tune2midi/pkg/notation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// mockEncoding implements Encoding for testing
type mockEncoding struct{}

func (m *mockEncoding) Name() string { return "mock" }

func (m *mockEncoding) NoteOn(note notation.Note, key *notation.KeySignature) ([]smf.Message, error) {
	n := MIDINoteNumber(note, key)
	if n < 0 || n > 127 {
		return nil, errors.New("pitch out of range")
	}
	return []smf.Message{smf.Message(midi.NoteOn(0, uint8(n), 100))}, nil
}

func (m *mockEncoding) NoteOff(note notation.Note, key *notation.KeySignature) ([]smf.Message, error) {
	return []smf.Message{smf.Message(midi.NoteOff(0, uint8(MIDINoteNumber(note, key))))}, nil
}

func (m *mockEncoding) Tempo(tempo notation.Tempo) ([]smf.Message, error) {
	return []smf.Message{smf.MetaTempo(tempo.QuarterBPM())}, nil
}

func (m *mockEncoding) BankSelect(bank int) ([]smf.Message, error) {
	return []smf.Message{
		smf.Message(midi.ControlChange(0, 0, uint8(bank>>7))),
		smf.Message(midi.ControlChange(0, 32, uint8(bank&0x7F))),
	}, nil
}

func (m *mockEncoding) ProgramChange(program uint8) ([]smf.Message, error) {
	return []smf.Message{smf.Message(midi.ProgramChange(0, program))}, nil
}

// brokenEncoding produces a note-on with an 8-bit key
type brokenEncoding struct {
	mockEncoding
}

func (b *brokenEncoding) NoteOn(note notation.Note, key *notation.KeySignature) ([]smf.Message, error) {
	return []smf.Message{{0x90, 0xC8, 100}}, nil
}

const quarter = DefaultResolution

func newTestConverter() *Converter {
	c := New(&mockEncoding{})
	c.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c
}

func convert(t *testing.T, items ...notation.Item) *Sequence {
	t.Helper()
	seq, err := newTestConverter().Convert(notation.NewScore(items...))
	require.NoError(t, err)
	return seq
}

func note(l notation.Letter, duration int) notation.Note {
	return notation.Note{Letter: l, Duration: duration}
}

func keyOf(ev Event) uint8 {
	var channel, key, velocity uint8
	msg := midi.Message(ev.Message)
	if msg.GetNoteStart(&channel, &key, &velocity) {
		return key
	}
	msg.GetNoteEnd(&channel, &key)
	return key
}

func ticks(events []Event) []int64 {
	out := make([]int64, len(events))
	for i, ev := range events {
		out[i] = ev.Tick
	}
	return out
}

func keys(events []Event) []uint8 {
	out := make([]uint8, len(events))
	for i, ev := range events {
		out[i] = keyOf(ev)
	}
	return out
}

func TestSingleNoteScenario(t *testing.T) {
	seq := convert(t,
		notation.NewKeySignature(nil),
		note(notation.C, notation.Quarter),
		notation.BarLine{Type: notation.Simple},
	)

	on := seq.Filter(KindNoteOn)
	off := seq.Filter(KindNoteOff)
	require.Len(t, on, 1)
	require.Len(t, off, 1)
	assert.Equal(t, int64(0), on[0].Tick)
	assert.Equal(t, uint8(60), keyOf(on[0]))
	assert.Equal(t, int64(quarter), off[0].Tick)
	assert.Equal(t, uint8(60), keyOf(off[0]))
}

func TestProgramChangeComesFirst(t *testing.T) {
	c := newTestConverter()
	c.SetInstrument(instrument.GeneralMIDI(), "Violin")

	seq, err := c.Convert(notation.NewScore(note(notation.C, notation.Quarter)))
	require.NoError(t, err)
	require.NotEmpty(t, seq.Events)

	first := seq.Events[0]
	assert.Equal(t, KindProgramChange, first.Kind)
	assert.Equal(t, int64(0), first.Tick)
	assert.Equal(t, smf.Message{0xC0, 40}, first.Message)
}

func TestElapsedTimeIsSumOfDurations(t *testing.T) {
	seq := convert(t,
		note(notation.C, notation.Quarter),
		note(notation.D, notation.Half),
		notation.Note{Rest: true, Duration: notation.Eighth},
		notation.Chord{Notes: []notation.Note{note(notation.E, notation.Quarter), note(notation.G, notation.Quarter)}},
		note(notation.F, notation.Whole),
	)

	assert.Equal(t, []int64{0, 480, 1680, 1680, 2160}, ticks(seq.Filter(KindNoteOn)))
	assert.Equal(t, int64(4080), seq.Duration())
}

func TestTieMergesDurations(t *testing.T) {
	seq := convert(t,
		notation.Note{ID: "a", Letter: notation.C, Duration: notation.Quarter, TieStart: true, TiedTo: "b"},
		notation.Note{ID: "b", Letter: notation.C, Duration: notation.Eighth, TieStop: true},
		note(notation.D, notation.Quarter),
	)

	on := seq.Filter(KindNoteOn)
	off := seq.Filter(KindNoteOff)
	assert.Equal(t, []uint8{60, 62}, keys(on))
	assert.Equal(t, []int64{0, 720}, ticks(on))
	assert.Equal(t, []int64{720, 1200}, ticks(off))
}

func TestTieWithoutPartnerKeepsOwnDuration(t *testing.T) {
	seq := convert(t,
		notation.Note{Letter: notation.C, Duration: notation.Quarter, TieStart: true, TiedTo: "missing"},
		note(notation.D, notation.Quarter),
	)
	assert.Equal(t, []int64{0, 480}, ticks(seq.Filter(KindNoteOn)))
}

func TestLinkedTieInDocument(t *testing.T) {
	score, err := notation.DecodeJSON([]byte(`{"items": [
		{"kind": "note", "id": "tie-2", "pitch": "D", "duration": 384},
		{"kind": "note", "pitch": "C", "tie": "start"},
		{"kind": "note", "pitch": "C"}
	]}`))
	require.NoError(t, err)

	seq, err := newTestConverter().Convert(score)
	require.NoError(t, err)

	on := seq.Filter(KindNoteOn)
	off := seq.Filter(KindNoteOff)
	assert.Equal(t, []uint8{62, 60}, keys(on))
	assert.Equal(t, []int64{0, 1920}, ticks(on))
	assert.Equal(t, []int64{1920, 2880}, ticks(off))
}

func TestRepeatPlaysSectionTwice(t *testing.T) {
	seq := convert(t,
		notation.BarLine{Type: notation.RepeatOpen},
		note(notation.C, notation.Quarter),
		note(notation.D, notation.Quarter),
		notation.BarLine{Type: notation.RepeatClose},
		note(notation.E, notation.Quarter),
	)

	on := seq.Filter(KindNoteOn)
	assert.Equal(t, []uint8{60, 62, 60, 62, 64}, keys(on))
	assert.Equal(t, []int64{0, 480, 960, 1440, 1920}, ticks(on))

	// The second pass starts exactly where the first pass ends
	off := seq.Filter(KindNoteOff)
	assert.Equal(t, on[2].Tick, off[1].Tick)
}

func TestFirstAndSecondEndings(t *testing.T) {
	seq := convert(t,
		notation.BarLine{Type: notation.RepeatOpen},
		note(notation.C, notation.Quarter),
		notation.RepeatBarLine{Endings: []int{1}},
		note(notation.D, notation.Quarter),
		notation.BarLine{Type: notation.RepeatClose},
		notation.RepeatBarLine{Endings: []int{2}},
		note(notation.E, notation.Quarter),
		notation.BarLine{Type: notation.Simple},
	)

	on := seq.Filter(KindNoteOn)
	assert.Equal(t, []uint8{60, 62, 60, 64}, keys(on))
	assert.Equal(t, []int64{0, 480, 960, 1440}, ticks(on))
}

func TestEndingForSecondPassOnly(t *testing.T) {
	seq := convert(t,
		notation.BarLine{Type: notation.RepeatOpen},
		note(notation.C, notation.Quarter),
		notation.RepeatBarLine{Endings: []int{2}},
		note(notation.D, notation.Quarter),
		notation.BarLine{Type: notation.RepeatClose},
	)

	assert.Equal(t, []uint8{60, 60, 62}, keys(seq.Filter(KindNoteOn)))
}

func TestWrongEndingEndsAtClosingBar(t *testing.T) {
	seq := convert(t,
		notation.BarLine{Type: notation.RepeatOpen},
		note(notation.C, notation.Quarter),
		notation.RepeatBarLine{Endings: []int{1}},
		note(notation.D, notation.Quarter),
		notation.BarLine{Type: notation.RepeatClose},
		note(notation.E, notation.Quarter),
	)

	assert.Equal(t, []uint8{60, 62, 60, 64}, keys(seq.Filter(KindNoteOn)))
}

func TestThirdEndingRepeatsUntilReached(t *testing.T) {
	seq := convert(t,
		notation.BarLine{Type: notation.RepeatOpen},
		note(notation.C, notation.Quarter),
		notation.RepeatBarLine{Endings: []int{3}},
		note(notation.D, notation.Quarter),
	)

	assert.Equal(t, []uint8{60, 60, 60, 62}, keys(seq.Filter(KindNoteOn)))
}

func TestMalformedRepeatsDegradeGracefully(t *testing.T) {
	tests := []struct {
		name     string
		items    []notation.Item
		expected []uint8
	}{
		{
			name: "close without open",
			items: []notation.Item{
				note(notation.C, notation.Quarter),
				notation.BarLine{Type: notation.RepeatClose},
				note(notation.D, notation.Quarter),
			},
			expected: []uint8{60, 62},
		},
		{
			name: "ending without open",
			items: []notation.Item{
				notation.RepeatBarLine{Endings: []int{2}},
				note(notation.C, notation.Quarter),
			},
			expected: []uint8{60},
		},
		{
			name: "double close",
			items: []notation.Item{
				notation.BarLine{Type: notation.RepeatOpen},
				note(notation.C, notation.Quarter),
				notation.BarLine{Type: notation.RepeatClose},
				notation.BarLine{Type: notation.RepeatClose},
				note(notation.D, notation.Quarter),
			},
			expected: []uint8{60, 60, 62},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := convert(t, tt.items...)
			assert.Equal(t, tt.expected, keys(seq.Filter(KindNoteOn)))
		})
	}
}

func TestAccidentalCarriesOverWithinMeasure(t *testing.T) {
	g, err := notation.KeyFromFifths(1)
	require.NoError(t, err)

	seq := convert(t,
		g,
		note(notation.F, notation.Quarter),
		notation.Note{Letter: notation.F, Accidental: notation.Natural, Duration: notation.Quarter},
		note(notation.F, notation.Quarter),
		notation.Note{Letter: notation.C, Accidental: notation.Sharp, Duration: notation.Quarter},
		note(notation.C, notation.Quarter),
		notation.BarLine{Type: notation.Simple},
		note(notation.F, notation.Quarter),
		note(notation.C, notation.Quarter),
	)

	assert.Equal(t, []uint8{66, 65, 65, 61, 61, 66, 60}, keys(seq.Filter(KindNoteOn)))
}

func TestRunningKeyWithoutKeySignature(t *testing.T) {
	seq := convert(t,
		notation.Note{Letter: notation.C, Accidental: notation.Sharp, Duration: notation.Quarter},
		note(notation.C, notation.Quarter),
		notation.RepeatBarLine{Endings: []int{1}},
		note(notation.C, notation.Quarter),
	)

	assert.Equal(t, []uint8{61, 61, 60}, keys(seq.Filter(KindNoteOn)))
}

func TestChordTiming(t *testing.T) {
	seq := convert(t,
		note(notation.D, notation.Quarter),
		notation.Chord{Notes: []notation.Note{
			note(notation.C, notation.Half),
			note(notation.E, notation.Half),
			note(notation.G, notation.Quarter),
			{Rest: true, Duration: notation.Quarter},
			{Letter: notation.B, Duration: notation.Eighth, TieStop: true},
		}},
		note(notation.A, notation.Quarter),
	)

	// Skip the program change and the leading D
	chord := seq.Events[3:9]
	for i, ev := range chord[:3] {
		assert.Equal(t, KindNoteOn, ev.Kind, "event %d", i)
		assert.Equal(t, int64(480), ev.Tick, "event %d", i)
	}
	for i, ev := range chord[3:] {
		assert.Equal(t, KindNoteOff, ev.Kind, "event %d", i)
		assert.Equal(t, int64(960), ev.Tick, "event %d", i)
	}
	assert.Equal(t, []uint8{60, 64, 67}, keys(chord[:3]))

	on := seq.Filter(KindNoteOn)
	assert.Equal(t, int64(960), on[len(on)-1].Tick)
}

func TestChordOfTieEndingsIsSilent(t *testing.T) {
	seq := convert(t,
		notation.Chord{Notes: []notation.Note{
			{Letter: notation.C, Duration: notation.Half, TieStop: true},
		}},
		note(notation.D, notation.Quarter),
	)

	on := seq.Filter(KindNoteOn)
	require.Len(t, on, 1)
	assert.Equal(t, int64(0), on[0].Tick)
}

func TestChordUpdatesKeyAfterEmission(t *testing.T) {
	seq := convert(t,
		notation.Chord{Notes: []notation.Note{
			{Letter: notation.C, Accidental: notation.Sharp, Duration: notation.Quarter},
			note(notation.C, notation.Quarter),
		}},
		note(notation.C, notation.Quarter),
	)

	assert.Equal(t, []uint8{61, 60, 61}, keys(seq.Filter(KindNoteOn)))
}

func TestGraceNotesPlayBeforeMainNote(t *testing.T) {
	seq := convert(t,
		notation.Note{
			Letter:   notation.C,
			Duration: notation.Quarter,
			Grace:    []notation.Note{note(notation.D, notation.Sixteenth)},
		},
		note(notation.E, notation.Quarter),
	)

	on := seq.Filter(KindNoteOn)
	assert.Equal(t, []uint8{62, 60, 64}, keys(on))
	assert.Equal(t, []int64{0, 120, 600}, ticks(on))
	assert.Equal(t, []int64{120, 600, 1080}, ticks(seq.Filter(KindNoteOff)))
}

func TestTempoEventsAtCurrentClock(t *testing.T) {
	seq := convert(t,
		notation.Tempo{BPM: 120},
		note(notation.C, notation.Quarter),
		notation.Tempo{BPM: 60},
		note(notation.D, notation.Quarter),
	)

	tempos := seq.Filter(KindTempo)
	assert.Equal(t, []int64{0, 480}, ticks(tempos))

	var bpm float64
	require.True(t, tempos[1].Message.GetMetaTempo(&bpm))
	assert.InDelta(t, 60.0, bpm, 0.01)
}

func TestEventsAreOrderedInTime(t *testing.T) {
	seq := convert(t,
		notation.BarLine{Type: notation.RepeatOpen},
		notation.Note{Letter: notation.C, Duration: notation.Quarter, Grace: []notation.Note{note(notation.B, notation.Sixteenth)}},
		notation.Chord{Notes: []notation.Note{note(notation.E, notation.Half), note(notation.G, notation.Quarter)}},
		notation.BarLine{Type: notation.RepeatClose},
	)

	for i := 1; i < len(seq.Events); i++ {
		assert.LessOrEqual(t, seq.Events[i-1].Tick, seq.Events[i].Tick)
	}
}

func TestInstrumentUnavailable(t *testing.T) {
	c := newTestConverter()
	c.SetInstrument(instrument.GeneralMIDI(), "Theremin")

	seq, err := c.Convert(notation.NewScore(note(notation.C, notation.Quarter)))
	assert.Nil(t, seq)
	assert.ErrorIs(t, err, instrument.ErrUnknownInstrument)
	assert.Equal(t, KindInstrumentUnavailable, ftag.Get(err))

	c.SetInstrument(nil, "")
	_, err = c.Convert(notation.NewScore(note(notation.C, notation.Quarter)))
	assert.ErrorIs(t, err, instrument.ErrNoInstruments)
}

func TestInvalidPayloadAbortsConversion(t *testing.T) {
	c := New(&brokenEncoding{})
	c.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	seq, err := c.Convert(notation.NewScore(note(notation.C, notation.Quarter)))
	assert.Nil(t, seq)
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Equal(t, KindInvalidEvent, ftag.Get(err))
}

func TestConvertPreconditions(t *testing.T) {
	_, err := newTestConverter().Convert(nil)
	assert.ErrorIs(t, err, ErrNilScore)

	_, err = New(nil).Convert(notation.NewScore())
	assert.ErrorIs(t, err, ErrNoEncoding)
}

func TestConverterSettings(t *testing.T) {
	enc := &mockEncoding{}
	conv := New(enc)

	if conv.GetEncoding() != enc {
		t.Error("GetEncoding() did not return the expected encoding")
	}
	if conv.GetResolution() != DefaultResolution {
		t.Errorf("GetResolution() = %d, want %d", conv.GetResolution(), DefaultResolution)
	}

	conv.SetResolution(96)
	conv.SetResolution(0)
	if conv.GetResolution() != 96 {
		t.Errorf("GetResolution() = %d, want 96", conv.GetResolution())
	}

	other := &brokenEncoding{}
	conv.SetEncoding(other)
	if conv.GetEncoding() != other {
		t.Error("GetEncoding() should return the new encoding after SetEncoding")
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		expected Format
	}{
		{"test.mid", FormatMIDI},
		{"test.midi", FormatMIDI},
		{"test.json", FormatJSON},
		{"test.yaml", FormatYAML},
		{"test.YML", FormatYAML},
		{"test.abc", FormatUnknown},
		{"test", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			result := DetectFormat(tt.filename)
			if result != tt.expected {
				t.Errorf("DetectFormat(%q) = %v, want %v", tt.filename, result, tt.expected)
			}
		})
	}
}

func TestGetSupportedConversions(t *testing.T) {
	conversions := GetSupportedConversions()

	expected := []string{"json -> midi", "yaml -> midi"}
	if len(conversions) != len(expected) {
		t.Fatalf("GetSupportedConversions() returned %d conversions, want %d", len(conversions), len(expected))
	}
	for i, exp := range expected {
		if conversions[i] != exp {
			t.Errorf("conversions[%d] = %q, want %q", i, conversions[i], exp)
		}
	}
}
