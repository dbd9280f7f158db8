package converter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/james-see/tune2midi/pkg/instrument"
	"github.com/james-see/tune2midi/pkg/notation"
)

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mid", ".midi":
		return FormatMIDI
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// Convert walks the score once, expanding repeats and numbered endings in
// time, and returns the complete event sequence. Any failure returns a nil
// sequence.
func (c *Converter) Convert(score *notation.Score) (*Sequence, error) {
	if score == nil {
		return nil, ErrNilScore
	}
	if c.encoding == nil {
		return nil, ErrNoEncoding
	}

	inst, err := instrument.Select(c.instruments, c.instrumentName)
	if err != nil {
		return nil, fault.Wrap(err,
			ftag.With(KindInstrumentUnavailable),
			fmsg.With("cannot load instrument"),
		)
	}

	seq := &Sequence{Resolution: c.resolution}
	em := &emitter{seq: seq, encoding: c.encoding}
	if err := em.programChange(inst); err != nil {
		return nil, err
	}

	t := &traversal{
		score:          score,
		emitter:        em,
		resolution:     c.resolution,
		logger:         c.logger,
		running:        new(notation.KeySignature),
		lastRepeatOpen: -1,
		repeatNumber:   1,
	}
	if err := t.run(); err != nil {
		return nil, err
	}

	c.logger.Info("converted score",
		"title", score.Title,
		"items", score.Len(),
		"events", len(seq.Events),
		"ticks", t.elapsed,
		"encoding", c.encoding.Name(),
		"instrument", inst.Name,
		"bank", inst.Bank,
	)
	return seq, nil
}

// traversal holds the state of one pass over a score
type traversal struct {
	score      *notation.Score
	emitter    *emitter
	resolution uint16
	logger     *slog.Logger

	i              int   // read cursor
	elapsed        int64 // absolute clock in ticks, never rewound
	lastRepeatOpen int
	repeatNumber   int
	inWrongEnding  bool
	declared       *notation.KeySignature
	running        *notation.KeySignature
}

func (t *traversal) run() error {
	for t.i < t.score.Len() {
		item := t.score.At(t.i)

		if !t.inWrongEnding {
			if err := t.play(item); err != nil {
				return err
			}
		}

		rewound := t.control(item)

		// Accidentals never carry over a bar line
		switch item.(type) {
		case notation.BarLine, notation.RepeatBarLine:
			t.running = t.declared.Clone()
		}

		if !rewound {
			t.i++
		}
	}
	return nil
}

// play emits the events of a single item and advances the clock
func (t *traversal) play(item notation.Item) error {
	switch v := item.(type) {
	case notation.Tempo:
		return t.emitter.tempo(v, t.elapsed)

	case *notation.KeySignature:
		t.declared = v
		t.running = v.Clone()

	case notation.Note:
		// Tie endings already sound as part of the note that starts the tie
		if v.TieStop {
			return nil
		}
		for _, grace := range v.Grace {
			d := NoteTicks(grace, t.score, t.resolution)
			if err := t.emitter.playNote(grace, t.running, t.elapsed, d); err != nil {
				return err
			}
			t.elapsed += d
		}
		d := NoteTicks(v, t.score, t.resolution)
		if err := t.emitter.playNote(v, t.running, t.elapsed, d); err != nil {
			return err
		}
		t.elapsed += d

	case notation.Chord:
		d := ChordTicks(v, t.score, t.resolution)
		if err := t.emitter.playChord(v, t.running, t.elapsed, d); err != nil {
			return err
		}
		t.elapsed += d
	}
	return nil
}

// control applies repeat and numbered-ending flow. It reports whether the
// cursor was moved back to the start of the repeated section.
func (t *traversal) control(item notation.Item) bool {
	switch v := item.(type) {
	case notation.RepeatBarLine:
		target := v.Target()
		switch {
		case t.repeatNumber < target && t.lastRepeatOpen != -1:
			return t.rewind()
		case t.repeatNumber > target && !v.Covers(t.repeatNumber):
			t.inWrongEnding = true
		default:
			t.inWrongEnding = false
		}

	case notation.BarLine:
		switch v.Type {
		case notation.RepeatOpen:
			t.lastRepeatOpen = t.i
			t.repeatNumber = 1
			t.inWrongEnding = false
		case notation.RepeatClose:
			if t.repeatNumber < 2 && t.lastRepeatOpen != -1 {
				return t.rewind()
			}
			// A close without an open, or the last pass: leave the block
			t.repeatNumber = 1
			t.lastRepeatOpen = -1
			t.inWrongEnding = false
		}
	}
	return false
}

func (t *traversal) rewind() bool {
	t.repeatNumber++
	t.logger.Debug("repeating section",
		"from", t.i,
		"to", t.lastRepeatOpen,
		"pass", t.repeatNumber,
		"tick", t.elapsed,
	)
	t.i = t.lastRepeatOpen + 1
	return true
}

// ToMIDI converts a score to standard MIDI file bytes
func (c *Converter) ToMIDI(score *notation.Score) ([]byte, error) {
	seq, err := c.Convert(score)
	if err != nil {
		return nil, err
	}
	return seq.Bytes()
}

// ConvertFile converts a score document to a MIDI file
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	inputFormat := DetectFormat(inputPath)
	outputFormat := DetectFormat(outputPath)

	if inputFormat != FormatJSON && inputFormat != FormatYAML {
		return fmt.Errorf("unsupported input format: %s", inputFormat)
	}
	if outputFormat != FormatMIDI {
		return errors.New("output file must be a .mid or .midi file")
	}

	score, err := notation.LoadFile(inputPath)
	if err != nil {
		return err
	}

	outputData, err := c.ToMIDI(score)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	return nil
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"json -> midi",
		"yaml -> midi",
	}
}
