package instrument

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// SoundFont exposes the presets of a loaded SoundFont (.sf2) as instruments
type SoundFont struct {
	Name    string
	presets []Instrument
}

// LoadSoundFont parses a SoundFont and collects its presets
func LoadSoundFont(r io.Reader) (sf *SoundFont, e error) {
	// meltysynth may panic on malformed chunks
	defer func() {
		if rec := recover(); rec != nil {
			sf, e = nil, fmt.Errorf("failed to parse soundfont: %v", rec)
		}
	}()

	font, err := meltysynth.NewSoundFont(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse soundfont: %w", err)
	}

	sf = &SoundFont{}
	if font.Info != nil {
		sf.Name = font.Info.BankName
	}
	for _, p := range font.Presets {
		if p.PatchNumber < 0 || p.PatchNumber > 127 {
			continue
		}
		sf.presets = append(sf.presets, Instrument{
			Name:    p.Name,
			Bank:    int(p.BankNumber),
			Program: uint8(p.PatchNumber),
		})
	}
	sort.SliceStable(sf.presets, func(i, j int) bool {
		if sf.presets[i].Bank != sf.presets[j].Bank {
			return sf.presets[i].Bank < sf.presets[j].Bank
		}
		return sf.presets[i].Program < sf.presets[j].Program
	})
	return sf, nil
}

// Instruments returns the presets ordered by bank and program
func (s *SoundFont) Instruments() ([]Instrument, error) {
	out := make([]Instrument, len(s.presets))
	copy(out, s.presets)
	return out, nil
}

type soundFontFile struct {
	path string
	once sync.Once
	sf   *SoundFont
	err  error
}

// SoundFontFile returns a source that loads the SoundFont at path the
// first time its instruments are requested
func SoundFontFile(path string) Source {
	return &soundFontFile{path: path}
}

func (s *soundFontFile) Instruments() ([]Instrument, error) {
	s.once.Do(func() {
		data, err := os.ReadFile(s.path)
		if err != nil {
			s.err = fmt.Errorf("failed to read soundfont %s: %w", s.path, err)
			return
		}
		s.sf, s.err = LoadSoundFont(bytes.NewReader(data))
	})
	if s.err != nil {
		return nil, s.err
	}
	return s.sf.Instruments()
}
