// Package instrument provides the instrument sources a conversion selects
// its program from
package instrument

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNoInstruments     = errors.New("no instruments available")
	ErrUnknownInstrument = errors.New("unknown instrument")
)

// Instrument is a playable program
type Instrument struct {
	Name    string `json:"name"`
	Bank    int    `json:"bank"`
	Program uint8  `json:"program"`
}

func (i Instrument) String() string {
	return fmt.Sprintf("%03d:%03d %s", i.Bank, i.Program, i.Name)
}

// Source lists the instruments that can be selected. Loading may fail.
type Source interface {
	Instruments() ([]Instrument, error)
}

// Select loads the source and picks an instrument by name (case
// insensitive), by program number or by "bank:program" as printed by
// Instrument.String. A bare program number prefers bank 0. An empty name
// picks the first available instrument.
func Select(src Source, name string) (Instrument, error) {
	if src == nil {
		return Instrument{}, ErrNoInstruments
	}
	list, err := src.Instruments()
	if err != nil {
		return Instrument{}, fmt.Errorf("failed to load instruments: %w", err)
	}
	if len(list) == 0 {
		return Instrument{}, ErrNoInstruments
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return list[0], nil
	}

	if b, p, ok := strings.Cut(name, ":"); ok {
		// Trailing preset name is ignored
		p, _, _ = strings.Cut(p, " ")
		bank, berr := strconv.Atoi(b)
		program, perr := strconv.Atoi(p)
		if berr == nil && perr == nil {
			for _, inst := range list {
				if inst.Bank == bank && int(inst.Program) == program {
					return inst, nil
				}
			}
			return Instrument{}, fmt.Errorf("%w: bank %d program %d", ErrUnknownInstrument, bank, program)
		}
	}

	if program, err := strconv.Atoi(name); err == nil {
		found := -1
		for i, inst := range list {
			if int(inst.Program) != program {
				continue
			}
			if inst.Bank == 0 {
				return inst, nil
			}
			if found < 0 {
				found = i
			}
		}
		if found >= 0 {
			return list[found], nil
		}
		return Instrument{}, fmt.Errorf("%w: program %d", ErrUnknownInstrument, program)
	}

	for _, inst := range list {
		if strings.EqualFold(inst.Name, name) {
			return inst, nil
		}
	}
	return Instrument{}, fmt.Errorf("%w: %q", ErrUnknownInstrument, name)
}
