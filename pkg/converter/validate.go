package converter

import (
	"fmt"
)

// Status byte constants
const (
	SysExStart  = 0xF0
	SysExEnd    = 0xF7
	MetaEvent   = 0xFF
	MetaTempo   = 0x51
	statusFloor = 0x80
)

// ValidateMessage checks that a message is complete and well formed
// before it is written to a sequence
func ValidateMessage(msg []byte) error {
	if len(msg) == 0 {
		return fmt.Errorf("%w: empty message", ErrInvalidMessage)
	}

	status := msg[0]
	switch {
	case status == MetaEvent:
		return validateMeta(msg)
	case status == SysExStart:
		return validateSysEx(msg)
	case status < statusFloor:
		return fmt.Errorf("%w: missing status byte, got 0x%02X", ErrInvalidMessage, status)
	case status > SysExStart:
		return fmt.Errorf("%w: system message 0x%02X cannot be stored in a track", ErrInvalidMessage, status)
	}

	want := 3
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		want = 2
	}
	if len(msg) != want {
		return fmt.Errorf("%w: status 0x%02X needs %d bytes, got %d", ErrInvalidMessage, status, want, len(msg))
	}

	// Check all data bytes are 7-bit
	for i := 1; i < len(msg); i++ {
		if msg[i] > 127 {
			return fmt.Errorf("%w: byte at position %d is > 127 (0x%02X)", ErrInvalidMessage, i, msg[i])
		}
	}
	return nil
}

// validateMeta checks a meta event: FF type length data...
func validateMeta(msg []byte) error {
	if len(msg) < 3 {
		return fmt.Errorf("%w: meta event too short", ErrInvalidMessage)
	}
	if msg[1] > 127 {
		return fmt.Errorf("%w: invalid meta type 0x%02X", ErrInvalidMessage, msg[1])
	}

	// Length is a variable-length quantity
	var length, i int
	for i = 2; i < len(msg) && i < 6; i++ {
		length = length<<7 | int(msg[i]&0x7F)
		if msg[i]&0x80 == 0 {
			break
		}
	}
	if i >= len(msg) || i >= 6 {
		return fmt.Errorf("%w: truncated meta length", ErrInvalidMessage)
	}
	if got := len(msg) - i - 1; got != length {
		return fmt.Errorf("%w: meta 0x%02X declares %d data bytes, got %d", ErrInvalidMessage, msg[1], length, got)
	}
	if msg[1] == MetaTempo && length != 3 {
		return fmt.Errorf("%w: tempo meta needs 3 data bytes", ErrInvalidMessage)
	}
	return nil
}

// validateSysEx validates SysEx structure
func validateSysEx(msg []byte) error {
	if len(msg) < 2 {
		return fmt.Errorf("%w: sysex too short", ErrInvalidMessage)
	}

	if msg[len(msg)-1] != SysExEnd {
		return fmt.Errorf("%w: expected end byte 0x%02X, got 0x%02X", ErrInvalidMessage, SysExEnd, msg[len(msg)-1])
	}

	for i := 1; i < len(msg)-1; i++ {
		if msg[i] > 127 {
			return fmt.Errorf("%w: sysex byte at position %d is > 127 (0x%02X)", ErrInvalidMessage, i, msg[i])
		}
	}

	return nil
}
