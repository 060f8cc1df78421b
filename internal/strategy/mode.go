package strategy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned by ParseMode.
var ErrUnknownMode = errors.New("strategy: unknown mode")

// Mode is the kind of sound a session plays.
type Mode int

const (
	Binaural Mode = iota
	Noise
	Drone
)

func (m Mode) String() string {
	switch m {
	case Binaural:
		return "binaural"
	case Noise:
		return "noise"
	case Drone:
		return "drone"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m >= Binaural && m <= Drone }

// ParseMode resolves a mode name. "om" is accepted for the drone.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binaural":
		return Binaural, nil
	case "noise":
		return Noise, nil
	case "drone", "om":
		return Drone, nil
	}
	return Binaural, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
