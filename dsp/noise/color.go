package noise

import (
	"errors"
	"fmt"
	"strings"
)

// Color identifies a noise coloring profile.
type Color int

const (
	White Color = iota
	Pink
	Brown
	Blue
	Violet
	Green
	Gray
	Rain
)

// ErrUnsupported is returned for colors a generation path cannot produce.
var ErrUnsupported = errors.New("noise: unsupported color")

var colorNames = [...]string{
	White:  "white",
	Pink:   "pink",
	Brown:  "brown",
	Blue:   "blue",
	Violet: "violet",
	Green:  "green",
	Gray:   "gray",
	Rain:   "rain",
}

// Colors lists every profile in display order.
func Colors() []Color {
	return []Color{White, Pink, Brown, Green, Blue, Violet, Gray, Rain}
}

func (c Color) String() string {
	if c.Valid() {
		return colorNames[c]
	}
	return fmt.Sprintf("color(%d)", int(c))
}

// Valid reports whether c names a known profile.
func (c Color) Valid() bool {
	return c >= White && c <= Rain
}

// Streamable reports whether c has a per-sample streaming form. Rain is
// only produced as a precomputed loop.
func (c Color) Streamable() bool {
	return c.Valid() && c != Rain
}

// ParseColor resolves a profile name, case-insensitively.
func ParseColor(s string) (Color, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for c, n := range colorNames {
		if n == name {
			return Color(c), nil
		}
	}
	return White, fmt.Errorf("%w: %q", ErrUnsupported, s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupported, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
