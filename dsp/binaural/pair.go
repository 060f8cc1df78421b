// Package binaural derives and renders the stereo oscillator pair that
// produces a binaural beat: two sines a beat frequency apart, centered on a
// fixed carrier, one per ear.
package binaural

import "github.com/cwbudde/algo-focus/dsp/core"

const (
	// CarrierHz is the center frequency of the pair.
	CarrierHz = 250.0

	MinBeatHz     = 1.0
	MaxBeatHz     = 30.0
	DefaultBeatHz = 10.0
)

// Pair is a carrier and beat resolved into per-ear frequencies.
type Pair struct {
	CarrierHz float64
	BeatHz    float64
	LeftHz    float64
	RightHz   float64
}

// NewPair clamps beatHz to [MinBeatHz, MaxBeatHz] and splits it around the
// carrier, so RightHz-LeftHz == BeatHz and the mean is CarrierHz.
func NewPair(beatHz float64) Pair {
	beat := core.Clamp(beatHz, MinBeatHz, MaxBeatHz)
	if beat != beat {
		beat = DefaultBeatHz
	}
	return Pair{
		CarrierHz: CarrierHz,
		BeatHz:    beat,
		LeftHz:    CarrierHz - beat/2,
		RightHz:   CarrierHz + beat/2,
	}
}

// Category is the brainwave band a beat frequency falls into. It is a
// label only.
type Category string

const (
	Delta Category = "Delta"
	Theta Category = "Theta"
	Alpha Category = "Alpha"
	Beta  Category = "Beta"
)

// CategoryOf maps a beat frequency onto its band.
func CategoryOf(beatHz float64) Category {
	switch {
	case beatHz <= 4:
		return Delta
	case beatHz <= 8:
		return Theta
	case beatHz <= 13:
		return Alpha
	default:
		return Beta
	}
}

// Preset is a named beat frequency offered by the UI.
type Preset struct {
	Category Category
	BeatHz   float64
}

// Presets lists one representative beat per band.
var Presets = []Preset{
	{Delta, 2},
	{Theta, 6},
	{Alpha, 10},
	{Beta, 20},
}
