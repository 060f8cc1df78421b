package noise

import (
	"github.com/cwbudde/algo-focus/dsp/core"
	"github.com/cwbudde/algo-focus/dsp/filter/biquad"
)

// Pink noise pole/gain pairs (Paul Kellet's refined method).
var pinkPoles = [6]float64{0.99886, 0.99332, 0.96900, 0.86650, 0.55000, -0.7616}
var pinkGains = [6]float64{0.0555179, 0.0750759, 0.1538520, 0.3104856, 0.5329522, -0.0168980}

const (
	pinkDirect = 0.5362
	pinkScale  = 0.11

	brownLeak  = 0.97
	brownInput = 0.03
	brownScale = 3.5

	blueScale   = 0.5
	violetScale = 0.05
	greenScale  = 1.5
	grayScale   = 2.0
	rainBed     = 0.3
)

var (
	greenCoefficients = biquad.Coefficients{B0: 0.5, B1: 0, B2: -0.5, A1: 0.8, A2: -0.8}
	grayCoefficients  = biquad.Coefficients{B0: 0.1, B1: 0.2, B2: 0.1, A1: -1.8, A2: 0.85}

	// The green recurrence has a pole at about -1.38. Reflecting it inside
	// the unit circle keeps the magnitude response and makes it bounded.
	stabilizedGreen = stabilize(greenCoefficients)
)

func stabilize(c biquad.Coefficients) biquad.Coefficients {
	s, _ := biquad.Stabilize(c)
	return s
}

// FilterState is the persistent recurrence state of one channel. It lives as
// long as the synthesizer; a new color means a new synthesizer.
type FilterState struct {
	Pink    [6]float64
	Brown   float64
	Prev1   float64 // u[n-1]
	Prev2   float64 // u[n-2]
	Section biquad.Section
}

func newFilterState(c Color) FilterState {
	var st FilterState
	switch c {
	case Green:
		st.Section = biquad.Section{Coefficients: stabilizedGreen}
	case Gray:
		st.Section = biquad.Section{Coefficients: grayCoefficients}
	}
	return st
}

// next advances the recurrence for color c by one uniform draw u.
func (st *FilterState) next(c Color, u float64) float64 {
	switch c {
	case Pink:
		sum := 0.0
		for i := range st.Pink {
			st.Pink[i] = pinkPoles[i]*st.Pink[i] + u*pinkGains[i]
			sum += st.Pink[i]
		}
		return (sum + u*pinkDirect) * pinkScale
	case Brown, Rain:
		st.Brown = core.FlushDenormals(brownLeak*st.Brown + brownInput*u)
		y := st.Brown * brownScale
		if c == Rain {
			y *= rainBed
		}
		return y
	case Blue:
		y := (u - st.Prev1) * blueScale
		st.Prev1 = u
		return y
	case Violet:
		y := (u - 2*st.Prev1 + st.Prev2) * violetScale
		st.Prev2 = st.Prev1
		st.Prev1 = u
		return y
	case Green:
		return st.Section.ProcessSample(u) * greenScale
	case Gray:
		return st.Section.ProcessSample(u) * grayScale
	default:
		return u
	}
}
