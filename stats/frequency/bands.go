package frequency

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Band summarizes one octave of a Spectrum.
type Band struct {
	Center    float64
	Energy    float64 // summed power
	DensityDB float64 // mean power per bin, in dB
}

// OctaveBands groups s into octaves centered on center, 2*center, ... up to
// and including maxCenter. Band edges are center/sqrt2 and center*sqrt2.
func OctaveBands(s Spectrum, center, maxCenter float64) ([]Band, error) {
	if center <= 0 || maxCenter < center {
		return nil, fmt.Errorf("octave bands need 0 < center <= maxCenter: %f, %f", center, maxCenter)
	}
	if maxCenter*math.Sqrt2 > s.SampleRate/2 {
		return nil, fmt.Errorf("octave band %f Hz exceeds Nyquist", maxCenter)
	}

	binHz := s.BinHz()
	var bands []Band
	for fc := center; fc <= maxCenter*(1+1e-9); fc *= 2 {
		lo := int(math.Ceil(fc / math.Sqrt2 / binHz))
		hi := int(math.Floor(fc * math.Sqrt2 / binHz))
		if lo < 1 {
			lo = 1
		}
		if hi < lo {
			return nil, fmt.Errorf("octave band %f Hz narrower than one bin", fc)
		}
		sum := 0.0
		for k := lo; k <= hi; k++ {
			sum += s.Power[k]
		}
		bands = append(bands, Band{
			Center:    fc,
			Energy:    sum,
			DensityDB: 10 * math.Log10(sum/float64(hi-lo+1)),
		})
	}
	return bands, nil
}

// Slope fits DensityDB against log2(Center) and returns dB per octave.
func Slope(bands []Band) float64 {
	if len(bands) < 2 {
		return 0
	}
	x := make([]float64, len(bands))
	y := make([]float64, len(bands))
	for i, b := range bands {
		x[i] = math.Log2(b.Center)
		y[i] = b.DensityDB
	}
	_, beta := stat.LinearRegression(x, y, nil, false)
	return beta
}

// Monotonic reports whether band densities strictly fall (dir < 0) or
// strictly rise (dir > 0) from one octave to the next.
func Monotonic(bands []Band, dir int) bool {
	for i := 1; i < len(bands); i++ {
		d := bands[i].DensityDB - bands[i-1].DensityDB
		if dir < 0 && d >= 0 || dir > 0 && d <= 0 {
			return false
		}
	}
	return true
}

// Centroid returns the power-weighted mean frequency of s.
func Centroid(s Spectrum) float64 {
	binHz := s.BinHz()
	num, den := 0.0, 0.0
	for k, p := range s.Power {
		num += float64(k) * binHz * p
		den += p
	}
	if den == 0 {
		return 0
	}
	return num / den
}
