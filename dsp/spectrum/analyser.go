package spectrum

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-focus/dsp/window"
)

const (
	defaultSmoothing = 0.85
	defaultMinDB     = -100.0
	defaultMaxDB     = -30.0
)

// Option configures an Analyser.
type Option func(*Analyser)

// WithSmoothing sets the time smoothing constant in [0, 1).
func WithSmoothing(s float64) Option {
	return func(a *Analyser) {
		if s >= 0 && s < 1 {
			a.smoothing = s
		}
	}
}

// WithDecibelRange sets the range mapped onto byte data.
func WithDecibelRange(minDB, maxDB float64) Option {
	return func(a *Analyser) {
		if minDB < maxDB {
			a.minDB, a.maxDB = minDB, maxDB
		}
	}
}

// Analyser keeps a ring of the latest fftSize mono samples and turns them
// into smoothed magnitude spectra on demand.
type Analyser struct {
	mu sync.Mutex

	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64

	ring   []float64
	write  int
	filled int

	window   []float64
	plan     *algofft.Plan[complex128]
	frame    []float64
	in       []complex128
	out      []complex128
	re       []float64
	im       []float64
	mag      []float64
	smoothed []float64
	skipped  atomic.Uint64
	failed   uint64 // guarded by mu
}

// NewAnalyser creates an analyser for a power-of-two fftSize in [32, 32768].
func NewAnalyser(fftSize int, opts ...Option) (*Analyser, error) {
	if fftSize < 32 || fftSize > 32768 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("analyser fft size must be a power of two in [32, 32768]: %d", fftSize)
	}
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("analyser init fft plan: %w", err)
	}

	bins := fftSize / 2
	a := &Analyser{
		fftSize:   fftSize,
		smoothing: defaultSmoothing,
		minDB:     defaultMinDB,
		maxDB:     defaultMaxDB,
		ring:      make([]float64, fftSize),
		window:    window.Generate(window.TypeBlackman, fftSize, window.WithPeriodic()),
		plan:      plan,
		frame:     make([]float64, fftSize),
		in:        make([]complex128, fftSize),
		out:       make([]complex128, fftSize),
		re:        make([]float64, bins),
		im:        make([]float64, bins),
		mag:       make([]float64, bins),
		smoothed:  make([]float64, bins),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// FFTSize returns the transform length.
func (a *Analyser) FFTSize() int { return a.fftSize }

// FrequencyBinCount is half the FFT size.
func (a *Analyser) FrequencyBinCount() int { return a.fftSize / 2 }

// Push records the mono mix of a stereo block. It never blocks: when a
// snapshot holds the lock the block is dropped.
func (a *Analyser) Push(left, right []float64) {
	if !a.mu.TryLock() {
		a.skipped.Add(1)
		return
	}
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		a.ring[a.write] = 0.5 * (left[i] + right[i])
		a.write++
		if a.write == a.fftSize {
			a.write = 0
		}
	}
	a.filled += n
	if a.filled > a.fftSize {
		a.filled = a.fftSize
	}
	a.mu.Unlock()
}

// FloatFrequencyData writes the smoothed spectrum in dB into dst, growing
// it to FrequencyBinCount entries.
func (a *Analyser) FloatFrequencyData(dst []float64) []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.refresh()
	if cap(dst) < len(a.smoothed) {
		dst = make([]float64, len(a.smoothed))
	}
	dst = dst[:len(a.smoothed)]
	for i, m := range a.smoothed {
		dst[i] = toDB(m)
	}
	return dst
}

// ByteFrequencyData writes the smoothed spectrum mapped linearly from
// [minDB, maxDB] onto [0, 255].
func (a *Analyser) ByteFrequencyData(dst []uint8) []uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.refresh()
	if cap(dst) < len(a.smoothed) {
		dst = make([]uint8, len(a.smoothed))
	}
	dst = dst[:len(a.smoothed)]
	scale := 255 / (a.maxDB - a.minDB)
	for i, m := range a.smoothed {
		v := math.Floor((toDB(m) - a.minDB) * scale)
		switch {
		case v < 0:
			dst[i] = 0
		case v > 255:
			dst[i] = 255
		default:
			dst[i] = uint8(v)
		}
	}
	return dst
}

// Skipped reports how many blocks Push dropped due to contention.
func (a *Analyser) Skipped() uint64 {
	return a.skipped.Load()
}

// Reset clears the ring and the smoothing history.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.ring {
		a.ring[i] = 0
	}
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
	a.write = 0
	a.filled = 0
}

// Failed reports how many snapshots could not be analysed; the previous
// spectrum is kept in that case.
func (a *Analyser) Failed() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failed
}

// refresh must be called with mu held.
func (a *Analyser) refresh() {
	if err := a.analyse(); err != nil {
		a.failed++
	}
}

// analyse runs one windowed FFT over the ring and folds it into the
// smoothed magnitudes. Caller holds mu.
func (a *Analyser) analyse() error {
	read := a.write
	for i := range a.frame {
		a.frame[i] = a.ring[read]
		read++
		if read == a.fftSize {
			read = 0
		}
	}
	if err := window.ApplyInPlace(a.frame, a.window); err != nil {
		return err
	}
	for i, s := range a.frame {
		a.in[i] = complex(s, 0)
	}

	if err := a.plan.Forward(a.out, a.in); err != nil {
		return err
	}

	for i := range a.re {
		a.re[i] = real(a.out[i])
		a.im[i] = imag(a.out[i])
	}
	vecmath.Magnitude(a.mag, a.re, a.im)

	norm := 1 / float64(a.fftSize)
	s := a.smoothing
	for i, m := range a.mag {
		a.smoothed[i] = s*a.smoothed[i] + (1-s)*m*norm
	}
	return nil
}

func toDB(m float64) float64 {
	if m <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(m)
}
