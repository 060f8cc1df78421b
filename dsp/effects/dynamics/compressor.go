package dynamics

import (
	"fmt"
	"math"
)

const (
	defaultCompressorThresholdDB = -24.0
	defaultCompressorRatio       = 12.0
	defaultCompressorKneeDB      = 30.0
	defaultCompressorAttackMs    = 3.0
	defaultCompressorReleaseMs   = 250.0

	minCompressorRatio     = 1.0
	maxCompressorRatio     = 20.0
	minCompressorAttackMs  = 0.0
	maxCompressorAttackMs  = 1000.0
	minCompressorReleaseMs = 0.0
	maxCompressorReleaseMs = 1000.0
	minCompressorKneeDB    = 0.0
	maxCompressorKneeDB    = 40.0
	minCompressorThreshold = -100.0
	maxCompressorThreshold = 0.0

	// makeupExponent scales the full-range gain reduction into makeup gain.
	makeupExponent = 0.6

	// log2Of10Div20 converts dB to the log2 domain: log2(10) / 20.
	log2Of10Div20 = 0.166096404744
)

// Settings is a complete compressor parameter set.
type Settings struct {
	ThresholdDB float64
	KneeDB      float64
	Ratio       float64
	AttackMs    float64
	ReleaseMs   float64
}

// CompressorMetrics holds metering information since the last reset.
type CompressorMetrics struct {
	InputPeak     float64
	OutputPeak    float64
	GainReduction float64 // minimum linear gain before makeup
}

// Compressor is a stereo-linked soft-knee compressor with log2-domain gain
// computation. Both channels share one envelope follower driven by the
// louder channel, so the stereo image does not shift under compression.
//
// Makeup gain is derived automatically from the reduction a full-scale
// signal would receive.
//
// Not safe for concurrent use; configure before handing it to the render path.
type Compressor struct {
	thresholdDB float64
	ratio       float64
	kneeDB      float64
	attackMs    float64
	releaseMs   float64

	sampleRate float64

	envelope float64

	attackCoeff      float64
	releaseCoeff     float64
	thresholdLog2    float64
	kneeWidthLog2    float64
	invKneeWidthLog2 float64
	makeupGainLin    float64

	metrics CompressorMetrics
}

// NewCompressor creates a compressor with threshold -24 dB, knee 30 dB,
// ratio 12, attack 3 ms and release 250 ms.
func NewCompressor(sampleRate float64) (*Compressor, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("compressor sample rate must be positive and finite: %f", sampleRate)
	}

	c := &Compressor{
		thresholdDB: defaultCompressorThresholdDB,
		ratio:       defaultCompressorRatio,
		kneeDB:      defaultCompressorKneeDB,
		attackMs:    defaultCompressorAttackMs,
		releaseMs:   defaultCompressorReleaseMs,
		sampleRate:  sampleRate,
	}
	c.updateCoefficients()
	c.ResetMetrics()
	return c, nil
}

// Apply validates and installs every field of s.
func (c *Compressor) Apply(s Settings) error {
	if err := validateRange("threshold", s.ThresholdDB, minCompressorThreshold, maxCompressorThreshold); err != nil {
		return err
	}
	if err := validateRange("knee", s.KneeDB, minCompressorKneeDB, maxCompressorKneeDB); err != nil {
		return err
	}
	if err := validateRange("ratio", s.Ratio, minCompressorRatio, maxCompressorRatio); err != nil {
		return err
	}
	if err := validateRange("attack", s.AttackMs, minCompressorAttackMs, maxCompressorAttackMs); err != nil {
		return err
	}
	if err := validateRange("release", s.ReleaseMs, minCompressorReleaseMs, maxCompressorReleaseMs); err != nil {
		return err
	}

	c.thresholdDB = s.ThresholdDB
	c.kneeDB = s.KneeDB
	c.ratio = s.Ratio
	c.attackMs = s.AttackMs
	c.releaseMs = s.ReleaseMs
	c.updateCoefficients()
	return nil
}

// SetRatio sets the compression ratio in [1, 20].
func (c *Compressor) SetRatio(ratio float64) error {
	if err := validateRange("ratio", ratio, minCompressorRatio, maxCompressorRatio); err != nil {
		return err
	}
	c.ratio = ratio
	c.updateCoefficients()
	return nil
}

// SetThreshold sets the threshold in dBFS, [-100, 0].
func (c *Compressor) SetThreshold(dB float64) error {
	if err := validateRange("threshold", dB, minCompressorThreshold, maxCompressorThreshold); err != nil {
		return err
	}
	c.thresholdDB = dB
	c.updateCoefficients()
	return nil
}

func validateRange(name string, v, lo, hi float64) error {
	if v < lo || v > hi || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("compressor %s must be in [%f, %f]: %f", name, lo, hi, v)
	}
	return nil
}

// Settings returns the active parameter set.
func (c *Compressor) Settings() Settings {
	return Settings{
		ThresholdDB: c.thresholdDB,
		KneeDB:      c.kneeDB,
		Ratio:       c.ratio,
		AttackMs:    c.attackMs,
		ReleaseMs:   c.releaseMs,
	}
}

// MakeupGain returns the automatic makeup gain (linear).
func (c *Compressor) MakeupGain() float64 { return c.makeupGainLin }

// ProcessStereo compresses left and right in place with a linked detector.
func (c *Compressor) ProcessStereo(left, right []float64) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		l, r := left[i], right[i]
		level := math.Max(math.Abs(l), math.Abs(r))
		reduction := c.follow(level)
		gain := reduction * c.makeupGainLin
		left[i] = l * gain
		right[i] = r * gain
		c.updateMetrics(level, math.Max(math.Abs(left[i]), math.Abs(right[i])), reduction)
	}
}

// ProcessSample compresses one mono sample.
func (c *Compressor) ProcessSample(input float64) float64 {
	level := math.Abs(input)
	reduction := c.follow(level)
	out := input * reduction * c.makeupGainLin
	c.updateMetrics(level, math.Abs(out), reduction)
	return out
}

func (c *Compressor) follow(level float64) float64 {
	if level > c.envelope {
		c.envelope += (level - c.envelope) * c.attackCoeff
	} else {
		c.envelope = level + (c.envelope-level)*c.releaseCoeff
	}
	if c.envelope < 1e-30 {
		c.envelope = 0
	}
	return c.calculateGain(c.envelope)
}

// CalculateOutputLevel returns the steady-state output magnitude for an
// input magnitude, including makeup gain.
func (c *Compressor) CalculateOutputLevel(inputMagnitude float64) float64 {
	inputMagnitude = math.Abs(inputMagnitude)
	return inputMagnitude * c.calculateGain(inputMagnitude) * c.makeupGainLin
}

// Reset clears the envelope follower and metrics.
func (c *Compressor) Reset() {
	c.envelope = 0
	c.ResetMetrics()
}

// GetMetrics returns current metering values.
func (c *Compressor) GetMetrics() CompressorMetrics {
	return c.metrics
}

// ResetMetrics clears metering state.
func (c *Compressor) ResetMetrics() {
	c.metrics = CompressorMetrics{GainReduction: 1}
}

func (c *Compressor) updateCoefficients() {
	c.thresholdLog2 = c.thresholdDB * log2Of10Div20
	c.kneeWidthLog2 = c.kneeDB * log2Of10Div20
	if c.kneeDB > 0 {
		c.invKneeWidthLog2 = 1 / c.kneeWidthLog2
	} else {
		c.invKneeWidthLog2 = 0
	}

	c.makeupGainLin = math.Pow(1/c.calculateGain(1), makeupExponent)

	c.updateTimeConstants()
}

func (c *Compressor) updateTimeConstants() {
	c.attackCoeff = timeCoeff(c.attackMs, c.sampleRate, true)
	c.releaseCoeff = timeCoeff(c.releaseMs, c.sampleRate, false)
}

// timeCoeff returns the one-pole coefficient for a half-life of ms. A zero
// time means an instantaneous follower.
func timeCoeff(ms, sampleRate float64, attack bool) float64 {
	if ms <= 0 {
		if attack {
			return 1
		}
		return 0
	}
	k := math.Exp(-math.Ln2 / (ms * 0.001 * sampleRate))
	if attack {
		return 1 - k
	}
	return k
}

// calculateGain computes the gain multiplier with a quadratic soft knee in
// the log2 domain.
func (c *Compressor) calculateGain(level float64) float64 {
	if level <= 0 {
		return 1
	}

	overshoot := gainLog2(level) - c.thresholdLog2

	if c.kneeDB <= 0 {
		if overshoot <= 0 {
			return 1
		}
		return gainExp2(-overshoot * (1 - 1/c.ratio))
	}

	halfWidth := c.kneeWidthLog2 * 0.5
	var effective float64

	switch {
	case overshoot < -halfWidth:
		return 1
	case overshoot > halfWidth:
		effective = overshoot
	default:
		scratch := overshoot + halfWidth
		effective = scratch * scratch * 0.5 * c.invKneeWidthLog2
	}

	return gainExp2(-effective * (1 - 1/c.ratio))
}

func (c *Compressor) updateMetrics(inputLevel, outputLevel, gain float64) {
	if inputLevel > c.metrics.InputPeak {
		c.metrics.InputPeak = inputLevel
	}
	if outputLevel > c.metrics.OutputPeak {
		c.metrics.OutputPeak = outputLevel
	}
	if gain < c.metrics.GainReduction {
		c.metrics.GainReduction = gain
	}
}
