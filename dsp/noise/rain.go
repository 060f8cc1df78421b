package noise

import (
	"math"
	"math/rand/v2"
)

const (
	dropletDuration    = 0.04
	dropletProbability = 0.01
	// dropletReferenceRate is the rate at which dropletProbability applies;
	// other rates scale it so droplet density per second stays constant.
	dropletReferenceRate = 48000.0
	dropletStartHz       = 1500.0
	dropletEndHz         = 500.0
	dropletMinPeak       = 0.1
	dropletMaxPeak       = 0.5
	dropletSlots         = 3
)

type droplet struct {
	active bool
	pos    int
	phase  float64
	gainL  float64
	gainR  float64
}

// rainLayer adds short decaying sine sweeps over the brown bed. A new
// droplet may start only after half the previous one has played, so at most
// two overlap.
type rainLayer struct {
	sampleRate  float64
	length      int
	probability float64
	cooldown    int
	spawned     int
	drops       [dropletSlots]droplet
}

func newRainLayer(sampleRate float64) *rainLayer {
	length := int(sampleRate * dropletDuration)
	if length < 2 {
		length = 2
	}
	return &rainLayer{
		sampleRate:  sampleRate,
		length:      length,
		probability: dropletProbability * dropletReferenceRate / sampleRate,
	}
}

// maybeSpawn draws for a new droplet. allowStart is false near the end of a
// finite buffer so no droplet is cut off by the loop seam.
func (r *rainLayer) maybeSpawn(rng *rand.Rand, allowStart bool) {
	if r.cooldown > 0 {
		r.cooldown--
		return
	}
	if !allowStart || rng.Float64() >= r.probability {
		return
	}
	for i := range r.drops {
		d := &r.drops[i]
		if d.active {
			continue
		}
		peak := dropletMinPeak + rng.Float64()*(dropletMaxPeak-dropletMinPeak)
		pan := rng.Float64()
		*d = droplet{
			active: true,
			gainL:  math.Sqrt(1-pan) * peak,
			gainR:  math.Sqrt(pan) * peak,
		}
		r.cooldown = r.length / 2
		r.spawned++
		return
	}
}

// render returns the droplet contribution for the current sample.
func (r *rainLayer) render() (float64, float64) {
	var l, rr float64
	for i := range r.drops {
		d := &r.drops[i]
		if !d.active {
			continue
		}
		p := float64(d.pos) / float64(r.length)
		env := (1 - p) * math.Exp(-5*p)
		freq := dropletStartHz - p*(dropletStartHz-dropletEndHz)
		s := math.Sin(d.phase) * env
		l += s * d.gainL
		rr += s * d.gainR

		d.phase += 2 * math.Pi * freq / r.sampleRate
		if d.phase > 2*math.Pi {
			d.phase -= 2 * math.Pi
		}
		d.pos++
		if d.pos >= r.length {
			d.active = false
		}
	}
	return l, rr
}

func (r *rainLayer) activeCount() int {
	n := 0
	for i := range r.drops {
		if r.drops[i].active {
			n++
		}
	}
	return n
}
