package graph

import (
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-focus/dsp/binaural"
	"github.com/cwbudde/algo-focus/dsp/core"
	"github.com/cwbudde/algo-focus/dsp/effects/dynamics"
	"github.com/cwbudde/algo-focus/dsp/filter/biquad"
	"github.com/cwbudde/algo-focus/dsp/noise"
	"github.com/cwbudde/algo-focus/dsp/param"
	"github.com/cwbudde/algo-focus/dsp/spectrum"
	"github.com/cwbudde/algo-focus/internal/source"
	"github.com/cwbudde/algo-focus/internal/strategy"
	"github.com/cwbudde/algo-vecmath"
)

// ChannelGain is the per-channel level applied after the source.
const ChannelGain = 0.8

// ChainSettings are the fixed per-mode processing parameters.
type ChainSettings struct {
	Compressor dynamics.Settings
	LowpassHz  float64
	LowpassQ   float64
}

// SettingsFor returns the chain settings for mode.
func SettingsFor(mode Mode) ChainSettings {
	comp := dynamics.Settings{ThresholdDB: -24, KneeDB: 30, Ratio: 4, AttackMs: 3, ReleaseMs: 250}
	switch mode {
	case Binaural:
		comp.Ratio = 12
		return ChainSettings{Compressor: comp, LowpassHz: 2000, LowpassQ: 0.5}
	case Drone:
		return ChainSettings{Compressor: comp, LowpassHz: 4000, LowpassQ: 0.707}
	default:
		return ChainSettings{Compressor: comp, LowpassHz: 16000, LowpassQ: 0.707}
	}
}

// Params are the user-facing values a chain is built from.
type Params struct {
	Color  noise.Color
	BeatHz float64
	Muted  bool
}

// sourceSlot lets the render path swap sources with one atomic load.
type sourceSlot struct {
	src  source.Source
	tier strategy.Tier
}

// chain is one built graph. Everything below the atomics is render-path
// state and must only be touched from Render.
type chain struct {
	mode     Mode
	color    noise.Color
	ctrl     *binaural.Controller
	topology Topology

	slot   atomic.Pointer[sourceSlot]
	gainL  *param.Param
	gainR  *param.Param
	master *param.Param

	comp *dynamics.Compressor
	lpL  *biquad.Section
	lpR  *biquad.Section

	gainBuf []float64
}

func newChain(mode Mode, p Params, sampleRate float64) (*chain, error) {
	settings := SettingsFor(mode)
	c := &chain{mode: mode, color: p.Color}

	var err error
	if mode == Binaural {
		if c.ctrl, err = binaural.NewController(sampleRate, p.BeatHz); err != nil {
			return nil, err
		}
	}
	if c.gainL, err = param.New(sampleRate, ChannelGain); err != nil {
		return nil, err
	}
	if c.gainR, err = param.New(sampleRate, ChannelGain); err != nil {
		return nil, err
	}
	level := 1.0
	if p.Muted {
		level = 0
	}
	if c.master, err = param.New(sampleRate, level); err != nil {
		return nil, err
	}
	if c.comp, err = dynamics.NewCompressor(sampleRate); err != nil {
		return nil, err
	}
	if err := c.comp.Apply(settings.Compressor); err != nil {
		return nil, fmt.Errorf("compressor settings: %w", err)
	}
	coeffs := biquad.Lowpass(settings.LowpassHz, settings.LowpassQ, sampleRate)
	c.lpL = biquad.NewSection(coeffs)
	c.lpR = biquad.NewSection(coeffs)
	return c, nil
}

func (c *chain) request() strategy.Request {
	req := strategy.Request{Mode: c.mode, Color: c.color}
	if c.ctrl != nil {
		req.Tone = c.ctrl
		req.BeatPair = c.ctrl.Pair()
	}
	return req
}

func (c *chain) source() *sourceSlot { return c.slot.Load() }

// describe records the node list once the source kind is known.
func (c *chain) describe(settings ChainSettings) {
	var stages []Stage
	slot := c.source()
	if slot != nil && slot.src.Kind() == source.KindOscillator {
		stages = append(stages, Stage{StageSource, "oscillator-left"}, Stage{StageSource, "oscillator-right"})
	} else if slot != nil {
		stages = append(stages, Stage{StageSource, slot.src.Kind().String()})
	}
	stages = append(stages,
		Stage{StageChannelGain, "left"},
		Stage{StageChannelGain, "right"},
		Stage{StageMerge, ""},
		Stage{StageCompressor, fmt.Sprintf("ratio %g", settings.Compressor.Ratio)},
		Stage{StageFilter, fmt.Sprintf("lowpass %g Hz", settings.LowpassHz)},
		Stage{StageAnalyser, ""},
		Stage{StageMasterGain, ""},
		Stage{StageSink, ""},
	)
	c.topology = Topology{Mode: c.mode, Stages: stages}
}

func (c *chain) render(left, right []float64, an *spectrum.Analyser) {
	slot := c.source()
	if slot == nil {
		clear(left)
		clear(right)
		return
	}
	slot.src.Process(left, right)

	c.gainBuf = core.EnsureLen(c.gainBuf, len(left))
	c.gainL.Process(c.gainBuf)
	vecmath.MulBlockInPlace(left, c.gainBuf)
	c.gainR.Process(c.gainBuf)
	vecmath.MulBlockInPlace(right, c.gainBuf)

	c.comp.ProcessStereo(left, right)
	c.lpL.ProcessBlock(left)
	c.lpR.ProcessBlock(right)

	if an != nil {
		an.Push(left, right)
	}

	c.master.Process(c.gainBuf)
	vecmath.MulBlockInPlace(left, c.gainBuf)
	vecmath.MulBlockInPlace(right, c.gainBuf)
}

// release stops the source and drops it from the render path. The render
// stages stay intact because Render may still hold the chain for one block.
func (c *chain) release() {
	if slot := c.slot.Swap(nil); slot != nil {
		slot.src.Stop()
	}
	c.ctrl = nil
	c.topology = Topology{}
}
