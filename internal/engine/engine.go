// Package engine assembles a Player from configuration and an output
// device. The commands share it.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/algo-focus/dsp/noise"
	"github.com/cwbudde/algo-focus/internal/config"
	"github.com/cwbudde/algo-focus/internal/graph"
	"github.com/cwbudde/algo-focus/internal/host"
	"github.com/cwbudde/algo-focus/internal/player"
	"github.com/cwbudde/algo-focus/internal/strategy"
)

// Options extend the assembled engine, mostly for tests and tools.
type Options struct {
	Strategy []strategy.Option
	Graph    []graph.Option
	Player   []player.Option
}

// New wires dev through host, selector and graph into a Player configured
// from cfg. The returned Player owns the host context.
func New(dev host.Device, cfg config.Config, log *slog.Logger, extra Options) (*player.Player, error) {
	if log == nil {
		log = slog.Default()
	}
	mode, err := strategy.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	color, err := noise.ParseColor(cfg.Color)
	if err != nil {
		return nil, err
	}

	h, err := host.New(dev)
	if err != nil {
		return nil, err
	}
	caps := h.Capabilities()
	log.Debug("host probed", "rate", h.SampleRate(), "streaming", caps.Streaming, "block", caps.BlockSize)

	sel, err := strategy.New(caps, append([]strategy.Option{
		strategy.WithSampleRate(h.SampleRate()),
		strategy.WithLogger(log.With("component", "strategy")),
	}, extra.Strategy...)...)
	if err != nil {
		_ = h.Close()
		return nil, err
	}

	graphOpts := []graph.Option{graph.WithLogger(log.With("component", "graph"))}
	if cfg.FFTSize > 0 {
		graphOpts = append(graphOpts, graph.WithFFTSize(cfg.FFTSize))
	}
	mgr, err := graph.NewManager(h, sel, append(graphOpts, extra.Graph...)...)
	if err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	p, err := player.New(mgr, append([]player.Option{
		player.WithLogger(log.With("component", "player")),
		player.WithMode(mode),
		player.WithNoiseColor(color),
		player.WithBeatFrequency(cfg.BeatHz),
	}, extra.Player...)...)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	if err := p.SetSessionDuration(cfg.Session); err != nil {
		return nil, err
	}
	if err := p.SetMuted(cfg.Muted); err != nil {
		return nil, err
	}
	return p, nil
}
