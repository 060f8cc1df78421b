package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"text/tabwriter"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-focus/dsp/noise"
	"github.com/cwbudde/algo-focus/internal/config"
	"github.com/cwbudde/algo-focus/internal/engine"
	"github.com/cwbudde/algo-focus/internal/host"
	"github.com/cwbudde/algo-focus/internal/strategy"
	"github.com/cwbudde/algo-focus/stats/frequency"
	"github.com/cwbudde/algo-focus/stats/level"
)

const (
	renderBlock   = 1024
	bitDepth      = 16
	welchSegment  = 4096
	lowestBandHz  = 125.0
	maxTail       = 5 * time.Second
	pcmFormatWAVE = 1
)

type renderJob struct {
	cfg     config.Config
	seconds float64
	seed    uint64
}

type renderResult struct {
	frames     int
	sampleRate float64
	tier       string
	peak       float64
	levels     level.Levels
	bands      []frequency.Band
	slope      float64
	centroid   float64
}

// run plays the configured session through the full engine on an offline
// device, including the fade-out on stop. The mid channel is analysed;
// when w is non-nil the stereo output is written as 16-bit WAV.
func (j renderJob) run(w io.WriteSeeker, log *slog.Logger) (renderResult, error) {
	if j.seconds <= 0 || math.IsNaN(j.seconds) {
		return renderResult{}, fmt.Errorf("render length must be positive: %v", j.seconds)
	}
	rate := j.cfg.SampleRate
	dev := host.NewOffline(float64(rate), host.Capabilities{Streaming: true, BlockSize: max(j.cfg.BlockSize, 0)})

	var extra engine.Options
	if j.seed != 0 {
		extra.Strategy = append(extra.Strategy, strategy.WithNoiseOptions(noise.WithSeed(j.seed)))
	}
	p, err := engine.New(dev, j.cfg, log, extra)
	if err != nil {
		return renderResult{}, err
	}
	ctx := context.Background()
	defer func() { _ = p.Close(ctx) }()

	if err := p.Start(ctx); err != nil {
		return renderResult{}, err
	}
	st := p.Status()
	if !st.Playing {
		return renderResult{}, errors.New("playback did not start")
	}

	var enc *wav.Encoder
	ibuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		SourceBitDepth: bitDepth,
	}
	if w != nil {
		enc = wav.NewEncoder(w, rate, bitDepth, 2, pcmFormatWAVE)
	}

	res := renderResult{sampleRate: float64(rate), tier: st.Tier}
	var mid []float64
	out := make([]float32, 2*renderBlock)
	emit := func(frames int) error {
		out = dev.Pull(out, frames)
		ibuf.Data = ibuf.Data[:0]
		for i := 0; i < frames; i++ {
			l, r := float64(out[2*i]), float64(out[2*i+1])
			res.peak = max(res.peak, math.Abs(l), math.Abs(r))
			mid = append(mid, 0.5*(l+r))
			ibuf.Data = append(ibuf.Data, toPCM(l), toPCM(r))
		}
		res.frames += frames
		if enc == nil {
			return nil
		}
		return enc.Write(ibuf)
	}

	total := int(j.seconds * float64(rate))
	for done := 0; done < total; {
		n := min(renderBlock, total-done)
		if err := emit(n); err != nil {
			return res, fmt.Errorf("write wav: %w", err)
		}
		done += n
	}

	// Keep pulling while Stop fades out so the tail lands in the file. The
	// short sleep lets the stop goroutine schedule its ramp.
	stopped := make(chan error, 1)
	go func() { stopped <- p.Stop(ctx) }()
	tailBudget := int(maxTail.Seconds() * float64(rate))
tail:
	for {
		select {
		case err := <-stopped:
			if err != nil {
				return res, err
			}
			break tail
		default:
		}
		if tailBudget <= 0 {
			if err := <-stopped; err != nil {
				return res, err
			}
			break
		}
		n := min(renderBlock/4, tailBudget)
		if err := emit(n); err != nil {
			return res, fmt.Errorf("write wav: %w", err)
		}
		tailBudget -= n
		time.Sleep(time.Millisecond)
	}

	if enc != nil {
		if err := enc.Close(); err != nil {
			return res, fmt.Errorf("close wav: %w", err)
		}
	}
	body := mid[:min(len(mid), total)]
	res.levels = level.Measure(body)
	if err := analyse(&res, body); err != nil {
		log.Warn("spectrum analysis skipped", "err", err)
	}
	return res, nil
}

func analyse(res *renderResult, mid []float64) error {
	spec, err := frequency.Welch(mid, res.sampleRate, welchSegment)
	if err != nil {
		return err
	}
	top := lowestBandHz
	for top*2*math.Sqrt2 <= res.sampleRate/2 {
		top *= 2
	}
	bands, err := frequency.OctaveBands(spec, lowestBandHz, top)
	if err != nil {
		return err
	}
	res.bands = bands
	res.slope = frequency.Slope(bands)
	res.centroid = frequency.Centroid(spec)
	return nil
}

func toPCM(v float64) int {
	v = math.Max(-1, math.Min(1, v))
	return int(math.Round(v * math.MaxInt16))
}

func printReport(w io.Writer, res renderResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Band [Hz]\tDensity [dB]\n")
	_, _ = fmt.Fprintf(tw, "---------\t------------\n")
	for _, b := range res.bands {
		_, _ = fmt.Fprintf(tw, "%.0f\t%.2f\n", b.Center, b.DensityDB)
	}
	if err := tw.Flush(); err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "\ntier %s, %d frames at %.0f Hz, peak %.3f\n", res.tier, res.frames, res.sampleRate, res.peak)
	_, _ = fmt.Fprintf(w, "rms %.1f dBFS, crest %.1f dB, dc %.4f\n", res.levels.RMSdB(), res.levels.CrestDB(), res.levels.DC)
	if len(res.bands) > 0 {
		_, _ = fmt.Fprintf(w, "slope %.2f dB/octave, centroid %.0f Hz\n", res.slope, res.centroid)
	}
}
