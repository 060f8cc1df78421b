package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-focus/internal/config"
)

func job(mode, color string, seconds float64) renderJob {
	return renderJob{
		cfg: config.Config{
			SampleRate: 16000,
			BlockSize:  4096,
			Mode:       mode,
			Color:      color,
			BeatHz:     10,
			Session:    time.Minute,
			FFTSize:    1024,
		},
		seconds: seconds,
		seed:    42,
	}
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRenderWritesWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	res, err := job("noise", "pink", 1).run(f, quiet)
	if cerr := f.Close(); cerr != nil {
		t.Fatal(cerr)
	}
	if err != nil {
		t.Fatal(err)
	}
	if res.frames < 16000 {
		t.Fatalf("frames = %d, want >= 16000", res.frames)
	}
	if res.peak <= 0 || res.peak > 1 {
		t.Fatalf("peak = %v, want in (0, 1]", res.peak)
	}
	if res.levels.RMS <= 0 || res.levels.RMS > res.peak {
		t.Fatalf("rms = %v, peak %v", res.levels.RMS, res.peak)
	}

	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		t.Fatal("output is not a valid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if dec.SampleRate != 16000 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Fatalf("format = %d Hz, %d ch, %d bit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if got := len(buf.Data) / 2; got != res.frames {
		t.Fatalf("decoded %d frames, rendered %d", got, res.frames)
	}
}

func TestRenderEndsWithFade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fade.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := job("binaural", "pink", 0.5).run(f, quiet); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	buf, err := wav.NewDecoder(r).FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	last := buf.Data[len(buf.Data)-2:]
	if abs(last[0]) > 1000 || abs(last[1]) > 1000 {
		t.Fatalf("final frame %v is not faded", last)
	}
}

func TestBrownFallsFasterThanPink(t *testing.T) {
	pink, err := job("noise", "pink", 2).run(nil, quiet)
	if err != nil {
		t.Fatal(err)
	}
	brown, err := job("noise", "brown", 2).run(nil, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if len(pink.bands) == 0 || len(brown.bands) == 0 {
		t.Fatal("no bands analysed")
	}
	if brown.slope >= pink.slope-1 {
		t.Fatalf("brown slope %.2f not steeper than pink %.2f", brown.slope, pink.slope)
	}
	if brown.slope > -3 {
		t.Fatalf("brown slope %.2f dB/oct, want < -3", brown.slope)
	}
}

func TestRejectsBadLength(t *testing.T) {
	if _, err := job("noise", "pink", 0).run(nil, quiet); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestPrintReport(t *testing.T) {
	res, err := job("noise", "white", 1).run(nil, quiet)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	printReport(&out, res)
	for _, want := range []string{"Band [Hz]", "125", "slope", "tier streaming", "dBFS"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out.String())
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
