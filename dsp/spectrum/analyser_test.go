package spectrum

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-focus/internal/testutil"
)

func TestNewAnalyserRejectsBadSize(t *testing.T) {
	for _, n := range []int{0, 16, 1000, 65536} {
		if _, err := NewAnalyser(n); err == nil {
			t.Fatalf("NewAnalyser(%d) expected error", n)
		}
	}
}

func TestAnalyserPeaksAtToneBin(t *testing.T) {
	const (
		n  = 2048
		sr = 48000.0
	)
	a, err := NewAnalyser(n, WithSmoothing(0))
	if err != nil {
		t.Fatal(err)
	}

	// Exactly bin 64.
	freq := 64 * sr / n
	left := testutil.Sine(freq, sr, 0.5, n)
	a.Push(left, left)

	db := a.FloatFrequencyData(nil)
	if len(db) != a.FrequencyBinCount() {
		t.Fatalf("len = %d, want %d", len(db), a.FrequencyBinCount())
	}
	peak := 0
	for i := range db {
		if db[i] > db[peak] {
			peak = i
		}
	}
	if peak != 64 {
		t.Fatalf("peak bin = %d, want 64", peak)
	}
}

func TestByteDataSilenceIsZero(t *testing.T) {
	a, _ := NewAnalyser(1024)
	data := a.ByteFrequencyData(nil)
	if len(data) != 512 {
		t.Fatalf("len = %d", len(data))
	}
	for i, v := range data {
		if v != 0 {
			t.Fatalf("bin %d = %d, want 0", i, v)
		}
	}
}

func TestSmoothingBlendsSnapshots(t *testing.T) {
	a, _ := NewAnalyser(256, WithSmoothing(0.5))
	left := testutil.Sine(16, 256, 1, 256)
	a.Push(left, left)

	first := a.FloatFrequencyData(nil)[16]
	second := a.FloatFrequencyData(nil)[16]
	// Same input twice: magnitude goes from m/2 to 3m/4, about +3.5 dB.
	if d := second - first; math.Abs(d-20*math.Log10(1.5)) > 1e-6 {
		t.Fatalf("smoothing delta = %v dB", d)
	}
}

func TestAnalysisFailureKeepsSnapshot(t *testing.T) {
	a, _ := NewAnalyser(256, WithSmoothing(0))
	tone := testutil.Sine(16, 256, 1, 256)
	a.Push(tone, tone)
	before := a.ByteFrequencyData(nil)
	if before[16] == 0 {
		t.Fatal("tone bin empty")
	}

	a.window = a.window[:8]
	a.Push(make([]float64, 256), make([]float64, 256))
	after := a.ByteFrequencyData(nil)
	if a.Failed() != 1 {
		t.Fatalf("Failed() = %d, want 1", a.Failed())
	}
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("bin %d changed after failed analysis: %d -> %d", i, before[i], after[i])
		}
	}
}
