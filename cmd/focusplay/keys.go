package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cwbudde/algo-focus/dsp/noise"
	"github.com/cwbudde/algo-focus/internal/graph"
	"github.com/cwbudde/algo-focus/internal/player"
)

const beatStep = 0.5

const helpText = "space play/stop  b/n/d mode  c color  +/- beat  m mute  1-4 duration  q quit"

// handleKey applies one keystroke to p. It reports whether the key asks to quit.
func handleKey(ctx context.Context, p *player.Player, key byte) (bool, error) {
	st := p.Status()
	switch key {
	case 'q', 'Q', 3: // ctrl-c arrives as a byte in raw mode
		return true, nil
	case ' ':
		if st.Playing {
			return false, p.Stop(ctx)
		}
		return false, p.Start(ctx)
	case 'm', 'M':
		return false, p.SetMuted(!st.Muted)
	case 'b', 'B':
		return false, p.SetMode(ctx, graph.Binaural)
	case 'n', 'N':
		return false, p.SetMode(ctx, graph.Noise)
	case 'd', 'D':
		return false, p.SetMode(ctx, graph.Drone)
	case 'c', 'C':
		return false, p.SetNoiseColor(ctx, nextColor(st.Color))
	case '+', '=':
		_, err := p.SetBeatFrequency(st.BeatHz + beatStep)
		return false, err
	case '-', '_':
		_, err := p.SetBeatFrequency(st.BeatHz - beatStep)
		return false, err
	case '1', '2', '3', '4':
		return false, p.SetSessionDuration(player.Presets[key-'1'])
	}
	return false, nil
}

func nextColor(c noise.Color) noise.Color {
	colors := noise.Colors()
	i := slices.Index(colors, c)
	return colors[(i+1)%len(colors)]
}

func statusLine(st player.Status) string {
	var b strings.Builder
	if st.Playing {
		b.WriteString("> ")
	} else {
		b.WriteString("| ")
	}
	switch st.Mode {
	case graph.Binaural:
		fmt.Fprintf(&b, "binaural %.1f Hz (%s) L %.2f R %.2f", st.BeatHz, st.Category, st.LeftHz, st.RightHz)
	case graph.Noise:
		fmt.Fprintf(&b, "noise %s", st.Color)
	default:
		b.WriteString(st.Mode.String())
	}
	fmt.Fprintf(&b, "  %s / %s", clock(st.Elapsed), clock(st.Duration))
	if st.Muted {
		b.WriteString("  muted")
	}
	if st.Tier != "" {
		fmt.Fprintf(&b, "  [%s]", st.Tier)
	}
	return b.String()
}

func clock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d/time.Minute), int(d%time.Minute/time.Second))
}
