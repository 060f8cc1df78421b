//go:build js && wasm

// Command wasm exposes the focus player to a browser page as the global
// FocusPlayer object. The page drives audio by calling render from its
// audio callback; lifecycle calls run on their own goroutine because fades
// need render pulls to complete.
package main

import (
	"context"
	"log/slog"
	"os"
	"syscall/js"
	"time"

	"github.com/cwbudde/algo-focus/dsp/noise"
	"github.com/cwbudde/algo-focus/internal/config"
	"github.com/cwbudde/algo-focus/internal/engine"
	"github.com/cwbudde/algo-focus/internal/host"
	"github.com/cwbudde/algo-focus/internal/player"
	"github.com/cwbudde/algo-focus/internal/strategy"
)

var (
	dev   *host.Offline
	p     *player.Player
	log   = slog.New(slog.NewTextHandler(os.Stderr, nil))
	funcs []js.Func
	buf   []float32
)

func main() {
	api := js.Global().Get("Object").New()
	api.Set("init", export(func(args []js.Value) any {
		cfg := config.Load()
		if len(args) > 0 {
			cfg.SampleRate = args[0].Int()
		}
		if len(args) > 1 {
			cfg.BlockSize = args[1].Int()
		}
		if p != nil {
			_ = p.Close(context.Background())
		}
		dev = host.NewOffline(float64(cfg.SampleRate), host.Capabilities{Streaming: true, BlockSize: cfg.BlockSize})
		pl, err := engine.New(dev, cfg, log, engine.Options{})
		if err != nil {
			p = nil
			return err.Error()
		}
		p = pl
		return js.Null()
	}))

	api.Set("start", async(func(ctx context.Context, _ []js.Value) error { return p.Start(ctx) }))
	api.Set("stop", async(func(ctx context.Context, _ []js.Value) error { return p.Stop(ctx) }))

	api.Set("setMode", async(func(ctx context.Context, args []js.Value) error {
		m, err := strategy.ParseMode(arg(args, 0))
		if err != nil {
			return err
		}
		return p.SetMode(ctx, m)
	}))

	api.Set("setNoiseColor", async(func(ctx context.Context, args []js.Value) error {
		c, err := noise.ParseColor(arg(args, 0))
		if err != nil {
			return err
		}
		return p.SetNoiseColor(ctx, c)
	}))

	api.Set("transport", async(func(ctx context.Context, args []js.Value) error {
		cmd, err := player.ParseCommand(arg(args, 0))
		if err != nil {
			return err
		}
		return p.Transport(ctx, cmd)
	}))

	api.Set("visibilityChanged", async(func(ctx context.Context, args []js.Value) error {
		return p.VisibilityChanged(ctx, len(args) > 0 && args[0].Bool())
	}))

	api.Set("setBeatFrequency", export(func(args []js.Value) any {
		if p == nil || len(args) < 1 {
			return js.Null()
		}
		pair, err := p.SetBeatFrequency(args[0].Float())
		if err != nil {
			return err.Error()
		}
		return map[string]any{"beatHz": pair.BeatHz, "leftHz": pair.LeftHz, "rightHz": pair.RightHz}
	}))

	api.Set("setMuted", export(func(args []js.Value) any {
		if p == nil || len(args) < 1 {
			return js.Null()
		}
		if err := p.SetMuted(args[0].Bool()); err != nil {
			return err.Error()
		}
		return js.Null()
	}))

	api.Set("setSessionDuration", export(func(args []js.Value) any {
		if p == nil || len(args) < 1 {
			return js.Null()
		}
		d := time.Duration(args[0].Float() * float64(time.Minute))
		if err := p.SetSessionDuration(d); err != nil {
			return err.Error()
		}
		return js.Null()
	}))

	api.Set("status", export(func(args []js.Value) any {
		if p == nil {
			return js.Null()
		}
		st := p.Status()
		return map[string]any{
			"playing":  st.Playing,
			"streamId": st.StreamID,
			"mode":     st.Mode.String(),
			"color":    st.Color.String(),
			"beatHz":   st.BeatHz,
			"leftHz":   st.LeftHz,
			"rightHz":  st.RightHz,
			"category": string(st.Category),
			"muted":    st.Muted,
			"elapsed":  st.Elapsed.Seconds(),
			"duration": st.Duration.Seconds(),
			"tier":     st.Tier,
		}
	}))

	api.Set("spectrum", export(func(args []js.Value) any {
		var data []uint8
		if p != nil {
			data = p.Spectrum()
		}
		arr := js.Global().Get("Uint8Array").New(len(data))
		js.CopyBytesToJS(arr, data)
		return arr
	}))

	api.Set("render", export(func(args []js.Value) any {
		if dev == nil || len(args) < 1 {
			return js.Global().Get("Float32Array").New(0)
		}
		frames := args[0].Int()
		buf = dev.Pull(buf, frames)
		arr := js.Global().Get("Float32Array").New(len(buf))
		for i, v := range buf {
			arr.SetIndex(i, v)
		}
		return arr
	}))

	js.Global().Set("FocusPlayer", api)
	select {}
}

func arg(args []js.Value, i int) string {
	if i >= len(args) {
		return ""
	}
	return args[i].String()
}

func export(fn func([]js.Value) any) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		return fn(args)
	})
	funcs = append(funcs, f)
	return f
}

// async runs fn off the JS event loop and reports failures to the log.
func async(fn func(context.Context, []js.Value) error) js.Func {
	return export(func(args []js.Value) any {
		if p == nil {
			return "not initialized"
		}
		go func() {
			if err := fn(context.Background(), args); err != nil {
				log.Warn("player call failed", "err", err)
			}
		}()
		return js.Null()
	})
}
