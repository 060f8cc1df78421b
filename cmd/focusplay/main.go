// Command focusplay plays a focus session through the system speakers and
// takes single-key commands from the terminal.
//
// Usage:
//
//	focusplay [flags]
//
// Keys: space play/stop, b/n/d binaural/noise/drone, c next noise color,
// +/- beat frequency, m mute, 1-4 session length (15/30/60/90 min), q quit.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/cwbudde/algo-focus/internal/config"
	"github.com/cwbudde/algo-focus/internal/engine"
	"github.com/cwbudde/algo-focus/internal/host/otodev"
)

const refresh = 500 * time.Millisecond

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	flag.StringVar(&cfg.Mode, "mode", cfg.Mode, "binaural, noise or drone")
	flag.StringVar(&cfg.Color, "color", cfg.Color, "noise color")
	flag.Float64Var(&cfg.BeatHz, "beat", cfg.BeatHz, "binaural beat in Hz (1-30)")
	flag.DurationVar(&cfg.Session, "session", cfg.Session, "session length")
	flag.BoolVar(&cfg.Muted, "muted", cfg.Muted, "start muted")
	autoplay := flag.Bool("play", false, "start playing immediately")
	logPath := flag.String("log", "", "write logs to this file instead of discarding them")
	flag.Parse()

	// The status line owns the terminal, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	log := cfg.Logger(logOut)

	dev, err := otodev.New(cfg.SampleRate,
		otodev.WithBufferSize(cfg.BufferSize),
		otodev.WithBlockSize(cfg.BlockSize))
	if err != nil {
		return err
	}
	p, err := engine.New(dev, cfg, log, engine.Options{})
	if err != nil {
		_ = dev.Close()
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer func() { _ = p.Close(context.Background()) }()

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		old, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		defer func() { _ = term.Restore(fd, old) }()
	}

	keys := make(chan byte)
	go readKeys(os.Stdin, keys)

	fmt.Print(helpText, "\r\n")
	if *autoplay {
		if err := p.Start(ctx); err != nil {
			log.Error("start failed", "err", err)
		}
	}

	t := time.NewTicker(refresh)
	defer t.Stop()
	draw := func() { fmt.Printf("\r\x1b[K%s", statusLine(p.Status())) }
	draw()
	for {
		select {
		case <-ctx.Done():
			fmt.Print("\r\n")
			return nil
		case k, ok := <-keys:
			if !ok {
				fmt.Print("\r\n")
				return nil
			}
			quit, err := handleKey(ctx, p, k)
			if err != nil {
				log.Warn("command failed", "key", string(k), "err", err)
			}
			if quit {
				fmt.Print("\r\n")
				return nil
			}
			draw()
		case <-t.C:
			draw()
		}
	}
}

func readKeys(r io.Reader, out chan<- byte) {
	defer close(out)
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out <- buf[0]
		}
		if err != nil {
			return
		}
	}
}
