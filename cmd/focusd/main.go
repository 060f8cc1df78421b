// Command focusd serves a focus session over HTTP: a JSON control API under
// /api/ and the rendered audio as an Opus WebRTC stream on /offer.
//
// The engine renders into an offline device that is paced in real time by
// the stream pump, so every listener hears the same session.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/algo-focus/internal/config"
	"github.com/cwbudde/algo-focus/internal/engine"
	"github.com/cwbudde/algo-focus/internal/host"
	"github.com/cwbudde/algo-focus/internal/stream"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.Load()
	log := cfg.Logger(os.Stderr)
	if err := run(cfg, log); err != nil {
		log.Error("focusd failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dev := host.NewOffline(float64(cfg.SampleRate), host.Capabilities{Streaming: true, BlockSize: cfg.BlockSize})
	p, err := engine.New(dev, cfg, log, engine.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = p.Close(context.Background()) }()

	pump, err := stream.NewPump(dev)
	if err != nil {
		return err
	}
	frames := make(chan []int16, 8)
	go pump.Run(ctx, frames)

	b := stream.NewBroadcaster()
	go b.Run(ctx, frames)

	mux := http.NewServeMux()
	a := &api{p: p, log: log}

	rtc, err := stream.NewWebRTCHandler(b, cfg.SampleRate,
		stream.WithBitrate(cfg.OpusBitrate),
		stream.WithLogger(log.With("component", "webrtc")))
	if err != nil {
		log.Warn("webrtc streaming disabled", "err", err)
	} else {
		defer func() { _ = rtc.Close() }()
		mux.Handle("/offer", rtc)
		a.listeners = func() map[string]int {
			return map[string]int{"webrtc": rtc.PeerCount(), "subscribers": b.ListenerCount()}
		}
	}
	a.routes(mux)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		_ = server.Shutdown(sctx)
	}()

	log.Info("focusd listening", "addr", server.Addr, "rate", cfg.SampleRate, "mode", cfg.Mode)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
