package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwbudde/algo-focus/dsp/binaural"
	"github.com/cwbudde/algo-focus/dsp/noise"
	"github.com/cwbudde/algo-focus/internal/player"
	"github.com/cwbudde/algo-focus/internal/strategy"
)

// api serves the JSON control surface over a Player.
type api struct {
	p   *player.Player
	log *slog.Logger

	// listeners reports connected stream clients; nil when streaming is off.
	listeners func() map[string]int
}

func (a *api) routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", a.status)
	mux.HandleFunc("/api/presets", a.presets)
	mux.HandleFunc("/api/spectrum", a.spectrum)
	mux.HandleFunc("/api/start", a.post(func(r *http.Request) error {
		return a.p.Start(r.Context())
	}))
	mux.HandleFunc("/api/stop", a.post(func(r *http.Request) error {
		return a.p.Stop(r.Context())
	}))
	mux.HandleFunc("/api/mode", a.post(func(r *http.Request) error {
		var req struct {
			Mode string `json:"mode"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		m, err := strategy.ParseMode(req.Mode)
		if err != nil {
			return err
		}
		return a.p.SetMode(r.Context(), m)
	}))
	mux.HandleFunc("/api/color", a.post(func(r *http.Request) error {
		var req struct {
			Color string `json:"color"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		c, err := noise.ParseColor(req.Color)
		if err != nil {
			return err
		}
		return a.p.SetNoiseColor(r.Context(), c)
	}))
	mux.HandleFunc("/api/beat", a.post(func(r *http.Request) error {
		var req struct {
			BeatHz *float64 `json:"beatHz"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		if req.BeatHz == nil {
			return errBadRequest
		}
		_, err := a.p.SetBeatFrequency(*req.BeatHz)
		return err
	}))
	mux.HandleFunc("/api/mute", a.post(func(r *http.Request) error {
		var req struct {
			Muted bool `json:"muted"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		return a.p.SetMuted(req.Muted)
	}))
	mux.HandleFunc("/api/duration", a.post(func(r *http.Request) error {
		var req struct {
			Minutes float64 `json:"minutes"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		if req.Minutes < 0 {
			return errBadRequest
		}
		return a.p.SetSessionDuration(time.Duration(req.Minutes * float64(time.Minute)))
	}))
	mux.HandleFunc("/api/transport", a.post(func(r *http.Request) error {
		var req struct {
			Command string `json:"command"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		cmd, err := player.ParseCommand(req.Command)
		if err != nil {
			return err
		}
		return a.p.Transport(r.Context(), cmd)
	}))
	mux.HandleFunc("/api/visibility", a.post(func(r *http.Request) error {
		var req struct {
			Visible bool `json:"visible"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		return a.p.VisibilityChanged(r.Context(), req.Visible)
	}))
}

var errBadRequest = errors.New("invalid request")

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}

// post wraps a state-changing handler: POST only, errors mapped to status
// codes, and the resulting status echoed back.
func (a *api) post(fn func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		if err := fn(r); err != nil {
			code := statusCode(err)
			if code == http.StatusInternalServerError {
				a.log.Error("api request failed", "path", r.URL.Path, "err", err)
			}
			http.Error(w, err.Error(), code)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "status": a.p.Status()})
	}
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, strategy.ErrUnknownMode),
		errors.Is(err, noise.ErrUnsupported),
		errors.Is(err, player.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, player.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *api) status(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": a.p.Status()}
	if a.listeners != nil {
		body["listeners"] = a.listeners()
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, body)
}

func (a *api) spectrum(w http.ResponseWriter, r *http.Request) {
	data := a.p.Spectrum()
	// []uint8 would encode as base64.
	bins := make([]int, len(data))
	for i, v := range data {
		bins[i] = int(v)
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, map[string]any{"bins": bins})
}

func (a *api) presets(w http.ResponseWriter, r *http.Request) {
	durations := make([]float64, len(player.Presets))
	for i, d := range player.Presets {
		durations[i] = d.Minutes()
	}
	beats := make([]map[string]any, len(binaural.Presets))
	for i, p := range binaural.Presets {
		beats[i] = map[string]any{"category": p.Category, "beatHz": p.BeatHz}
	}
	writeJSON(w, map[string]any{
		"modes":     []strategy.Mode{strategy.Binaural, strategy.Noise, strategy.Drone},
		"colors":    noise.Colors(),
		"beats":     beats,
		"durations": durations,
		"beatRange": []float64{binaural.MinBeatHz, binaural.MaxBeatHz},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
