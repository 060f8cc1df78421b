package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-focus/internal/config"
	"github.com/cwbudde/algo-focus/internal/engine"
	"github.com/cwbudde/algo-focus/internal/graph"
	"github.com/cwbudde/algo-focus/internal/host"
)

type statusBody struct {
	OK     bool `json:"ok"`
	Status struct {
		Playing bool    `json:"playing"`
		Mode    string  `json:"mode"`
		Color   string  `json:"color"`
		BeatHz  float64 `json:"beatHz"`
		Muted   bool    `json:"muted"`
		Tier    string  `json:"tier"`
	} `json:"status"`
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	dev := host.NewOffline(8000, host.Capabilities{Streaming: true, BlockSize: 256})
	cfg := config.Config{SampleRate: 8000, Mode: "noise", Color: "pink", BeatHz: 10, FFTSize: 256}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := engine.New(dev, cfg, log, engine.Options{
		Graph: []graph.Option{graph.WithFadeDuration(10 * time.Millisecond)},
	})
	require.NoError(t, err)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]float32, 2*64)
		for {
			select {
			case <-stop:
				return
			default:
				buf = dev.Pull(buf, 64)
				time.Sleep(time.Millisecond)
			}
		}
	}()

	mux := http.NewServeMux()
	(&api{p: p, log: log}).routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		_ = p.Close(context.Background())
		close(stop)
		<-done
	})
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) (int, statusBody) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var sb statusBody
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&sb))
	}
	return resp.StatusCode, sb
}

func TestStartColorStop(t *testing.T) {
	srv := newServer(t)

	code, sb := post(t, srv, "/api/start", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, sb.Status.Playing)
	assert.Equal(t, "noise", sb.Status.Mode)

	code, sb = post(t, srv, "/api/color", `{"color":"brown"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "brown", sb.Status.Color)
	assert.True(t, sb.Status.Playing)

	code, sb = post(t, srv, "/api/stop", "")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, sb.Status.Playing)
}

func TestValidation(t *testing.T) {
	srv := newServer(t)
	tests := []struct {
		path, body string
		want       int
	}{
		{"/api/mode", `{"mode":"techno"}`, http.StatusBadRequest},
		{"/api/color", `{"color":"plaid"}`, http.StatusBadRequest},
		{"/api/transport", `{"command":"rewind"}`, http.StatusBadRequest},
		{"/api/beat", `{}`, http.StatusBadRequest},
		{"/api/duration", `{"minutes":-1}`, http.StatusBadRequest},
		{"/api/mute", `not json`, http.StatusBadRequest},
		{"/api/mode", `{"mode":"om"}`, http.StatusOK},
		{"/api/transport", `{"command":"pause"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.body, func(t *testing.T) {
			code, _ := post(t, srv, tt.path, tt.body)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestPostRequired(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/api/start")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestBeatIsClamped(t *testing.T) {
	srv := newServer(t)
	code, sb := post(t, srv, "/api/beat", `{"beatHz":45}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 30.0, sb.Status.BeatHz)
}

func TestSpectrumEndpoint(t *testing.T) {
	srv := newServer(t)
	get := func() []int {
		resp, err := http.Get(srv.URL + "/api/spectrum")
		require.NoError(t, err)
		defer resp.Body.Close()
		var body struct {
			Bins []int `json:"bins"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body.Bins
	}
	assert.Empty(t, get())

	code, _ := post(t, srv, "/api/start", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, get(), 128)
}

func TestPresetsEndpoint(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/api/presets")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body struct {
		Modes     []string  `json:"modes"`
		Colors    []string  `json:"colors"`
		Durations []float64 `json:"durations"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"binaural", "noise", "drone"}, body.Modes)
	assert.Contains(t, body.Colors, "rain")
	assert.Equal(t, []float64{15, 30, 60, 90}, body.Durations)
}
