// Package config loads command configuration from FOCUS_* environment
// variables. Flags in the commands override these values.
package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the commands.
type Config struct {
	// Audio device
	SampleRate int
	BlockSize  int           // block-callback size, 0 disables the block tier
	BufferSize time.Duration // device buffer

	// Initial session
	Mode    string
	Color   string
	BeatHz  float64
	Session time.Duration
	Muted   bool

	// Analysis
	FFTSize int

	// Server
	Port        int
	OpusBitrate int

	LogLevel string
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		SampleRate: envInt("FOCUS_SAMPLE_RATE", 48000),
		BlockSize:  envInt("FOCUS_BLOCK_SIZE", 4096),
		BufferSize: time.Duration(envInt("FOCUS_BUFFER_MS", 40)) * time.Millisecond,

		Mode:    envStr("FOCUS_MODE", "binaural"),
		Color:   envStr("FOCUS_COLOR", "pink"),
		BeatHz:  envFloat("FOCUS_BEAT_HZ", 10),
		Session: time.Duration(envInt("FOCUS_SESSION_MINUTES", 15)) * time.Minute,
		Muted:   envBool("FOCUS_MUTED", false),

		FFTSize: envInt("FOCUS_FFT_SIZE", 2048),

		Port:        envInt("FOCUS_PORT", 8080),
		OpusBitrate: envInt("FOCUS_OPUS_BITRATE", 128000),

		LogLevel: envStr("FOCUS_LOG_LEVEL", "info"),
	}
}

// Level maps LogLevel to a slog level; unknown names mean info.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Logger returns a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.Level()}))
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
