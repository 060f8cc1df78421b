package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"gopkg.in/hraban/opus.v2"
)

// opusRates are the sample rates libopus accepts.
var opusRates = map[int]bool{8000: true, 12000: true, 16000: true, 24000: true, 48000: true}

// WebRTCOption configures a WebRTCHandler.
type WebRTCOption func(*WebRTCHandler)

// WithBitrate sets the Opus bitrate in bits per second.
func WithBitrate(bps int) WebRTCOption {
	return func(h *WebRTCHandler) {
		if bps > 0 {
			h.bitrate = bps
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) WebRTCOption {
	return func(h *WebRTCHandler) {
		if l != nil {
			h.log = l
		}
	}
}

// WebRTCHandler answers SDP offers and streams the broadcast as Opus.
type WebRTCHandler struct {
	broadcaster *Broadcaster
	sampleRate  int
	bitrate     int
	log         *slog.Logger

	mu    sync.Mutex
	peers []*webrtc.PeerConnection
}

// NewWebRTCHandler returns a handler for frames at sampleRate.
func NewWebRTCHandler(b *Broadcaster, sampleRate int, opts ...WebRTCOption) (*WebRTCHandler, error) {
	if !opusRates[sampleRate] {
		return nil, fmt.Errorf("stream: opus does not support %d Hz", sampleRate)
	}
	h := &WebRTCHandler{
		broadcaster: b,
		sampleRate:  sampleRate,
		bitrate:     128000,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// PeerCount returns the number of connected peers.
func (h *WebRTCHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *WebRTCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}

	pc, track, err := h.answer(offer)
	if err != nil {
		h.log.Warn("webrtc negotiation failed", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.peers = append(h.peers, pc)
	h.mu.Unlock()
	h.log.Info("webrtc peer connected", "peers", h.PeerCount())

	go h.streamToPeer(pc, track)

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			if h.removePeer(pc) {
				_ = pc.Close()
				h.log.Info("webrtc peer disconnected", "peers", h.PeerCount())
			}
		}
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(pc.LocalDescription()); err != nil {
		h.log.Warn("write SDP answer", "err", err)
	}
}

func (h *WebRTCHandler) answer(offer webrtc.SessionDescription) (*webrtc.PeerConnection, *webrtc.TrackLocalStaticSample, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, nil, fmt.Errorf("create peer connection: %w", err)
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: Channels},
		"audio",
		"focus",
	)
	if err != nil {
		_ = pc.Close()
		return nil, nil, fmt.Errorf("create audio track: %w", err)
	}
	if _, err := pc.AddTrack(track); err != nil {
		_ = pc.Close()
		return nil, nil, fmt.Errorf("add track: %w", err)
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		_ = pc.Close()
		return nil, nil, fmt.Errorf("set remote description: %w", err)
	}
	ans, err := pc.CreateAnswer(nil)
	if err != nil {
		_ = pc.Close()
		return nil, nil, fmt.Errorf("create answer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(ans); err != nil {
		_ = pc.Close()
		return nil, nil, fmt.Errorf("set local description: %w", err)
	}
	<-gathered
	return pc, track, nil
}

func (h *WebRTCHandler) streamToPeer(pc *webrtc.PeerConnection, track *webrtc.TrackLocalStaticSample) {
	l := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(l)

	enc, err := opus.NewEncoder(h.sampleRate, Channels, opus.AppAudio)
	if err != nil {
		h.log.Error("opus encoder", "err", err)
		return
	}
	if err := enc.SetBitrate(h.bitrate); err != nil {
		h.log.Warn("opus bitrate", "bitrate", h.bitrate, "err", err)
	}

	packet := make([]byte, 4000)
	for {
		select {
		case <-l.Done():
			return
		case frame, ok := <-l.C:
			if !ok {
				return
			}
			n, err := enc.Encode(frame, packet)
			if err != nil {
				h.log.Debug("opus encode", "err", err)
				continue
			}
			if err := track.WriteSample(media.Sample{Data: packet[:n], Duration: FrameDuration}); err != nil {
				h.log.Debug("webrtc write stopped", "err", err, "dropped", l.Dropped())
				return
			}
		}
	}
}

// removePeer reports whether pc was still registered.
func (h *WebRTCHandler) removePeer(pc *webrtc.PeerConnection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, p := range h.peers {
		if p == pc {
			h.peers = append(h.peers[:i], h.peers[i+1:]...)
			return true
		}
	}
	return false
}

// Close disconnects every peer.
func (h *WebRTCHandler) Close() error {
	h.mu.Lock()
	peers := h.peers
	h.peers = nil
	h.mu.Unlock()
	var first error
	for _, pc := range peers {
		if err := pc.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
