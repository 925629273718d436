// Package stream implements Server-Sent Events (SSE) streaming of simulation
// state frames. Clients connect via GET /api/v1/stream and receive the
// positions of every body at a requested cadence.
//
// SSE message format:
//
//	data: {"type":"state","t":"2026-08-23T04:00:00Z","bodies":[...]}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","sim_time":"...","bodies":10}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent
// proxy timeouts. Reconnecting clients receive fresh metadata on each
// connection.
package stream

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/theaklair/jsorrery/internal/httputil"
	"github.com/theaklair/jsorrery/internal/metrics"
	"github.com/theaklair/jsorrery/internal/sim"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // max concurrent streams per IP (default: 10)
	KeepaliveInterval  time.Duration // keep-alive ping interval (default: 30s)
	TrustProxy         bool          // honor X-Forwarded-For / X-Real-IP
}

// Handler manages SSE streaming connections over a snapshot source.
type Handler struct {
	source  func() *sim.Snapshot
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a streaming handler. source returns the latest published
// snapshot, or nil before the simulation's first tick.
func NewHandler(source func() *sim.Snapshot, config Config, logger *slog.Logger) *Handler {
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = 10
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	return &Handler{
		source:  source,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

// HandleState serves the SSE state stream.
// GET /api/v1/stream?interval=1&velocity=true
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	interval := 1
	if v := r.URL.Query().Get("interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 60 {
			badRequest(w, "invalid interval parameter, must be 1-60")
			return
		}
		interval = n
	}
	withVelocity := r.URL.Query().Get("velocity") == "true"

	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"interval", interval,
	)

	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout for this long-lived connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Jittered retry interval (3-7s) prevents thundering-herd reconnection
	// storms when the server restarts.
	c.sendRetry(3000 + rand.Intn(4000))

	if snap := h.source(); snap != nil {
		meta := metadataMessage{
			Type:    "metadata",
			SimTime: snap.Time.UTC().Format(time.RFC3339),
			Bodies:  len(snap.Bodies),
		}
		if err := c.sendJSON(meta); err != nil {
			metrics.IncStreamErrors("send_error")
			h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
			return
		}
	}

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			snap := h.source()
			if snap == nil {
				metrics.IncStreamErrors("no_snapshot")
				continue
			}
			if err := c.sendJSON(buildStateMessage(snap, withVelocity)); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// buildStateMessage flattens a snapshot into the compact SSE payload.
func buildStateMessage(snap *sim.Snapshot, withVelocity bool) stateMessage {
	bodies := make([]bodyPayload, len(snap.Bodies))
	for i, b := range snap.Bodies {
		bodies[i] = bodyPayload{
			N: b.Name,
			P: [3]float64{b.Position.X, b.Position.Y, b.Position.Z},
		}
		if withVelocity {
			v := [3]float64{b.Velocity.X, b.Velocity.Y, b.Velocity.Z}
			bodies[i].V = &v
		}
	}
	return stateMessage{
		Type:   "state",
		T:      snap.Time.UTC().Format(time.RFC3339),
		Bodies: bodies,
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type    string `json:"type"`
	SimTime string `json:"sim_time"`
	Bodies  int    `json:"bodies"`
}

type stateMessage struct {
	Type   string        `json:"type"`
	T      string        `json:"t"`
	Bodies []bodyPayload `json:"bodies"`
}

type bodyPayload struct {
	N string      `json:"n"`
	P [3]float64  `json:"p"`
	V *[3]float64 `json:"v,omitempty"`
}
