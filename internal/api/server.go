// Package api exposes the simulation over HTTP: body catalogs, positions,
// orbit paths, angles, the satellite overlay, and the SSE state stream.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/theaklair/jsorrery/internal/auth"
	"github.com/theaklair/jsorrery/internal/body"
	"github.com/theaklair/jsorrery/internal/ephem"
	"github.com/theaklair/jsorrery/internal/health"
	"github.com/theaklair/jsorrery/internal/metrics"
	"github.com/theaklair/jsorrery/internal/orbit"
	"github.com/theaklair/jsorrery/internal/path"
	"github.com/theaklair/jsorrery/internal/satellite"
	"github.com/theaklair/jsorrery/internal/sim"
	"github.com/theaklair/jsorrery/internal/stream"
	"github.com/theaklair/jsorrery/internal/vec"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	simulation *sim.Simulation
	sampler    *path.Sampler
	pathCache  *path.Cache
	tracker    *satellite.Tracker
	logger     *slog.Logger
}

// Options configures optional server dependencies.
type Options struct {
	Auth    auth.Config
	Tracker *satellite.Tracker // nil disables the satellite overlay
	WebUI   http.Handler       // nil disables the embedded viewer
	Stream  stream.Config
}

// NewServer creates a configured HTTP server over the simulation.
func NewServer(addr string, simulation *sim.Simulation, sampler *path.Sampler, logger *slog.Logger, opts Options) *Server {
	s := &Server{
		simulation: simulation,
		sampler:    sampler,
		pathCache:  path.NewCache(time.Hour),
		tracker:    opts.Tracker,
		logger:     logger,
	}

	streamHandler := stream.NewHandler(simulation.Snapshot, opts.Stream, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(func() bool {
		return simulation.Snapshot() != nil
	}))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/state", s.handleState)
	mux.HandleFunc("GET /api/v1/bodies", s.handleBodies)
	mux.HandleFunc("GET /api/v1/bodies/{name}", s.handleBody)
	mux.HandleFunc("GET /api/v1/bodies/{name}/position", s.handlePosition)
	mux.HandleFunc("GET /api/v1/bodies/{name}/orbit", s.handleOrbit)
	mux.HandleFunc("GET /api/v1/angle", s.handleAngle)
	mux.HandleFunc("GET /api/v1/satellites", s.handleSatellites)
	mux.HandleFunc("GET /api/v1/stream", streamHandler.HandleState)
	mux.HandleFunc("POST /api/v1/epoch", s.handleSetEpoch)

	if opts.WebUI != nil {
		mux.Handle("GET /", opts.WebUI)
	}

	// Middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(opts.Auth)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Handler returns the full middleware-wrapped handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// parseDate reads an optional RFC3339 "date" query parameter, defaulting to
// the current simulated time. ok is false after a malformed value has been
// rejected with a 400.
func (s *Server) parseDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	v := r.URL.Query().Get("date")
	if v == "" {
		return s.simulation.Current(), true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want RFC3339")
		return time.Time{}, false
	}
	return t, true
}

// GET /api/v1/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap := s.simulation.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type bodySummary struct {
	Name       string  `json:"name"`
	MassKg     float64 `json:"mass_kg"`
	Central    bool    `json:"central,omitempty"`
	RelativeTo string  `json:"relative_to,omitempty"`
}

// GET /api/v1/bodies
func (s *Server) handleBodies(w http.ResponseWriter, r *http.Request) {
	reg := s.simulation.Registry()
	out := make([]bodySummary, 0, reg.Len())
	for _, b := range reg.Ordered() {
		out = append(out, bodySummary{
			Name:       b.Name,
			MassKg:     b.Mass,
			Central:    b.Central,
			RelativeTo: b.RelativeTo,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"bodies": out})
}

type elementsPayload struct {
	AKm     float64 `json:"a_km"`
	E       float64 `json:"e"`
	IDeg    float64 `json:"i_deg"`
	NodeDeg float64 `json:"node_deg"`
	PeriDeg float64 `json:"peri_deg"`
	MDeg    float64 `json:"m_deg"`
}

func toPayload(el orbit.Elements) elementsPayload {
	return elementsPayload{
		AKm:     el.A,
		E:       el.E,
		IDeg:    ephem.Rad2Deg(el.I),
		NodeDeg: ephem.Rad2Deg(el.Node),
		PeriDeg: ephem.Rad2Deg(el.Peri),
		MDeg:    ephem.Rad2Deg(el.M),
	}
}

// GET /api/v1/bodies/{name}
func (s *Server) handleBody(w http.ResponseWriter, r *http.Request) {
	reg := s.simulation.Registry()
	b := reg.Get(r.PathValue("name"))
	if b == nil {
		writeError(w, http.StatusNotFound, "unknown body")
		return
	}

	now := s.simulation.Current()
	resp := map[string]any{
		"name":        b.Name,
		"mass_kg":     b.Mass,
		"central":     b.Central,
		"relative_to": b.RelativeTo,
	}
	if !b.Central {
		el := b.ElementsAt(ephem.DaysSinceJ2000(now))
		resp["elements"] = toPayload(el)
		if period, ok := orbit.Period(el.A, reg.Mu(b.RelativeTo)); ok {
			resp["period_days"] = period / ephem.SecondsPerDay
		}
		// Tick-derived figures come from the published snapshot, not live
		// body state the tick loop may be writing.
		if snap := s.simulation.Snapshot(); snap != nil {
			if st, ok := snap.Get(b.Name); ok {
				resp["revolutions"] = st.Revolutions
				resp["speed_km_s"] = st.Speed
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/bodies/{name}/position?date=RFC3339&velocity=true
func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	reg := s.simulation.Registry()
	name := r.PathValue("name")
	if reg.Get(name) == nil {
		writeError(w, http.StatusNotFound, "unknown body")
		return
	}
	at, ok := s.parseDate(w, r)
	if !ok {
		return
	}

	pos, _ := reg.AbsolutePositionAt(name, at)
	resp := map[string]any{
		"name":     name,
		"date":     at.UTC().Format(time.RFC3339),
		"position": pos,
	}

	if r.URL.Query().Get("velocity") == "true" {
		days := ephem.DaysSinceJ2000(at)
		vel := vec.V3{}
		b := reg.Get(name)
		for hops := 0; b != nil && !b.Central && hops < reg.Len(); hops++ {
			vel = vel.Add(orbit.FiniteDifferenceVelocity(b.Elements, days))
			b = reg.Get(b.RelativeTo)
		}
		resp["velocity"] = vel
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/bodies/{name}/orbit?osculating=true&date=RFC3339
//
// Responds 204 when the body has no drawable orbit (central body, or no
// resolvable period).
func (s *Server) handleOrbit(w http.ResponseWriter, r *http.Request) {
	reg := s.simulation.Registry()
	name := r.PathValue("name")
	b := reg.Get(name)
	if b == nil {
		writeError(w, http.StatusNotFound, "unknown body")
		return
	}
	at, ok := s.parseDate(w, r)
	if !ok {
		return
	}
	osculating := r.URL.Query().Get("osculating") == "true"

	verts := s.pathCache.Get(name, at, osculating)
	if verts == nil {
		verts = s.sampler.Sample(b, at, osculating)
		if verts != nil {
			s.pathCache.Put(name, at, osculating, verts)
		}
	}
	if verts == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":       name,
		"osculating": osculating,
		"vertices":   verts,
	})
}

// GET /api/v1/angle?from=earth&to=sun
//
// The bearing is computed from the published snapshot so the answer is a
// consistent pair of positions even while the tick loop is running.
func (s *Server) handleAngle(w http.ResponseWriter, r *http.Request) {
	snap := s.simulation.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return
	}
	fromName := r.URL.Query().Get("from")
	from, ok := snap.Get(fromName)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown 'from' body")
		return
	}
	toName := r.URL.Query().Get("to")
	to, ok := snap.Get(toName)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown 'to' body")
		return
	}

	angle := body.Bearing(from.Position, to.Position)
	writeJSON(w, http.StatusOK, map[string]any{
		"from":      fromName,
		"to":        toName,
		"angle_rad": angle,
		"angle_deg": ephem.Rad2Deg(angle),
	})
}

// GET /api/v1/satellites
func (s *Server) handleSatellites(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		writeJSON(w, http.StatusOK, map[string]any{"satellites": []satellite.State{}})
		return
	}
	at := s.simulation.Current()
	hostPos := vec.V3{}
	if snap := s.simulation.Snapshot(); snap != nil {
		at = snap.Time
		if st, ok := snap.Get(s.tracker.Host()); ok {
			hostPos = st.Position
		}
	}
	states := s.tracker.States(hostPos, at)
	writeJSON(w, http.StatusOK, map[string]any{"satellites": states})
}

// POST /api/v1/epoch {"time":"2026-08-23T00:00:00Z"}
func (s *Server) handleSetEpoch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Time string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	t, err := time.Parse(time.RFC3339, req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid time, want RFC3339")
		return
	}

	s.simulation.SetEpoch(t)
	writeJSON(w, http.StatusOK, map[string]string{
		"sim_time": s.simulation.Current().UTC().Format(time.RFC3339),
	})
}

// probePath reports health/readiness probe paths that log at DEBUG.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap supports http.ResponseController.
func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
