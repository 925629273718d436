package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/theaklair/jsorrery/internal/auth"
	"github.com/theaklair/jsorrery/internal/body"
	"github.com/theaklair/jsorrery/internal/ephem"
	"github.com/theaklair/jsorrery/internal/orbit"
	"github.com/theaklair/jsorrery/internal/path"
	"github.com/theaklair/jsorrery/internal/satellite"
	"github.com/theaklair/jsorrery/internal/sim"
)

// ISS element set, epoch 2024. Real orbital geometry used for testing.
const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

const sunMass = 1.989e30

var testEpoch = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testRegistry() *body.Registry {
	reg := body.NewRegistry()
	sun := body.New("sun", sunMass, orbit.Set{}, body.Hooks{})
	sun.Central = true
	sun.Init()
	reg.Add(sun)

	mu := ephem.G * sunMass
	earth := body.New("earth", 5.972e24, orbit.Set{
		Base:  orbit.Elements{A: ephem.AU, E: 0.0167},
		Rates: orbit.Elements{M: orbit.MeanMotion(ephem.AU, mu)},
	}, body.Hooks{})
	earth.RelativeTo = "sun"
	earth.Init()
	reg.Add(earth)

	moon := body.New("moon", 7.342e22, orbit.Set{
		Base:  orbit.Elements{A: 384400, E: 0.0549},
		Rates: orbit.Elements{M: ephem.Deg2Rad(13.06499)},
	}, body.Hooks{})
	moon.RelativeTo = "earth"
	moon.Init()
	reg.Add(moon)
	return reg
}

func testServer(t *testing.T, opts Options) *Server {
	t.Helper()
	reg := testRegistry()
	simulation := sim.New(reg, testEpoch, sim.Config{Step: time.Second, Speed: 86400, Workers: 2}, testLogger())
	sampler := path.NewSampler(reg, testLogger())
	return NewServer("127.0.0.1:0", simulation, sampler, testLogger(), opts)
}

func get(t *testing.T, s *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", url, nil)
	req.RemoteAddr = "127.0.0.1:40000"
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON response: %v\n%s", err, w.Body.String())
	}
	return m
}

func TestHealthEndpoints(t *testing.T) {
	s := testServer(t, Options{})
	if w := get(t, s, "/healthz"); w.Code != 200 {
		t.Errorf("healthz status = %d", w.Code)
	}
	if w := get(t, s, "/readyz"); w.Code != 200 {
		t.Errorf("readyz status = %d (snapshot published at construction)", w.Code)
	}
}

func TestListBodies(t *testing.T) {
	s := testServer(t, Options{})
	w := get(t, s, "/api/v1/bodies")
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	bodies := decode(t, w)["bodies"].([]any)
	if len(bodies) != 3 {
		t.Fatalf("got %d bodies, want 3", len(bodies))
	}
	// Depth order: sun first.
	first := bodies[0].(map[string]any)
	if first["name"] != "sun" || first["central"] != true {
		t.Errorf("first body = %v, want central sun", first)
	}
}

func TestBodyDetail(t *testing.T) {
	s := testServer(t, Options{})
	w := get(t, s, "/api/v1/bodies/earth")
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode(t, w)
	if resp["relative_to"] != "sun" {
		t.Errorf("relative_to = %v", resp["relative_to"])
	}
	period := resp["period_days"].(float64)
	if math.Abs(period-365.25) > 1 {
		t.Errorf("period_days = %.3f, want ~365.25", period)
	}
	el := resp["elements"].(map[string]any)
	if a := el["a_km"].(float64); math.Abs(a-ephem.AU) > 0.01*ephem.AU {
		t.Errorf("a_km = %.0f, want ~1 AU", a)
	}

	if w := get(t, s, "/api/v1/bodies/pluto"); w.Code != 404 {
		t.Errorf("unknown body status = %d, want 404", w.Code)
	}
}

func TestPositionEndpoint(t *testing.T) {
	s := testServer(t, Options{})
	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	w := get(t, s, "/api/v1/bodies/moon/position?date=2026-06-01T00:00:00Z&velocity=true")
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode(t, w)

	want, _ := s.simulation.Registry().AbsolutePositionAt("moon", at)
	pos := resp["position"].(map[string]any)
	if math.Abs(pos["X"].(float64)-want.X) > 1 {
		t.Errorf("position.X = %v, want %v", pos["X"], want.X)
	}
	if _, ok := resp["velocity"]; !ok {
		t.Error("velocity requested but missing")
	}

	if w := get(t, s, "/api/v1/bodies/moon/position?date=junk"); w.Code != 400 {
		t.Errorf("malformed date status = %d, want 400", w.Code)
	}
}

func TestOrbitEndpoint(t *testing.T) {
	s := testServer(t, Options{})
	w := get(t, s, "/api/v1/bodies/earth/orbit")
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	verts := decode(t, w)["vertices"].([]any)
	if len(verts) < 300 {
		t.Errorf("got %d vertices, want a full revolution", len(verts))
	}

	// The central body has no drawable orbit.
	if w := get(t, s, "/api/v1/bodies/sun/orbit"); w.Code != 204 {
		t.Errorf("sun orbit status = %d, want 204", w.Code)
	}

	// Second call hits the cache and returns the same shape.
	w2 := get(t, s, "/api/v1/bodies/earth/orbit")
	if w2.Code != 200 || len(decode(t, w2)["vertices"].([]any)) != len(verts) {
		t.Error("cached orbit response differs")
	}
}

func TestAngleEndpoint(t *testing.T) {
	s := testServer(t, Options{})
	w := get(t, s, "/api/v1/angle?from=earth&to=sun")
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode(t, w)
	rad := resp["angle_rad"].(float64)
	if rad < -math.Pi || rad > math.Pi {
		t.Errorf("angle_rad = %v outside [-π, π]", rad)
	}

	if w := get(t, s, "/api/v1/angle?from=earth&to=vulcan"); w.Code != 404 {
		t.Errorf("unknown target status = %d, want 404", w.Code)
	}
}

// TestBodyDetailReportsSnapshotFigures verifies the tick-derived figures in
// the body detail match the published snapshot rather than state the tick
// loop may still be writing.
func TestBodyDetailReportsSnapshotFigures(t *testing.T) {
	s := testServer(t, Options{})
	s.simulation.Tick()

	st, ok := s.simulation.Snapshot().Get("earth")
	if !ok {
		t.Fatal("earth missing from snapshot")
	}
	resp := decode(t, get(t, s, "/api/v1/bodies/earth"))
	if got := resp["speed_km_s"].(float64); got != st.Speed {
		t.Errorf("speed_km_s = %v, want snapshot value %v", got, st.Speed)
	}
	if got := int(resp["revolutions"].(float64)); got != st.Revolutions {
		t.Errorf("revolutions = %d, want snapshot value %d", got, st.Revolutions)
	}
}

// TestSatellitesComposedOnSnapshotHost verifies the overlay anchors satellites
// to the host position taken from the published snapshot.
func TestSatellitesComposedOnSnapshotHost(t *testing.T) {
	doc := "ISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\n"
	entries, err := satellite.ParseTLE(strings.NewReader(doc), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	tr := satellite.NewTracker("earth", entries, testLogger())
	if tr.Len() != 1 {
		t.Fatalf("tracker initialized %d satellites, want 1", tr.Len())
	}

	s := testServer(t, Options{Tracker: tr})
	// Keep the propagation close to the element-set epoch.
	s.simulation.SetEpoch(time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC))
	host, ok := s.simulation.Snapshot().Get("earth")
	if !ok {
		t.Fatal("earth missing from snapshot")
	}

	w := get(t, s, "/api/v1/satellites")
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	sats := decode(t, w)["satellites"].([]any)
	if len(sats) != 1 {
		t.Fatalf("got %d satellites, want 1", len(sats))
	}
	st := sats[0].(map[string]any)
	pos := st["position"].(map[string]any)
	rel := st["host_relative"].(map[string]any)
	if off := pos["X"].(float64) - rel["X"].(float64); math.Abs(off-host.Position.X) > 1 {
		t.Errorf("host offset X = %v, want snapshot %v", off, host.Position.X)
	}
}

func TestSatellitesWithoutTracker(t *testing.T) {
	s := testServer(t, Options{})
	w := get(t, s, "/api/v1/satellites")
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	if sats := decode(t, w)["satellites"].([]any); len(sats) != 0 {
		t.Errorf("got %d satellites, want empty overlay", len(sats))
	}
}

func TestSetEpoch(t *testing.T) {
	s := testServer(t, Options{})
	req := httptest.NewRequest("POST", "/api/v1/epoch",
		strings.NewReader(`{"time":"2030-01-01T00:00:00Z"}`))
	req.RemoteAddr = "127.0.0.1:40000"
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	want := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if !s.simulation.Current().Equal(want) {
		t.Errorf("sim time = %v, want %v", s.simulation.Current(), want)
	}
}

func TestAuthProtectsEpoch(t *testing.T) {
	s := testServer(t, Options{Auth: auth.Config{Enabled: true, Token: "secret"}})

	post := func(token string) int {
		req := httptest.NewRequest("POST", "/api/v1/epoch",
			strings.NewReader(`{"time":"2030-01-01T00:00:00Z"}`))
		req.RemoteAddr = "127.0.0.1:40000"
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		return w.Code
	}

	if code := post(""); code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", code)
	}
	if code := post("wrong"); code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", code)
	}
	if code := post("secret"); code != http.StatusOK {
		t.Errorf("good token: status = %d, want 200", code)
	}

	// Read endpoints stay public.
	if w := get(t, s, "/api/v1/bodies"); w.Code != 200 {
		t.Errorf("public read status = %d, want 200", w.Code)
	}
}
