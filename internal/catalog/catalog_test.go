package catalog

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/theaklair/jsorrery/internal/ephem"
	"github.com/theaklair/jsorrery/internal/orbit"
)

// TestBuiltinShape verifies the built-in catalog has the Sun as central body
// and every other body anchored to a known parent.
func TestBuiltinShape(t *testing.T) {
	defs := Builtin()
	if len(defs) != 10 {
		t.Fatalf("got %d definitions, want 10 (sun + 8 planets + moon)", len(defs))
	}

	names := make(map[string]Definition, len(defs))
	for _, d := range defs {
		names[d.Name] = d
	}

	sun, ok := names["sun"]
	if !ok || !sun.Central {
		t.Fatal("sun must be present and central")
	}
	for _, d := range defs {
		if d.Central {
			continue
		}
		if _, ok := names[d.RelativeTo]; !ok {
			t.Errorf("body %q is relative to unknown %q", d.Name, d.RelativeTo)
		}
	}
	if names["moon"].RelativeTo != "earth" {
		t.Error("moon must orbit earth")
	}
}

// TestEarthElementsSane cross-checks the converted Earth row: 1 AU orbit,
// one-year period, low eccentricity.
func TestEarthElementsSane(t *testing.T) {
	var earth Definition
	for _, d := range Builtin() {
		if d.Name == "earth" {
			earth = d
		}
	}
	set := earth.Set()

	if math.Abs(set.Base.A-ephem.AU) > 0.01*ephem.AU {
		t.Errorf("earth a = %.0f km, want ~1 AU", set.Base.A)
	}
	if set.Base.E < 0.015 || set.Base.E > 0.02 {
		t.Errorf("earth e = %.5f, want ~0.0167", set.Base.E)
	}

	// The mean anomaly rate must close one revolution per year.
	daysPerRev := 2 * math.Pi / set.Rates.M
	if math.Abs(daysPerRev-365.25) > 0.5 {
		t.Errorf("earth revolution = %.3f days, want ~365.25", daysPerRev)
	}
}

// TestBuiltinPositionsPropagate verifies every non-central body propagates
// to a finite position at a reasonable heliocentric radius.
func TestBuiltinPositionsPropagate(t *testing.T) {
	days := ephem.DaysSinceJ2000(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	for _, d := range Builtin() {
		if d.Central {
			continue
		}
		set := d.Set()
		p := orbit.Position(set.Evaluate(days))
		r := p.Length()
		if math.IsNaN(r) || math.IsInf(r, 0) || r == 0 {
			t.Errorf("%s: degenerate position %v", d.Name, p)
			continue
		}
		a := set.Base.A
		if r < a*0.5 || r > a*1.5 {
			t.Errorf("%s: radius %.3e km far from a=%.3e km", d.Name, r, a)
		}
	}
}

// TestLoadOverlay verifies YAML merge semantics: replace by name, append new.
func TestLoadOverlay(t *testing.T) {
	doc := `
bodies:
  - name: moon
    mass_kg: 7.342e22
    relative_to: earth
    elements: {a_km: 400000, e: 0.1}
    rates: {m_deg: 13.0}
  - name: halley
    mass_kg: 2.2e14
    relative_to: sun
    elements: {a_km: 2.667e9, e: 0.967, i_deg: 162.26}
    rates: {m_deg: 0.0130}
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	defs, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(defs) != 11 {
		t.Fatalf("got %d definitions, want 11 (builtin with moon replaced + halley)", len(defs))
	}

	byName := make(map[string]Definition)
	for _, d := range defs {
		byName[d.Name] = d
	}
	if byName["moon"].Elements.AKm != 400000 {
		t.Errorf("moon not replaced by overlay: a = %v", byName["moon"].Elements.AKm)
	}
	if _, ok := byName["halley"]; !ok {
		t.Error("halley not appended")
	}
}

// TestLoadRejectsUnanchoredBody verifies validation of overlay entries.
func TestLoadRejectsUnanchoredBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("bodies:\n  - name: ghost\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for body without relative_to")
	}
}

// TestLoadEmptyPath verifies the built-in fallback.
func TestLoadEmptyPath(t *testing.T) {
	defs, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if len(defs) != len(Builtin()) {
		t.Error("empty path must return the built-ins")
	}
}

// TestBuildRegistry verifies registry construction from definitions.
func TestBuildRegistry(t *testing.T) {
	reg := BuildRegistry(Builtin())
	if reg.Central() == nil || reg.Central().Name != "sun" {
		t.Fatal("central body must be the sun")
	}
	if reg.Len() != 10 {
		t.Errorf("registry has %d bodies, want 10", reg.Len())
	}
	if reg.Get("moon") == nil {
		t.Error("moon missing from registry")
	}
	if reg.Depth("moon") != 2 {
		t.Errorf("moon depth = %d, want 2", reg.Depth("moon"))
	}
}
