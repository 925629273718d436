package body

import (
	"math"
	"testing"
	"time"

	"github.com/theaklair/jsorrery/internal/ephem"
	"github.com/theaklair/jsorrery/internal/orbit"
	"github.com/theaklair/jsorrery/internal/vec"
)

func testRegistry() *Registry {
	reg := NewRegistry()
	sun := New("sun", 1.989e30, orbit.Set{}, Hooks{})
	sun.Central = true
	reg.Add(sun)
	return reg
}

// unitCirclePos returns a point on the unit circle at angle theta.
func unitCirclePos(theta float64) vec.V3 {
	return vec.V3{X: math.Cos(theta), Y: math.Sin(theta)}
}

// TestRevolutionSignalFiresOnce verifies that synthetic ticks whose angular
// steps sum to 2π+δ fire the revolution signal exactly once and leave the
// accumulator at δ.
func TestRevolutionSignalFiresOnce(t *testing.T) {
	reg := testRegistry()
	b := New("probe", 1, orbit.Set{}, Hooks{})
	b.RelativeTo = "sun"
	reg.Add(b)
	b.Init()

	fired := 0
	b.OnRevolution = func(count int) {
		fired++
		if count != 1 {
			t.Errorf("revolution count = %d, want 1", count)
		}
	}

	const step = 0.6
	const steps = 12 // 7.2 rad total, crosses 2π once
	theta := 0.0
	b.SetPosition(unitCirclePos(theta))
	b.Tick(reg, 1, false) // establishes the previous-position cache

	for i := 0; i < steps; i++ {
		theta += step
		b.SetPosition(unitCirclePos(theta))
		b.Tick(reg, 1, false)
	}

	if fired != 1 {
		t.Fatalf("revolution fired %d times, want exactly 1", fired)
	}
	delta := step*steps - 2*math.Pi
	if math.Abs(b.Angle()-delta) > 1e-9 {
		t.Errorf("stored angle = %.9f, want remainder %.9f", b.Angle(), delta)
	}
	if b.Revolutions() != 1 {
		t.Errorf("revolutions = %d, want 1", b.Revolutions())
	}
}

// TestCentralBodySkipsTick verifies that a central body's position and
// velocity stay at the origin and no tick bookkeeping runs.
func TestCentralBodySkipsTick(t *testing.T) {
	reg := testRegistry()
	sun := reg.Central()

	sun.SetPositionFromDate(time.Now(), true)
	if sun.Position() != (vec.V3{}) || sun.Velocity() != (vec.V3{}) {
		t.Error("central body position/velocity must be the zero vector")
	}

	sun.Tick(reg, 1, true)
	if sun.Angle() != 0 || sun.Speed() != 0 {
		t.Error("central body must skip tick bookkeeping")
	}
}

// TestPositionRelativeToCentralParent verifies that a body whose parent is
// the universal center keeps its own propagated position unchanged.
func TestPositionRelativeToCentralParent(t *testing.T) {
	reg := testRegistry()
	b := New("earth", 5.97e24, orbit.Set{}, Hooks{})
	b.RelativeTo = "sun"
	reg.Add(b)

	want := vec.V3{X: ephem.AU, Y: 42, Z: -7}
	b.SetPosition(want)
	b.PositionRelativeTo(reg)
	if b.Position() != want {
		t.Errorf("position = %v, want unchanged %v", b.Position(), want)
	}
}

// TestPositionRelativeToComposesParent verifies one level of frame
// composition for a non-central parent.
func TestPositionRelativeToComposesParent(t *testing.T) {
	reg := testRegistry()
	earth := New("earth", 5.97e24, orbit.Set{}, Hooks{})
	earth.RelativeTo = "sun"
	earth.SetPosition(vec.V3{X: ephem.AU})
	earth.SetVelocity(vec.V3{Y: 29.8})
	reg.Add(earth)

	moon := New("moon", 7.35e22, orbit.Set{}, Hooks{})
	moon.RelativeTo = "earth"
	moon.SetPosition(vec.V3{X: 384400})
	moon.SetVelocity(vec.V3{Y: 1.0})
	reg.Add(moon)

	moon.PositionRelativeTo(reg)
	wantPos := vec.V3{X: ephem.AU + 384400}
	if moon.Position() != wantPos {
		t.Errorf("position = %v, want %v", moon.Position(), wantPos)
	}
	wantVel := vec.V3{Y: 30.8}
	if moon.Velocity() != wantVel {
		t.Errorf("velocity = %v, want %v", moon.Velocity(), wantVel)
	}
}

// TestPositionRelativeToMissingParent verifies the neutral default: an
// unknown parent leaves the position unchanged rather than failing.
func TestPositionRelativeToMissingParent(t *testing.T) {
	reg := testRegistry()
	b := New("stray", 1, orbit.Set{}, Hooks{})
	b.RelativeTo = "nonexistent"
	reg.Add(b)

	want := vec.V3{X: 1, Y: 2, Z: 3}
	b.SetPosition(want)
	b.PositionRelativeTo(reg)
	if b.Position() != want {
		t.Errorf("position = %v, want unchanged %v", b.Position(), want)
	}
}

// TestAngleTo verifies the signed-bearing convention: x axis is zero,
// positive toward +y, negative toward -y, unknown body yields 0.
func TestAngleTo(t *testing.T) {
	cases := []struct {
		name string
		pos  vec.V3
		want float64
	}{
		{"along +x", vec.V3{X: 1}, 0},
		{"along +y", vec.V3{Y: 1}, math.Pi / 2},
		{"along -y", vec.V3{Y: -1}, -math.Pi / 2},
		{"quadrant II", vec.V3{X: -1, Y: 1}, 3 * math.Pi / 4},
		{"z discarded", vec.V3{X: 1, Z: 99}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			reg := testRegistry()
			b := New("probe", 1, orbit.Set{}, Hooks{})
			b.SetPosition(c.pos)
			reg.Add(b)

			got := b.AngleTo(reg, "sun")
			if math.Abs(got-c.want) > 1e-9 {
				t.Errorf("AngleTo = %.9f, want %.9f", got, c.want)
			}
		})
	}

	reg := testRegistry()
	b := New("probe", 1, orbit.Set{}, Hooks{})
	b.SetPosition(vec.V3{X: 1})
	reg.Add(b)
	if got := b.AngleTo(reg, "nonexistent"); got != 0 {
		t.Errorf("AngleTo(unknown) = %v, want 0", got)
	}
}

// TestBearing verifies the position-pair form used on snapshot data follows
// the same convention as AngleTo and handles coincident projections.
func TestBearing(t *testing.T) {
	if got := Bearing(vec.V3{X: -1, Y: -1}, vec.V3{}); math.Abs(got+3*math.Pi/4) > 1e-9 {
		t.Errorf("Bearing = %.9f, want %.9f", got, -3*math.Pi/4)
	}
	if got := Bearing(vec.V3{Z: 5}, vec.V3{Z: -2}); got != 0 {
		t.Errorf("Bearing(coincident projection) = %v, want 0", got)
	}
}

// TestTickBookkeeping verifies movement, speed, and relative-position
// tracking across two ticks.
func TestTickBookkeeping(t *testing.T) {
	reg := testRegistry()
	b := New("probe", 1, orbit.Set{}, Hooks{})
	b.RelativeTo = "sun"
	reg.Add(b)
	b.Init()

	b.SetPosition(vec.V3{X: 10})
	b.Tick(reg, 2, false)
	if b.Speed() != 0 {
		t.Errorf("first tick speed = %v, want 0 (no previous position)", b.Speed())
	}

	b.SetPosition(vec.V3{X: 10, Y: 6})
	b.Tick(reg, 2, false)
	if b.Movement() != (vec.V3{Y: 6}) {
		t.Errorf("movement = %v, want {0 6 0}", b.Movement())
	}
	if b.Speed() != 3 {
		t.Errorf("speed = %v, want 3", b.Speed())
	}
	if b.RelativePosition() != (vec.V3{X: 10, Y: 6}) {
		t.Errorf("relative position = %v", b.RelativePosition())
	}
}

// TestResetClearsAccumulators verifies the explicit reset contract.
func TestResetClearsAccumulators(t *testing.T) {
	reg := testRegistry()
	b := New("probe", 1, orbit.Set{}, Hooks{})
	b.RelativeTo = "sun"
	reg.Add(b)
	b.Init()

	b.SetPosition(vec.V3{X: 1})
	b.Tick(reg, 1, false)
	b.SetPosition(vec.V3{Y: 1})
	b.Tick(reg, 1, false)

	b.Reset()
	if b.Angle() != 0 || b.Speed() != 0 || b.Movement() != (vec.V3{}) {
		t.Error("reset must zero angle, speed, and movement")
	}

	// After reset the previous-position cache is gone: the next tick must
	// not accumulate angle.
	b.SetPosition(vec.V3{X: -1})
	b.Tick(reg, 1, false)
	if b.Angle() != 0 {
		t.Errorf("angle after post-reset tick = %v, want 0", b.Angle())
	}
}

// TestHooksRun verifies the injected extension points fire.
func TestHooksRun(t *testing.T) {
	var initRan, tickRan bool
	b := New("probe", 1, orbit.Set{}, Hooks{
		AfterInit: func(*Body) { initRan = true },
		AfterTick: func(*Body) { tickRan = true },
	})
	b.RelativeTo = "sun"
	reg := testRegistry()
	reg.Add(b)

	b.Init()
	if !initRan {
		t.Error("AfterInit hook did not run")
	}
	b.Tick(reg, 1, false)
	if !tickRan {
		t.Error("AfterTick hook did not run")
	}
}

// TestRegistryOrdering verifies topological tick order and level grouping.
func TestRegistryOrdering(t *testing.T) {
	reg := testRegistry()
	earth := New("earth", 5.97e24, orbit.Set{}, Hooks{})
	earth.RelativeTo = "sun"
	reg.Add(earth)
	moon := New("moon", 7.35e22, orbit.Set{}, Hooks{})
	moon.RelativeTo = "earth"
	reg.Add(moon)
	mars := New("mars", 6.42e23, orbit.Set{}, Hooks{})
	mars.RelativeTo = "sun"
	reg.Add(mars)

	ordered := reg.Ordered()
	index := make(map[string]int, len(ordered))
	for i, b := range ordered {
		index[b.Name] = i
	}
	if index["sun"] > index["earth"] || index["earth"] > index["moon"] {
		t.Errorf("tick order violates parent-first constraint: %v", index)
	}

	levels := reg.Levels()
	if len(levels) != 3 {
		t.Fatalf("got %d levels, want 3", len(levels))
	}
	if len(levels[1]) != 2 {
		t.Errorf("depth-1 level has %d bodies, want 2 (earth, mars)", len(levels[1]))
	}
}

// TestRegistryMu verifies gravitational parameter resolution.
func TestRegistryMu(t *testing.T) {
	reg := testRegistry()
	mu := reg.Mu("sun")
	want := ephem.G * 1.989e30
	if math.Abs(mu-want) > want*1e-12 {
		t.Errorf("mu = %v, want %v", mu, want)
	}
	if reg.Mu("nonexistent") != 0 {
		t.Error("unknown body must resolve to mu=0")
	}
}

// TestAbsolutePositionAt verifies pure (non-mutating) chained composition.
func TestAbsolutePositionAt(t *testing.T) {
	reg := testRegistry()
	muSun := ephem.G * 1.989e30

	earth := New("earth", 5.97e24, orbit.Set{
		Base:  orbit.Elements{A: ephem.AU, E: 0.0167},
		Rates: orbit.Elements{M: orbit.MeanMotion(ephem.AU, muSun)},
	}, Hooks{})
	earth.RelativeTo = "sun"
	reg.Add(earth)

	moon := New("moon", 7.35e22, orbit.Set{
		Base:  orbit.Elements{A: 384400, E: 0.0549},
		Rates: orbit.Elements{M: 2 * math.Pi / 27.32},
	}, Hooks{})
	moon.RelativeTo = "earth"
	reg.Add(moon)

	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	earthPos, ok := reg.AbsolutePositionAt("earth", at)
	if !ok {
		t.Fatal("earth not resolvable")
	}
	moonPos, ok := reg.AbsolutePositionAt("moon", at)
	if !ok {
		t.Fatal("moon not resolvable")
	}

	// The moon must stay within its orbit radius of the earth.
	sep := moonPos.Sub(earthPos).Length()
	if sep < 300000 || sep > 450000 {
		t.Errorf("moon-earth separation = %.0f km, want ~384400", sep)
	}

	if _, ok := reg.AbsolutePositionAt("nonexistent", at); ok {
		t.Error("unknown body must not resolve")
	}

	// Pure: body state untouched.
	if earth.Position() != (vec.V3{}) {
		t.Error("AbsolutePositionAt must not mutate body state")
	}
}
