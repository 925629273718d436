// Package body implements the orbiting-body orchestrator: per-tick state
// updates, relative-to frame composition, revolution detection, and the
// name-based body registry.
package body

import (
	"math"
	"time"

	"github.com/theaklair/jsorrery/internal/ephem"
	"github.com/theaklair/jsorrery/internal/orbit"
	"github.com/theaklair/jsorrery/internal/vec"
)

// Hooks are optional per-body extension points injected at construction.
type Hooks struct {
	// AfterInit runs at the end of Init.
	AfterInit func(b *Body)
	// AfterTick runs at the end of every Tick.
	AfterTick func(b *Body)
}

// Body is an orbiting (or central) body. Its mutable state is updated in
// place by discrete ticks; exactly one goroutine may tick a given body at a
// time. The parent link is a name resolved through a Registry, never a
// pointer, so a misconfigured hierarchy cannot form reference cycles.
type Body struct {
	Name    string
	Mass    float64 // kg
	Central bool    // the frame's non-orbiting center; position fixed at origin

	// RelativeTo names the parent body whose frame this body's elements
	// are expressed in. Empty for the central body.
	RelativeTo string

	Elements orbit.Set

	// OnRevolution fires once per completed revolution, with the running
	// revolution count.
	OnRevolution func(count int)

	hooks Hooks

	pos      vec.V3
	vel      vec.V3
	relPos   vec.V3
	prevRel  vec.V3
	hasPrev  bool
	movement vec.V3
	speed    float64
	angle    float64 // cumulative angular displacement, rad
	revs     int
}

// New creates a body with the given hooks and zeroed state.
func New(name string, mass float64, elements orbit.Set, hooks Hooks) *Body {
	return &Body{Name: name, Mass: mass, Elements: elements, hooks: hooks}
}

// Init establishes the zero state and runs the AfterInit hook.
func (b *Body) Init() {
	b.pos = vec.V3{}
	b.vel = vec.V3{}
	b.Reset()
	if b.hooks.AfterInit != nil {
		b.hooks.AfterInit(b)
	}
}

// Reset zeroes the cumulative angle, movement, and speed, and drops the
// previous-position cache. Position and velocity are left as-is.
func (b *Body) Reset() {
	b.relPos = vec.V3{}
	b.prevRel = vec.V3{}
	b.hasPrev = false
	b.movement = vec.V3{}
	b.speed = 0
	b.angle = 0
	b.revs = 0
}

// ElementsAt evaluates the body's element set after elapsedDays of simulated
// time since J2000.
func (b *Body) ElementsAt(elapsedDays float64) orbit.Elements {
	return b.Elements.Evaluate(elapsedDays)
}

// SetPositionFromDate propagates the body to the given epoch time. The
// position is expressed in the parent frame until PositionRelativeTo
// composes it into the absolute frame. For a central body both position and
// velocity are the zero vector by definition.
func (b *Body) SetPositionFromDate(t time.Time, withVelocity bool) {
	if b.Central {
		b.pos = vec.V3{}
		b.vel = vec.V3{}
		return
	}
	days := ephem.DaysSinceJ2000(t)
	b.pos = orbit.Position(b.Elements.Evaluate(days))
	if withVelocity {
		b.vel = orbit.FiniteDifferenceVelocity(b.Elements, days)
	}
}

// SetVisVivaVelocity replaces the velocity with the analytic vis-viva value
// for the instantaneous elements at t, using the parent's gravitational
// parameter resolved through reg. Used when the caller explicitly requests
// element-derived rather than finite-difference velocity.
func (b *Body) SetVisVivaVelocity(reg *Registry, t time.Time) {
	if b.Central {
		return
	}
	mu := reg.Mu(b.RelativeTo)
	b.vel = orbit.VisVivaVelocity(b.Elements.Evaluate(ephem.DaysSinceJ2000(t)), mu)
}

// PositionRelativeTo composes the body's position into the absolute frame by
// adding its parent's current absolute position and velocity. Only one level
// of indirection is resolved; the caller must have finalized the parent for
// the same tick already. A missing parent, or a parent that is the universal
// center, leaves the state unchanged.
func (b *Body) PositionRelativeTo(reg *Registry) {
	parent := reg.Get(b.RelativeTo)
	if parent == nil || parent.Central {
		return
	}
	b.pos = b.pos.Add(parent.pos)
	b.vel = b.vel.Add(parent.vel)
}

// Tick advances per-tick bookkeeping: relative displacement, movement, speed,
// and the cumulative angle accumulator. deltaTime is in seconds. When
// recomputeRelative is set, the absolute position is recomposed from the
// parent first. Central bodies skip all of this.
//
// Crossing a full circle wraps the accumulator modulo 2π and fires the
// revolution signal exactly once per crossing.
func (b *Body) Tick(reg *Registry, deltaTime float64, recomputeRelative bool) {
	if b.Central {
		return
	}
	if recomputeRelative {
		b.PositionRelativeTo(reg)
	}

	parentPos := vec.V3{}
	if parent := reg.Get(b.RelativeTo); parent != nil {
		parentPos = parent.pos
	}
	rel := b.pos.Sub(parentPos)

	if b.hasPrev {
		b.movement = rel.Sub(b.prevRel)
		if deltaTime > 0 {
			b.speed = b.movement.Length() / deltaTime
		}
		b.angle += vec.AngleBetween(rel, b.prevRel)
	}
	b.relPos = rel
	b.prevRel = rel
	b.hasPrev = true

	if b.angle > 2*math.Pi {
		b.angle = math.Mod(b.angle, 2*math.Pi)
		b.revs++
		if b.OnRevolution != nil {
			b.OnRevolution(b.revs)
		}
	}

	if b.hooks.AfterTick != nil {
		b.hooks.AfterTick(b)
	}
}

// AngleTo returns the signed bearing of this body's position relative to the
// named body's position. Returns 0 when the other body is unknown. Reads live
// body state; callers outside the tick loop should use Bearing on snapshot
// positions instead.
func (b *Body) AngleTo(reg *Registry, otherName string) float64 {
	other := reg.Get(otherName)
	if other == nil {
		return 0
	}
	return Bearing(b.pos, other.pos)
}

// Bearing returns the signed bearing of pos relative to other, projected onto
// the reference plane (z discarded), measured from the x axis. The sign flips
// when the bearing lies more than 90° from the y axis. Returns 0 when the
// projected separation is zero.
func Bearing(pos, other vec.V3) float64 {
	d := pos.Sub(other)
	d.Z = 0
	if d.Length() == 0 {
		return 0
	}
	n := d.Normalize()
	angle := math.Acos(clampUnit(n.X))
	if vec.AngleBetween(n, vec.V3{Y: 1}) > math.Pi/2 {
		angle = -angle
	}
	return angle
}

// Position returns a copy of the current absolute position.
func (b *Body) Position() vec.V3 { return b.pos }

// Velocity returns a copy of the current velocity.
func (b *Body) Velocity() vec.V3 { return b.vel }

// RelativePosition returns a copy of the position relative to the parent as
// of the last tick.
func (b *Body) RelativePosition() vec.V3 { return b.relPos }

// Movement returns the displacement covered during the last tick.
func (b *Body) Movement() vec.V3 { return b.movement }

// Speed returns the scalar speed measured over the last tick, km/s.
func (b *Body) Speed() float64 { return b.speed }

// Angle returns the cumulative angular displacement since the last
// revolution crossing, in radians.
func (b *Body) Angle() float64 { return b.angle }

// Revolutions returns the number of completed revolutions since Init/Reset.
func (b *Body) Revolutions() int { return b.revs }

// SetPosition overrides the current position. Used by external providers
// (e.g. the TLE satellite overlay) that compute positions outside the
// Keplerian propagator.
func (b *Body) SetPosition(p vec.V3) { b.pos = p }

// SetVelocity overrides the current velocity.
func (b *Body) SetVelocity(v vec.V3) { b.vel = v }

func clampUnit(c float64) float64 {
	if c > 1 {
		return 1
	}
	if c < -1 {
		return -1
	}
	return c
}
