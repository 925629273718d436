// Package path produces piecewise-linear orbit approximations for rendering.
// Vertices are spaced by true angular displacement rather than by time, so a
// polyline stays visually smooth through the fast periapsis leg and avoids
// redundant points near apoapsis.
package path

import (
	"log/slog"
	"math"
	"time"

	"github.com/theaklair/jsorrery/internal/body"
	"github.com/theaklair/jsorrery/internal/ephem"
	"github.com/theaklair/jsorrery/internal/metrics"
	"github.com/theaklair/jsorrery/internal/orbit"
	"github.com/theaklair/jsorrery/internal/vec"
)

const (
	// maxCoarseStepDeg is the largest angular step accepted without
	// refinement.
	maxCoarseStepDeg = 1.3

	// totalCapDeg closes the loop: the cumulative angle never passes this.
	totalCapDeg = 360.5

	// closeGuardDeg arms the early-stop check near loop closure, so a
	// refinement pass cannot double-draw past the start point.
	closeGuardDeg = 358.0

	// closingStepDeg is the refinement grain for the sub-step that crosses
	// 360°, keeping the closing vertex inside totalCapDeg.
	closingStepDeg = 0.25

	// osculatingIncrementDays is the coarse time increment when sampling a
	// synthetic osculating ellipse from time zero.
	osculatingIncrementDays = 1.0

	// maxVertices bounds the walk for degenerate element sets.
	maxVertices = 16384
)

// Sampler walks a body's orbit and emits vertices covering exactly one
// revolution. It never mutates body state.
type Sampler struct {
	reg    *body.Registry
	logger *slog.Logger
}

// NewSampler creates a sampler over the given registry.
func NewSampler(reg *body.Registry, logger *slog.Logger) *Sampler {
	return &Sampler{reg: reg, logger: logger}
}

// Sample returns an ordered vertex sequence approximating one full
// revolution of b's orbit in its parent frame, at the simulated time now.
//
// With useOsculating set, a synthetic element set is built from the
// osculating ellipse at the current state and sampled from time zero; the
// result traces the exact path a vis-viva-consistent ellipse produces, not
// the perturbed long-term orbit. Otherwise the body's own element set is
// sampled starting at now with a time increment of period/360.
//
// Returns nil when no orbital period can be resolved (central body, missing
// or unknown parent): callers must treat nil as "no path available".
func (s *Sampler) Sample(b *body.Body, now time.Time, useOsculating bool) []vec.V3 {
	if b.Central {
		return nil
	}
	mu := s.reg.Mu(b.RelativeTo)

	days := ephem.DaysSinceJ2000(now)
	set, start, incr, ok := s.sampleBasis(b, days, mu, useOsculating)
	if !ok {
		s.logger.Debug("orbit path unavailable",
			"body", b.Name,
			"relative_to", b.RelativeTo,
			"osculating", useOsculating,
		)
		return nil
	}

	verts := s.walk(set, start, incr)
	metrics.ObserveOrbitSample(b.Name, len(verts))
	return verts
}

// sampleBasis resolves the element set, start time, and coarse increment for
// one sampling run.
func (s *Sampler) sampleBasis(b *body.Body, days, mu float64, useOsculating bool) (orbit.Set, float64, float64, bool) {
	if useOsculating {
		el := b.Elements.Evaluate(days)
		pos := orbit.Position(el)
		vel := orbit.VisVivaVelocity(el, mu)
		osc, ok := orbit.FromStateVectors(pos, vel, mu)
		if !ok {
			return orbit.Set{}, 0, 0, false
		}
		n := orbit.MeanMotion(osc.A, mu)
		if n == 0 {
			return orbit.Set{}, 0, 0, false
		}
		set := orbit.Set{Base: osc, Rates: orbit.Elements{M: n}}
		return set, 0, osculatingIncrementDays, true
	}

	period, ok := orbit.Period(b.Elements.Evaluate(days).A, mu)
	if !ok {
		return orbit.Set{}, 0, 0, false
	}
	periodDays := period / ephem.SecondsPerDay
	return b.Elements, days, periodDays / 360.0, true
}

// walk performs the adaptive angular-step iteration. Coarse steps are
// accepted directly while they stay within maxCoarseStepDeg and under the
// total cap; oversized or cap-breaking steps are subdivided into one
// sub-step per approximate degree of angular travel. Past closeGuardDeg the
// sub-step that would carry the total past 360° is refined again at
// closingStepDeg grain, and the walk stops on the first vertex past 360°, so
// the cumulative angle always lands inside totalCapDeg.
func (s *Sampler) walk(set orbit.Set, start, incr float64) []vec.V3 {
	posAt := func(d float64) vec.V3 {
		return orbit.Position(set.Evaluate(d))
	}

	last := posAt(start)
	verts := []vec.V3{last}
	total := 0.0

	for i := 1; total < 360 && len(verts) < maxVertices; i++ {
		p := posAt(start + incr*float64(i))
		stepDeg := ephem.Rad2Deg(vec.AngleBetween(p, last))

		if stepDeg <= maxCoarseStepDeg && total+stepDeg <= totalCapDeg {
			verts = append(verts, p)
			total += stepDeg
			last = p
			continue
		}

		// Subdivide the previous coarse interval into per-degree sub-steps.
		n := int(math.Ceil(stepDeg))
		if n < 1 {
			n = 1
		}
		sub := incr / float64(n)
		t0 := start + incr*float64(i-1)

		for j := 1; j <= n; j++ {
			sp := posAt(t0 + sub*float64(j))
			subDeg := ephem.Rad2Deg(vec.AngleBetween(sp, last))

			if total > closeGuardDeg && total+subDeg > 360 {
				// Closing the loop: refine this sub-interval so the
				// final vertex lands just past 360°.
				k := int(math.Ceil(subDeg / closingStepDeg))
				if k < 1 {
					k = 1
				}
				fine := sub / float64(k)
				tq := t0 + sub*float64(j-1)
				for q := 1; q <= k; q++ {
					fp := posAt(tq + fine*float64(q))
					verts = append(verts, fp)
					total += ephem.Rad2Deg(vec.AngleBetween(fp, last))
					last = fp
					if total >= 360 {
						return verts
					}
				}
				continue
			}
			verts = append(verts, sp)
			total += subDeg
			last = sp
		}
	}
	return verts
}
