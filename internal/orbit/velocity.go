package orbit

import (
	"math"

	"github.com/theaklair/jsorrery/internal/ephem"
	"github.com/theaklair/jsorrery/internal/vec"
)

// fdEpsilonDays is the fixed offset used for finite-difference velocity
// estimation, in Julian days.
const fdEpsilonDays = 1e-3

// FiniteDifferenceVelocity estimates the velocity at elapsedDays by
// evaluating the element set at elapsedDays and elapsedDays + ε and dividing
// the displacement by ε. Result in km/s.
func FiniteDifferenceVelocity(s Set, elapsedDays float64) vec.V3 {
	p0 := Position(s.Evaluate(elapsedDays))
	p1 := Position(s.Evaluate(elapsedDays + fdEpsilonDays))
	return p1.Sub(p0).Scale(1 / (fdEpsilonDays * ephem.SecondsPerDay))
}

// VisVivaVelocity computes the velocity analytically from the vis-viva
// relation for the given instantaneous elements and gravitational parameter
// μ (km^3/s^2). The direction is the local orbital-plane tangent rotated
// into the parent frame. Result in km/s; zero when μ or the radius is not
// positive.
func VisVivaVelocity(el Elements, mu float64) vec.V3 {
	if mu <= 0 || el.A <= 0 {
		return vec.V3{}
	}

	e := el.E
	if e >= 1 {
		e = maxBoundEccentricity
	}
	eAnom := EccentricAnomaly(el.M, e)

	r := el.A * (1 - e*math.Cos(eAnom))
	if r <= 0 {
		return vec.V3{}
	}

	speed := math.Sqrt(mu * (2/r - 1/el.A))

	// Tangent of the in-plane ellipse: d/dE of (a(cosE - e), a√(1-e²) sinE).
	tx := -el.A * math.Sin(eAnom)
	ty := el.A * math.Sqrt(1-e*e) * math.Cos(eAnom)
	tangent := rotateToFrame(tx, ty, el).Normalize()

	return tangent.Scale(speed)
}
