package orbit

import (
	"math"

	"github.com/theaklair/jsorrery/internal/ephem"
	"github.com/theaklair/jsorrery/internal/vec"
)

const (
	// keplerTolerance is the convergence tolerance for Kepler's equation,
	// in radians of eccentric anomaly residual.
	keplerTolerance = 1e-6

	// keplerMaxIterations bounds the Newton iteration count. Failure to
	// converge within the bound yields the best value reached.
	keplerMaxIterations = 20

	// maxBoundEccentricity clamps near-parabolic input. Unbound orbits are
	// not supported; the solver returns a best-effort value instead of
	// diverging.
	maxBoundEccentricity = 0.999999
)

// EccentricAnomaly solves Kepler's equation E - e*sin(E) = M for E using
// Newton's method. M may be any real value; it is normalized to [0, 2π).
// Eccentricities >= 1 are clamped to just below 1 (best effort, documented
// limitation rather than an error).
func EccentricAnomaly(m, e float64) float64 {
	m = ephem.NormalizeRadians(m)
	if e < 0 {
		e = 0
	} else if e >= 1 {
		e = maxBoundEccentricity
	}
	if e == 0 {
		return m
	}

	// Danby-style starter: plain M converges fine below e≈0.8.
	eAnom := m
	if e >= 0.8 {
		if m < math.Pi {
			eAnom = m + e/2
		} else {
			eAnom = m - e/2
		}
	}

	for i := 0; i < keplerMaxIterations; i++ {
		f := eAnom - e*math.Sin(eAnom) - m
		if math.Abs(f) < keplerTolerance {
			break
		}
		eAnom -= f / (1 - e*math.Cos(eAnom))
	}
	return eAnom
}

// Position computes the Cartesian position for the given instantaneous
// elements, in kilometers in the parent reference frame. The in-plane point
// is rotated by the argument of periapsis, then inclination, then the
// longitude of the ascending node.
func Position(el Elements) vec.V3 {
	eAnom := EccentricAnomaly(el.M, el.E)

	e := el.E
	if e >= 1 {
		e = maxBoundEccentricity
	}

	// Orbital-plane coordinates with the focus at the origin and periapsis
	// along +x.
	x := el.A * (math.Cos(eAnom) - e)
	y := el.A * math.Sqrt(1-e*e) * math.Sin(eAnom)

	return rotateToFrame(x, y, el)
}

// rotateToFrame applies the three element rotations to an orbital-plane
// point: periapsis argument about z, inclination about x, node about z.
func rotateToFrame(x, y float64, el Elements) vec.V3 {
	sinPeri, cosPeri := math.Sincos(el.Peri)
	sinI, cosI := math.Sincos(el.I)
	sinNode, cosNode := math.Sincos(el.Node)

	xp := x*cosPeri - y*sinPeri
	yp := x*sinPeri + y*cosPeri

	yi := yp * cosI
	zi := yp * sinI

	return vec.V3{
		X: xp*cosNode - yi*sinNode,
		Y: xp*sinNode + yi*cosNode,
		Z: zi,
	}
}
