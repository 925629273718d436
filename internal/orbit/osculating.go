package orbit

import (
	"math"

	"github.com/theaklair/jsorrery/internal/ephem"
	"github.com/theaklair/jsorrery/internal/vec"
)

// FromStateVectors derives the osculating elements from a position (km) and
// velocity (km/s) relative to a body with gravitational parameter mu
// (km^3/s^2), following Vallado's RV2COE.
//
// The returned mean anomaly locates the input position on the osculating
// ellipse, so Position(FromStateVectors(r, v, mu)) reproduces r. Near-circular
// and near-equatorial orbits collapse the undefined angles to zero.
//
// ok is false for degenerate input (zero vectors, mu <= 0) or an unbound
// result (e >= 1, a <= 0), which the sampler does not support.
func FromStateVectors(r, v vec.V3, mu float64) (Elements, bool) {
	const tiny = 1e-10

	rMag := r.Length()
	vMag := v.Length()
	if mu <= 0 || rMag == 0 || vMag == 0 {
		return Elements{}, false
	}

	h := r.Cross(v)
	hMag := h.Length()
	if hMag < tiny {
		return Elements{}, false
	}

	// Node vector: z × h.
	n := vec.V3{X: -h.Y, Y: h.X}
	nMag := n.Length()

	// Eccentricity vector.
	rv := r.Dot(v)
	eVec := r.Scale(vMag*vMag - mu/rMag).Sub(v.Scale(rv)).Scale(1 / mu)
	e := eVec.Length()

	// Semi-major axis from specific orbital energy.
	energy := vMag*vMag/2 - mu/rMag
	if energy >= 0 {
		return Elements{}, false
	}
	a := -mu / (2 * energy)
	if a <= 0 || e >= 1 {
		return Elements{}, false
	}

	i := math.Acos(clamp(h.Z / hMag))

	var node, peri, nu float64
	switch {
	case e < tiny && (i < tiny || nMag < tiny):
		// Circular equatorial: only the true longitude is defined.
		nu = math.Acos(clamp(r.X / rMag))
		if r.Y < 0 {
			nu = 2*math.Pi - nu
		}
	case e < tiny:
		// Circular inclined: argument of latitude stands in for ν.
		node = ascendingNode(n, nMag)
		nu = math.Acos(clamp(n.Dot(r) / (nMag * rMag)))
		if r.Z < 0 {
			nu = 2*math.Pi - nu
		}
	case i < tiny || nMag < tiny:
		// Elliptical equatorial: longitude of periapsis stands in for ω.
		peri = math.Acos(clamp(eVec.X / e))
		if eVec.Y < 0 {
			peri = 2*math.Pi - peri
		}
		nu = trueAnomaly(eVec, e, r, rMag, rv)
	default:
		node = ascendingNode(n, nMag)
		peri = math.Acos(clamp(n.Dot(eVec) / (nMag * e)))
		if eVec.Z < 0 {
			peri = 2*math.Pi - peri
		}
		nu = trueAnomaly(eVec, e, r, rMag, rv)
	}

	// ν → E → M so the elements locate the input point.
	eAnom := 2 * math.Atan2(math.Sqrt(1-e)*math.Sin(nu/2), math.Sqrt(1+e)*math.Cos(nu/2))
	m := ephem.NormalizeRadians(eAnom - e*math.Sin(eAnom))

	return Elements{A: a, E: e, I: i, Node: node, Peri: peri, M: m}, true
}

func ascendingNode(n vec.V3, nMag float64) float64 {
	node := math.Acos(clamp(n.X / nMag))
	if n.Y < 0 {
		node = 2*math.Pi - node
	}
	return node
}

func trueAnomaly(eVec vec.V3, e float64, r vec.V3, rMag, rv float64) float64 {
	nu := math.Acos(clamp(eVec.Dot(r) / (e * rMag)))
	if rv < 0 {
		nu = 2*math.Pi - nu
	}
	return nu
}

func clamp(c float64) float64 {
	if c > 1 {
		return 1
	}
	if c < -1 {
		return -1
	}
	return c
}
