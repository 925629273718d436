package orbit

import "math"

// Period returns the orbital period in seconds for semi-major axis a (km)
// and gravitational parameter mu (km^3/s^2): 2π·√(a³/μ).
//
// ok is false when no gravitational parameter can be resolved (mu <= 0) or
// the orbit is degenerate (a <= 0). Callers must treat that as "orbit path
// cannot be drawn", not as an error.
func Period(a, mu float64) (seconds float64, ok bool) {
	if mu <= 0 || a <= 0 {
		return 0, false
	}
	return 2 * math.Pi * math.Sqrt(a*a*a/mu), true
}

// MeanMotion returns the mean motion in radians per day, or 0 when the
// period cannot be resolved.
func MeanMotion(a, mu float64) float64 {
	p, ok := Period(a, mu)
	if !ok {
		return 0
	}
	return 2 * math.Pi / (p / 86400.0)
}
