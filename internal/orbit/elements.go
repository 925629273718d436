// Package orbit implements the Keplerian core: evaluation of time-varying
// classical orbital elements, solution of Kepler's equation, position and
// velocity derivation, orbital period, and osculating elements from state
// vectors.
//
// All functions are pure and safe to call concurrently for different inputs.
package orbit

// Elements holds the six classical orbital elements at a single instant.
// Consumed once by the Kepler solver; never mutated.
type Elements struct {
	A    float64 // semi-major axis, km
	E    float64 // eccentricity, 0 <= e < 1 for bound orbits
	I    float64 // inclination, rad
	Node float64 // longitude of the ascending node, rad
	Peri float64 // argument of periapsis, rad
	M    float64 // mean anomaly, rad (may exceed 2π; the solver normalizes)
}

// Set is a base element set plus linear secular rates, applied per Julian day
// of elapsed simulated time.
type Set struct {
	Base  Elements
	Rates Elements
}

// Evaluate returns the instantaneous elements after elapsedDays of simulated
// time: each element is base + rate * elapsedDays.
func (s Set) Evaluate(elapsedDays float64) Elements {
	return Elements{
		A:    s.Base.A + s.Rates.A*elapsedDays,
		E:    s.Base.E + s.Rates.E*elapsedDays,
		I:    s.Base.I + s.Rates.I*elapsedDays,
		Node: s.Base.Node + s.Rates.Node*elapsedDays,
		Peri: s.Base.Peri + s.Rates.Peri*elapsedDays,
		M:    s.Base.M + s.Rates.M*elapsedDays,
	}
}
