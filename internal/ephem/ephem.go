// Package ephem holds the time-scale and unit conventions shared by the
// simulation core: Julian dates, the J2000 reference epoch, and angle
// normalization helpers.
//
// Unit conventions at the boundary: distances in kilometers, angles in
// radians, element rates per Julian day, velocities in km/s.
package ephem

import (
	"math"
	"time"
)

const (
	// J2000JD is the Julian date of the J2000.0 reference epoch
	// (2000-01-01 12:00 TT, treated as UTC here).
	J2000JD = 2451545.0

	SecondsPerDay  = 86400.0
	DaysPerCentury = 36525.0

	// G is the gravitational constant in km^3 / (kg * s^2).
	G = 6.6743e-20

	// AU is the astronomical unit in kilometers.
	AU = 1.495978707e8
)

// JulianDate converts t to a Julian date (UTC).
func JulianDate(t time.Time) float64 {
	t = t.UTC()

	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())

	dayFraction := float64(t.Hour())/24.0 +
		float64(t.Minute())/1440.0 +
		(float64(t.Second())+float64(t.Nanosecond())/1e9)/SecondsPerDay

	// January and February count as months 13 and 14 of the previous year.
	if m <= 2 {
		y--
		m += 12
	}

	a := math.Floor(y / 100.0)
	b := 2 - a + math.Floor(a/4.0)

	return math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5 + dayFraction
}

// DaysSinceJ2000 returns the elapsed simulated time in Julian days between
// the J2000 epoch and t. Negative for times before the epoch.
func DaysSinceJ2000(t time.Time) float64 {
	return JulianDate(t) - J2000JD
}

// NormalizeRadians wraps an angle to [0, 2π).
func NormalizeRadians(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// NormalizeDegrees wraps an angle to [0, 360).
func NormalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360.0)
	if a < 0 {
		a += 360.0
	}
	return a
}

// Deg2Rad converts degrees to radians.
func Deg2Rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Rad2Deg converts radians to degrees.
func Rad2Deg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
