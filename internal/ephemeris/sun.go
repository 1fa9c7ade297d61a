// Package ephemeris computes low-precision positions of the Sun, the Moon and
// fixed catalog targets, and evaluates them over time grids.
//
// The Sun and Moon series follow the Astronomical Almanac's low-precision
// formulae (Sun ~0.01°, Moon ~0.3° over 1950-2050). That is ample for
// altitude thresholds of -18° and -5° sampled every 15 minutes.
package ephemeris

import (
	"math"

	"github.com/star/darksky/internal/transform"
)

const (
	auMeters = 1.495978707e11
	// Equatorial Earth radius used by the Almanac lunar parallax series.
	earthRadiusKm = 6378.14
)

// obliquity returns the mean obliquity of the ecliptic in radians, n days
// from J2000.
func obliquity(n float64) float64 {
	return transform.Rad(23.439 - 0.0000004*n)
}

// SunPosition returns the geocentric apparent position of the Sun for a
// Julian Date.
func SunPosition(jd float64) transform.Equatorial {
	n := jd - transform.J2000

	L := math.Mod(280.460+0.9856474*n, 360)
	g := transform.Rad(math.Mod(357.528+0.9856003*n, 360))

	lambda := transform.Rad(L + 1.915*math.Sin(g) + 0.020*math.Sin(2*g))
	eps := obliquity(n)

	distAU := 1.00014 - 0.01671*math.Cos(g) - 0.00014*math.Cos(2*g)

	ra := math.Atan2(math.Cos(eps)*math.Sin(lambda), math.Cos(lambda))
	dec := math.Asin(math.Sin(eps) * math.Sin(lambda))

	return transform.Equatorial{
		RARad:  transform.NormalizeRad(ra),
		DecRad: dec,
		DistM:  distAU * auMeters,
	}
}
