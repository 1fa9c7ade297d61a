package ephemeris

import (
	"math"

	"github.com/star/darksky/internal/transform"
)

// sinDeg and cosDeg take their argument in degrees.
func sinDeg(d float64) float64 { return math.Sin(transform.Rad(d)) }
func cosDeg(d float64) float64 { return math.Cos(transform.Rad(d)) }

// MoonPosition returns the geocentric position of the Moon for a Julian Date.
func MoonPosition(jd float64) transform.Equatorial {
	T := transform.JulianCenturies(jd)

	lambda := 218.32 + 481267.881*T +
		6.29*sinDeg(135.0+477198.87*T) -
		1.27*sinDeg(259.3-413335.36*T) +
		0.66*sinDeg(235.7+890534.22*T) +
		0.21*sinDeg(269.9+954397.74*T) -
		0.19*sinDeg(357.5+35999.05*T) -
		0.11*sinDeg(186.5+966404.03*T)

	beta := 5.13*sinDeg(93.3+483202.02*T) +
		0.28*sinDeg(228.2+960400.89*T) -
		0.28*sinDeg(318.3+6003.15*T) -
		0.17*sinDeg(217.6-407332.21*T)

	// Horizontal parallax.
	hp := 0.9508 +
		0.0518*cosDeg(135.0+477198.87*T) +
		0.0095*cosDeg(259.3-413335.36*T) +
		0.0078*cosDeg(235.7+890534.22*T) +
		0.0028*cosDeg(269.9+954397.74*T)

	distKm := earthRadiusKm / sinDeg(hp)

	eps := obliquity(jd - transform.J2000)
	lam := transform.Rad(math.Mod(lambda, 360))
	bet := transform.Rad(beta)

	l := math.Cos(bet) * math.Cos(lam)
	m := math.Cos(eps)*math.Cos(bet)*math.Sin(lam) - math.Sin(eps)*math.Sin(bet)
	n := math.Sin(eps)*math.Cos(bet)*math.Sin(lam) + math.Cos(eps)*math.Sin(bet)

	return transform.Equatorial{
		RARad:  transform.NormalizeRad(math.Atan2(m, l)),
		DecRad: math.Asin(n),
		DistM:  distKm * 1000,
	}
}

// MoonIllumination returns the illuminated fraction of the lunar disk given
// geocentric Sun and Moon positions. 0 is new, 1 is full.
func MoonIllumination(sun, moon transform.Equatorial) float64 {
	psi := transform.AngularSeparation(sun, moon)

	// Phase angle, Sun-Moon-Earth.
	i := math.Atan2(sun.DistM*math.Sin(psi), moon.DistM-sun.DistM*math.Cos(psi))

	return (1 + math.Cos(i)) / 2
}
