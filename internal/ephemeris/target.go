package ephemeris

import (
	"math"

	"github.com/star/darksky/internal/transform"
)

const arcsecToRad = math.Pi / (180 * 3600)

// Precess moves a J2000 position to the mean equator and equinox of the
// given Julian Date (Meeus, Astronomical Algorithms, eq. 21.3/21.4).
// Proper motion and nutation are ignored.
func Precess(target Target, jd float64) transform.Equatorial {
	T := transform.JulianCenturies(jd)

	zeta := (2306.2181*T + 0.30188*T*T + 0.017998*T*T*T) * arcsecToRad
	z := (2306.2181*T + 1.09468*T*T + 0.018203*T*T*T) * arcsecToRad
	theta := (2004.3109*T - 0.42665*T*T - 0.041833*T*T*T) * arcsecToRad

	ra0 := transform.Rad(target.RADeg)
	dec0 := transform.Rad(target.DecDeg)

	A := math.Cos(dec0) * math.Sin(ra0+zeta)
	B := math.Cos(theta)*math.Cos(dec0)*math.Cos(ra0+zeta) - math.Sin(theta)*math.Sin(dec0)
	C := math.Sin(theta)*math.Cos(dec0)*math.Cos(ra0+zeta) + math.Cos(theta)*math.Sin(dec0)

	if C > 1 {
		C = 1
	} else if C < -1 {
		C = -1
	}

	return transform.Equatorial{
		RARad:  transform.NormalizeRad(math.Atan2(A, B) + z),
		DecRad: math.Asin(C),
	}
}

// TargetAltitude returns the altitude in degrees of a fixed target seen from
// obs at Julian Date jd.
func TargetAltitude(obs transform.ObserverPosition, target Target, jd float64) float64 {
	gmst := transform.GMSTFromJD(jd)
	eq := Precess(target, jd)
	return transform.DirectionToLookAngles(obs, eq.DirectionECEF(gmst)).AltitudeDeg
}
