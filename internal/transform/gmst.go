package transform

import (
	"math"
	"time"
)

// J2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const J2000 = 2451545.0

// degToRad and radToDeg convert between degrees and radians.
const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// JulianDate converts a time.Time to Julian Date. The time is converted to
// UTC first; the difference between UTC and TT (~69s) is ignored, which
// moves the Moon by well under an arcminute.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Treat Jan/Feb as months 13/14 of the previous year.
	if m <= 2 {
		y -= 1
		m += 12
	}

	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + B - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0

	return jd
}

// JulianCenturies returns Julian centuries since J2000.0 for a Julian Date.
func JulianCenturies(jd float64) float64 {
	return (jd - J2000) / 36525.0
}

// GMST calculates Greenwich Mean Sidereal Time in radians for a given UTC time.
// Uses the IAU-82 model as described in Vallado "Fundamentals of Astrodynamics".
//
// Formula (Vallado Eq 3-47):
//
//	θ_GMST = 67310.54841 + (876600h + 8640184.812866)*T + 0.093104*T² - 6.2e-6*T³
//
// where T is Julian centuries of UT1 from J2000.0, result is in seconds of time.
func GMST(t time.Time) float64 {
	return GMSTFromJD(JulianDate(t))
}

// GMSTFromJD is GMST for a precomputed Julian Date. Batch callers compute the
// Julian Date once per grid instant and share it between bodies.
func GMSTFromJD(jd float64) float64 {
	tUT1 := JulianCenturies(jd)

	// 876600h = 3155760000 seconds.
	gmstSec := 67310.54841 +
		(3155760000.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	gmstSec = math.Mod(gmstSec, 86400.0)
	if gmstSec < 0 {
		gmstSec += 86400.0
	}
	return gmstSec / 86400.0 * 2.0 * math.Pi
}

// NormalizeRad wraps an angle into [0, 2π).
func NormalizeRad(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// Deg converts radians to degrees.
func Deg(rad float64) float64 { return rad * radToDeg }

// Rad converts degrees to radians.
func Rad(deg float64) float64 { return deg * degToRad }
