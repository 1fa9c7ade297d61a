// Package transform provides the coordinate frame transformations used to turn
// celestial positions into what a ground observer sees.
//
// Sun, Moon and catalog targets are produced as equatorial coordinates of
// date (right ascension, declination, distance). They are rotated into the
// Earth-fixed frame with GMST only (equator of date ≈ PEF ≈ ECEF), ignoring
// polar motion and the equation of the equinoxes. That costs at most a few
// arcseconds, far below the resolution of a 15-minute grid.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import "math"

// Equatorial is a position in the true equator/mean equinox of date frame.
type Equatorial struct {
	RARad  float64 // right ascension, radians [0, 2π)
	DecRad float64 // declination, radians
	DistM  float64 // geocentric distance in meters; 0 means "at infinity"
}

// Vector3 is a Cartesian vector. Units depend on the caller (meters for
// positions, dimensionless for directions).
type Vector3 struct {
	X, Y, Z float64
}

// Unit returns the unit vector pointing at e, ignoring its distance.
func (e Equatorial) Unit() Vector3 {
	cosDec := math.Cos(e.DecRad)
	return Vector3{
		X: cosDec * math.Cos(e.RARad),
		Y: cosDec * math.Sin(e.RARad),
		Z: math.Sin(e.DecRad),
	}
}

// EquatorialToECEF rotates an equatorial-of-date vector into ECEF using a
// precomputed GMST angle (radians).
//
// r_ECEF = R3(θ) * r_EQ, where R3(θ) is a rotation about the Z-axis by GMST.
func EquatorialToECEF(v Vector3, gmst float64) Vector3 {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	return Vector3{
		X: v.X*cosG + v.Y*sinG,
		Y: -v.X*sinG + v.Y*cosG,
		Z: v.Z,
	}
}

// PositionECEF returns the ECEF position (meters) of a body at finite
// distance. Bodies at infinity have no position; use DirectionECEF.
func (e Equatorial) PositionECEF(gmst float64) Vector3 {
	u := EquatorialToECEF(e.Unit(), gmst)
	return Vector3{X: u.X * e.DistM, Y: u.Y * e.DistM, Z: u.Z * e.DistM}
}

// DirectionECEF returns the ECEF unit vector towards e.
func (e Equatorial) DirectionECEF(gmst float64) Vector3 {
	return EquatorialToECEF(e.Unit(), gmst)
}

// AngularSeparation returns the great-circle angle between two equatorial
// positions, in radians.
func AngularSeparation(a, b Equatorial) float64 {
	c := math.Sin(a.DecRad)*math.Sin(b.DecRad) +
		math.Cos(a.DecRad)*math.Cos(b.DecRad)*math.Cos(a.RARad-b.RARad)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}
