package transform

import (
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// TestJulianDate verifies our Julian Date calculation against known values.
func TestJulianDate(t *testing.T) {
	tests := []struct {
		name     string
		time     time.Time
		expected float64
	}{
		{
			name:     "J2000.0 epoch",
			time:     time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
			expected: 2451545.0,
		},
		{
			name:     "Unix epoch",
			time:     time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
			expected: 2440587.5,
		},
		{
			// Vallado Example 3-15: April 6, 2004, 07:51:28.386 UTC
			name:     "Vallado example date",
			time:     time.Date(2004, 4, 6, 7, 51, 28, 386009000, time.UTC),
			expected: 2453101.827411875,
		},
		{
			name:     "non-UTC location is normalized",
			time:     time.Date(2000, 1, 1, 7, 0, 0, 0, time.FixedZone("EST", -5*3600)),
			expected: 2451545.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JulianDate(tt.time)
			diff := math.Abs(got - tt.expected)
			if diff > 1e-6 {
				t.Errorf("JulianDate(%v) = %.10f, want %.10f (diff=%.2e)", tt.time, got, tt.expected, diff)
			}
		})
	}
}

// TestGMST validates our GMST calculation against the go-satellite library's
// GSTimeFromDate function, which uses the same IAU-82 model.
func TestGMST(t *testing.T) {
	tests := []struct {
		name string
		time time.Time
	}{
		{
			name: "J2000.0 epoch",
			time: time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "Vallado example date",
			time: time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC),
		},
		{
			name: "Waterloo dark window 2023",
			time: time.Date(2023, 8, 16, 4, 15, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			our := GMST(tt.time)
			ref := satellite.GSTimeFromDate(
				tt.time.Year(), int(tt.time.Month()), tt.time.Day(),
				tt.time.Hour(), tt.time.Minute(), tt.time.Second(),
			)

			// 1e-8 radians ≈ 0.06 arcsec.
			if diff := math.Abs(our - ref); diff > 1e-8 {
				t.Errorf("GMST(%v) = %.12f rad, go-satellite = %.12f rad (diff=%.2e)", tt.time, our, ref, diff)
			}
		})
	}
}

// TestEquatorialToECEF cross-checks the Z-axis rotation against
// go-satellite's ECIToECEF using the same GMST angle.
func TestEquatorialToECEF(t *testing.T) {
	tests := []struct {
		name string
		v    Vector3
		time time.Time
	}{
		{
			name: "lunar distance",
			v:    Vector3{X: 250000, Y: -280000, Z: 90000},
			time: time.Date(2023, 8, 31, 1, 35, 0, 0, time.UTC),
		},
		{
			name: "unit direction",
			v:    Vector3{X: 0.6, Y: 0.64, Z: 0.48},
			time: time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gmst := satellite.GSTimeFromDate(
				tt.time.Year(), int(tt.time.Month()), tt.time.Day(),
				tt.time.Hour(), tt.time.Minute(), tt.time.Second(),
			)

			got := EquatorialToECEF(tt.v, gmst)
			ref := satellite.ECIToECEF(satellite.Vector3{X: tt.v.X, Y: tt.v.Y, Z: tt.v.Z}, gmst)

			const tolerance = 1e-6
			if math.Abs(got.X-ref.X) > tolerance || math.Abs(got.Y-ref.Y) > tolerance || math.Abs(got.Z-ref.Z) > tolerance {
				t.Errorf("rotation mismatch:\n  ours: [%.6f, %.6f, %.6f]\n  ref:  [%.6f, %.6f, %.6f]",
					got.X, got.Y, got.Z, ref.X, ref.Y, ref.Z)
			}
		})
	}
}

func TestAngularSeparation(t *testing.T) {
	a := Equatorial{RARad: 0, DecRad: 0}
	b := Equatorial{RARad: math.Pi / 2, DecRad: 0}
	if got := Deg(AngularSeparation(a, b)); math.Abs(got-90) > 1e-9 {
		t.Errorf("separation = %.9f deg, want 90", got)
	}

	pole := Equatorial{RARad: 1.234, DecRad: math.Pi / 2}
	if got := Deg(AngularSeparation(a, pole)); math.Abs(got-90) > 1e-9 {
		t.Errorf("separation to pole = %.9f deg, want 90", got)
	}

	if got := AngularSeparation(b, b); got != 0 {
		t.Errorf("self separation = %g, want 0", got)
	}
}

func TestNormalizeRad(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{-math.Pi / 2, 3 * math.Pi / 2},
		{5 * math.Pi, math.Pi},
	}
	for _, tt := range tests {
		if got := NormalizeRad(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("NormalizeRad(%g) = %g, want %g", tt.in, got, tt.want)
		}
	}
}
