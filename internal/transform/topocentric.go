package transform

import "math"

// WGS-84 ellipsoid parameters.
const (
	wgs84A  = 6378137.0             // semi-major axis (meters)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// ObserverPosition holds a ground observer's location in both geodetic and ECEF frames.
// ECEF coordinates are precomputed once so they can be reused across a whole time grid.
type ObserverPosition struct {
	LatRad, LonRad, AltM float64 // geodetic (radians, meters above ellipsoid)
	ECEFx, ECEFy, ECEFz  float64 // precomputed ECEF (meters)

	sinLat, cosLat, sinLon, cosLon float64
}

// LookAngles holds azimuth and altitude of a body as seen by an observer.
type LookAngles struct {
	AzimuthDeg  float64 // 0 = North, clockwise
	AltitudeDeg float64 // 0 = horizon, 90 = zenith
}

// NewObserverPosition creates an ObserverPosition from geodetic coordinates.
// Latitude and longitude are in degrees, altitude in meters above the WGS-84 ellipsoid.
func NewObserverPosition(latDeg, lonDeg, altM float64) ObserverPosition {
	lat := latDeg * degToRad
	lon := lonDeg * degToRad

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	sinLon := math.Sin(lon)
	cosLon := math.Cos(lon)

	// Radius of curvature in the prime vertical.
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return ObserverPosition{
		LatRad: lat,
		LonRad: lon,
		AltM:   altM,
		ECEFx:  (N + altM) * cosLat * cosLon,
		ECEFy:  (N + altM) * cosLat * sinLon,
		ECEFz:  (N*(1-wgs84E2) + altM) * sinLat,
		sinLat: sinLat,
		cosLat: cosLat,
		sinLon: sinLon,
		cosLon: cosLon,
	}
}

// ECEFToLookAngles computes azimuth and altitude from an observer to a body
// at a finite ECEF position (meters). Topocentric parallax falls out of the
// range vector, which matters for the Moon (up to ~1°).
func ECEFToLookAngles(obs ObserverPosition, pos Vector3) LookAngles {
	return DirectionToLookAngles(obs, Vector3{
		X: pos.X - obs.ECEFx,
		Y: pos.Y - obs.ECEFy,
		Z: pos.Z - obs.ECEFz,
	})
}

// DirectionToLookAngles computes azimuth and altitude for an ECEF direction
// vector as seen from obs. Used directly for bodies at infinity (stars,
// galaxies) where the observer offset is irrelevant.
//
// Uses the SEZ (South-East-Zenith) topocentric rotation per Vallado Section 4.4.
func DirectionToLookAngles(obs ObserverPosition, d Vector3) LookAngles {
	south := obs.sinLat*obs.cosLon*d.X + obs.sinLat*obs.sinLon*d.Y - obs.cosLat*d.Z
	east := -obs.sinLon*d.X + obs.cosLon*d.Y
	zenith := obs.cosLat*obs.cosLon*d.X + obs.cosLat*obs.sinLon*d.Y + obs.sinLat*d.Z

	mag := math.Sqrt(south*south + east*east + zenith*zenith)
	if mag == 0 {
		return LookAngles{}
	}

	alt := math.Asin(zenith / mag)

	// In SEZ, North = -South direction.
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return LookAngles{
		AzimuthDeg:  az * radToDeg,
		AltitudeDeg: alt * radToDeg,
	}
}
