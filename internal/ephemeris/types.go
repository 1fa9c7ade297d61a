package ephemeris

import (
	"runtime"
	"time"
)

// Sample is the state of the sky above one observer at one grid instant.
type Sample struct {
	Time       time.Time
	SunAltDeg  float64 // topocentric, no refraction
	MoonAltDeg float64 // topocentric, includes lunar parallax
	MoonIllum  float64 // illuminated fraction [0, 1]
}

// Target is a fixed celestial object given in J2000 coordinates (degrees).
type Target struct {
	RADeg  float64
	DecDeg float64
}

// Config holds batch evaluation settings.
type Config struct {
	Workers int // Worker pool size (default: runtime.NumCPU())
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{Workers: runtime.NumCPU()}
}
