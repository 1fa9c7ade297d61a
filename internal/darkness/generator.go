// Package darkness finds the instants at which the sky is astronomically
// dark for an observer.
//
// An instant is dark when the Sun is more than 18° below the horizon and the
// Moon is either more than 5° below the horizon or less than 10% illuminated.
// Instants lie on a 15-minute grid anchored at the start of the requested
// range.
package darkness

import (
	"fmt"
	"time"

	"github.com/star/darksky/internal/apperr"
	"github.com/star/darksky/internal/ephemeris"
	"github.com/star/darksky/internal/transform"
)

// Thresholds of the darkness predicate. All comparisons are strict.
const (
	Step                = 15 * time.Minute
	SunAltitudeMaxDeg   = -18.0
	MoonAltitudeMaxDeg  = -5.0
	MoonIlluminationMax = 0.10
)

// Generator evaluates the darkness predicate over time grids.
type Generator struct {
	pool *ephemeris.WorkerPool
}

// NewGenerator creates a Generator that evaluates grids on pool.
func NewGenerator(pool *ephemeris.WorkerPool) *Generator {
	return &Generator{pool: pool}
}

var defaultGenerator = NewGenerator(ephemeris.NewWorkerPool(ephemeris.DefaultConfig().Workers))

// Generate is Generator.Generate on a pool sized to the machine.
func Generate(start, end time.Time, lat, lon float64) ([]time.Time, error) {
	return defaultGenerator.Generate(start, end, lat, lon)
}

// Generate returns every grid instant in [start, end) at which the sky is
// dark at (lat, lon), ascending, in UTC. The observer is placed at sea
// level so the result depends only on the four arguments.
func (g *Generator) Generate(start, end time.Time, lat, lon float64) ([]time.Time, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}
	if err := ValidateCoordinate(lat, lon); err != nil {
		return nil, err
	}

	grid := Grid(start, end)
	obs := transform.NewObserverPosition(lat, lon, 0)
	samples := g.pool.SkyBatch(obs, grid)

	dark := make([]time.Time, 0, len(samples)/3)
	for _, s := range samples {
		if IsDark(s) {
			dark = append(dark, s.Time)
		}
	}
	return dark, nil
}

// IsDark applies the darkness predicate to one sample.
func IsDark(s ephemeris.Sample) bool {
	if s.SunAltDeg >= SunAltitudeMaxDeg {
		return false
	}
	return s.MoonAltDeg < MoonAltitudeMaxDeg || s.MoonIllum < MoonIlluminationMax
}

// Grid returns start, start+Step, ... for every point before end, in UTC.
func Grid(start, end time.Time) []time.Time {
	start = start.UTC()
	end = end.UTC()
	if !start.Before(end) {
		return nil
	}
	n := int((end.Sub(start) + Step - 1) / Step)
	out := make([]time.Time, 0, n)
	for t := start; t.Before(end); t = t.Add(Step) {
		out = append(out, t)
	}
	return out
}

// ValidateRange rejects empty or inverted ranges.
func ValidateRange(start, end time.Time) error {
	if !start.Before(end) {
		return apperr.New(apperr.CodeInvalidRange,
			fmt.Sprintf("start %s is not before end %s", start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339)))
	}
	return nil
}

// ValidateCoordinate rejects latitudes outside [-90, 90] and longitudes
// outside [-180, 180].
func ValidateCoordinate(lat, lon float64) error {
	if !(lat >= -90 && lat <= 90) {
		return apperr.New(apperr.CodeInvalidCoordinate, fmt.Sprintf("latitude %v out of range [-90, 90]", lat))
	}
	if !(lon >= -180 && lon <= 180) {
		return apperr.New(apperr.CodeInvalidCoordinate, fmt.Sprintf("longitude %v out of range [-180, 180]", lon))
	}
	return nil
}
