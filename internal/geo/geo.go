// Package geo supplies observer details that are not part of a request:
// elevation and civil timezone.
package geo

import (
	"context"
	"fmt"
	"math"
	"time"
	_ "time/tzdata" // zone database for hosts without /usr/share/zoneinfo

	"github.com/star/darksky/internal/apperr"
	"github.com/star/darksky/internal/transform"
)

// Location is a fully described observer.
type Location struct {
	Latitude   float64
	Longitude  float64
	ElevationM float64
	Timezone   *time.Location
}

// Observer returns the ECEF observer used for altitude math.
func (l Location) Observer() transform.ObserverPosition {
	return transform.NewObserverPosition(l.Latitude, l.Longitude, l.ElevationM)
}

// Service resolves elevation and timezone for a coordinate.
type Service interface {
	TimezoneFor(ctx context.Context, lat, lon float64) (*time.Location, error)
	ElevationFor(ctx context.Context, lat, lon float64) (float64, error)
}

// Config holds the settings of the static service.
type Config struct {
	ElevationM      float64 // returned for every coordinate
	DefaultTimezone string  // IANA name; empty derives a nautical zone from longitude
}

// Static answers from configuration alone.
type Static struct {
	elevation float64
	tz        *time.Location
}

// NewStatic validates cfg and returns a Static service.
func NewStatic(cfg Config) (*Static, error) {
	s := &Static{elevation: cfg.ElevationM}
	if cfg.DefaultTimezone != "" {
		loc, err := time.LoadLocation(cfg.DefaultTimezone)
		if err != nil {
			return nil, fmt.Errorf("geo: default timezone: %w", err)
		}
		s.tz = loc
	}
	return s, nil
}

func (s *Static) ElevationFor(_ context.Context, _, _ float64) (float64, error) {
	return s.elevation, nil
}

func (s *Static) TimezoneFor(_ context.Context, _, lon float64) (*time.Location, error) {
	if s.tz != nil {
		return s.tz, nil
	}
	return NauticalZone(lon)
}

// NauticalZone returns the Etc/GMT zone whose 15° band contains lon.
// Etc/GMT names use POSIX signs, so west of Greenwich is "+".
func NauticalZone(lon float64) (*time.Location, error) {
	if !(lon >= -180 && lon <= 180) {
		return nil, apperr.New(apperr.CodeInvalidCoordinate, fmt.Sprintf("longitude %v out of range [-180, 180]", lon))
	}
	offset := int(math.Round(lon / 15))
	name := "Etc/GMT"
	switch {
	case offset > 0:
		name = fmt.Sprintf("Etc/GMT-%d", offset)
	case offset < 0:
		name = fmt.Sprintf("Etc/GMT+%d", -offset)
	}
	return time.LoadLocation(name)
}

// Locate fills in elevation and timezone for a coordinate. A non-empty
// tzName overrides the service's timezone.
func Locate(ctx context.Context, svc Service, lat, lon float64, tzName string) (Location, error) {
	elev, err := svc.ElevationFor(ctx, lat, lon)
	if err != nil {
		return Location{}, fmt.Errorf("geo: elevation: %w", err)
	}

	var loc *time.Location
	if tzName != "" {
		loc, err = time.LoadLocation(tzName)
		if err != nil {
			return Location{}, apperr.Wrap(apperr.CodeParse, fmt.Sprintf("unknown timezone %q", tzName), err)
		}
	} else {
		loc, err = svc.TimezoneFor(ctx, lat, lon)
		if err != nil {
			return Location{}, fmt.Errorf("geo: timezone: %w", err)
		}
	}

	return Location{
		Latitude:   lat,
		Longitude:  lon,
		ElevationM: elev,
		Timezone:   loc,
	}, nil
}

var _ Service = (*Static)(nil)
