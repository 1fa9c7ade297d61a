// Package planner implements the request-level operations: parsing and
// validating inputs, resolving targets and observer details, and wiring the
// window cache to the session extractor.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/star/darksky/internal/apperr"
	"github.com/star/darksky/internal/cache"
	"github.com/star/darksky/internal/catalog"
	"github.com/star/darksky/internal/darkness"
	"github.com/star/darksky/internal/ephemeris"
	"github.com/star/darksky/internal/geo"
	"github.com/star/darksky/internal/metrics"
	"github.com/star/darksky/internal/nights"
	"github.com/star/darksky/internal/sessions"
	"github.com/star/darksky/internal/store"
)

// Input and output layouts.
const (
	MinuteLayout  = "2006-01-02 15:04"
	DateLayout    = "2006-01-02"
	InstantLayout = store.InstantLayout
)

// Catalog is the subset of catalog behaviour the planner needs.
type Catalog interface {
	catalog.Resolver
	Search(prefix string, limit int) []catalog.Suggestion
}

// Planner is safe for concurrent use. It holds no per-request state.
type Planner struct {
	windows   *cache.WindowCache
	extractor *sessions.Extractor
	catalog   Catalog
	geo       geo.Service
	logger    *slog.Logger
}

// New wires a Planner.
func New(windows *cache.WindowCache, extractor *sessions.Extractor, cat Catalog, geoSvc geo.Service, logger *slog.Logger) *Planner {
	return &Planner{
		windows:   windows,
		extractor: extractor,
		catalog:   cat,
		geo:       geoSvc,
		logger:    logger,
	}
}

// OptimalTimesRequest asks for every dark instant in a window.
type OptimalTimesRequest struct {
	StartDate string  `json:"start_date"` // UTC, MinuteLayout
	EndDate   string  `json:"end_date"`   // UTC, MinuteLayout
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"local_timezone"` // optional IANA name
}

// Validate checks the request shape.
func (r OptimalTimesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.StartDate, validation.Required, validation.Date(MinuteLayout)),
		validation.Field(&r.EndDate, validation.Required, validation.Date(MinuteLayout)),
	)
}

// OptimalTimes returns the dark instants strictly inside the window as local
// InstantLayout strings, ascending and unique. Missing months are generated
// and persisted.
func (p *Planner) OptimalTimes(ctx context.Context, req OptimalTimesRequest) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.CodeParse, "invalid optimal times request", err)
	}
	start, err := parseUTC(MinuteLayout, req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseUTC(MinuteLayout, req.EndDate)
	if err != nil {
		return nil, err
	}

	loc, err := geo.Locate(ctx, p.geo, req.Latitude, req.Longitude, req.Timezone)
	if err != nil {
		return nil, err
	}

	instants, err := p.windows.GetOrGenerate(ctx, start, end, req.Latitude, req.Longitude)
	if err != nil {
		return nil, err
	}
	instants = cache.Dedup(cache.Assemble(instants, start, end))

	out := make([]string, len(instants))
	for i, t := range instants {
		out[i] = t.In(loc.Timezone).Format(InstantLayout)
	}

	p.logger.Debug("optimal times",
		"start", start.Format(time.RFC3339),
		"end", end.Format(time.RFC3339),
		"instants", len(out),
	)
	return out, nil
}

// TargetSessionsRequest asks for observing sessions of one target.
type TargetSessionsRequest struct {
	StartDate         string   `json:"start_date"` // UTC, DateLayout
	EndDate           string   `json:"end_date"`   // UTC, DateLayout, inclusive
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	TargetID          string   `json:"target_id"`
	TargetName        string   `json:"target_name"`
	RA                *float64 `json:"ra"`  // J2000 degrees; with Dec, bypasses the catalog
	Dec               *float64 `json:"dec"` // J2000 degrees
	MinAltitude       float64  `json:"min_altitude"`
	MinSessionMinutes float64  `json:"min_session_length"`
	Timezone          string   `json:"local_timezone"`
}

// Validate checks the request shape.
func (r TargetSessionsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.StartDate, validation.Required, validation.Date(DateLayout)),
		validation.Field(&r.EndDate, validation.Required, validation.Date(DateLayout)),
		validation.Field(&r.MinAltitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&r.MinSessionMinutes, validation.Min(0.0)),
		validation.Field(&r.RA, validation.When(r.Dec != nil, validation.Required), validation.Min(0.0), validation.Max(360.0)),
		validation.Field(&r.Dec, validation.When(r.RA != nil, validation.Required), validation.Min(-90.0), validation.Max(90.0)),
	)
}

// TargetSessions returns the sessions in which the target is in dark sky
// and at or above MinAltitude. It only reads stored months; months that were
// never generated contribute no instants.
func (p *Planner) TargetSessions(ctx context.Context, req TargetSessionsRequest) ([]sessions.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.CodeParse, "invalid target sessions request", err)
	}
	start, err := parseUTC(DateLayout, req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseUTC(DateLayout, req.EndDate)
	if err != nil {
		return nil, err
	}
	end = end.AddDate(0, 0, 1)
	if err := darkness.ValidateRange(start, end); err != nil {
		return nil, err
	}
	if err := darkness.ValidateCoordinate(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}

	target, err := p.resolveTarget(ctx, req)
	if err != nil {
		return nil, err
	}

	loc, err := geo.Locate(ctx, p.geo, req.Latitude, req.Longitude, req.Timezone)
	if err != nil {
		return nil, err
	}

	instants, err := p.windows.GetOnly(ctx, start, end, req.Latitude, req.Longitude)
	if err != nil {
		return nil, err
	}
	instants = cache.Dedup(cache.Assemble(instants, start, end))

	out := p.extractor.Extract(sessions.Request{
		Target:            target,
		Observer:          loc.Observer(),
		Instants:          instants,
		MinAltitudeDeg:    req.MinAltitude,
		MinSessionMinutes: req.MinSessionMinutes,
		Location:          loc.Timezone,
	})
	metrics.AddSessions(len(out))

	p.logger.Debug("target sessions",
		"target_ra", target.RADeg,
		"target_dec", target.DecDeg,
		"instants", len(instants),
		"sessions", len(out),
	)
	return out, nil
}

func (p *Planner) resolveTarget(ctx context.Context, req TargetSessionsRequest) (ephemeris.Target, error) {
	if req.RA != nil && req.Dec != nil {
		return ephemeris.Target{RADeg: *req.RA, DecDeg: *req.Dec}, nil
	}
	q := req.TargetID
	if q == "" {
		q = req.TargetName
	}
	if q == "" {
		return ephemeris.Target{}, apperr.New(apperr.CodeParse, "one of target_id, target_name or ra/dec is required")
	}
	t, err := p.catalog.Resolve(ctx, q)
	if err != nil {
		return ephemeris.Target{}, err
	}
	return t.Coordinates(), nil
}

// WarmRequest asks for months to be generated ahead of time.
type WarmRequest struct {
	StartDate string  `json:"start_date"` // UTC, DateLayout
	EndDate   string  `json:"end_date"`   // UTC, DateLayout, inclusive
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the request shape.
func (r WarmRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.StartDate, validation.Required, validation.Date(DateLayout)),
		validation.Field(&r.EndDate, validation.Required, validation.Date(DateLayout)),
	)
}

// Warm generates every month touched by the inclusive date range that has
// no stored record yet.
func (p *Planner) Warm(ctx context.Context, req WarmRequest, progress cache.Progress) (cache.WarmResult, error) {
	if err := req.Validate(); err != nil {
		return cache.WarmResult{}, apperr.Wrap(apperr.CodeParse, "invalid generate request", err)
	}
	start, err := parseUTC(DateLayout, req.StartDate)
	if err != nil {
		return cache.WarmResult{}, err
	}
	end, err := parseUTC(DateLayout, req.EndDate)
	if err != nil {
		return cache.WarmResult{}, err
	}
	return p.windows.Warm(ctx, start, end.AddDate(0, 0, 1), req.Latitude, req.Longitude, progress)
}

// NightsRequest asks for a night-by-night darkness summary.
type NightsRequest struct {
	StartDate string  `json:"start_date"` // local evening, DateLayout
	EndDate   string  `json:"end_date"`   // local evening, DateLayout, inclusive
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"local_timezone"`
}

// Validate checks the request shape.
func (r NightsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.StartDate, validation.Required, validation.Date(DateLayout)),
		validation.Field(&r.EndDate, validation.Required, validation.Date(DateLayout)),
	)
}

// Nights summarizes each local night from StartDate to EndDate. Missing
// months are generated and persisted.
func (p *Planner) Nights(ctx context.Context, req NightsRequest) ([]nights.Night, error) {
	if err := req.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.CodeParse, "invalid nights request", err)
	}
	loc, err := geo.Locate(ctx, p.geo, req.Latitude, req.Longitude, req.Timezone)
	if err != nil {
		return nil, err
	}
	from, err := time.ParseInLocation(DateLayout, req.StartDate, loc.Timezone)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeParse, "cannot parse start_date", err)
	}
	to, err := time.ParseInLocation(DateLayout, req.EndDate, loc.Timezone)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeParse, "cannot parse end_date", err)
	}
	if to.Before(from) {
		return nil, apperr.New(apperr.CodeInvalidRange, "end_date is before start_date")
	}

	start, end := nights.Span(from, to, loc.Timezone)
	instants, err := p.windows.GetOrGenerate(ctx, start, end, req.Latitude, req.Longitude)
	if err != nil {
		return nil, err
	}

	return nights.Summarize(ctx, nights.Request{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Location:  loc.Timezone,
		From:      from,
		To:        to,
		Instants:  cache.Dedup(cache.Assemble(instants, start.Add(-time.Nanosecond), end)),
	}), nil
}

// Target resolves a single catalog entry.
func (p *Planner) Target(ctx context.Context, idOrName string) (catalog.Target, error) {
	return p.catalog.Resolve(ctx, idOrName)
}

// SearchTargets returns catalog suggestions for a prefix.
func (p *Planner) SearchTargets(prefix string, limit int) []catalog.Suggestion {
	return p.catalog.Search(prefix, limit)
}

// CacheStats reports window cache counters.
func (p *Planner) CacheStats() cache.Stats {
	return p.windows.Stats()
}

func parseUTC(layout, s string) (time.Time, error) {
	t, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.CodeParse, fmt.Sprintf("cannot parse %q as %s", s, layout), err)
	}
	return t, nil
}

// Ensure the generator signature stays assignable to the cache.
var _ cache.GenerateFunc = darkness.Generate
