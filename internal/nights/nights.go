// Package nights summarizes dark instants night by night: sun set and rise,
// the dark windows in between and the moon phase.
package nights

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/star/darksky/internal/darkness"
	"github.com/star/darksky/internal/ephemeris"
	"github.com/star/darksky/internal/sessions"
	"github.com/star/darksky/internal/transform"
)

// DateLayout names a night by the local date of its evening.
const DateLayout = "2006-01-02"

// Window is a contiguous dark stretch within one night.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Night describes one local night, noon to noon.
type Night struct {
	Date             string    `json:"date"`
	Sunset           time.Time `json:"sunset,omitzero"`  // zero during polar day or night
	Sunrise          time.Time `json:"sunrise,omitzero"` // zero during polar day or night
	MoonIllumination float64   `json:"moon_illumination"`
	DarkMinutes      float64   `json:"dark_minutes"`
	Windows          []Window  `json:"windows"`
	Error            string    `json:"error,omitempty"`
}

// Request holds the parameters for a summary.
type Request struct {
	Latitude  float64
	Longitude float64
	Location  *time.Location // nil means UTC
	From      time.Time      // local date of the first evening
	To        time.Time      // local date of the last evening, inclusive
	Instants  []time.Time    // ascending dark instants covering Span(From, To)
}

// Span returns the UTC range that covers the nights from..to: local noon
// of the first evening up to local noon after the last.
func Span(from, to time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 12, 0, 0, 0, loc)
	end := time.Date(to.Year(), to.Month(), to.Day(), 12, 0, 0, 0, loc).AddDate(0, 0, 1)
	return start.UTC(), end.UTC()
}

// Summarize builds one Night per evening in [From, To]. Each night is
// processed in its own goroutine, bounded by a semaphore.
func Summarize(ctx context.Context, req Request) []Night {
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}

	var dates []time.Time
	for d := dateOf(req.From, loc); !d.After(dateOf(req.To, loc)); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}

	results := make([]Night, len(dates))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, d := range dates {
		wg.Add(1)
		go func(idx int, date time.Time) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = Night{Date: date.Format(DateLayout), Windows: []Window{}, Error: "cancelled"}
				return
			}

			results[idx] = summarizeNight(req, date, loc)
		}(i, d)
	}

	wg.Wait()
	return results
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func summarizeNight(req Request, date time.Time, loc *time.Location) Night {
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, loc)
	nextNoon := noon.AddDate(0, 0, 1)
	midnight := time.Date(date.Year(), date.Month(), date.Day()+1, 0, 0, 0, 0, loc)

	n := Night{
		Date:    date.Format(DateLayout),
		Windows: []Window{},
	}

	_, set := sunrise.SunriseSunset(req.Latitude, req.Longitude, date.Year(), date.Month(), date.Day())
	next := date.AddDate(0, 0, 1)
	rise, _ := sunrise.SunriseSunset(req.Latitude, req.Longitude, next.Year(), next.Month(), next.Day())
	if !set.IsZero() {
		n.Sunset = set.In(loc)
	}
	if !rise.IsZero() {
		n.Sunrise = rise.In(loc)
	}

	jd := transform.JulianDate(midnight)
	n.MoonIllumination = ephemeris.MoonIllumination(ephemeris.SunPosition(jd), ephemeris.MoonPosition(jd))

	night := within(req.Instants, noon, nextNoon)
	n.DarkMinutes = float64(len(night)) * darkness.Step.Minutes()
	for _, b := range sessions.Merge(night) {
		n.Windows = append(n.Windows, Window{Start: b.First.In(loc), End: b.Last.In(loc)})
	}
	return n
}

// within returns the sub-slice of ascending instants in [start, end).
func within(instants []time.Time, start, end time.Time) []time.Time {
	lo := 0
	for lo < len(instants) && instants[lo].Before(start) {
		lo++
	}
	hi := lo
	for hi < len(instants) && instants[hi].Before(end) {
		hi++
	}
	return instants[lo:hi]
}
