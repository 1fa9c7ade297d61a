// Package sessions turns dark instants into observing sessions for a single
// target: contiguous runs of instants at which the target is high enough.
package sessions

import (
	"encoding/json"
	"time"

	"github.com/star/darksky/internal/ephemeris"
	"github.com/star/darksky/internal/transform"
)

const (
	// MaxGap is the largest spacing between consecutive qualifying instants
	// that still counts as one session.
	MaxGap = 20 * time.Minute

	// MaxSessionMinutes excludes blocks of a full day or more. Dark instants
	// at mid latitudes never span a whole day, so such a block points at bad
	// input rather than a real session.
	// TODO: remove once polar-night locations are handled explicitly.
	MaxSessionMinutes = 1440.0

	// LocalLayout formats session bounds in the observer's civil time.
	LocalLayout = "2006-01-02 15:04:05"
)

// Session is a contiguous block of time in which the target is observable.
type Session struct {
	Start           time.Time // local civil time
	End             time.Time // local civil time
	DurationMinutes float64
}

// MarshalJSON renders bounds in LocalLayout.
func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start    string  `json:"start"`
		End      string  `json:"end"`
		Duration float64 `json:"duration"`
	}{
		Start:    s.Start.Format(LocalLayout),
		End:      s.End.Format(LocalLayout),
		Duration: s.DurationMinutes,
	})
}

// Request holds the parameters for a session extraction.
type Request struct {
	Target            ephemeris.Target
	Observer          transform.ObserverPosition
	Instants          []time.Time // ascending dark instants
	MinAltitudeDeg    float64
	MinSessionMinutes float64
	Location          *time.Location // nil means UTC
}

// Extractor evaluates target altitudes on a worker pool.
type Extractor struct {
	pool *ephemeris.WorkerPool
}

// NewExtractor creates an Extractor backed by pool.
func NewExtractor(pool *ephemeris.WorkerPool) *Extractor {
	return &Extractor{pool: pool}
}

var defaultExtractor = NewExtractor(ephemeris.NewWorkerPool(ephemeris.DefaultConfig().Workers))

// Extract is Extractor.Extract on a pool sized to the machine.
func Extract(req Request) []Session {
	return defaultExtractor.Extract(req)
}

// Extract keeps the instants at which the target is at or above
// MinAltitudeDeg, merges runs whose gaps are at most MaxGap, and returns the
// blocks lasting at least MinSessionMinutes and less than MaxSessionMinutes.
// A block of a single instant has duration 0.
func (e *Extractor) Extract(req Request) []Session {
	if len(req.Instants) == 0 {
		return []Session{}
	}

	alts := e.pool.AltitudeBatch(req.Observer, req.Target, req.Instants)

	visible := make([]time.Time, 0, len(req.Instants))
	for i, t := range req.Instants {
		if alts[i] >= req.MinAltitudeDeg {
			visible = append(visible, t)
		}
	}

	return build(Merge(visible), req.MinSessionMinutes, req.Location)
}

// Block is a run of instants, first and last inclusive.
type Block struct {
	First time.Time
	Last  time.Time
}

// Merge groups ascending instants into blocks, starting a new block whenever
// the gap to the previous instant exceeds MaxGap. The full gap is compared,
// so instants on different days never merge.
func Merge(instants []time.Time) []Block {
	if len(instants) == 0 {
		return nil
	}

	blocks := make([]Block, 0, 8)
	cur := Block{First: instants[0], Last: instants[0]}
	for _, t := range instants[1:] {
		if t.Sub(cur.Last) <= MaxGap {
			cur.Last = t
			continue
		}
		blocks = append(blocks, cur)
		cur = Block{First: t, Last: t}
	}
	return append(blocks, cur)
}

func build(blocks []Block, minMinutes float64, loc *time.Location) []Session {
	if loc == nil {
		loc = time.UTC
	}

	out := make([]Session, 0, len(blocks))
	for _, b := range blocks {
		d := b.Last.Sub(b.First).Minutes()
		if d < minMinutes || d >= MaxSessionMinutes {
			continue
		}
		out = append(out, Session{
			Start:           b.First.In(loc),
			End:             b.Last.In(loc),
			DurationMinutes: d,
		})
	}
	return out
}
