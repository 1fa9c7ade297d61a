package sessions

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/star/darksky/internal/ephemeris"
	"github.com/star/darksky/internal/transform"
)

var (
	edt      = time.FixedZone("EDT", -4*3600)
	waterloo = transform.NewObserverPosition(43.4494, -80.5752, 329)
	polaris  = ephemeris.Target{RADeg: 37.9529, DecDeg: 89.2642}
	octans   = ephemeris.Target{RADeg: 317.0, DecDeg: -88.0}
)

// series returns UTC instants from first to last inclusive at step spacing.
func series(first, last time.Time, step time.Duration) []time.Time {
	var out []time.Time
	for t := first; !t.After(last); t = t.Add(step) {
		out = append(out, t.UTC())
	}
	return out
}

func TestExtractContinuousNight(t *testing.T) {
	first := time.Date(2023, 8, 15, 22, 10, 0, 0, edt)
	last := time.Date(2023, 8, 16, 1, 40, 0, 0, edt)

	got := Extract(Request{
		Target:            polaris,
		Observer:          waterloo,
		Instants:          series(first, last, 10*time.Minute),
		MinAltitudeDeg:    -90,
		MinSessionMinutes: 0,
		Location:          edt,
	})

	if len(got) != 1 {
		t.Fatalf("got %d sessions, want 1: %+v", len(got), got)
	}
	s := got[0]
	if s.DurationMinutes != 210 {
		t.Errorf("duration = %v, want 210", s.DurationMinutes)
	}
	if got, want := s.Start.Format(LocalLayout), "2023-08-15 22:10:00"; got != want {
		t.Errorf("start = %q, want %q", got, want)
	}
	if got, want := s.End.Format(LocalLayout), "2023-08-16 01:40:00"; got != want {
		t.Errorf("end = %q, want %q", got, want)
	}
}

func TestExtractEmpty(t *testing.T) {
	got := Extract(Request{Target: polaris, Observer: waterloo, Location: edt})
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty non-nil slice", got)
	}
}

func TestExtractTargetNeverRises(t *testing.T) {
	instants := series(time.Date(2023, 8, 16, 3, 0, 0, 0, time.UTC), time.Date(2023, 8, 16, 8, 0, 0, 0, time.UTC), 15*time.Minute)
	got := Extract(Request{Target: octans, Observer: waterloo, Instants: instants, MinAltitudeDeg: 0})
	if len(got) != 0 {
		t.Errorf("got %d sessions for a target below the horizon", len(got))
	}
}

func TestExtractAltitudeSplitsSession(t *testing.T) {
	// M31 rises in the evening; with a high floor only the late part of the
	// night qualifies, and every reported instant respects the floor.
	m31 := ephemeris.Target{RADeg: 10.6847, DecDeg: 41.2687}
	instants := series(time.Date(2023, 8, 16, 2, 30, 0, 0, time.UTC), time.Date(2023, 8, 16, 8, 45, 0, 0, time.UTC), 15*time.Minute)

	all := Extract(Request{Target: m31, Observer: waterloo, Instants: instants, MinAltitudeDeg: -90})
	high := Extract(Request{Target: m31, Observer: waterloo, Instants: instants, MinAltitudeDeg: 45})

	if len(all) != 1 || len(high) != 1 {
		t.Fatalf("sessions: all=%d high=%d, want 1 each", len(all), len(high))
	}
	if !high[0].Start.After(all[0].Start) {
		t.Errorf("high-floor session starts %v, not after %v", high[0].Start, all[0].Start)
	}
	jd := transform.JulianDate(high[0].Start)
	if alt := ephemeris.TargetAltitude(waterloo, m31, jd); alt < 45 {
		t.Errorf("session start altitude %.2f below floor", alt)
	}
}

func TestExtractMinimumLength(t *testing.T) {
	single := []time.Time{time.Date(2023, 8, 16, 5, 0, 0, 0, time.UTC)}

	got := Extract(Request{Target: polaris, Observer: waterloo, Instants: single, MinAltitudeDeg: -90})
	if len(got) != 1 || got[0].DurationMinutes != 0 {
		t.Fatalf("single instant: got %+v, want one zero-length session", got)
	}
	if !got[0].Start.Equal(got[0].End) {
		t.Errorf("single instant start %v != end %v", got[0].Start, got[0].End)
	}

	got = Extract(Request{Target: polaris, Observer: waterloo, Instants: single, MinAltitudeDeg: -90, MinSessionMinutes: 30})
	if len(got) != 0 {
		t.Errorf("got %d sessions shorter than the minimum", len(got))
	}
}

func TestExtractDayLongBlockExcluded(t *testing.T) {
	start := time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC)
	instants := series(start, start.Add(25*time.Hour), 15*time.Minute)

	got := Extract(Request{Target: polaris, Observer: waterloo, Instants: instants, MinAltitudeDeg: -90})
	if len(got) != 0 {
		t.Errorf("got %+v, want day-long block dropped", got)
	}

	// Just under a day is kept.
	instants = series(start, start.Add(1439*time.Minute), time.Minute)
	got = Extract(Request{Target: polaris, Observer: waterloo, Instants: instants, MinAltitudeDeg: -90})
	if len(got) != 1 || got[0].DurationMinutes != 1439 {
		t.Errorf("got %+v, want one 1439-minute session", got)
	}
}

func TestMerge(t *testing.T) {
	base := time.Date(2023, 8, 16, 2, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

	tests := []struct {
		name     string
		instants []time.Time
		want     int
	}{
		{"empty", nil, 0},
		{"gap exactly 20", []time.Time{at(0), at(20), at(40)}, 1},
		{"gap 21", []time.Time{at(0), at(21)}, 2},
		{"next night same clock time", []time.Time{at(0), at(15), at(24*60 + 10), at(24*60 + 25)}, 2},
		{"one day apart", []time.Time{at(0), at(24 * 60)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.instants)
			if len(got) != tt.want {
				t.Fatalf("got %d blocks, want %d: %+v", len(got), tt.want, got)
			}
			for i := 1; i < len(got); i++ {
				if gap := got[i].First.Sub(got[i-1].Last); gap <= MaxGap {
					t.Errorf("blocks %d/%d separated by %v", i-1, i, gap)
				}
			}
		})
	}
}

func TestSessionJSON(t *testing.T) {
	s := Session{
		Start:           time.Date(2023, 8, 15, 22, 10, 0, 0, edt),
		End:             time.Date(2023, 8, 16, 1, 40, 0, 0, edt),
		DurationMinutes: 210,
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"start":"2023-08-15 22:10:00","end":"2023-08-16 01:40:00","duration":210}`
	if string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
}

func TestExtractorSequentialMatchesParallel(t *testing.T) {
	m31 := ephemeris.Target{RADeg: 10.6847, DecDeg: 41.2687}
	start := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	instants := series(start, start.AddDate(0, 1, 0), 15*time.Minute)

	req := Request{Target: m31, Observer: waterloo, Instants: instants, MinAltitudeDeg: 30, MinSessionMinutes: 60, Location: edt}
	a := NewExtractor(ephemeris.NewWorkerPool(1)).Extract(req)
	b := NewExtractor(ephemeris.NewWorkerPool(5)).Extract(req)

	if len(a) != len(b) {
		t.Fatalf("session counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Start.Equal(b[i].Start) || !a[i].End.Equal(b[i].End) {
			t.Errorf("session %d differs: %+v vs %+v", i, a[i], b[i])
		}
		if a[i].DurationMinutes < 60 || a[i].DurationMinutes >= MaxSessionMinutes {
			t.Errorf("session %d duration %v out of bounds", i, a[i].DurationMinutes)
		}
	}
}
