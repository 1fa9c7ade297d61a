package cache

import (
	"slices"
	"time"
)

// Assemble keeps the instants strictly inside (start, end) and sorts them
// ascending. Duplicates are kept. The input slice is not modified.
func Assemble(instants []time.Time, start, end time.Time) []time.Time {
	out := make([]time.Time, 0, len(instants))
	for _, t := range instants {
		if t.After(start) && t.Before(end) {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

// Dedup drops repeated instants from an ascending slice, in place.
func Dedup(sorted []time.Time) []time.Time {
	return slices.CompactFunc(sorted, func(a, b time.Time) bool { return a.Equal(b) })
}
