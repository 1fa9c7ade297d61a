package cache

import "time"

// MonthBucket is a UTC calendar month [Start, End).
type MonthBucket struct {
	Start time.Time
	End   time.Time
}

func (b MonthBucket) String() string {
	return b.Start.Format("2006-01")
}

// MonthBuckets returns the months that intersect [start, end), in order.
// A window ending exactly on the first of a month does not include that
// month.
func MonthBuckets(start, end time.Time) []MonthBucket {
	start = start.UTC()
	end = end.UTC()
	if !start.Before(end) {
		return nil
	}

	var out []MonthBucket
	b := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for b.Before(end) {
		next := b.AddDate(0, 1, 0)
		out = append(out, MonthBucket{Start: b, End: next})
		b = next
	}
	return out
}
