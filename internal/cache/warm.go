package cache

import (
	"context"
	"time"

	"github.com/star/darksky/internal/darkness"
	"github.com/star/darksky/internal/store"
)

// Progress is called after each bucket Warm visits.
type Progress func(done, total int)

// WarmResult summarizes a warmup run.
type WarmResult struct {
	Buckets   int // buckets covering the range
	Generated int // buckets that had no record and were generated
}

// Warm makes sure every month covering [start, end) has at least one record
// at the quantized location. Months that already have records are left
// alone. Cancelling ctx stops between buckets.
func (c *WindowCache) Warm(ctx context.Context, start, end time.Time, lat, lon float64, progress Progress) (WarmResult, error) {
	if err := darkness.ValidateRange(start, end); err != nil {
		return WarmResult{}, err
	}
	if err := darkness.ValidateCoordinate(lat, lon); err != nil {
		return WarmResult{}, err
	}

	key := store.KeyFor(lat, lon)
	buckets := MonthBuckets(start, end)
	res := WarmResult{Buckets: len(buckets)}

	c.logger.Info("cache warmup starting",
		"buckets", len(buckets),
		"key", key.String(),
		"from", buckets[0].Start.Format(time.RFC3339),
		"to", buckets[len(buckets)-1].End.Format(time.RFC3339),
	)

	begin := time.Now()
	for i, b := range buckets {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		_, generated, err := c.bucket(ctx, opWarm, b, key, lat, lon, true)
		if err != nil {
			return res, err
		}
		if generated {
			res.Generated++
		}
		if progress != nil {
			progress(i+1, len(buckets))
		}
	}

	c.logger.Info("cache warmup complete",
		"generated", res.Generated,
		"duration_ms", time.Since(begin).Milliseconds(),
	)
	return res, nil
}
