// Package cache serves dark instants for arbitrary time windows from a
// durable store of month-sized buckets.
//
// A query window is decomposed into the UTC calendar months it touches. Each
// month is looked up under the quantized location key. GetOrGenerate fills
// missing months by running the generator over the whole month and appending
// a new record; GetOnly never generates. Both return the unfiltered union of
// every covering month, so callers trim to their window with Assemble.
//
// There is no lock around generation: two concurrent misses for the same
// month may both append a record. Readers tolerate duplicates (see Dedup).
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/star/darksky/internal/darkness"
	"github.com/star/darksky/internal/metrics"
	"github.com/star/darksky/internal/store"
)

// Operation labels used in logs and metrics.
const (
	opGetOrGenerate = "get_or_generate"
	opGetOnly       = "get_only"
	opWarm          = "warm"
)

// GenerateFunc produces the dark instants in [start, end) at (lat, lon).
// darkness.Generate and (*darkness.Generator).Generate satisfy it.
type GenerateFunc func(start, end time.Time, lat, lon float64) ([]time.Time, error)

// WindowCache is safe for concurrent use by multiple goroutines.
type WindowCache struct {
	store    store.Store
	generate GenerateFunc
	logger   *slog.Logger

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	generated atomic.Int64
}

// NewWindowCache creates a cache over s that fills misses with generate.
func NewWindowCache(s store.Store, generate GenerateFunc, logger *slog.Logger) *WindowCache {
	return &WindowCache{
		store:    s,
		generate: generate,
		logger:   logger,
	}
}

// GetOrGenerate returns every stored dark instant for the months covering
// [start, end) at the quantized location, generating and persisting any
// month that has no record yet.
func (c *WindowCache) GetOrGenerate(ctx context.Context, start, end time.Time, lat, lon float64) ([]time.Time, error) {
	return c.collect(ctx, opGetOrGenerate, start, end, lat, lon, true)
}

// GetOnly is GetOrGenerate without generation: months with no record
// contribute nothing and the store is never written.
func (c *WindowCache) GetOnly(ctx context.Context, start, end time.Time, lat, lon float64) ([]time.Time, error) {
	return c.collect(ctx, opGetOnly, start, end, lat, lon, false)
}

func (c *WindowCache) collect(ctx context.Context, op string, start, end time.Time, lat, lon float64, fill bool) ([]time.Time, error) {
	if err := darkness.ValidateRange(start, end); err != nil {
		return nil, err
	}
	if err := darkness.ValidateCoordinate(lat, lon); err != nil {
		return nil, err
	}

	key := store.KeyFor(lat, lon)
	buckets := MonthBuckets(start, end)

	var out []time.Time
	for _, b := range buckets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		instants, _, err := c.bucket(ctx, op, b, key, lat, lon, fill)
		if err != nil {
			return nil, err
		}
		out = append(out, instants...)
	}

	c.logger.Debug("window cache lookup",
		"op", op,
		"key", key.String(),
		"buckets", len(buckets),
		"instants", len(out),
	)
	return out, nil
}

// bucket returns the union of all records for one month. On a miss with
// fill set it generates the month and appends a record.
func (c *WindowCache) bucket(ctx context.Context, op string, b MonthBucket, key store.LocationKey, lat, lon float64, fill bool) ([]time.Time, bool, error) {
	recs, err := c.store.Read(ctx, b.Start, key)
	if err != nil {
		metrics.IncStoreErrors("read")
		return nil, false, fmt.Errorf("reading bucket %s at %s: %w", b, key, err)
	}

	if len(recs) > 0 {
		c.hits.Add(1)
		metrics.IncBucketHit(op)
		var out []time.Time
		for _, r := range recs {
			out = append(out, r.Instants...)
		}
		return out, false, nil
	}

	c.misses.Add(1)
	metrics.IncBucketMiss(op)
	if !fill {
		c.logger.Debug("bucket miss, not generating", "op", op, "bucket_start", b.Start.Format(time.RFC3339), "key", key.String())
		return nil, false, nil
	}

	genStart := time.Now()
	instants, err := c.generate(b.Start, b.End, lat, lon)
	if err != nil {
		return nil, false, fmt.Errorf("generating bucket %s: %w", b, err)
	}
	duration := time.Since(genStart)
	metrics.RecordGeneration(duration, len(instants))

	if err := c.store.Write(ctx, store.NewRecord(b.Start, b.End, key, instants)); err != nil {
		metrics.IncStoreErrors("write")
		return nil, false, fmt.Errorf("writing bucket %s at %s: %w", b, key, err)
	}
	c.generated.Add(1)
	metrics.IncRecordsWritten()

	c.logger.Info("bucket generated",
		"op", op,
		"bucket_start", b.Start.Format(time.RFC3339),
		"key", key.String(),
		"instants", len(instants),
		"duration_ms", duration.Milliseconds(),
	)
	return instants, true, nil
}

// Stats returns lookup counters since the cache was created.
func (c *WindowCache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Generated: c.generated.Load(),
	}
}

// Stats holds cache statistics for the stats endpoint.
type Stats struct {
	Hits      int64 `json:"bucket_hits"`
	Misses    int64 `json:"bucket_misses"`
	Generated int64 `json:"buckets_generated"`
}
