// Package store persists generated dark-window records, one or more per
// (month bucket, quantized location). Records are append-only: they are
// never updated or deleted, and several records for the same bucket and key
// are legal.
package store

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// LocationKey is a location quantized to two decimal places (~1.1 km).
type LocationKey struct {
	Lat float64
	Lon float64
}

// Quantize rounds a coordinate to two decimal places. Rounding applies to
// the exact binary value with ties to even, so 2.675 (stored just below)
// gives 2.67 and 0.125 gives 0.12.
func Quantize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	q, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	if q == 0 {
		// Avoid "-0.00" in key strings.
		return 0
	}
	return q
}

// KeyFor returns the quantized key for a coordinate pair.
func KeyFor(lat, lon float64) LocationKey {
	return LocationKey{Lat: Quantize(lat), Lon: Quantize(lon)}
}

// LatString and LonString are the canonical text forms used as storage keys.
func (k LocationKey) LatString() string { return fmt.Sprintf("%.2f", k.Lat) }
func (k LocationKey) LonString() string { return fmt.Sprintf("%.2f", k.Lon) }

func (k LocationKey) String() string {
	return k.LatString() + "," + k.LonString()
}

// Record is the persisted result of generating one month bucket at one key.
type Record struct {
	ID          string
	BucketStart time.Time // UTC first of month, inclusive
	BucketEnd   time.Time // UTC first of next month, exclusive
	Key         LocationKey
	Instants    []time.Time
	CreatedAt   time.Time
}

// NewRecord builds a record with a fresh ID and creation time.
func NewRecord(bucketStart, bucketEnd time.Time, key LocationKey, instants []time.Time) Record {
	return Record{
		ID:          uuid.NewString(),
		BucketStart: bucketStart.UTC(),
		BucketEnd:   bucketEnd.UTC(),
		Key:         key,
		Instants:    instants,
		CreatedAt:   time.Now().UTC(),
	}
}

// Store is the durable record store.
type Store interface {
	// Read returns every record for the bucket and key, oldest first.
	// A miss is an empty slice and a nil error.
	Read(ctx context.Context, bucketStart time.Time, key LocationKey) ([]Record, error)
	// Write appends a record. It never replaces or merges existing records.
	Write(ctx context.Context, rec Record) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// bucketKey formats a bucket start for text-keyed backends.
func bucketKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
