package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// InstantLayout is the text form of a stored dark instant. It carries no
// zone designator; stored instants are always UTC.
const InstantLayout = "2006-01-02T15:04:05.000"

// EncodeInstants formats instants as UTC InstantLayout strings.
func EncodeInstants(instants []time.Time) []string {
	out := make([]string, len(instants))
	for i, t := range instants {
		out[i] = t.UTC().Format(InstantLayout)
	}
	return out
}

// DecodeInstants parses InstantLayout strings as UTC.
func DecodeInstants(raw []string) ([]time.Time, error) {
	out := make([]time.Time, len(raw))
	for i, s := range raw {
		t, err := time.ParseInLocation(InstantLayout, s, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("decoding instant %d %q: %w", i, s, err)
		}
		out[i] = t
	}
	return out, nil
}

func marshalInstants(instants []time.Time) ([]byte, error) {
	return json.Marshal(EncodeInstants(instants))
}

func unmarshalInstants(data []byte) ([]time.Time, error) {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding instants: %w", err)
	}
	return DecodeInstants(raw)
}

// recordJSON is the self-contained document form of a Record.
type recordJSON struct {
	ID          string    `json:"id"`
	BucketStart time.Time `json:"bucket_start"`
	BucketEnd   time.Time `json:"bucket_end"`
	Lat         float64   `json:"lat_key"`
	Lon         float64   `json:"lon_key"`
	Instants    []string  `json:"optimal_times"`
	CreatedAt   time.Time `json:"created_at"`
}

func encodeRecord(rec Record) ([]byte, error) {
	return json.Marshal(recordJSON{
		ID:          rec.ID,
		BucketStart: rec.BucketStart.UTC(),
		BucketEnd:   rec.BucketEnd.UTC(),
		Lat:         rec.Key.Lat,
		Lon:         rec.Key.Lon,
		Instants:    EncodeInstants(rec.Instants),
		CreatedAt:   rec.CreatedAt.UTC(),
	})
}

func decodeRecord(data []byte) (Record, error) {
	var doc recordJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return Record{}, fmt.Errorf("decoding record: %w", err)
	}
	instants, err := DecodeInstants(doc.Instants)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:          doc.ID,
		BucketStart: doc.BucketStart.UTC(),
		BucketEnd:   doc.BucketEnd.UTC(),
		Key:         LocationKey{Lat: doc.Lat, Lon: doc.Lon},
		Instants:    instants,
		CreatedAt:   doc.CreatedAt.UTC(),
	}, nil
}
