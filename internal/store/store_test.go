package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{43.4494, 43.45},
		{43.4517, 43.45},
		{-80.5752, -80.58},
		{-80.5749, -80.57},
		{0.004, 0},
		{-0.004, 0},
		{89.999, 90},
		{-180, -180},
		{0.125, 0.12},
		{-0.125, -0.12},
		{2.675, 2.67},
		{10.625, 10.62},
		{0.375, 0.38},
	}
	for _, tt := range tests {
		if got := Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLocationKeyString(t *testing.T) {
	require.Equal(t, "43.45,-80.58", KeyFor(43.4494, -80.5752).String())
	require.Equal(t, "0.00,0.00", KeyFor(-0.001, 0.001).String())
	require.Equal(t, KeyFor(43.4494, -80.5752), KeyFor(43.4517, -80.5803))
}

func TestInstantCodec(t *testing.T) {
	in := []time.Time{
		time.Date(2023, 8, 16, 4, 15, 0, 0, time.UTC),
		time.Date(2023, 8, 16, 4, 30, 0, 0, time.FixedZone("EDT", -4*3600)),
	}
	raw := EncodeInstants(in)
	require.Equal(t, []string{"2023-08-16T04:15:00.000", "2023-08-16T08:30:00.000"}, raw)

	out, err := DecodeInstants(raw)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		require.True(t, in[i].Equal(out[i]), "instant %d: %v != %v", i, in[i], out[i])
		require.Equal(t, time.UTC, out[i].Location())
	}

	_, err = DecodeInstants([]string{"2023-08-16 04:15"})
	require.Error(t, err)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "firestore"}, testLogger())
	require.ErrorContains(t, err, "unknown driver")
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	bucket := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	key := KeyFor(43.45, -80.58)

	instants := []time.Time{bucket.Add(4 * time.Hour)}
	require.NoError(t, s.Write(ctx, NewRecord(bucket, bucket.AddDate(0, 1, 0), key, instants)))
	instants[0] = time.Time{}

	recs, err := s.Read(ctx, bucket, key)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, bucket.Add(4*time.Hour), recs[0].Instants[0])
	require.Equal(t, 1, s.Len())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "windows.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	testStoreContract(t, s)
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "windows.db")
	bucket := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	key := KeyFor(51.48, 0)

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, NewRecord(bucket, bucket.AddDate(0, 1, 0), key, []time.Time{bucket.Add(time.Hour)})))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	recs, err := reopened.Read(ctx, bucket, key)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DARKSKY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DARKSKY_TEST_POSTGRES_DSN not set")
	}
	s, err := OpenPostgres(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	testStoreContract(t, s)
}

func TestValkeyStore(t *testing.T) {
	addr := os.Getenv("DARKSKY_TEST_VALKEY_ADDR")
	if addr == "" {
		t.Skip("DARKSKY_TEST_VALKEY_ADDR not set")
	}
	// A unique prefix keeps runs independent without deleting anything.
	s, err := OpenValkey(context.Background(), addr, "darksky-test-"+time.Now().Format("20060102150405.000000000"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	testStoreContract(t, s)
}

// testStoreContract exercises the append-only contract every backend shares.
// Buckets are derived from the wall clock so reruns against a shared
// database never see records from earlier runs.
func testStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC()
	bucket := time.Date(2000+now.Nanosecond()%800, time.Month(1+now.Second()%12), 1, 0, 0, 0, 0, time.UTC)
	bucketEnd := bucket.AddDate(0, 1, 0)
	key := KeyFor(43.4494, -80.5752)
	other := KeyFor(43.4494, -80.5652)

	require.NoError(t, s.Ping(ctx))

	recs, err := s.Read(ctx, bucket, key)
	require.NoError(t, err)
	require.Empty(t, recs, "miss must be empty")

	first := NewRecord(bucket, bucketEnd, key, []time.Time{
		bucket.Add(4 * time.Hour),
		bucket.Add(4*time.Hour + 15*time.Minute),
	})
	require.NoError(t, s.Write(ctx, first))

	second := NewRecord(bucket, bucketEnd, key, []time.Time{bucket.Add(4 * time.Hour)})
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, s.Write(ctx, second))

	require.NoError(t, s.Write(ctx, NewRecord(bucket, bucketEnd, other, []time.Time{bucket})))
	require.NoError(t, s.Write(ctx, NewRecord(bucketEnd, bucketEnd.AddDate(0, 1, 0), key, []time.Time{bucketEnd})))

	recs, err = s.Read(ctx, bucket, key)
	require.NoError(t, err)
	require.Len(t, recs, 2, "duplicates for one bucket/key are kept")

	require.Equal(t, first.ID, recs[0].ID)
	require.Equal(t, second.ID, recs[1].ID)
	require.True(t, recs[0].BucketStart.Equal(bucket))
	require.True(t, recs[0].BucketEnd.Equal(bucketEnd))
	require.Equal(t, key, recs[0].Key)
	require.Len(t, recs[0].Instants, 2)
	require.True(t, recs[0].Instants[1].Equal(bucket.Add(4*time.Hour+15*time.Minute)))
	require.WithinDuration(t, first.CreatedAt, recs[0].CreatedAt, time.Millisecond)

	recs, err = s.Read(ctx, bucket, other)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}
