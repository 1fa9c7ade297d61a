package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyStore keeps one list per (bucket, key). Each element is a JSON
// encoded record; RPUSH appends and LRANGE reads oldest first.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// OpenValkey connects to addr (host:port or a valkey:// / redis:// URL) and
// verifies the connection.
func OpenValkey(ctx context.Context, addr, prefix string) (*ValkeyStore, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("store: parse valkey url: %w", err)
		}
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("store: valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("store: ping valkey: %w", err)
	}
	return NewValkeyStore(client, prefix), nil
}

// NewValkeyStore wraps an existing client.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "darksky"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) Read(ctx context.Context, bucketStart time.Time, key LocationKey) ([]Record, error) {
	cmd := s.client.B().Lrange().Key(s.listKey(bucketStart, key)).Start(0).Stop(-1).Build()
	elems, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: lrange valkey: %w", err)
	}

	out := make([]Record, 0, len(elems))
	for i, e := range elems {
		rec, err := decodeRecord([]byte(e))
		if err != nil {
			return nil, fmt.Errorf("store: valkey element %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *ValkeyStore) Write(ctx context.Context, rec Record) error {
	payload, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("store: encode record: %w", err)
	}
	cmd := s.client.B().Rpush().Key(s.listKey(rec.BucketStart, rec.Key)).Element(string(payload)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("store: rpush valkey: %w", err)
	}
	return nil
}

func (s *ValkeyStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close closes the client.
func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}

func (s *ValkeyStore) listKey(bucketStart time.Time, key LocationKey) string {
	return fmt.Sprintf("%s:windows:%s:%s:%s",
		s.prefix, bucketStart.UTC().Format("2006-01"), key.LatString(), key.LonString())
}

var _ Store = (*ValkeyStore)(nil)
