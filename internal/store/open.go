package store

import (
	"context"
	"fmt"
	"log/slog"
)

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverValkey   = "valkey"
)

// Options selects and configures a backend.
type Options struct {
	Driver       string
	SQLitePath   string
	PostgresDSN  string
	ValkeyAddr   string
	ValkeyPrefix string
}

// Open constructs the backend named by opts.Driver.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Driver {
	case DriverMemory:
		s = NewMemoryStore()
	case DriverSQLite:
		s, err = OpenSQLite(opts.SQLitePath)
	case DriverPostgres:
		s, err = OpenPostgres(ctx, opts.PostgresDSN)
	case DriverValkey:
		s, err = OpenValkey(ctx, opts.ValkeyAddr, opts.ValkeyPrefix)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("window store opened", "driver", opts.Driver)
	return s, nil
}
