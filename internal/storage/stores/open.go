// Package stores opens the storage.Store selected by configuration.
package stores

import (
	"context"
	"fmt"
	"strings"

	"github.com/hetulpatel/arbscanner/internal/logging"
	"github.com/hetulpatel/arbscanner/internal/storage"
	"github.com/hetulpatel/arbscanner/internal/storage/memory"
	"github.com/hetulpatel/arbscanner/internal/storage/postgres"
	"github.com/hetulpatel/arbscanner/internal/storage/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver        string
	SQLitePath    string
	Postgres      postgres.ClientConfig
	RunMigrations bool
}

// Open returns a ready store. SQLite and Postgres schemas are brought up to
// date when RunMigrations is set.
func Open(ctx context.Context, opts Options) (storage.Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverSQLite:
		store, err := sqlite.Open(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		if opts.RunMigrations {
			v, err := store.MigrateSchema(ctx)
			if err != nil {
				store.Close()
				return nil, err
			}
			logging.Debugf("[stores] sqlite %s at schema version %d", store.Path(), v)
		}
		return store, nil
	case DriverPostgres:
		client, err := postgres.New(ctx, opts.Postgres)
		if err != nil {
			return nil, err
		}
		if opts.RunMigrations {
			n, err := client.RunMigrations(ctx)
			if err != nil {
				client.Close()
				return nil, err
			}
			logging.Debugf("[stores] postgres applied %d migrations", n)
		}
		return postgres.NewStore(client), nil
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
