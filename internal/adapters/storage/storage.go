package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bounty-webhooks/internal/adapters/storage/jsonfile"
	"bounty-webhooks/internal/adapters/storage/memory"
	"bounty-webhooks/internal/adapters/storage/postgres"
	"bounty-webhooks/internal/adapters/storage/sqlite"
	"bounty-webhooks/internal/domain/state"
	"bounty-webhooks/internal/domain/subscribers"
)

const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Options struct {
	Driver     string
	DataDir    string // file
	DSN        string // postgres
	SQLitePath string // sqlite; vacío => en memoria
}

// Backend agrupa los dos almacenes durables del servicio.
type Backend struct {
	Driver      string
	State       state.Store
	Subscribers subscribers.Repository

	db *sql.DB
}

func (b *Backend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Open elige el backend según Driver (default: file).
func Open(ctx context.Context, opts Options) (*Backend, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = DriverFile
	}

	switch driver {
	case DriverMemory:
		return &Backend{
			Driver:      driver,
			State:       memory.NewStateStore(),
			Subscribers: memory.NewSubscriberRepo(),
		}, nil

	case DriverFile:
		dir := strings.TrimSpace(opts.DataDir)
		if dir == "" {
			dir = "data"
		}
		repo, err := jsonfile.OpenSubscriberRepo(dir)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Driver:      driver,
			State:       jsonfile.NewStateStore(dir),
			Subscribers: repo,
		}, nil

	case DriverPostgres:
		if strings.TrimSpace(opts.DSN) == "" {
			return nil, fmt.Errorf("storage: %s driver requires DB_DSN", driver)
		}
		db, err := postgres.Open(opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("storage: open postgres: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: postgres schema: %w", err)
		}
		return &Backend{
			Driver:      driver,
			State:       postgres.NewStateStore(db),
			Subscribers: postgres.NewSubscribersRepo(db),
			db:          db,
		}, nil

	case DriverSQLite:
		var (
			db  *sql.DB
			err error
		)
		if p := strings.TrimSpace(opts.SQLitePath); p != "" {
			db, err = sqlite.Open(p)
		} else {
			db, err = sqlite.OpenMemory()
		}
		if err != nil {
			return nil, fmt.Errorf("storage: open sqlite: %w", err)
		}
		return &Backend{
			Driver:      driver,
			State:       sqlite.NewStateStore(db),
			Subscribers: sqlite.NewSubscribersRepo(db),
			db:          db,
		}, nil

	default:
		return nil, fmt.Errorf("storage: unknown driver %q", opts.Driver)
	}
}
