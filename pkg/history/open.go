package history

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// Driver identifies a backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMongo    Driver = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	// DSN is a file path for sqlite, a connection string for postgres and
	// a URI for mongo.
	DSN string
	// Database names the mongo database.
	Database string
	Logger   *log.Logger
}

// Open constructs the store named by cfg.Driver. An empty driver selects
// memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case DriverMemory, "":
		s = NewMemoryStore()
	case DriverSQLite:
		s, err = NewSQLStore(ctx, DriverNameSQLite, cfg.DSN)
	case DriverPostgres:
		s, err = NewSQLStore(ctx, DriverNamePostgres, cfg.DSN)
	case DriverMongo:
		s, err = NewMongoStore(ctx, cfg.DSN, cfg.Database)
	default:
		return nil, errors.InvalidInput("history.driver", "unknown driver %q (want memory, sqlite, postgres or mongo)", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("history store opened", "driver", cfg.Driver)
	return s, nil
}
