// Package blob stores exported files such as history dumps.
//
// A [Store] writes and reads opaque objects by key. Keys are relative,
// slash-separated paths validated with errors.ValidateKey. Two backends
// exist: [FSStore] writes below a root directory and [S3Store] writes to a
// single S3 (or S3-compatible) bucket.
package blob

import (
	"context"
	"io"
	"time"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// Info describes a stored object.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is an object store. Put overwrites an existing key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	// Location returns a human-readable address of key.
	Location(key string) string
}

// Driver identifies a backend.
type Driver string

const (
	DriverFS Driver = "fs"
	DriverS3 Driver = "s3"
)

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	// Dir is the root directory of the fs driver.
	Dir string
	S3  S3Config
}

// Open constructs the store named by cfg.Driver. An empty driver selects fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFS, "":
		return NewFSStore(cfg.Dir)
	case DriverS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, errors.InvalidInput("export.driver", "unknown driver %q (want fs or s3)", cfg.Driver)
	}
}
