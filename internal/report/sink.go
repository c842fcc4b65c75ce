// Package report runs the curated reporting queries against a loaded
// warehouse and publishes each result set as a CSV document.
package report

import (
	"context"
	"fmt"
	"io"
)

// Driver identifies a sink backend.
type Driver string

// Supported sink drivers.
const (
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
	DriverS3         Driver = "s3"
)

// Sink receives finished report documents. Writing the same name twice
// overwrites; report output is derived state and always safe to regenerate.
type Sink interface {
	Driver() Driver
	// Put stores one document and returns its backend location (a file
	// path, an object URI, or an in-memory key).
	Put(ctx context.Context, name string, r io.Reader) (string, error)
}

// SinkConfig selects and parameterizes a sink backend.
type SinkConfig struct {
	Driver Driver
	// Root is the output directory for the filesystem driver.
	Root string
	// Bucket, Region, Endpoint, and PathStyle configure the s3 driver.
	// Endpoint is optional and enables S3-compatible stores such as MinIO.
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// OpenSink constructs the configured sink. An empty driver defaults to the
// filesystem.
func OpenSink(ctx context.Context, cfg SinkConfig) (Sink, error) {
	switch cfg.Driver {
	case DriverFilesystem, "":
		return NewFilesystemSink(cfg.Root)
	case DriverMemory:
		return NewMemorySink(), nil
	case DriverS3:
		return NewS3Sink(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown report sink driver %q", cfg.Driver)
	}
}
