// Package constants provides shared constants used throughout the specimap codebase.
// This includes timeouts, concurrency limits and file permissions that should be
// consistent across the enrichment and reconciliation pipeline.
package constants

import "time"

// Timeout constants define the deadlines used by the pipeline.
const (
	// DefaultHTTPTimeout is the standard timeout for a single call to an external source.
	DefaultHTTPTimeout = 15 * time.Second

	// EnrichmentDeadline is the wall-clock budget for all enrichers of one specimen.
	EnrichmentDeadline = 30 * time.Second

	// BatchDeadline bounds a whole file-level batch run.
	BatchDeadline = 6 * time.Hour

	// ShutdownTimeout is how long graceful shutdown may take.
	ShutdownTimeout = 5 * time.Second
)

// File permission constants define standard Unix file permissions.
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define concurrency limits.
const (
	// DefaultBatchParallelism is the default size of the outer batch worker pool.
	DefaultBatchParallelism = 8

	// MaxFallbackIdentifiers is how many identifier-like strings the region
	// resolver inspects before giving up.
	MaxFallbackIdentifiers = 3
)

// Defaults for the repository.
const (
	// DefaultSchemaName is the schema records are validated against.
	DefaultSchemaName = "specimen"

	// DefaultRepositoryFile is the SQLite file used when none is configured.
	DefaultRepositoryFile = "specimap.db"
)
