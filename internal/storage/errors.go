package storage

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist. Expected
	// outcome, not a fault.
	ErrNotFound = errors.New("record not found")

	ErrFailedToParseDBConfig    = errors.New("failed to parse database config")
	ErrFailedToOpenDBConnection = errors.New("failed to open database connection")
	ErrFailedToApplyMigrations  = errors.New("failed to apply migrations")
	ErrMigrationsDirNotFound    = errors.New("migrations directory not found")
)
