package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates the configuration file could not be resolved.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnauthorized indicates the hosting API rejected the credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// Parsing and initialisation errors.

	// ErrFormatMismatch indicates a document cannot be parsed with its
	// configured options (unknown format or missing heading level).
	ErrFormatMismatch = errors.New("format mismatch")

	// ErrMissingBlame indicates a parsed item's line has no blame entry.
	// The parser and the working tree disagree about line numbers.
	ErrMissingBlame = errors.New("missing blame entry")

	// ErrCorruptStore indicates an index entry refers to an item body
	// that does not exist.
	ErrCorruptStore = errors.New("corrupt store")

	// ErrSyncInProgress indicates a reconciliation run is already active.
	ErrSyncInProgress = errors.New("sync in progress")
)

// IsInitError reports whether err is fatal to the initialisation of a
// file. Raised while seeding, it aborts the whole run; raised while
// reconciling an already initialised file, it only fails that file.
func IsInitError(err error) bool {
	return errors.Is(err, ErrMissingBlame) || errors.Is(err, ErrFormatMismatch)
}
