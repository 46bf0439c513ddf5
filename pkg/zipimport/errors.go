package zipimport

import (
	"errors"
)

// Sentinel errors for the failure classes of an import run.
// Callers distinguish them with errors.Is().
//
// Example usage:
//
//	err := importer.Import(ctx, cfg)
//	if errors.Is(err, zipimport.ErrTruncateFailed) {
//	    // destination untouched beyond the failed TRUNCATE
//	}
var (
	// ErrUsage indicates the command line was incomplete or malformed.
	ErrUsage = errors.New("usage error")

	// ErrInvalidConfig indicates the resolved configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates the destination could not be reached.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrUnsupportedBackend indicates no sink is registered for the connection URI scheme.
	ErrUnsupportedBackend = errors.New("unsupported backend")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrSourceUnreadable indicates the source file could not be opened or read.
	ErrSourceUnreadable = errors.New("source file unreadable")

	// ErrTruncateFailed indicates the destination table could not be emptied.
	ErrTruncateFailed = errors.New("truncate failed")

	// ErrMalformedRecord indicates a source line could not be parsed.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrPersistFailed indicates rows could not be written to the destination.
	ErrPersistFailed = errors.New("persist failed")
)

// ExitCodeForError returns the process exit code for an error.
// nil maps to ExitSuccess, everything else to ExitFailure.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return ExitFailure
}
