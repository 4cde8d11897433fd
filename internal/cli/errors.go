package cli

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	ErrConfigInvalid = "CONFIG_INVALID"

	// Database errors
	ErrDatabaseError   = "DATABASE_ERROR"
	ErrDatabaseVersion = "DATABASE_VERSION_MISMATCH"

	// File errors
	ErrFileNotFound   = "FILE_NOT_FOUND"
	ErrFileReadError  = "FILE_READ_ERROR"
	ErrFileWriteError = "FILE_WRITE_ERROR"

	// Script errors
	ErrScriptFailed = "SCRIPT_FAILED"
	ErrWardFailed   = "WARD_FAILED"

	// Input errors
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMissingArgument = "MISSING_ARGUMENT"

	// Daemon errors
	ErrWatchFailed = "WATCH_FAILED"

	// Docs errors
	ErrDocNotFound = "DOC_NOT_FOUND"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)
