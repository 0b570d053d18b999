package cache

import "errors"

// Sentinel errors surfaced synchronously by foreground operations. Every
// operation returns one of these directly, with no wrapping, so a plain
// errors.Is comparison is always sufficient.
var (
	// ErrArgumentInvalid is returned when a key is null where the key type
	// permits null, or when a CopyTo destination/offset is malformed.
	ErrArgumentInvalid = errors.New("cache: argument invalid")

	// ErrNotFound is returned by Get when the key is absent or has expired.
	ErrNotFound = errors.New("cache: key not found")

	// ErrCapacityInsufficient is returned by CopyTo when the destination
	// slice has too little remaining room for the current live
	// (non-expired) entries.
	ErrCapacityInsufficient = errors.New("cache: destination capacity insufficient")

	// ErrUsedAfterDisposal is returned by every foreground operation
	// (other than IsDisposed) once Dispose has completed.
	ErrUsedAfterDisposal = errors.New("cache: used after disposal")
)
