// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// seating engine and the handlers to distinguish between different failure
// scenarios. ErrConflict signals that a compare-and-set update found the
// row in a different state than expected, which callers treat as "someone
// else got there first" and re-read.
package repository

import "errors"

// ErrNotFound is returned when the addressed row does not exist. Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an update cannot be performed because the
// row is no longer in the expected state, such as flipping a table that is
// already occupied. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert violates a unique key, such as a
// confirmation code that is already taken or a second visit for one code.
var ErrDuplicate = errors.New("duplicate")
