// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers to tell a
// missing row apart from an I/O failure without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.  Callers decide
// whether absence is an error in their domain.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when inserting a user whose email is
// already registered. Handlers should translate this into an HTTP 409
// response.
var ErrEmailExists = errors.New("email already exists")
