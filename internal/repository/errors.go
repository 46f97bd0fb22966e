// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// services and handlers to distinguish between failure scenarios
// without depending on driver-specific errors.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameExists is returned when registering a username that is
// already taken.  Handlers should translate this into an HTTP 409.
var ErrUsernameExists = errors.New("username already exists")

// isDuplicateKey recognises unique-key violations from both MySQL
// (error 1062) and SQLite.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint")
}
