package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"smartledger/internal/core"
)

// ErrNotFound is returned when a row does not exist or is not visible to the
// requesting user.
var ErrNotFound = core.ErrNotFound

// StorageError wraps a driver failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// wrapErr maps sql.ErrNoRows to ErrNotFound and everything else to a
// *StorageError.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return &StorageError{Op: op, Err: err}
}
