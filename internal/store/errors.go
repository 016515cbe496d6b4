package store

import (
	"errors"

	"github.com/rotisserie/eris"
)

// StorageError marks a persistence-layer failure (connectivity, constraint
// violation, scan error). Callers distinguish it from validation and
// configuration problems; the pipeline treats it as fatal and does not retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether any error in the chain is a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// storageWrap classifies err as a StorageError. Returns nil for nil err.
func storageWrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// storageErrf creates a StorageError from a formatted message.
func storageErrf(op, format string, args ...any) error {
	return &StorageError{Op: op, Err: eris.Errorf(format, args...)}
}
