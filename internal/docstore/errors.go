package docstore

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery reports a malformed filter, ordering or limit.
var ErrInvalidQuery = errors.New("docstore: invalid query")

// StorageError wraps any failure raised by a store operation.
type StorageError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *StorageError) Error() string {
	target := e.Collection
	if e.ID != "" {
		target += "/" + e.ID
	}
	return fmt.Sprintf("docstore: %s %s: %v", e.Op, target, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err carries a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func fail(op, collection, id string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Collection: collection, ID: id, Err: err}
}
