package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrSerialization marks a transaction the database aborted because of a
	// concurrent update. The whole transaction may be retried.
	ErrSerialization = errors.New("serialization failure")
)
