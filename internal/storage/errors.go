package storage

import "errors"

// ErrNotFound is returned when a requested analysis does not exist.
var ErrNotFound = errors.New("storage: not found")
