package database

import "errors"

// ErrNotFound is wrapped by lookups that match no row
var ErrNotFound = errors.New("not found")
