package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist (or, for
// orders, was soft deleted).
var ErrNotFound = errors.New("not found")
