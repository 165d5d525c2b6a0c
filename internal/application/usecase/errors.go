package usecase

import "errors"

// ErrInvalidInput marks requests rejected by entity validation.
var ErrInvalidInput = errors.New("invalid input")
