package model

import "errors"

// ErrInvalid marks an entity that fails field validation.
var ErrInvalid = errors.New("invalid entity")
