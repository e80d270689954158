package catalog

import "errors"

// ErrNotFound is returned when a style code does not resolve to a live
// product.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput marks request validation failures; handlers map it to
// a 400 instead of a 500.
var ErrInvalidInput = errors.New("invalid input")
