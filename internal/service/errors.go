package service

import "errors"

// ErrInvalidFilter is returned for query parameters that cannot be satisfied.
var ErrInvalidFilter = errors.New("invalid filter")
