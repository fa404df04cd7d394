package service

import "errors"

// ErrUnavailable is returned while no catalog is loaded. It wraps the load
// error when one occurred.
var ErrUnavailable = errors.New("recommendation data unavailable")
