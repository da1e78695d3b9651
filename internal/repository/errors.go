package repository

import "errors"

// ErrStaleState is returned when a conditional update matched no row because
// the record changed state concurrently.
var ErrStaleState = errors.New("record state changed")
