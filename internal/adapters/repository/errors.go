package repository

import "errors"

// Sentinel kinds for table store errors.
var (
	ErrNotFound  = errors.New("table not found")
	ErrClosed    = errors.New("table store closed")
	ErrInvalidID = errors.New("invalid table id")
	ErrNilTable  = errors.New("nil table")
)
