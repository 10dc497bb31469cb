package store

import "errors"

var (
	ErrNotFound = errors.New("room not found")
	ErrStore    = errors.New("store failure")
	ErrConflict = errors.New("room changed since snapshot")
)

// AnyVersion disables the version guard on a write.
const AnyVersion int64 = -1
