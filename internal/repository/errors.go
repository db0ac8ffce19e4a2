package repository

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrAtCapacity = errors.New("venue at capacity")
	// ErrProfileMissing: a write referenced the caller's user row and it
	// does not exist yet; the caller must ensure a profile first.
	ErrProfileMissing = errors.New("profile missing")
)
