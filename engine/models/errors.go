package models

import "errors"

var (
	// ErrInvalidInput covers disallowed extensions, malformed digests and
	// empty required fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateContent is returned instead of a silent no-op when the
	// caller selected DuplicateError.
	ErrDuplicateContent = errors.New("file already exists")

	// ErrIndexFull means every rollover candidate for a bucket is over the
	// size ceiling.
	ErrIndexFull = errors.New("index rollover attempts exhausted")

	// ErrNotFound is returned by lookups for buckets or objects that were
	// never stored.
	ErrNotFound = errors.New("not found")
)
