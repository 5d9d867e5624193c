package search

import "errors"

var (
	// ErrInvalidConfiguration is returned for chunking parameters that cannot make progress.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrNotFitted is returned when projecting text before a vector space exists.
	ErrNotFitted = errors.New("vector space not fitted")
	// ErrInvalidArgument is returned for malformed rank or fit requests.
	ErrInvalidArgument = errors.New("invalid argument")
)
