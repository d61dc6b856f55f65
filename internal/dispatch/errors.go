package dispatch

import "errors"

// Sentinel errors for the dispatch package.
var (
	// ErrRequiresSynchronousContext is returned by state controllers handed
	// to callbacks on the deferred path.
	ErrRequiresSynchronousContext = errors.New("requires synchronous execution context")
)
