package fractal

import (
	"errors"
	"fmt"
)

// Errors surfaced by the fetch-or-generate pipeline. Handlers map them to
// status codes with errors.Is; wrapped detail is logged, never returned.
var (
	ErrValidation   = errors.New("invalid fractal parameters")
	ErrBusy         = errors.New("another fractal is currently generating")
	ErrRenderFailed = errors.New("fractal generation failed")
	ErrAborted      = errors.New("fractal generation aborted due to time limit")
	ErrBlobStore    = errors.New("blob store operation failed")
	ErrConflict     = errors.New("fractal with this hash already exists")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("access denied")

	// ErrInvalidQuery wraps binding and decoding failures of listing
	// queries. Clients only see a fixed message for it.
	ErrInvalidQuery = fmt.Errorf("%w: invalid query parameters", ErrValidation)

	// ErrStaleArtifact reports that a cached artifact no longer exists in the
	// durable store. It is recovered internally and never reaches callers.
	ErrStaleArtifact = errors.New("cached fractal no longer exists")
)
