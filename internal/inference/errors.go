package inference

import "errors"

// ErrInference covers an unreachable endpoint, a non-success status, and a
// payload whose status field indicates an error.
var ErrInference = errors.New("inference service error")
