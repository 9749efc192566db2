package domain

import "errors"

// ErrIndexUnavailable is the only failure that crosses the classification
// boundary: the knowledge base could not be loaded, so classification is
// meaningless. Callers should rebuild or reload the index.
var ErrIndexUnavailable = errors.New("candidate index unavailable: rebuild or reload the knowledge base")
