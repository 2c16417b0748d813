package repository

import "errors"

// ErrOrderedQueryUnsupported is returned by message listers whose backend
// cannot serve the server-ordered query shape (e.g. a missing composite
// index). Callers fall back to the unordered query and sort client-side.
var ErrOrderedQueryUnsupported = errors.New("ordered query unsupported by backend")
