package csrzip

import "errors"

// Construction is the only fallible boundary: every error below surfaces from
// the FromCSR / FromEdgeIndex / FromEdges family. Once a CSR exists, all of
// its operations are total. Errors supplied by caller iterators (see
// FromEdges) short-circuit ingestion and are returned verbatim, unwrapped.

// ErrTooManyVertices is returned when an input describes more vertices than
// fit in a 32-bit identifier space.
var ErrTooManyVertices = errors.New("csrzip: too many vertices, identifiers must fit in 32 bits")

// ErrIndexPtrOverflow is returned when an index-pointer value cannot be used
// as an offset into the indices array.
var ErrIndexPtrOverflow = errors.New("csrzip: index pointer out of range")

// ErrIndexOverflow is returned when an adjacency index does not fit in a
// 32-bit vertex identifier.
var ErrIndexOverflow = errors.New("csrzip: index does not fit in 32 bits")
