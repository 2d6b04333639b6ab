package layout

import "errors"

// ErrCyclicLayout is returned when a struct's field graph is
// self-referential without going through a uuid.UUID indirection.
var ErrCyclicLayout = errors.New("layout: cyclic schema reference; use a uuid.UUID field instead of embedding the referencing type")

// ErrUnsupportedType is returned for Go types with no mapping onto the
// closed TypeTag set.
var ErrUnsupportedType = errors.New("layout: unsupported type")
