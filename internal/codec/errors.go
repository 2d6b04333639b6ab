package codec

import "errors"

// ErrTruncated is returned when a decode runs out of input mid-value.
var ErrTruncated = errors.New("codec: truncated input")

// ErrUnknownFingerprint is returned when a nested layout<ref> field's
// fingerprint does not resolve to any layout known to the cache supplied
// to Decode.
var ErrUnknownFingerprint = errors.New("codec: unknown layout fingerprint")

// ErrInvariantViolated is returned for structurally invalid input, such
// as a presence byte outside {0,1} or a field type mismatch against the
// layout.
var ErrInvariantViolated = errors.New("codec: invariant violated")
