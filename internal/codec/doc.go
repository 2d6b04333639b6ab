// Package codec implements the repository's deterministic binary wire
// format: encoding and decoding Go values against a layout.Layout.
//
// The encoding is fixed per type tag (big-endian integers, varint-prefixed
// strings/lists/maps with map keys emitted in sorted order, a presence
// byte for optionals, and a 20-byte fingerprint ahead of a nested
// layout's in-order field values). Encoding a value twice yields
// byte-identical output; decoding then re-encoding reproduces the
// original bytes exactly.
package codec
