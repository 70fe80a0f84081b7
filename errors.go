package hll

import "github.com/pkg/errors"

// ErrInvalidArgument is returned by Add when the hashed value passed in is
// too short to derive a bucket and a position-of-first-one from.
var ErrInvalidArgument = errors.New("hll: hashed value must be at least 10 bytes")

// ErrInsufficientBytes is returned by Parse in cases where the provided byte
// slice is truncated or otherwise too short to contain a header.
var ErrInsufficientBytes = errors.New("hll: insufficient bytes to deserialize sketch")

// ErrInvalidState is returned when a sketch's on-disk or in-memory
// representation is internally inconsistent: a malformed header, a payload
// whose length doesn't correspond to either the dense or sparse form, or a
// Fold that still has self.registerOffset < other.registerOffset after the
// swap step (which should be impossible and signals a bug or corruption
// rather than bad input).
var ErrInvalidState = errors.New("hll: invalid sketch state")
