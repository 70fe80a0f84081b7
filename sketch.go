// Package hll implements a compact, mergeable HyperLogLog cardinality
// sketch tuned for columnar storage.  A Sketch estimates the number of
// distinct values observed across a stream of already-hashed byte strings,
// using a fixed 2048-register layout with an offset-biased, nibble-packed
// encoding: registers are stored as 4 bit deltas from a moving baseline
// (registerOffset), with a single out-of-band slot reserved for the one
// register that would otherwise overflow that 4 bit window.
//
// A Sketch is not safe for concurrent mutation; a read-only Sketch (one that
// has never been mutated since it was parsed) may be shared across
// goroutines freely.
package hll

import "github.com/pkg/errors"

// Fixed layout constants.  Unlike the tunable log2m/regwidth settings used
// by other HLL storage specs, every sketch in this package uses the same
// register count and register width: these are not configuration, they are
// the wire format.
const (
	// BitsForBuckets is the number of bits of a hashed value's trailing
	// bytes used to select a bucket.
	BitsForBuckets = 11

	// NumBuckets is the fixed number of registers in every sketch.
	NumBuckets = 1 << BitsForBuckets

	// NumBytesForBuckets is the size of the dense payload: two 4 bit
	// registers packed per byte.
	NumBytesForBuckets = NumBuckets / 2

	// DenseThreshold is the number of non-zero registers at or above which
	// Serialize emits the dense wire form instead of sparse triples.
	DenseThreshold = 128

	// BitsPerBucket is the width of a single packed register.
	BitsPerBucket = 4

	// Range is the span of true values representable above registerOffset
	// in a 4 bit register: [registerOffset+1, registerOffset+Range].
	Range = 15
)

// Wire format version bytes and header sizes.  V1 is the only version this
// package ever produces; V0 is accepted on Parse for read compatibility with
// sketches written by the legacy layout.
const (
	versionV0 byte = 0
	versionV1 byte = 1

	headerSizeV0 = 3
	headerSizeV1 = 7
)

// sparseEntry is one non-zero payload byte in a sparse-form sketch: the
// byte's offset into the conceptual 1024 byte dense payload, and its value.
type sparseEntry struct {
	byteIndex uint16
	value     byte
}

// Sketch is a single HyperLogLog register set.  The zero value is not
// usable; construct one with New or Parse.
type Sketch struct {
	version byte

	registerOffset      byte
	numNonZero          uint16
	maxOverflowValue    byte
	maxOverflowRegister uint16

	// Exactly one of the two payload representations below is active at a
	// time.  New sketches start dense; a sketch parsed from a sparse buffer
	// has sparse true until its first mutation (Add, or being the receiver
	// of a Fold), at which point it is densified and never goes back: per
	// the storage spec, mutation always materializes dense.
	sparse      bool
	sparsePairs []sparseEntry

	dense    []byte // len NumBytesForBuckets when sparse == false
	writable bool   // dense may be written in place without cloning first

	cachedEstimate *float64
}

// New returns an empty Sketch: no registers set, offset 0, no overflow.
// Matches the "Empty sketch (factory output)" contract in the storage spec.
func New() *Sketch {
	return &Sketch{
		version:  versionV1,
		sparse:   false,
		dense:    make([]byte, NumBytesForBuckets),
		writable: true,
	}
}

// IsEmpty reports whether the sketch has observed no values at all: every
// register is zero and the overflow slot is unset.  Fold treats a nil or
// empty target as a no-op.
func (s *Sketch) IsEmpty() bool {
	if s == nil {
		return true
	}
	return s.numNonZero == 0 && s.maxOverflowValue == 0
}

// Compare orders two sketches by their non-zero register count, breaking
// ties among equal-cardinality sketches.  It is not consulted on any
// correctness-critical path; ordering here is solely for callers that want
// a deterministic sort over a collection of sketches.
func (s *Sketch) Compare(other *Sketch) int {
	switch {
	case s.numNonZero < other.numNonZero:
		return -1
	case s.numNonZero > other.numNonZero:
		return 1
	default:
		return 0
	}
}

// invalidateEstimate drops the cached cardinality estimate.  Add calls it
// once its input passes the length check, and Fold once other is known to
// be non-empty, in both cases regardless of whether that particular call
// ends up changing any register: recomputation is cheap and this keeps the
// invalidation rule simple and impossible to miss.
func (s *Sketch) invalidateEstimate() {
	s.cachedEstimate = nil
}

func newInvalidState(msg string) error {
	return errors.Wrap(ErrInvalidState, msg)
}
