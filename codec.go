package hll

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// writeHeader fills in the 7 byte V1 header at the front of buf.  Serialize
// always produces V1: V0 is accepted by Parse for read compatibility with
// older sketches, but it has no field for the overflow slot, so re-encoding
// into it would silently drop data this sketch may be carrying.
func (s *Sketch) writeHeader(buf []byte) {
	buf[0] = versionV1
	buf[1] = s.registerOffset
	binary.BigEndian.PutUint16(buf[2:4], s.numNonZero)
	buf[4] = s.maxOverflowValue
	binary.BigEndian.PutUint16(buf[5:7], s.maxOverflowRegister)
}

// Serialize encodes the sketch using the sparse wire form when that's
// cheaper (either because the sketch was parsed from a sparse buffer and
// never mutated, or because a dense sketch's occupancy has stayed below
// DenseThreshold) and the dense form otherwise.
func (s *Sketch) Serialize() []byte {
	if s.sparse {
		return s.serializeSparsePairs()
	}
	if s.numNonZero < DenseThreshold {
		return s.serializeSparseFromDense()
	}
	return s.serializeDense()
}

func (s *Sketch) serializeDense() []byte {
	buf := make([]byte, headerSizeV1+NumBytesForBuckets)
	s.writeHeader(buf)
	copy(buf[headerSizeV1:], s.dense)
	return buf
}

func (s *Sketch) serializeSparseFromDense() []byte {
	// One triple per non-zero payload *byte*, not per non-zero register:
	// a byte with both nibbles occupied still contributes a single triple,
	// so this can be fewer than s.numNonZero and must be counted directly
	// rather than assumed equal to it.
	var numNonZeroBytes int
	for _, b := range s.dense {
		if b != 0 {
			numNonZeroBytes++
		}
	}

	buf := make([]byte, headerSizeV1+3*numNonZeroBytes)
	s.writeHeader(buf)

	pos := headerSizeV1
	for i, b := range s.dense {
		if b == 0 {
			continue
		}
		binary.BigEndian.PutUint16(buf[pos:pos+2], uint16(i+headerSizeV1))
		buf[pos+2] = b
		pos += 3
	}
	return buf
}

func (s *Sketch) serializeSparsePairs() []byte {
	buf := make([]byte, headerSizeV1+3*len(s.sparsePairs))
	s.writeHeader(buf)

	pos := headerSizeV1
	for _, e := range s.sparsePairs {
		binary.BigEndian.PutUint16(buf[pos:pos+2], uint16(int(e.byteIndex)+headerSizeV1))
		buf[pos+2] = e.value
		pos += 3
	}
	return buf
}

// Parse decodes a byte slice previously produced by Serialize (or by a
// legacy V0 writer) into a Sketch.  The returned sketch aliases buf for its
// payload when the payload is dense; it clones on first mutation, so
// callers may safely discard or reuse buf's backing array for anything
// other than a sparse payload, which is always copied out during Parse.
func Parse(buf []byte) (*Sketch, error) {
	if len(buf) < headerSizeV0 {
		return nil, ErrInsufficientBytes
	}

	// The version byte's own encoding differs between the two layouts, so
	// version can't be read directly off byte 0 without first knowing which
	// layout is in play. Dispatch on the buffer's total length instead, per
	// the storage spec: legacy buffers are either an exact multiple of 3
	// bytes (header + sparse triples) or exactly 1027 bytes, the fixed size
	// of every legacy dense buffer (3 byte header + 1024 byte payload,
	// which happens not to be a multiple of 3 itself).
	isV0 := len(buf)%3 == 0 || len(buf) == headerSizeV0+NumBytesForBuckets

	headerSize := headerSizeV1
	if isV0 {
		headerSize = headerSizeV0
	}
	if len(buf) < headerSize {
		return nil, ErrInsufficientBytes
	}

	s := &Sketch{registerOffset: buf[1]}

	if isV0 {
		if buf[0] != versionV0 {
			return nil, errors.Wrapf(ErrInvalidState, "unexpected version byte %d for legacy-length buffer", buf[0])
		}
		s.version = versionV0
	} else {
		if buf[0] != versionV1 {
			return nil, errors.Wrapf(ErrInvalidState, "unsupported sketch version %d", buf[0])
		}
		s.version = versionV1
		s.numNonZero = binary.BigEndian.Uint16(buf[2:4])
		s.maxOverflowValue = buf[4]
		s.maxOverflowRegister = binary.BigEndian.Uint16(buf[5:7])
	}

	payload := buf[headerSize:]

	switch {
	case len(payload) == NumBytesForBuckets:
		s.dense = payload
		s.sparse = false
		s.writable = false
		if isV0 {
			s.recountFromDense()
		}
		return s, nil

	case len(payload)%3 == 0:
		n := len(payload) / 3
		if !isV0 {
			// Each triple covers one non-zero payload byte, which holds one
			// or two non-zero registers, so the triple count can be less
			// than the register count the header carries but never more
			// than half of it short, and never more than it.
			minTriples := (int(s.numNonZero) + 1) / 2
			if n < minTriples || n > int(s.numNonZero) {
				return nil, errors.Wrapf(ErrInvalidState, "header claims %d non-zero registers, incompatible with %d payload triples", s.numNonZero, n)
			}
		}
		pairs := make([]sparseEntry, 0, n)
		for i := 0; i < n; i++ {
			pos := binary.BigEndian.Uint16(payload[i*3 : i*3+2])
			byteIdx := int(pos) - headerSize
			if byteIdx < 0 || byteIdx >= NumBytesForBuckets {
				return nil, errors.Wrapf(ErrInvalidState, "sparse entry position %d out of range", pos)
			}
			pairs = append(pairs, sparseEntry{byteIndex: uint16(byteIdx), value: payload[i*3+2]})
		}
		s.sparse = true
		s.sparsePairs = pairs
		if isV0 {
			// A triple's byte can hold two non-zero registers, so count
			// nibbles rather than triples.
			var count uint16
			for _, e := range pairs {
				if upperNibble(e.value) != 0 {
					count++
				}
				if lowerNibble(e.value) != 0 {
					count++
				}
			}
			s.numNonZero = count
		}
		return s, nil

	default:
		return nil, errors.Wrapf(ErrInvalidState, "payload length %d is neither dense nor a multiple of 3", len(payload))
	}
}

// recountFromDense recomputes numNonZero by scanning the payload.  V0
// carries no explicit non-zero count field, so this is how a parsed V0
// dense sketch re-establishes it (a parsed V0 sparse sketch counts the
// nibbles of its triples instead).
func (s *Sketch) recountFromDense() {
	var count uint16
	for _, b := range s.dense {
		if upperNibble(b) != 0 {
			count++
		}
		if lowerNibble(b) != 0 {
			count++
		}
	}
	s.numNonZero = count
}
