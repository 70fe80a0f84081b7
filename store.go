package hll

// This file owns the register store's representation transitions: the
// sparse-to-dense upgrade that any mutation forces, the copy-on-write clone
// of a buffer borrowed from Parse, and the offset slide that keeps every
// register representable in 4 bits as the baseline climbs.

// ensureDense upgrades a sparse sketch to the dense representation in
// place.  Sparse storage is read-only by construction (it's only ever
// produced by Parse), so the first call into the update or fold path always
// has to materialize a real, writable 1024 byte payload before it can touch
// individual registers.
func (s *Sketch) ensureDense() {
	if !s.sparse {
		return
	}

	dense := make([]byte, NumBytesForBuckets)
	for _, e := range s.sparsePairs {
		dense[e.byteIndex] = e.value
	}

	s.dense = dense
	s.sparsePairs = nil
	s.sparse = false
	s.writable = true
}

// ensureWritable clones the dense payload if it's still aliasing a buffer
// handed to Parse by the caller.  Sketches built via New, or already
// densified by a prior mutation, are always writable and this is a no-op.
func (s *Sketch) ensureWritable() {
	if s.writable {
		return
	}

	cloned := make([]byte, len(s.dense))
	copy(cloned, s.dense)
	s.dense = cloned
	s.writable = true
}

// clone returns a deep copy of the sketch, with its own independent payload
// backing array.  Fold uses this instead of swapping struct contents in
// place when other's registerOffset is higher than self's, so that the
// caller's other sketch is never mutated as a side effect of folding it in.
func (s *Sketch) clone() *Sketch {
	c := &Sketch{
		version:             s.version,
		registerOffset:      s.registerOffset,
		numNonZero:          s.numNonZero,
		maxOverflowValue:    s.maxOverflowValue,
		maxOverflowRegister: s.maxOverflowRegister,
		sparse:              s.sparse,
		writable:            true,
	}
	if s.sparse {
		c.sparsePairs = append([]sparseEntry(nil), s.sparsePairs...)
	} else {
		c.dense = append([]byte(nil), s.dense...)
	}
	return c
}

// slideOffset is invoked whenever numNonZero reaches NumBuckets: every
// register is occupied, so the stored nibbles can be rebased down by one and
// registerOffset bumped up by one without losing any information. Every
// nibble is guaranteed >= 1 at this point (all 2048 registers are non-zero),
// so subtracting 0x11 from each byte decrements both nibbles by 1 with no
// borrow across the nibble boundary.
func (s *Sketch) slideOffset() {
	s.registerOffset++

	for i := range s.dense {
		s.dense[i] -= 0x11
	}

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
