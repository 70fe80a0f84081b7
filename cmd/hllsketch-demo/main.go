// Command hllsketch-demo feeds a batch of synthetic, farm-hashed values
// through two sketches, folds them together, and reports the union
// cardinality estimate.  It exists to exercise the hll package the way a
// real caller would: producing the hashed input is this binary's job, not
// the sketch's.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand"

	farm "github.com/dgryski/go-farm"

	hll "github.com/segmentio/hllsketch"
)

func main() {
	count := flag.Int("count", 100000, "number of distinct synthetic values to add per sketch")
	seed := flag.Int64("seed", 1, "PRNG seed for the first sketch's values (the second uses seed+1)")
	flag.Parse()

	first := runSketch(*count, *seed)
	second := runSketch(*count, *seed+1)

	log.Printf("sketch A estimate: %.0f", first.Estimate())
	log.Printf("sketch B estimate: %.0f", second.Estimate())

	if _, err := first.Fold(second); err != nil {
		log.Fatalf("fold: %v", err)
	}

	fmt.Printf("union estimate: %.0f\n", first.Estimate())
	fmt.Printf("serialized size: %d bytes\n", len(first.Serialize()))
}

// runSketch builds a sketch over count pseudo-random 16 byte values, each
// reduced to a sketch-ready hashed buffer via two seeded 64 bit farm
// hashes.  farm hash is an arbitrary choice here: any hash with good
// avalanche behavior works, since the sketch only cares that its input
// bytes are well distributed, not which algorithm produced them.
func runSketch(count int, seed int64) *hll.Sketch {
	rng := rand.New(rand.NewSource(seed))
	s := hll.New()

	raw := make([]byte, 16)
	for i := 0; i < count; i++ {
		rng.Read(raw)
		hashed := hashToSketchInput(raw)
		if err := s.Add(hashed); err != nil {
			log.Fatalf("add: %v", err)
		}
	}

	return s
}

// hashToSketchInput hashes raw with farm hash twice, under two different
// seeds, and lays the two 64 bit results out as 16 big endian bytes,
// satisfying the sketch's >=10 byte input contract with bytes to spare.
func hashToSketchInput(raw []byte) []byte {
	hi := farm.Hash64WithSeed(raw, 0)
	lo := farm.Hash64WithSeed(raw, 1)

	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], hi)
	binary.BigEndian.PutUint64(buf[8:16], lo)
	return buf
}
