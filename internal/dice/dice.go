// Package dice draws hands for the server. Clients never roll.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

const (
	Sides    = 6
	HandSize = 6
)

// Roller draws hands from a seeded source. Given the same seed it produces
// the same sequence of hands. It is not safe for concurrent use.
type Roller struct {
	seed int64
	rng  *rand.Rand
}

func NewRoller(seed int64) *Roller {
	return &Roller{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

// Seed reports the seed the roller was built with.
func (r *Roller) Seed() int64 { return r.seed }

// Hand draws HandSize independent uniform faces in [1, Sides].
func (r *Roller) Hand() [HandSize]uint8 {
	var h [HandSize]uint8
	for i := range h {
		h[i] = uint8(rollDie(r.rng, Sides))
	}
	return h
}

// NewSeed generates a seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func rollDie(rng *rand.Rand, sides int) int {
	return rng.Intn(sides) + 1
}
