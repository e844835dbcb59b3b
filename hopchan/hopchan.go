// Package hopchan builds the 40-entry pseudo-random channel table shared by
// both ends of a frequency-hopping pairing. The table is the pairing
// secret: two endpoints given the same (low, high, seed) produce an
// identical table and nothing else needs to be exchanged over the air.
package hopchan

import "math/rand"

// Size is the fixed length of a channel table.
const Size = 40

// Table is the ordered list of RF channel numbers a pairing hops across.
// Table[0] is always 125, a fixed "home" channel used while scanning;
// Table[1:] is a seeded permutation of [low, high].
type Table [Size]byte

// Generate builds a Table from the pairing's channel bounds and seed. low
// and high are inclusive; the permutation is a Fisher-Yates shuffle driven
// by a seeded math/rand source, matching the deterministic, reproducible
// sequence both endpoints of a pairing must agree on (see package doc).
//
// math/rand (not math/rand/v2) is used deliberately: its generator and
// shuffle algorithm are part of the compatibility guarantee, so the same
// (low, high, seed) reproduces the same table across Go versions and
// processes, which is required for two independently booted endpoints to
// agree without exchanging the table itself.
func Generate(low, high byte, seed int64) Table {
	rng := rand.New(rand.NewSource(seed))

	n := int(high) - int(low) + 1
	available := make([]byte, n)
	for i := range available {
		available[i] = low + byte(i)
	}
	rng.Shuffle(n, func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})

	var t Table
	t[0] = 125
	copy(t[1:], available)
	return t
}
