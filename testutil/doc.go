// Package testutil provides testing utilities for arenakit.
//
// This package is intended for use in tests, benchmarks and examples only.
// Its generators are deterministic for a given seed so failures reproduce.
//
//	rng := testutil.NewRNG(seed)
//	name := rng.Name()                          // from HeroNames
//	power := rng.Uint32Range(1, 100)            // [1, 100)
//	text := rng.Words([2]int{2, 5}, [2]int{3, 8}) // 2-5 words of 3-8 letters
package testutil
