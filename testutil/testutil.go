package testutil

import (
	"encoding/binary"
	"math/rand/v2"
	"strings"
	"sync"
)

// DefaultSeed is the seed used by Default.
const DefaultSeed = 1234

// HeroNames is the fixed list Name picks from.
var HeroNames = [...]string{
	"Spider-Man", "Iron Man", "Captain America", "Thor", "Hulk",
	"Black Widow", "Doctor Strange", "Black Panther", "Wolverine", "Captain Marvel",
	"Ant-Man", "Deadpool", "Scarlet Witch", "Vision", "Hawkeye",
	"Falcon", "Winter Soldier", "Star-Lord", "Gamora", "Drax the Destroyer",
	"Spider-Woman", "Iron Fist", "Luke Cage", "Daredevil", "Jessica Jones",
	"Punisher", "Cable", "Jean Grey", "Cyclops", "Storm",
	"Rogue", "Nightcrawler", "Professor X", "Beast", "Iceman",
	"Ghost Rider", "Blade", "Silver Surfer", "Quicksilver", "Scarlet Spider",
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed uint64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewChaCha8(chachaSeed(seed))),
		seed: seed,
	}
}

// Default returns a new RNG seeded with DefaultSeed.
func Default() *RNG { return NewRNG(DefaultSeed) }

func chachaSeed(seed uint64) [32]byte {
	var s [32]byte
	binary.LittleEndian.PutUint64(s[:8], seed)
	return s
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewChaCha8(chachaSeed(r.seed)))
}

// Seed returns the initial seed.
func (r *RNG) Seed() uint64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.IntN(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Uint32 returns a pseudo-random uint32.
func (r *RNG) Uint32() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint32()
}

// Uint32Range returns a pseudo-random number in [lo, hi). It panics if
// hi <= lo.
func (r *RNG) Uint32Range(lo, hi uint32) uint32 {
	if hi <= lo {
		panic("testutil: Uint32Range requires lo < hi")
	}
	return r.Uint32()%(hi-lo) + lo
}

// Name returns a name from HeroNames.
func (r *RNG) Name() string {
	return HeroNames[r.Intn(len(HeroNames))]
}

// Names returns n names from HeroNames.
func (r *RNG) Names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = r.Name()
	}
	return out
}

// Words returns between count[0] and count[1] (inclusive) space-separated
// words of lowercase letters, each between length[0] and length[1] letters
// long.
func (r *RNG) Words(count, length [2]int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := count[0] + r.rand.IntN(count[1]-count[0]+1)

	var sb strings.Builder
	sb.Grow(n * (length[1] + 1))
	for i := range n {
		if i > 0 {
			sb.WriteByte(' ')
		}
		l := length[0] + r.rand.IntN(length[1]-length[0]+1)
		for range l {
			sb.WriteByte(byte('a' + r.rand.IntN(26)))
		}
	}
	return sb.String()
}
