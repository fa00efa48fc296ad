package trace

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Reference is the 13 reference string used by the FIFO and LRU labs.
func Reference() []int {
	return []int{7, 0, 1, 2, 0, 3, 0, 4, 2, 3, 0, 3, 2}
}

// Classic is the 20 reference textbook string
// (FIFO: 15 faults, LRU: 12 faults with 3 frames).
func Classic() []int {
	return []int{7, 0, 1, 2, 0, 3, 0, 4, 2, 3, 0, 3, 2, 1, 2, 0, 1, 7, 0, 1}
}

// Belady exhibits Belady's anomaly: FIFO faults
// 9 times with 3 frames but 10 times with 4.
func Belady() []int {
	return []int{1, 2, 3, 4, 1, 2, 5, 1, 2, 3, 4, 5}
}

// Parse reads integer keys separated by
// commas, whitespace or both, e.g. "7, 0 1,2".
func Parse(text string) ([]int, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	keys := make([]int, len(fields))
	for i, field := range fields {
		key, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf(
				"%w: reference %d (%q): %w",
				ErrInvalidTrace, i, field, err)
		}
		keys[i] = key
	}
	return keys, nil
}

// NewRNG returns a deterministic source for the generators.
func NewRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Sequential scans keys [0, universe) repeatedly.
func Sequential(universe, length int) []int {
	keys := make([]int, length)
	for i := range keys {
		keys[i] = i % max(universe, 1)
	}
	return keys
}

// Looping sends hotRatio of references to a hot set
// the size of capacity and the rest to a colder remainder of universe.
func Looping(rng *rand.Rand, capacity, universe, length int, hotRatio float64) []int {
	var (
		keys     = make([]int, length)
		hotSize  = max(1, capacity)
		coldSize = max(1, universe-hotSize)
	)
	for i := range keys {
		if rng.Float64() < hotRatio {
			keys[i] = rng.Intn(hotSize)
		} else {
			keys[i] = hotSize + rng.Intn(coldSize)
		}
	}
	return keys
}

// Zipf draws keys from [0, universe) with a Zipf distribution;
// skew must be > 1 and bias >= 1.
func Zipf(rng *rand.Rand, universe, length int, skew, bias float64) []int {
	keys := make([]int, length)
	if universe <= 1 {
		return keys
	}
	zipf := rand.NewZipf(rng, skew, bias, uint64(universe-1))
	for i := range keys {
		keys[i] = int(zipf.Uint64())
	}
	return keys
}

// Uniform draws keys uniformly from [0, universe).
func Uniform(rng *rand.Rand, universe, length int) []int {
	keys := make([]int, length)
	for i := range keys {
		keys[i] = rng.Intn(max(universe, 1))
	}
	return keys
}

// Fingerprint returns a stable digest of a trace,
// used to label comparative runs over the same input.
func Fingerprint(keys []int) uint64 {
	var (
		digest = xxhash.New()
		buffer [8]byte
	)
	for _, key := range keys {
		binary.LittleEndian.PutUint64(buffer[:], uint64(key))
		digest.Write(buffer[:])
	}
	return digest.Sum64()
}

// Distinct returns the number of different keys in a trace;
// it is a lower bound on the faults of any policy.
func Distinct(keys []int) int {
	seen := make(map[int]struct{}, len(keys))
	for _, key := range keys {
		seen[key] = struct{}{}
	}
	return len(seen)
}
