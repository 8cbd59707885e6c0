package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// Split shuffles a copy of samples with a seeded source and holds out
// testFraction of them. The same seed always yields the same split.
func Split(samples []Sample, testFraction float64, seed int64) (train, test []Sample, err error) {
	if testFraction < 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in [0, 1), got %f", testFraction)
	}

	shuffled := make([]Sample, len(samples))
	copy(shuffled, samples)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	// The test side is rounded up.
	nTest := int(math.Ceil(float64(len(shuffled)) * testFraction))
	if len(shuffled)-nTest < 1 {
		return nil, nil, fmt.Errorf("not enough samples (%d) to split with test fraction %f", len(samples), testFraction)
	}

	return shuffled[nTest:], shuffled[:nTest], nil
}
