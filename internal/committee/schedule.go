package committee

import (
	"math"
	"math/rand"
	"sort"
)

// WeightedShuffle orders nodes so that higher-weight nodes tend to sort
// earlier, preferring fewer, higher-yield requests for sliver reads (spec
// §4.C: "weighted-shuffled by |shardIndices| so high-weight nodes are
// preferred for fewer requests"). This generalizes the teacher's
// core/resharding.go Shuffle (a uniform, seed-stable shuffle used to
// randomize node order within a shard) by biasing the random key with
// node weight instead of drawing every node with equal probability.
func WeightedShuffle(nodes []*Node, rng *rand.Rand) []*Node {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	out := append([]*Node(nil), nodes...)
	keys := make([]float64, len(out))
	for i, n := range out {
		w := float64(n.Weight())
		if w < 1 {
			w = 1
		}
		// Exponential-clock sampling: smaller draw/weight sorts first, so
		// higher-weight nodes are statistically earlier without being
		// deterministically first every time.
		keys[i] = -logUniform(rng) / w
	}
	sort.SliceStable(out, func(i, j int) bool { return keys[i] < keys[j] })
	return out
}

func logUniform(rng *rand.Rand) float64 {
	u := rng.Float64()
	if u <= 0 {
		u = 1e-9
	}
	return -math.Log(u)
}
