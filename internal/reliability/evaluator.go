package reliability

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
)

const (
	// DefaultMaxNodes is the node ceiling used by the zero Evaluator.
	// 2^22 states take a few seconds per evaluation on commodity hardware.
	DefaultMaxNodes = 22

	// HardNodeLimit caps any configured ceiling.
	HardNodeLimit = 30

	// MaxDistributionNodes caps ProbabilityDistribution regardless of the evaluator
	// ceiling. It materialises one row per state, and 2^16 rows is already a
	// multi-megabyte response.
	MaxDistributionNodes = 16
)

// Evaluator runs exact state enumeration. It carries no network state; every
// method takes the network explicitly and leaves its inputs untouched.
type Evaluator struct {
	maxNodes int
}

// NewEvaluator returns an Evaluator refusing networks with more than maxNodes nodes.
// Non-positive values select DefaultMaxNodes; values above HardNodeLimit are clamped.
func NewEvaluator(maxNodes int) Evaluator {
	switch {
	case maxNodes <= 0:
		maxNodes = DefaultMaxNodes
	case maxNodes > HardNodeLimit:
		maxNodes = HardNodeLimit
	}
	return Evaluator{maxNodes: maxNodes}
}

// MaxNodes returns the effective node ceiling.
func (e Evaluator) MaxNodes() int {
	if e.maxNodes <= 0 {
		return DefaultMaxNodes
	}
	return e.maxNodes
}

// StateCount returns the number of states one evaluation of n nodes enumerates.
func StateCount(n int) uint64 {
	if n <= 0 {
		return 0
	}
	return 1 << uint(n)
}

// SystemReliability evaluates p and adj with an Evaluator using DefaultMaxNodes.
func SystemReliability(p Probabilities, adj Adjacency) (float64, error) {
	return Evaluator{}.SystemReliability(p, adj)
}

// SystemReliability returns the probability that the alive nodes are non-empty and
// connected. An empty network yields 0 and a single node yields its own probability.
func (e Evaluator) SystemReliability(p Probabilities, adj Adjacency) (float64, error) {
	ix, err := e.index(p, adj)
	if err != nil {
		return 0, err
	}
	return ix.reliability(ix.probs), nil
}

// Validate checks that every probability lies in [0,1] and that every node named in
// adj, as a key or as a neighbour, has a probability.
func Validate(p Probabilities, adj Adjacency) error {
	for _, id := range p.IDs() {
		if prob := p[id]; math.IsNaN(prob) || prob < 0 || prob > 1 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidProbability, id, prob)
		}
	}
	for from, neighbors := range adj {
		if _, ok := p[from]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingProbability, from)
		}
		for _, to := range neighbors {
			if _, ok := p[to]; !ok {
				return fmt.Errorf("%w: %s (neighbour of %s)", ErrMissingProbability, to, from)
			}
		}
	}
	return nil
}

// NodeFailureProbabilities returns 1-p for every node.
func NodeFailureProbabilities(p Probabilities) Probabilities {
	out := make(Probabilities, len(p))
	for id, prob := range p {
		out[id] = 1 - prob
	}
	return out
}

// ProbabilityDistribution lists all 2^n joint states of p with their probabilities.
// No connectivity filter is applied, so the probabilities sum to one. Networks above
// MaxDistributionNodes are refused with ErrTooManyNodes.
func (e Evaluator) ProbabilityDistribution(p Probabilities) ([]StateProbability, error) {
	if limit := min(e.MaxNodes(), MaxDistributionNodes); len(p) > limit {
		return nil, fmt.Errorf("%w: %d nodes, distribution limit %d", ErrTooManyNodes, len(p), limit)
	}
	ix, err := e.index(p, nil)
	if err != nil {
		return nil, err
	}
	n := len(ix.ids)
	if n == 0 {
		return nil, nil
	}

	out := make([]StateProbability, 0, StateCount(n))
	var desc strings.Builder
	for mask := uint64(0); mask < StateCount(n); mask++ {
		desc.Reset()
		up := make([]string, 0, bits.OnesCount64(mask))
		for i, id := range ix.ids {
			if i > 0 {
				desc.WriteString(" | ")
			}
			desc.WriteString(id)
			if mask&(1<<uint(i)) != 0 {
				desc.WriteString(":up")
				up = append(up, id)
			} else {
				desc.WriteString(":down")
			}
		}
		out = append(out, StateProbability{
			State:       desc.String(),
			Up:          up,
			Probability: ix.stateProbability(ix.probs, mask),
		})
	}
	return out, nil
}

// -----------------------------------------------------------------------
// index
// -----------------------------------------------------------------------

// index fixes the node order for one evaluation. Bit i of a state mask is node ids[i].
type index struct {
	ids   []string
	pos   map[string]int
	probs []float64
	links []uint64 // undirected neighbour mask per node
}

func (e Evaluator) index(p Probabilities, adj Adjacency) (*index, error) {
	if len(p) > e.MaxNodes() {
		return nil, fmt.Errorf("%w: %d nodes, limit %d", ErrTooManyNodes, len(p), e.MaxNodes())
	}
	if err := Validate(p, adj); err != nil {
		return nil, err
	}
	ids := p.IDs()
	ix := &index{
		ids:   ids,
		pos:   make(map[string]int, len(ids)),
		probs: make([]float64, len(ids)),
		links: make([]uint64, len(ids)),
	}
	for i, id := range ids {
		ix.pos[id] = i
		ix.probs[i] = p[id]
	}
	for from, neighbors := range adj {
		i := ix.pos[from]
		for _, to := range neighbors {
			j := ix.pos[to]
			if i == j {
				continue
			}
			ix.links[i] |= 1 << uint(j)
			ix.links[j] |= 1 << uint(i)
		}
	}
	return ix, nil
}

// reliability sums the probability of every connected state under probs.
func (ix *index) reliability(probs []float64) float64 {
	switch len(ix.ids) {
	case 0:
		return 0
	case 1:
		return probs[0]
	}
	total := 0.0
	for mask := uint64(1); mask < StateCount(len(ix.ids)); mask++ {
		if !ix.connected(mask) {
			continue
		}
		total += ix.stateProbability(probs, mask)
	}
	return total
}

func (ix *index) stateProbability(probs []float64, mask uint64) float64 {
	prob := 1.0
	for i, pi := range probs {
		if mask&(1<<uint(i)) != 0 {
			prob *= pi
		} else {
			prob *= 1 - pi
		}
	}
	return prob
}

// connected is the bitmask form of IsConnected.
func (ix *index) connected(alive uint64) bool {
	if alive == 0 {
		return false
	}
	visited := alive & -alive
	frontier := visited
	for frontier != 0 {
		i := bits.TrailingZeros64(frontier)
		frontier &^= 1 << uint(i)
		next := ix.links[i] & alive &^ visited
		visited |= next
		frontier |= next
	}
	return visited == alive
}
