package reliability

import "slices"

// Birnbaum evaluates p and adj with an Evaluator using DefaultMaxNodes.
func Birnbaum(p Probabilities, adj Adjacency) (map[string]float64, error) {
	return Evaluator{}.Birnbaum(p, adj)
}

// Birnbaum returns each node's importance coefficient: the system reliability with
// the node pinned up minus the reliability with it pinned down. The structure is not
// monotone (an isolated live node breaks connectivity), so coefficients can be
// slightly negative.
func (e Evaluator) Birnbaum(p Probabilities, adj Adjacency) (map[string]float64, error) {
	ix, err := e.index(p, adj)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(ix.ids))
	for i, id := range ix.ids {
		up, down := ix.pinned(i)
		out[id] = up - down
	}
	return out, nil
}

// pinned returns the reliability with node i forced up and forced down,
// each computed on its own copy of the probability vector.
func (ix *index) pinned(i int) (up, down float64) {
	probs := slices.Clone(ix.probs)
	probs[i] = 1
	up = ix.reliability(probs)
	probs[i] = 0
	down = ix.reliability(probs)
	return up, down
}
