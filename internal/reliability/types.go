// Package reliability computes exact structural reliability of small networks.
//
// A network is working when the set of alive nodes is non-empty and connected.
// Every evaluation enumerates all 2^n up/down states, so cost grows exponentially
// with the node count; Evaluator refuses networks above its node ceiling instead of
// running for hours.
package reliability

import (
	"errors"
	"maps"
	"slices"
)

var (
	// ErrMissingProbability is returned when the adjacency references a node that has
	// no entry in the probability map.
	ErrMissingProbability = errors.New("reliability: node has no probability")

	// ErrInvalidProbability is returned for NaN or out-of-range probabilities.
	ErrInvalidProbability = errors.New("reliability: probability outside [0,1]")

	// ErrTooManyNodes is returned when exact enumeration would exceed the node ceiling.
	ErrTooManyNodes = errors.New("reliability: too many nodes for exact enumeration")
)

// Probabilities maps a node id to its probability of being up.
type Probabilities map[string]float64

// Clone returns an independent copy.
func (p Probabilities) Clone() Probabilities {
	return maps.Clone(p)
}

// IDs returns the node ids in sorted order.
func (p Probabilities) IDs() []string {
	return slices.Sorted(maps.Keys(p))
}

// Adjacency maps a node id to the ids of its neighbours.
type Adjacency map[string][]string

// Clone returns a deep copy so callers can mutate neighbour lists freely.
func (a Adjacency) Clone() Adjacency {
	out := make(Adjacency, len(a))
	for id, neighbors := range a {
		out[id] = slices.Clone(neighbors)
	}
	return out
}

// Tier buckets a node by its Birnbaum coefficient.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierLow      Tier = "low"
	TierSystem   Tier = "system"
)

// Tier thresholds, applied with >=.
const (
	CriticalThreshold = 0.5
	HighThreshold     = 0.2
	MediumThreshold   = 0.1
)

// ClassifyTier maps a Birnbaum coefficient onto its criticality tier.
func ClassifyTier(coefficient float64) Tier {
	switch {
	case coefficient >= CriticalThreshold:
		return TierCritical
	case coefficient >= HighThreshold:
		return TierHigh
	case coefficient >= MediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// StateProbability is one entry of the joint state distribution.
type StateProbability struct {
	State       string   `json:"state"`
	Up          []string `json:"up"`
	Probability float64  `json:"probability"`
}
