// Package fragility removes nodes from a network one at a time and records how
// reliability and connectivity degrade until too few nodes remain.
package fragility

import (
	"fmt"
	"slices"

	"github.com/gyaneshwarpardhi/netrel/internal/reliability"
)

// DefaultCriticalThreshold is the minimum node count for a functioning system.
const DefaultCriticalThreshold = 3

// Mode selects how StepResult.Reliability is computed.
type Mode string

const (
	// ModeExact re-runs exact enumeration on the remaining network at every step.
	ModeExact Mode = "exact"
	// ModeProduct uses the product of the remaining node probabilities. It is cheap but
	// ignores topology, so it is only an approximation.
	ModeProduct Mode = "product"
)

// ParseMode maps a config string onto a Mode. The empty string selects ModeExact.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeExact:
		return ModeExact, nil
	case ModeProduct:
		return ModeProduct, nil
	}
	return "", fmt.Errorf("fragility: unknown mode %q", s)
}

// StepResult describes the network after one removal.
type StepResult struct {
	Step                     int      `json:"step"`
	Removed                  string   `json:"removed"`
	Remaining                []string `json:"remaining"`
	RemainingCount           int      `json:"remaining_count"`
	Reliability              float64  `json:"reliability"`
	ProductReliability       float64  `json:"product_reliability"`
	Connected                bool     `json:"connected"`
	AboveThreshold           bool     `json:"above_threshold"`
	CriticalThresholdReached bool     `json:"critical_threshold_reached"`
}

// Tracker runs sequential removals. The zero value uses DefaultCriticalThreshold,
// ModeExact and the default evaluator ceiling.
type Tracker struct {
	CriticalThreshold int
	Mode              Mode
	Evaluator         reliability.Evaluator
}

func (t Tracker) threshold() int {
	if t.CriticalThreshold <= 0 {
		return DefaultCriticalThreshold
	}
	return t.CriticalThreshold
}

// Track removes the nodes of order from working copies of adj and p. Ids that are
// unknown or already removed are skipped. Processing stops after the first step whose
// remaining node count falls below the critical threshold. adj and p are not modified.
func (t Tracker) Track(adj reliability.Adjacency, p reliability.Probabilities, order []string) ([]StepResult, error) {
	if err := reliability.Validate(p, adj); err != nil {
		return nil, err
	}
	workAdj := adj.Clone()
	workP := p.Clone()

	var steps []StepResult
	for _, node := range order {
		if _, ok := workP[node]; !ok {
			continue
		}
		removeNode(workAdj, node)
		delete(workP, node)

		step, err := t.measure(workAdj, workP)
		if err != nil {
			return steps, fmt.Errorf("fragility: step %d (removed %s): %w", len(steps)+1, node, err)
		}
		step.Step = len(steps) + 1
		step.Removed = node
		steps = append(steps, step)
		if step.CriticalThresholdReached {
			break
		}
	}
	return steps, nil
}

func (t Tracker) measure(adj reliability.Adjacency, p reliability.Probabilities) (StepResult, error) {
	remaining := p.IDs()
	res := StepResult{
		Remaining:                remaining,
		RemainingCount:           len(remaining),
		ProductReliability:       ProductReliability(p),
		Connected:                reliability.IsConnected(remaining, adj),
		AboveThreshold:           len(remaining) >= t.threshold(),
		CriticalThresholdReached: len(remaining) < t.threshold(),
	}
	if t.Mode == ModeProduct {
		res.Reliability = res.ProductReliability
		return res, nil
	}
	r, err := t.Evaluator.SystemReliability(p, adj)
	if err != nil {
		return res, err
	}
	res.Reliability = r
	return res, nil
}

// ProductReliability multiplies every node probability; an empty map yields 0.
func ProductReliability(p reliability.Probabilities) float64 {
	if len(p) == 0 {
		return 0
	}
	prod := 1.0
	for _, id := range p.IDs() {
		prod *= p[id]
	}
	return prod
}

// CheckThreshold reports whether nodeCount is below threshold, with a readable message.
func CheckThreshold(nodeCount, threshold int) (bool, string) {
	if nodeCount < threshold {
		return true, fmt.Sprintf("critical threshold reached: %d nodes remain, minimum is %d", nodeCount, threshold)
	}
	return false, fmt.Sprintf("system stable: %d nodes remain, minimum is %d", nodeCount, threshold)
}

// removeNode drops id and every edge touching it. adj must be a private copy.
func removeNode(adj reliability.Adjacency, id string) {
	delete(adj, id)
	for from, neighbors := range adj {
		adj[from] = slices.DeleteFunc(neighbors, func(n string) bool { return n == id })
	}
}
