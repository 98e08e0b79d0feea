// Package threat perturbs node reliabilities with randomly occurring external threats.
package threat

import (
	"fmt"
	"math/rand/v2"

	"github.com/gyaneshwarpardhi/netrel/internal/config"
	"github.com/gyaneshwarpardhi/netrel/internal/reliability"
)

// Kind names a threat.
type Kind string

const (
	HackerAttack         Kind = "hacker_attack"
	PowerOutage          Kind = "power_outage"
	CommunicationFailure Kind = "communication_failure"
)

// Threat strikes with probability Chance. When it does, it picks up to Targets distinct
// nodes; each is affected with probability Impact and has its reliability multiplied by Factor.
type Threat struct {
	Kind    Kind    `json:"kind"`
	Chance  float64 `json:"chance"`
	Impact  float64 `json:"impact"`
	Factor  float64 `json:"factor"`
	Targets int     `json:"targets"`
}

// Defaults returns the built-in threat set in evaluation order.
func Defaults() []Threat {
	return []Threat{
		{Kind: HackerAttack, Chance: 0.10, Impact: 0.3, Factor: 0.3, Targets: 2},
		{Kind: PowerOutage, Chance: 0.05, Impact: 0.8, Factor: 0, Targets: 3},
		{Kind: CommunicationFailure, Chance: 0.15, Impact: 0.2, Factor: 0.5, Targets: 1},
	}
}

// Event records one node hit by a threat.
type Event struct {
	Kind        Kind    `json:"kind"`
	Target      string  `json:"target"`
	Impact      float64 `json:"impact"`
	Before      float64 `json:"before"`
	After       float64 `json:"after"`
	Description string  `json:"description"`
}

// Simulator applies a fixed threat set.
type Simulator struct {
	threats []Threat
}

// NewSimulator returns a Simulator for threats. An empty list selects Defaults.
func NewSimulator(threats ...Threat) *Simulator {
	if len(threats) == 0 {
		threats = Defaults()
	}
	return &Simulator{threats: threats}
}

// FromConfig builds a Simulator from YAML threat settings. Each field that is set
// overrides the matching default; the rest keep their default values.
func FromConfig(conf config.ThreatConf) *Simulator {
	threats := Defaults()
	for i, def := range []config.ThreatDef{conf.HackerAttack, conf.PowerOutage, conf.CommunicationFailure} {
		if def.Chance != nil {
			threats[i].Chance = *def.Chance
		}
		if def.Impact != nil {
			threats[i].Impact = *def.Impact
		}
		if def.Factor != nil {
			threats[i].Factor = *def.Factor
		}
		if def.Targets != nil {
			threats[i].Targets = *def.Targets
		}
	}
	return NewSimulator(threats...)
}

// Threats returns the configured threat set.
func (s *Simulator) Threats() []Threat {
	out := make([]Threat, len(s.threats))
	copy(out, s.threats)
	return out
}

// Simulate runs every threat once against p and returns the perturbed probabilities
// with the events that caused them. p is not modified. Node selection iterates the
// sorted ids, so a given rng seed always yields the same outcome.
func (s *Simulator) Simulate(rng *rand.Rand, p reliability.Probabilities) (reliability.Probabilities, []Event) {
	out := p.Clone()
	ids := p.IDs()
	var events []Event
	for _, th := range s.threats {
		if rng.Float64() >= th.Chance {
			continue
		}
		for _, id := range sample(rng, ids, th.Targets) {
			if rng.Float64() >= th.Impact {
				continue
			}
			before := out[id]
			out[id] = before * th.Factor
			events = append(events, Event{
				Kind:        th.Kind,
				Target:      id,
				Impact:      th.Impact,
				Before:      before,
				After:       out[id],
				Description: fmt.Sprintf("%s on node %s", th.Kind, id),
			})
		}
	}
	return out, events
}

// sample picks min(k, len(ids)) distinct ids without replacement.
func sample(rng *rand.Rand, ids []string, k int) []string {
	k = min(k, len(ids))
	if k <= 0 {
		return nil
	}
	pool := make([]string, len(ids))
	copy(pool, ids)
	for i := range k {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// NewRand returns the generator Simulate is driven with for a given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
