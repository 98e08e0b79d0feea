package reliability

// SystemTotalID labels the aggregate row of a Report.
const SystemTotalID = "SYSTEM_TOTAL"

// Row is one line of the reliability report.
type Row struct {
	NodeID             string  `json:"node_id"`
	Reliability        float64 `json:"reliability"`
	FailureProbability float64 `json:"failure_probability"`
	Birnbaum           float64 `json:"birnbaum_coefficient"`
	Connections        int     `json:"connections"`
	Tier               Tier    `json:"tier"`
}

// Report combines per-node importance with the system figure.
type Report struct {
	SystemReliability float64 `json:"system_reliability"`
	Nodes             []Row   `json:"nodes"`
	Total             Row     `json:"total"`
}

// Table returns the node rows followed by the system total row.
func (r *Report) Table() []Row {
	out := make([]Row, 0, len(r.Nodes)+1)
	out = append(out, r.Nodes...)
	return append(out, r.Total)
}

// Report builds the full reliability report for p and adj. Node rows follow sorted
// id order. Connections counts the entries listed for the node in adj; the total row
// counts undirected links as half the listed entries.
func (e Evaluator) Report(p Probabilities, adj Adjacency) (*Report, error) {
	ix, err := e.index(p, adj)
	if err != nil {
		return nil, err
	}
	system := ix.reliability(ix.probs)

	rep := &Report{
		SystemReliability: system,
		Nodes:             make([]Row, 0, len(ix.ids)),
	}
	var sumBirnbaum float64
	var listed int
	for i, id := range ix.ids {
		up, down := ix.pinned(i)
		coeff := up - down
		sumBirnbaum += coeff
		listed += len(adj[id])
		rep.Nodes = append(rep.Nodes, Row{
			NodeID:             id,
			Reliability:        ix.probs[i],
			FailureProbability: 1 - ix.probs[i],
			Birnbaum:           coeff,
			Connections:        len(adj[id]),
			Tier:               ClassifyTier(coeff),
		})
	}
	rep.Total = Row{
		NodeID:             SystemTotalID,
		Reliability:        system,
		FailureProbability: 1 - system,
		Birnbaum:           sumBirnbaum,
		Connections:        listed / 2,
		Tier:               TierSystem,
	}
	return rep, nil
}
