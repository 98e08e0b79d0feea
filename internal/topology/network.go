// Package topology turns declared networks into the probability and adjacency maps
// consumed by the reliability packages.
package topology

import (
	"slices"

	"github.com/gyaneshwarpardhi/netrel/internal/reliability"
)

// Node is a network element with its probability of being up.
type Node struct {
	ID          string  `json:"id"`
	Type        string  `json:"type,omitempty"`
	Reliability float64 `json:"reliability"`
	Capacity    float64 `json:"capacity,omitempty"`
}

// Link is an undirected connection between two nodes.
type Link struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Bandwidth float64 `json:"bandwidth,omitempty"`
}

// Network holds nodes and links in declaration order.
// It is immutable once built; RemoveNode returns a new Network.
type Network struct {
	ID          string
	Description string
	nodes       []Node
	links       []Link
	index       map[string]int // node id → position in nodes
}

// NewNetwork allocates a Network. Links whose endpoints are not among nodes are dropped.
func NewNetwork(id, description string, nodes []Node, links []Link) *Network {
	n := &Network{
		ID:          id,
		Description: description,
		nodes:       slices.Clone(nodes),
		index:       make(map[string]int, len(nodes)),
	}
	for i, node := range n.nodes {
		n.index[node.ID] = i
	}
	for _, l := range links {
		if n.HasNode(l.Source) && n.HasNode(l.Target) {
			n.links = append(n.links, l)
		}
	}
	return n
}

// HasNode reports whether id is part of the network.
func (n *Network) HasNode(id string) bool {
	_, ok := n.index[id]
	return ok
}

// Node returns a node by id.
func (n *Network) Node(id string) (Node, bool) {
	i, ok := n.index[id]
	if !ok {
		return Node{}, false
	}
	return n.nodes[i], true
}

// Nodes returns the nodes in declaration order.
func (n *Network) Nodes() []Node { return slices.Clone(n.nodes) }

// Links returns the links in declaration order.
func (n *Network) Links() []Link { return slices.Clone(n.links) }

// NodeIDs returns the node ids in declaration order.
func (n *Network) NodeIDs() []string {
	ids := make([]string, len(n.nodes))
	for i, node := range n.nodes {
		ids[i] = node.ID
	}
	return ids
}

// NodeCount returns the number of nodes.
func (n *Network) NodeCount() int { return len(n.nodes) }

// LinkCount returns the number of links.
func (n *Network) LinkCount() int { return len(n.links) }

// Probabilities returns a fresh id → reliability map.
func (n *Network) Probabilities() reliability.Probabilities {
	p := make(reliability.Probabilities, len(n.nodes))
	for _, node := range n.nodes {
		p[node.ID] = node.Reliability
	}
	return p
}

// Adjacency returns a fresh symmetric adjacency map with an entry for every node.
// Neighbours follow link declaration order; duplicate links collapse.
func (n *Network) Adjacency() reliability.Adjacency {
	adj := make(reliability.Adjacency, len(n.nodes))
	for _, node := range n.nodes {
		adj[node.ID] = []string{}
	}
	for _, l := range n.links {
		if l.Source == l.Target {
			continue
		}
		if !slices.Contains(adj[l.Source], l.Target) {
			adj[l.Source] = append(adj[l.Source], l.Target)
		}
		if !slices.Contains(adj[l.Target], l.Source) {
			adj[l.Target] = append(adj[l.Target], l.Source)
		}
	}
	return adj
}

// RemoveNode returns a copy of the network without id and its links.
func (n *Network) RemoveNode(id string) *Network {
	nodes := slices.DeleteFunc(slices.Clone(n.nodes), func(node Node) bool { return node.ID == id })
	return NewNetwork(n.ID, n.Description, nodes, n.links)
}

// WithReliabilities returns a copy whose node reliabilities are taken from p.
// Nodes absent from p keep their current value.
func (n *Network) WithReliabilities(p reliability.Probabilities) *Network {
	nodes := slices.Clone(n.nodes)
	for i := range nodes {
		if v, ok := p[nodes[i].ID]; ok {
			nodes[i].Reliability = v
		}
	}
	return NewNetwork(n.ID, n.Description, nodes, n.links)
}

// Clone returns an independent copy of the network.
func (n *Network) Clone() *Network {
	return NewNetwork(n.ID, n.Description, n.nodes, n.links)
}
