package topology

import (
	"errors"
	"fmt"

	"github.com/gyaneshwarpardhi/netrel/internal/config"
)

// ErrUnknownNode is returned when a link names a node the network does not declare.
var ErrUnknownNode = errors.New("topology: unknown node")

// Build constructs a Network from a validated NetworkDef.
// Matrix links are resolved to node ids here; evaluation never sees indices.
func Build(def config.NetworkDef) (*Network, error) {
	nodes := make([]Node, len(def.Nodes))
	ids := make([]string, len(def.Nodes))
	seen := make(map[string]struct{}, len(def.Nodes))
	for i, nd := range def.Nodes {
		if _, dup := seen[nd.ID]; dup {
			return nil, fmt.Errorf("network %s: duplicate node %s", def.ID, nd.ID)
		}
		seen[nd.ID] = struct{}{}
		nodes[i] = Node{
			ID:          nd.ID,
			Type:        nd.Type,
			Reliability: nd.Reliability,
			Capacity:    nd.Capacity,
		}
		ids[i] = nd.ID
	}

	var links []Link
	if len(def.Matrix) > 0 {
		ml, err := LinksFromMatrix(ids, def.Matrix)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", def.ID, err)
		}
		links = ml
	} else {
		links = make([]Link, 0, len(def.Links))
		for _, ld := range def.Links {
			links = append(links, Link{Source: ld.Source, Target: ld.Target, Bandwidth: ld.Bandwidth})
		}
	}

	for _, l := range links {
		for _, end := range []string{l.Source, l.Target} {
			if _, ok := seen[end]; !ok {
				return nil, fmt.Errorf("network %s: link %s-%s: %w", def.ID, l.Source, l.Target, ErrUnknownNode)
			}
		}
	}
	return NewNetwork(def.ID, def.Description, nodes, links), nil
}

// BuildCatalog builds every network declared in cfg.
func BuildCatalog(cfg *config.Config) (*Catalog, error) {
	c := NewCatalog()
	for _, def := range cfg.Networks {
		n, err := Build(def)
		if err != nil {
			return nil, err
		}
		c.Add(n)
	}
	return c, nil
}
