package topology_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/netrel/internal/config"
	"github.com/gyaneshwarpardhi/netrel/internal/reliability"
	"github.com/gyaneshwarpardhi/netrel/internal/topology"
)

func loadCatalog(t *testing.T) *topology.Catalog {
	t.Helper()
	data, err := os.ReadFile("../../configs/networks.yaml")
	require.NoError(t, err)
	cfg, err := config.Parse(data)
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))
	c, err := topology.BuildCatalog(cfg)
	require.NoError(t, err)
	return c
}

func TestBuildCatalog_SampleConfig(t *testing.T) {
	c := loadCatalog(t)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, "sample", c.Networks()[0].ID)
	assert.Equal(t, "ring", c.Networks()[1].ID)
	assert.Nil(t, c.Network("ghost"))

	sample := c.Network("sample")
	require.NotNil(t, sample)
	assert.Equal(t, 7, sample.NodeCount())
	assert.Equal(t, 9, sample.LinkCount())

	fw, ok := sample.Node("firewall")
	require.True(t, ok)
	assert.Equal(t, "firewall", fw.Type)
	assert.Equal(t, 0.92, fw.Reliability)
	assert.Equal(t, 200.0, fw.Capacity)

	r, err := reliability.SystemReliability(sample.Probabilities(), sample.Adjacency())
	require.NoError(t, err)
	assert.InDelta(t, 0.9926985260416, r, 1e-9)
}

func TestBuildCatalog_MatrixNetwork(t *testing.T) {
	ring := loadCatalog(t).Network("ring")
	require.NotNil(t, ring)
	assert.Equal(t, 4, ring.LinkCount())

	adj := ring.Adjacency()
	assert.ElementsMatch(t, []string{"b", "d"}, adj["a"])
	assert.ElementsMatch(t, []string{"a", "c"}, adj["b"])

	r, err := reliability.SystemReliability(ring.Probabilities(), adj)
	require.NoError(t, err)
	assert.InDelta(t, 0.9837, r, 1e-9)
}

func TestBuild_Errors(t *testing.T) {
	_, err := topology.Build(config.NetworkDef{
		ID:    "dup",
		Nodes: []config.NodeDef{{ID: "a"}, {ID: "a"}},
	})
	assert.ErrorContains(t, err, "duplicate node a")

	_, err = topology.Build(config.NetworkDef{
		ID:    "dangling",
		Nodes: []config.NodeDef{{ID: "a"}},
		Links: []config.LinkDef{{Source: "a", Target: "ghost"}},
	})
	assert.ErrorIs(t, err, topology.ErrUnknownNode)

	_, err = topology.Build(config.NetworkDef{
		ID:     "bad-matrix",
		Nodes:  []config.NodeDef{{ID: "a"}, {ID: "b"}},
		Matrix: [][]int{{0, 1}},
	})
	assert.ErrorIs(t, err, topology.ErrMatrixShape)
}

func TestNetwork_AdjacencyIsSymmetric(t *testing.T) {
	n := topology.NewNetwork("n", "", []topology.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}}, []topology.Link{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "a"},
		{Source: "c", Target: "c"},
		{Source: "a", Target: "ghost"},
	})
	assert.Equal(t, 3, n.LinkCount())
	assert.Equal(t, reliability.Adjacency{
		"a": {"b"},
		"b": {"a"},
		"c": {},
	}, n.Adjacency())
}

func TestNetwork_RemoveNode(t *testing.T) {
	sample := loadCatalog(t).Network("sample")
	without := sample.RemoveNode("router1")

	assert.Equal(t, 7, sample.NodeCount(), "original untouched")
	assert.Equal(t, 6, without.NodeCount())
	assert.Equal(t, 6, without.LinkCount())
	assert.False(t, without.HasNode("router1"))
	for id, neighbors := range without.Adjacency() {
		assert.NotContains(t, neighbors, "router1", id)
	}
	assert.NotSame(t, sample, without)
}

func TestNetwork_WithReliabilitiesAndClone(t *testing.T) {
	sample := loadCatalog(t).Network("sample")
	degraded := sample.WithReliabilities(reliability.Probabilities{"firewall": 0.5, "ghost": 0.1})

	assert.Equal(t, 0.5, degraded.Probabilities()["firewall"])
	assert.Equal(t, 0.92, sample.Probabilities()["firewall"])
	assert.NotContains(t, degraded.Probabilities(), "ghost")

	clone := sample.Clone()
	assert.Equal(t, sample.Nodes(), clone.Nodes())
	assert.Equal(t, sample.Links(), clone.Links())
	assert.Equal(t, sample.NodeIDs(), clone.NodeIDs())
}

func TestMatrixConversion_RoundTrip(t *testing.T) {
	ids := []string{"a", "b", "c"}
	m := [][]int{
		{1, 1, 0},
		{1, 0, 1},
		{0, 1, 0},
	}
	adj, err := topology.AdjacencyFromMatrix(ids, m)
	require.NoError(t, err)
	assert.Equal(t, reliability.Adjacency{
		"a": {"b"},
		"b": {"a", "c"},
		"c": {"b"},
	}, adj)

	back := topology.MatrixFromAdjacency(ids, adj)
	assert.Equal(t, [][]int{
		{0, 1, 0},
		{1, 0, 1},
		{0, 1, 0},
	}, back, "diagonal is dropped")
}

func TestAdjacencyFromMatrix_Shape(t *testing.T) {
	_, err := topology.AdjacencyFromMatrix([]string{"a", "b"}, [][]int{{0, 1}, {1}})
	assert.ErrorIs(t, err, topology.ErrMatrixShape)

	_, err = topology.AdjacencyFromMatrix([]string{"a"}, nil)
	assert.ErrorIs(t, err, topology.ErrMatrixShape)
}

func TestLinksFromMatrix_ListsEachLinkOnce(t *testing.T) {
	links, err := topology.LinksFromMatrix([]string{"a", "b", "c"}, [][]int{
		{0, 1, 1},
		{1, 0, 0},
		{1, 0, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, []topology.Link{
		{Source: "a", Target: "b"},
		{Source: "a", Target: "c"},
	}, links)
}
