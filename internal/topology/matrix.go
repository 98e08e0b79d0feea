package topology

import (
	"errors"
	"fmt"

	"github.com/gyaneshwarpardhi/netrel/internal/reliability"
)

// ErrMatrixShape is returned when a matrix does not match the node list.
var ErrMatrixShape = errors.New("topology: matrix shape does not match node list")

// AdjacencyFromMatrix converts a 0/1 matrix indexed by ids into an adjacency map.
// A non-zero off-diagonal entry (i, j) lists ids[j] as a neighbour of ids[i];
// the diagonal is ignored. Every id gets an entry.
func AdjacencyFromMatrix(ids []string, m [][]int) (reliability.Adjacency, error) {
	if len(m) != len(ids) {
		return nil, fmt.Errorf("%w: %d rows for %d nodes", ErrMatrixShape, len(m), len(ids))
	}
	adj := make(reliability.Adjacency, len(ids))
	for i, row := range m {
		if len(row) != len(ids) {
			return nil, fmt.Errorf("%w: row %d has %d columns for %d nodes", ErrMatrixShape, i, len(row), len(ids))
		}
		neighbors := []string{}
		for j, v := range row {
			if v != 0 && i != j {
				neighbors = append(neighbors, ids[j])
			}
		}
		adj[ids[i]] = neighbors
	}
	return adj, nil
}

// MatrixFromAdjacency converts adj into a 0/1 matrix indexed by ids. Neighbours
// missing from ids are skipped.
func MatrixFromAdjacency(ids []string, adj reliability.Adjacency) [][]int {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	m := make([][]int, len(ids))
	for i := range m {
		m[i] = make([]int, len(ids))
	}
	for i, id := range ids {
		for _, to := range adj[id] {
			if j, ok := pos[to]; ok && j != i {
				m[i][j] = 1
			}
		}
	}
	return m
}

// LinksFromMatrix lists each undirected link of m once, in row-major order.
func LinksFromMatrix(ids []string, m [][]int) ([]Link, error) {
	adj, err := AdjacencyFromMatrix(ids, m)
	if err != nil {
		return nil, err
	}
	seen := make(map[[2]string]struct{})
	var links []Link
	for _, from := range ids {
		for _, to := range adj[from] {
			key := [2]string{from, to}
			if from > to {
				key = [2]string{to, from}
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			links = append(links, Link{Source: from, Target: to})
		}
	}
	return links, nil
}
