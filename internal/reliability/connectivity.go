package reliability

// IsConnected reports whether alive forms a single connected component of adj.
// Every listed edge is followed in both directions and edges leaving the alive set are
// ignored, so the answer does not depend on where the traversal starts. An empty set
// is never connected; a single node always is.
func IsConnected(alive []string, adj Adjacency) bool {
	set := make(map[string]struct{}, len(alive))
	for _, id := range alive {
		set[id] = struct{}{}
	}
	switch len(set) {
	case 0:
		return false
	case 1:
		return true
	}

	links := aliveLinks(adj, set)
	visited := make(map[string]struct{}, len(set))
	stack := []string{alive[0]}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		for _, next := range links[cur] {
			if _, seen := visited[next]; !seen {
				stack = append(stack, next)
			}
		}
	}
	return len(visited) == len(set)
}

// aliveLinks builds an undirected neighbour list restricted to the alive set.
func aliveLinks(adj Adjacency, alive map[string]struct{}) map[string][]string {
	links := make(map[string][]string, len(alive))
	for from, neighbors := range adj {
		if _, ok := alive[from]; !ok {
			continue
		}
		for _, to := range neighbors {
			if _, ok := alive[to]; !ok || to == from {
				continue
			}
			links[from] = append(links[from], to)
			links[to] = append(links[to], from)
		}
	}
	return links
}
