package graph

import (
	"slices"
)

// NoPath is the distance reported for disconnected or unknown nodes.
const NoPath = -1

// Adjacency maps each node id to its distinct neighbours in first-seen edge order.
type Adjacency map[int][]int

// NewAdjacency builds the undirected adjacency of g. Every node gets an entry;
// edges touching an absent node are left out.
func NewAdjacency(g *Graph) Adjacency {
	adj := make(Adjacency)
	if g == nil {
		return adj
	}

	for _, n := range g.Nodes {
		if _, ok := adj[n.ID]; !ok {
			adj[n.ID] = []int{}
		}
	}

	for _, e := range g.Edges {
		if _, ok := adj[e.From]; !ok {
			continue
		}

		if _, ok := adj[e.To]; !ok {
			continue
		}

		adj.link(e.From, e.To)
		adj.link(e.To, e.From)
	}

	return adj
}

func (adj Adjacency) link(from, to int) {
	if slices.Contains(adj[from], to) {
		return
	}

	adj[from] = append(adj[from], to)
}

// Neighbors returns the neighbours of id, or nil when id is absent.
func (adj Adjacency) Neighbors(id int) []int {
	return adj[id]
}

// ShortestPath returns the node sequence from start to target inclusive,
// found by breadth-first search. It returns nil when no path exists.
func ShortestPath(g *Graph, start, target int) []int {
	return NewAdjacency(g).ShortestPath(start, target)
}

// ShortestPath runs the breadth-first search on a prebuilt adjacency.
func (adj Adjacency) ShortestPath(start, target int) []int {
	if _, ok := adj[start]; !ok {
		return nil
	}

	if _, ok := adj[target]; !ok {
		return nil
	}

	if start == target {
		return []int{start}
	}

	parent := map[int]int{start: start}
	queue := []int{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range adj[cur] {
			if _, seen := parent[next]; seen {
				continue
			}

			parent[next] = cur

			if next == target {
				return unwind(parent, start, target)
			}

			queue = append(queue, next)
		}
	}

	return nil
}

func unwind(parent map[int]int, start, target int) []int {
	path := []int{target}
	for cur := target; cur != start; {
		cur = parent[cur]
		path = append(path, cur)
	}

	slices.Reverse(path)

	return path
}

// ShortestPathDistance returns the number of edges on the shortest path, or NoPath.
func ShortestPathDistance(g *Graph, a, b int) int {
	return NewAdjacency(g).Distance(a, b)
}

// Distance returns the shortest-path edge count on a prebuilt adjacency, or NoPath.
func (adj Adjacency) Distance(from, to int) int {
	path := adj.ShortestPath(from, to)
	if len(path) == 0 {
		return NoPath
	}

	return len(path) - 1
}

// CommonNeighbors returns the ascending ids adjacent to both a and b.
func CommonNeighbors(g *Graph, a, b int) []int {
	return NewAdjacency(g).CommonNeighbors(a, b)
}

// CommonNeighbors intersects the neighbour sets of a and b on a prebuilt adjacency.
func (adj Adjacency) CommonNeighbors(a, b int) []int {
	inB := make(map[int]bool, len(adj[b]))
	for _, id := range adj[b] {
		inB[id] = true
	}

	common := []int{}
	for _, id := range adj[a] {
		if inB[id] {
			common = append(common, id)
		}
	}

	slices.Sort(common)

	return slices.Compact(common)
}

// PairStats summarises a node pair for trial curation checks.
type PairStats struct {
	Node1           int   `json:"node1"`
	Node2           int   `json:"node2"`
	Degree1         int   `json:"degree1"`
	Degree2         int   `json:"degree2"`
	Distance        int   `json:"distance"`
	CommonNeighbors []int `json:"common_neighbors"`
}

// Stats computes degrees, distance and common neighbours for a pair.
func Stats(g *Graph, n1, n2 int) PairStats {
	adj := NewAdjacency(g)

	return PairStats{
		Node1:           n1,
		Node2:           n2,
		Degree1:         len(adj.Neighbors(n1)),
		Degree2:         len(adj.Neighbors(n2)),
		Distance:        adj.Distance(n1, n2),
		CommonNeighbors: adj.CommonNeighbors(n1, n2),
	}
}
