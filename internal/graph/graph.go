// Package graph holds the experiment graph model, its line-record parser and
// the exact algorithms used as scoring ground truth.
package graph

import (
	"errors"
	"fmt"
	"math"
)

// ErrNodeMissing is returned when a lookup names a node the graph does not hold.
var ErrNodeMissing = errors.New("node not in graph")

// Node is a vertex with authoring-space coordinates.
type Node struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}

// Finite reports whether all three coordinates are finite numbers.
func (n Node) Finite() bool {
	return isFinite(n.X) && isFinite(n.Y) && isFinite(n.Z)
}

// Edge is an undirected connection between two node ids.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Graph is an ordered node list plus an ordered edge list.
// Edge endpoints are not checked against the node list; traversal skips
// endpoints that are absent.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Empty reports whether the graph has no nodes.
func (g *Graph) Empty() bool { return g == nil || len(g.Nodes) == 0 }

// NodeByID returns the first node with the given id.
func (g *Graph) NodeByID(id int) (Node, bool) {
	if g == nil {
		return Node{}, false
	}

	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}

	return Node{}, false
}

// Has reports whether id names a node.
func (g *Graph) Has(id int) bool {
	_, ok := g.NodeByID(id)
	return ok
}

// Degree returns the number of distinct neighbours of id.
func (g *Graph) Degree(id int) int {
	return len(NewAdjacency(g).Neighbors(id))
}

// Finite reports whether every node has finite coordinates.
func (g *Graph) Finite() bool {
	for _, n := range g.Nodes {
		if !n.Finite() {
			return false
		}
	}

	return true
}

// Validate runs the strict structural checks: duplicate ids, non-finite
// coordinates, self loops and dangling edge endpoints.
func (g *Graph) Validate() error {
	var errs []error

	seen := make(map[int]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if seen[n.ID] {
			errs = append(errs, fmt.Errorf("node %d: duplicate id", n.ID))
		}

		seen[n.ID] = true

		if !n.Finite() {
			errs = append(errs, fmt.Errorf("node %d: non-finite coordinate", n.ID))
		}
	}

	for i, e := range g.Edges {
		if e.From == e.To {
			errs = append(errs, fmt.Errorf("edge %d: self loop on node %d", i, e.From))
		}

		if !seen[e.From] {
			errs = append(errs, fmt.Errorf("edge %d: endpoint %d: %w", i, e.From, ErrNodeMissing))
		}

		if !seen[e.To] {
			errs = append(errs, fmt.Errorf("edge %d: endpoint %d: %w", i, e.To, ErrNodeMissing))
		}
	}

	return errors.Join(errs...)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
