package graph

// shortestpath.go is a setup-time diagnostic,
// not a runtime dependency of the movement pipeline: pathfinding beyond
// consuming a pre-computed path buffer is out of scope for the core
// (§1 Non-goals). It is wired into the `validate` CLI subcommand so an
// operator can catch an unreachable merge node before a simulation run,
// reusing the teacher's Floyd-Warshall all-pairs computation for a
// validation report instead of for per-vehicle routing.

import "sort"

// Reachability is the result of an all-pairs reachability scan: for every
// node pair (u, v) with at least one directed path, Reachable[u] contains v.
type Reachability struct {
	Reachable map[NodeID]map[NodeID]bool
	nodes     []NodeID
}

// computeReachability runs a Floyd-Warshall-style closure over the boolean
// adjacency relation (unweighted: we only care about reachability, not
// distance, for the validation report).
func (g *Graph) computeReachability() Reachability {
	nodeSet := make(map[NodeID]struct{})
	for _, e := range g.edges {
		nodeSet[e.FromNode] = struct{}{}
		nodeSet[e.ToNode] = struct{}{}
	}
	nodeIDs := make([]NodeID, 0, len(nodeSet))
	for n := range nodeSet {
		nodeIDs = append(nodeIDs, n)
	}
	sort.Strings(nodeIDs)

	reach := make(map[NodeID]map[NodeID]bool, len(nodeIDs))
	for _, i := range nodeIDs {
		reach[i] = make(map[NodeID]bool, len(nodeIDs))
	}
	for _, e := range g.edges {
		reach[e.FromNode][e.ToNode] = true
	}
	for _, k := range nodeIDs {
		for _, i := range nodeIDs {
			if !reach[i][k] {
				continue
			}
			for _, j := range nodeIDs {
				if reach[k][j] {
					reach[i][j] = true
				}
			}
		}
	}

	return Reachability{Reachable: reach, nodes: nodeIDs}
}

// UnreachableMergeNodes reports every merge node (≥2 incoming edges) that is
// not reachable from at least one other node with outgoing edges — a
// configuration smell worth flagging at setup time, even though it is not
// one of the hard §4.13 validation failures.
func (g *Graph) UnreachableMergeNodes() []NodeID {
	reach := g.computeReachability()

	merges := make(map[NodeID]struct{})
	for node, count := range g.incomingBy {
		if count >= 2 {
			merges[node] = struct{}{}
		}
	}

	var unreachable []NodeID
	for merge := range merges {
		reachedBySomeone := false
		for _, from := range reach.nodes {
			if from == merge {
				continue
			}
			if reach.Reachable[from][merge] {
				reachedBySomeone = true
				break
			}
		}
		if !reachedBySomeone {
			unreachable = append(unreachable, merge)
		}
	}
	sort.Strings(unreachable)
	return unreachable
}
