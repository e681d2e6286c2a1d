// Package graph provides the immutable edge graph (C1) consumed by the
// movement simulation core: a read-only, index-addressed topology of
// directed rail segments plus their rendering geometry.
//
// Edges are 1-indexed externally — index 0 is the invalid sentinel — so a
// packed vehicle column can use 0 to mean "no edge" without a separate
// validity bit. Internally the graph stores edges 0-based in a slice and
// converts at the boundary.
package graph

import (
	"fmt"
	"math"
)

// NodeID identifies a node in the network graph.
type NodeID = string

// RailType classifies the geometry of an edge.
type RailType int

const (
	Linear RailType = iota
	LeftCurve
	RightCurve
	Curve180
	OtherCurve
)

func (r RailType) String() string {
	switch r {
	case Linear:
		return "LINEAR"
	case LeftCurve:
		return "LEFT_CURVE"
	case RightCurve:
		return "RIGHT_CURVE"
	case Curve180:
		return "CURVE_180"
	case OtherCurve:
		return "OTHER_CURVE"
	default:
		return "UNKNOWN"
	}
}

// IsCurve reports whether the rail type is anything but a straight segment.
func (r RailType) IsCurve() bool { return r != Linear }

// CurveDirection disambiguates the turning sense of a curve edge.
type CurveDirection int

const (
	DirNone CurveDirection = iota
	DirLeft
	DirRight
)

// Point is a 2D rendering-geometry vertex, in metres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EdgeIndex is a 1-based edge reference; 0 is the invalid sentinel.
type EdgeIndex int

// InvalidEdge is the sentinel for "no edge".
const InvalidEdge EdgeIndex = 0

// Edge is an immutable directed rail segment.
type Edge struct {
	Name            string         `json:"edge_name"`
	FromNode        NodeID         `json:"from_node"`
	ToNode          NodeID         `json:"to_node"`
	Distance        float64        `json:"distance"` // metres, > 0
	RailType        RailType       `json:"rail_type"`
	CurveDirection  CurveDirection `json:"curve_direction"`
	RenderingPoints []Point        `json:"rendering_points"`

	// toNodeIsMerge is derived at graph construction: true iff ToNode has
	// two or more incoming edges.
	toNodeIsMerge bool
}

// ToNodeIsMerge reports whether this edge's destination node requires lock
// arbitration (two or more incoming edges).
func (e Edge) ToNodeIsMerge() bool { return e.toNodeIsMerge }

// EdgeData is the JSON-serialisable shape of one edge, as supplied by the
// external graph/config loader.
type EdgeData struct {
	EdgeName        string  `json:"edge_name"`
	FromNode        NodeID  `json:"from_node"`
	ToNode          NodeID  `json:"to_node"`
	Distance        float64 `json:"distance"`
	RailType        string  `json:"rail_type"`
	CurveDirection  string  `json:"curve_direction"`
	RenderingPoints []Point `json:"rendering_points"`
}

// GraphData is the serialisable input representation of a network graph.
type GraphData struct {
	Edges []EdgeData `json:"edges"`
}

func parseRailType(s string) (RailType, error) {
	switch s {
	case "", "LINEAR":
		return Linear, nil
	case "LEFT_CURVE":
		return LeftCurve, nil
	case "RIGHT_CURVE":
		return RightCurve, nil
	case "CURVE_180":
		return Curve180, nil
	case "OTHER_CURVE":
		return OtherCurve, nil
	default:
		return Linear, fmt.Errorf("unknown rail_type %q", s)
	}
}

func parseCurveDirection(s string) CurveDirection {
	switch s {
	case "left":
		return DirLeft
	case "right":
		return DirRight
	default:
		return DirNone
	}
}

// Graph is the immutable, index-addressed edge topology the simulation core
// reads from. It never mutates after NewGraph returns.
type Graph struct {
	edges      []Edge // 0-based storage; external indices are edges[i-1]
	nameToIdx  map[string]EdgeIndex
	incomingBy map[NodeID]int // count of incoming edges per node, for merge detection
}

// NewGraph builds a Graph from GraphData, validating it per the
// component's setup-time contract (§4.13): zero/negative distances,
// duplicate edge names, and curve edges with fewer than 2 rendering points
// are rejected as programmer errors, never reached at tick time.
func NewGraph(data GraphData) (*Graph, error) {
	incoming := make(map[NodeID]int, len(data.Edges))
	for _, e := range data.Edges {
		incoming[e.ToNode]++
	}

	g := &Graph{
		edges:      make([]Edge, 0, len(data.Edges)),
		nameToIdx:  make(map[string]EdgeIndex, len(data.Edges)),
		incomingBy: incoming,
	}

	for i, ed := range data.Edges {
		if ed.Distance <= 0 {
			return nil, fmt.Errorf("edge %q: distance must be > 0, got %v", ed.EdgeName, ed.Distance)
		}
		if _, exists := g.nameToIdx[ed.EdgeName]; exists {
			return nil, fmt.Errorf("edge %q: duplicate edge name", ed.EdgeName)
		}
		rt, err := parseRailType(ed.RailType)
		if err != nil {
			return nil, fmt.Errorf("edge %q: %w", ed.EdgeName, err)
		}
		if rt.IsCurve() && len(ed.RenderingPoints) < 2 {
			return nil, fmt.Errorf("edge %q: curve rail type %s needs at least 2 rendering points, got %d",
				ed.EdgeName, rt, len(ed.RenderingPoints))
		}

		e := Edge{
			Name:            ed.EdgeName,
			FromNode:        ed.FromNode,
			ToNode:          ed.ToNode,
			Distance:        ed.Distance,
			RailType:        rt,
			CurveDirection:  parseCurveDirection(ed.CurveDirection),
			RenderingPoints: ed.RenderingPoints,
			toNodeIsMerge:   incoming[ed.ToNode] >= 2,
		}
		g.edges = append(g.edges, e)
		g.nameToIdx[ed.EdgeName] = EdgeIndex(i + 1)
	}

	return g, nil
}

// Len returns the number of edges in the graph.
func (g *Graph) Len() int { return len(g.edges) }

// Edge returns the edge at the given 1-based index. ok is false for the
// invalid sentinel (0) or an out-of-range index — callers clamp and
// continue rather than treating this as fatal (§4.11).
func (g *Graph) Edge(idx EdgeIndex) (Edge, bool) {
	if idx <= 0 || int(idx) > len(g.edges) {
		return Edge{}, false
	}
	return g.edges[idx-1], true
}

// IndexByName returns the 1-based index of the edge with the given name.
func (g *Graph) IndexByName(name string) (EdgeIndex, bool) {
	idx, ok := g.nameToIdx[name]
	return idx, ok
}

// IsMergeNode reports whether name has two or more incoming edges.
func (g *Graph) IsMergeNode(name NodeID) bool {
	return g.incomingBy[name] >= 2
}

// EdgesFrom returns the 1-based indices of every edge whose FromNode is node,
// in graph order. Used by the transfer manager's RANDOM mode to pick a
// successor without a full shortest-path computation (pathfinding beyond
// the supplied path buffer remains out of scope).
func (g *Graph) EdgesFrom(node NodeID) []EdgeIndex {
	var out []EdgeIndex
	for i, e := range g.edges {
		if e.FromNode == node {
			out = append(out, EdgeIndex(i+1))
		}
	}
	return out
}

// AxisRotation returns the snapped rotation in degrees for a LINEAR edge
// based on the dominant axis between its first and last rendering point:
// one of {0, 90, 180, -90}. Used by the position interpolator (§4.1) and
// exposed here because it is purely a function of edge geometry.
func (e Edge) AxisRotation() float64 {
	if len(e.RenderingPoints) == 0 {
		return 0
	}
	first := e.RenderingPoints[0]
	last := e.RenderingPoints[len(e.RenderingPoints)-1]
	dx := last.X - first.X
	dy := last.Y - first.Y
	if math.Abs(dx) >= math.Abs(dy) {
		if dx >= 0 {
			return 0
		}
		return 180
	}
	if dy >= 0 {
		return 90
	}
	return -90
}
