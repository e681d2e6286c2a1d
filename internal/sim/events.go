package sim

import "github.com/railwright/amhs-core/internal/graph"

// UnusualMoveEvent reports a transition whose entry and exit nodes disagree
// with the graph's topology — still applied, never aborted (§4.11). Field
// names mirror on_unusual_move's payload (§6 External Interfaces).
type UnusualMoveEvent struct {
	VehicleID    string
	PrevEdgeName string
	PrevToNode   string
	NextEdgeName string
	NextFromNode string
	PosX         float64
	PosY         float64
}

// EdgeTransitEvent reports a vehicle completing a transition onto a new
// edge, for host-side telemetry (on_edge_transit, §6 External Interfaces).
type EdgeTransitEvent struct {
	VehicleID     string
	FromEdgeIndex graph.EdgeIndex
	ToEdgeIndex   graph.EdgeIndex
	SimTimeMs     int64
}

// Callbacks bundles the optional event hooks a Region reports through while
// stepping. Any field may be nil.
type Callbacks struct {
	OnUnusualMove func(UnusualMoveEvent)
	OnEdgeTransit func(EdgeTransitEvent)
}
