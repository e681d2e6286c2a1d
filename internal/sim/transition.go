package sim

import (
	"github.com/railwright/amhs-core/internal/graph"
	"github.com/railwright/amhs-core/internal/kinematics"
	"github.com/railwright/amhs-core/internal/lockmgr"
	"github.com/railwright/amhs-core/internal/transfer"
	"github.com/railwright/amhs-core/internal/vehicle"
)

// performEdgeTransition implements C7 (§4.5): it drives vehicle i across
// one or more edge boundaries while edge_ratio >= 1, subject to the lock
// gate, the next-edge window, and the merge-aware refill rule, until the
// vehicle lands mid-edge or a gate blocks further movement.
//
// hasNextTarget/nextTarget mirrors the optional next_target_ratio input:
// when present it is applied once, to the first edge the vehicle lands on,
// and then consumed.
func performEdgeTransition(
	buf *vehicle.Buffer,
	g *graph.Graph,
	lockMgr *lockmgr.Manager,
	xfer *transfer.Manager,
	i int,
	preserveTargetRatio bool,
	nextTarget float64,
	hasNextTarget bool,
	cb *Callbacks,
	simTimeMs int64,
) {
	ratio := buf.EdgeRatio[i]
	currentIdx := buf.CurrentEdgeIndex[i]

	for ratio >= 1 {
		currentEdge, ok := g.Edge(currentIdx)
		if !ok {
			ratio = 1
			break
		}
		overflow := (ratio - 1) * currentEdge.Distance

		n := buf.NextEdge[i][0]
		state := buf.NextEdgeState[i]

		if currentEdge.ToNodeIsMerge() && !lockMgr.CheckGrant(currentEdge.ToNode, buf.VehicleID[i]) {
			ratio = 1
			break
		}
		if n != graph.InvalidEdge {
			if candidate, ok2 := g.Edge(n); ok2 && candidate.RailType.IsCurve() && candidate.ToNodeIsMerge() &&
				!lockMgr.CheckGrant(candidate.ToNode, buf.VehicleID[i]) {
				ratio = 1
				break
			}
		}
		if state != vehicle.Ready || n == graph.InvalidEdge {
			ratio = 1
			break
		}

		nextEdge, ok := g.Edge(n)
		if !ok {
			ratio = 1
			break
		}

		if currentEdge.ToNode != nextEdge.FromNode && cb != nil && cb.OnUnusualMove != nil {
			posX, posY, _, _ := kinematics.Interpolate(currentEdge, 1, 0)
			cb.OnUnusualMove(UnusualMoveEvent{
				VehicleID:    buf.VehicleID[i],
				PrevEdgeName: currentEdge.Name,
				PrevToNode:   currentEdge.ToNode,
				NextEdgeName: nextEdge.Name,
				NextFromNode: nextEdge.FromNode,
				PosX:         posX,
				PosY:         posY,
			})
		}

		newRatio := overflow / nextEdge.Distance
		buf.PresetIdx[i] = SelectSensorPreset(nextEdge)

		buf.TrafficState[i] = vehicle.Free
		buf.StopReason[i] = buf.StopReason[i].Without(vehicle.ReasonLocked)

		xfer.OnEdgeTransition(buf, i)
		xfer.RefillWindow(buf, g, lockMgr, i)

		if hasNextTarget {
			buf.TargetRatio[i] = nextTarget
			hasNextTarget = false
		} else if !preserveTargetRatio {
			buf.TargetRatio[i] = 1
		}

		fromIdx := currentIdx
		currentIdx = n
		ratio = newRatio

		if cb != nil && cb.OnEdgeTransit != nil {
			cb.OnEdgeTransit(EdgeTransitEvent{
				VehicleID:     buf.VehicleID[i],
				FromEdgeIndex: fromIdx,
				ToEdgeIndex:   n,
				SimTimeMs:     simTimeMs,
			})
		}
	}

	buf.CurrentEdgeIndex[i] = currentIdx
	buf.EdgeRatio[i] = ratio
}
