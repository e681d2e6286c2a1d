package sim

import (
	"github.com/railwright/amhs-core/internal/graph"
	"github.com/railwright/amhs-core/internal/vehicle"
)

// evaluateMergeWait implements §4.10's merge-wait steps against the final
// edge a vehicle lands on for this tick. It returns the ratio to actually
// interpolate at and whether the vehicle is being held at a wait point.
func (r *Region) evaluateMergeWait(i int, edge graph.Edge, ratio float64) (float64, bool) {
	buf := r.Buf

	if !edge.ToNodeIsMerge() {
		buf.StopReason[i] = buf.StopReason[i].Without(vehicle.ReasonLocked)
		buf.TrafficState[i] = vehicle.Free
		return ratio, false
	}

	if buf.TrafficState[i] == vehicle.Acquired {
		buf.StopReason[i] = buf.StopReason[i].Without(vehicle.ReasonLocked)
		return ratio, false
	}

	isCurve := edge.RailType.IsCurve()
	reqDist := r.Locks.RequestDistance(isCurve)
	remaining := (1 - ratio) * edge.Distance

	timeToRequest := true
	if reqDist >= 0 && !isCurve && edge.Distance >= reqDist {
		timeToRequest = remaining <= reqDist
	}

	if buf.TrafficState[i] == vehicle.Free {
		if !timeToRequest {
			return ratio, false
		}
		r.Locks.RequestLock(edge.ToNode, edge.Name, buf.VehicleID[i], r.simTimeMs)
	}

	if r.Locks.CheckGrant(edge.ToNode, buf.VehicleID[i]) {
		buf.StopReason[i] = buf.StopReason[i].Without(vehicle.ReasonLocked)
		buf.TrafficState[i] = vehicle.Acquired
		return ratio, false
	}

	buf.TrafficState[i] = vehicle.Waiting
	// wait_distance(edge) is the remaining-distance-to-merge threshold
	// below which a waiting vehicle is physically stopped (§4.10 step 6,
	// per the worked clamp example in §8).
	remainingToMerge := (1 - ratio) * edge.Distance
	waitThreshold := r.Locks.WaitDistance(isCurve)
	if remainingToMerge <= waitThreshold {
		buf.StopReason[i] = buf.StopReason[i].With(vehicle.ReasonLocked)
		clamped := (edge.Distance - waitThreshold) / edge.Distance
		return clamped, true
	}
	buf.StopReason[i] = buf.StopReason[i].Without(vehicle.ReasonLocked)
	return ratio, false
}
