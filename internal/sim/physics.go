package sim

import (
	"math"

	"github.com/railwright/amhs-core/internal/graph"
	"github.com/railwright/amhs-core/internal/kinematics"
	"github.com/railwright/amhs-core/internal/transfer"
	"github.com/railwright/amhs-core/internal/vehicle"
)

// physicsPhase implements §4.8: hit-zone classification, the three-way
// deceleration arbitration (sensor / curve / merge pre-braking), and the
// resulting speed and raw ratio advance for vehicle i.
func (r *Region) physicsPhase(i int, dt float64) float64 {
	buf := r.Buf

	raw := r.Sensors.ReadRaw(i)
	var hitZone vehicle.HitZone
	switch {
	case raw == vehicle.HitZoneStop:
		hitZone = vehicle.HitZoneStop
	case buf.Deceleration[i] != 0:
		hitZone = raw
	default:
		hitZone = vehicle.HitZoneNone
	}
	buf.HitZone[i] = hitZone

	if hitZone == vehicle.HitZoneStop {
		buf.Velocity[i] = 0
		buf.Acceleration[i] = 0
		buf.Deceleration[i] = 0
		buf.StopReason[i] = buf.StopReason[i].With(vehicle.ReasonSensored)
		return buf.EdgeRatio[i]
	}
	buf.StopReason[i] = buf.StopReason[i].Without(vehicle.ReasonSensored)

	sensorDecel := 0.0
	if hitZone >= 0 {
		sensorDecel = math.Abs(buf.Deceleration[i])
	}
	curveDecel := r.curvePreBrakeDecel(i)
	mergeDecel := r.mergePreBrakeDecel(i)

	maxDecel := sensorDecel
	if curveDecel > maxDecel {
		maxDecel = curveDecel
	}
	if mergeDecel > maxDecel {
		maxDecel = mergeDecel
	}

	currentEdge, ok := r.Graph.Edge(buf.CurrentEdgeIndex[i])
	isCurve := ok && currentEdge.RailType.IsCurve()

	appliedAccel := r.Config.Acceleration
	if isCurve {
		appliedAccel = r.Config.CurveAcceleration
	}

	var accel, decel float64
	if maxDecel > 0 {
		decel = -maxDecel
	} else {
		accel = appliedAccel
	}
	buf.Acceleration[i] = accel
	buf.Deceleration[i] = decel

	newVelocity := kinematics.NextSpeed(buf.Velocity[i], accel, decel, isCurve, dt, r.Config.LinearMaxSpeed, r.Config.CurveMaxSpeed)
	buf.Velocity[i] = newVelocity

	dist := 1.0
	if ok && currentEdge.Distance > 0 {
		dist = currentEdge.Distance
	}
	return buf.EdgeRatio[i] + newVelocity*dt/dist
}

// curvePreBrakeDecel implements §4.8's curve pre-braking rule: evaluated at
// most once per curve_pre_brake_check_interval while not already braking;
// once braking starts it continues every tick until speed <= curve max.
func (r *Region) curvePreBrakeDecel(i int) float64 {
	buf := r.Buf
	currentEdge, ok := r.Graph.Edge(buf.CurrentEdgeIndex[i])
	if !ok || currentEdge.RailType.IsCurve() {
		buf.SetCurveBrakeActive(i, false)
		return 0
	}

	if buf.CurveBrakeActive(i) {
		if buf.Velocity[i] <= r.Config.CurveMaxSpeed {
			buf.SetCurveBrakeActive(i, false)
			return 0
		}
		return math.Abs(r.Config.LinearPreBrakeDeceleration)
	}

	if r.simTimeMs-buf.LastPreBrakeCheckMs(i) < r.Config.CurvePreBrakeCheckIntervalMs {
		return 0
	}
	buf.SetLastPreBrakeCheckMs(i, r.simTimeMs)

	_, distance, found := transfer.FindDistanceToNextCurve(buf, r.Graph, i, currentEdge, buf.EdgeRatio[i])
	if !found {
		return 0
	}
	brakeDist := kinematics.BrakeDistance(buf.Velocity[i], r.Config.CurveMaxSpeed, r.Config.LinearPreBrakeDeceleration)
	if distance-brakeDist <= 0 {
		buf.SetCurveBrakeActive(i, true)
		return math.Abs(r.Config.LinearPreBrakeDeceleration)
	}
	return 0
}

// mergePreBrakeDecel implements §4.8's merge pre-braking rule: find the
// first blocking merge inside the next-edge window and brake if its wait
// point is within reach at the current speed.
func (r *Region) mergePreBrakeDecel(i int) float64 {
	buf := r.Buf
	currentEdge, ok := r.Graph.Edge(buf.CurrentEdgeIndex[i])
	if !ok || currentEdge.RailType.IsCurve() {
		return 0
	}

	distanceToWaitPoint := (1 - buf.EdgeRatio[i]) * currentEdge.Distance

	for pos := 0; pos < vehicle.NextEdgeWindowSize; pos++ {
		idx := buf.NextEdge[i][pos]
		if idx == graph.InvalidEdge {
			return 0
		}
		e, ok := r.Graph.Edge(idx)
		if !ok {
			return 0
		}
		if e.ToNodeIsMerge() && !r.Locks.CheckGrant(e.ToNode, buf.VehicleID[i]) {
			distanceToWaitPoint += e.Distance - r.Locks.WaitDistance(e.RailType.IsCurve())
			brakeDist := kinematics.BrakeDistance(buf.Velocity[i], 0, r.Config.LinearPreBrakeDeceleration)
			if distanceToWaitPoint > brakeDist {
				return 0
			}
			return math.Abs(r.Config.LinearPreBrakeDeceleration)
		}
		distanceToWaitPoint += e.Distance
	}
	return 0
}
