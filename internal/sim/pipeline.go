// Package sim implements the movement update pipeline (C7/C8): edge
// transition, the four-phase per-tick loop, and curve/merge pre-braking,
// tying together the edge graph, the packed vehicle buffer, the lock
// manager and the transfer manager into one region's deterministic,
// single-threaded simulation step (§4.5, §4.7-4.11, §5).
package sim

import (
	"github.com/railwright/amhs-core/internal/graph"
	"github.com/railwright/amhs-core/internal/kinematics"
	"github.com/railwright/amhs-core/internal/lockmgr"
	"github.com/railwright/amhs-core/internal/transfer"
	"github.com/railwright/amhs-core/internal/vehicle"
)

// TuningConfig holds the kinematic and pre-braking parameters the pipeline
// reads every tick (§6's configuration surface, narrowed to what the
// physics phase actually consumes).
type TuningConfig struct {
	LinearMaxSpeed               float64
	CurveMaxSpeed                float64
	Acceleration                 float64
	CurveAcceleration            float64
	LinearPreBrakeDeceleration   float64
	CurvePreBrakeCheckIntervalMs int64
	VehicleZOffset               float64
}

// SensorPointUpdater receives each vehicle's post-transition sensor preset
// and pose, for an external sensor-geometry helper to project physical
// sensor points from (optional — a nil updater is skipped).
type SensorPointUpdater interface {
	UpdateSensorPoints(i int, preset vehicle.SensorPreset, x, y, rotation float64)
}

// Region owns one simulation region's full state: its graph, vehicle
// buffer, lock manager and transfer manager. One worker drives one Region
// per tick, in ascending vehicle-index order, with no intra-tick
// parallelism (§5).
type Region struct {
	Graph    *graph.Graph
	Buf      *vehicle.Buffer
	Locks    *lockmgr.Manager
	Transfer *transfer.Manager
	Sensors  SensorReader
	Points   SensorPointUpdater
	Config   TuningConfig
	Callbacks Callbacks

	simTimeMs int64
}

// NewRegion constructs a Region. sensors and points may be nil; a nil
// SensorReader behaves as NoSensors.
func NewRegion(g *graph.Graph, buf *vehicle.Buffer, locks *lockmgr.Manager, xfer *transfer.Manager, sensors SensorReader, points SensorPointUpdater, cfg TuningConfig) *Region {
	if sensors == nil {
		sensors = NoSensors{}
	}
	return &Region{
		Graph:    g,
		Buf:      buf,
		Locks:    locks,
		Transfer: xfer,
		Sensors:  sensors,
		Points:   points,
		Config:   cfg,
	}
}

// SimTimeMs returns the region's current simulation clock, in milliseconds.
func (r *Region) SimTimeMs() int64 { return r.simTimeMs }

// SetSimTimeMs sets the region's simulation clock explicitly, e.g. when
// resuming a run from a recorded checkpoint.
func (r *Region) SetSimTimeMs(ms int64) { r.simTimeMs = ms }

// ResetLockManager clears all merge-lock grant/request state, as if the
// region's lock manager had just been constructed.
func (r *Region) ResetLockManager() { r.Locks.Reset() }

// SetTransferMode switches how vehicles' paths are replenished.
func (r *Region) SetTransferMode(mode transfer.Mode) { r.Transfer.SetMode(mode) }

// Step runs the movement update pipeline once for dt seconds, advancing the
// region's simulation clock and every active vehicle's state in ascending
// index order (§4.7).
func (r *Region) Step(dt float64) {
	r.simTimeMs += int64(dt * 1000)

	r.Transfer.ProcessTransferQueue(r.Buf, r.Graph, r.Locks)

	for i := 0; i < r.Buf.Len(); i++ {
		switch r.Buf.MovingStatus[i] {
		case vehicle.Paused:
			continue
		case vehicle.Moving:
			// proceeds below
		default:
			r.Buf.Velocity[i] = 0
			continue
		}

		rawNewRatio := r.physicsPhase(i, dt)
		r.transitionPhase(i, rawNewRatio)
		r.positionPhase(i)
	}
}

// transitionPhase implements §4.9.
func (r *Region) transitionPhase(i int, rawNewRatio float64) {
	buf := r.Buf

	if rawNewRatio >= 0 && buf.NextEdgeState[i] == vehicle.Empty {
		buf.NextEdgeState[i] = vehicle.Pending
		r.Transfer.EnqueueVehicleTransfer(i)
	}

	gateOpen := rawNewRatio >= 1 && (buf.TargetRatio[i] == 1 || buf.NextEdgeState[i] == vehicle.Ready)
	entryEdgeIdx := buf.CurrentEdgeIndex[i]

	if gateOpen {
		buf.EdgeRatio[i] = rawNewRatio
		preserve := r.Transfer.Mode() == transfer.MQTTControl
		nextTarget, hasNext := r.Transfer.ConsumeNextEdgeReservation(i)
		performEdgeTransition(buf, r.Graph, r.Locks, r.Transfer, i, preserve, nextTarget, hasNext, &r.Callbacks, r.simTimeMs)
	} else if rawNewRatio >= buf.TargetRatio[i] {
		buf.EdgeRatio[i] = buf.TargetRatio[i]
		buf.Velocity[i] = 0
		buf.MovingStatus[i] = vehicle.Stopped
	} else {
		buf.EdgeRatio[i] = rawNewRatio
	}

	if buf.CurrentEdgeIndex[i] != entryEdgeIdx {
		if entryEdge, ok := r.Graph.Edge(entryEdgeIdx); ok && entryEdge.ToNodeIsMerge() {
			r.Locks.ReleaseLock(entryEdge.ToNode, buf.VehicleID[i])
		}
	}
}

// positionPhase implements §4.10.
func (r *Region) positionPhase(i int) {
	buf := r.Buf
	edge, ok := r.Graph.Edge(buf.CurrentEdgeIndex[i])
	if !ok {
		return
	}

	ratio := buf.EdgeRatio[i]
	x, y, z, rot := kinematics.Interpolate(edge, ratio, r.Config.VehicleZOffset)

	if waitRatio, wait := r.evaluateMergeWait(i, edge, ratio); wait {
		ratio = waitRatio
		buf.EdgeRatio[i] = ratio
		buf.Velocity[i] = 0
		x, y, z, rot = kinematics.Interpolate(edge, ratio, r.Config.VehicleZOffset)
	}

	buf.X[i], buf.Y[i], buf.Z[i], buf.Rotation[i] = x, y, z, rot

	if r.Points != nil {
		r.Points.UpdateSensorPoints(i, buf.PresetIdx[i], x, y, rot)
	}
}
