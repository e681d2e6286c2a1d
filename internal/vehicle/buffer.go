package vehicle

import (
	"fmt"

	"github.com/railwright/amhs-core/internal/graph"
)

// Buffer is the packed, pre-sized columnar state for N vehicles (§3, §9).
// All slices are allocated once in NewBuffer and never grow; the hot-path
// pipeline (internal/sim) only ever writes into existing cells.
//
// Column groups mirror §3's MovementData / SensorData / LogicData split so
// the layout is a stable contract an external renderer can share.
type Buffer struct {
	n             int
	maxPathLength int

	// MovementData
	MovingStatus     []MovingStatus
	Velocity         []float64
	Acceleration     []float64
	Deceleration     []float64 // signed, <= 0 while braking
	CurrentEdgeIndex []graph.EdgeIndex
	EdgeRatio        []float64
	TargetRatio      []float64
	X, Y, Z          []float64
	Rotation         []float64
	NextEdgeState    []NextEdgeState
	NextEdge         [][NextEdgeWindowSize]graph.EdgeIndex

	// SensorData
	PresetIdx       []SensorPreset
	HitZone         []HitZone
	CollisionTarget []int

	// LogicData
	TrafficState    []TrafficState
	StopReason      []StopReason
	DestinationEdge []graph.EdgeIndex
	PathRemaining   []int

	// Path buffers: fixed capacity maxPathLength per vehicle, header is
	// PathLen[i]; PathBuf[i][0:PathLen[i]] holds 1-based edge indices in
	// traversal order (§3 Path buffer).
	PathLen []int
	PathBuf [][]graph.EdgeIndex

	// VehicleID is a side table for event/host correlation. It sits outside
	// the numeric hot-path columns but is sized once here like the rest of
	// the buffer (§3 "[FULL] Supplemental fields").
	VehicleID []string

	// curveBrakeActive and lastPreBrakeMs back C6's curve-braking
	// state (§4.4 get/set/clear_curve_brake_state): whether a vehicle is
	// currently pre-braking for a curve, and when it was last evaluated.
	curveBrakeActive []bool
	lastPreBrakeMs   []int64
}

// NewBuffer pre-allocates a packed buffer for n vehicles, each with a path
// buffer of capacity maxPathLength.
func NewBuffer(n, maxPathLength int) *Buffer {
	if maxPathLength <= 0 {
		maxPathLength = 64
	}
	b := &Buffer{
		n:             n,
		maxPathLength: maxPathLength,

		MovingStatus:     make([]MovingStatus, n),
		Velocity:         make([]float64, n),
		Acceleration:     make([]float64, n),
		Deceleration:     make([]float64, n),
		CurrentEdgeIndex: make([]graph.EdgeIndex, n),
		EdgeRatio:        make([]float64, n),
		TargetRatio:      make([]float64, n),
		X:                make([]float64, n),
		Y:                make([]float64, n),
		Z:                make([]float64, n),
		Rotation:         make([]float64, n),
		NextEdgeState:    make([]NextEdgeState, n),
		NextEdge:         make([][NextEdgeWindowSize]graph.EdgeIndex, n),

		PresetIdx:       make([]SensorPreset, n),
		HitZone:         make([]HitZone, n),
		CollisionTarget: make([]int, n),

		TrafficState:    make([]TrafficState, n),
		StopReason:      make([]StopReason, n),
		DestinationEdge: make([]graph.EdgeIndex, n),
		PathRemaining:   make([]int, n),

		PathLen: make([]int, n),
		PathBuf: make([][]graph.EdgeIndex, n),

		VehicleID: make([]string, n),

		curveBrakeActive: make([]bool, n),
		lastPreBrakeMs:   make([]int64, n),
	}
	for i := range b.PathBuf {
		b.PathBuf[i] = make([]graph.EdgeIndex, maxPathLength)
	}
	for i := range b.HitZone {
		b.HitZone[i] = HitZoneNone
	}
	return b
}

// Len returns the number of vehicles the buffer holds.
func (b *Buffer) Len() int { return b.n }

// MaxPathLength returns the fixed per-vehicle path buffer capacity.
func (b *Buffer) MaxPathLength() int { return b.maxPathLength }

// SetInitial places vehicle i on edgeIdx at ratio 0, in MOVING status, with
// the given destination and initial path. Used by the host at setup; not
// part of the hot per-tick path.
func (b *Buffer) SetInitial(i int, vehicleID string, edgeIdx graph.EdgeIndex, destination graph.EdgeIndex, path []graph.EdgeIndex) error {
	if i < 0 || i >= b.n {
		return fmt.Errorf("vehicle index %d out of range [0,%d)", i, b.n)
	}
	if len(path) > b.maxPathLength {
		return fmt.Errorf("vehicle %d: path length %d exceeds buffer capacity %d", i, len(path), b.maxPathLength)
	}
	b.VehicleID[i] = vehicleID
	b.MovingStatus[i] = Moving
	b.CurrentEdgeIndex[i] = edgeIdx
	b.EdgeRatio[i] = 0
	b.TargetRatio[i] = 1
	b.DestinationEdge[i] = destination
	b.NextEdgeState[i] = Empty
	b.TrafficState[i] = Free
	b.StopReason[i] = ReasonNotInitialized
	b.HitZone[i] = HitZoneNone

	n := copy(b.PathBuf[i], path)
	b.PathLen[i] = n
	b.PathRemaining[i] = n
	return nil
}

// CurveBrakeActive reports whether vehicle i is mid curve-pre-brake.
func (b *Buffer) CurveBrakeActive(i int) bool { return b.curveBrakeActive[i] }

// SetCurveBrakeActive sets vehicle i's curve-pre-brake flag.
func (b *Buffer) SetCurveBrakeActive(i int, active bool) { b.curveBrakeActive[i] = active }

// LastPreBrakeCheckMs returns the simulation time (ms) vehicle i's curve
// look-ahead was last evaluated.
func (b *Buffer) LastPreBrakeCheckMs(i int) int64 { return b.lastPreBrakeMs[i] }

// SetLastPreBrakeCheckMs records the simulation time (ms) of the most recent
// curve look-ahead evaluation for vehicle i.
func (b *Buffer) SetLastPreBrakeCheckMs(i int, ms int64) { b.lastPreBrakeMs[i] = ms }
