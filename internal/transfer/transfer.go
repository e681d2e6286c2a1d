// Package transfer implements the transfer / path manager (C6, §4.4): it
// keeps each vehicle's next-edge look-ahead window filled from its path
// buffer, replenishes that path under LOOP/RANDOM modes, answers curve
// look-ahead queries for pre-braking (§4.8), and tracks externally-reserved
// target ratios for MQTT_CONTROL.
package transfer

import (
	"math/rand"

	"github.com/railwright/amhs-core/internal/graph"
	"github.com/railwright/amhs-core/internal/lockmgr"
	"github.com/railwright/amhs-core/internal/vehicle"
)

// Mode selects how a vehicle's path buffer is replenished once it runs low.
type Mode int

const (
	Loop Mode = iota
	Random
	MQTTControl
	AutoRoute
)

func ParseMode(s string) Mode {
	switch s {
	case "RANDOM":
		return Random
	case "MQTT_CONTROL":
		return MQTTControl
	case "AUTO_ROUTE":
		return AutoRoute
	default:
		return Loop
	}
}

func (m Mode) String() string {
	switch m {
	case Random:
		return "RANDOM"
	case MQTTControl:
		return "MQTT_CONTROL"
	case AutoRoute:
		return "AUTO_ROUTE"
	default:
		return "LOOP"
	}
}

// Manager owns one region's transfer-queue, path-replenishment and
// next-edge reservation state. It is not safe for concurrent use — the pipeline
// drives it single-threaded per tick (§5).
type Manager struct {
	mode Mode

	// loops holds each vehicle's cyclic route, by vehicle ID, consulted
	// only in LOOP mode.
	loops map[string][]graph.EdgeIndex

	rng *rand.Rand

	pending      []int
	pendingSet   map[int]bool
	reservations map[int]float64
}

// NewManager constructs a transfer manager. rng must be non-nil only when
// mode is Random; a seeded source is the caller's responsibility so runs
// stay reproducible (§5's determinism invariant).
func NewManager(mode Mode, loops map[string][]graph.EdgeIndex, rng *rand.Rand) *Manager {
	return &Manager{
		mode:         mode,
		loops:        loops,
		rng:          rng,
		pendingSet:   make(map[int]bool),
		reservations: make(map[int]float64),
	}
}

// Mode returns the configured transfer mode.
func (m *Manager) Mode() Mode { return m.mode }

// SetMode switches the transfer mode, e.g. via a host control command.
func (m *Manager) SetMode(mode Mode) { m.mode = mode }

// EnqueueVehicleTransfer marks vehicle i as needing its next-edge window
// refilled. Idempotent: enqueueing an already-pending vehicle is a no-op.
func (m *Manager) EnqueueVehicleTransfer(i int) {
	if m.pendingSet[i] {
		return
	}
	m.pendingSet[i] = true
	m.pending = append(m.pending, i)
}

// ProcessTransferQueue drains the pending queue in FIFO order, replenishing
// each vehicle's path (LOOP/RANDOM modes only) and refilling its next-edge
// window subject to the merge-aware stop rule of §4.5 step 9b.
func (m *Manager) ProcessTransferQueue(buf *vehicle.Buffer, g *graph.Graph, lockMgr *lockmgr.Manager) {
	for _, i := range m.pending {
		m.replenishPath(buf, g, i)
		m.RefillWindow(buf, g, lockMgr, i)
		delete(m.pendingSet, i)
	}
	m.pending = m.pending[:0]
}

func (m *Manager) replenishPath(buf *vehicle.Buffer, g *graph.Graph, i int) {
	switch m.mode {
	case Loop:
		m.replenishLoop(buf, i)
	case Random:
		m.replenishRandom(buf, g, i)
	default:
		// MQTT_CONTROL and AUTO_ROUTE paths are supplied externally; the
		// transfer manager never invents edges for them.
	}
}

func (m *Manager) replenishLoop(buf *vehicle.Buffer, i int) {
	route := m.loops[buf.VehicleID[i]]
	if len(route) == 0 {
		return
	}
	for buf.PathLength(i) < vehicle.NextEdgeWindowSize {
		if buf.AppendPath(i, route...) == 0 {
			return
		}
	}
}

func (m *Manager) replenishRandom(buf *vehicle.Buffer, g *graph.Graph, i int) {
	if m.rng == nil {
		return
	}
	for buf.PathLength(i) < vehicle.NextEdgeWindowSize {
		fromNode, ok := m.tailNode(buf, g, i)
		if !ok {
			return
		}
		choices := g.EdgesFrom(fromNode)
		if len(choices) == 0 {
			return
		}
		pick := choices[m.rng.Intn(len(choices))]
		if buf.AppendPath(i, pick) == 0 {
			return
		}
	}
}

// tailNode returns the node a replenished path should continue from: the
// ToNode of the last edge already queued, or of the vehicle's current edge
// if the path buffer is empty.
func (m *Manager) tailNode(buf *vehicle.Buffer, g *graph.Graph, i int) (graph.NodeID, bool) {
	if n := buf.PathLength(i); n > 0 {
		lastIdx, ok := buf.PathAt(i, n-1)
		if !ok {
			return "", false
		}
		e, ok := g.Edge(lastIdx)
		if !ok {
			return "", false
		}
		return e.ToNode, true
	}
	e, ok := g.Edge(buf.CurrentEdgeIndex[i])
	if !ok {
		return "", false
	}
	return e.ToNode, true
}

// RefillWindow populates next_edge[0..4] from the path buffer's head,
// stopping early once it writes a curve edge whose to_node is a merge the
// vehicle does not yet hold a grant for — the window must never reach past
// an un-granted merge (§4.5 step 9b).
func (m *Manager) RefillWindow(buf *vehicle.Buffer, g *graph.Graph, lockMgr *lockmgr.Manager, i int) {
	buf.ClearNextEdgeWindow(i)
	for pos := 0; pos < vehicle.NextEdgeWindowSize; pos++ {
		edgeIdx, ok := buf.PathAt(i, pos)
		if !ok {
			break
		}
		buf.NextEdge[i][pos] = edgeIdx

		edge, ok := g.Edge(edgeIdx)
		if ok && edge.RailType.IsCurve() && edge.ToNodeIsMerge() && !lockMgr.CheckGrant(edge.ToNode, buf.VehicleID[i]) {
			break
		}
	}
	if buf.NextEdge[i][0] == graph.InvalidEdge {
		buf.NextEdgeState[i] = vehicle.Empty
	} else {
		buf.NextEdgeState[i] = vehicle.Ready
	}
}

// ConsumeNextEdgeReservation returns and clears a target ratio reserved by
// an upstream command for vehicle i's upcoming edge transition, used by
// MQTT_CONTROL to apply partial traversal after the transition lands.
func (m *Manager) ConsumeNextEdgeReservation(i int) (float64, bool) {
	ratio, ok := m.reservations[i]
	if ok {
		delete(m.reservations, i)
	}
	return ratio, ok
}

// ReserveNextEdgeTarget records a target ratio to apply after vehicle i's
// next edge transition; the host control surface calls this to drive
// partial traversal under MQTT_CONTROL.
func (m *Manager) ReserveNextEdgeTarget(i int, ratio float64) {
	m.reservations[i] = ratio
}

// FindDistanceToNextCurve scans vehicle i's remaining path forward from its
// current edge, accumulating distance, until a non-LINEAR edge is found
// (§4.4, feeds curve pre-braking in §4.8). Assumes the caller already knows
// the current edge is LINEAR.
func FindDistanceToNextCurve(buf *vehicle.Buffer, g *graph.Graph, i int, currentEdge graph.Edge, currentRatio float64) (graph.EdgeIndex, float64, bool) {
	remaining := (1 - currentRatio) * currentEdge.Distance

	for pos := 0; pos < buf.PathLength(i); pos++ {
		nextIdx, ok := buf.PathAt(i, pos)
		if !ok {
			break
		}
		next, ok := g.Edge(nextIdx)
		if !ok {
			continue
		}
		if next.RailType.IsCurve() {
			return nextIdx, remaining, true
		}
		remaining += next.Distance
	}
	return graph.InvalidEdge, 0, false
}

// CurveBrakeActive, SetCurveBrakeActive and ClearCurveBrakeState expose
// §4.4's get/set/clear_curve_brake_state against the vehicle buffer's side
// arrays directly — the state is columnar and lives with the rest of the
// vehicle's packed data, not inside the transfer manager itself.
func CurveBrakeActive(buf *vehicle.Buffer, i int) bool { return buf.CurveBrakeActive(i) }

func SetCurveBrakeActive(buf *vehicle.Buffer, i int) { buf.SetCurveBrakeActive(i, true) }

func ClearCurveBrakeState(buf *vehicle.Buffer, i int) { buf.SetCurveBrakeActive(i, false) }

// OnEdgeTransition advances vehicle i's path cursor after an edge
// transition has moved it onto the next edge of its path, so the next
// refill sees a shorter remaining path (§4.4, §4.5 step 9a).
func (m *Manager) OnEdgeTransition(buf *vehicle.Buffer, i int) {
	buf.ShiftPathLeft(i)
}
