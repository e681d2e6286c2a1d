package sim_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/railwright/amhs-core/internal/graph"
	"github.com/railwright/amhs-core/internal/lockmgr"
	"github.com/railwright/amhs-core/internal/sim"
	"github.com/railwright/amhs-core/internal/transfer"
	"github.com/railwright/amhs-core/internal/vehicle"
)

func baseConfig() sim.TuningConfig {
	return sim.TuningConfig{
		LinearMaxSpeed:               10,
		CurveMaxSpeed:                3,
		Acceleration:                 0,
		CurveAcceleration:            0,
		LinearPreBrakeDeceleration:   -2,
		CurvePreBrakeCheckIntervalMs: 0,
	}
}

func edgeIdx(t *testing.T, g *graph.Graph, name string) graph.EdgeIndex {
	t.Helper()
	idx, ok := g.IndexByName(name)
	require.True(t, ok)
	return idx
}

// TestStraightAdvance is spec.md §8 scenario 1.
func TestStraightAdvance(t *testing.T) {
	g, err := graph.NewGraph(graph.GraphData{
		Edges: []graph.EdgeData{
			{EdgeName: "E1", FromNode: "N1", ToNode: "N2", Distance: 10, RailType: "LINEAR"},
		},
	})
	require.NoError(t, err)

	buf := vehicle.NewBuffer(1, 4)
	require.NoError(t, buf.SetInitial(0, "V1", edgeIdx(t, g, "E1"), 0, nil))
	buf.Velocity[0] = 2

	lm := lockmgr.NewManager(lockmgr.Config{}, nil)
	xfer := transfer.NewManager(transfer.Loop, nil, nil)
	region := sim.NewRegion(g, buf, lm, xfer, nil, nil, baseConfig())

	region.Step(0.5)
	require.InDelta(t, 0.1, buf.EdgeRatio[0], 1e-9)
	require.InDelta(t, 2.0, buf.Velocity[0], 1e-9)

	for i := 0; i < 9; i++ {
		region.Step(0.5)
	}
	require.InDelta(t, 1.0, buf.EdgeRatio[0], 1e-9)
	require.InDelta(t, 2.0, buf.Velocity[0], 1e-9)
	require.EqualValues(t, edgeIdx(t, g, "E1"), buf.CurrentEdgeIndex[0])
}

// TestSimpleTransition is spec.md §8 scenario 2.
func TestSimpleTransition(t *testing.T) {
	g, err := graph.NewGraph(graph.GraphData{
		Edges: []graph.EdgeData{
			{EdgeName: "E1", FromNode: "N1", ToNode: "N2", Distance: 5, RailType: "LINEAR"},
			{EdgeName: "E2", FromNode: "N2", ToNode: "N3", Distance: 5, RailType: "LINEAR"},
		},
	})
	require.NoError(t, err)

	buf := vehicle.NewBuffer(1, 4)
	require.NoError(t, buf.SetInitial(0, "V1", edgeIdx(t, g, "E1"), 0, nil))
	buf.EdgeRatio[0] = 1.0
	buf.Velocity[0] = 1
	buf.NextEdge[0][0] = edgeIdx(t, g, "E2")
	buf.NextEdgeState[0] = vehicle.Ready

	lm := lockmgr.NewManager(lockmgr.Config{}, nil)
	xfer := transfer.NewManager(transfer.Loop, nil, nil)
	region := sim.NewRegion(g, buf, lm, xfer, nil, nil, baseConfig())

	region.Step(0.1)

	require.EqualValues(t, edgeIdx(t, g, "E2"), buf.CurrentEdgeIndex[0])
	require.InDelta(t, 0.02, buf.EdgeRatio[0], 1e-9)
	require.InDelta(t, 1.0, buf.Velocity[0], 1e-9)
}

// TestMergeFIFO is spec.md §8 scenario 3: two vehicles converge on a
// merge; the first requester is granted, the second waits until released.
func TestMergeFIFO(t *testing.T) {
	g, err := graph.NewGraph(graph.GraphData{
		Edges: []graph.EdgeData{
			{EdgeName: "A1", FromNode: "NA", ToNode: "M", Distance: 2, RailType: "LINEAR"},
			{EdgeName: "B1", FromNode: "NB", ToNode: "M", Distance: 2, RailType: "LINEAR"},
			{EdgeName: "A2", FromNode: "M", ToNode: "NC", Distance: 5, RailType: "LINEAR"},
		},
	})
	require.NoError(t, err)

	buf := vehicle.NewBuffer(2, 4)
	require.NoError(t, buf.SetInitial(0, "A", edgeIdx(t, g, "A1"), 0, []graph.EdgeIndex{edgeIdx(t, g, "A2")}))
	require.NoError(t, buf.SetInitial(1, "B", edgeIdx(t, g, "B1"), 0, nil))
	buf.Velocity[0] = 1
	buf.Velocity[1] = 0.1 // B barely creeps so it never itself reaches the merge

	cfg := lockmgr.Config{RequestDistanceStr: -1, WaitDistanceStr: 0.1}
	lm := lockmgr.NewManager(cfg, []string{"M"})
	xfer := transfer.NewManager(transfer.Loop, nil, nil)
	region := sim.NewRegion(g, buf, lm, xfer, nil, nil, baseConfig())

	region.Step(0.1)
	require.True(t, lm.CheckGrant("M", "A"))
	require.False(t, lm.CheckGrant("M", "B"))
	require.Equal(t, vehicle.Acquired, buf.TrafficState[0])
	require.Equal(t, vehicle.Waiting, buf.TrafficState[1])

	for i := 0; i < 10 && buf.CurrentEdgeIndex[0] == edgeIdx(t, g, "A1"); i++ {
		region.Step(0.5)
	}
	require.EqualValues(t, edgeIdx(t, g, "A2"), buf.CurrentEdgeIndex[0])

	region.Step(0.1)
	require.True(t, lm.CheckGrant("M", "B"))
}

// TestCurvePreBrake is spec.md §8 scenario 4.
func TestCurvePreBrake(t *testing.T) {
	g, err := graph.NewGraph(graph.GraphData{
		Edges: []graph.EdgeData{
			{EdgeName: "L1", FromNode: "N1", ToNode: "N2", Distance: 100, RailType: "LINEAR"},
			{EdgeName: "C1", FromNode: "N2", ToNode: "N3", Distance: 5, RailType: "LEFT_CURVE",
				RenderingPoints: []graph.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}},
		},
	})
	require.NoError(t, err)

	buf := vehicle.NewBuffer(1, 4)
	require.NoError(t, buf.SetInitial(0, "V1", edgeIdx(t, g, "L1"), 0, []graph.EdgeIndex{edgeIdx(t, g, "C1")}))
	buf.Velocity[0] = 3.0
	// 4.0 m from the curve: edge is 100m, so ratio = 1 - 4/100 = 0.96.
	buf.EdgeRatio[0] = 0.96

	cfg := baseConfig()
	cfg.CurveMaxSpeed = 1.0
	cfg.LinearPreBrakeDeceleration = -2

	lm := lockmgr.NewManager(lockmgr.Config{}, nil)
	xfer := transfer.NewManager(transfer.Loop, nil, nil)
	region := sim.NewRegion(g, buf, lm, xfer, nil, nil, cfg)

	region.Step(0.01) // tiny dt: brake_distance(3,1,-2)=2.0 < 4.0, no brake yet
	require.InDelta(t, 3.0, buf.Velocity[0], 1e-6)

	// Advance the vehicle to within brake distance of the curve (1.5 m out,
	// inside the 2.0 m brake distance; ratio 0.98 would compute to slightly
	// more than 2.0 m in floating point).
	buf.EdgeRatio[0] = 0.985
	region.Step(0.01)
	require.Less(t, buf.Velocity[0], 3.0) // braking engaged
}

// TestMergeWaitPointClamp is spec.md §8 scenario 5.
func TestMergeWaitPointClamp(t *testing.T) {
	g, err := graph.NewGraph(graph.GraphData{
		Edges: []graph.EdgeData{
			{EdgeName: "A1", FromNode: "NA", ToNode: "M", Distance: 10, RailType: "LINEAR"},
			{EdgeName: "B1", FromNode: "NB", ToNode: "M", Distance: 10, RailType: "LINEAR"},
		},
	})
	require.NoError(t, err)

	buf := vehicle.NewBuffer(2, 4)
	require.NoError(t, buf.SetInitial(0, "A", edgeIdx(t, g, "A1"), 0, nil))
	require.NoError(t, buf.SetInitial(1, "B", edgeIdx(t, g, "B1"), 0, nil))
	buf.EdgeRatio[0] = 0.85
	buf.Velocity[0] = 5
	buf.Velocity[1] = 0 // B holds the grant so A must wait

	cfg := lockmgr.Config{RequestDistanceStr: -1, WaitDistanceStr: 1.0}
	lm := lockmgr.NewManager(cfg, []string{"M"})
	lm.RequestLock("M", "B1", "B", 0) // B already holds the merge

	xfer := transfer.NewManager(transfer.Loop, nil, nil)
	region := sim.NewRegion(g, buf, lm, xfer, nil, nil, baseConfig())

	region.Step(0.1)

	require.InDelta(t, 0.9, buf.EdgeRatio[0], 1e-9)
	require.Equal(t, 0.0, buf.Velocity[0])
	require.Equal(t, vehicle.Waiting, buf.TrafficState[0])
	require.True(t, buf.StopReason[0].Has(vehicle.ReasonLocked))
}

// TestUnusualMove is spec.md §8 scenario 6.
func TestUnusualMove(t *testing.T) {
	g, err := graph.NewGraph(graph.GraphData{
		Edges: []graph.EdgeData{
			{EdgeName: "E1", FromNode: "N1", ToNode: "N2", Distance: 5, RailType: "LINEAR"},
			{EdgeName: "E2", FromNode: "N9", ToNode: "N3", Distance: 5, RailType: "LINEAR"}, // disconnected
		},
	})
	require.NoError(t, err)

	buf := vehicle.NewBuffer(1, 4)
	require.NoError(t, buf.SetInitial(0, "V1", edgeIdx(t, g, "E1"), 0, nil))
	buf.EdgeRatio[0] = 1.0
	buf.Velocity[0] = 1
	buf.NextEdge[0][0] = edgeIdx(t, g, "E2")
	buf.NextEdgeState[0] = vehicle.Ready

	var events []sim.UnusualMoveEvent
	var transits []sim.EdgeTransitEvent
	lm := lockmgr.NewManager(lockmgr.Config{}, nil)
	xfer := transfer.NewManager(transfer.Loop, nil, nil)
	region := sim.NewRegion(g, buf, lm, xfer, nil, nil, baseConfig())
	region.Callbacks.OnUnusualMove = func(e sim.UnusualMoveEvent) { events = append(events, e) }
	region.Callbacks.OnEdgeTransit = func(e sim.EdgeTransitEvent) { transits = append(transits, e) }

	region.Step(0.1)

	require.Len(t, events, 1)
	require.Equal(t, "V1", events[0].VehicleID)
	require.Equal(t, "E1", events[0].PrevEdgeName)
	require.Equal(t, "N2", events[0].PrevToNode)
	require.Equal(t, "E2", events[0].NextEdgeName)
	require.Equal(t, "N9", events[0].NextFromNode)
	require.EqualValues(t, edgeIdx(t, g, "E2"), buf.CurrentEdgeIndex[0]) // transition still proceeds

	require.Len(t, transits, 1)
	require.Equal(t, "V1", transits[0].VehicleID)
	require.EqualValues(t, edgeIdx(t, g, "E1"), transits[0].FromEdgeIndex)
	require.EqualValues(t, edgeIdx(t, g, "E2"), transits[0].ToEdgeIndex)
	require.EqualValues(t, 100, transits[0].SimTimeMs) // Step(0.1) advances the clock by 100ms first
}

// TestEdgeTransitEmitsSimTime exercises on_edge_transit on an ordinary
// (non-unusual) transition, including across more than one tick, to confirm
// Region.simTimeMs is threaded through rather than left at zero (spec.md
// §6 External Interfaces: on_edge_transit(..., simulation_time_ms)).
func TestEdgeTransitEmitsSimTime(t *testing.T) {
	g, err := graph.NewGraph(graph.GraphData{
		Edges: []graph.EdgeData{
			{EdgeName: "E1", FromNode: "N1", ToNode: "N2", Distance: 5, RailType: "LINEAR"},
			{EdgeName: "E2", FromNode: "N2", ToNode: "N3", Distance: 5, RailType: "LINEAR"},
		},
	})
	require.NoError(t, err)

	buf := vehicle.NewBuffer(1, 4)
	require.NoError(t, buf.SetInitial(0, "V1", edgeIdx(t, g, "E1"), 0, nil))
	buf.EdgeRatio[0] = 1.0
	buf.Velocity[0] = 1
	buf.NextEdge[0][0] = edgeIdx(t, g, "E2")
	buf.NextEdgeState[0] = vehicle.Ready

	var transits []sim.EdgeTransitEvent
	lm := lockmgr.NewManager(lockmgr.Config{}, nil)
	xfer := transfer.NewManager(transfer.Loop, nil, nil)
	region := sim.NewRegion(g, buf, lm, xfer, nil, nil, baseConfig())
	region.Callbacks.OnEdgeTransit = func(e sim.EdgeTransitEvent) { transits = append(transits, e) }

	region.Step(0.25)
	region.Step(0.25)

	require.Len(t, transits, 1)
	require.Equal(t, "V1", transits[0].VehicleID)
	require.EqualValues(t, edgeIdx(t, g, "E1"), transits[0].FromEdgeIndex)
	require.EqualValues(t, edgeIdx(t, g, "E2"), transits[0].ToEdgeIndex)
	require.EqualValues(t, 250, transits[0].SimTimeMs) // fires on the first Step, clock already advanced
}

func TestRandomTransferModeIntegration(t *testing.T) {
	g, err := graph.NewGraph(graph.GraphData{
		Edges: []graph.EdgeData{
			{EdgeName: "A", FromNode: "N1", ToNode: "N2", Distance: 1, RailType: "LINEAR"},
			{EdgeName: "B", FromNode: "N2", ToNode: "N3", Distance: 1, RailType: "LINEAR"},
		},
	})
	require.NoError(t, err)

	buf := vehicle.NewBuffer(1, 8)
	require.NoError(t, buf.SetInitial(0, "V1", edgeIdx(t, g, "A"), 0, nil))
	buf.Velocity[0] = 5

	lm := lockmgr.NewManager(lockmgr.Config{}, nil)
	xfer := transfer.NewManager(transfer.Random, nil, rand.New(rand.NewSource(42)))
	region := sim.NewRegion(g, buf, lm, xfer, nil, nil, baseConfig())

	for i := 0; i < 5; i++ {
		region.Step(0.5)
	}
	require.Greater(t, buf.PathLength(0), -1) // drives through ProcessTransferQueue without panicking
}
