// Package engine wires the movement simulation core (graph, vehicle
// buffer, lock manager, transfer manager, sim.Region) into the batch JSON
// bridge CLI/WASM builds use when they can't embed the core as a live
// host: a SimulationInput in, a SimulationLog out, driving sim.Region.Step
// in a loop for the requested run time.
package engine

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/railwright/amhs-core/internal/graph"
	"github.com/railwright/amhs-core/internal/lockmgr"
	"github.com/railwright/amhs-core/internal/sim"
	"github.com/railwright/amhs-core/internal/transfer"
	"github.com/railwright/amhs-core/internal/vehicle"
)

const defaultMaxPathLength = 64

// NewSimulation constructs a Simulation from a SimulationInput: it builds
// the graph, validates the config, places every vehicle, and assembles one
// sim.Region to drive them.
func NewSimulation(input SimulationInput) (*Simulation, error) {
	if err := input.Config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	g, err := graph.NewGraph(input.GraphData)
	if err != nil {
		return nil, fmt.Errorf("building graph: %w", err)
	}

	maxPathLength := defaultMaxPathLength
	for _, v := range input.VehicleList {
		if v.MaxPathLength > maxPathLength {
			maxPathLength = v.MaxPathLength
		}
	}

	buf := vehicle.NewBuffer(len(input.VehicleList), maxPathLength)
	loops := make(map[string][]graph.EdgeIndex, len(input.VehicleList))

	for i, v := range input.VehicleList {
		initialIdx, ok := g.IndexByName(v.InitialEdge)
		if !ok {
			return nil, fmt.Errorf("vehicle %q: unknown initial_edge %q", v.VehicleID, v.InitialEdge)
		}

		var destIdx graph.EdgeIndex
		if v.Destination != "" {
			destIdx, ok = g.IndexByName(v.Destination)
			if !ok {
				return nil, fmt.Errorf("vehicle %q: unknown destination_edge %q", v.VehicleID, v.Destination)
			}
		}

		path, err := resolveEdgeNames(g, v.Path)
		if err != nil {
			return nil, fmt.Errorf("vehicle %q: path: %w", v.VehicleID, err)
		}

		if err := buf.SetInitial(i, v.VehicleID, initialIdx, destIdx, path); err != nil {
			return nil, fmt.Errorf("vehicle %q: %w", v.VehicleID, err)
		}

		if len(v.TransferLoop) > 0 {
			loop, err := resolveEdgeNames(g, v.TransferLoop)
			if err != nil {
				return nil, fmt.Errorf("vehicle %q: transfer_loop: %w", v.VehicleID, err)
			}
			loops[v.VehicleID] = loop
		}
	}

	mode := parseTransferModeWithLoops(input.Meta.TransferMode)
	var rng *rand.Rand
	if mode == transfer.Random {
		seed := input.Meta.RandomSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}

	locks := lockmgr.NewManager(input.Config.LockConfig(), mergeNodeNames(g, input.GraphData))
	xfer := transfer.NewManager(mode, loops, rng)
	region := sim.NewRegion(g, buf, locks, xfer, nil, nil, input.Config.TuningConfig())

	meta := input.Meta
	if meta.RunID == uuid.Nil {
		meta.RunID = uuid.New()
	}

	return &Simulation{
		meta:     meta,
		graph:    g,
		buf:      buf,
		locks:    locks,
		transfer: xfer,
		region:   region,
	}, nil
}

func resolveEdgeNames(g *graph.Graph, names []string) ([]graph.EdgeIndex, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]graph.EdgeIndex, len(names))
	for i, name := range names {
		idx, ok := g.IndexByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown edge %q", name)
		}
		out[i] = idx
	}
	return out, nil
}

func parseTransferModeWithLoops(s string) transfer.Mode {
	if s == "" {
		return transfer.Loop
	}
	return transfer.ParseMode(s)
}

// Run drives the simulation for meta.RunTime / meta.TimeStep ticks and
// returns the complete per-tick log.
func (s *Simulation) Run() SimulationLog {
	return s.run(nil)
}

// tickObserver receives each tick's wall-clock duration and a chance to
// sample region state once the tick has landed. internal/metrics.Collector
// satisfies this via RunInstrumented.
type tickObserver interface {
	ObserveTick(seconds float64)
	SetActiveVehicles(n int)
	SampleLockManager(locks *lockmgr.Manager)
}

// RunInstrumented behaves like Run but reports every tick's wall-clock
// duration and post-tick region state (active vehicle count, lock-manager
// queue depth) through mc. Pass a nil mc to fall back to plain Run.
func (s *Simulation) RunInstrumented(mc tickObserver) SimulationLog {
	return s.run(mc)
}

func (s *Simulation) run(mc tickObserver) SimulationLog {
	log := SimulationLog{Meta: s.meta}
	steps := int(s.meta.RunTime/s.meta.TimeStep + 0.5)
	for i := 0; i <= steps; i++ {
		if i > 0 {
			start := time.Now()
			s.region.Step(s.meta.TimeStep)
			if mc != nil {
				mc.ObserveTick(time.Since(start).Seconds())
			}
		}
		if mc != nil {
			mc.SetActiveVehicles(s.countMoving())
			mc.SampleLockManager(s.locks)
		}
		log.Output = append(log.Output, s.snapshot(float64(i)*s.meta.TimeStep))
	}
	return log
}

func (s *Simulation) countMoving() int {
	n := 0
	for i := 0; i < s.buf.Len(); i++ {
		if s.buf.MovingStatus[i] == vehicle.Moving {
			n++
		}
	}
	return n
}

func (s *Simulation) snapshot(timestamp float64) SimulationLogRow {
	row := SimulationLogRow{
		Timestamp:   timestamp,
		VehicleLogs: make([]VehicleLog, s.buf.Len()),
	}
	for i := 0; i < s.buf.Len(); i++ {
		edgeName := ""
		if e, ok := s.graph.Edge(s.buf.CurrentEdgeIndex[i]); ok {
			edgeName = e.Name
		}
		row.VehicleLogs[i] = VehicleLog{
			VehicleID:    s.buf.VehicleID[i],
			EdgeName:     edgeName,
			EdgeRatio:    s.buf.EdgeRatio[i],
			X:            s.buf.X[i],
			Y:            s.buf.Y[i],
			Z:            s.buf.Z[i],
			Rotation:     s.buf.Rotation[i],
			Velocity:     s.buf.Velocity[i],
			MovingStatus: movingStatusString(s.buf.MovingStatus[i]),
			TrafficState: trafficStateString(s.buf.TrafficState[i]),
			StopReason:   uint32(s.buf.StopReason[i]),
		}
	}
	return row
}

// RunJSON is the primary entry point for the CLI and WASM builds: it
// accepts a JSON-encoded SimulationInput, runs the simulation, and returns
// a JSON-encoded SimulationLog (§6 [FULL]).
func RunJSON(jsonInput string) (string, error) {
	var input SimulationInput
	if err := json.Unmarshal([]byte(jsonInput), &input); err != nil {
		return "", fmt.Errorf("invalid input JSON: %w", err)
	}

	s, err := NewSimulation(input)
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(s.Run())
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}
