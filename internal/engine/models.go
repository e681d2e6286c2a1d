package engine

import (
	"github.com/google/uuid"

	"github.com/railwright/amhs-core/internal/config"
	"github.com/railwright/amhs-core/internal/graph"
	"github.com/railwright/amhs-core/internal/lockmgr"
	"github.com/railwright/amhs-core/internal/sim"
	"github.com/railwright/amhs-core/internal/transfer"
	"github.com/railwright/amhs-core/internal/vehicle"
)

// SimulationMeta holds the identity and timing parameters for a simulation
// run, plus the run-scoped RunID used to correlate this run's log rows and
// external events ([FULL], §1 Identifiers).
type SimulationMeta struct {
	SimulationID string    `json:"simulation_id"`
	RunID        uuid.UUID `json:"run_id"`
	RunTime      float64   `json:"run_time"`  // seconds
	TimeStep     float64   `json:"time_step"` // seconds
	TransferMode string    `json:"transfer_mode"`
	RandomSeed   int64     `json:"random_seed"` // only consulted under RANDOM transfer mode
}

// VehicleInput is the JSON-serialisable initial placement of one vehicle.
type VehicleInput struct {
	VehicleID     string   `json:"vehicle_id"`
	InitialEdge   string   `json:"initial_edge"`
	Destination   string   `json:"destination_edge"`
	Path          []string `json:"path"`
	TransferLoop  []string `json:"transfer_loop"`
	MaxPathLength int      `json:"max_path_length"`
}

// SimulationInput is the JSON-serialisable input to the engine's batch
// bridge (§6's RunJSON contract).
type SimulationInput struct {
	Meta        SimulationMeta  `json:"simulation_meta"`
	GraphData   graph.GraphData `json:"graph_data"`
	VehicleList []VehicleInput  `json:"vehicle_list"`
	Config      config.Config   `json:"config"`
}

// VehicleLog is one vehicle's observable state at a single simulation tick.
type VehicleLog struct {
	VehicleID    string  `json:"vehicle_id"`
	EdgeName     string  `json:"edge_name"`
	EdgeRatio    float64 `json:"edge_ratio"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Z            float64 `json:"z"`
	Rotation     float64 `json:"rotation"`
	Velocity     float64 `json:"velocity"`
	MovingStatus string  `json:"moving_status"`
	TrafficState string  `json:"traffic_state"`
	StopReason   uint32  `json:"stop_reason"`
}

// SimulationLogRow is the state of every vehicle at a single simulation
// timestep.
type SimulationLogRow struct {
	Timestamp   float64      `json:"timestamp"` // seconds
	VehicleLogs []VehicleLog `json:"vehicle_logs"`
}

// SimulationLog is the complete output of a simulation run.
type SimulationLog struct {
	Meta   SimulationMeta     `json:"simulation_meta"`
	Output []SimulationLogRow `json:"output"`
}

// Simulation wires together one region's graph, vehicle buffer, lock
// manager, and transfer manager behind the batch JSON bridge. A live
// embedding host talks to sim.Region directly instead; Simulation exists
// only to give the CLI/WASM build a RunJSON-shaped entry point (§6 [FULL]).
type Simulation struct {
	meta     SimulationMeta
	graph    *graph.Graph
	buf      *vehicle.Buffer
	locks    *lockmgr.Manager
	transfer *transfer.Manager
	region   *sim.Region
}

// LockManager exposes the region's merge-lock manager so a host can sample
// its queue depth and grant counts (e.g. internal/metrics.Collector)
// without reaching into the region itself.
func (s *Simulation) LockManager() *lockmgr.Manager { return s.locks }

func mergeNodeNames(g *graph.Graph, data graph.GraphData) []string {
	seen := map[string]bool{}
	var names []string
	for _, e := range data.Edges {
		if g.IsMergeNode(e.ToNode) && !seen[e.ToNode] {
			seen[e.ToNode] = true
			names = append(names, e.ToNode)
		}
	}
	return names
}

func movingStatusString(s vehicle.MovingStatus) string {
	switch s {
	case vehicle.Moving:
		return "MOVING"
	case vehicle.Paused:
		return "PAUSED"
	default:
		return "STOPPED"
	}
}

func trafficStateString(s vehicle.TrafficState) string {
	switch s {
	case vehicle.Waiting:
		return "WAITING"
	case vehicle.Acquired:
		return "ACQUIRED"
	default:
		return "FREE"
	}
}
