package sim

import (
	"github.com/railwright/amhs-core/internal/graph"
	"github.com/railwright/amhs-core/internal/vehicle"
)

// SelectSensorPreset chooses a vehicle's sensor preset from the geometry of
// the edge it has just entered (§4.6).
func SelectSensorPreset(edge graph.Edge) vehicle.SensorPreset {
	switch edge.RailType {
	case graph.Curve180:
		return vehicle.PresetUTurn
	case graph.LeftCurve:
		return vehicle.PresetCurveLeft
	case graph.RightCurve:
		return vehicle.PresetCurveRight
	case graph.OtherCurve:
		if edge.CurveDirection == graph.DirLeft {
			return vehicle.PresetCurveLeft
		}
		if edge.CurveDirection == graph.DirRight {
			return vehicle.PresetCurveRight
		}
		return vehicle.PresetStraight
	default:
		return vehicle.PresetStraight
	}
}

// SensorReader supplies this tick's raw proximity reading per vehicle — an
// external obstacle-detection system (lidar/camera) in a live deployment,
// or pre-recorded per-tick readings during a JSON-driven replay. Index i
// corresponds to the vehicle buffer row.
type SensorReader interface {
	ReadRaw(i int) vehicle.HitZone
}

// NoSensors is a SensorReader that never reports an obstacle, used when a
// run carries no sensor track.
type NoSensors struct{}

func (NoSensors) ReadRaw(int) vehicle.HitZone { return vehicle.HitZoneNone }
