// Package vehicle implements the packed vehicle state buffer (C2): struct-
// of-slices numeric columns for N vehicles, addressed by index rather than
// pointer, so the hot per-tick pipeline never allocates and the whole block
// can be shared as a wire format with an external renderer (§5, §9).
package vehicle

// MovingStatus is the top-level motion gate a vehicle is in.
type MovingStatus int8

const (
	Moving MovingStatus = iota
	Paused
	Stopped
)

// TrafficState tracks a vehicle's relationship to a merge-node lock.
type TrafficState int8

const (
	Free TrafficState = iota
	Waiting
	Acquired
)

// NextEdgeState describes whether the next-edge look-ahead window has been
// populated by the transfer manager.
type NextEdgeState int8

const (
	Empty NextEdgeState = iota
	Pending
	Ready
)

// HitZone is the sensor-reported obstacle proximity band. -1 means no
// signal.
type HitZone int8

const (
	HitZoneNone     HitZone = -1
	HitZoneApproach HitZone = 0
	HitZoneBrake    HitZone = 1
	HitZoneStop     HitZone = 2
)

// StopReason is a bitmask of why a vehicle is not proceeding normally.
type StopReason uint32

const (
	ReasonObsLidar          StopReason = 1 << iota
	ReasonObsCamera
	ReasonEStop
	ReasonLocked
	ReasonDestinationReached
	ReasonPathBlocked
	ReasonLoadOn
	ReasonLoadOff
	ReasonNotInitialized
	ReasonIndividualControl
	ReasonSensored
)

// Has reports whether all bits in flags are set.
func (s StopReason) Has(flags StopReason) bool { return s&flags == flags }

// With returns s with flags set.
func (s StopReason) With(flags StopReason) StopReason { return s | flags }

// Without returns s with flags cleared.
func (s StopReason) Without(flags StopReason) StopReason { return s &^ flags }

// SensorPreset is the geometry-driven preset selected after an edge
// transition (§4.6), consumed by an external sensor-point helper.
type SensorPreset int8

const (
	PresetStraight SensorPreset = iota
	PresetCurveLeft
	PresetCurveRight
	PresetUTurn
)

// NextEdgeWindowSize is the fixed look-ahead window of upcoming edge
// indices maintained per vehicle.
const NextEdgeWindowSize = 5
