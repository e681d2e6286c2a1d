// Package config defines the simulation's tuning surface (§6) and its
// setup-time validation (§4.12). A Config is loaded once, validated, and
// then handed to internal/sim and internal/lockmgr as plain value structs —
// nothing in the hot per-tick loop reads this package directly.
package config

import (
	"fmt"
	"strings"

	"github.com/railwright/amhs-core/internal/lockmgr"
	"github.com/railwright/amhs-core/internal/sim"
)

// Config mirrors §6's external configuration surface: kinematic limits,
// pre-braking parameters, and the merge-lock distance/strategy knobs.
//
// Acceleration is carried alongside CurveAcceleration even though the
// distilled spec's field list (§6) only names the latter explicitly — §4.8's
// physics phase reads a plain LINEAR acceleration too, so it belongs here as
// a first-class field rather than an undocumented zero value.
type Config struct {
	LinearMaxSpeed               float64 `mapstructure:"linear_max_speed" yaml:"linear_max_speed"`
	CurveMaxSpeed                float64 `mapstructure:"curve_max_speed" yaml:"curve_max_speed"`
	Acceleration                 float64 `mapstructure:"acceleration" yaml:"acceleration"`
	CurveAcceleration            float64 `mapstructure:"curve_acceleration" yaml:"curve_acceleration"`
	LinearPreBrakeDeceleration   float64 `mapstructure:"linear_pre_brake_deceleration" yaml:"linear_pre_brake_deceleration"`
	CurvePreBrakeCheckIntervalMs int64   `mapstructure:"curve_pre_brake_check_interval" yaml:"curve_pre_brake_check_interval"`
	VehicleZOffset               float64 `mapstructure:"vehicle_z_offset" yaml:"vehicle_z_offset"`

	WaitDistanceFromMergingStr      float64 `mapstructure:"wait_distance_from_merging_str" yaml:"wait_distance_from_merging_str"`
	WaitDistanceFromMergingCurve    float64 `mapstructure:"wait_distance_from_merging_curve" yaml:"wait_distance_from_merging_curve"`
	RequestDistanceFromMergingStr   float64 `mapstructure:"request_distance_from_merging_str" yaml:"request_distance_from_merging_str"`
	RequestDistanceFromMergingCurve float64 `mapstructure:"request_distance_from_merging_curve" yaml:"request_distance_from_merging_curve"`
	GrantStrategy                   string  `mapstructure:"grant_strategy" yaml:"grant_strategy"`
}

// ValidationError aggregates every rule Validate found broken, so a
// misconfigured fab reports all its problems at once rather than one fix
// at a time (§4.12, §7 Programmer errors).
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %d violation(s): %s", len(e.Violations), strings.Join(e.Violations, "; "))
}

// Validate checks every §4.12 rule and returns a *ValidationError wrapping
// all violations, or nil if cfg is well-formed.
func (c Config) Validate() error {
	var violations []string

	if c.LinearMaxSpeed <= 0 {
		violations = append(violations, "linear_max_speed must be > 0")
	}
	if c.CurveMaxSpeed <= 0 {
		violations = append(violations, "curve_max_speed must be > 0")
	}
	if c.LinearMaxSpeed > 0 && c.CurveMaxSpeed > c.LinearMaxSpeed {
		violations = append(violations, "curve_max_speed must be <= linear_max_speed")
	}
	switch strings.ToUpper(c.GrantStrategy) {
	case "FIFO", "BATCH":
	default:
		violations = append(violations, "grant_strategy must be FIFO or BATCH")
	}
	if c.CurvePreBrakeCheckIntervalMs != -1 && c.CurvePreBrakeCheckIntervalMs <= 0 {
		violations = append(violations, "curve_pre_brake_check_interval must be -1 or > 0")
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// TuningConfig narrows Config to the fields internal/sim.Region reads every
// tick.
func (c Config) TuningConfig() sim.TuningConfig {
	return sim.TuningConfig{
		LinearMaxSpeed:               c.LinearMaxSpeed,
		CurveMaxSpeed:                c.CurveMaxSpeed,
		Acceleration:                 c.Acceleration,
		CurveAcceleration:            c.CurveAcceleration,
		LinearPreBrakeDeceleration:   c.LinearPreBrakeDeceleration,
		CurvePreBrakeCheckIntervalMs: c.CurvePreBrakeCheckIntervalMs,
		VehicleZOffset:               c.VehicleZOffset,
	}
}

// LockConfig narrows Config to the fields internal/lockmgr.Manager needs.
func (c Config) LockConfig() lockmgr.Config {
	return lockmgr.Config{
		WaitDistanceStr:      c.WaitDistanceFromMergingStr,
		WaitDistanceCurve:    c.WaitDistanceFromMergingCurve,
		RequestDistanceStr:   c.RequestDistanceFromMergingStr,
		RequestDistanceCurve: c.RequestDistanceFromMergingCurve,
		Strategy:             lockmgr.ParseStrategy(strings.ToUpper(c.GrantStrategy)),
	}
}
