// Package kinematics implements the kinematic primitives (C4) and the
// position interpolator (C3): pure, allocation-free functions of scalar
// inputs, ported from the teacher's MotionModel/ConstantAcceleration pair
// but reshaped per §4.2 into free functions of an explicit speed-limit
// pair rather than a per-vehicle pluggable model — this simulation applies
// one shared kinematic law (config-driven max speeds) to every vehicle,
// rather than letting each vehicle carry its own traction model.
package kinematics

import "math"

// NegInfDecel signals "apply full emergency braking", per §4.2's
// `d == -∞` case: next_speed immediately returns 0 regardless of dt.
var NegInfDecel = math.Inf(-1)

// MaxSpeed returns the configured speed ceiling for a rail type: LINEAR
// uses linearMaxSpeed, any curve uses curveMaxSpeed.
func MaxSpeed(isCurve bool, linearMaxSpeed, curveMaxSpeed float64) float64 {
	if isCurve {
		return curveMaxSpeed
	}
	return linearMaxSpeed
}

// NextSpeed computes the velocity after one timestep under the given
// acceleration/deceleration, clamped to [0, max speed for railType] (§4.2).
//
// d == -Inf is the emergency-stop sentinel and returns 0 outright. If d < 0
// it is applied (braking); otherwise a is applied (traction).
func NextSpeed(v, a, d float64, isCurve bool, dt, linearMaxSpeed, curveMaxSpeed float64) float64 {
	if math.IsInf(d, -1) {
		return 0
	}
	var next float64
	if d < 0 {
		next = v + d*dt
	} else {
		next = v + a*dt
	}
	if next < 0 {
		next = 0
	}
	max := MaxSpeed(isCurve, linearMaxSpeed, curveMaxSpeed)
	if next > max {
		next = max
	}
	return next
}

// BrakeDistance returns the distance needed to go from vFrom to vTo under
// constant deceleration decel, a signed value that is negative while
// braking. Returns 0 if decel >= 0 (no braking applied).
func BrakeDistance(vFrom, vTo, decel float64) float64 {
	if decel >= 0 {
		return 0
	}
	decel = math.Abs(decel)
	d := (vFrom*vFrom - vTo*vTo) / (2 * decel)
	if d < 0 {
		return 0
	}
	return d
}

// MaxSpeedForDistance returns the highest speed from which a vehicle can
// still decelerate to vTarget within dist metres under decel — the inverse
// of BrakeDistance, used for the round-trip law in §8.
func MaxSpeedForDistance(vTarget, dist, decel float64) float64 {
	decel = math.Abs(decel)
	v2 := vTarget*vTarget + 2*decel*dist
	if v2 < 0 {
		v2 = 0
	}
	return math.Sqrt(v2)
}
