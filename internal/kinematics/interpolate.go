package kinematics

import (
	"math"

	"github.com/railwright/amhs-core/internal/graph"
)

// minStableSegmentLenSq is the squared-length threshold below which a curve
// segment is considered too short to derive a stable tangent from, per
// §4.1's stabilization rule.
const minStableSegmentLenSq = 0.01

// Interpolate maps (edge, ratio) to a world position and rotation (C3,
// §4.1). Rendering points are 2D, so the returned z is always defaultZ.
func Interpolate(edge graph.Edge, ratio float64, defaultZ float64) (x, y, z, rotationDeg float64) {
	pts := edge.RenderingPoints
	if len(pts) == 0 {
		return 0, 0, defaultZ, edge.AxisRotation()
	}

	if !edge.RailType.IsCurve() {
		return interpolateLinear(pts, ratio, defaultZ, edge.AxisRotation())
	}
	return interpolateCurve(pts, ratio, defaultZ)
}

func interpolateLinear(pts []graph.Point, ratio, z, rotation float64) (float64, float64, float64, float64) {
	first := pts[0]
	last := pts[len(pts)-1]
	x := first.X + (last.X-first.X)*ratio
	y := first.Y + (last.Y-first.Y)*ratio
	return x, y, z, rotation
}

func interpolateCurve(pts []graph.Point, ratio, z float64) (float64, float64, float64, float64) {
	ratio = clamp01(ratio)
	n := len(pts)
	if n == 1 {
		return pts[0].X, pts[0].Y, z, 0
	}

	// Project ratio onto the polyline: which segment, and how far along it.
	segCount := n - 1
	scaled := ratio * float64(segCount)
	segIdx := int(math.Floor(scaled))
	if segIdx >= segCount {
		segIdx = segCount - 1
	}
	localT := scaled - float64(segIdx)

	a := pts[segIdx]
	b := pts[segIdx+1]
	x := a.X + (b.X-a.X)*localT
	y := a.Y + (b.Y-a.Y)*localT

	rotation := stabilizedTangentRotation(pts, segIdx)
	return x, y, z, rotation
}

// stabilizedTangentRotation computes atan2(dy, dx) over a tangent that is
// guaranteed to have squared length >= minStableSegmentLenSq, scanning
// forward then backward from segIdx when the immediate segment is too
// short (§4.1's numerical-stability rule for short curve segments).
func stabilizedTangentRotation(pts []graph.Point, segIdx int) float64 {
	n := len(pts)

	tangent := func(i, j int) (float64, float64, bool) {
		if i < 0 || j < 0 || i >= n || j >= n {
			return 0, 0, false
		}
		dx := pts[j].X - pts[i].X
		dy := pts[j].Y - pts[i].Y
		if dx*dx+dy*dy < minStableSegmentLenSq {
			return dx, dy, false
		}
		return dx, dy, true
	}

	dx, dy, ok := tangent(segIdx, segIdx+1)
	if !ok {
		// Scan forward for a farther endpoint.
		for j := segIdx + 2; j < n; j++ {
			if fdx, fdy, fok := tangent(segIdx, j); fok {
				dx, dy, ok = fdx, fdy, true
				break
			}
		}
	}
	if !ok {
		// Scan backward from the start of the segment.
		for i := segIdx - 1; i >= 0; i-- {
			if bdx, bdy, bok := tangent(i, segIdx+1); bok {
				dx, dy, ok = bdx, bdy, true
				break
			}
		}
	}
	// If every candidate tangent on the polyline is short, fall back to
	// whatever the last computed (dx, dy) was — still deterministic.

	deg := math.Atan2(dy, dx) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

func clamp01(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
