package geom

import "math"

// NormalizeAngle wraps an angle in radians into (-π, π].
func NormalizeAngle(angle float64) float64 {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return 0
	}
	angle = math.Mod(angle, 2*math.Pi)
	if angle > math.Pi {
		angle -= 2 * math.Pi
	} else if angle <= -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// AngleDelta returns the signed shortest rotation from one angle to another,
// normalized into (-π, π].
func AngleDelta(from, to float64) float64 {
	return NormalizeAngle(NormalizeAngle(to) - NormalizeAngle(from))
}

// LerpAngle interpolates from start toward end by t along the shorter arc.
// Crossing the ±π seam never spins the long way round.
func LerpAngle(start, end, t float64) float64 {
	return NormalizeAngle(NormalizeAngle(start) + AngleDelta(start, end)*t)
}

// ClampAim clamps a vertical aim angle into [-limit, limit].
func ClampAim(angle, limit float64) float64 {
	if limit < 0 {
		limit = -limit
	}
	if angle > limit {
		return limit
	}
	if angle < -limit {
		return -limit
	}
	return angle
}

// Degrees converts radians to degrees. Used by tests and log payloads.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}
