package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const epsilon = 1e-9

// Capsule is a vertical capsule anchored at a base position. The core
// segment runs from Center-HalfHeight to Center+HalfHeight above the base.
type Capsule struct {
	Base       mgl64.Vec3
	Radius     float64
	HalfHeight float64
	CenterY    float64
}

// Segment returns the capsule's inner segment endpoints.
func (c Capsule) Segment() (mgl64.Vec3, mgl64.Vec3) {
	center := c.Base.Add(mgl64.Vec3{0, c.CenterY, 0})
	offset := mgl64.Vec3{0, c.HalfHeight, 0}
	return center.Sub(offset), center.Add(offset)
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min mgl64.Vec3 `json:"min"`
	Max mgl64.Vec3 `json:"max"`
}

// Contains reports whether the point lies inside the box (inclusive).
func (b Box) Contains(p mgl64.Vec3) bool {
	for axis := 0; axis < 3; axis++ {
		if p[axis] < b.Min[axis] || p[axis] > b.Max[axis] {
			return false
		}
	}
	return true
}

// Finite2 reports whether every component is a real number.
func Finite2(v mgl64.Vec2) bool {
	return finite(v[0]) && finite(v[1])
}

// Finite3 reports whether every component is a real number.
func Finite3(v mgl64.Vec3) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Clamp returns the point pulled inside the box on every axis.
func (b Box) Clamp(p mgl64.Vec3) mgl64.Vec3 {
	for axis := 0; axis < 3; axis++ {
		p[axis] = mgl64.Clamp(p[axis], b.Min[axis], b.Max[axis])
	}
	return p
}

// SweepCapsule tests the moving sphere (from → to, radius r) against the
// capsule and returns the travel fraction of closest approach.
func SweepCapsule(from, to mgl64.Vec3, r float64, capsule Capsule) (float64, bool) {
	a, b := capsule.Segment()
	s, _, dist := ClosestSegmentSegment(from, to, a, b)
	if dist > capsule.Radius+r {
		return 0, false
	}
	return s, true
}

// SweepBox intersects the segment from → to with the box using the slab
// method and returns the entry fraction along the segment.
func SweepBox(from, to mgl64.Vec3, box Box) (float64, bool) {
	dir := to.Sub(from)
	tMin, tMax := 0.0, 1.0
	for axis := 0; axis < 3; axis++ {
		if math.Abs(dir[axis]) < epsilon {
			if from[axis] < box.Min[axis] || from[axis] > box.Max[axis] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[axis]
		t1 := (box.Min[axis] - from[axis]) * inv
		t2 := (box.Max[axis] - from[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// ClosestSegmentSegment computes the closest points between segments p1-q1
// and p2-q2. It returns the parameters along each segment and the distance
// between the closest points.
func ClosestSegmentSegment(p1, q1, p2, q2 mgl64.Vec3) (float64, float64, float64) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a <= epsilon && e <= epsilon:
		s, t = 0, 0
	case a <= epsilon:
		s = 0
		t = mgl64.Clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e <= epsilon {
			t = 0
			s = mgl64.Clamp(-c/a, 0, 1)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom > epsilon {
				s = mgl64.Clamp((b*f-c*e)/denom, 0, 1)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = mgl64.Clamp(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = mgl64.Clamp((b-c)/a, 0, 1)
			}
		}
	}
	c1 := p1.Add(d1.Mul(s))
	c2 := p2.Add(d2.Mul(t))
	return s, t, c1.Sub(c2).Len()
}
