package math3d

import "math"

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// EmptyAABB returns an inverted box that any Grow call replaces.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{Min: Splat3(inf), Max: Splat3(-inf)}
}

// NewAABB creates an AABB from min and max points.
func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// AABBFromPoints returns the smallest box containing all points.
func AABBFromPoints(points ...Vec3) AABB {
	b := EmptyAABB()
	for _, p := range points {
		b = b.Grow(p)
	}
	return b
}

// Grow returns the box extended to contain p.
func (b AABB) Grow(p Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns a box bounding both b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Center returns the center of the AABB.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the dimensions of the AABB.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// LongestAxis returns the axis (0=X, 1=Y, 2=Z) with the largest extent.
func (b AABB) LongestAxis() int {
	s := b.Size()
	if s.X > s.Y && s.X > s.Z {
		return 0
	}
	if s.Y > s.Z {
		return 1
	}
	return 2
}

// Hit tests a ray against the box with the slab method and returns the
// distance at which the ray enters it. invDir holds 1/direction per axis;
// an infinite component marks a ray parallel to that slab.
func (b AABB) Hit(origin, invDir Vec3, tMin, tMax float64) (float64, bool) {
	for axis := range 3 {
		o := origin.Axis(axis)
		lo, hi := b.Min.Axis(axis), b.Max.Axis(axis)
		inv := invDir.Axis(axis)

		if math.IsInf(inv, 0) {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}

		t1 := (lo - o) * inv
		t2 := (hi - o) * inv
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
