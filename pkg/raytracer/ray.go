// Package raytracer implements the lumen tracing engine: a bounding volume
// hierarchy over scene triangles, ray generation and a shading pipeline
// built from miss, closest-hit and any-hit shaders.
package raytracer

import (
	"math"

	"github.com/taigrr/lumen/pkg/math3d"
)

// Ray is a half-line with a valid parametric interval [TMin, TMax].
// The direction is unit length, so t values are world-space distances.
type Ray struct {
	Origin    math3d.Vec3
	Direction math3d.Vec3
	TMin      float64
	TMax      float64
}

// NewRay creates a ray from origin along direction, normalizing the
// direction. The interval starts at 0 and is unbounded.
func NewRay(origin, direction math3d.Vec3) Ray {
	return Ray{
		Origin:    origin,
		Direction: direction.Normalize(),
		TMin:      0,
		TMax:      math.Inf(1),
	}
}

// WithInterval returns a copy of the ray limited to [tMin, tMax].
func (r Ray) WithInterval(tMin, tMax float64) Ray {
	r.TMin, r.TMax = tMin, tMax
	return r
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) math3d.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// invDirection returns 1/direction per axis for slab tests.
func (r Ray) invDirection() math3d.Vec3 {
	return math3d.V3(1/r.Direction.X, 1/r.Direction.Y, 1/r.Direction.Z)
}
