package raytracer

import (
	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/models"
)

// determinantEpsilon rejects rays parallel to a triangle and degenerate
// (zero-area) triangles.
const determinantEpsilon = 1e-12

// Triangle is a scene triangle with its vertex attributes and the
// precomputed data needed for intersection.
type Triangle struct {
	A, B, C models.Vertex

	edge1, edge2 math3d.Vec3
	normal       math3d.Vec3
}

// NewTriangle creates a triangle from three vertices.
func NewTriangle(a, b, c models.Vertex) Triangle {
	t := Triangle{A: a, B: b, C: c}
	t.edge1 = b.Position.Sub(a.Position)
	t.edge2 = c.Position.Sub(a.Position)
	t.normal = t.edge1.Cross(t.edge2).Normalize()
	return t
}

// Bounds returns the bounding box of the triangle.
func (t *Triangle) Bounds() math3d.AABB {
	return math3d.AABBFromPoints(t.A.Position, t.B.Position, t.C.Position)
}

// Centroid returns the average of the three positions.
func (t *Triangle) Centroid() math3d.Vec3 {
	return t.A.Position.Add(t.B.Position).Add(t.C.Position).Scale(1.0 / 3)
}

// Intersect tests the ray against the triangle using the Moller-Trumbore
// algorithm. It returns the hit distance and the barycentric weights of
// A, B and C. Hits outside [r.TMin, tMax] are rejected.
func (t *Triangle) Intersect(r Ray, tMax float64) (float64, math3d.Vec3, bool) {
	h := r.Direction.Cross(t.edge2)
	det := t.edge1.Dot(h)

	// Written so that NaN fails the test as well.
	if !(det > determinantEpsilon || det < -determinantEpsilon) {
		return 0, math3d.Vec3{}, false
	}

	f := 1 / det
	s := r.Origin.Sub(t.A.Position)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, math3d.Vec3{}, false
	}

	q := s.Cross(t.edge1)
	v := f * r.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, math3d.Vec3{}, false
	}

	dist := f * t.edge2.Dot(q)
	if !(dist >= r.TMin && dist <= tMax) {
		return 0, math3d.Vec3{}, false
	}

	return dist, math3d.V3(1-u-v, u, v), true
}

// Normal returns the vertex normal interpolated with the barycentric weights
// bary, normalized. Falls back to the geometric normal when the vertex
// normals cancel out.
func (t *Triangle) Normal(bary math3d.Vec3) math3d.Vec3 {
	n := math3d.Barycentric(t.A.Normal, t.B.Normal, t.C.Normal, bary).Normalize()
	if n.LenSq() == 0 {
		return t.normal
	}
	return n
}

// Position returns the point with barycentric weights bary.
func (t *Triangle) Position(bary math3d.Vec3) math3d.Vec3 {
	return math3d.Barycentric(t.A.Position, t.B.Position, t.C.Position, bary)
}

// Diffuse returns the diffuse color of the triangle. Material attributes are
// duplicated per vertex; the first vertex is authoritative.
func (t *Triangle) Diffuse() math3d.Vec3 {
	return t.A.Diffuse
}

// Emissive returns the emissive color of the triangle.
func (t *Triangle) Emissive() math3d.Vec3 {
	return t.A.Emissive
}
