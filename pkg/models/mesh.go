// Package models provides scene geometry loading and representation for lumen.
//
// A Model is a set of named Shapes. Each Shape is a flat triangle list whose
// vertices carry position, normal and material attributes, ready to be handed
// to the ray tracer as a geometry buffer.
package models

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/taigrr/lumen/pkg/math3d"
)

// Vertex holds all per-vertex attributes of a triangle corner.
type Vertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	Diffuse  math3d.Vec3 // Linear RGB reflectance in 0-1 range
	Emissive math3d.Vec3 // Linear RGB emitted color
}

// Material is the subset of a surface description lumen shades with.
type Material struct {
	Name     string
	Diffuse  math3d.Vec3
	Emissive math3d.Vec3
}

// DefaultMaterial is used for faces that reference no material.
var DefaultMaterial = Material{Name: "default", Diffuse: math3d.Splat3(0.8)}

// Shape is a geometry buffer: vertices 3i, 3i+1 and 3i+2 form triangle i.
type Shape struct {
	Name     string
	Vertices []Vertex
}

// TriangleCount returns the number of triangles.
func (s *Shape) TriangleCount() int {
	return len(s.Vertices) / 3
}

// Triangle returns the three vertices of triangle i.
func (s *Shape) Triangle(i int) [3]Vertex {
	return [3]Vertex{s.Vertices[3*i], s.Vertices[3*i+1], s.Vertices[3*i+2]}
}

// AddTriangle appends a triangle. Zero normals are replaced with the face normal.
func (s *Shape) AddTriangle(a, b, c Vertex) {
	n := FaceNormal(a.Position, b.Position, c.Position)
	for _, v := range []*Vertex{&a, &b, &c} {
		if v.Normal.LenSq() == 0 {
			v.Normal = n
		}
	}
	s.Vertices = append(s.Vertices, a, b, c)
}

// FaceNormal returns the unit normal of the triangle (a, b, c) with
// counter-clockwise winding. Degenerate triangles yield the zero vector.
func FaceNormal(a, b, c math3d.Vec3) math3d.Vec3 {
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}

// Model is a collection of shapes loaded from one file or built in code.
type Model struct {
	Name   string
	Shapes []Shape

	// Bounding box (calculated on load)
	Bounds math3d.AABB
}

// NewModel creates an empty model.
func NewModel(name string) *Model {
	return &Model{
		Name:   name,
		Shapes: make([]Shape, 0),
		Bounds: math3d.EmptyAABB(),
	}
}

// Load reads a model from disk, choosing the loader from the file extension.
func Load(path string) (*Model, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".glb", ".gltf":
		return LoadGLTF(path)
	case ".obj":
		return LoadOBJ(path)
	default:
		return nil, fmt.Errorf("unsupported format: %s (use .obj, .gltf or .glb)", ext)
	}
}

// AddShape appends a shape, dropping it if it holds no triangles.
func (m *Model) AddShape(s Shape) {
	if s.TriangleCount() == 0 {
		return
	}
	m.Shapes = append(m.Shapes, s)
}

// Shape returns the shape with the given name.
func (m *Model) Shape(name string) (*Shape, bool) {
	for i := range m.Shapes {
		if m.Shapes[i].Name == name {
			return &m.Shapes[i], true
		}
	}
	return nil, false
}

// CalculateBounds computes the axis-aligned bounding box over all shapes.
func (m *Model) CalculateBounds() {
	m.Bounds = math3d.EmptyAABB()
	for _, s := range m.Shapes {
		for _, v := range s.Vertices {
			m.Bounds = m.Bounds.Grow(v.Position)
		}
	}
}

// TriangleCount returns the number of triangles over all shapes.
func (m *Model) TriangleCount() int {
	return lo.SumBy(m.Shapes, func(s Shape) int { return s.TriangleCount() })
}

// VertexCount returns the number of vertices over all shapes.
func (m *Model) VertexCount() int {
	return lo.SumBy(m.Shapes, func(s Shape) int { return len(s.Vertices) })
}

// ShapeNames returns the shape names in load order.
func (m *Model) ShapeNames() []string {
	return lo.Map(m.Shapes, func(s Shape, _ int) string { return s.Name })
}

// Transform applies a transformation matrix to all vertices.
// Only uniform scales keep normals correct.
func (m *Model) Transform(mat math3d.Mat4) {
	for si := range m.Shapes {
		verts := m.Shapes[si].Vertices
		for i := range verts {
			verts[i].Position = mat.MulVec3(verts[i].Position)
			verts[i].Normal = mat.MulVec3Dir(verts[i].Normal).Normalize()
		}
	}
	m.CalculateBounds()
}

// Fit centers the model at the origin and scales its largest dimension to 2.
func (m *Model) Fit() {
	m.CalculateBounds()
	if m.Bounds.IsEmpty() {
		return
	}
	maxDim := m.Bounds.Size().MaxComponent()
	if maxDim <= 0 {
		return
	}
	scale := 2.0 / maxDim
	m.Transform(math3d.ScaleUniform(scale).Mul(math3d.Translate(m.Bounds.Center().Negate())))
}

