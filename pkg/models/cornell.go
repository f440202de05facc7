package models

import (
	"math"

	"github.com/taigrr/lumen/pkg/math3d"
)

// Cornell box materials.
var (
	CornellWhite = Material{Name: "white", Diffuse: math3d.V3(0.725, 0.71, 0.68)}
	CornellRed   = Material{Name: "red", Diffuse: math3d.V3(0.63, 0.065, 0.05)}
	CornellGreen = Material{Name: "green", Diffuse: math3d.V3(0.14, 0.45, 0.091)}
	CornellLight = Material{Name: "light", Diffuse: math3d.V3(0.78, 0.78, 0.78), Emissive: math3d.Splat3(1)}
)

// CornellBox builds the classic test scene: a room spanning x in [-1, 1],
// y in [0, 1.59] and z in [-1, 1] that is open towards +z, a ceiling light
// panel and two blocks standing on the floor.
func CornellBox() *Model {
	m := NewModel("cornell-box")

	const (
		w = 1.0
		h = 1.59
	)
	p := func(x, y, z float64) math3d.Vec3 { return math3d.V3(x, y, z) }

	m.AddShape(quadShape("floor", CornellWhite,
		p(-w, 0, w), p(w, 0, w), p(w, 0, -w), p(-w, 0, -w)))
	m.AddShape(quadShape("ceiling", CornellWhite,
		p(-w, h, -w), p(w, h, -w), p(w, h, w), p(-w, h, w)))
	m.AddShape(quadShape("backWall", CornellWhite,
		p(-w, 0, -w), p(w, 0, -w), p(w, h, -w), p(-w, h, -w)))
	m.AddShape(quadShape("leftWall", CornellRed,
		p(-w, 0, w), p(-w, 0, -w), p(-w, h, -w), p(-w, h, w)))
	m.AddShape(quadShape("rightWall", CornellGreen,
		p(w, 0, -w), p(w, 0, w), p(w, h, w), p(w, h, -w)))

	const l = 0.24
	m.AddShape(quadShape("light", CornellLight,
		p(-l, h-0.005, -l), p(l, h-0.005, -l), p(l, h-0.005, l), p(-l, h-0.005, l)))

	m.AddShape(blockShape("shortBox", CornellWhite, math3d.V3(0.33, 0, 0.37), math3d.V3(0.6, 0.6, 0.6), -17))
	m.AddShape(blockShape("tallBox", CornellWhite, math3d.V3(-0.34, 0, -0.29), math3d.V3(0.6, 1.2, 0.6), 17))

	m.CalculateBounds()
	return m
}

// quadShape builds two triangles from corners listed counter-clockwise as
// seen from the side the quad faces.
func quadShape(name string, mat Material, a, b, c, d math3d.Vec3) Shape {
	s := Shape{Name: name}
	addQuad(&s, mat, a, b, c, d)
	return s
}

func addQuad(s *Shape, mat Material, a, b, c, d math3d.Vec3) {
	v := func(p math3d.Vec3) Vertex {
		return Vertex{Position: p, Diffuse: mat.Diffuse, Emissive: mat.Emissive}
	}
	s.AddTriangle(v(a), v(b), v(c))
	s.AddTriangle(v(a), v(c), v(d))
}

// blockShape builds a box resting on base (its bottom center) with the given
// size, rotated about the vertical axis by yaw degrees.
func blockShape(name string, mat Material, base, size math3d.Vec3, yaw float64) Shape {
	rad := yaw * math.Pi / 180
	sin, cos := math.Sincos(rad)
	hx, hz := size.X/2, size.Z/2

	corner := func(x, y, z float64) math3d.Vec3 {
		return math3d.V3(base.X+x*cos+z*sin, base.Y+y, base.Z-x*sin+z*cos)
	}

	// Bottom corners 0-3 and top corners 4-7, counter-clockwise from above.
	var c [8]math3d.Vec3
	for i, xz := range [4][2]float64{{-hx, hz}, {hx, hz}, {hx, -hz}, {-hx, -hz}} {
		c[i] = corner(xz[0], 0, xz[1])
		c[i+4] = corner(xz[0], size.Y, xz[1])
	}

	s := Shape{Name: name}
	addQuad(&s, mat, c[4], c[5], c[6], c[7]) // top
	addQuad(&s, mat, c[0], c[1], c[5], c[4]) // front
	addQuad(&s, mat, c[1], c[2], c[6], c[5]) // right
	addQuad(&s, mat, c[2], c[3], c[7], c[6]) // back
	addQuad(&s, mat, c[3], c[0], c[4], c[7]) // left
	return s
}
