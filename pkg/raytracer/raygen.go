package raytracer

import (
	"math"

	"github.com/taigrr/lumen/pkg/math3d"
)

// DefaultFieldOfView is the vertical angle of view in degrees used until
// SetFieldOfView is called.
const DefaultFieldOfView = 60.0

// View is the camera state consumed by ray generation.
type View struct {
	Position  math3d.Vec3
	Direction math3d.Vec3
	Right     math3d.Vec3
	Up        math3d.Vec3
}

// Viewport maps pixel coordinates onto the image plane.
type Viewport struct {
	Width  int
	Height int
	Scale  float64 // tan(fov/2), half height of the image plane at distance 1
}

// NewViewport creates a viewport with a vertical field of view in degrees.
func NewViewport(width, height int, fovDegrees float64) Viewport {
	return Viewport{
		Width:  width,
		Height: height,
		Scale:  FieldOfViewScale(fovDegrees),
	}
}

// FieldOfViewScale converts a vertical angle of view in degrees to the
// image plane half height at unit distance.
func FieldOfViewScale(fovDegrees float64) float64 {
	return math.Tan(fovDegrees * math.Pi / 360)
}

// Aspect returns width / height.
func (vp Viewport) Aspect() float64 {
	return float64(vp.Width) / float64(vp.Height)
}

// PrimaryRay returns the ray through pixel (x, y). jitter offsets the sample
// from the pixel center, in pixels; each component is expected in
// [-0.5, 0.5]. The result depends only on its arguments.
func PrimaryRay(view View, vp Viewport, x, y int, jitter math3d.Vec2) Ray {
	px := (float64(x) + 0.5 + jitter.X) / float64(vp.Width)
	py := (float64(y) + 0.5 + jitter.Y) / float64(vp.Height)

	// Screen space in [-1, 1], +v going down the image.
	u := (2*px - 1) * vp.Aspect() * vp.Scale
	v := (2*py - 1) * vp.Scale

	dir := view.Direction.Add(view.Right.Scale(u)).Sub(view.Up.Scale(v))
	return NewRay(view.Position, dir)
}
