package render

import (
	"math"

	"github.com/taigrr/lumen/pkg/math3d"
)

// Camera is a pinhole camera described by a position and two angles.
// Theta turns the view around the Y axis and Phi tilts it up or down; both
// are in degrees. With both at zero the camera looks down -Z.
type Camera struct {
	// Position in world space
	Position math3d.Vec3

	Theta float64 // Yaw in degrees
	Phi   float64 // Pitch in degrees

	AngleOfView float64 // Vertical field of view in degrees
	Near        float64 // Closest distance a primary ray reports
	Far         float64 // Farthest distance a primary ray reports
}

// maxPhi keeps the view away from the poles where Right degenerates.
const maxPhi = 89.5

// NewCamera creates a camera framing the built-in Cornell box.
func NewCamera() *Camera {
	return &Camera{
		Position:    math3d.V3(0, 0.795, 3.2),
		AngleOfView: 40,
		Near:        0.001,
		Far:         100,
	}
}

// SetPosition sets the camera position.
func (c *Camera) SetPosition(pos math3d.Vec3) {
	c.Position = pos
}

// SetRotation sets yaw and pitch in degrees. Pitch is clamped short of
// straight up or down.
func (c *Camera) SetRotation(theta, phi float64) {
	c.Theta = theta
	c.Phi = math.Max(-maxPhi, math.Min(maxPhi, phi))
}

// Rotate adds to yaw and pitch, in degrees.
func (c *Camera) Rotate(dTheta, dPhi float64) {
	c.SetRotation(c.Theta+dTheta, c.Phi+dPhi)
}

// SetClipPlanes sets the near and far distances.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.Near = near
	c.Far = far
}

func (c *Camera) radians() (yaw, pitch float64) {
	return c.Theta * math.Pi / 180, c.Phi * math.Pi / 180
}

// Forward returns the unit view direction.
func (c *Camera) Forward() math3d.Vec3 {
	yaw, pitch := c.radians()
	return math3d.V3(
		-math.Sin(yaw)*math.Cos(pitch),
		math.Sin(pitch),
		-math.Cos(yaw)*math.Cos(pitch),
	)
}

// Right returns the unit right vector. It stays horizontal.
func (c *Camera) Right() math3d.Vec3 {
	yaw, _ := c.radians()
	return math3d.V3(
		math.Cos(yaw),
		0,
		-math.Sin(yaw),
	)
}

// Up returns the unit up vector, perpendicular to Forward and Right.
func (c *Camera) Up() math3d.Vec3 {
	return c.Right().Cross(c.Forward())
}

// MoveForward moves the camera forward (or backward if negative).
func (c *Camera) MoveForward(distance float64) {
	c.Position = c.Position.Add(c.Forward().Scale(distance))
}

// MoveRight moves the camera right (or left if negative).
func (c *Camera) MoveRight(distance float64) {
	c.Position = c.Position.Add(c.Right().Scale(distance))
}

// MoveUp moves the camera up (or down if negative).
func (c *Camera) MoveUp(distance float64) {
	c.Position = c.Position.Add(math3d.Up().Scale(distance))
}

// LookAt turns the camera towards a target point.
func (c *Camera) LookAt(target math3d.Vec3) {
	dir := target.Sub(c.Position).Normalize()
	if dir.LenSq() == 0 {
		return
	}
	c.SetRotation(
		math.Atan2(-dir.X, -dir.Z)*180/math.Pi,
		math.Asin(dir.Y)*180/math.Pi,
	)
}

// Orbit places the camera at distance from center, looking at it from the
// direction given by theta and phi.
func (c *Camera) Orbit(center math3d.Vec3, distance, theta, phi float64) {
	c.SetRotation(theta, phi)
	c.Position = center.Sub(c.Forward().Scale(distance))
}
