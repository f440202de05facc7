package raytracer

import "github.com/taigrr/lumen/pkg/math3d"

// NoHit is the T value of a payload that did not hit anything.
const NoHit = -1.0

// Payload is the per-ray result threaded through the shaders.
type Payload struct {
	T     float64     // Hit distance, or NoHit
	Bary  math3d.Vec3 // Barycentric weights of the hit, summing to 1
	Color math3d.Vec3 // Linear RGB
}

// MissPayload returns an empty payload marked as no hit.
func MissPayload() Payload {
	return Payload{T: NoHit}
}

// Hit reports whether the payload records an intersection.
func (p Payload) Hit() bool {
	return p.T >= 0
}
