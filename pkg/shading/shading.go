// Package shading provides the shaders lumen renders with: a sky gradient
// for missed rays, diffuse direct lighting with shadow rays for hits, and
// the pair of shaders that turns a tracer into an occlusion tester.
package shading

import (
	"math"

	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/raytracer"
)

// AttenuationCap bounds light falloff: a light at distance d contributes
// min(AttenuationCap, AttenuationCap/d) of its color.
const AttenuationCap = 1.5

// ShadowBias offsets shadow rays from the surface they start on.
const ShadowBias = 1e-4

// Light is a point light.
type Light struct {
	Position math3d.Vec3
	Color    math3d.Vec3
}

// Scene is the state shared by the shaders of one render.
type Scene struct {
	Lights []Light
}

// CornellLights returns the lights used with the built-in Cornell box: one
// just below the ceiling panel and a dimmer fill light in front of the box.
func CornellLights() []Light {
	return []Light{
		{Position: math3d.V3(0, 1.58, -0.03), Color: math3d.Splat3(0.78)},
		{Position: math3d.V3(-0.2, 0.6, 1), Color: math3d.Splat3(0.5)},
	}
}

// Background colors missed rays with a blue gradient that brightens as the
// ray turns upward.
type Background struct{}

// Miss implements raytracer.MissShader.
func (Background) Miss(r raytracer.Ray) raytracer.Payload {
	p := raytracer.MissPayload()
	p.Color = math3d.V3(0, 0, (r.Direction.Y+1)/2)
	return p
}

// DirectLighting shades a hit with the triangle's emissive color plus the
// diffuse contribution of every light visible from the hit point.
// Visibility is decided by Shadows, a tracer sharing the scene's
// acceleration structure.
type DirectLighting struct {
	Scene   *Scene
	Shadows *raytracer.Tracer
}

// ClosestHit implements raytracer.ClosestHitShader. Lights are only counted
// once a shadow ray has found them visible, so with depth exhausted the hit
// returns its emissive color alone.
func (d *DirectLighting) ClosestHit(r raytracer.Ray, p raytracer.Payload, tri *raytracer.Triangle, depth int) raytracer.Payload {
	result := tri.Emissive()
	if depth <= 0 || d.Shadows == nil {
		p.Color = result.Clamp(0, 1)
		return p
	}

	position := r.At(p.T)
	normal := tri.Normal(p.Bary)
	for _, light := range d.Scene.Lights {
		toLight := light.Position.Sub(position)
		dist := toLight.Len()
		if dist == 0 {
			continue
		}

		ray := raytracer.NewRay(position, toLight)
		shadow := d.Shadows.TraceRay(ray.WithInterval(ShadowBias, dist), depth, dist)
		if shadow.Hit() {
			continue
		}

		falloff := math.Min(AttenuationCap, AttenuationCap/dist)
		lambert := math.Max(normal.Dot(ray.Direction), 0)
		result = result.Add(tri.Diffuse().Mul(light.Color).Scale(lambert * falloff))
	}

	p.Color = result.Clamp(0, 1)
	return p
}

// ShadowMiss marks a shadow ray as unoccluded.
type ShadowMiss struct{}

// Miss implements raytracer.MissShader.
func (ShadowMiss) Miss(raytracer.Ray) raytracer.Payload {
	return raytracer.MissPayload()
}

// ShadowAnyHit accepts the first occluder found. The payload already holds
// the hit distance, which is all a shadow query needs.
type ShadowAnyHit struct{}

// AnyHit implements raytracer.AnyHitShader.
func (ShadowAnyHit) AnyHit(_ raytracer.Ray, p raytracer.Payload, _ *raytracer.Triangle, _ int) raytracer.Payload {
	return p
}

// NewShadowTracer creates an occlusion tracer that queries the acceleration
// structure of primary.
func NewShadowTracer(primary *raytracer.Tracer) *raytracer.Tracer {
	t := raytracer.NewTracer()
	t.SetMissShader(ShadowMiss{})
	t.SetAnyHitShader(ShadowAnyHit{})
	t.UseAccelerationStructure(primary.AccelerationStructure())
	return t
}
