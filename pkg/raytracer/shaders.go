package raytracer

// MissShader produces the payload of a ray that hit nothing.
type MissShader interface {
	Miss(r Ray) Payload
}

// ClosestHitShader shades the nearest intersection. depth is the recursion
// budget left for secondary rays issued by the shader.
type ClosestHitShader interface {
	ClosestHit(r Ray, p Payload, tri *Triangle, depth int) Payload
}

// AnyHitShader handles the first intersection found by an occlusion tracer.
type AnyHitShader interface {
	AnyHit(r Ray, p Payload, tri *Triangle, depth int) Payload
}

// MissFunc adapts a function to MissShader.
type MissFunc func(r Ray) Payload

// Miss calls f(r).
func (f MissFunc) Miss(r Ray) Payload { return f(r) }

// ClosestHitFunc adapts a function to ClosestHitShader.
type ClosestHitFunc func(r Ray, p Payload, tri *Triangle, depth int) Payload

// ClosestHit calls f(r, p, tri, depth).
func (f ClosestHitFunc) ClosestHit(r Ray, p Payload, tri *Triangle, depth int) Payload {
	return f(r, p, tri, depth)
}

// AnyHitFunc adapts a function to AnyHitShader.
type AnyHitFunc func(r Ray, p Payload, tri *Triangle, depth int) Payload

// AnyHit calls f(r, p, tri, depth).
func (f AnyHitFunc) AnyHit(r Ray, p Payload, tri *Triangle, depth int) Payload {
	return f(r, p, tri, depth)
}
