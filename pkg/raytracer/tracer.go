package raytracer

import (
	"fmt"
	"image/color"
	"math"
	"runtime"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/sync/errgroup"

	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/models"
)

// DefaultMaxDepth is the recursion limit of a new tracer.
const DefaultMaxDepth = 8

// RenderTarget is the pixel buffer a tracer writes into.
type RenderTarget interface {
	Size() (width, height int)
	SetPixel(x, y int, c color.RGBA)
	Clear(c color.RGBA)
}

// Tracer traces rays against an acceleration structure, dispatches them to
// its shaders and accumulates primary ray colors into a render target.
//
// A tracer is configured in order: render target and viewport, geometry,
// BuildAccelerationStructure (or UseAccelerationStructure), then any number
// of RayGeneration passes. Out-of-order use panics.
type Tracer struct {
	missShader       MissShader
	closestHitShader ClosestHitShader
	anyHitShader     AnyHitShader

	geometry []models.Shape
	accel    *BVH

	target        RenderTarget
	width, height int
	history       []math3d.Vec3

	maxDepth  int
	workers   int
	fovScale  float64
	near, far float64
	jitter    math3d.Vec2

	counters counters
	passes   int
	elapsed  time.Duration
	logger   Logger
}

// NewTracer creates a tracer with default settings and no shaders.
func NewTracer() *Tracer {
	return &Tracer{
		maxDepth: DefaultMaxDepth,
		fovScale: FieldOfViewScale(DefaultFieldOfView),
		near:     0,
		far:      math.Inf(1),
		logger:   nopLogger{},
	}
}

// SetMissShader installs the shader run when a ray hits nothing.
func (t *Tracer) SetMissShader(s MissShader) {
	t.missShader = s
}

// SetClosestHitShader installs the shader run for the nearest intersection.
func (t *Tracer) SetClosestHitShader(s ClosestHitShader) {
	t.closestHitShader = s
}

// SetAnyHitShader installs an any-hit shader. A tracer with an any-hit
// shader is an occlusion tracer: traversal stops at the first hit found and
// the closest-hit shader is never run.
func (t *Tracer) SetAnyHitShader(s AnyHitShader) {
	t.anyHitShader = s
}

// SetLogger sets the destination of progress messages. nil disables logging.
func (t *Tracer) SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}
	t.logger = l
}

// SetMaxDepth sets the recursion limit applied to every TraceRay call.
func (t *Tracer) SetMaxDepth(depth int) {
	t.maxDepth = max(depth, 0)
}

// MaxDepth returns the recursion limit.
func (t *Tracer) MaxDepth() int {
	return t.maxDepth
}

// SetWorkers sets the number of rows traced in parallel. Zero or less uses
// one worker per CPU.
func (t *Tracer) SetWorkers(n int) {
	t.workers = n
}

// SetFieldOfView sets the vertical angle of view in degrees.
func (t *Tracer) SetFieldOfView(degrees float64) {
	t.fovScale = FieldOfViewScale(degrees)
}

// SetDistanceRange limits primary rays to [near, far].
func (t *Tracer) SetDistanceRange(near, far float64) {
	t.near, t.far = near, far
}

// SetJitter sets the sub-pixel sample offset used by the next passes.
func (t *Tracer) SetJitter(j math3d.Vec2) {
	t.jitter = j
}

// SetRenderTarget binds the pixel buffer ray generation writes into.
func (t *Tracer) SetRenderTarget(target RenderTarget) {
	t.target = target
}

// SetViewport sets the pixel grid of ray generation. It must match the
// render target's size. The accumulation history is reset to black.
func (t *Tracer) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("raytracer: invalid viewport %dx%d", width, height))
	}
	t.width, t.height = width, height
	t.history = make([]math3d.Vec3, width*height)
}

// ClearRenderTarget sets every pixel and the accumulation history to c.
func (t *Tracer) ClearRenderTarget(c color.RGBA) {
	if t.target != nil {
		t.target.Clear(c)
	}
	v := math3d.V3(float64(c.R), float64(c.G), float64(c.B)).Scale(1.0 / 255)
	for i := range t.history {
		t.history[i] = v
	}
}

// SetGeometry sets the geometry buffers BuildAccelerationStructure indexes.
func (t *Tracer) SetGeometry(buffers []models.Shape) {
	t.geometry = buffers
}

// BuildAccelerationStructure builds the acceleration structure from the
// current geometry. It panics when called twice.
func (t *Tracer) BuildAccelerationStructure() {
	if t.accel != nil && t.accel.Built() {
		panic("raytracer: acceleration structure already built")
	}
	if t.accel == nil {
		t.accel = NewBVH()
	}

	start := time.Now()
	t.accel.Build(t.geometry)
	st := t.accel.Stats()
	t.logger.Printf("built BVH over %d triangles: %d nodes, %d leaves, depth %d (avg %.1f) in %v",
		st.Triangles, st.Nodes, st.Leaves, st.MaxDepth, st.AvgDepth, time.Since(start).Round(time.Microsecond))
}

// AccelerationStructure returns the tracer's acceleration structure so that
// another tracer can share it.
func (t *Tracer) AccelerationStructure() *BVH {
	return t.accel
}

// UseAccelerationStructure makes the tracer query a structure built by
// another tracer.
func (t *Tracer) UseAccelerationStructure(b *BVH) {
	t.accel = b
}

// TraceRay traces r limited to maxDistance and returns the resulting
// payload. depth is clamped to MaxDepth; at zero no traversal happens and
// the miss path is returned. Hit shaders receive depth-1.
func (t *Tracer) TraceRay(r Ray, depth int, maxDistance float64) Payload {
	t.counters.rays.Add(1)

	depth = min(depth, t.maxDepth)
	if maxDistance < r.TMax {
		r.TMax = maxDistance
	}
	if depth <= 0 {
		return t.miss(r)
	}

	if t.accel == nil {
		panic("raytracer: TraceRay without an acceleration structure")
	}

	if t.anyHitShader != nil {
		hit, ok := t.accel.AnyHit(r)
		if !ok {
			return t.miss(r)
		}
		t.counters.hits.Add(1)
		return t.anyHitShader.AnyHit(r, hitPayload(hit), hit.Triangle, depth-1)
	}

	hit, ok := t.accel.ClosestHit(r)
	if !ok {
		return t.miss(r)
	}
	t.counters.hits.Add(1)
	p := hitPayload(hit)
	if t.closestHitShader != nil {
		p = t.closestHitShader.ClosestHit(r, p, hit.Triangle, depth-1)
	}
	return p
}

func (t *Tracer) miss(r Ray) Payload {
	if t.missShader != nil {
		return t.missShader.Miss(r)
	}
	return MissPayload()
}

func hitPayload(h Hit) Payload {
	return Payload{T: h.T, Bary: h.Bary}
}

// RayGeneration traces one primary ray per pixel and blends its color into
// the render target: history = history*(1-weight) + color*weight. Passing
// weight 1/(n+1) on pass n keeps the target at the running average.
func (t *Tracer) RayGeneration(position, direction, right, up math3d.Vec3, weight float64) {
	t.checkRenderable()

	start := time.Now()
	view := View{Position: position, Direction: direction, Right: right, Up: up}
	vp := Viewport{Width: t.width, Height: t.height, Scale: t.fovScale}
	jitter := t.jitter

	workers := t.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for y := range t.height {
		g.Go(func() error {
			t.traceRow(view, vp, y, jitter, weight)
			return nil
		})
	}
	_ = g.Wait()

	t.passes++
	t.elapsed += time.Since(start)
}

func (t *Tracer) traceRow(view View, vp Viewport, y int, jitter math3d.Vec2, weight float64) {
	for x := range t.width {
		r := PrimaryRay(view, vp, x, y, jitter).WithInterval(t.near, math.Inf(1))
		p := t.TraceRay(r, t.maxDepth, t.far)
		t.counters.primaryRays.Add(1)

		c := p.Color
		if !c.IsFinite() {
			c = math3d.Vec3{}
		}
		i := y*t.width + x
		t.history[i] = t.history[i].Scale(1 - weight).Add(c.Scale(weight))
		t.target.SetPixel(x, y, toRGBA(t.history[i]))
	}
}

func (t *Tracer) checkRenderable() {
	if t.target == nil {
		panic("raytracer: RayGeneration without a render target")
	}
	if t.history == nil {
		panic("raytracer: RayGeneration without a viewport")
	}
	w, h := t.target.Size()
	if w != t.width || h != t.height {
		panic(fmt.Sprintf("raytracer: viewport %dx%d does not match render target %dx%d", t.width, t.height, w, h))
	}
	if t.accel == nil || !t.accel.Built() {
		panic("raytracer: RayGeneration before the acceleration structure is built")
	}
}

// Stats returns the tracer's counters.
func (t *Tracer) Stats() RenderStats {
	return RenderStats{
		Rays:        t.counters.rays.Load(),
		PrimaryRays: t.counters.primaryRays.Load(),
		Hits:        t.counters.hits.Load(),
		Passes:      t.passes,
		Elapsed:     t.elapsed,
	}
}

// toRGBA converts a linear color to 8-bit, clamping to [0, 1].
func toRGBA(c math3d.Vec3) color.RGBA {
	r, g, b := colorful.Color{R: c.X, G: c.Y, B: c.Z}.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
