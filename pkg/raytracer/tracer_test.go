package raytracer

import (
	"image/color"
	"math"
	"sync/atomic"
	"testing"

	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/models"
	"github.com/taigrr/lumen/pkg/render"
)

// quadShape is a 2x2 square in the z=0 plane facing +Z.
func quadShape() models.Shape {
	s := models.Shape{Name: "quad"}
	s.AddTriangle(vertex(-1, -1, 0), vertex(1, -1, 0), vertex(1, 1, 0))
	s.AddTriangle(vertex(-1, -1, 0), vertex(1, 1, 0), vertex(-1, 1, 0))
	return s
}

func builtTracer(shapes ...models.Shape) *Tracer {
	tr := NewTracer()
	tr.SetGeometry(shapes)
	tr.BuildAccelerationStructure()
	return tr
}

var skyMiss = MissFunc(func(r Ray) Payload {
	p := MissPayload()
	p.Color = math3d.V3(0.1, 0.2, 0.3)
	return p
})

func expectPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	f()
}

func TestTraceRayMiss(t *testing.T) {
	tr := builtTracer(quadShape())
	tr.SetMissShader(skyMiss)

	p := tr.TraceRay(NewRay(math3d.V3(5, 5, 5), math3d.V3(0, 0, 1)), 1, math.Inf(1))
	if p.T != NoHit {
		t.Errorf("T = %v, want NoHit", p.T)
	}
	if p.Color != math3d.V3(0.1, 0.2, 0.3) {
		t.Errorf("color = %+v, want miss shader color", p.Color)
	}
}

func TestTraceRayMissWithoutShader(t *testing.T) {
	tr := builtTracer()
	p := tr.TraceRay(NewRay(math3d.Vec3{}, math3d.V3(0, 0, -1)), 1, math.Inf(1))
	if p.Hit() || p.Color != (math3d.Vec3{}) {
		t.Errorf("empty scene payload = %+v", p)
	}
}

func TestTraceRayClosestHit(t *testing.T) {
	tri := models.Shape{Name: "tri"}
	tri.AddTriangle(vertex(-1, -1, 0), vertex(1, -1, 0), vertex(0, 1, 0))
	tr := builtTracer(tri)

	var got Payload
	var gotTri *Triangle
	tr.SetClosestHitShader(ClosestHitFunc(func(r Ray, p Payload, tri *Triangle, depth int) Payload {
		got, gotTri = p, tri
		p.Color = math3d.V3(1, 0, 0)
		return p
	}))

	r := NewRay(math3d.V3(0.2, -0.3, 4), math3d.V3(-0.1, 0.05, -1))
	p := tr.TraceRay(r, 1, math.Inf(1))
	if !p.Hit() || gotTri == nil {
		t.Fatal("expected a hit")
	}
	if p.Color != math3d.V3(1, 0, 0) {
		t.Errorf("closest-hit color not returned: %+v", p.Color)
	}
	if !approx(got.Bary.Sum(), 1, 1e-9) {
		t.Errorf("barycentric weights sum to %v", got.Bary.Sum())
	}
	if pos := gotTri.Position(got.Bary); !approxVec(pos, r.At(got.T), 1e-9) {
		t.Errorf("interpolated position %+v, ray point %+v", pos, r.At(got.T))
	}
}

func TestTraceRayNearestOfStack(t *testing.T) {
	// Three parallel quads; the nearest must win regardless of build order.
	var shapes []models.Shape
	for _, z := range []float64{-3, 0, -1} {
		s := models.Shape{Name: "layer"}
		s.AddTriangle(vertex(-1, -1, z), vertex(1, -1, z), vertex(0, 1, z))
		shapes = append(shapes, s)
	}
	tr := builtTracer(shapes...)

	p := tr.TraceRay(NewRay(math3d.V3(0, 0, 2), math3d.V3(0, 0, -1)), 1, math.Inf(1))
	if !approx(p.T, 2, 1e-9) {
		t.Errorf("T = %v, want 2", p.T)
	}
}

func TestTraceRayMaxDistance(t *testing.T) {
	tr := builtTracer(quadShape())
	r := NewRay(math3d.V3(0, 0, 3), math3d.V3(0, 0, -1))

	if p := tr.TraceRay(r, 1, 2.5); p.Hit() {
		t.Errorf("hit at %v beyond max distance 2.5", p.T)
	}
	if p := tr.TraceRay(r, 1, 3.5); !p.Hit() {
		t.Error("expected hit within max distance 3.5")
	}
}

func TestTraceRayDepth(t *testing.T) {
	tr := builtTracer(quadShape())
	tr.SetMissShader(skyMiss)
	tr.SetMaxDepth(3)

	var seen []int
	tr.SetClosestHitShader(ClosestHitFunc(func(r Ray, p Payload, tri *Triangle, depth int) Payload {
		seen = append(seen, depth)
		return p
	}))
	r := NewRay(math3d.V3(0, 0, 3), math3d.V3(0, 0, -1))

	// Depth 0 does not traverse and takes the miss path.
	if p := tr.TraceRay(r, 0, math.Inf(1)); p.Hit() || p.Color != math3d.V3(0.1, 0.2, 0.3) {
		t.Errorf("depth 0 payload = %+v, want miss", p)
	}
	tr.TraceRay(r, 2, math.Inf(1))
	tr.TraceRay(r, 10, math.Inf(1))

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("shader depths = %v, want [1 2] (decremented and clamped to max depth 3)", seen)
	}
}

func TestTraceRayRecursionTerminates(t *testing.T) {
	// A mirror-like shader that retraces from every hit must stop at the depth limit.
	tr := builtTracer(quadShape())
	tr.SetMaxDepth(5)

	var calls int
	tr.SetClosestHitShader(ClosestHitFunc(func(r Ray, p Payload, tri *Triangle, depth int) Payload {
		calls++
		back := NewRay(r.Origin, r.Direction)
		next := tr.TraceRay(back, depth, math.Inf(1))
		p.Color = next.Color.Add(math3d.V3(0.1, 0, 0))
		return p
	}))

	p := tr.TraceRay(NewRay(math3d.V3(0, 0, 3), math3d.V3(0, 0, -1)), 100, math.Inf(1))
	if calls != 5 {
		t.Errorf("closest-hit ran %d times, want 5", calls)
	}
	if !approx(p.Color.X, 0.5, 1e-9) {
		t.Errorf("accumulated color = %+v", p.Color)
	}
}

func TestTraceRayAnyHit(t *testing.T) {
	primary := builtTracer(quadShape())

	occlusion := NewTracer()
	occlusion.UseAccelerationStructure(primary.AccelerationStructure())
	occlusion.SetMissShader(MissFunc(func(Ray) Payload { return MissPayload() }))
	var closestCalled bool
	occlusion.SetClosestHitShader(ClosestHitFunc(func(r Ray, p Payload, tri *Triangle, depth int) Payload {
		closestCalled = true
		return p
	}))
	var anyCalls int
	occlusion.SetAnyHitShader(AnyHitFunc(func(r Ray, p Payload, tri *Triangle, depth int) Payload {
		anyCalls++
		return p
	}))

	hit := occlusion.TraceRay(NewRay(math3d.V3(0, 0, 3), math3d.V3(0, 0, -1)), 1, 10)
	if !hit.Hit() || anyCalls != 1 {
		t.Errorf("occluded ray: payload %+v, any-hit calls %d", hit, anyCalls)
	}
	miss := occlusion.TraceRay(NewRay(math3d.V3(0, 0, 3), math3d.V3(0, 0, 1)), 1, 10)
	if miss.T != NoHit {
		t.Errorf("unoccluded ray T = %v, want NoHit", miss.T)
	}
	if closestCalled {
		t.Error("occlusion tracer must not run the closest-hit shader")
	}
}

func TestSharedAccelerationStructure(t *testing.T) {
	primary := builtTracer(quadShape())
	shadow := NewTracer()
	shadow.UseAccelerationStructure(primary.AccelerationStructure())

	if shadow.AccelerationStructure() != primary.AccelerationStructure() {
		t.Fatal("tracers should share one structure")
	}
	r := NewRay(math3d.V3(0.5, 0.5, 1), math3d.V3(0, 0, -1))
	if a, b := primary.TraceRay(r, 1, 5), shadow.TraceRay(r, 1, 5); a.T != b.T {
		t.Errorf("shared structure answers differ: %v vs %v", a.T, b.T)
	}
}

func TestTracerPanics(t *testing.T) {
	view := func(tr *Tracer) {
		tr.RayGeneration(math3d.V3(0, 0, 3), math3d.V3(0, 0, -1), math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), 1)
	}

	t.Run("trace before build", func(t *testing.T) {
		expectPanic(t, func() { NewTracer().TraceRay(NewRay(math3d.Vec3{}, math3d.V3(0, 0, 1)), 1, 1) })
	})
	t.Run("build twice", func(t *testing.T) {
		tr := builtTracer()
		expectPanic(t, tr.BuildAccelerationStructure)
	})
	t.Run("no render target", func(t *testing.T) {
		tr := builtTracer()
		tr.SetViewport(4, 4)
		expectPanic(t, func() { view(tr) })
	})
	t.Run("viewport mismatch", func(t *testing.T) {
		tr := builtTracer()
		tr.SetRenderTarget(render.NewFramebuffer(4, 4))
		tr.SetViewport(4, 5)
		expectPanic(t, func() { view(tr) })
	})
	t.Run("not built", func(t *testing.T) {
		tr := NewTracer()
		tr.SetRenderTarget(render.NewFramebuffer(4, 4))
		tr.SetViewport(4, 4)
		expectPanic(t, func() { view(tr) })
	})
	t.Run("invalid viewport", func(t *testing.T) {
		expectPanic(t, func() { NewTracer().SetViewport(0, 4) })
	})
}

func TestClearRenderTarget(t *testing.T) {
	tr := builtTracer(quadShape())
	tr.SetMissShader(skyMiss)
	fb := render.NewFramebuffer(6, 4)
	tr.SetRenderTarget(fb)
	tr.SetViewport(6, 4)

	tr.RayGeneration(math3d.V3(0, 0, 3), math3d.V3(0, 0, -1), math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), 1)

	c := color.RGBA{R: 12, G: 34, B: 56, A: 255}
	for range 2 {
		tr.ClearRenderTarget(c)
		for y := range 4 {
			for x := range 6 {
				if got := fb.GetPixel(x, y); got != c {
					t.Fatalf("pixel (%d, %d) = %v after clear, want %v", x, y, got, c)
				}
			}
		}
	}
}

func TestAccumulationConverges(t *testing.T) {
	tr := builtTracer(quadShape())
	tr.SetWorkers(3)
	tr.SetMissShader(MissFunc(func(Ray) Payload {
		p := MissPayload()
		p.Color = math3d.V3(0.25, 0.5, 0.75)
		return p
	}))
	tr.SetClosestHitShader(ClosestHitFunc(func(r Ray, p Payload, tri *Triangle, depth int) Payload {
		p.Color = math3d.V3(0.25, 0.5, 0.75)
		return p
	}))

	fb := render.NewFramebuffer(8, 8)
	tr.SetRenderTarget(fb)
	tr.SetViewport(8, 8)
	tr.ClearRenderTarget(color.RGBA{R: 255, A: 255})

	const frames = 16
	for frame := range frames {
		tr.SetJitter(math3d.V2(float64(frame%4)/4-0.375, float64(frame/4)/4-0.375))
		tr.RayGeneration(math3d.V3(0, 0, 3), math3d.V3(0, 0, -1), math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), 1/float64(frame+1))
	}

	want := toRGBA(math3d.V3(0.25, 0.5, 0.75))
	for i, p := range fb.Pixels {
		if p != want {
			t.Fatalf("pixel %d = %v, want %v", i, p, want)
		}
	}

	st := tr.Stats()
	if st.PrimaryRays != frames*64 || st.Passes != frames {
		t.Errorf("stats = %+v", st)
	}
}

func TestAccumulationAverages(t *testing.T) {
	tr := builtTracer()
	var frame atomic.Int64
	tr.SetMissShader(MissFunc(func(Ray) Payload {
		p := MissPayload()
		// Alternate black and white passes.
		p.Color = math3d.Splat3(float64(frame.Load() % 2))
		return p
	}))

	fb := render.NewFramebuffer(2, 2)
	tr.SetRenderTarget(fb)
	tr.SetViewport(2, 2)
	for i := range 4 {
		frame.Store(int64(i))
		tr.RayGeneration(math3d.Vec3{}, math3d.V3(0, 0, -1), math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), 1/float64(i+1))
	}

	// Average of 0, 1, 0, 1.
	if got := fb.GetPixel(1, 1); got.R != 128 {
		t.Errorf("pixel = %v, want R=128", got)
	}
}

func TestToRGBAClamps(t *testing.T) {
	tests := []struct {
		in   math3d.Vec3
		want color.RGBA
	}{
		{math3d.V3(0, 0, 0), color.RGBA{0, 0, 0, 255}},
		{math3d.V3(1, 1, 1), color.RGBA{255, 255, 255, 255}},
		{math3d.V3(2, -1, 0.5), color.RGBA{255, 0, 128, 255}},
	}
	for _, tt := range tests {
		if got := toRGBA(tt.in); got != tt.want {
			t.Errorf("toRGBA(%+v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

type recordingLogger struct{ lines int }

func (l *recordingLogger) Printf(string, ...any) { l.lines++ }

func TestBuildLogsStats(t *testing.T) {
	tr := NewTracer()
	log := &recordingLogger{}
	tr.SetLogger(log)
	tr.SetGeometry([]models.Shape{quadShape()})
	tr.BuildAccelerationStructure()

	if log.lines != 1 {
		t.Errorf("expected one log line, got %d", log.lines)
	}
	if tr.AccelerationStructure().Stats().Triangles != 2 {
		t.Errorf("BVH stats = %+v", tr.AccelerationStructure().Stats())
	}
}

func BenchmarkRayGeneration(b *testing.B) {
	tr := builtTracer(models.CornellBox().Shapes...)
	tr.SetMissShader(skyMiss)
	tr.SetClosestHitShader(ClosestHitFunc(func(r Ray, p Payload, tri *Triangle, depth int) Payload {
		p.Color = tri.Diffuse()
		return p
	}))
	fb := render.NewFramebuffer(64, 64)
	tr.SetRenderTarget(fb)
	tr.SetViewport(64, 64)

	for b.Loop() {
		tr.RayGeneration(math3d.V3(0, 0.8, 3), math3d.V3(0, 0, -1), math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), 0.5)
	}
}
