package main

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/models"
	"github.com/taigrr/lumen/pkg/raytracer"
	"github.com/taigrr/lumen/pkg/render"
	"github.com/taigrr/lumen/pkg/shading"
)

// minDepth covers a primary ray plus the shadow rays of its hit.
const minDepth = 2

// sceneOptions are the flags shared by every command that traces a scene.
type sceneOptions struct {
	width, height int
	frames        int
	depth         int
	workers       int
	seed          uint64

	position   []float64
	theta, phi float64
	fov        float64
	near, far  float64

	lights []string
	fit    bool
}

func (o *sceneOptions) register(fs *pflag.FlagSet) {
	cam := render.NewCamera()

	fs.IntVarP(&o.width, "width", "W", 640, "image width in pixels")
	fs.IntVarP(&o.height, "height", "H", 480, "image height in pixels")
	fs.IntVarP(&o.frames, "frames", "n", 16, "accumulation passes")
	fs.IntVarP(&o.depth, "depth", "d", 2, "recursion depth limit, at least 2")
	fs.IntVar(&o.workers, "workers", 0, "rows traced in parallel (0 = one per CPU)")
	fs.Uint64Var(&o.seed, "seed", 1, "seed for sub-pixel jitter")

	fs.Float64SliceVar(&o.position, "position", []float64{cam.Position.X, cam.Position.Y, cam.Position.Z}, "camera position x,y,z")
	fs.Float64Var(&o.theta, "theta", cam.Theta, "camera yaw in degrees")
	fs.Float64Var(&o.phi, "phi", cam.Phi, "camera pitch in degrees")
	fs.Float64Var(&o.fov, "fov", cam.AngleOfView, "vertical angle of view in degrees")
	fs.Float64Var(&o.near, "near", cam.Near, "nearest reported hit distance")
	fs.Float64Var(&o.far, "far", cam.Far, "farthest reported hit distance")

	fs.StringArrayVarP(&o.lights, "light", "l", nil, `point light as "x,y,z:r,g,b" (repeatable, replaces the default lights)`)
	fs.BoolVar(&o.fit, "fit", false, "center the model and scale it to a 2 unit box")
}

func (o *sceneOptions) validate() error {
	var errs []error
	if o.width < 1 || o.height < 1 {
		errs = append(errs, fmt.Errorf("image size must be positive, got %dx%d", o.width, o.height))
	}
	if o.frames < 1 {
		errs = append(errs, fmt.Errorf("--frames must be at least 1, got %d", o.frames))
	}
	if o.depth < minDepth {
		errs = append(errs, fmt.Errorf("--depth must be at least %d (primary and shadow rays), got %d", minDepth, o.depth))
	}
	if o.fov <= 0 || o.fov >= 180 {
		errs = append(errs, fmt.Errorf("--fov must be between 0 and 180 degrees, got %v", o.fov))
	}
	if len(o.position) != 3 {
		errs = append(errs, fmt.Errorf("--position needs 3 components, got %d", len(o.position)))
	}
	if o.near < 0 || o.far <= o.near {
		errs = append(errs, fmt.Errorf("need 0 <= --near < --far, got %v and %v", o.near, o.far))
	}
	return errors.Join(errs...)
}

func (o *sceneOptions) camera() *render.Camera {
	cam := render.NewCamera()
	cam.SetPosition(math3d.V3(o.position[0], o.position[1], o.position[2]))
	cam.SetRotation(o.theta, o.phi)
	cam.AngleOfView = o.fov
	cam.SetClipPlanes(o.near, o.far)
	return cam
}

func (o *sceneOptions) sceneLights() ([]shading.Light, error) {
	if len(o.lights) == 0 {
		return shading.CornellLights(), nil
	}
	lights := make([]shading.Light, 0, len(o.lights))
	for _, s := range o.lights {
		l, err := parseLight(s)
		if err != nil {
			return nil, err
		}
		lights = append(lights, l)
	}
	return lights, nil
}

// parseLight parses "x,y,z:r,g,b". The color part may be omitted for white.
func parseLight(s string) (shading.Light, error) {
	pos, col, hasColor := strings.Cut(s, ":")

	p, err := parseTriple(pos)
	if err != nil {
		return shading.Light{}, fmt.Errorf("light %q position: %w", s, err)
	}
	c := math3d.Splat3(1)
	if hasColor {
		c, err = parseTriple(col)
		if err != nil {
			return shading.Light{}, fmt.Errorf("light %q color: %w", s, err)
		}
	}
	return shading.Light{Position: p, Color: c}, nil
}

func parseTriple(s string) (math3d.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return math3d.Vec3{}, fmt.Errorf("expected 3 comma separated values, got %d", len(parts))
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return math3d.Vec3{}, err
		}
		v[i] = f
	}
	return math3d.V3(v[0], v[1], v[2]), nil
}

// loadModel loads the model named by args, or the Cornell box without one.
func loadModel(args []string, fit bool) (*models.Model, error) {
	var model *models.Model
	if len(args) == 0 {
		model = models.CornellBox()
	} else {
		var err error
		model, err = models.Load(args[0])
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		model.Name = filepath.Base(args[0])
	}
	if fit {
		model.Fit()
	}
	return model, nil
}

// scene wires a primary tracer and its shadow tracer over one model.
type scene struct {
	model   *models.Model
	camera  *render.Camera
	tracer  *raytracer.Tracer
	shadows *raytracer.Tracer
	fb      *render.Framebuffer
	rng     *rand.Rand
}

func newScene(cmd *cobra.Command, o *sceneOptions, args []string, log raytracer.Logger) (*scene, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	model, err := loadModel(args, o.fit)
	if err != nil {
		return nil, err
	}
	lights, err := o.sceneLights()
	if err != nil {
		return nil, err
	}
	log.Printf("loaded %s: %d shapes, %d triangles", model.Name, len(model.Shapes), model.TriangleCount())

	cam := o.camera()
	if len(args) > 0 && !cmd.Flags().Changed("position") {
		frameModel(cam, model)
	}

	primary := raytracer.NewTracer()
	primary.SetLogger(log)
	primary.SetWorkers(o.workers)
	primary.SetMaxDepth(o.depth)
	primary.SetGeometry(model.Shapes)
	primary.BuildAccelerationStructure()

	shadows := shading.NewShadowTracer(primary)
	shadows.SetMaxDepth(o.depth)

	primary.SetMissShader(shading.Background{})
	primary.SetClosestHitShader(&shading.DirectLighting{
		Scene:   &shading.Scene{Lights: lights},
		Shadows: shadows,
	})

	s := &scene{
		model:   model,
		camera:  cam,
		tracer:  primary,
		shadows: shadows,
		rng:     rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15)),
	}
	s.resize(o.width, o.height)
	return s, nil
}

// frameModel moves the camera back along its view direction until the
// model's bounding sphere fits the vertical angle of view.
func frameModel(cam *render.Camera, model *models.Model) {
	if model.Bounds.IsEmpty() {
		return
	}
	radius := model.Bounds.Size().Len() / 2
	half := raytracer.FieldOfViewScale(cam.AngleOfView)
	// radius / sin(fov/2), with a small margin.
	distance := 1.1 * radius * math.Sqrt(1+half*half) / half
	cam.Orbit(model.Bounds.Center(), distance, cam.Theta, cam.Phi)
}

// resize replaces the render target and resets accumulation.
func (s *scene) resize(width, height int) {
	s.fb = render.NewFramebuffer(width, height)
	s.tracer.SetRenderTarget(s.fb)
	s.tracer.SetViewport(width, height)
	s.tracer.ClearRenderTarget(render.RGB(0, 0, 0))
}

// pass traces accumulation pass frame with the current camera. Pass 0
// samples pixel centers; later passes jitter within the pixel.
func (s *scene) pass(frame int) {
	jitter := math3d.Vec2{}
	if frame > 0 {
		jitter = math3d.V2(s.rng.Float64()-0.5, s.rng.Float64()-0.5)
	}
	s.tracer.SetJitter(jitter)
	s.tracer.SetFieldOfView(s.camera.AngleOfView)
	s.tracer.SetDistanceRange(s.camera.Near, s.camera.Far)
	s.tracer.RayGeneration(
		s.camera.Position,
		s.camera.Forward(),
		s.camera.Right(),
		s.camera.Up(),
		1/float64(frame+1),
	)
}

// raysPerSecond is the throughput of primary and shadow rays together over
// the time spent in ray generation.
func (s *scene) raysPerSecond() float64 {
	st := s.tracer.Stats()
	st.Rays += s.shadows.Stats().Rays
	return st.RaysPerSecond()
}
