package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"

	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/render"
)

type viewOptions struct {
	scene sceneOptions
	fps   int
}

func newViewCmd() *cobra.Command {
	var opts viewOptions

	cmd := &cobra.Command{
		Use:   "view [model.obj|model.gltf|model.glb]",
		Short: "Interactive progressive preview in the terminal",
		Long: `Traces the scene at terminal resolution and keeps refining it while the
camera is still. Any camera motion restarts accumulation.

Controls:
  Mouse drag  - Orbit around the scene
  Scroll, +/- - Zoom in/out
  W/S, A/D    - Orbit up/down, left/right
  H/L, K/J    - Pan left/right, up/down
  I/O         - Dolly in/out
  Space       - Random spin
  R           - Reset view
  ?           - Toggle HUD overlay
  Esc, Q      - Quit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, &opts, args)
		},
	}

	opts.scene.register(cmd.Flags())
	cmd.Flags().IntVar(&opts.fps, "fps", 30, "target frames per second")
	return cmd
}

// OrbitAxis tracks position and velocity for one orbit parameter with
// spring decay.
type OrbitAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64 // internal spring velocity (for animating Velocity toward 0)
}

// NewOrbitAxis creates an axis with a harmonica spring for smooth velocity
// decay.
func NewOrbitAxis(fps int, position float64) OrbitAxis {
	return OrbitAxis{
		Position: position,
		// Frequency 4.0 = moderate speed, damping 1.0 = critically damped (no overshoot)
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update applies velocity to position and decays velocity toward 0.
func (a *OrbitAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
	if math.Abs(a.Velocity) < 1e-4 && math.Abs(a.velAccel) < 1e-4 {
		a.Velocity, a.velAccel = 0, 0
	}
}

// Orbit holds the camera's spherical coordinates around the scene center.
type Orbit struct {
	Theta, Phi, Distance OrbitAxis
	Center               math3d.Vec3

	fps           int
	initial       [3]float64
	initialCenter math3d.Vec3
}

// NewOrbit creates an orbit matching the camera's current view of center.
func NewOrbit(fps int, cam *render.Camera, center math3d.Vec3) *Orbit {
	cam.LookAt(center)
	dist := math.Max(cam.Position.Distance(center), 0.1)
	o := &Orbit{
		Center:        center,
		fps:           fps,
		initial:       [3]float64{cam.Theta, cam.Phi, dist},
		initialCenter: center,
	}
	o.Reset()
	return o
}

// Update advances every axis by one frame.
func (o *Orbit) Update() {
	o.Theta.Update()
	o.Phi.Update()
	o.Distance.Update()
	o.Phi.Position = math.Max(-85, math.Min(85, o.Phi.Position))
	o.Distance.Position = math.Max(0.1, o.Distance.Position)
}

// ApplyImpulse adds angular velocity in degrees per frame.
func (o *Orbit) ApplyImpulse(theta, phi float64) {
	o.Theta.Velocity += theta
	o.Phi.Velocity += phi
}

// Zoom adds radial velocity.
func (o *Orbit) Zoom(amount float64) {
	o.Distance.Velocity += amount
}

// Pan moves cam with one of its Move methods and carries the orbit center
// along, keeping the view direction.
func (o *Orbit) Pan(cam *render.Camera, move func(float64), distance float64) {
	before := cam.Position
	move(distance)
	o.Center = o.Center.Add(cam.Position.Sub(before))
}

// step is the pan distance for one key press, relative to the orbit radius.
func (o *Orbit) step() float64 {
	return 0.05 * o.Distance.Position
}

// Reset returns to the initial view.
func (o *Orbit) Reset() {
	o.Center = o.initialCenter
	o.Theta = NewOrbitAxis(o.fps, o.initial[0])
	o.Phi = NewOrbitAxis(o.fps, o.initial[1])
	o.Distance = NewOrbitAxis(o.fps, o.initial[2])
}

// Apply places cam on the orbit.
func (o *Orbit) Apply(cam *render.Camera) {
	cam.Orbit(o.Center, o.Distance.Position, o.Theta.Position, o.Phi.Position)
}

// HUD renders an overlay with model info and refinement progress.
type HUD struct {
	name      string
	triangles int
	style     lipgloss.Style
	show      bool
}

// NewHUD creates a new HUD.
func NewHUD(name string, triangles int) *HUD {
	return &HUD{
		name:      name,
		triangles: triangles,
		style:     lipgloss.NewStyle().Background(lipgloss.Color("#000000")).Foreground(lipgloss.Color("#FFFFFF")),
		show:      true,
	}
}

// Render draws the HUD on the top terminal row.
func (h *HUD) Render(frame, frames int, raysPerSecond float64) {
	const clearLine = "\x1b[2K"
	fmt.Print("\x1b[1;1H" + clearLine)
	if !h.show {
		return
	}
	status := fmt.Sprintf(" %s  %d tris  pass %d/%d  %.1f Mrays/s ",
		h.name, h.triangles, frame, frames, raysPerSecond/1e6)
	fmt.Print(h.style.Render(status))
}

// drawable reports whether a resized terminal has room for a framebuffer.
func drawable(ev uv.WindowSizeEvent) bool {
	return ev.Width > 0 && ev.Height > 0
}

func runView(cmd *cobra.Command, opts *viewOptions, args []string) error {
	if opts.fps < 1 {
		return fmt.Errorf("--fps must be at least 1, got %d", opts.fps)
	}
	log := newLogger(cmd.ErrOrStderr())

	// Create terminal
	term := uv.DefaultTerminal()
	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	termRenderer := render.NewTerminalRenderer(term, width, height)
	opts.scene.width, opts.scene.height = termRenderer.FramebufferSize()
	s, err := newScene(cmd, &opts.scene, args, log)
	if err != nil {
		return err
	}
	s.tracer.SetLogger(nil)

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Enable mouse mode
	fmt.Fprint(os.Stdout, "\x1b[?1003h") // Enable any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // Enable SGR extended mouse mode

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}
	defer cleanup()

	// Context for clean shutdown
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	orbit := NewOrbit(opts.fps, s.camera, s.model.Bounds.Center())
	hud := NewHUD(s.model.Name, s.model.TriangleCount())

	var mouseDown bool
	var lastMouseX, lastMouseY int
	frame := 0
	restart := func() { frame = 0 }

	targetDuration := time.Second / time.Duration(opts.fps)
	events := term.Events()

	for {
		now := time.Now()

		// Drain pending input.
	drain:
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-events:
				switch ev := ev.(type) {
				case uv.WindowSizeEvent:
					if !drawable(ev) {
						continue
					}
					width, height = ev.Width, ev.Height
					term.Erase()
					term.Resize(width, height)
					termRenderer = render.NewTerminalRenderer(term, width, height)
					s.resize(termRenderer.FramebufferSize())
					restart()

				case uv.KeyPressEvent:
					switch {
					case ev.MatchString("escape", "q", "ctrl+c"):
						return nil
					case ev.MatchString("w", "up"):
						orbit.ApplyImpulse(0, 1.5)
					case ev.MatchString("s", "down"):
						orbit.ApplyImpulse(0, -1.5)
					case ev.MatchString("a", "left"):
						orbit.ApplyImpulse(1.5, 0)
					case ev.MatchString("d", "right"):
						orbit.ApplyImpulse(-1.5, 0)
					case ev.MatchString("h"):
						orbit.Pan(s.camera, s.camera.MoveRight, -orbit.step())
					case ev.MatchString("l"):
						orbit.Pan(s.camera, s.camera.MoveRight, orbit.step())
					case ev.MatchString("k"):
						orbit.Pan(s.camera, s.camera.MoveUp, orbit.step())
					case ev.MatchString("j"):
						orbit.Pan(s.camera, s.camera.MoveUp, -orbit.step())
					case ev.MatchString("i"):
						orbit.Pan(s.camera, s.camera.MoveForward, orbit.step())
					case ev.MatchString("o"):
						orbit.Pan(s.camera, s.camera.MoveForward, -orbit.step())
					case ev.MatchString("+", "="):
						orbit.Zoom(-0.05)
					case ev.MatchString("-", "_"):
						orbit.Zoom(0.05)
					case ev.MatchString("space"):
						orbit.ApplyImpulse((s.rng.Float64()-0.5)*20, (s.rng.Float64()-0.5)*10)
					case ev.MatchString("r"):
						orbit.Reset()
						restart()
					case ev.MatchString("?"), ev.MatchString("shift+/"):
						hud.show = !hud.show
					}

				case uv.MouseClickEvent:
					mouseDown = true
					lastMouseX, lastMouseY = ev.X, ev.Y

				case uv.MouseReleaseEvent:
					mouseDown = false

				case uv.MouseMotionEvent:
					if mouseDown {
						dx := ev.X - lastMouseX
						dy := ev.Y - lastMouseY
						orbit.ApplyImpulse(-float64(dx)*0.5, float64(dy)*0.5)
						lastMouseX, lastMouseY = ev.X, ev.Y
					}

				case uv.MouseWheelEvent:
					switch ev.Button {
					case uv.MouseWheelUp:
						orbit.Zoom(-0.05)
					case uv.MouseWheelDown:
						orbit.Zoom(0.05)
					}
				}
			default:
				break drain
			}
		}

		// Any camera motion invalidates the accumulated image.
		before := *s.camera
		orbit.Update()
		orbit.Apply(s.camera)
		if *s.camera != before {
			restart()
		}

		if frame < opts.scene.frames {
			s.pass(frame)
			frame++
		}

		termRenderer.Render(s.fb)
		if err := termRenderer.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		hud.Render(frame, opts.scene.frames, s.raysPerSecond())

		// Frame timing
		elapsed := time.Since(now)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
