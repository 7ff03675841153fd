// cubic - Terminal 3D Shape Viewer
// Orbit generated shapes or glTF models in your terminal.
//
// Controls:
//
//	Left drag   - Orbit the camera
//	Right drag  - Pan
//	Scroll      - Zoom in/out
//	+/-         - Zoom in/out
//	Space       - Spin the model
//	X           - Toggle wireframe
//	R           - Reset view
//	Esc         - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/cubic/internal/config"
	"github.com/taigrr/cubic/internal/viewer"
	"github.com/taigrr/cubic/pkg/clock"
	"github.com/taigrr/cubic/pkg/geometry"
	"github.com/taigrr/cubic/pkg/gpu"
	"github.com/taigrr/cubic/pkg/math3d"
	"github.com/taigrr/cubic/pkg/orbit"
	"github.com/taigrr/cubic/pkg/render"
)

var (
	configPath   = flag.String("config", "", "Path to YAML config file")
	shapeKind    = flag.String("shape", "", "Shape to generate (overrides config)")
	modelPath    = flag.String("model", "", "View a glTF binary (.glb) instead of a generated shape")
	texturePath  = flag.String("texture", "", "Path to texture image (PNG/JPG/BMP/WebP)")
	snapshotPath = flag.String("snapshot", "", "Render one frame to this PNG file and exit")
	exportPath   = flag.String("export", "", "Write the geometry to this .glb file and exit")
	logPath      = flag.String("log", "", "Write debug logs to this file")
	targetFPS    = flag.Int("fps", 0, "Target FPS (overrides config)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "cubic - Terminal 3D Shape Viewer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: cubic [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nShapes: %v\n", geometry.Kinds())
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  Left drag   - Orbit\n")
		fmt.Fprintf(os.Stderr, "  Right drag  - Pan\n")
		fmt.Fprintf(os.Stderr, "  Scroll, +/- - Zoom in/out\n")
		fmt.Fprintf(os.Stderr, "  Space       - Spin the model\n")
		fmt.Fprintf(os.Stderr, "  X           - Toggle wireframe\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	mesh, image, err := loadMesh(cfg)
	if err != nil {
		return err
	}
	opts := []viewer.Option{viewer.WithGeometry(mesh)}
	if image != nil {
		opts = append(opts, viewer.WithTexture(gpu.FromBytes(image)))
	}

	if *exportPath != "" {
		if err := geometry.ExportGLB(mesh, *exportPath); err != nil {
			return err
		}
		fmt.Printf("Exported: %s (%d vertices, %d triangles)\n", *exportPath, mesh.VertexCount(), mesh.TriangleCount())
		return nil
	}

	if *snapshotPath != "" {
		return snapshot(cfg, logger, opts)
	}
	return interactive(cfg, logger, opts)
}

// loadConfig reads the config file when given and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}
	if *shapeKind != "" {
		cfg.Shape.Kind = *shapeKind
	}
	if *texturePath != "" {
		cfg.Texture = *texturePath
	}
	if *targetFPS > 0 {
		cfg.FPS = *targetFPS
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger logs to the -log file. Without one, logs go to stderr for
// snapshots and nowhere while the terminal is in use.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open log: %w", err)
		}
		h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
		return slog.New(h), func() { f.Close() }, nil
	}
	var w io.Writer = io.Discard
	if *snapshotPath != "" && cfg.Device.ConsoleOutput {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, nil)), func() {}, nil
}

// loadMesh returns the -model file scaled to fit a 2 unit cube around the
// origin along with its embedded texture, or the configured shape.
func loadMesh(cfg *config.Config) (geometry.Attribute, []byte, error) {
	if *modelPath == "" {
		mesh, err := cfg.Geometry()
		return mesh, nil, err
	}
	mesh, image, err := geometry.LoadGLBWithImage(*modelPath)
	if err != nil {
		return geometry.Attribute{}, nil, fmt.Errorf("load model: %w", err)
	}
	center := mesh.Center()
	size := mesh.Size()
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	if maxDim > 0 {
		scale := 2.0 / maxDim
		transform := math3d.Scaling(math3d.V3(scale, scale, scale)).Mul(math3d.Translation(center.Scale(-1)))
		mesh = mesh.Transform(transform)
	}
	if image != nil && cfg.Texture == "" {
		fmt.Printf("Using embedded texture (%d bytes)\n", len(image))
	}
	return mesh, image, nil
}

func newContext(cfg *config.Config, logger *slog.Logger, width, height int) (*gpu.Context, *render.Surface, error) {
	surface := render.NewSurface(width, height, render.WithExtensions(cfg.DeviceExtensions()...))
	opts := []gpu.Option{
		gpu.WithLogger(logger),
		gpu.WithConsoleOutput(cfg.Device.ConsoleOutput),
	}
	if !cfg.Device.PreferModern {
		opts = append(opts, gpu.WithBaseline())
	}
	ctx, err := gpu.NewContext(surface, opts...)
	if err != nil {
		return nil, nil, err
	}
	return ctx, surface, nil
}

// snapshot renders a single frame headlessly, waiting for the texture
// when one is configured.
func snapshot(cfg *config.Config, logger *slog.Logger, opts []viewer.Option) error {
	ctx, surface, err := newContext(cfg, logger, cfg.Device.Width, cfg.Device.Height)
	if err != nil {
		return err
	}
	v, err := viewer.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer v.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := v.Frame(0); err != nil {
			return err
		}
		if !v.TexturePending() || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if v.TexturePending() {
		fmt.Fprintln(os.Stderr, "Warning: texture not loaded before snapshot")
	}

	if err := surface.Device().Framebuffer().SavePNG(*snapshotPath); err != nil {
		return err
	}
	fmt.Printf("Saved: %s (%dx%d)\n", *snapshotPath, cfg.Device.Width, cfg.Device.Height)
	return nil
}

// pointer tracks held mouse buttons so motion events carry them.
type pointer struct {
	held orbit.Buttons
}

func (p *pointer) event(x, y int) orbit.PointerEvent {
	// Each cell holds two framebuffer rows.
	return orbit.PointerEvent{X: float64(x), Y: float64(y * 2), Buttons: p.held}
}

func buttonOf(b uv.MouseButton) orbit.Buttons {
	switch b {
	case uv.MouseLeft:
		return orbit.ButtonPrimary
	case uv.MouseRight:
		return orbit.ButtonSecondary
	}
	return 0
}

func interactive(cfg *config.Config, logger *slog.Logger, opts []viewer.Option) error {
	// Create terminal
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	gctx, surface, err := newContext(cfg, logger, width, height*2)
	if err != nil {
		return err
	}
	cfg.Device.Width, cfg.Device.Height = width, height*2
	v, err := viewer.New(gctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer v.Close()

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
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Events are forwarded so all state changes happen on the frame loop.
	events := make(chan uv.Event, 64)
	go func() {
		for ev := range term.Events() {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	var ptr pointer
	cam := v.Camera()
	handle := func(ev uv.Event) {
		switch ev := ev.(type) {
		case uv.WindowSizeEvent:
			width, height = ev.Width, ev.Height
			term.Erase()
			term.Resize(width, height)
			surface.Device().Resize(width, height*2)
			v.Resize(width, height*2)

		case uv.KeyPressEvent:
			switch {
			case ev.MatchString("escape", "ctrl+c", "q"):
				cancel()
			case ev.MatchString("space"):
				v.Spin((rand.Float64() - 0.5) * 1.5)
			case ev.MatchString("x"):
				v.ToggleWireframe()
			case ev.MatchString("r"):
				v.Reset()
				cam.Reset()
			case ev.MatchString("+", "="):
				cam.Wheel(orbit.WheelEvent{DeltaY: -1})
			case ev.MatchString("-", "_"):
				cam.Wheel(orbit.WheelEvent{DeltaY: 1})
			}

		case uv.MouseClickEvent:
			ptr.held |= buttonOf(ev.Button)
			cam.PointerDown(ptr.event(ev.X, ev.Y))

		case uv.MouseReleaseEvent:
			cam.PointerUp(ptr.event(ev.X, ev.Y))
			ptr.held = 0

		case uv.MouseMotionEvent:
			cam.PointerMove(ptr.event(ev.X, ev.Y))

		case uv.MouseWheelEvent:
			switch ev.Button {
			case uv.MouseWheelUp:
				cam.Wheel(orbit.WheelEvent{DeltaY: -1})
			case uv.MouseWheelDown:
				cam.Wheel(orbit.WheelEvent{DeltaY: 1})
			}
		}
	}

	// Main loop
	targetDuration := time.Second / time.Duration(cfg.FPS)
	timer := clock.New()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

	drain:
		for {
			select {
			case ev := <-events:
				handle(ev)
			default:
				break drain
			}
		}

		start := time.Now()
		dt := min(timer.Delta(), 0.1)

		if err := v.Frame(dt); err != nil {
			return fmt.Errorf("frame: %w", err)
		}

		// Display
		fb := surface.Device().Framebuffer()
		fb.Draw(term, uv.Rect(0, 0, width, height))
		if err := term.Display(); err != nil {
			return fmt.Errorf("display: %w", err)
		}

		// Frame timing
		elapsed := time.Since(start)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
