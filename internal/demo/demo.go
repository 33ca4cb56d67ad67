// Package demo implements the interactive viewer that drives every pass.
package demo

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fx/internal/config"
	"github.com/Faultbox/midgard-fx/internal/engine/camera"
	"github.com/Faultbox/midgard-fx/internal/engine/debug"
	"github.com/Faultbox/midgard-fx/internal/engine/input"
	"github.com/Faultbox/midgard-fx/internal/engine/lighting"
	"github.com/Faultbox/midgard-fx/internal/engine/mesh"
	"github.com/Faultbox/midgard-fx/internal/engine/meshload"
	"github.com/Faultbox/midgard-fx/internal/engine/renderer"
	"github.com/Faultbox/midgard-fx/internal/engine/shaders"
	"github.com/Faultbox/midgard-fx/internal/engine/window"
	"github.com/Faultbox/midgard-fx/internal/logger"
	"github.com/Faultbox/midgard-fx/pkg/math"
)

// Demo is the viewer instance.
type Demo struct {
	config   *config.Config
	running  bool
	paused   bool
	log      *zap.Logger
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	shots    *debug.Screenshots

	camera *camera.OrbitCamera
	meshes []*mesh.Mesh
	scene  *Scene
	frame  *Frame
	passes *Passes

	// Light orbit angle in radians.
	lightAngle float32
	// Capture the next presented frame.
	screenshot bool
}

// New opens the window, loads meshes and compiles every pass.
func New(cfg *config.Config) (*Demo, error) {
	d := &Demo{
		config: cfg,
		log:    logger.Named("demo"),
		camera: camera.NewOrbitCamera(),
		input:  input.New(),
		shots:  debug.NewScreenshots("screenshots", "midgard-fx"),
	}
	d.log.Info("initializing demo",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
	)

	// Create window (this also creates OpenGL context)
	var err error
	d.window, err = window.New(window.Config{
		Title:      "Midgard FX",
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create renderer (AFTER window, since OpenGL context must exist)
	d.renderer, err = renderer.New()
	if err != nil {
		d.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	if err := d.load(); err != nil {
		d.Close()
		return nil, err
	}

	d.log.Info("demo initialized",
		zap.Int("meshes", len(d.meshes)),
		zap.Uint64("programs", d.passes.Programs()),
	)
	return d, nil
}

func (d *Demo) load() error {
	if path := d.config.Assets.MeshManifest; path != "" {
		manifest, err := meshload.LoadManifest(path)
		if err != nil {
			return err
		}
		if d.meshes, err = manifest.Load(meshload.DefaultRegistry); err != nil {
			return err
		}
	}
	for _, m := range d.meshes {
		if err := m.UploadToGPU(d.renderer, false); err != nil {
			return fmt.Errorf("uploading %s: %w", m.Source.Path, err)
		}
	}

	d.scene = SceneFromMeshes(d.meshes)
	d.camera.FitToBounds(d.scene.Bounds())

	w, h := d.config.Graphics.Width, d.config.Graphics.Height
	d.frame = NewFrame(w, h)
	d.passes = NewPasses(d.renderer, d.config.Passes)
	if err := d.passes.Initialize(d.renderer, d.shaderFS(), w, h); err != nil {
		return fmt.Errorf("initializing passes: %w", err)
	}
	return nil
}

// shaderFS prefers an on-disk shader directory over the built-in sources.
func (d *Demo) shaderFS() fs.FS {
	if dir := d.config.Shaders.Dir; dir != "" {
		d.log.Info("loading shaders from disk", zap.String("dir", dir))
		return os.DirFS(dir)
	}
	return shaders.FS
}

// Run starts the main loop.
func (d *Demo) Run(ctx context.Context) error {
	d.running = true

	// Timing
	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	d.log.Info("starting main loop",
		zap.String("blur", d.passes.Modes.Blur),
		zap.String("shading", d.passes.Modes.Shading),
	)

	for d.running {
		if err := ctx.Err(); err != nil {
			return nil
		}

		// Calculate delta time
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		// 1. Process input
		d.handleInput(d.input.Update())
		if !d.running {
			break
		}

		// 2. Update state
		if !d.paused {
			d.lightAngle += dt * 0.5
		}

		// 3. Render
		if err := d.render(ctx); err != nil {
			return fmt.Errorf("render error: %w", err)
		}

		// 4. Present (swap buffers)
		d.window.SwapBuffers()

		// FPS counter
		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			d.log.Debug("fps", zap.Int("count", frameCount), zap.Float32("dt_ms", dt*1000))
			d.window.SetTitle(fmt.Sprintf("Midgard FX - %s / %s / %s - %d fps",
				d.passes.Modes.Blur, d.passes.Modes.Shading, d.passes.Output, frameCount))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (d *Demo) handleInput(in input.State) {
	if in.Quit {
		d.running = false
		return
	}
	d.camera.HandleDrag(in.DragX, in.DragY)
	d.camera.HandleZoom(in.Zoom)

	for _, action := range in.Actions {
		switch action {
		case input.ActionCycleBlur:
			d.passes.CycleBlur()
		case input.ActionCycleShading:
			d.passes.CycleShading()
		case input.ActionToggleMipmap:
			d.passes.Modes.Mipmap = !d.passes.Modes.Mipmap
		case input.ActionCycleOutput:
			d.passes.CycleOutput()
		case input.ActionPause:
			d.paused = !d.paused
		case input.ActionScreenshot:
			d.screenshot = true
			continue
		default:
			continue
		}
		d.log.Info("passes changed",
			zap.String("blur", d.passes.Modes.Blur),
			zap.String("shading", d.passes.Modes.Shading),
			zap.Bool("mipmap", d.passes.Modes.Mipmap),
			zap.Stringer("output", d.passes.Output),
			zap.Bool("paused", d.paused),
		)
	}
}

// lights places the configured number of lights on a ring above the scene.
func (d *Demo) lights() []lighting.PointLight {
	n := max(d.passes.Modes.Lights, 1)
	lights := make([]lighting.PointLight, 0, n)
	white := math.Vec3{X: 1, Y: 0.95, Z: 0.9}
	for i := 0; i < n; i++ {
		lon := d.lightAngle + float32(i)*2*math32.Pi/float32(n)
		lights = append(lights, lighting.OrbitLight(d.camera.Center, 6, lon, 0.8, white))
	}
	return lights
}

func (d *Demo) render(ctx context.Context) error {
	lights := d.lights()

	if err := d.scene.Render(ctx, d.frame, d.camera.Position(), d.camera.Center, lights[0].Position); err != nil {
		return err
	}
	if err := d.passes.Upload(d.renderer, d.frame); err != nil {
		return err
	}
	if err := d.passes.Run(d.camera, lights); err != nil {
		return err
	}

	w, h := d.window.Size()
	d.renderer.Begin(w, h)
	if err := d.renderer.Present(d.passes.Presented(), w, h); err != nil {
		return err
	}

	if d.screenshot {
		d.screenshot = false
		name, err := d.shots.Save(d.renderer.ReadScreen(w, h), w, h)
		if err != nil {
			d.log.Warn("screenshot failed", zap.Error(err))
		} else {
			d.log.Info("screenshot saved", zap.String("file", name))
		}
	}
	return nil
}

// Close releases GPU resources and the window.
func (d *Demo) Close() {
	d.log.Info("closing demo")

	if d.renderer != nil {
		if d.passes != nil {
			d.passes.Release(d.renderer)
		}
		for _, m := range d.meshes {
			m.EvictFromGPU(d.renderer)
		}
		d.renderer.Close()
	}
	if d.window != nil {
		d.window.Close()
	}
}
