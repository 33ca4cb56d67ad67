// Package shading turns G-buffer or ray-hit textures plus lights into a
// shaded color target.
package shading

import (
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/internal/engine/lighting"
	"github.com/Faultbox/midgard-fx/internal/engine/shader"
	"github.com/Faultbox/midgard-fx/internal/logger"
	"github.com/Faultbox/midgard-fx/pkg/math"
)

// Shader sources, relative to the shader file system.
const (
	EmissiveSource      = "shading_emissive.comp"
	ShadingSource       = "shading.comp"
	RaysSource          = "shading_rays.comp"
	NoShadowsSource     = "shading_no_shadows.comp"
	RaysNoShadowsSource = "shading_rays_no_shadows.comp"
)

// Viewer is anything with a world-space eye position.
type Viewer interface {
	Position() math.Vec3
}

// Material holds the surface textures shared by every lit entry point.
type Material struct {
	Albedo    *gpu.Texture
	Metalness *gpu.Texture
	Roughness *gpu.Texture
	Normal    *gpu.Texture
}

// GBuffer is a rasterized surface: world position plus material.
type GBuffer struct {
	Position *gpu.Texture
	Material
}

// RayHits is a traced surface: where each ray started, where it hit, and
// the material at the hit.
type RayHits struct {
	RayOrigin   *gpu.Texture
	HitPosition *gpu.Texture
	Material
}

// Renderer owns the shading programs.
type Renderer struct {
	core gpu.Core

	initialized bool
	width       int
	height      int

	emissive      *shader.Stage
	shading       *shader.Stage
	rays          *shader.Stage
	noShadows     *shader.Stage
	raysNoShadows *shader.Stage

	// Reused between calls; Set rewrites every slot.
	lights lighting.LightArray
}

// New creates an uninitialized renderer driving core.
func New(core gpu.Core) *Renderer {
	return &Renderer{
		core:          core,
		emissive:      shader.NewStage(shader.ShadingEmissive),
		shading:       shader.NewStage(shader.Shading),
		rays:          shader.NewStage(shader.ShadingRays),
		noShadows:     shader.NewStage(shader.ShadingNoShadows),
		raysNoShadows: shader.NewStage(shader.ShadingRaysNoShadows),
	}
}

// Initialize records the image size and compiles the five programs.
func (r *Renderer) Initialize(width, height int, dev gpu.Device, cc *shader.CompileContext, fsys fs.FS) (err error) {
	if r.initialized {
		return fmt.Errorf("initializing shading: %w", gpu.ErrAlreadyInitialized)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("initializing shading: size %dx%d: %w", width, height, gpu.ErrInvalidArgument)
	}
	defer func() {
		if err != nil {
			r.Release(dev)
		}
	}()

	for _, s := range []struct {
		stage *shader.Stage
		path  string
	}{
		{r.emissive, EmissiveSource},
		{r.shading, ShadingSource},
		{r.rays, RaysSource},
		{r.noShadows, NoShadowsSource},
		{r.raysNoShadows, RaysNoShadowsSource},
	} {
		if err = s.stage.Compile(cc, dev, fsys, s.path); err != nil {
			return fmt.Errorf("initializing shading: %w", err)
		}
	}

	r.width, r.height = width, height
	r.initialized = true
	logger.Named("shading").Info("initialized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

// PerformEmissiveShading writes the emissive color into target.
func (r *Renderer) PerformEmissiveShading(target, emissive *gpu.Texture) error {
	return r.run("emissive shading", r.emissive, target, nil, emissive)
}

// PerformShading shades a G-buffer lit by one shadowed light.
func (r *Renderer) PerformShading(cam Viewer, target *gpu.Texture, g GBuffer, shadow *gpu.Texture, light lighting.PointLight) error {
	if cam == nil {
		return fmt.Errorf("shading: nil camera: %w", gpu.ErrInvalidArgument)
	}
	c := shader.EncodeConstants(shader.ShadingConstants{
		CameraPosition: math.FromVec3(cam.Position(), 0),
		LightPosition:  light.PositionVec4(),
		LightColor:     light.ColorVec4(),
	})
	return r.run("shading", r.shading, target, c,
		g.Position, g.Albedo, g.Metalness, g.Roughness, g.Normal, shadow)
}

// PerformShadingNoShadows shades a G-buffer lit by up to
// lighting.MaxPointLights unshadowed lights, attenuated by ambient
// occlusion. Extra lights are ignored.
func (r *Renderer) PerformShadingNoShadows(cam Viewer, target *gpu.Texture, g GBuffer, ao *gpu.Texture, lights []lighting.PointLight) error {
	if cam == nil {
		return fmt.Errorf("shading without shadows: nil camera: %w", gpu.ErrInvalidArgument)
	}
	r.setLights(lights)
	c := shader.EncodeConstants(shader.LightArrayConstants{
		CameraPosition: math.FromVec3(cam.Position(), 0),
		Lights:         r.lights,
	})
	return r.run("shading without shadows", r.noShadows, target, c,
		g.Position, g.Albedo, g.Metalness, g.Roughness, g.Normal, ao)
}

// PerformShadingRays shades ray hits lit by one shadowed light.
func (r *Renderer) PerformShadingRays(target *gpu.Texture, hits RayHits, shadow *gpu.Texture, light lighting.PointLight) error {
	c := shader.EncodeConstants(shader.RaysConstants{
		LightPosition: light.PositionVec4(),
		LightColor:    light.ColorVec4(),
	})
	return r.run("ray shading", r.rays, target, c,
		hits.RayOrigin, hits.HitPosition, hits.Albedo, hits.Metalness, hits.Roughness, hits.Normal, shadow)
}

// PerformShadingRaysNoShadows shades ray hits lit by up to
// lighting.MaxPointLights unshadowed lights.
func (r *Renderer) PerformShadingRaysNoShadows(target *gpu.Texture, hits RayHits, lights []lighting.PointLight) error {
	r.setLights(lights)
	c := shader.EncodeConstants(shader.RaysLightArrayConstants{Lights: r.lights})
	return r.run("ray shading without shadows", r.raysNoShadows, target, c,
		hits.RayOrigin, hits.HitPosition, hits.Albedo, hits.Metalness, hits.Roughness, hits.Normal)
}

// Lights returns the light block written by the last multi-light call.
func (r *Renderer) Lights() lighting.LightArray {
	return r.lights
}

// Release frees the programs and their constant buffers.
func (r *Renderer) Release(dev gpu.Device) {
	for _, s := range []*shader.Stage{r.emissive, r.shading, r.rays, r.noShadows, r.raysNoShadows} {
		s.Release(dev)
	}
	r.initialized = false
}

func (r *Renderer) setLights(lights []lighting.PointLight) {
	if n := r.lights.Set(lights); n < len(lights) {
		logger.Named("shading").Debug("lights truncated",
			zap.Int("given", len(lights)),
			zap.Int("max", lighting.MaxPointLights),
		)
	}
}

// run performs one compute pass into target: disable raster mode, dispatch
// stage over the image, return to idle.
func (r *Renderer) run(op string, stage *shader.Stage, target *gpu.Texture, constants []byte, inputs ...*gpu.Texture) error {
	if !r.initialized {
		return fmt.Errorf("%s: %w", op, gpu.ErrNotInitialized)
	}
	if target == nil || target.Desc.Bind&gpu.BindUnorderedAccess == 0 {
		return fmt.Errorf("%s: target is not writable: %w", op, gpu.ErrInvalidArgument)
	}
	views, err := gpu.Views(inputs...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.core.DisableRenderingPipeline()
	err = stage.Dispatch(r.core, gpu.GroupCount(r.width, r.height), []*gpu.Texture{target}, constants, views...)
	r.core.DisableComputePipeline()

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
