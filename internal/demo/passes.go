package demo

import (
	"fmt"
	"io/fs"

	"github.com/Faultbox/midgard-fx/internal/config"
	"github.com/Faultbox/midgard-fx/internal/engine/blur"
	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/internal/engine/lighting"
	"github.com/Faultbox/midgard-fx/internal/engine/mipmap"
	"github.com/Faultbox/midgard-fx/internal/engine/shader"
	"github.com/Faultbox/midgard-fx/internal/engine/shading"
	"github.com/Faultbox/midgard-fx/pkg/math"
)

// Mode cycles, in the order the keys step through them.
var (
	blurModes    = []string{config.BlurOff, config.BlurSingle, config.BlurSeparable}
	shadingModes = []string{
		config.ShadingEmissive, config.ShadingShadows, config.ShadingNoShadows,
		config.ShadingRays, config.ShadingRaysNoShadows,
	}
)

// Output selects the texture presented on screen.
type Output int

const (
	OutputColor Output = iota
	OutputIllumination
	OutputEdgeDistance
	outputCount
)

func (o Output) String() string {
	switch o {
	case OutputColor:
		return "color"
	case OutputIllumination:
		return "illumination"
	case OutputEdgeDistance:
		return "edge distance"
	default:
		return "unknown"
	}
}

// Passes runs the post-processing chain over one frame's textures.
type Passes struct {
	Modes  config.PassesConfig
	Output Output

	compiler *shader.CompileContext
	blur     *blur.Renderer
	mipmap   *mipmap.Renderer
	shading  *shading.Renderer
	tex      *textures
}

// NewPasses creates the pass renderers driving core.
func NewPasses(core gpu.Core, modes config.PassesConfig) *Passes {
	return &Passes{
		Modes:    modes,
		compiler: shader.NewCompileContext(),
		blur:     blur.New(core),
		mipmap:   mipmap.New(core),
		shading:  shading.New(core),
	}
}

// Initialize allocates width x height textures and compiles every program
// from fsys.
func (p *Passes) Initialize(dev gpu.Device, fsys fs.FS, width, height int) (err error) {
	defer func() {
		if err != nil {
			p.Release(dev)
		}
	}()

	if p.tex, err = createTextures(dev, width, height); err != nil {
		return err
	}
	if err = p.blur.Initialize(width, height, dev, p.compiler, fsys); err != nil {
		return err
	}
	if err = p.mipmap.Initialize(dev, p.compiler, fsys); err != nil {
		return err
	}
	return p.shading.Initialize(width, height, dev, p.compiler, fsys)
}

// Programs returns how many programs have been compiled.
func (p *Passes) Programs() uint64 {
	return p.compiler.Compiled()
}

// Upload writes a CPU frame into the input textures.
func (p *Passes) Upload(w TextureWriter, f *Frame) error {
	return p.tex.upload(w, f)
}

// Run executes mipmap, edge distance, blur and shading in that order.
// lights[0] is the shadow-casting light.
func (p *Passes) Run(cam shading.Viewer, lights []lighting.PointLight) error {
	if len(lights) == 0 {
		lights = []lighting.PointLight{{Position: cam.Position(), Color: math.Vec3{X: 1, Y: 1, Z: 1}}}
	}
	key := lights[0]
	t := p.tex

	if p.Modes.Mipmap {
		if err := p.mipmap.GenerateMipmapsMinValue(t.distToOccluder); err != nil {
			return err
		}
	}
	if err := p.blur.ComputeEdgeDistance(t.edgeDist, t.distToEdge); err != nil {
		return err
	}

	in := blur.Inputs{
		Position:           t.position,
		Normal:             t.normal,
		HardShadow:         t.hardShadow,
		SoftShadow:         t.softShadow,
		DistanceToOccluder: t.distToOccluder,
	}
	illumination := t.hardShadow
	switch p.Modes.Blur {
	case config.BlurSingle:
		if err := p.blur.BlurShadows(cam, in, key); err != nil {
			return err
		}
		illumination = p.blur.IlluminationTexture()
	case config.BlurSeparable:
		if err := p.blur.BlurShadowsHorzVert(cam, in, key); err != nil {
			return err
		}
		illumination = p.blur.IlluminationTexture()
	}

	if err := p.shading.PerformEmissiveShading(t.color, t.emissive); err != nil {
		return err
	}

	material := shading.Material{Albedo: t.albedo, Metalness: t.metalness, Roughness: t.roughness, Normal: t.normal}
	g := shading.GBuffer{Position: t.position, Material: material}
	hits := shading.RayHits{RayOrigin: t.rayOrigin, HitPosition: t.position, Material: material}

	switch p.Modes.Shading {
	case config.ShadingShadows:
		return p.shading.PerformShading(cam, t.color, g, illumination, key)
	case config.ShadingNoShadows:
		return p.shading.PerformShadingNoShadows(cam, t.color, g, t.ao, lights)
	case config.ShadingRays:
		return p.shading.PerformShadingRays(t.color, hits, illumination, key)
	case config.ShadingRaysNoShadows:
		return p.shading.PerformShadingRaysNoShadows(t.color, hits, lights)
	case config.ShadingEmissive:
		return nil
	default:
		return fmt.Errorf("unknown shading mode %q: %w", p.Modes.Shading, gpu.ErrInvalidArgument)
	}
}

// Presented returns the texture selected by Output.
func (p *Passes) Presented() *gpu.Texture {
	switch p.Output {
	case OutputIllumination:
		if p.Modes.Blur == config.BlurOff {
			return p.tex.hardShadow
		}
		return p.blur.IlluminationTexture()
	case OutputEdgeDistance:
		return p.tex.edgeDist
	default:
		return p.tex.color
	}
}

// CycleBlur steps to the next blur mode.
func (p *Passes) CycleBlur() { p.Modes.Blur = next(blurModes, p.Modes.Blur) }

// CycleShading steps to the next shading mode.
func (p *Passes) CycleShading() { p.Modes.Shading = next(shadingModes, p.Modes.Shading) }

// CycleOutput steps to the next presented texture.
func (p *Passes) CycleOutput() { p.Output = (p.Output + 1) % outputCount }

// Release frees every texture and program.
func (p *Passes) Release(dev gpu.Device) {
	p.shading.Release(dev)
	p.mipmap.Release(dev)
	p.blur.Release(dev)
	if p.tex != nil {
		p.tex.release(dev)
		p.tex = nil
	}
}

func next(modes []string, cur string) string {
	for i, m := range modes {
		if m == cur {
			return modes[(i+1)%len(modes)]
		}
	}
	return modes[0]
}
