// Package blur filters the shadow illumination buffer, either in one pass or
// as a separable horizontal + vertical pair.
package blur

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
	CombinedSource     = "blur_shadows.comp"
	HorizontalSource   = "blur_shadows_horizontal.comp"
	VerticalSource     = "blur_shadows_vertical.comp"
	EdgeDistanceSource = "edge_distance.comp"
)

// Viewer is anything with a world-space eye position.
type Viewer interface {
	Position() math.Vec3
}

// Inputs are the G-buffer and shadow textures the blur reads.
type Inputs struct {
	Position           *gpu.Texture
	Normal             *gpu.Texture
	HardShadow         *gpu.Texture
	SoftShadow         *gpu.Texture
	DistanceToOccluder *gpu.Texture
}

// Renderer owns the illumination targets and blur programs.
type Renderer struct {
	core gpu.Core

	initialized bool
	width       int
	height      int

	illumination     *gpu.Texture
	illuminationTemp *gpu.Texture

	combined     *shader.Stage
	horizontal   *shader.Stage
	vertical     *shader.Stage
	edgeDistance *shader.Stage
}

// New creates an uninitialized blur renderer driving core.
func New(core gpu.Core) *Renderer {
	return &Renderer{
		core:         core,
		combined:     shader.NewStage(shader.BlurShadows),
		horizontal:   shader.NewStage(shader.BlurShadows),
		vertical:     shader.NewStage(shader.BlurShadows),
		edgeDistance: shader.NewStage(shader.EdgeDistance),
	}
}

// Initialize creates the width x height illumination targets and compiles
// the blur programs from fsys. It can only succeed once; on failure nothing
// stays allocated.
func (r *Renderer) Initialize(width, height int, dev gpu.Device, cc *shader.CompileContext, fsys fs.FS) (err error) {
	if r.initialized {
		return fmt.Errorf("initializing blur: %w", gpu.ErrAlreadyInitialized)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("initializing blur: size %dx%d: %w", width, height, gpu.ErrInvalidArgument)
	}
	defer func() {
		if err != nil {
			r.Release(dev)
		}
	}()

	if err = r.createRenderTargets(width, height, dev); err != nil {
		return err
	}
	if err = r.compileShaders(dev, cc, fsys); err != nil {
		return err
	}

	r.width, r.height = width, height
	r.initialized = true
	logger.Named("blur").Info("initialized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

func (r *Renderer) createRenderTargets(width, height int, dev gpu.Device) error {
	desc := gpu.TextureDesc{
		Width:  width,
		Height: height,
		Format: gpu.FormatR8Unorm,
		Bind:   gpu.BindShaderResource | gpu.BindUnorderedAccess | gpu.BindRenderTarget,
	}

	var err error
	desc.Label = "illumination"
	if r.illumination, err = dev.CreateTexture(desc); err != nil {
		return gpu.WrapResource("creating illumination target", err)
	}
	desc.Label = "illumination temp"
	if r.illuminationTemp, err = dev.CreateTexture(desc); err != nil {
		return gpu.WrapResource("creating illumination temp target", err)
	}
	return nil
}

func (r *Renderer) compileShaders(dev gpu.Device, cc *shader.CompileContext, fsys fs.FS) error {
	stages := []struct {
		stage *shader.Stage
		path  string
	}{
		{r.combined, CombinedSource},
		{r.horizontal, HorizontalSource},
		{r.vertical, VerticalSource},
		{r.edgeDistance, EdgeDistanceSource},
	}
	for _, s := range stages {
		if err := s.stage.Compile(cc, dev, fsys, s.path); err != nil {
			return fmt.Errorf("initializing blur: %w", err)
		}
	}
	return nil
}

// BlurShadows blurs in a single pass into the illumination texture.
func (r *Renderer) BlurShadows(cam Viewer, in Inputs, light lighting.PointLight) error {
	if !r.initialized {
		return fmt.Errorf("blur shadows: %w", gpu.ErrNotInitialized)
	}
	views, err := gpu.Views(in.Position, in.Normal, in.HardShadow, in.SoftShadow, in.DistanceToOccluder)
	if err != nil {
		return fmt.Errorf("blur shadows: %w", err)
	}

	r.core.DisableRenderingPipeline()
	err = r.combined.Dispatch(r.core, groupCount(in.Position), r.targets(r.illumination),
		constants(cam, light), views...)
	r.core.DisableComputePipeline()

	if err != nil {
		return fmt.Errorf("blur shadows: %w", err)
	}
	return nil
}

// BlurShadowsHorzVert blurs horizontally into the temporary target, then
// vertically into the illumination texture. The vertical pass reads the
// temporary target in both shadow slots.
func (r *Renderer) BlurShadowsHorzVert(cam Viewer, in Inputs, light lighting.PointLight) error {
	if !r.initialized {
		return fmt.Errorf("blur shadows horz/vert: %w", gpu.ErrNotInitialized)
	}
	views, err := gpu.Views(in.Position, in.Normal, in.HardShadow, in.SoftShadow, in.DistanceToOccluder)
	if err != nil {
		return fmt.Errorf("blur shadows horz/vert: %w", err)
	}

	groups := groupCount(in.Position)
	c := constants(cam, light)

	r.core.DisableRenderingPipeline()
	defer r.core.DisableComputePipeline()

	if err := r.horizontal.Dispatch(r.core, groups, r.targets(r.illuminationTemp), c, views...); err != nil {
		return fmt.Errorf("blur shadows horizontal: %w", err)
	}

	views[2] = r.illuminationTemp.View
	views[3] = r.illuminationTemp.View
	if err := r.vertical.Dispatch(r.core, groups, r.targets(r.illumination), c, views...); err != nil {
		return fmt.Errorf("blur shadows vertical: %w", err)
	}
	return nil
}

// ComputeEdgeDistance writes the distance-to-shadow-edge estimate read from
// distToEdge into target, sized by target.
func (r *Renderer) ComputeEdgeDistance(target, distToEdge *gpu.Texture) error {
	if !r.initialized {
		return fmt.Errorf("edge distance: %w", gpu.ErrNotInitialized)
	}
	if target == nil {
		return fmt.Errorf("edge distance: nil target: %w", gpu.ErrInvalidArgument)
	}
	views, err := gpu.Views(distToEdge)
	if err != nil {
		return fmt.Errorf("edge distance: %w", err)
	}

	r.core.DisableRenderingPipeline()
	err = r.edgeDistance.Dispatch(r.core, groupCount(target), r.targets(target), nil, views...)
	r.core.DisableComputePipeline()

	if err != nil {
		return fmt.Errorf("edge distance: %w", err)
	}
	return nil
}

// IlluminationTexture returns the blurred result, nil before Initialize.
func (r *Renderer) IlluminationTexture() *gpu.Texture {
	return r.illumination
}

// Size returns the target size set by Initialize.
func (r *Renderer) Size() (width, height int) {
	return r.width, r.height
}

// Release frees the targets and programs. The renderer must not be used
// afterwards.
func (r *Renderer) Release(dev gpu.Device) {
	dev.ReleaseTexture(r.illumination)
	dev.ReleaseTexture(r.illuminationTemp)
	r.illumination, r.illuminationTemp = nil, nil

	for _, s := range []*shader.Stage{r.combined, r.horizontal, r.vertical, r.edgeDistance} {
		s.Release(dev)
	}
	r.initialized = false
}

func (r *Renderer) targets(t *gpu.Texture) []*gpu.Texture {
	return []*gpu.Texture{t}
}

func groupCount(t *gpu.Texture) math.UVec3 {
	return gpu.GroupCount(t.Width(), t.Height())
}

func constants(cam Viewer, light lighting.PointLight) []byte {
	return shader.EncodeConstants(shader.BlurConstants{
		CameraPosition: math.FromVec3(cam.Position(), 0),
		LightPosition:  light.PositionVec4(),
	})
}
