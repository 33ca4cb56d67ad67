// Package mipmap fills a texture's mip chain where each texel holds the
// minimum of the 2x2 texels above it, rather than their average.
package mipmap

import (
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/internal/engine/mesh"
	"github.com/Faultbox/midgard-fx/internal/engine/shader"
	"github.com/Faultbox/midgard-fx/internal/logger"
)

// Shader sources, relative to the shader file system.
const (
	VertexSource   = "mipmap_min_value.vert"
	FragmentSource = "mipmap_min_value.frag"
)

// Renderer reduces mip chains by drawing a full-screen rectangle into each
// level in turn.
type Renderer struct {
	core gpu.Core

	initialized bool

	rasterizerState gpu.StateID
	blendState      gpu.StateID

	vertex    *shader.Stage
	fragment  *shader.Stage
	rectangle *mesh.Mesh
}

// New creates an uninitialized renderer driving core.
func New(core gpu.Core) *Renderer {
	return &Renderer{
		core:      core,
		vertex:    shader.NewStage(shader.MipmapMinValueVertex),
		fragment:  shader.NewStage(shader.MipmapMinValueFragment),
		rectangle: mesh.NewRectangle(),
	}
}

// Initialize creates the fixed-function states, compiles both programs and
// uploads the rectangle mesh.
func (r *Renderer) Initialize(dev gpu.Device, cc *shader.CompileContext, fsys fs.FS) (err error) {
	if r.initialized {
		return fmt.Errorf("initializing mipmap renderer: %w", gpu.ErrAlreadyInitialized)
	}
	defer func() {
		if err != nil {
			r.Release(dev)
		}
	}()

	// No culling and no depth clipping: the rectangle always covers the
	// viewport whatever its winding.
	r.rasterizerState, err = dev.CreateRasterizerState(gpu.RasterizerDesc{})
	if err != nil {
		return gpu.WrapResource("creating rasterizer state", err)
	}
	// Min values are written to RGB only.
	r.blendState, err = dev.CreateBlendState(gpu.BlendDesc{WriteMask: gpu.MaskRGB})
	if err != nil {
		return gpu.WrapResource("creating blend state", err)
	}

	if err = r.vertex.Compile(cc, dev, fsys, VertexSource); err != nil {
		return fmt.Errorf("initializing mipmap renderer: %w", err)
	}
	if err = r.fragment.Compile(cc, dev, fsys, FragmentSource); err != nil {
		return fmt.Errorf("initializing mipmap renderer: %w", err)
	}

	if err = r.rectangle.UploadToGPU(dev, false); err != nil {
		return fmt.Errorf("initializing mipmap renderer: %w", err)
	}

	r.initialized = true
	logger.Named("mipmap").Info("initialized")
	return nil
}

// GenerateMipmapsMinValue writes levels 1..n-1 of tex, each from the level
// before it. tex must be a render target with per-level shader views.
func (r *Renderer) GenerateMipmapsMinValue(tex *gpu.Texture) error {
	if !r.initialized {
		return fmt.Errorf("generating min mipmaps: %w", gpu.ErrNotInitialized)
	}
	if tex == nil {
		return fmt.Errorf("generating min mipmaps: nil texture: %w", gpu.ErrInvalidArgument)
	}
	if tex.Desc.Bind&gpu.BindRenderTarget == 0 {
		return fmt.Errorf("generating min mipmaps: %q is not a render target: %w", tex.Desc.Label, gpu.ErrInvalidArgument)
	}

	levels := tex.MipLevels()
	for level := 0; level+1 < levels; level++ {
		if tex.LevelView(level) == gpu.InvalidID {
			return fmt.Errorf("generating min mipmaps: %q has no view of level %d: %w", tex.Desc.Label, level, gpu.ErrInvalidArgument)
		}
	}
	if levels < 2 {
		return nil
	}

	r.core.EnableRasterizerState(r.rasterizerState)
	r.core.EnableBlendState(r.blendState)
	r.core.EnableRenderingShaders(r.vertex.Program(), r.fragment.Program())
	defer r.core.DisableRenderTargets()

	targets := []*gpu.Texture{tex}
	for src := 0; src+1 < levels; src++ {
		dst := src + 1

		r.core.SetViewport(tex.Dimensions(dst))
		r.core.EnableRenderTargets(targets, dst)

		if err := r.vertex.Bind(r.core, nil); err != nil {
			return fmt.Errorf("generating min mipmaps: %w", err)
		}
		if err := r.fragment.Bind(r.core, nil, tex.LevelView(src)); err != nil {
			return fmt.Errorf("generating min mipmaps: %w", err)
		}
		drawErr := r.core.Draw(r.rectangle)
		if err := r.fragment.Unbind(r.core); err != nil {
			return fmt.Errorf("generating min mipmaps: %w", err)
		}
		if drawErr != nil {
			return fmt.Errorf("generating min mipmaps: level %d: %w", dst, drawErr)
		}
	}

	logger.Named("mipmap").Debug("reduced",
		zap.String("texture", tex.Desc.Label),
		zap.Int("levels", levels),
	)
	return nil
}

// Release frees states, programs and the rectangle mesh.
func (r *Renderer) Release(dev gpu.Device) {
	dev.ReleaseState(r.rasterizerState)
	dev.ReleaseState(r.blendState)
	r.rasterizerState, r.blendState = gpu.InvalidID, gpu.InvalidID

	r.vertex.Release(dev)
	r.fragment.Release(dev)
	r.rectangle.EvictFromGPU(dev)
	r.initialized = false
}
