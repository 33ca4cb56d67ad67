// Package renderer is the OpenGL 4.3 backend of the gpu facade.
//
// Buffers become GL buffer objects, raw views become shader storage buffer
// ranges, constant buffers become uniform buffers and programs are
// separable programs combined through one program pipeline object. Compute
// outputs are bound as images and render targets are attached to a single
// renderer-owned framebuffer.
//
// GL binding points are shared by every stage, so the ShaderKind argument
// of SetShaderResources and SetConstantBuffer selects nothing: slot N of any
// stage is binding point N.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fx/internal/engine/framebuffer"
	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/internal/logger"
)

// Renderer implements gpu.Device and gpu.Core on the current GL context.
type Renderer struct {
	log *zap.Logger

	last uint64

	buffers  map[gpu.BufferID]*glBuffer
	views    map[gpu.ViewID]glView
	textures map[gpu.TextureID]*glTexture
	programs map[gpu.ProgramID]glProgram
	raster   map[gpu.StateID]gpu.RasterizerDesc
	blend    map[gpu.StateID]gpu.BlendDesc

	pipeline uint32
	vao      uint32
	targets  *framebuffer.Framebuffer

	// Image units bound by the last EnableUnorderedAccessTargets.
	outputs int
}

// New creates a renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New() (*Renderer, error) {
	r := &Renderer{
		log:      logger.Named("renderer"),
		buffers:  make(map[gpu.BufferID]*glBuffer),
		views:    make(map[gpu.ViewID]glView),
		textures: make(map[gpu.TextureID]*glTexture),
		programs: make(map[gpu.ProgramID]glProgram),
		raster:   make(map[gpu.StateID]gpu.RasterizerDesc),
		blend:    make(map[gpu.StateID]gpu.BlendDesc),
	}

	// Initialize OpenGL
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.String("glsl", gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION))),
	)

	if r.log.Core().Enabled(zap.DebugLevel) {
		gl.Enable(gl.DEBUG_OUTPUT)
		gl.DebugMessageCallback(r.debugMessage, nil)
	}

	gl.Disable(gl.DEPTH_TEST)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)

	gl.GenProgramPipelines(1, &r.pipeline)
	gl.BindProgramPipeline(r.pipeline)
	gl.UseProgram(0)

	gl.GenVertexArrays(1, &r.vao)
	r.targets = framebuffer.New()

	return r, nil
}

func (r *Renderer) debugMessage(source, gltype, id, severity uint32, length int32, message string, userParam unsafe.Pointer) {
	fields := []zap.Field{zap.Uint32("id", id), zap.Uint32("source", source)}
	switch severity {
	case gl.DEBUG_SEVERITY_HIGH:
		r.log.Error(message, fields...)
	case gl.DEBUG_SEVERITY_MEDIUM:
		r.log.Warn(message, fields...)
	default:
		r.log.Debug(message, fields...)
	}
}

// Close releases everything the renderer still owns.
func (r *Renderer) Close() {
	r.log.Info("closing renderer",
		zap.Int("buffers", len(r.buffers)),
		zap.Int("textures", len(r.textures)),
		zap.Int("programs", len(r.programs)),
	)

	for id := range r.buffers {
		r.ReleaseBuffer(id)
	}
	for _, t := range r.textures {
		r.ReleaseTexture(t.tex)
	}
	for id := range r.programs {
		r.ReleaseProgram(id)
	}

	if r.targets != nil {
		r.targets.Destroy()
		r.targets = nil
	}
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
		r.vao = 0
	}
	if r.pipeline != 0 {
		gl.DeleteProgramPipelines(1, &r.pipeline)
		r.pipeline = 0
	}
}

// Begin starts a new frame on the default framebuffer.
func (r *Renderer) Begin(width, height int) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.ColorMask(true, true, true, true)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// Present stretches level 0 of t over the default framebuffer.
func (r *Renderer) Present(t *gpu.Texture, width, height int) error {
	tex, ok := r.lookupTexture(t)
	if !ok {
		return fmt.Errorf("presenting texture: %w", gpu.ErrInvalidArgument)
	}
	gl.MemoryBarrier(gl.FRAMEBUFFER_BARRIER_BIT)
	framebuffer.BlitToScreen(tex.name, int32(t.Width()), int32(t.Height()), int32(width), int32(height))
	return nil
}

// ReadScreen returns the default framebuffer as RGBA bytes, bottom row
// first.
func (r *Renderer) ReadScreen(width, height int) []byte {
	pixels := make([]byte, width*height*4)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels
}

// WriteTexture replaces one mip level of t with tightly packed texels.
func (r *Renderer) WriteTexture(t *gpu.Texture, level int, data []byte) error {
	tex, ok := r.lookupTexture(t)
	if !ok {
		return fmt.Errorf("writing texture: %w", gpu.ErrInvalidArgument)
	}
	if level < 0 || level >= t.MipLevels() {
		return fmt.Errorf("writing texture %q level %d: %w", t.Desc.Label, level, gpu.ErrIndexOutOfRange)
	}
	w, h := t.Dimensions(level)
	if want := w * h * tex.format.texelSize; len(data) != want {
		return fmt.Errorf("writing texture %q level %d: got %d bytes, want %d: %w",
			t.Desc.Label, level, len(data), want, gpu.ErrInvalidArgument)
	}

	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.BindTexture(gl.TEXTURE_2D, tex.name)
	gl.TexSubImage2D(gl.TEXTURE_2D, int32(level), 0, 0, int32(w), int32(h),
		tex.format.pixelFormat, tex.format.pixelType, gl.Ptr(data))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

func (r *Renderer) id() uint64 {
	r.last++
	return r.last
}

func (r *Renderer) lookupTexture(t *gpu.Texture) (*glTexture, bool) {
	if t == nil {
		return nil, false
	}
	tex, ok := r.textures[t.ID]
	return tex, ok
}

var (
	_ gpu.Device = (*Renderer)(nil)
	_ gpu.Core   = (*Renderer)(nil)
)
