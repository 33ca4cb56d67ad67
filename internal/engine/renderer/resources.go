package renderer

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
)

type glBuffer struct {
	name uint32
	desc gpu.BufferDesc
}

type viewKind int

const (
	// viewStorage is a byte range of a buffer bound as a storage buffer.
	viewStorage viewKind = iota
	// viewSampled is a texture (or a texture view of one level) bound to a
	// texture unit.
	viewSampled
	// viewImage is one level of a texture bound to an image unit.
	viewImage
)

type glView struct {
	kind    viewKind
	name    uint32
	size    int // storage views only
	level   int32
	format  uint32
	texture gpu.TextureID
	owned   bool // name is a TextureView object deleted with the view
}

type glTexture struct {
	tex    *gpu.Texture
	name   uint32
	format glFormat
}

type glProgram struct {
	name  uint32
	kind  gpu.ShaderKind
	label string
}

// CreateBuffer allocates a GL buffer object.
func (r *Renderer) CreateBuffer(desc gpu.BufferDesc, data []byte) (gpu.BufferID, error) {
	if desc.Size <= 0 {
		return gpu.InvalidID, fmt.Errorf("buffer %q: size %d: %w", desc.Label, desc.Size, gpu.ErrInvalidArgument)
	}
	if data != nil && len(data) != desc.Size {
		return gpu.InvalidID, fmt.Errorf("buffer %q: %d bytes of data for size %d: %w",
			desc.Label, len(data), desc.Size, gpu.ErrInvalidArgument)
	}

	var name uint32
	gl.GenBuffers(1, &name)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, name)
	if data != nil {
		gl.BufferData(gl.COPY_WRITE_BUFFER, desc.Size, gl.Ptr(data), bufferHint(desc.Usage))
	} else {
		gl.BufferData(gl.COPY_WRITE_BUFFER, desc.Size, nil, bufferHint(desc.Usage))
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)

	if e := gl.GetError(); e != gl.NO_ERROR {
		gl.DeleteBuffers(1, &name)
		return gpu.InvalidID, fmt.Errorf("buffer %q: GL error 0x%x", desc.Label, e)
	}
	label(gl.BUFFER, name, desc.Label)

	id := gpu.BufferID(r.id())
	r.buffers[id] = &glBuffer{name: name, desc: desc}
	return id, nil
}

// CreateRawView exposes the first elements words of buf as a storage
// buffer range.
func (r *Renderer) CreateRawView(buf gpu.BufferID, elements int) (gpu.ViewID, error) {
	b, ok := r.buffers[buf]
	if !ok {
		return gpu.InvalidID, fmt.Errorf("raw view: unknown buffer %d: %w", buf, gpu.ErrInvalidArgument)
	}
	if b.desc.Usage&gpu.BufferUsageRaw == 0 {
		return gpu.InvalidID, fmt.Errorf("raw view: buffer %q is not raw: %w", b.desc.Label, gpu.ErrInvalidArgument)
	}
	if elements <= 0 || elements*4 > b.desc.Size {
		return gpu.InvalidID, fmt.Errorf("raw view: %d elements over %d bytes: %w", elements, b.desc.Size, gpu.ErrInvalidArgument)
	}

	id := gpu.ViewID(r.id())
	r.views[id] = glView{kind: viewStorage, name: b.name, size: elements * 4}
	return id, nil
}

// CreateTexture allocates immutable storage for every mip level.
func (r *Renderer) CreateTexture(desc gpu.TextureDesc) (*gpu.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("texture %q: size %dx%d: %w", desc.Label, desc.Width, desc.Height, gpu.ErrInvalidArgument)
	}
	format, err := formatOf(desc.Format)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", desc.Label, err)
	}

	t := &gpu.Texture{ID: gpu.TextureID(r.id()), Desc: desc}
	levels := int32(t.MipLevels())

	var name uint32
	gl.GenTextures(1, &name)
	gl.BindTexture(gl.TEXTURE_2D, name)
	gl.TexStorage2D(gl.TEXTURE_2D, levels, format.internal, int32(desc.Width), int32(desc.Height))
	setNearest()
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if e := gl.GetError(); e != gl.NO_ERROR {
		gl.DeleteTextures(1, &name)
		return nil, fmt.Errorf("texture %q: GL error 0x%x", desc.Label, e)
	}
	label(gl.TEXTURE, name, desc.Label)
	r.textures[t.ID] = &glTexture{tex: t, name: name, format: format}

	if desc.Bind&gpu.BindShaderResource != 0 {
		t.View = r.addView(glView{kind: viewSampled, name: name, texture: t.ID})
		for level := int32(0); level < levels; level++ {
			var view uint32
			gl.GenTextures(1, &view)
			gl.TextureView(view, gl.TEXTURE_2D, name, format.internal, uint32(level), 1, 0, 1)
			gl.BindTexture(gl.TEXTURE_2D, view)
			setNearest()
			gl.BindTexture(gl.TEXTURE_2D, 0)
			t.LevelViews = append(t.LevelViews, r.addView(glView{
				kind: viewSampled, name: view, level: level, texture: t.ID, owned: true,
			}))
		}
	}
	if desc.Bind&gpu.BindUnorderedAccess != 0 {
		t.WriteView = r.addView(glView{kind: viewImage, name: name, format: format.internal, texture: t.ID})
	}

	r.log.Debug("texture created",
		zap.String("label", desc.Label),
		zap.Int("width", desc.Width),
		zap.Int("height", desc.Height),
		zap.Int32("levels", levels),
		zap.Stringer("format", desc.Format),
	)
	return t, nil
}

func (r *Renderer) addView(v glView) gpu.ViewID {
	id := gpu.ViewID(r.id())
	r.views[id] = v
	return id
}

// CreateProgram compiles a separable program for one stage.
func (r *Renderer) CreateProgram(kind gpu.ShaderKind, source []byte, name string) (gpu.ProgramID, error) {
	stage, err := shaderType(kind)
	if err != nil {
		return gpu.InvalidID, err
	}

	csources, free := gl.Strs(string(source) + "\x00")
	program := gl.CreateShaderProgramv(stage, 1, csources)
	free()

	// Check link status
	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return gpu.InvalidID, &gpu.CompileError{Label: name, Diagnostic: strings.TrimRight(log, "\x00\n")}
	}
	label(gl.PROGRAM, program, name)

	id := gpu.ProgramID(r.id())
	r.programs[id] = glProgram{name: program, kind: kind, label: name}
	r.log.Debug("shader program created", zap.String("label", name), zap.Uint32("program", program))
	return id, nil
}

// CreateRasterizerState records desc; GL has no state objects.
func (r *Renderer) CreateRasterizerState(desc gpu.RasterizerDesc) (gpu.StateID, error) {
	id := gpu.StateID(r.id())
	r.raster[id] = desc
	return id, nil
}

// CreateBlendState records desc; GL has no state objects.
func (r *Renderer) CreateBlendState(desc gpu.BlendDesc) (gpu.StateID, error) {
	id := gpu.StateID(r.id())
	r.blend[id] = desc
	return id, nil
}

func (r *Renderer) ReleaseBuffer(id gpu.BufferID) {
	b, ok := r.buffers[id]
	if !ok {
		return
	}
	gl.DeleteBuffers(1, &b.name)
	delete(r.buffers, id)
}

func (r *Renderer) ReleaseView(id gpu.ViewID) {
	v, ok := r.views[id]
	if !ok {
		return
	}
	if v.owned {
		gl.DeleteTextures(1, &v.name)
	}
	delete(r.views, id)
}

func (r *Renderer) ReleaseTexture(t *gpu.Texture) {
	tex, ok := r.lookupTexture(t)
	if !ok {
		return
	}
	for id, v := range r.views {
		if v.texture == t.ID {
			r.ReleaseView(id)
		}
	}
	gl.DeleteTextures(1, &tex.name)
	delete(r.textures, t.ID)
}

func (r *Renderer) ReleaseProgram(id gpu.ProgramID) {
	p, ok := r.programs[id]
	if !ok {
		return
	}
	gl.DeleteProgram(p.name)
	delete(r.programs, id)
}

func (r *Renderer) ReleaseState(id gpu.StateID) {
	delete(r.raster, id)
	delete(r.blend, id)
}

func setNearest() {
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
}

func label(identifier, name uint32, text string) {
	if text == "" {
		return
	}
	gl.ObjectLabel(identifier, name, int32(len(text)), gl.Str(text+"\x00"))
}
