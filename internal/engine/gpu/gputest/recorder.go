// Package gputest provides a recording gpu.Device and gpu.Core for tests.
//
// Recorder keeps the same bookkeeping a real backend would (live handles,
// per-stage slot tables, constant buffer contents) and appends every call
// to a log so tests can assert on ordering.
package gputest

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/pkg/math"
)

// ErrInjected is returned by creation calls configured to fail.
var ErrInjected = errors.New("injected failure")

// Call is one recorded facade call.
type Call struct {
	Op   string
	Args []any
}

// BufferRecord describes a live buffer.
type BufferRecord struct {
	Desc gpu.BufferDesc
	Data []byte
}

// ViewRecord describes a live view.
type ViewRecord struct {
	Buffer   gpu.BufferID
	Elements int
	Texture  gpu.TextureID
	Level    int // -1 for all levels
}

// ProgramRecord describes a live program.
type ProgramRecord struct {
	Kind   gpu.ShaderKind
	Label  string
	Source []byte
}

// Recorder implements gpu.Device and gpu.Core in memory.
type Recorder struct {
	Calls []Call

	// BufferCreates and ViewCreates count successful creations over the
	// recorder's lifetime (releases do not decrement them).
	BufferCreates int
	ViewCreates   int

	// FailBufferAt makes the n-th CreateBuffer call (1-based, counting
	// attempts) fail. Zero disables injection. FailViewAt likewise.
	FailBufferAt int
	FailViewAt   int

	// Diagnostics maps a program label to a compiler message; CreateProgram
	// fails with *gpu.CompileError for such labels.
	Diagnostics map[string]string

	nextID        uint64
	bufferAttempt int
	viewAttempt   int

	buffers  map[gpu.BufferID]*BufferRecord
	views    map[gpu.ViewID]ViewRecord
	textures map[gpu.TextureID]*gpu.Texture
	programs map[gpu.ProgramID]ProgramRecord
	states   map[gpu.StateID]any

	resources map[gpu.ShaderKind]map[int]gpu.ViewID
	constants map[gpu.ShaderKind]map[int]gpu.BufferID

	computeProgram gpu.ProgramID
	outputs        []gpu.TextureID
	renderTargets  []gpu.TextureID
}

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{
		buffers:   make(map[gpu.BufferID]*BufferRecord),
		views:     make(map[gpu.ViewID]ViewRecord),
		textures:  make(map[gpu.TextureID]*gpu.Texture),
		programs:  make(map[gpu.ProgramID]ProgramRecord),
		states:    make(map[gpu.StateID]any),
		resources: make(map[gpu.ShaderKind]map[int]gpu.ViewID),
		constants: make(map[gpu.ShaderKind]map[int]gpu.BufferID),
	}
}

func (r *Recorder) id() uint64 {
	r.nextID++
	return r.nextID
}

func (r *Recorder) record(op string, args ...any) {
	r.Calls = append(r.Calls, Call{Op: op, Args: args})
}

// Ops returns the recorded operation names in order.
func (r *Recorder) Ops() []string {
	ops := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		ops[i] = c.Op
	}
	return ops
}

// CallsOf returns the recorded calls with the given operation name.
func (r *Recorder) CallsOf(op string) []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the call log but keeps resources and bindings.
func (r *Recorder) Reset() {
	r.Calls = nil
}

// LiveBuffers returns the number of buffers not yet released.
func (r *Recorder) LiveBuffers() int { return len(r.buffers) }

// LiveViews returns the number of views not yet released.
func (r *Recorder) LiveViews() int { return len(r.views) }

// LiveTextures returns the number of textures not yet released.
func (r *Recorder) LiveTextures() int { return len(r.textures) }

// Buffer returns the record of a live buffer.
func (r *Recorder) Buffer(id gpu.BufferID) (*BufferRecord, bool) {
	b, ok := r.buffers[id]
	return b, ok
}

// View returns the record of a live view.
func (r *Recorder) View(id gpu.ViewID) (ViewRecord, bool) {
	v, ok := r.views[id]
	return v, ok
}

// Program returns the record of a live program.
func (r *Recorder) Program(id gpu.ProgramID) (ProgramRecord, bool) {
	p, ok := r.programs[id]
	return p, ok
}

// Resource returns the view bound at a stage input slot.
func (r *Recorder) Resource(kind gpu.ShaderKind, slot int) gpu.ViewID {
	return r.resources[kind][slot]
}

// BoundResources returns how many input slots of a stage are populated.
func (r *Recorder) BoundResources(kind gpu.ShaderKind) int {
	return len(r.resources[kind])
}

// ConstantBuffer returns the buffer bound at a stage constant slot.
func (r *Recorder) ConstantBuffer(kind gpu.ShaderKind, slot int) gpu.BufferID {
	return r.constants[kind][slot]
}

// ComputeProgram returns the active compute program.
func (r *Recorder) ComputeProgram() gpu.ProgramID { return r.computeProgram }

// Outputs returns the textures bound as unordered-access targets.
func (r *Recorder) Outputs() []gpu.TextureID { return r.outputs }

// RenderTargets returns the textures bound as render targets.
func (r *Recorder) RenderTargets() []gpu.TextureID { return r.renderTargets }

// Device

func (r *Recorder) CreateBuffer(desc gpu.BufferDesc, data []byte) (gpu.BufferID, error) {
	r.bufferAttempt++
	if r.FailBufferAt > 0 && r.bufferAttempt == r.FailBufferAt {
		return gpu.InvalidID, ErrInjected
	}
	if desc.Size <= 0 {
		return gpu.InvalidID, fmt.Errorf("buffer %q: size %d", desc.Label, desc.Size)
	}
	if data != nil && len(data) != desc.Size {
		return gpu.InvalidID, fmt.Errorf("buffer %q: %d bytes of data for size %d", desc.Label, len(data), desc.Size)
	}

	id := gpu.BufferID(r.id())
	rec := &BufferRecord{Desc: desc, Data: make([]byte, desc.Size)}
	copy(rec.Data, data)
	r.buffers[id] = rec
	r.BufferCreates++
	r.record("CreateBuffer", id, desc)
	return id, nil
}

func (r *Recorder) CreateRawView(buf gpu.BufferID, elements int) (gpu.ViewID, error) {
	r.viewAttempt++
	if r.FailViewAt > 0 && r.viewAttempt == r.FailViewAt {
		return gpu.InvalidID, ErrInjected
	}
	b, ok := r.buffers[buf]
	if !ok {
		return gpu.InvalidID, fmt.Errorf("raw view: unknown buffer %d", buf)
	}
	if b.Desc.Usage&gpu.BufferUsageRaw == 0 {
		return gpu.InvalidID, fmt.Errorf("raw view: buffer %q is not raw", b.Desc.Label)
	}
	if elements*4 > b.Desc.Size {
		return gpu.InvalidID, fmt.Errorf("raw view: %d elements exceed %d bytes", elements, b.Desc.Size)
	}

	id := gpu.ViewID(r.id())
	r.views[id] = ViewRecord{Buffer: buf, Elements: elements, Level: -1}
	r.ViewCreates++
	r.record("CreateRawView", id, buf, elements)
	return id, nil
}

func (r *Recorder) CreateTexture(desc gpu.TextureDesc) (*gpu.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("texture %q: size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	tex := &gpu.Texture{ID: gpu.TextureID(r.id()), Desc: desc}

	if desc.Bind&gpu.BindShaderResource != 0 {
		tex.View = r.textureView(tex.ID, -1)
		for level := 0; level < tex.MipLevels(); level++ {
			tex.LevelViews = append(tex.LevelViews, r.textureView(tex.ID, level))
		}
	}
	if desc.Bind&gpu.BindUnorderedAccess != 0 {
		tex.WriteView = r.textureView(tex.ID, 0)
	}

	r.textures[tex.ID] = tex
	r.record("CreateTexture", tex.ID, desc)
	return tex, nil
}

func (r *Recorder) textureView(tex gpu.TextureID, level int) gpu.ViewID {
	id := gpu.ViewID(r.id())
	r.views[id] = ViewRecord{Texture: tex, Level: level}
	return id
}

func (r *Recorder) CreateProgram(kind gpu.ShaderKind, source []byte, label string) (gpu.ProgramID, error) {
	if msg, ok := r.Diagnostics[label]; ok {
		return gpu.InvalidID, &gpu.CompileError{Label: label, Diagnostic: msg}
	}
	id := gpu.ProgramID(r.id())
	r.programs[id] = ProgramRecord{Kind: kind, Label: label, Source: append([]byte(nil), source...)}
	r.record("CreateProgram", id, kind, label)
	return id, nil
}

func (r *Recorder) CreateRasterizerState(desc gpu.RasterizerDesc) (gpu.StateID, error) {
	id := gpu.StateID(r.id())
	r.states[id] = desc
	r.record("CreateRasterizerState", id, desc)
	return id, nil
}

func (r *Recorder) CreateBlendState(desc gpu.BlendDesc) (gpu.StateID, error) {
	id := gpu.StateID(r.id())
	r.states[id] = desc
	r.record("CreateBlendState", id, desc)
	return id, nil
}

func (r *Recorder) ReleaseBuffer(id gpu.BufferID) {
	if id == gpu.InvalidID {
		return
	}
	delete(r.buffers, id)
	r.record("ReleaseBuffer", id)
}

func (r *Recorder) ReleaseView(id gpu.ViewID) {
	if id == gpu.InvalidID {
		return
	}
	delete(r.views, id)
	r.record("ReleaseView", id)
}

func (r *Recorder) ReleaseTexture(t *gpu.Texture) {
	if t == nil {
		return
	}
	for id, v := range r.views {
		if v.Texture == t.ID {
			delete(r.views, id)
		}
	}
	delete(r.textures, t.ID)
	r.record("ReleaseTexture", t.ID)
}

func (r *Recorder) ReleaseProgram(id gpu.ProgramID) {
	if id == gpu.InvalidID {
		return
	}
	delete(r.programs, id)
	r.record("ReleaseProgram", id)
}

func (r *Recorder) ReleaseState(id gpu.StateID) {
	if id == gpu.InvalidID {
		return
	}
	delete(r.states, id)
	r.record("ReleaseState", id)
}

// Core

func (r *Recorder) DisableRenderingPipeline() {
	r.renderTargets = nil
	r.record("DisableRenderingPipeline")
}

func (r *Recorder) DisableComputePipeline() {
	r.computeProgram = gpu.InvalidID
	r.outputs = nil
	r.record("DisableComputePipeline")
}

func (r *Recorder) EnableComputeShader(program gpu.ProgramID) {
	r.computeProgram = program
	r.record("EnableComputeShader", program)
}

func (r *Recorder) EnableRenderingShaders(vertex, fragment gpu.ProgramID) {
	r.record("EnableRenderingShaders", vertex, fragment)
}

func (r *Recorder) EnableRasterizerState(state gpu.StateID) {
	r.record("EnableRasterizerState", state)
}

func (r *Recorder) EnableBlendState(state gpu.StateID) {
	r.record("EnableBlendState", state)
}

func (r *Recorder) EnableUnorderedAccessTargets(targets []*gpu.Texture) {
	r.outputs = textureIDs(targets)
	r.record("EnableUnorderedAccessTargets", r.outputs)
}

func (r *Recorder) EnableRenderTargets(targets []*gpu.Texture, level int) {
	r.renderTargets = textureIDs(targets)
	r.record("EnableRenderTargets", r.renderTargets, level)
}

func (r *Recorder) DisableRenderTargets() {
	r.renderTargets = nil
	r.record("DisableRenderTargets")
}

func (r *Recorder) SetViewport(width, height int) {
	r.record("SetViewport", width, height)
}

func (r *Recorder) SetShaderResources(kind gpu.ShaderKind, slot int, views []gpu.ViewID) {
	table := r.resources[kind]
	if table == nil {
		table = make(map[int]gpu.ViewID)
		r.resources[kind] = table
	}
	for i, v := range views {
		if v == gpu.InvalidID {
			delete(table, slot+i)
			continue
		}
		table[slot+i] = v
	}
	r.record("SetShaderResources", kind, slot, append([]gpu.ViewID(nil), views...))
}

func (r *Recorder) UpdateConstants(buf gpu.BufferID, data []byte) error {
	b, ok := r.buffers[buf]
	if !ok {
		return fmt.Errorf("update constants: unknown buffer %d", buf)
	}
	if len(data) != b.Desc.Size {
		return fmt.Errorf("update constants: %d bytes for buffer of %d", len(data), b.Desc.Size)
	}
	copy(b.Data, data)
	r.record("UpdateConstants", buf, len(data))
	return nil
}

func (r *Recorder) SetConstantBuffer(kind gpu.ShaderKind, slot int, buf gpu.BufferID) {
	table := r.constants[kind]
	if table == nil {
		table = make(map[int]gpu.BufferID)
		r.constants[kind] = table
	}
	table[slot] = buf
	r.record("SetConstantBuffer", kind, slot, buf)
}

func (r *Recorder) Compute(groups math.UVec3) {
	r.record("Compute", groups)
}

func (r *Recorder) Draw(d gpu.Drawable) error {
	bufs, err := d.DrawBuffers()
	if err != nil {
		return err
	}
	r.record("Draw", bufs)
	return nil
}

func textureIDs(targets []*gpu.Texture) []gpu.TextureID {
	ids := make([]gpu.TextureID, 0, len(targets))
	for _, t := range targets {
		ids = append(ids, t.ID)
	}
	return ids
}

var (
	_ gpu.Device = (*Recorder)(nil)
	_ gpu.Core   = (*Recorder)(nil)
)
