// Package mesh holds CPU-side triangle meshes and drives their transitions
// to and from GPU memory.
//
// A Mesh is resident in CPU memory when it has positions and triangles, and
// resident in GPU memory when its position and triangle buffers and their
// raw views exist. The two are tracked independently: a mesh can be evicted
// from the CPU after upload and keep rendering from the GPU copy.
package mesh

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/internal/logger"
	"github.com/Faultbox/midgard-fx/pkg/math"
)

// Source records where a mesh was loaded from.
type Source struct {
	Path          string `yaml:"path"`
	Format        string `yaml:"format"`
	IndexInFile   int    `yaml:"index_in_file"`
	InvertZ       bool   `yaml:"invert_z"`
	InvertWinding bool   `yaml:"invert_winding"`
	FlipUVs       bool   `yaml:"flip_uvs"`
}

// Mesh is a triangle mesh with independent CPU and GPU residency.
type Mesh struct {
	Source Source

	// CPU side. Normals and each texcoord set share indexing with positions.
	positions []math.Vec3
	normals   []math.Vec3
	texcoords [][]math.Vec2
	triangles []math.UVec3

	bboxMin math.Vec3
	bboxMax math.Vec3

	gpu gpuResources
}

// New creates an empty mesh.
func New() *Mesh {
	return &Mesh{}
}

// NewFromData creates a CPU-resident mesh from the given arrays. The slices
// are retained, not copied.
func NewFromData(positions, normals []math.Vec3, texcoords [][]math.Vec2, triangles []math.UVec3) *Mesh {
	m := &Mesh{
		positions: positions,
		normals:   normals,
		texcoords: texcoords,
		triangles: triangles,
	}
	m.RecalculateBoundingBox()
	return m
}

// IsCPUResident reports whether positions and triangles are both present.
func (m *Mesh) IsCPUResident() bool {
	return len(m.positions) > 0 && len(m.triangles) > 0
}

// IsGPUResident reports whether the position and triangle buffers and their
// views exist. Normal and texcoord buffers do not affect residency.
func (m *Mesh) IsGPUResident() bool {
	return m.gpu.positionBuffer != gpu.InvalidID &&
		m.gpu.positionView != gpu.InvalidID &&
		m.gpu.triangleBuffer != gpu.InvalidID &&
		m.gpu.triangleView != gpu.InvalidID
}

// SetPositions replaces the vertex positions.
func (m *Mesh) SetPositions(p []math.Vec3) { m.positions = p }

// SetNormals replaces the vertex normals.
func (m *Mesh) SetNormals(n []math.Vec3) { m.normals = n }

// SetTriangles replaces the triangle list.
func (m *Mesh) SetTriangles(t []math.UVec3) { m.triangles = t }

// AddTexcoordSet appends a texture-coordinate set and returns its index.
func (m *Mesh) AddTexcoordSet(uv []math.Vec2) int {
	m.texcoords = append(m.texcoords, uv)
	return len(m.texcoords) - 1
}

// Positions returns the vertex positions.
func (m *Mesh) Positions() ([]math.Vec3, error) {
	if !m.IsCPUResident() {
		return nil, fmt.Errorf("positions: %w", gpu.ErrNotCPUResident)
	}
	return m.positions, nil
}

// Normals returns the vertex normals, which may be empty.
func (m *Mesh) Normals() ([]math.Vec3, error) {
	if !m.IsCPUResident() {
		return nil, fmt.Errorf("normals: %w", gpu.ErrNotCPUResident)
	}
	return m.normals, nil
}

// TexcoordSetCount returns the number of texcoord sets.
func (m *Mesh) TexcoordSetCount() (int, error) {
	if !m.IsCPUResident() {
		return 0, fmt.Errorf("texcoord count: %w", gpu.ErrNotCPUResident)
	}
	return len(m.texcoords), nil
}

// Texcoords returns texcoord set `set`.
func (m *Mesh) Texcoords(set int) ([]math.Vec2, error) {
	if !m.IsCPUResident() {
		return nil, fmt.Errorf("texcoords: %w", gpu.ErrNotCPUResident)
	}
	if set < 0 || set >= len(m.texcoords) {
		return nil, fmt.Errorf("texcoords: set %d of %d: %w", set, len(m.texcoords), gpu.ErrIndexOutOfRange)
	}
	return m.texcoords[set], nil
}

// Triangles returns the triangle list.
func (m *Mesh) Triangles() ([]math.UVec3, error) {
	if !m.IsCPUResident() {
		return nil, fmt.Errorf("triangles: %w", gpu.ErrNotCPUResident)
	}
	return m.triangles, nil
}

// RecalculateBoundingBox recomputes the bounds from the current positions.
// Bounds are not updated automatically when positions change.
func (m *Mesh) RecalculateBoundingBox() {
	m.bboxMin, m.bboxMax = math.BoundingBox(m.positions)
}

// BoundingBox returns the last computed min and max corners.
func (m *Mesh) BoundingBox() (math.Vec3, math.Vec3) {
	return m.bboxMin, m.bboxMax
}

// EvictFromCPU drops the CPU arrays and their storage. GPU buffers are kept.
func (m *Mesh) EvictFromCPU() {
	m.positions = nil
	m.normals = nil
	m.texcoords = nil
	m.triangles = nil

	log().Debug("evicted from CPU", zap.Bool("gpu_resident", m.IsGPUResident()))
}

// DownloadFromGPU would read GPU buffers back into CPU arrays. Read-back is
// not supported.
func (m *Mesh) DownloadFromGPU() error {
	return fmt.Errorf("downloading mesh from GPU: %w", gpu.ErrUnimplemented)
}

func log() *zap.Logger {
	return logger.Named("mesh")
}
