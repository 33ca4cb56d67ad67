package mesh

import (
	"fmt"
	"unsafe"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/pkg/math"
)

// gpuResources are the GPU handles owned by one mesh. texcoordBuffers and
// texcoordViews run parallel to the CPU texcoord sets: entry i belongs to set
// i. Normal and texcoord views are never created and stay InvalidID.
type gpuResources struct {
	positionBuffer gpu.BufferID
	positionView   gpu.ViewID
	normalBuffer   gpu.BufferID
	normalView     gpu.ViewID

	texcoordBuffers []gpu.BufferID
	texcoordViews   []gpu.ViewID

	triangleBuffer gpu.BufferID
	triangleView   gpu.ViewID

	vertexCount   int
	triangleCount int
}

const (
	vertexUsage   = gpu.BufferUsageVertex | gpu.BufferUsageShaderResource | gpu.BufferUsageRaw
	triangleUsage = gpu.BufferUsageIndex | gpu.BufferUsageShaderResource | gpu.BufferUsageRaw
)

// UploadToGPU creates GPU buffers for every CPU array that does not have one
// yet. Calling it again with unchanged data creates nothing; after a new
// texcoord set is added only that set is uploaded.
//
// reload must be false: re-uploading resident data is not supported, evict
// from the GPU first. Normals and every texcoord set must have one entry per
// vertex. If any creation fails, every handle created by this
// call is released and the GPU side is left as it was.
func (m *Mesh) UploadToGPU(dev gpu.Device, reload bool) (err error) {
	if reload {
		err := fmt.Errorf("uploading mesh: reload: %w", gpu.ErrUnimplemented)
		if !m.IsCPUResident() {
			err = fmt.Errorf("%w: %w", err, gpu.ErrNotCPUResident)
		}
		return err
	}
	if len(m.positions) == 0 {
		return fmt.Errorf("uploading mesh: %w", gpu.ErrNotCPUResident)
	}
	if len(m.triangles) == 0 {
		return fmt.Errorf("uploading mesh: %w: %w", gpu.ErrNoTriangles, gpu.ErrNotCPUResident)
	}

	tx := &uploadTx{dev: dev}
	saved := m.gpu
	saved.texcoordBuffers = append([]gpu.BufferID(nil), m.gpu.texcoordBuffers...)
	saved.texcoordViews = append([]gpu.ViewID(nil), m.gpu.texcoordViews...)
	defer func() {
		if err != nil {
			tx.rollback()
			m.gpu = saved
		}
	}()

	if m.gpu.positionBuffer == gpu.InvalidID {
		m.gpu.positionBuffer, err = tx.buffer("mesh positions", vertexUsage, bytesOf(m.positions))
		if err != nil {
			return err
		}
		m.gpu.positionView, err = tx.rawView("mesh positions", m.gpu.positionBuffer, len(m.positions)*3)
		if err != nil {
			return err
		}
		m.gpu.vertexCount = len(m.positions)
	}

	if len(m.normals) > 0 && m.gpu.normalBuffer == gpu.InvalidID {
		if len(m.normals) != len(m.positions) {
			return fmt.Errorf("uploading mesh: %d normals for %d vertices: %w",
				len(m.normals), len(m.positions), gpu.ErrInvalidArgument)
		}
		m.gpu.normalBuffer, err = tx.buffer("mesh normals", vertexUsage, bytesOf(m.normals))
		if err != nil {
			return err
		}
	}

	for set, uv := range m.texcoords {
		if set < len(m.gpu.texcoordBuffers) {
			continue
		}
		if len(uv) == 0 {
			return fmt.Errorf("uploading mesh: texcoord set %d: %w", set, gpu.ErrEmptyDataSet)
		}
		if len(uv) != len(m.positions) {
			return fmt.Errorf("uploading mesh: texcoord set %d has %d entries for %d vertices: %w",
				set, len(uv), len(m.positions), gpu.ErrInvalidArgument)
		}
		buf, err := tx.buffer(fmt.Sprintf("mesh texcoords[%d]", set), vertexUsage, bytesOf(uv))
		if err != nil {
			return err
		}
		m.gpu.texcoordBuffers = append(m.gpu.texcoordBuffers, buf)
		m.gpu.texcoordViews = append(m.gpu.texcoordViews, gpu.InvalidID)
	}

	if m.gpu.triangleBuffer == gpu.InvalidID {
		m.gpu.triangleBuffer, err = tx.buffer("mesh triangles", triangleUsage, bytesOf(m.triangles))
		if err != nil {
			return err
		}
		m.gpu.triangleView, err = tx.rawView("mesh triangles", m.gpu.triangleBuffer, len(m.triangles)*3)
		if err != nil {
			return err
		}
		m.gpu.triangleCount = len(m.triangles)
	}

	if len(tx.buffers) > 0 {
		log().Debug("uploaded to GPU",
			zap.String("path", m.Source.Path),
			zap.Int("buffers", len(tx.buffers)),
			zap.Int("views", len(tx.views)),
			zap.Int("texcoord_sets", len(m.gpu.texcoordBuffers)),
		)
	}
	return nil
}

// EvictFromGPU releases every buffer and view. CPU arrays are untouched.
func (m *Mesh) EvictFromGPU(dev gpu.Device) {
	dev.ReleaseView(m.gpu.positionView)
	dev.ReleaseBuffer(m.gpu.positionBuffer)
	dev.ReleaseView(m.gpu.normalView)
	dev.ReleaseBuffer(m.gpu.normalBuffer)
	for i := range m.gpu.texcoordBuffers {
		dev.ReleaseView(m.gpu.texcoordViews[i])
		dev.ReleaseBuffer(m.gpu.texcoordBuffers[i])
	}
	dev.ReleaseView(m.gpu.triangleView)
	dev.ReleaseBuffer(m.gpu.triangleBuffer)

	m.gpu = gpuResources{}
	log().Debug("evicted from GPU", zap.String("path", m.Source.Path))
}

// PositionBuffer returns the GPU position buffer.
func (m *Mesh) PositionBuffer() (gpu.BufferID, error) {
	if !m.IsGPUResident() {
		return gpu.InvalidID, fmt.Errorf("position buffer: %w", gpu.ErrNotGPUResident)
	}
	return m.gpu.positionBuffer, nil
}

// PositionView returns the raw shader view over the position buffer.
func (m *Mesh) PositionView() (gpu.ViewID, error) {
	if !m.IsGPUResident() {
		return gpu.InvalidID, fmt.Errorf("position view: %w", gpu.ErrNotGPUResident)
	}
	return m.gpu.positionView, nil
}

// NormalBuffer returns the GPU normal buffer, InvalidID if the mesh has no
// normals.
func (m *Mesh) NormalBuffer() (gpu.BufferID, error) {
	if !m.IsGPUResident() {
		return gpu.InvalidID, fmt.Errorf("normal buffer: %w", gpu.ErrNotGPUResident)
	}
	return m.gpu.normalBuffer, nil
}

// NormalView always returns InvalidID for a resident mesh: normal buffers
// are uploaded without a shader view.
func (m *Mesh) NormalView() (gpu.ViewID, error) {
	if !m.IsGPUResident() {
		return gpu.InvalidID, fmt.Errorf("normal view: %w", gpu.ErrNotGPUResident)
	}
	return m.gpu.normalView, nil
}

// TexcoordBuffers returns the texcoord buffers in set order.
func (m *Mesh) TexcoordBuffers() ([]gpu.BufferID, error) {
	if !m.IsGPUResident() {
		return nil, fmt.Errorf("texcoord buffers: %w", gpu.ErrNotGPUResident)
	}
	return append([]gpu.BufferID(nil), m.gpu.texcoordBuffers...), nil
}

// TexcoordViews returns the texcoord views in set order (all InvalidID).
func (m *Mesh) TexcoordViews() ([]gpu.ViewID, error) {
	if !m.IsGPUResident() {
		return nil, fmt.Errorf("texcoord views: %w", gpu.ErrNotGPUResident)
	}
	return append([]gpu.ViewID(nil), m.gpu.texcoordViews...), nil
}

// TriangleBuffer returns the GPU index buffer.
func (m *Mesh) TriangleBuffer() (gpu.BufferID, error) {
	if !m.IsGPUResident() {
		return gpu.InvalidID, fmt.Errorf("triangle buffer: %w", gpu.ErrNotGPUResident)
	}
	return m.gpu.triangleBuffer, nil
}

// TriangleView returns the raw shader view over the index buffer.
func (m *Mesh) TriangleView() (gpu.ViewID, error) {
	if !m.IsGPUResident() {
		return gpu.InvalidID, fmt.Errorf("triangle view: %w", gpu.ErrNotGPUResident)
	}
	return m.gpu.triangleView, nil
}

// DrawBuffers implements gpu.Drawable.
func (m *Mesh) DrawBuffers() (gpu.DrawBuffers, error) {
	if !m.IsGPUResident() {
		return gpu.DrawBuffers{}, fmt.Errorf("drawing mesh: %w", gpu.ErrNotGPUResident)
	}
	d := gpu.DrawBuffers{
		Positions:   m.gpu.positionBuffer,
		Normals:     m.gpu.normalBuffer,
		Triangles:   m.gpu.triangleBuffer,
		VertexCount: m.gpu.vertexCount,
		IndexCount:  m.gpu.triangleCount * 3,
	}
	if len(m.gpu.texcoordBuffers) > 0 {
		d.Texcoords = m.gpu.texcoordBuffers[0]
	}
	return d, nil
}

// uploadTx tracks the handles created by one UploadToGPU call so they can be
// released together if a later step fails.
type uploadTx struct {
	dev     gpu.Device
	buffers []gpu.BufferID
	views   []gpu.ViewID
}

func (tx *uploadTx) buffer(label string, usage gpu.BufferUsage, data []byte) (gpu.BufferID, error) {
	id, err := tx.dev.CreateBuffer(gpu.BufferDesc{Label: label, Size: len(data), Usage: usage}, data)
	if err != nil {
		return gpu.InvalidID, gpu.WrapResource("creating "+label+" buffer", err)
	}
	tx.buffers = append(tx.buffers, id)
	return id, nil
}

func (tx *uploadTx) rawView(label string, buf gpu.BufferID, elements int) (gpu.ViewID, error) {
	id, err := tx.dev.CreateRawView(buf, elements)
	if err != nil {
		return gpu.InvalidID, gpu.WrapResource("creating "+label+" view", err)
	}
	tx.views = append(tx.views, id)
	return id, nil
}

func (tx *uploadTx) rollback() {
	for i := len(tx.views) - 1; i >= 0; i-- {
		tx.dev.ReleaseView(tx.views[i])
	}
	for i := len(tx.buffers) - 1; i >= 0; i-- {
		tx.dev.ReleaseBuffer(tx.buffers[i])
	}
	tx.buffers, tx.views = nil, nil
}

// bytesOf reinterprets a slice of packed float32/uint32 structs as bytes
// without copying.
func bytesOf[T math.Vec2 | math.Vec3 | math.UVec3](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
}
