package mesh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/internal/engine/gpu/gputest"
	"github.com/Faultbox/midgard-fx/pkg/math"
)

func triangleMesh() *Mesh {
	return NewFromData(
		[]math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 2, Z: -1}},
		[]math.Vec3{{Z: 1}, {Z: 1}, {Z: 1}},
		[][]math.Vec2{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}},
		[]math.UVec3{{X: 0, Y: 1, Z: 2}},
	)
}

func TestResidencyPredicates(t *testing.T) {
	m := New()
	assert.False(t, m.IsCPUResident())
	assert.False(t, m.IsGPUResident())

	m.SetPositions([]math.Vec3{{X: 1}})
	assert.False(t, m.IsCPUResident(), "positions without triangles")

	m.SetTriangles([]math.UVec3{{X: 0, Y: 0, Z: 0}})
	assert.True(t, m.IsCPUResident())
}

func TestCPUAccessors(t *testing.T) {
	m := New()

	_, err := m.Positions()
	assert.ErrorIs(t, err, gpu.ErrNotCPUResident)
	_, err = m.Normals()
	assert.ErrorIs(t, err, gpu.ErrNotCPUResident)
	_, err = m.Triangles()
	assert.ErrorIs(t, err, gpu.ErrNotCPUResident)
	_, err = m.TexcoordSetCount()
	assert.ErrorIs(t, err, gpu.ErrNotCPUResident)
	_, err = m.Texcoords(0)
	assert.ErrorIs(t, err, gpu.ErrNotCPUResident)

	m = triangleMesh()
	p, err := m.Positions()
	require.NoError(t, err)
	assert.Len(t, p, 3)

	n, err := m.TexcoordSetCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = m.Texcoords(1)
	assert.ErrorIs(t, err, gpu.ErrIndexOutOfRange)
	_, err = m.Texcoords(-1)
	assert.ErrorIs(t, err, gpu.ErrIndexOutOfRange)
}

func TestGPUAccessorsRequireResidency(t *testing.T) {
	m := triangleMesh()

	_, err := m.PositionBuffer()
	assert.ErrorIs(t, err, gpu.ErrNotGPUResident)
	_, err = m.PositionView()
	assert.ErrorIs(t, err, gpu.ErrNotGPUResident)
	_, err = m.NormalBuffer()
	assert.ErrorIs(t, err, gpu.ErrNotGPUResident)
	_, err = m.NormalView()
	assert.ErrorIs(t, err, gpu.ErrNotGPUResident)
	_, err = m.TexcoordBuffers()
	assert.ErrorIs(t, err, gpu.ErrNotGPUResident)
	_, err = m.TexcoordViews()
	assert.ErrorIs(t, err, gpu.ErrNotGPUResident)
	_, err = m.TriangleBuffer()
	assert.ErrorIs(t, err, gpu.ErrNotGPUResident)
	_, err = m.TriangleView()
	assert.ErrorIs(t, err, gpu.ErrNotGPUResident)
	_, err = m.DrawBuffers()
	assert.ErrorIs(t, err, gpu.ErrNotGPUResident)
}

func TestUploadCreatesBuffersAndViews(t *testing.T) {
	dev := gputest.New()
	m := triangleMesh()

	require.NoError(t, m.UploadToGPU(dev, false))
	assert.True(t, m.IsGPUResident())

	// positions, normals, one texcoord set, triangles
	assert.Equal(t, 4, dev.BufferCreates)
	// positions and triangles only
	assert.Equal(t, 2, dev.ViewCreates)

	pb, err := m.PositionBuffer()
	require.NoError(t, err)
	rec, ok := dev.Buffer(pb)
	require.True(t, ok)
	assert.Equal(t, 3*math.Vec3Size, rec.Desc.Size)
	assert.NotZero(t, rec.Desc.Usage&gpu.BufferUsageRaw)

	pv, err := m.PositionView()
	require.NoError(t, err)
	view, ok := dev.View(pv)
	require.True(t, ok)
	assert.Equal(t, pb, view.Buffer)
	assert.Equal(t, 9, view.Elements)

	tb, err := m.TriangleBuffer()
	require.NoError(t, err)
	rec, ok = dev.Buffer(tb)
	require.True(t, ok)
	assert.Equal(t, math.UVec3Size, rec.Desc.Size)
	assert.NotZero(t, rec.Desc.Usage&gpu.BufferUsageIndex)
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0}, rec.Data)

	nv, err := m.NormalView()
	require.NoError(t, err)
	assert.Equal(t, gpu.ViewID(gpu.InvalidID), nv)

	views, err := m.TexcoordViews()
	require.NoError(t, err)
	assert.Equal(t, []gpu.ViewID{gpu.InvalidID}, views)

	d, err := m.DrawBuffers()
	require.NoError(t, err)
	assert.Equal(t, 3, d.VertexCount)
	assert.Equal(t, 3, d.IndexCount)
	assert.Equal(t, tb, d.Triangles)
}

func TestUploadIsIdempotent(t *testing.T) {
	dev := gputest.New()
	m := triangleMesh()

	require.NoError(t, m.UploadToGPU(dev, false))
	creates := dev.BufferCreates
	views := dev.ViewCreates

	require.NoError(t, m.UploadToGPU(dev, false))
	assert.Equal(t, creates, dev.BufferCreates)
	assert.Equal(t, views, dev.ViewCreates)
}

func TestUploadOnlyNewTexcoordSet(t *testing.T) {
	dev := gputest.New()
	m := triangleMesh()
	require.NoError(t, m.UploadToGPU(dev, false))

	before, err := m.TexcoordBuffers()
	require.NoError(t, err)
	creates := dev.BufferCreates

	set := m.AddTexcoordSet([]math.Vec2{{X: 1}, {X: 2}, {X: 3}})
	assert.Equal(t, 1, set)
	require.NoError(t, m.UploadToGPU(dev, false))

	assert.Equal(t, creates+1, dev.BufferCreates)
	after, err := m.TexcoordBuffers()
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, before[0], after[0])
	assert.NotEqual(t, after[0], after[1])

	rec, ok := dev.Buffer(after[1])
	require.True(t, ok)
	assert.Equal(t, 3*math.Vec2Size, rec.Desc.Size)
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name   string
		mesh   func() *Mesh
		reload bool
		want   []error
	}{
		{
			name: "empty mesh",
			mesh: New,
			want: []error{gpu.ErrNotCPUResident},
		},
		{
			name: "no triangles",
			mesh: func() *Mesh {
				m := New()
				m.SetPositions([]math.Vec3{{X: 1}, {Y: 1}, {Z: 1}})
				return m
			},
			want: []error{gpu.ErrNoTriangles, gpu.ErrNotCPUResident},
		},
		{
			name:   "reload",
			mesh:   triangleMesh,
			reload: true,
			want:   []error{gpu.ErrUnimplemented},
		},
		{
			name:   "reload without CPU data",
			mesh:   New,
			reload: true,
			want:   []error{gpu.ErrUnimplemented, gpu.ErrNotCPUResident},
		},
		{
			name: "short texcoord set",
			mesh: func() *Mesh {
				m := triangleMesh()
				m.AddTexcoordSet([]math.Vec2{{X: 1}})
				return m
			},
			want: []error{gpu.ErrInvalidArgument},
		},
		{
			name: "short normals",
			mesh: func() *Mesh {
				m := triangleMesh()
				m.SetNormals([]math.Vec3{{Z: 1}})
				return m
			},
			want: []error{gpu.ErrInvalidArgument},
		},
		{
			name: "empty texcoord set",
			mesh: func() *Mesh {
				m := triangleMesh()
				m.AddTexcoordSet(nil)
				return m
			},
			want: []error{gpu.ErrEmptyDataSet},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := gputest.New()
			err := tt.mesh().UploadToGPU(dev, tt.reload)
			for _, want := range tt.want {
				assert.ErrorIs(t, err, want)
			}
			assert.Zero(t, dev.LiveBuffers())
			assert.Zero(t, dev.LiveViews())
		})
	}
}

func TestReloadRejectedWhenResident(t *testing.T) {
	dev := gputest.New()
	m := triangleMesh()
	require.NoError(t, m.UploadToGPU(dev, false))

	err := m.UploadToGPU(dev, true)
	assert.ErrorIs(t, err, gpu.ErrUnimplemented)
	assert.True(t, m.IsGPUResident())
}

func TestUploadFailureReleasesPartialHandles(t *testing.T) {
	tests := []struct {
		name         string
		failBufferAt int
		failViewAt   int
	}{
		{"position buffer", 1, 0},
		{"position view", 0, 1},
		{"normal buffer", 2, 0},
		{"texcoord buffer", 3, 0},
		{"triangle buffer", 4, 0},
		{"triangle view", 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := gputest.New()
			dev.FailBufferAt = tt.failBufferAt
			dev.FailViewAt = tt.failViewAt
			m := triangleMesh()

			err := m.UploadToGPU(dev, false)
			require.Error(t, err)
			assert.ErrorIs(t, err, gputest.ErrInjected)

			var rerr *gpu.ResourceError
			assert.True(t, errors.As(err, &rerr))

			assert.False(t, m.IsGPUResident())
			assert.Zero(t, dev.LiveBuffers())
			assert.Zero(t, dev.LiveViews())

			// A later attempt starts from scratch.
			require.NoError(t, m.UploadToGPU(dev, false))
			assert.True(t, m.IsGPUResident())
		})
	}
}

func TestUploadFailureKeepsEarlierHandles(t *testing.T) {
	dev := gputest.New()
	m := triangleMesh()
	require.NoError(t, m.UploadToGPU(dev, false))
	live := dev.LiveBuffers()

	m.AddTexcoordSet([]math.Vec2{{X: 1}, {X: 2}, {X: 3}})
	dev.FailBufferAt = dev.BufferCreates + 1
	require.Error(t, m.UploadToGPU(dev, false))

	assert.True(t, m.IsGPUResident())
	assert.Equal(t, live, dev.LiveBuffers())
	bufs, err := m.TexcoordBuffers()
	require.NoError(t, err)
	assert.Len(t, bufs, 1)
}

func TestEvictFromCPUKeepsGPU(t *testing.T) {
	dev := gputest.New()
	m := triangleMesh()
	require.NoError(t, m.UploadToGPU(dev, false))

	m.EvictFromCPU()
	assert.False(t, m.IsCPUResident())
	assert.True(t, m.IsGPUResident())

	_, err := m.Positions()
	assert.ErrorIs(t, err, gpu.ErrNotCPUResident)
	_, err = m.PositionBuffer()
	assert.NoError(t, err)

	// Nothing to upload from, but the GPU copy is untouched.
	assert.ErrorIs(t, m.UploadToGPU(dev, false), gpu.ErrNotCPUResident)
	assert.True(t, m.IsGPUResident())
}

func TestEvictFromGPUKeepsCPU(t *testing.T) {
	dev := gputest.New()
	m := triangleMesh()
	require.NoError(t, m.UploadToGPU(dev, false))

	m.EvictFromGPU(dev)
	assert.False(t, m.IsGPUResident())
	assert.True(t, m.IsCPUResident())
	assert.Zero(t, dev.LiveBuffers())
	assert.Zero(t, dev.LiveViews())

	bufs, err := m.TexcoordBuffers()
	assert.ErrorIs(t, err, gpu.ErrNotGPUResident)
	assert.Nil(t, bufs)

	// Evict then upload is the supported way to refresh GPU data.
	require.NoError(t, m.UploadToGPU(dev, false))
	assert.True(t, m.IsGPUResident())
}

func TestDownloadFromGPUUnimplemented(t *testing.T) {
	assert.ErrorIs(t, triangleMesh().DownloadFromGPU(), gpu.ErrUnimplemented)
}

func TestBoundingBox(t *testing.T) {
	m := triangleMesh()
	lo, hi := m.BoundingBox()
	assert.Equal(t, math.Vec3{X: 0, Y: 0, Z: -1}, lo)
	assert.Equal(t, math.Vec3{X: 1, Y: 2, Z: 0}, hi)

	// Mutation does not refresh the box until asked.
	m.SetPositions([]math.Vec3{{X: 5, Y: 5, Z: 5}})
	lo, _ = m.BoundingBox()
	assert.Equal(t, math.Vec3{X: 0, Y: 0, Z: -1}, lo)

	m.RecalculateBoundingBox()
	lo, hi = m.BoundingBox()
	assert.Equal(t, math.Vec3{X: 5, Y: 5, Z: 5}, lo)
	assert.Equal(t, lo, hi)
}

func TestRectangle(t *testing.T) {
	m := NewRectangle()
	require.True(t, m.IsCPUResident())

	p, err := m.Positions()
	require.NoError(t, err)
	assert.Len(t, p, 4)
	tris, err := m.Triangles()
	require.NoError(t, err)
	assert.Len(t, tris, 2)

	lo, hi := m.BoundingBox()
	assert.Equal(t, math.Vec3{X: -1, Y: -1}, lo)
	assert.Equal(t, math.Vec3{X: 1, Y: 1}, hi)

	dev := gputest.New()
	require.NoError(t, m.UploadToGPU(dev, false))
	d, err := m.DrawBuffers()
	require.NoError(t, err)
	assert.Equal(t, 6, d.IndexCount)
	assert.NotEqual(t, gpu.BufferID(gpu.InvalidID), d.Texcoords)
}
