package demo

import (
	"context"
	"encoding/binary"
	stdmath "math"

	"github.com/chewxy/math32"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/midgard-fx/internal/engine/mesh"
	"github.com/Faultbox/midgard-fx/pkg/math"
)

// noEdge is the distance-to-edge seed of texels away from a shadow edge.
const noEdge = 1e4

// Sphere is an analytic stand-in for a mesh: its bounding sphere.
type Sphere struct {
	Center    math.Vec3
	Radius    float32
	Albedo    math.Vec3
	Metalness float32
	Roughness float32
	Emissive  math.Vec3
}

// Scene is a set of spheres resting above a ground plane.
type Scene struct {
	Spheres []Sphere
	GroundY float32
	Ground  Sphere // material of the ground; geometry fields unused
	FOV     float32
}

// DefaultScene is shown when no meshes are loaded.
func DefaultScene() *Scene {
	return &Scene{
		Spheres: []Sphere{
			{Center: math.Vec3{X: 0, Y: 0, Z: 0}, Radius: 1, Albedo: math.Vec3{X: 0.9, Y: 0.3, Z: 0.2}, Roughness: 0.4},
			{Center: math.Vec3{X: 2.2, Y: -0.4, Z: 0.5}, Radius: 0.6, Albedo: math.Vec3{X: 0.9, Y: 0.9, Z: 0.9}, Metalness: 1, Roughness: 0.2},
			{Center: math.Vec3{X: -2, Y: -0.5, Z: -0.8}, Radius: 0.5, Albedo: math.Vec3{X: 0.2, Y: 0.5, Z: 0.9}, Roughness: 0.8},
		},
		GroundY: -1,
		Ground:  Sphere{Albedo: math.Vec3{X: 0.6, Y: 0.6, Z: 0.55}, Roughness: 0.9},
		FOV:     stdmath.Pi / 3,
	}
}

// SceneFromMeshes stands each mesh in by its bounding sphere, with the
// ground just below the lowest one.
func SceneFromMeshes(meshes []*mesh.Mesh) *Scene {
	s := DefaultScene()
	if len(meshes) == 0 {
		return s
	}
	s.Spheres = s.Spheres[:0]
	lowest := float32(math32.MaxFloat32)
	for i, m := range meshes {
		lo, hi := m.BoundingBox()
		center := lo.Add(hi).Scale(0.5)
		radius := hi.Sub(lo).Length() * 0.5
		if radius <= 0 {
			radius = 0.5
		}
		hue := float32(i) / float32(len(meshes))
		s.Spheres = append(s.Spheres, Sphere{
			Center:    center,
			Radius:    radius,
			Albedo:    math.Vec3{X: 0.5 + 0.5*math32.Cos(hue*2*math32.Pi), Y: 0.6, Z: 0.5 + 0.5*math32.Sin(hue*2*math32.Pi)},
			Roughness: 0.5,
		})
		lowest = math32.Min(lowest, center.Y-radius)
	}
	s.GroundY = lowest
	return s
}

// Bounds returns the box around every sphere.
func (s *Scene) Bounds() (math.Vec3, math.Vec3) {
	var points []math.Vec3
	for _, sp := range s.Spheres {
		r := math.Vec3{X: sp.Radius, Y: sp.Radius, Z: sp.Radius}
		points = append(points, sp.Center.Sub(r), sp.Center.Add(r))
	}
	return math.BoundingBox(points)
}

// Frame is one CPU-rendered G-buffer, tightly packed per texture format.
type Frame struct {
	Width, Height int

	Position       []byte // RGBA32Float, w = 1 where something was hit
	Normal         []byte // RGBA32Float
	Albedo         []byte // RGBA8Unorm
	Emissive       []byte // RGBA8Unorm
	Metalness      []byte // R8Unorm
	Roughness      []byte // R8Unorm
	AO             []byte // R8Unorm
	HardShadow     []byte // R8Unorm, 255 lit
	SoftShadow     []byte // R8Unorm
	DistToOccluder []byte // R32Float, 0 when lit
	DistToEdge     []byte // R32Float, 0 on a shadow edge
	RayOrigin      []byte // RGBA32Float
}

// NewFrame allocates a frame of the given size.
func NewFrame(width, height int) *Frame {
	n := width * height
	return &Frame{
		Width: width, Height: height,
		Position:       make([]byte, n*16),
		Normal:         make([]byte, n*16),
		Albedo:         make([]byte, n*4),
		Emissive:       make([]byte, n*4),
		Metalness:      make([]byte, n),
		Roughness:      make([]byte, n),
		AO:             make([]byte, n),
		HardShadow:     make([]byte, n),
		SoftShadow:     make([]byte, n),
		DistToOccluder: make([]byte, n*4),
		DistToEdge:     make([]byte, n*4),
		RayOrigin:      make([]byte, n*16),
	}
}

type hit struct {
	ok       bool
	t        float32
	position math.Vec3
	normal   math.Vec3
	material Sphere
}

// Render ray-casts the scene from eye looking at target into f. Rows are
// split across goroutines.
func (s *Scene) Render(ctx context.Context, f *Frame, eye, target math.Vec3, light math.Vec3) error {
	forward := target.Sub(eye).Normalize()
	right := forward.Cross(math.Vec3{Y: 1}).Normalize()
	up := right.Cross(forward)
	scale := math32.Tan(s.FOV / 2)
	aspect := float32(f.Width) / float32(f.Height)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	const band = 32
	for y0 := 0; y0 < f.Height; y0 += band {
		g.Go(func() error {
			for y := y0; y < min(y0+band, f.Height); y++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				for x := 0; x < f.Width; x++ {
					u := (2*(float32(x)+0.5)/float32(f.Width) - 1) * scale * aspect
					v := (1 - 2*(float32(y)+0.5)/float32(f.Height)) * scale
					dir := forward.Add(right.Scale(u)).Add(up.Scale(v)).Normalize()
					s.shade(f, y*f.Width+x, eye, dir, light)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	f.markEdges()
	return nil
}

func (s *Scene) shade(f *Frame, i int, eye, dir, light math.Vec3) {
	putVec4(f.RayOrigin, i, eye, 1)

	h := s.intersect(eye, dir, math32.MaxFloat32)
	if !h.ok {
		putVec4(f.Position, i, math.Vec3{}, 0)
		putVec4(f.Normal, i, math.Vec3{}, 0)
		putRGBA(f.Albedo, i, math.Vec3{})
		putRGBA(f.Emissive, i, math.Vec3{X: 0.05, Y: 0.05, Z: 0.08})
		f.Metalness[i], f.Roughness[i], f.AO[i] = 0, 0, 0
		f.HardShadow[i], f.SoftShadow[i] = 255, 255
		putFloat(f.DistToOccluder, i, 0)
		return
	}

	putVec4(f.Position, i, h.position, 1)
	putVec4(f.Normal, i, h.normal, 0)
	putRGBA(f.Albedo, i, h.material.Albedo)
	putRGBA(f.Emissive, i, h.material.Emissive)
	f.Metalness[i] = unorm(h.material.Metalness)
	f.Roughness[i] = unorm(h.material.Roughness)
	f.AO[i] = unorm(s.occlusion(h.position, h.normal))

	// Offset along the normal so the shadow ray leaves the surface.
	origin := h.position.Add(h.normal.Scale(1e-3))
	toLight := light.Sub(origin)
	distToLight := toLight.Length()
	shadowDir := toLight.Scale(1 / distToLight)

	blocker := s.intersect(origin, shadowDir, distToLight)
	if blocker.ok {
		f.HardShadow[i] = 0
		putFloat(f.DistToOccluder, i, blocker.t)
	} else {
		f.HardShadow[i] = 255
		putFloat(f.DistToOccluder, i, 0)
	}
	f.SoftShadow[i] = unorm(s.softShadow(origin, shadowDir, distToLight))
}

func (s *Scene) intersect(origin, dir math.Vec3, maxT float32) hit {
	best := hit{t: maxT}
	for _, sp := range s.Spheres {
		oc := origin.Sub(sp.Center)
		b := oc.Dot(dir)
		c := oc.Dot(oc) - sp.Radius*sp.Radius
		disc := b*b - c
		if disc < 0 {
			continue
		}
		t := -b - math32.Sqrt(disc)
		if t <= 0 || t >= best.t {
			continue
		}
		p := origin.Add(dir.Scale(t))
		best = hit{ok: true, t: t, position: p, normal: p.Sub(sp.Center).Normalize(), material: sp}
	}
	if dir.Y < 0 {
		t := (s.GroundY - origin.Y) / dir.Y
		if t > 0 && t < best.t {
			best = hit{ok: true, t: t, position: origin.Add(dir.Scale(t)), normal: math.Vec3{Y: 1}, material: s.Ground}
		}
	}
	return best
}

// softShadow estimates visibility from how closely the shadow ray passes
// each sphere, relative to the distance travelled.
func (s *Scene) softShadow(origin, dir math.Vec3, maxT float32) float32 {
	const k = 8
	vis := float32(1)
	for _, sp := range s.Spheres {
		oc := sp.Center.Sub(origin)
		t := oc.Dot(dir)
		if t <= 0 || t >= maxT {
			continue
		}
		miss := oc.Sub(dir.Scale(t)).Length() - sp.Radius
		vis = math32.Min(vis, math32.Max(k*miss/t, 0))
	}
	return vis
}

// occlusion darkens points near a sphere.
func (s *Scene) occlusion(p, n math.Vec3) float32 {
	ao := float32(1)
	for _, sp := range s.Spheres {
		d := sp.Center.Sub(p)
		dist := d.Length()
		if dist <= sp.Radius {
			continue
		}
		facing := math32.Max(n.Dot(d.Scale(1/dist)), 0)
		ao -= facing * (sp.Radius * sp.Radius) / (dist * dist)
	}
	return math32.Max(ao, 0)
}

// markEdges seeds DistToEdge with 0 where the hard shadow changes between
// horizontal or vertical neighbours.
func (f *Frame) markEdges() {
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			i := y*f.Width + x
			edge := (x+1 < f.Width && f.HardShadow[i] != f.HardShadow[i+1]) ||
				(y+1 < f.Height && f.HardShadow[i] != f.HardShadow[i+f.Width])
			if edge {
				putFloat(f.DistToEdge, i, 0)
			} else {
				putFloat(f.DistToEdge, i, noEdge)
			}
		}
	}
}

func putFloat(dst []byte, i int, v float32) {
	binary.LittleEndian.PutUint32(dst[i*4:], math32.Float32bits(v))
}

func putVec4(dst []byte, i int, v math.Vec3, w float32) {
	o := i * 4
	putFloat(dst, o, v.X)
	putFloat(dst, o+1, v.Y)
	putFloat(dst, o+2, v.Z)
	putFloat(dst, o+3, w)
}

func putRGBA(dst []byte, i int, c math.Vec3) {
	dst[i*4] = unorm(c.X)
	dst[i*4+1] = unorm(c.Y)
	dst[i*4+2] = unorm(c.Z)
	dst[i*4+3] = 255
}

func unorm(v float32) byte {
	return byte(math32.Round(math32.Min(math32.Max(v, 0), 1) * 255))
}
