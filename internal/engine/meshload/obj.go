package meshload

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-fx/internal/engine/mesh"
	"github.com/Faultbox/midgard-fx/pkg/math"
)

// OBJParser reads Wavefront OBJ text. Each "o" statement starts a new mesh;
// a file without one yields a single mesh. Vertex, texcoord and normal
// lists are global to the file as in the format, so meshes may share them.
// Polygons are fan-triangulated. Unknown statements are ignored.
type OBJParser struct{}

// objVertex is one distinct position/texcoord/normal index triple. Zero
// means "absent" for texcoord and normal.
type objVertex struct {
	v, vt, vn int
}

type objBuilder struct {
	name      string
	lookup    map[objVertex]uint32
	corners   []objVertex
	triangles []math.UVec3
	hasUV     bool
	hasNormal bool
}

func newOBJBuilder(name string) *objBuilder {
	return &objBuilder{name: name, lookup: make(map[objVertex]uint32)}
}

func (b *objBuilder) index(c objVertex) uint32 {
	if i, ok := b.lookup[c]; ok {
		return i
	}
	i := uint32(len(b.corners))
	b.lookup[c] = i
	b.corners = append(b.corners, c)
	if c.vt != 0 {
		b.hasUV = true
	}
	if c.vn != 0 {
		b.hasNormal = true
	}
	return i
}

// Parse implements Parser.
func (OBJParser) Parse(data []byte, opts Options) ([]*mesh.Mesh, error) {
	var (
		positions []math.Vec3
		normals   []math.Vec3
		uvs       []math.Vec2
		builders  []*objBuilder
		current   *objBuilder
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v":
			p, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if opts.InvertZ {
				p.Z = -p.Z
			}
			positions = append(positions, p)

		case "vn":
			n, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if opts.InvertZ {
				n.Z = -n.Z
			}
			normals = append(normals, n)

		case "vt":
			uv, err := parseVec2(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if opts.FlipUVs {
				uv = uv.FlipV()
			}
			uvs = append(uvs, uv)

		case "o":
			name := ""
			if len(fields) > 1 {
				name = strings.Join(fields[1:], " ")
			}
			current = newOBJBuilder(name)
			builders = append(builders, current)

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face with %d vertices: %w", line, len(fields)-1, ErrMalformed)
			}
			if current == nil {
				current = newOBJBuilder("")
				builders = append(builders, current)
			}

			corners := make([]uint32, 0, len(fields)-1)
			for _, f := range fields[1:] {
				c, err := parseCorner(f, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				corners = append(corners, current.index(c))
			}
			for i := 1; i+1 < len(corners); i++ {
				tri := math.UVec3{X: corners[0], Y: corners[i], Z: corners[i+1]}
				if opts.InvertWinding {
					tri.Y, tri.Z = tri.Z, tri.Y
				}
				current.triangles = append(current.triangles, tri)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading obj: %w", err)
	}

	meshes := make([]*mesh.Mesh, 0, len(builders))
	for _, b := range builders {
		if len(b.triangles) == 0 {
			continue
		}
		meshes = append(meshes, b.build(positions, uvs, normals))
	}
	return meshes, nil
}

func (b *objBuilder) build(positions []math.Vec3, uvs []math.Vec2, normals []math.Vec3) *mesh.Mesh {
	p := make([]math.Vec3, len(b.corners))
	var n []math.Vec3
	var uv []math.Vec2
	if b.hasNormal {
		n = make([]math.Vec3, len(b.corners))
	}
	if b.hasUV {
		uv = make([]math.Vec2, len(b.corners))
	}

	for i, c := range b.corners {
		p[i] = positions[c.v-1]
		if c.vn != 0 {
			n[i] = normals[c.vn-1]
		}
		if c.vt != 0 {
			uv[i] = uvs[c.vt-1]
		}
	}

	var sets [][]math.Vec2
	if uv != nil {
		sets = append(sets, uv)
	}
	m := mesh.NewFromData(p, n, sets, b.triangles)
	m.Source.Format = "obj"
	return m
}

// parseCorner decodes "v", "v/vt", "v//vn" or "v/vt/vn" into 1-based
// indices, resolving negative (relative) references against the counts
// seen so far.
func parseCorner(s string, nv, nvt, nvn int) (objVertex, error) {
	parts := strings.Split(s, "/")
	if len(parts) > 3 {
		return objVertex{}, fmt.Errorf("face vertex %q: %w", s, ErrMalformed)
	}

	var c objVertex
	var err error
	if c.v, err = resolveIndex(parts[0], nv); err != nil || c.v == 0 {
		return objVertex{}, fmt.Errorf("face vertex %q: position: %w", s, ErrMalformed)
	}
	if len(parts) > 1 && parts[1] != "" {
		if c.vt, err = resolveIndex(parts[1], nvt); err != nil || c.vt == 0 {
			return objVertex{}, fmt.Errorf("face vertex %q: texcoord: %w", s, ErrMalformed)
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if c.vn, err = resolveIndex(parts[2], nvn); err != nil || c.vn == 0 {
			return objVertex{}, fmt.Errorf("face vertex %q: normal: %w", s, ErrMalformed)
		}
	}
	return c, nil
}

func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i = count + 1 + i
	}
	if i < 1 || i > count {
		return 0, fmt.Errorf("index %s out of range 1..%d", s, count)
	}
	return i, nil
}

func parseVec3(f []string) (math.Vec3, error) {
	if len(f) < 3 {
		return math.Vec3{}, fmt.Errorf("expected 3 components, got %d: %w", len(f), ErrMalformed)
	}
	var v [3]float32
	for i := range v {
		x, err := strconv.ParseFloat(f[i], 32)
		if err != nil {
			return math.Vec3{}, fmt.Errorf("component %q: %w", f[i], ErrMalformed)
		}
		v[i] = float32(x)
	}
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

func parseVec2(f []string) (math.Vec2, error) {
	if len(f) < 2 {
		return math.Vec2{}, fmt.Errorf("expected 2 components, got %d: %w", len(f), ErrMalformed)
	}
	u, err := strconv.ParseFloat(f[0], 32)
	if err != nil {
		return math.Vec2{}, fmt.Errorf("component %q: %w", f[0], ErrMalformed)
	}
	v, err := strconv.ParseFloat(f[1], 32)
	if err != nil {
		return math.Vec2{}, fmt.Errorf("component %q: %w", f[1], ErrMalformed)
	}
	return math.Vec2{X: float32(u), Y: float32(v)}, nil
}
