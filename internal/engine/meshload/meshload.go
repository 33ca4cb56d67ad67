// Package meshload turns mesh files into CPU-resident meshes.
//
// Parsers are looked up by format name in a Registry. A file may hold
// several meshes; callers pick one by index or take them all.
package meshload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/internal/engine/mesh"
	"github.com/Faultbox/midgard-fx/internal/logger"
)

// Loader errors.
var (
	ErrUnknownFormat = errors.New("unknown mesh format")
	ErrMalformed     = errors.New("malformed mesh data")
)

// Format names a file format, e.g. "obj".
type Format string

// FileInfo describes one mesh to load and is recorded on the result.
type FileInfo = mesh.Source

// Options are the import-time transforms every parser honours.
type Options struct {
	// InvertZ negates the Z coordinate of positions and normals.
	InvertZ bool
	// InvertWinding swaps the second and third index of every triangle.
	InvertWinding bool
	// FlipUVs replaces v with 1-v.
	FlipUVs bool
}

// Parser decodes every mesh in a file.
type Parser interface {
	Parse(data []byte, opts Options) ([]*mesh.Mesh, error)
}

// Registry maps formats to parsers.
type Registry struct {
	parsers map[Format]Parser
}

// NewRegistry returns a registry with the built-in parsers.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[Format]Parser)}
	r.Register("obj", OBJParser{})
	return r
}

// DefaultRegistry is used by the package-level functions.
var DefaultRegistry = NewRegistry()

// Register adds or replaces the parser for format. Format names are
// case-insensitive.
func (r *Registry) Register(format Format, p Parser) {
	r.parsers[normalize(format)] = p
}

// Lookup returns the parser for format.
func (r *Registry) Lookup(format Format) (Parser, error) {
	p, ok := r.parsers[normalize(format)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return p, nil
}

// Formats lists the registered formats in sorted order.
func (r *Registry) Formats() []Format {
	out := make([]Format, 0, len(r.parsers))
	for f := range r.parsers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllFromMemory parses every mesh in data.
func (r *Registry) AllFromMemory(data []byte, format Format, opts Options) ([]*mesh.Mesh, error) {
	p, err := r.Lookup(format)
	if err != nil {
		return nil, err
	}
	meshes, err := p.Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", format, err)
	}
	return meshes, nil
}

// FromMemory parses data and returns the mesh at index.
func (r *Registry) FromMemory(data []byte, format Format, index int, opts Options) (*mesh.Mesh, error) {
	if index < 0 {
		return nil, fmt.Errorf("mesh index %d: %w", index, gpu.ErrInvalidArgument)
	}
	meshes, err := r.AllFromMemory(data, format, opts)
	if err != nil {
		return nil, err
	}
	if index >= len(meshes) {
		return nil, fmt.Errorf("mesh index %d of %d: %w", index, len(meshes), gpu.ErrIndexOutOfRange)
	}
	return meshes[index], nil
}

// FromFile loads the mesh described by info. An empty info.Format is taken
// from the file extension. The returned mesh carries info as its Source.
func (r *Registry) FromFile(info FileInfo) (*mesh.Mesh, error) {
	if info.Format == "" {
		info.Format = strings.TrimPrefix(filepath.Ext(info.Path), ".")
	}
	data, err := os.ReadFile(info.Path)
	if err != nil {
		return nil, fmt.Errorf("reading mesh file: %w", err)
	}

	m, err := r.FromMemory(data, Format(info.Format), info.IndexInFile, optionsOf(info))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", info.Path, err)
	}
	m.Source = info

	log := logger.Named("meshload")
	if p, err := m.Positions(); err == nil {
		t, _ := m.Triangles()
		log.Debug("loaded mesh",
			zap.String("path", info.Path),
			zap.Int("index", info.IndexInFile),
			zap.Int("vertices", len(p)),
			zap.Int("triangles", len(t)),
		)
	}
	return m, nil
}

// AllFromMemory parses every mesh in data with the default registry.
func AllFromMemory(data []byte, format Format, opts Options) ([]*mesh.Mesh, error) {
	return DefaultRegistry.AllFromMemory(data, format, opts)
}

// FromMemory returns mesh index of data with the default registry.
func FromMemory(data []byte, format Format, index int, opts Options) (*mesh.Mesh, error) {
	return DefaultRegistry.FromMemory(data, format, index, opts)
}

// FromFile loads info with the default registry.
func FromFile(info FileInfo) (*mesh.Mesh, error) {
	return DefaultRegistry.FromFile(info)
}

func optionsOf(info FileInfo) Options {
	return Options{
		InvertZ:       info.InvertZ,
		InvertWinding: info.InvertWinding,
		FlipUVs:       info.FlipUVs,
	}
}

func normalize(f Format) Format {
	return Format(strings.ToLower(string(f)))
}
