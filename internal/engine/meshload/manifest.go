package meshload

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-fx/internal/engine/mesh"
)

// Manifest lists mesh files to load.
type Manifest struct {
	Meshes []FileInfo `yaml:"meshes"`
}

// LoadManifest reads a yaml manifest. Relative mesh paths are resolved
// against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	dir := filepath.Dir(path)
	for i := range m.Meshes {
		if m.Meshes[i].Path == "" {
			return nil, fmt.Errorf("manifest entry %d: missing path", i)
		}
		if !filepath.IsAbs(m.Meshes[i].Path) {
			m.Meshes[i].Path = filepath.Join(dir, m.Meshes[i].Path)
		}
	}
	return &m, nil
}

// Load loads every entry with r, stopping at the first failure.
func (m *Manifest) Load(r *Registry) ([]*mesh.Mesh, error) {
	out := make([]*mesh.Mesh, 0, len(m.Meshes))
	for _, info := range m.Meshes {
		mm, err := r.FromFile(info)
		if err != nil {
			return nil, err
		}
		out = append(out, mm)
	}
	return out, nil
}
