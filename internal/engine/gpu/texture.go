package gpu

import "fmt"

// TextureDesc describes a 2D texture to create.
type TextureDesc struct {
	Label     string
	Width     int
	Height    int
	MipLevels int // 0 or 1 means a single level
	Format    Format
	Bind      TextureBind
}

// Texture is a created 2D texture together with the views the backend made
// for it. Views are only present for the bind flags requested.
type Texture struct {
	ID   TextureID
	Desc TextureDesc

	// View covers all mip levels for sampling.
	View ViewID
	// WriteView is the unordered-access view of level 0.
	WriteView ViewID
	// LevelViews[i] samples mip level i only.
	LevelViews []ViewID
}

// Width returns the width of level 0.
func (t *Texture) Width() int { return t.Desc.Width }

// Height returns the height of level 0.
func (t *Texture) Height() int { return t.Desc.Height }

// MipLevels returns the number of mip levels, at least 1.
func (t *Texture) MipLevels() int {
	if t.Desc.MipLevels < 1 {
		return 1
	}
	return t.Desc.MipLevels
}

// Dimensions returns the size of the given mip level.
func (t *Texture) Dimensions(level int) (width, height int) {
	return mipSize(t.Desc.Width, level), mipSize(t.Desc.Height, level)
}

// LevelView returns the shader view of one mip level, or InvalidID if the
// level has none.
func (t *Texture) LevelView(level int) ViewID {
	if level < 0 || level >= len(t.LevelViews) {
		return InvalidID
	}
	return t.LevelViews[level]
}

// MipCount returns the length of a full mip chain for the given size.
func MipCount(width, height int) int {
	n := 1
	for width > 1 || height > 1 {
		width /= 2
		height /= 2
		n++
	}
	return n
}

func mipSize(size, level int) int {
	s := size >> uint(level)
	if s < 1 {
		return 1
	}
	return s
}

// Views returns the all-levels shader view of each texture in order. A nil
// texture, or one created without BindShaderResource, is an invalid
// argument.
func Views(textures ...*Texture) ([]ViewID, error) {
	views := make([]ViewID, len(textures))
	for i, t := range textures {
		if t == nil {
			return nil, fmt.Errorf("input %d: nil texture: %w", i, ErrInvalidArgument)
		}
		if t.View == InvalidID {
			return nil, fmt.Errorf("input %d: texture %q has no shader view: %w", i, t.Desc.Label, ErrInvalidArgument)
		}
		views[i] = t.View
	}
	return views, nil
}
