// Package math provides the small vector types shared by CPU mesh data and
// GPU constant buffers.
package math

import "github.com/chewxy/math32"

// Vec2 is a 2D vector, used for texture coordinates and image sizes.
type Vec2 struct {
	X, Y float32
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

// Scale returns v * scalar.
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Length returns the magnitude.
func (v Vec2) Length() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y)
}

// FlipV returns the coordinate with V mirrored (u, 1-v).
func (v Vec2) FlipV() Vec2 {
	return Vec2{v.X, 1 - v.Y}
}
