// Package shaders embeds the GLSL sources of every pass.
//
// Binding conventions shared by all programs:
//   - input slot N is sampler binding N, read with texelFetch at level 0
//   - the constant block is the std140 uniform block at binding 0
//   - compute outputs are image unit 0
//
// Output formats: blur targets are r8, edge distance targets r32f and
// shading targets rgba32f. Shading accumulates into its target, so the
// emissive pass runs first.
package shaders

import "embed"

// FS holds the sources at its root, e.g. "blur_shadows.comp".
//
//go:embed *.comp *.vert *.frag
var FS embed.FS
