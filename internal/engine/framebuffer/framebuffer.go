// Package framebuffer provides OpenGL framebuffer objects that render into
// existing texture levels.
package framebuffer

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"
)

// MaxAttachments is the number of color attachments a Framebuffer accepts.
// GL guarantees at least 8.
const MaxAttachments = 8

// Framebuffer is an FBO whose color attachments are mip levels of textures
// owned elsewhere. It never owns the textures it points at.
type Framebuffer struct {
	fbo      uint32
	attached int
	width    int32
	height   int32
}

// New creates an empty framebuffer.
func New() *Framebuffer {
	fb := &Framebuffer{}
	gl.GenFramebuffers(1, &fb.fbo)
	return fb
}

// Attach points the color attachments at one level of each texture, in
// order, and detaches any leftover attachments from a previous call.
// width and height are the size of that level.
func (fb *Framebuffer) Attach(textures []uint32, level int32, width, height int32) error {
	if len(textures) > MaxAttachments {
		return fmt.Errorf("attaching %d textures: at most %d supported", len(textures), MaxAttachments)
	}

	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, fb.fbo)

	buffers := make([]uint32, len(textures))
	for i, tex := range textures {
		attachment := gl.COLOR_ATTACHMENT0 + uint32(i)
		gl.FramebufferTexture(gl.DRAW_FRAMEBUFFER, attachment, tex, level)
		buffers[i] = attachment
	}
	for i := len(textures); i < fb.attached; i++ {
		gl.FramebufferTexture(gl.DRAW_FRAMEBUFFER, gl.COLOR_ATTACHMENT0+uint32(i), 0, 0)
	}
	fb.attached = len(textures)
	fb.width = width
	fb.height = height

	if len(buffers) > 0 {
		gl.DrawBuffers(int32(len(buffers)), &buffers[0])
	}

	// Check framebuffer completeness
	status := gl.CheckFramebufferStatus(gl.DRAW_FRAMEBUFFER)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
		return fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}
	return nil
}

// Detach drops every attachment and restores the default framebuffer.
func (fb *Framebuffer) Detach() {
	if fb.attached > 0 {
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, fb.fbo)
		for i := 0; i < fb.attached; i++ {
			gl.FramebufferTexture(gl.DRAW_FRAMEBUFFER, gl.COLOR_ATTACHMENT0+uint32(i), 0, 0)
		}
		fb.attached = 0
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// Size returns the size of the attached level.
func (fb *Framebuffer) Size() (width, height int32) {
	return fb.width, fb.height
}

// BlitToScreen copies level 0 of texture onto the default framebuffer,
// stretched to width x height.
func BlitToScreen(texture uint32, srcWidth, srcHeight, width, height int32) {
	var read uint32
	gl.GenFramebuffers(1, &read)
	defer gl.DeleteFramebuffers(1, &read)

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, read)
	gl.FramebufferTexture(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, texture, 0)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)

	// Flip vertically: texture rows start at the top, the screen at the bottom.
	gl.BlitFramebuffer(0, srcHeight, srcWidth, 0, 0, 0, width, height, gl.COLOR_BUFFER_BIT, gl.LINEAR)

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
}

// Destroy releases the framebuffer object.
func (fb *Framebuffer) Destroy() {
	if fb.fbo != 0 {
		gl.DeleteFramebuffers(1, &fb.fbo)
		fb.fbo = 0
	}
	fb.attached = 0
}
