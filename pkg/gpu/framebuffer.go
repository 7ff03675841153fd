package gpu

// Framebuffer bundles an offscreen render target: the framebuffer object,
// its depth or depth-stencil renderbuffer (zero when absent) and the color
// texture.
type Framebuffer struct {
	Framebuffer  Handle
	Renderbuffer Handle
	Texture      Handle
}

// CreateFramebuffer allocates a color texture and a 16-bit depth attachment.
func (c *Context) CreateFramebuffer(width, height int) Framebuffer {
	return c.createFramebuffer(width, height, Depth16)
}

// CreateFramebufferStencil allocates a color texture and a depth-stencil
// attachment.
func (c *Context) CreateFramebufferStencil(width, height int) Framebuffer {
	return c.createFramebuffer(width, height, DepthStencil)
}

func (c *Context) createFramebuffer(width, height int, format RenderbufferFormat) Framebuffer {
	fb := Framebuffer{
		Framebuffer:  c.dev.CreateFramebuffer(),
		Renderbuffer: c.dev.CreateRenderbuffer(format, width, height),
		Texture:      c.dev.CreateTexture(Texture2D, Linear),
	}
	c.dev.TexImage2D(fb.Texture, Target2D, width, height, UnsignedByte, nil)
	c.dev.FramebufferRenderbuffer(fb.Framebuffer, fb.Renderbuffer)
	c.dev.FramebufferTexture(fb.Framebuffer, fb.Texture, Target2D)
	return fb
}

// CreateFramebufferFloat allocates a framebuffer with a float (or half
// float) color texture and no depth attachment. It reports false when the
// device supports neither texture type.
func (c *Context) CreateFramebufferFloat(width, height int) (Framebuffer, bool) {
	var typ PixelType
	switch {
	case c.ext.TextureFloat:
		typ = Float
	case c.ext.TextureHalfFloat:
		typ = HalfFloat
	default:
		c.logger.Warn("float texture not supported", "version", c.version)
		return Framebuffer{}, false
	}
	fb := Framebuffer{
		Framebuffer: c.dev.CreateFramebuffer(),
		Texture:     c.dev.CreateTexture(Texture2D, Nearest),
	}
	c.dev.TexImage2D(fb.Texture, Target2D, width, height, typ, nil)
	c.dev.FramebufferTexture(fb.Framebuffer, fb.Texture, Target2D)
	return fb, true
}

// CreateFramebufferCube allocates a cube color texture with one image per
// target and a depth attachment. No face is attached; select one with
// AttachFace before rendering.
func (c *Context) CreateFramebufferCube(width, height int, targets []TextureTarget) Framebuffer {
	fb := Framebuffer{
		Framebuffer:  c.dev.CreateFramebuffer(),
		Renderbuffer: c.dev.CreateRenderbuffer(Depth16, width, height),
		Texture:      c.dev.CreateTexture(TextureCube, Linear),
	}
	c.dev.FramebufferRenderbuffer(fb.Framebuffer, fb.Renderbuffer)
	for _, t := range targets {
		c.dev.TexImage2D(fb.Texture, t, width, height, UnsignedByte, nil)
	}
	return fb
}

// AttachFace directs rendering into one image of fb's texture.
func (c *Context) AttachFace(fb Framebuffer, target TextureTarget) {
	c.dev.FramebufferTexture(fb.Framebuffer, fb.Texture, target)
}

// BindFramebuffer directs rendering to fb, or to the default framebuffer
// when fb is nil.
func (c *Context) BindFramebuffer(fb *Framebuffer) {
	if fb == nil {
		c.dev.BindFramebuffer(0)
		return
	}
	c.dev.BindFramebuffer(fb.Framebuffer)
}

// DeleteFramebuffer deletes every object of fb. Objects the device does not
// recognize are skipped.
func (c *Context) DeleteFramebuffer(fb Framebuffer) {
	if c.dev.IsFramebuffer(fb.Framebuffer) {
		c.dev.DeleteFramebuffer(fb.Framebuffer)
	}
	if fb.Renderbuffer != 0 && c.dev.IsRenderbuffer(fb.Renderbuffer) {
		c.dev.DeleteRenderbuffer(fb.Renderbuffer)
	}
	if c.dev.IsTexture(fb.Texture) {
		c.dev.DeleteTexture(fb.Texture)
	}
}
