package gpu

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"sync/atomic"

	// Decoders for texture sources.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// ImageSource produces a decoded image. Sources run off the frame goroutine.
type ImageSource func() (image.Image, error)

// FromFile decodes the image file at path.
func FromFile(path string) ImageSource {
	return func() (image.Image, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return img, nil
	}
}

// FromBytes decodes an encoded image held in memory.
func FromBytes(data []byte) ImageSource {
	return func() (image.Image, error) {
		img, _, err := image.Decode(bytes.NewReader(data))
		return img, err
	}
}

// FromImage returns img as is.
func FromImage(img image.Image) ImageSource {
	return func() (image.Image, error) {
		return img, nil
	}
}

// TextureFuture resolves to a texture once its images are decoded and
// uploaded by Poll.
type TextureFuture struct {
	done      chan struct{}
	discarded atomic.Bool
	tex       Handle
	err       error
}

func newTextureFuture() *TextureFuture {
	return &TextureFuture{done: make(chan struct{})}
}

func (f *TextureFuture) resolve(tex Handle, err error) {
	f.tex, f.err = tex, err
	close(f.done)
}

// Discard drops the upload if it has not run yet. Decoding still runs to
// completion; the future then resolves with ErrDiscarded and no texture is
// created. A future that already resolved keeps its texture and the caller
// still owns it.
func (f *TextureFuture) Discard() { f.discarded.Store(true) }

// upload runs create unless f was discarded.
func (f *TextureFuture) upload(create func() Handle) {
	if f.discarded.Load() {
		f.resolve(0, ErrDiscarded)
		return
	}
	f.resolve(create(), nil)
}

// Done is closed once the future resolves.
func (f *TextureFuture) Done() <-chan struct{} { return f.done }

// Result returns the texture, or the load error. It returns ErrPending
// before the future resolves.
func (f *TextureFuture) Result() (Handle, error) {
	select {
	case <-f.done:
		return f.tex, f.err
	default:
		return 0, ErrPending
	}
}

// CreateTexture2D decodes src in the background. The upload, mipmap
// generation and resolution of the future happen in a later Poll.
func (c *Context) CreateTexture2D(src ImageSource) *TextureFuture {
	f := newTextureFuture()
	go func() {
		img, err := src()
		if err != nil {
			c.logger.Error("texture load failed", "err", err)
			f.resolve(0, fmt.Errorf("load texture: %w", err))
			return
		}
		c.enqueue(func() {
			f.upload(func() Handle { return c.CreateTextureFromImage(img) })
		})
	}()
	return f
}

// CreateTextureCube decodes one source per target concurrently and uploads
// nothing until all of them have decoded. Every face is uploaded in the
// same Poll and mipmaps are generated once after the last face.
func (c *Context) CreateTextureCube(sources []ImageSource, targets []TextureTarget) *TextureFuture {
	f := newTextureFuture()
	if len(sources) != len(targets) {
		f.resolve(0, fmt.Errorf("load cube texture: %d sources for %d targets", len(sources), len(targets)))
		return f
	}
	go func() {
		images := make([]image.Image, len(sources))
		var g errgroup.Group
		for i, src := range sources {
			g.Go(func() error {
				img, err := src()
				if err != nil {
					return fmt.Errorf("face %d: %w", i, err)
				}
				images[i] = img
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			c.logger.Error("cube texture load failed", "err", err)
			f.resolve(0, fmt.Errorf("load cube texture: %w", err))
			return
		}
		c.enqueue(func() {
			f.upload(func() Handle {
				tex := c.dev.CreateTexture(TextureCube, Linear)
				for i, target := range targets {
					b := images[i].Bounds()
					c.dev.TexImage2D(tex, target, b.Dx(), b.Dy(), UnsignedByte, images[i])
				}
				c.dev.GenerateMipmap(tex)
				return tex
			})
		})
	}()
	return f
}

// CreateTextureFromImage uploads img synchronously and generates mipmaps.
func (c *Context) CreateTextureFromImage(img image.Image) Handle {
	tex := c.dev.CreateTexture(Texture2D, Linear)
	b := img.Bounds()
	c.dev.TexImage2D(tex, Target2D, b.Dx(), b.Dy(), UnsignedByte, img)
	c.dev.GenerateMipmap(tex)
	return tex
}

func (c *Context) enqueue(job func()) {
	c.mu.Lock()
	c.pending = append(c.pending, job)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Poll runs the uploads of every texture whose images finished decoding
// and reports how many ran. Call it once per frame.
func (c *Context) Poll() int {
	c.mu.Lock()
	jobs := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, job := range jobs {
		job()
	}
	return len(jobs)
}

// Await polls until f resolves or ctx is done.
func (c *Context) Await(ctx context.Context, f *TextureFuture) (Handle, error) {
	for {
		c.Poll()
		select {
		case <-f.done:
			return f.tex, f.err
		default:
		}
		select {
		case <-f.done:
			return f.tex, f.err
		case <-c.notify:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}
