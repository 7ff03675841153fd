package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// Framebuffer is a 2D array of non-premultiplied pixels. It backs the
// default render target and every texture image.
type Framebuffer struct {
	Width  int
	Height int
	Pixels []color.NRGBA // Row-major, row 0 at the top
}

// NewFramebuffer creates a transparent framebuffer.
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pixels: make([]color.NRGBA, width*height),
	}
}

// FramebufferFromImage copies img into a new framebuffer.
func FramebufferFromImage(img image.Image) *Framebuffer {
	b := img.Bounds()
	fb := NewFramebuffer(b.Dx(), b.Dy())
	if src, ok := img.(*image.NRGBA); ok {
		for y := range fb.Height {
			for x := range fb.Width {
				fb.Pixels[y*fb.Width+x] = src.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			}
		}
		return fb
	}
	for y := range fb.Height {
		for x := range fb.Width {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			fb.Pixels[y*fb.Width+x] = c
		}
	}
	return fb
}

// Clear fills the framebuffer with a solid color.
func (fb *Framebuffer) Clear(c color.NRGBA) {
	n := len(fb.Pixels)
	if n == 0 {
		return
	}
	fb.Pixels[0] = c
	for i := 1; i < n; i *= 2 {
		copy(fb.Pixels[i:], fb.Pixels[:i])
	}
}

// SetPixel sets the pixel at (x, y). Out of bounds writes are dropped.
func (fb *Framebuffer) SetPixel(x, y int, c color.NRGBA) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	fb.Pixels[y*fb.Width+x] = c
}

// GetPixel returns the pixel at (x, y), or transparent black out of bounds.
func (fb *Framebuffer) GetPixel(x, y int) color.NRGBA {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return color.NRGBA{}
	}
	return fb.Pixels[y*fb.Width+x]
}

// DrawLine draws a line from (x0, y0) to (x1, y1).
func (fb *Framebuffer) DrawLine(x0, y0, x1, y1 int, c color.NRGBA) {
	bresenham(x0, y0, x1, y1, func(x, y int, _ float64) {
		fb.SetPixel(x, y, c)
	})
}

// bresenham visits every pixel of the line from (x0, y0) to (x1, y1). t is
// the fraction of the line covered so far.
func bresenham(x0, y0, x1, y1 int, plot func(x, y int, t float64)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	steps := max(dx, -dy)
	for step := 0; ; step++ {
		t := 0.0
		if steps > 0 {
			t = float64(step) / float64(steps)
		}
		plot(x0, y0, t)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ToImage copies the framebuffer into a standard image.
func (fb *Framebuffer) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := range fb.Height {
		for x := range fb.Width {
			img.SetNRGBA(x, y, fb.Pixels[y*fb.Width+x])
		}
	}
	return img
}

// Downsample returns a bilinearly filtered copy at half size, never
// smaller than 1x1.
func (fb *Framebuffer) Downsample() *Framebuffer {
	w, h := max(1, fb.Width/2), max(1, fb.Height/2)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	src := fb.ToImage()
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return FramebufferFromImage(dst)
}

// SavePNG writes the framebuffer to path as a PNG file.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, fb.ToImage()); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
