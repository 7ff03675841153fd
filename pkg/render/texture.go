package render

import (
	"image/color"
	"math"

	"github.com/taigrr/cubic/pkg/gpu"
	"github.com/taigrr/cubic/pkg/math3d"
)

// texture is a device texture object. Each target holds a mip chain with
// the base image first. Texels are stored as 8-bit RGBA whatever the
// requested pixel type.
type texture struct {
	kind   gpu.TextureKind
	filter gpu.Filter
	typ    gpu.PixelType
	levels map[gpu.TextureTarget][]*Framebuffer
}

func newTexture(kind gpu.TextureKind, filter gpu.Filter) *texture {
	return &texture{kind: kind, filter: filter, levels: make(map[gpu.TextureTarget][]*Framebuffer)}
}

// accepts reports whether target names an image of the texture kind.
func (t *texture) accepts(target gpu.TextureTarget) bool {
	if t.kind == gpu.Texture2D {
		return target == gpu.Target2D
	}
	return target >= gpu.CubePositiveX && target <= gpu.CubeNegativeZ
}

func (t *texture) base(target gpu.TextureTarget) *Framebuffer {
	chain := t.levels[target]
	if len(chain) == 0 {
		return nil
	}
	return chain[0]
}

// generateMipmaps rebuilds every chain from its base image.
func (t *texture) generateMipmaps() {
	for target, chain := range t.levels {
		if len(chain) == 0 {
			continue
		}
		chain = chain[:1]
		for lvl := chain[0]; lvl.Width > 1 || lvl.Height > 1; {
			lvl = lvl.Downsample()
			chain = append(chain, lvl)
		}
		t.levels[target] = chain
	}
}

// level picks the mip level for a level of detail, clamped to the chain.
func (t *texture) level(target gpu.TextureTarget, lod float64) *Framebuffer {
	chain := t.levels[target]
	if len(chain) == 0 {
		return nil
	}
	i := int(math.Round(lod))
	i = max(0, min(i, len(chain)-1))
	return chain[i]
}

// sample2D samples the 2D image at (u, v) with v = 0 at the bottom row.
// Coordinates clamp to the edge.
func (t *texture) sample2D(u, v, lod float64) color.NRGBA {
	img := t.level(gpu.Target2D, lod)
	if img == nil {
		return color.NRGBA{A: 255}
	}
	return sampleImage(img, clamp01(u), 1-clamp01(v), t.filter)
}

// sampleCube samples the face dir points at.
func (t *texture) sampleCube(dir math3d.Vec3) color.NRGBA {
	target, s, tc := cubeFace(dir)
	img := t.level(target, 0)
	if img == nil {
		return color.NRGBA{A: 255}
	}
	return sampleImage(img, s, tc, t.filter)
}

// cubeFace selects the face of the major axis of dir and the face
// coordinates in [0,1], with t = 0 at the first image row.
func cubeFace(dir math3d.Vec3) (gpu.TextureTarget, float64, float64) {
	ax, ay, az := math.Abs(dir.X), math.Abs(dir.Y), math.Abs(dir.Z)
	var (
		target gpu.TextureTarget
		sc, tc float64
		ma     float64
	)
	switch {
	case ax >= ay && ax >= az:
		ma = ax
		if dir.X > 0 {
			target, sc, tc = gpu.CubePositiveX, -dir.Z, -dir.Y
		} else {
			target, sc, tc = gpu.CubeNegativeX, dir.Z, -dir.Y
		}
	case ay >= az:
		ma = ay
		if dir.Y > 0 {
			target, sc, tc = gpu.CubePositiveY, dir.X, dir.Z
		} else {
			target, sc, tc = gpu.CubeNegativeY, dir.X, -dir.Z
		}
	default:
		ma = az
		if dir.Z > 0 {
			target, sc, tc = gpu.CubePositiveZ, dir.X, -dir.Y
		} else {
			target, sc, tc = gpu.CubeNegativeZ, -dir.X, -dir.Y
		}
	}
	if ma == 0 {
		return gpu.CubePositiveX, 0.5, 0.5
	}
	return target, clamp01((sc/ma + 1) / 2), clamp01((tc/ma + 1) / 2)
}

// sampleImage samples img at (x, y) in [0,1] with y = 0 at row 0.
func sampleImage(img *Framebuffer, x, y float64, filter gpu.Filter) color.NRGBA {
	if filter == gpu.Nearest {
		px := min(int(x*float64(img.Width)), img.Width-1)
		py := min(int(y*float64(img.Height)), img.Height-1)
		return img.GetPixel(px, py)
	}

	fx := x*float64(img.Width) - 0.5
	fy := y*float64(img.Height) - 0.5
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	clampX := func(v int) int { return max(0, min(v, img.Width-1)) }
	clampY := func(v int) int { return max(0, min(v, img.Height-1)) }
	x1, y1 := clampX(x0+1), clampY(y0+1)
	x0, y0 = clampX(x0), clampY(y0)

	top := lerpColor(img.GetPixel(x0, y0), img.GetPixel(x1, y0), tx)
	bot := lerpColor(img.GetPixel(x0, y1), img.GetPixel(x1, y1), tx)
	return lerpColor(top, bot, ty)
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	return color.NRGBA{
		R: uint8(float64(a.R) + (float64(b.R)-float64(a.R))*t + 0.5),
		G: uint8(float64(a.G) + (float64(b.G)-float64(a.G))*t + 0.5),
		B: uint8(float64(a.B) + (float64(b.B)-float64(a.B))*t + 0.5),
		A: uint8(float64(a.A) + (float64(b.A)-float64(a.A))*t + 0.5),
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
