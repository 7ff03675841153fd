package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// Draw presents the framebuffer in area using upper half blocks: each cell
// shows two framebuffer rows, the top one as foreground and the bottom one
// as background. The framebuffer should be twice as tall as area.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := (row - area.Min.Y) * 2
		botY := topY + 1
		for col := area.Min.X; col < area.Max.X && col-area.Min.X < fb.Width; col++ {
			x := col - area.Min.X
			scr.SetCell(col, row, &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: cellColor(fb.GetPixel(x, topY)),
					Bg: cellColor(fb.GetPixel(x, botY)),
				},
			})
		}
	}
}

// cellColor maps fully transparent pixels to the terminal default.
func cellColor(c color.NRGBA) color.Color {
	if c.A == 0 {
		return nil
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}
