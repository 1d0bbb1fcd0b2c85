package preview

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// canvas is the drawing target, one RGBA pixel per 4 bytes, transparent until drawn on.
type canvas struct {
	img *image.NRGBA
}

func newCanvas(w, h int) *canvas {
	return &canvas{img: image.NewNRGBA(image.Rect(0, 0, w, h))}
}

func (c *canvas) set(x, y int, col color.NRGBA) {
	if !image.Pt(x, y).In(c.img.Rect) {
		return
	}
	i := c.img.PixOffset(x, y)
	c.img.Pix[i] = col.R
	c.img.Pix[i+1] = col.G
	c.img.Pix[i+2] = col.B
	c.img.Pix[i+3] = col.A
}

// dot fills a square of side w centred on (x, y).
func (c *canvas) dot(x, y, w int, col color.NRGBA) {
	r := w / 2
	for dy := -r; dy <= w-1-r; dy++ {
		for dx := -r; dx <= w-1-r; dx++ {
			c.set(x+dx, y+dy, col)
		}
	}
}

// line draws a w-pixel wide segment with Bresenham stepping.
func (c *canvas) line(x0, y0, x1, y1, w int, col color.NRGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.dot(x0, y0, w, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// rect outlines the box spanned by two corners.
func (c *canvas) rect(x0, y0, x1, y1, w int, col color.NRGBA) {
	c.line(x0, y0, x1, y0, w, col)
	c.line(x1, y0, x1, y1, w, col)
	c.line(x1, y1, x0, y1, w, col)
	c.line(x0, y1, x0, y0, w, col)
}

// resolve shrinks the canvas by factor on both axes. Filtering runs on premultiplied pixels
// so the transparent background does not bleed dark fringes into the strokes.
func (c *canvas) resolve(factor int) *image.NRGBA {
	if factor <= 1 {
		return c.img
	}
	b := c.img.Bounds()
	premul := image.NewRGBA(b)
	draw.Copy(premul, b.Min, c.img, b, draw.Src, nil)

	small := image.NewRGBA(image.Rect(0, 0, b.Dx()/factor, b.Dy()/factor))
	draw.CatmullRom.Scale(small, small.Bounds(), premul, b, draw.Src, nil)

	out := image.NewNRGBA(small.Bounds())
	draw.Copy(out, image.Point{}, small, small.Bounds(), draw.Src, nil)
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
