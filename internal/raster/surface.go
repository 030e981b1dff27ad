package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
)

// MaxDimension is the largest side a Canvas will allocate.
const MaxDimension = 16384

// Point is a position in intrinsic pixel space.
type Point struct {
	X, Y float64
}

// Blend selects how a stamp combines with the destination.
type Blend int

const (
	// BlendOver paints the fill colour source-over.
	BlendOver Blend = iota
	// BlendClear removes destination alpha in proportion to coverage.
	BlendClear
)

// Surface is the drawing capability the mask canvas and sampler work against.
type Surface interface {
	Bounds() image.Rectangle
	Draw(src image.Image, srcRect, dstRect image.Rectangle)
	Stamp(p Point, radius float64, blend Blend)
	StampSegment(a, b Point, radius float64, blend Blend)
	Clear()
	Encode() ([]byte, error)
	Image() *image.RGBA
}

// Canvas is a Surface backed by an RGBA buffer. Stamps are rasterized with
// x/image/vector so edges carry anti-aliased partial alpha.
//
// A Canvas is not safe for concurrent use.
type Canvas struct {
	img  *image.RGBA
	fill *image.Uniform
	z    *vector.Rasterizer

	// cover backs the eraser coverage buffer. Its stride always equals the
	// box width: vector's opaque Src fast path writes it as one run.
	cover []uint8
}

// NewCanvas allocates a w×h transparent surface painting with fill.
func NewCanvas(w, h int, fill color.Color) (*Canvas, error) {
	if w <= 0 || h <= 0 || w > MaxDimension || h > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d", entity.ErrCanvasUnavailable, w, h)
	}
	return &Canvas{
		img:  image.NewRGBA(image.Rect(0, 0, w, h)),
		fill: image.NewUniform(fill),
		z:    vector.NewRasterizer(1, 1),
	}, nil
}

func (c *Canvas) Bounds() image.Rectangle { return c.img.Bounds() }

func (c *Canvas) Image() *image.RGBA { return c.img }

// Draw copies srcRect of src into dstRect, scaling when the sizes differ.
func (c *Canvas) Draw(src image.Image, srcRect, dstRect image.Rectangle) {
	if srcRect.Size() == dstRect.Size() {
		xdraw.Draw(c.img, dstRect, src, srcRect.Min, xdraw.Src)
		return
	}
	xdraw.ApproxBiLinear.Scale(c.img, dstRect, src, srcRect, xdraw.Src, nil)
}

func (c *Canvas) Clear() {
	clear(c.img.Pix)
}

func (c *Canvas) Encode() ([]byte, error) {
	return EncodePNG(c.img)
}

// Load replaces the buffer content with a decoded raster drawn at (0,0).
func (c *Canvas) Load(data []byte) error {
	img, err := Decode(data)
	if err != nil {
		return err
	}
	c.Clear()
	xdraw.Draw(c.img, c.img.Bounds(), img, img.Bounds().Min, xdraw.Src)
	return nil
}

// AlphaAt returns the 8-bit alpha at (x, y).
func (c *Canvas) AlphaAt(x, y int) uint8 {
	return c.img.RGBAAt(x, y).A
}

// Stamp fills a disc of the given radius centred on p.
func (c *Canvas) Stamp(p Point, radius float64, blend Blend) {
	if radius <= 0 {
		return
	}
	box, ok := c.clip(p.X-radius, p.Y-radius, p.X+radius, p.Y+radius)
	if !ok {
		return
	}
	c.begin(box, blend)
	addCircle(c.z, float32(p.X-float64(box.Min.X)), float32(p.Y-float64(box.Min.Y)), float32(radius))
	c.finish(box, blend)
}

// StampSegment fills the band of half-width radius between a and b. Paired
// with disc stamps at both ends it gives round caps and joins.
func (c *Canvas) StampSegment(a, b Point, radius float64, blend Blend) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if radius <= 0 || length < 1e-6 {
		return
	}
	nx, ny := -dy/length*radius, dx/length*radius
	box, ok := c.clip(
		math.Min(a.X, b.X)-radius, math.Min(a.Y, b.Y)-radius,
		math.Max(a.X, b.X)+radius, math.Max(a.Y, b.Y)+radius,
	)
	if !ok {
		return
	}
	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	c.begin(box, blend)
	c.z.MoveTo(float32(a.X+nx-ox), float32(a.Y+ny-oy))
	c.z.LineTo(float32(b.X+nx-ox), float32(b.Y+ny-oy))
	c.z.LineTo(float32(b.X-nx-ox), float32(b.Y-ny-oy))
	c.z.LineTo(float32(a.X-nx-ox), float32(a.Y-ny-oy))
	c.z.ClosePath()
	c.finish(box, blend)
}

// clip returns the integer pixel box covering the given extent, limited to
// the canvas bounds.
func (c *Canvas) clip(x0, y0, x1, y1 float64) (image.Rectangle, bool) {
	box := image.Rect(
		int(math.Floor(x0))-1, int(math.Floor(y0))-1,
		int(math.Ceil(x1))+1, int(math.Ceil(y1))+1,
	).Intersect(c.img.Bounds())
	return box, !box.Empty()
}

func (c *Canvas) begin(box image.Rectangle, blend Blend) {
	c.z.Reset(box.Dx(), box.Dy())
	if blend == BlendClear {
		c.z.DrawOp = xdraw.Src
	} else {
		c.z.DrawOp = xdraw.Over
	}
}

func (c *Canvas) finish(box image.Rectangle, blend Blend) {
	if blend != BlendClear {
		c.z.Draw(c.img, box, c.fill, image.Point{})
		return
	}
	c.erase(box)
}

// erase rasterizes coverage into a scratch alpha buffer and scales every
// destination channel inside box by (1 - coverage). Pixels the path does not
// touch keep their value.
func (c *Canvas) erase(box image.Rectangle) {
	w, h := box.Dx(), box.Dy()
	if cap(c.cover) < w*h {
		c.cover = make([]uint8, w*h)
	}
	cover := &image.Alpha{Pix: c.cover[:w*h], Stride: w, Rect: image.Rect(0, 0, w, h)}
	c.z.Draw(cover, cover.Bounds(), image.Opaque, image.Point{})

	for y := 0; y < h; y++ {
		mrow := cover.Pix[y*cover.Stride : y*cover.Stride+w]
		off := c.img.PixOffset(box.Min.X, box.Min.Y+y)
		drow := c.img.Pix[off : off+4*w]
		for x, m := range mrow {
			if m == 0 {
				continue
			}
			keep := 0xff - uint32(m)
			px := drow[4*x : 4*x+4]
			for i := range px {
				px[i] = uint8((uint32(px[i])*keep + 0x7f) / 0xff)
			}
		}
	}
}

// addCircle appends a closed circle built from four cubic Béziers.
func addCircle(z *vector.Rasterizer, cx, cy, r float32) {
	const k = float32(0.5522847498)
	kr := k * r

	z.MoveTo(cx, cy-r)
	z.CubeTo(cx+kr, cy-r, cx+r, cy-kr, cx+r, cy)
	z.CubeTo(cx+r, cy+kr, cx+kr, cy+r, cx, cy+r)
	z.CubeTo(cx-kr, cy+r, cx-r, cy+kr, cx-r, cy)
	z.CubeTo(cx-r, cy-kr, cx-kr, cy-r, cx, cy-r)
	z.ClosePath()
}
