package measure

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/raster"
)

const (
	lineWidth    = 3.0
	capHalfWidth = 10.0
	labelOffset  = 10
)

var (
	ScaleColor       = color.RGBA{R: 0x7c, G: 0x3a, B: 0xed, A: 0xff}
	MeasurementColor = color.RGBA{R: 0x10, G: 0xb9, B: 0x81, A: 0xff}
)

// Render draws the scale line, the line in progress and every measurement
// with its label over a copy of base.
func (t *Tool) Render(base image.Image) (*image.RGBA, error) {
	out := raster.ToRGBA(base)
	b := out.Bounds()

	scale, err := raster.NewCanvas(b.Dx(), b.Dy(), ScaleColor)
	if err != nil {
		return nil, err
	}
	measured, err := raster.NewCanvas(b.Dx(), b.Dy(), MeasurementColor)
	if err != nil {
		return nil, err
	}

	if t.scaleLine != nil {
		strokeLine(scale, *t.scaleLine)
	}
	if t.current != nil {
		if t.scaleSet {
			strokeLine(measured, *t.current)
		} else {
			strokeLine(scale, *t.current)
		}
	}
	for _, m := range t.measurements {
		strokeLine(measured, m)
	}

	draw.Draw(out, b, scale.Image(), image.Point{}, draw.Over)
	draw.Draw(out, b, measured.Image(), image.Point{}, draw.Over)

	for _, m := range t.measurements {
		mid := image.Pt(int((m.P1.X+m.P2.X)/2)+labelOffset, int((m.P1.Y+m.P2.Y)/2))
		drawLabel(out, mid, m.Label())
	}
	return out, nil
}

func strokeLine(s raster.Surface, l Line) {
	r := lineWidth / 2
	s.Stamp(l.P1, r, raster.BlendOver)
	s.StampSegment(l.P1, l.P2, r, raster.BlendOver)
	s.Stamp(l.P2, r, raster.BlendOver)

	angle := math.Atan2(l.P2.Y-l.P1.Y, l.P2.X-l.P1.X)
	dx, dy := math.Sin(angle)*capHalfWidth, math.Cos(angle)*capHalfWidth
	for _, p := range []raster.Point{l.P1, l.P2} {
		a := raster.Point{X: p.X - dx, Y: p.Y + dy}
		c := raster.Point{X: p.X + dx, Y: p.Y - dy}
		s.StampSegment(a, c, r, raster.BlendOver)
	}
}

// drawLabel writes white text with a one-pixel black outline.
func drawLabel(dst draw.Image, at image.Point, text string) {
	face := basicfont.Face7x13
	for _, off := range []image.Point{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		d := font.Drawer{Dst: dst, Src: image.Black, Face: face, Dot: fixed.P(at.X+off.X, at.Y+off.Y)}
		d.DrawString(text)
	}
	d := font.Drawer{Dst: dst, Src: image.White, Face: face, Dot: fixed.P(at.X, at.Y)}
	d.DrawString(text)
}
