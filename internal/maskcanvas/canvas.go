// Package maskcanvas accumulates free-hand brush and eraser strokes for the
// frame currently being viewed and encodes them into a Mask.
package maskcanvas

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"go.uber.org/zap"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/raster"
)

type Tool string

const (
	Brush  Tool = "brush"
	Eraser Tool = "eraser"
)

// State of the stroke machine.
type State int

const (
	Idle State = iota
	Drawing
)

var (
	// BrushColor is the opaque fill painted into the mask.
	BrushColor = color.RGBA{R: 124, G: 58, B: 237, A: 255}
	// HighlightColor marks painted regions in the overlay at 50% opacity.
	HighlightColor = color.NRGBA{R: 124, G: 58, B: 237, A: 128}
	dimColor       = color.NRGBA{A: 128}
)

// Canvas owns the single offscreen mask buffer. It is re-bound to a frame
// with Load, which flushes whatever the previous frame left behind. Strokes
// arriving before the first Load, or while not Drawing, are ignored.
//
// A Canvas is not safe for concurrent use; the editor serializes access.
type Canvas struct {
	surface *raster.Canvas
	index   int
	ready   bool
	state   State
	moved   bool
	last    raster.Point
	logger  *zap.Logger
}

func New(logger *zap.Logger) *Canvas {
	return &Canvas{index: -1, logger: logger}
}

// Load binds the buffer to frame index, clears it and re-hydrates it from
// existing when a mask was already committed for that frame.
func (c *Canvas) Load(index, width, height int, existing *entity.Mask) error {
	c.ready = false
	c.state = Idle

	if c.surface == nil || c.surface.Bounds().Dx() != width || c.surface.Bounds().Dy() != height {
		s, err := raster.NewCanvas(width, height, BrushColor)
		if err != nil {
			return err
		}
		c.surface = s
	} else {
		c.surface.Clear()
	}

	if existing != nil {
		if err := c.surface.Load(existing.Data); err != nil {
			return fmt.Errorf("rehydrate mask for frame %d: %w", index, err)
		}
	}

	c.index = index
	c.ready = true
	c.logger.Debug("mask canvas loaded",
		zap.Int("frame_index", index),
		zap.Bool("rehydrated", existing != nil),
	)
	return nil
}

func (c *Canvas) Index() int { return c.index }

func (c *Canvas) State() State { return c.state }

// Surface exposes the raw buffer for rendering.
func (c *Canvas) Surface() raster.Surface {
	if c.surface == nil {
		return nil
	}
	return c.surface
}

// BeginStroke arms the stroke at p. Nothing is painted until the first move.
func (c *Canvas) BeginStroke(p raster.Point, _ Tool, _ float64) {
	if !c.ready {
		return
	}
	c.state = Drawing
	c.moved = false
	c.last = p
}

// ContinueStroke stamps a disc of the given diameter at p and bridges it to
// the previous point with a band of the same width. Points are not
// interpolated further, so very fast motion can still leave gaps.
func (c *Canvas) ContinueStroke(p raster.Point, tool Tool, diameter float64) {
	if c.state != Drawing {
		return
	}
	radius := diameter / 2
	blend := raster.BlendOver
	if tool == Eraser {
		blend = raster.BlendClear
	}

	if !c.moved {
		c.surface.Stamp(c.last, radius, blend)
		c.moved = true
	}
	c.surface.StampSegment(c.last, p, radius, blend)
	c.surface.Stamp(p, radius, blend)
	c.last = p
}

// EndStroke finishes the stroke and returns the whole buffer as a Mask for
// the bound frame. ok is false when no stroke was in progress.
func (c *Canvas) EndStroke() (mask entity.Mask, ok bool, err error) {
	if c.state != Drawing {
		return entity.Mask{}, false, nil
	}
	c.state = Idle

	data, err := c.surface.Encode()
	if err != nil {
		return entity.Mask{}, false, fmt.Errorf("encode mask for frame %d: %w", c.index, err)
	}
	b := c.surface.Bounds()
	return entity.Mask{Width: b.Dx(), Height: b.Dy(), Data: data}, true, nil
}

// Overlay renders frame dimmed to 50% with the painted region highlighted.
func (c *Canvas) Overlay(frame image.Image) *image.RGBA {
	out := raster.ToRGBA(frame)
	b := out.Bounds()
	draw.Draw(out, b, image.NewUniform(dimColor), image.Point{}, draw.Over)
	if c.surface != nil {
		draw.DrawMask(out, b, image.NewUniform(HighlightColor), image.Point{}, c.surface.Image(), image.Point{}, draw.Over)
	}
	return out
}
