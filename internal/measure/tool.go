// Package measure implements the linear measurement step over a finished
// chronophoto: one calibration line with a known real length, then any
// number of measured lines expressed in the calibrated unit.
package measure

import (
	"errors"
	"fmt"
	"math"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/raster"
)

type Unit string

const (
	Millimetre Unit = "mm"
	Centimetre Unit = "cm"
	Metre      Unit = "m"
)

// MinLineLength is the shortest line, in intrinsic pixels, that is kept.
const MinLineLength = 5.0

var (
	ErrNoScaleLine  = errors.New("no scale line drawn")
	ErrInvalidScale = errors.New("invalid scale value")
	ErrInvalidUnit  = errors.New("invalid unit")
)

type Line struct {
	P1, P2 raster.Point
	Length float64
	Unit   Unit
}

func (l Line) PixelLength() float64 {
	return math.Hypot(l.P2.X-l.P1.X, l.P2.Y-l.P1.Y)
}

// Label is the text drawn next to a measured line.
func (l Line) Label() string {
	return fmt.Sprintf("%.2f %s", l.Length, l.Unit)
}

type Tool struct {
	scaleLine    *Line
	scaleValue   float64
	unit         Unit
	scaleSet     bool
	current      *Line
	measurements []Line
}

func NewTool() *Tool {
	return &Tool{scaleValue: 1.0, unit: Metre}
}

func (t *Tool) Begin(p raster.Point) {
	t.current = &Line{P1: p, P2: p}
}

func (t *Tool) Move(p raster.Point) {
	if t.current == nil {
		return
	}
	t.current.P2 = p
}

// End finishes the line in progress. Before the scale is confirmed the line
// becomes the scale line; afterwards it is recorded as a measurement. Lines
// shorter than MinLineLength are dropped and ok is false.
func (t *Tool) End() (line Line, ok bool) {
	if t.current == nil {
		return Line{}, false
	}
	cur := *t.current
	t.current = nil

	dist := cur.PixelLength()
	if dist < MinLineLength {
		return Line{}, false
	}

	if !t.scaleSet {
		t.scaleLine = &cur
		return cur, true
	}
	if t.scaleLine == nil {
		return Line{}, false
	}
	cur.Length = dist * t.scaleValue / t.scaleLine.PixelLength()
	cur.Unit = t.unit
	t.measurements = append(t.measurements, cur)
	return cur, true
}

// SetScale records the real distance the scale line represents. It may only
// be changed while the scale is not confirmed.
func (t *Tool) SetScale(value float64, unit Unit) error {
	if t.scaleSet {
		return fmt.Errorf("%w: scale already confirmed", ErrInvalidScale)
	}
	if !(value > 0) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidScale, value)
	}
	switch unit {
	case Millimetre, Centimetre, Metre:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}
	t.scaleValue = value
	t.unit = unit
	return nil
}

// ConfirmScale locks the calibration. A scale line must exist.
func (t *Tool) ConfirmScale() error {
	if t.scaleLine == nil {
		return ErrNoScaleLine
	}
	t.scaleSet = true
	return nil
}

// ResetScale unlocks the calibration and drops all measurements.
func (t *Tool) ResetScale() {
	t.scaleSet = false
	t.measurements = nil
}

func (t *Tool) Clear() {
	t.measurements = nil
}

func (t *Tool) ScaleSet() bool { return t.scaleSet }

func (t *Tool) Scale() (value float64, unit Unit) { return t.scaleValue, t.unit }

func (t *Tool) ScaleLine() (Line, bool) {
	if t.scaleLine == nil {
		return Line{}, false
	}
	return *t.scaleLine, true
}

func (t *Tool) Measurements() []Line {
	out := make([]Line, len(t.measurements))
	copy(out, t.measurements)
	return out
}

// InstructionKey names the instruction text for the current phase.
func (t *Tool) InstructionKey() string {
	if t.scaleSet {
		return "measure.measure_instr"
	}
	return "measure.scale_instr"
}
