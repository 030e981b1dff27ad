package input

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/raster"
)

func TestMapScalesToIntrinsic(t *testing.T) {
	s := Surface{IntrinsicWidth: 1000, IntrinsicHeight: 500, DisplayWidth: 500, DisplayHeight: 250}
	got := Map(Event{Kind: Move, ClientX: 100, ClientY: 100}, s)
	assert.Equal(t, raster.Point{X: 200, Y: 200}, got)
}

func TestMapNonUniformScale(t *testing.T) {
	s := Surface{IntrinsicWidth: 800, IntrinsicHeight: 600, DisplayWidth: 400, DisplayHeight: 600}
	got := Map(Event{ClientX: 100, ClientY: 100}, s)
	assert.InDelta(t, 200, got.X, 1e-9)
	assert.InDelta(t, 100, got.Y, 1e-9)
}

func TestMapSubtractsSurfaceOffset(t *testing.T) {
	s := Surface{IntrinsicWidth: 200, IntrinsicHeight: 200, Left: 50, Top: 20, DisplayWidth: 100, DisplayHeight: 100}
	got := Map(Event{ClientX: 60, ClientY: 30}, s)
	assert.Equal(t, raster.Point{X: 20, Y: 20}, got)
}

func TestMapUsesFirstTouch(t *testing.T) {
	s := Surface{IntrinsicWidth: 100, IntrinsicHeight: 100, DisplayWidth: 100, DisplayHeight: 100}
	e := Event{
		ClientX: 90, ClientY: 90,
		Touches: []Touch{{ClientX: 10, ClientY: 15}, {ClientX: 70, ClientY: 70}},
	}
	assert.Equal(t, raster.Point{X: 10, Y: 15}, Map(e, s))
}

func TestMapUnmeasuredSurface(t *testing.T) {
	s := Surface{IntrinsicWidth: 100, IntrinsicHeight: 100}
	assert.Equal(t, raster.Point{}, Map(Event{ClientX: 40, ClientY: 40}, s))
}
