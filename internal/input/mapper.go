// Package input maps pointer and touch positions on a displayed, possibly
// stretched surface back to the surface's intrinsic pixel grid.
package input

import "github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/raster"

type Kind string

const (
	Down  Kind = "down"
	Move  Kind = "move"
	Up    Kind = "up"
	Leave Kind = "leave"
)

// Touch is one active contact in client coordinates.
type Touch struct {
	ClientX float64 `json:"x"`
	ClientY float64 `json:"y"`
}

// Event is a pointer or touch event. When Touches is non-empty the first
// active touch is used and ClientX/ClientY are ignored.
type Event struct {
	Kind    Kind    `json:"kind"`
	ClientX float64 `json:"x"`
	ClientY float64 `json:"y"`
	Touches []Touch `json:"touches,omitempty"`
}

// Position returns the client position the event refers to.
func (e Event) Position() (float64, float64) {
	if len(e.Touches) > 0 {
		return e.Touches[0].ClientX, e.Touches[0].ClientY
	}
	return e.ClientX, e.ClientY
}

// Surface describes where the interactive surface sits on screen and how
// large it is intrinsically. A zero display size means "not measured".
type Surface struct {
	IntrinsicWidth  int     `json:"intrinsic_width"`
	IntrinsicHeight int     `json:"intrinsic_height"`
	Left            float64 `json:"left"`
	Top             float64 `json:"top"`
	DisplayWidth    float64 `json:"display_width"`
	DisplayHeight   float64 `json:"display_height"`
}

func (s Surface) measured() bool {
	return s.DisplayWidth > 0 && s.DisplayHeight > 0
}

// Map converts the event position to intrinsic pixel space. Each axis is
// scaled independently; aspect ratio is not corrected.
func Map(e Event, s Surface) raster.Point {
	if !s.measured() {
		return raster.Point{}
	}
	cx, cy := e.Position()
	scaleX := float64(s.IntrinsicWidth) / s.DisplayWidth
	scaleY := float64(s.IntrinsicHeight) / s.DisplayHeight
	return raster.Point{
		X: (cx - s.Left) * scaleX,
		Y: (cy - s.Top) * scaleY,
	}
}
