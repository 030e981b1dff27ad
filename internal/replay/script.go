// Package replay drives an editing session from a recorded JSON script of
// strokes and measurement lines.
package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/input"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/maskcanvas"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/measure"
)

// Script is the recorded input of one session after the video was picked.
type Script struct {
	// Interval overrides the configured sampling interval when set.
	Interval *float64       `json:"interval,omitempty"`
	Strokes  []Stroke       `json:"strokes"`
	Measure  *MeasureScript `json:"measure,omitempty"`
}

// Stroke is one gesture on the given frame. A nil Surface means the events
// are already in intrinsic pixel coordinates.
type Stroke struct {
	Frame    int             `json:"frame"`
	Tool     maskcanvas.Tool `json:"tool,omitempty"`
	Diameter float64         `json:"diameter,omitempty"`
	Surface  *input.Surface  `json:"surface,omitempty"`
	Events   []input.Event   `json:"events"`
}

type MeasureScript struct {
	Surface    *input.Surface  `json:"surface,omitempty"`
	ScaleLine  []input.Event   `json:"scale_line"`
	ScaleValue float64         `json:"scale_value"`
	Unit       measure.Unit    `json:"unit"`
	Lines      [][]input.Event `json:"lines"`
}

var ErrInvalidScript = errors.New("invalid script")

func Parse(r io.Reader) (*Script, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Validate checks what can be checked before the frame count is known.
func (s *Script) Validate() error {
	for i, st := range s.Strokes {
		if st.Frame < 0 {
			return fmt.Errorf("%w: stroke %d: negative frame %d", ErrInvalidScript, i, st.Frame)
		}
		if len(st.Events) == 0 {
			return fmt.Errorf("%w: stroke %d: no events", ErrInvalidScript, i)
		}
		switch st.Tool {
		case "", maskcanvas.Brush, maskcanvas.Eraser:
		default:
			return fmt.Errorf("%w: stroke %d: unknown tool %q", ErrInvalidScript, i, st.Tool)
		}
		if st.Diameter < 0 {
			return fmt.Errorf("%w: stroke %d: negative diameter", ErrInvalidScript, i)
		}
	}
	if m := s.Measure; m != nil && len(m.ScaleLine) == 0 && len(m.Lines) > 0 {
		return fmt.Errorf("%w: measurement lines need a scale line", ErrInvalidScript)
	}
	return nil
}
