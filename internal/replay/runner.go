package replay

import (
	"context"
	"fmt"
	"image"
	"sort"

	"go.uber.org/zap"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/input"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/measure"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/usecase"
)

// Report is what a replayed session produced.
type Report struct {
	FrameCount   int
	Masked       []int
	Result       *entity.CompositeResult
	Measurements []measure.Line
	Annotated    *image.RGBA
}

// Runner replays a Script against an Editor that already sits in Extract.
type Runner struct {
	editor *usecase.Editor
	logger *zap.Logger

	// OnOverlay, when set, receives the overlay of the stroked frame after
	// every stroke.
	OnOverlay func(index int, overlay *image.RGBA) error
	// OnExtracted, when set, runs once frames are sampled.
	OnExtracted func(ctx context.Context) error
}

func NewRunner(editor *usecase.Editor, logger *zap.Logger) *Runner {
	return &Runner{editor: editor, logger: logger}
}

func (r *Runner) Run(ctx context.Context, s *Script) (*Report, error) {
	if s.Interval != nil {
		if err := r.editor.SetInterval(*s.Interval); err != nil {
			return nil, fmt.Errorf("set interval: %w", err)
		}
	}
	if err := r.editor.Extract(ctx); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if r.OnExtracted != nil {
		if err := r.OnExtracted(ctx); err != nil {
			return nil, err
		}
	}

	snap := r.editor.Snapshot()
	report := &Report{FrameCount: snap.FrameCount}

	strokes := append([]Stroke(nil), s.Strokes...)
	sort.SliceStable(strokes, func(i, j int) bool { return strokes[i].Frame < strokes[j].Frame })

	for _, st := range strokes {
		if st.Frame >= snap.FrameCount {
			return nil, fmt.Errorf("%w: stroke on frame %d, only %d frames", ErrInvalidScript, st.Frame, snap.FrameCount)
		}
		if err := r.goTo(ctx, st.Frame); err != nil {
			return nil, err
		}
		if err := r.applyStroke(st); err != nil {
			return nil, fmt.Errorf("stroke on frame %d: %w", st.Frame, err)
		}
		if r.OnOverlay != nil {
			overlay, err := r.editor.Overlay()
			if err != nil {
				return nil, err
			}
			if err := r.OnOverlay(st.Frame, overlay); err != nil {
				return nil, err
			}
		}
	}

	if err := r.editor.Finish(ctx); err != nil {
		return nil, fmt.Errorf("finish: %w", err)
	}
	res, err := r.editor.Result()
	if err != nil {
		return nil, err
	}
	report.Result = res
	for _, st := range strokes {
		if st.Frame == 0 {
			continue
		}
		if n := len(report.Masked); n == 0 || report.Masked[n-1] != st.Frame {
			report.Masked = append(report.Masked, st.Frame)
		}
	}

	if s.Measure != nil {
		if err := r.runMeasure(s.Measure, report); err != nil {
			return nil, fmt.Errorf("measure: %w", err)
		}
	}

	r.logger.Info("script replayed",
		zap.Int("frame_count", report.FrameCount),
		zap.Ints("masked_frames", report.Masked),
		zap.Int("measurements", len(report.Measurements)),
	)
	return report, nil
}

func (r *Runner) goTo(ctx context.Context, target int) error {
	for {
		cur := r.editor.Snapshot().CurrentIndex
		switch {
		case cur < target:
			if err := r.editor.NextFrame(ctx); err != nil {
				return err
			}
		case cur > target:
			if err := r.editor.PrevFrame(ctx); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (r *Runner) applyStroke(st Stroke) error {
	if st.Tool != "" {
		if err := r.editor.SetTool(st.Tool); err != nil {
			return err
		}
	}
	if st.Diameter > 0 {
		if err := r.editor.SetBrushDiameter(st.Diameter); err != nil {
			return err
		}
	}
	snap := r.editor.Snapshot()
	surface := identity(snap.FrameWidth, snap.FrameHeight)
	if st.Surface != nil {
		surface = *st.Surface
	}
	return r.dispatch(st.Events, surface)
}

func (r *Runner) dispatch(events []input.Event, surface input.Surface) error {
	for _, ev := range events {
		if err := r.editor.HandlePointer(ev, surface); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runMeasure(m *MeasureScript, report *Report) error {
	if err := r.editor.EnterMeasure(); err != nil {
		return err
	}
	surface := identity(report.Result.Width, report.Result.Height)
	if m.Surface != nil {
		surface = *m.Surface
	}

	if len(m.ScaleLine) > 0 {
		if err := r.dispatch(m.ScaleLine, surface); err != nil {
			return err
		}
		err := r.editor.Measure(func(t *measure.Tool) error {
			if err := t.SetScale(m.ScaleValue, m.Unit); err != nil {
				return err
			}
			return t.ConfirmScale()
		})
		if err != nil {
			return err
		}
	}
	for _, line := range m.Lines {
		if err := r.dispatch(line, surface); err != nil {
			return err
		}
	}

	err := r.editor.Measure(func(t *measure.Tool) error {
		report.Measurements = t.Measurements()
		return nil
	})
	if err != nil {
		return err
	}
	annotated, err := r.editor.RenderMeasurements()
	if err != nil {
		return err
	}
	report.Annotated = annotated
	return r.editor.LeaveMeasure()
}

// identity describes a surface displayed at its intrinsic size at the
// origin, so client coordinates are intrinsic pixels.
func identity(w, h int) input.Surface {
	return input.Surface{
		IntrinsicWidth:  w,
		IntrinsicHeight: h,
		DisplayWidth:    float64(w),
		DisplayHeight:   float64(h),
	}
}
