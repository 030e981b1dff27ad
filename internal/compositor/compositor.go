package compositor

import (
	"fmt"
	"image"
	"image/draw"
	"time"

	"go.uber.org/zap"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/raster"
)

type Compositor struct {
	quality int
	now     func() time.Time
	logger  *zap.Logger
}

func New(quality int, logger *zap.Logger) *Compositor {
	if quality <= 0 {
		quality = raster.ResultQuality
	}
	return &Compositor{quality: quality, now: time.Now, logger: logger}
}

// Compose layers the masked regions of frames[1:] over frames[0] in index
// order and encodes the result as JPEG. selections[0] is ignored.
func (c *Compositor) Compose(frames []entity.Frame, selections *entity.SelectionStore) (*entity.CompositeResult, error) {
	canvas, err := c.Render(frames, selections)
	if err != nil {
		return nil, err
	}
	data, err := raster.EncodeJPEG(canvas, c.quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrComposite, err)
	}
	b := canvas.Bounds()
	return &entity.CompositeResult{
		Width:     b.Dx(),
		Height:    b.Dy(),
		Data:      data,
		CreatedAt: c.now(),
	}, nil
}

// Render produces the composite canvas before encoding. Where a mask has
// partial alpha a, the output is frame·a + output·(1−a).
func (c *Compositor) Render(frames []entity.Frame, selections *entity.SelectionStore) (*image.RGBA, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames", entity.ErrComposite)
	}
	if selections.Len() != len(frames) {
		return nil, fmt.Errorf("%w: %d selections for %d frames", entity.ErrComposite, selections.Len(), len(frames))
	}

	base, err := raster.Decode(frames[0].Data)
	if err != nil {
		return nil, fmt.Errorf("%w: frame 0: %v", entity.ErrComposite, err)
	}
	out := raster.ToRGBA(base)
	bounds := out.Bounds()

	layered := 0
	for i, sel := range selections.Slots() {
		if i == 0 || sel == nil {
			continue
		}
		frame, err := raster.Decode(frames[i].Data)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %v", entity.ErrComposite, i, err)
		}
		mask, err := raster.Decode(sel.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: mask %d: %v", entity.ErrComposite, i, err)
		}
		draw.DrawMask(out, bounds, frame, frame.Bounds().Min, mask, mask.Bounds().Min, draw.Over)
		layered++
	}

	c.logger.Debug("composite rendered",
		zap.Int("frames", len(frames)),
		zap.Int("layers", layered),
		zap.Int("width", bounds.Dx()),
		zap.Int("height", bounds.Dy()),
	)
	return out, nil
}
