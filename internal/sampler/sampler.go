package sampler

import (
	"context"
	"fmt"
	"image/color"
	"math"

	"go.uber.org/zap"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/port"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/raster"
)

type Config struct {
	Quality        int
	FallbackWidth  int
	FallbackHeight int
}

type Sampler struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Sampler {
	if cfg.Quality <= 0 {
		cfg.Quality = raster.FrameQuality
	}
	if cfg.FallbackWidth <= 0 || cfg.FallbackHeight <= 0 {
		cfg.FallbackWidth, cfg.FallbackHeight = 1280, 720
	}
	return &Sampler{cfg: cfg, logger: logger}
}

// Extract seeks media to 0, interval, 2·interval, ... while the timestamp is
// below the duration and captures one JPEG still at each stop. Seeks and
// captures are strictly sequential. Any failure discards the frames
// captured so far.
func (s *Sampler) Extract(ctx context.Context, media port.MediaHandle, interval float64) ([]entity.Frame, error) {
	if !(interval > 0) || math.IsInf(interval, 0) {
		return nil, fmt.Errorf("%w: interval must be positive, got %v", entity.ErrExtraction, interval)
	}

	meta, err := media.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrMetadataUnavailable, err)
	}
	if math.IsNaN(meta.Duration) || math.IsInf(meta.Duration, 0) {
		return nil, fmt.Errorf("%w: duration unknown", entity.ErrMetadataUnavailable)
	}
	if meta.Duration <= 0 {
		return []entity.Frame{}, nil
	}

	width, height := meta.Width, meta.Height
	if width <= 0 || height <= 0 {
		s.logger.Warn("media reported no dimensions, using fallback",
			zap.Int("width", s.cfg.FallbackWidth),
			zap.Int("height", s.cfg.FallbackHeight),
		)
		width, height = s.cfg.FallbackWidth, s.cfg.FallbackHeight
	}

	canvas, err := raster.NewCanvas(width, height, color.Black)
	if err != nil {
		return nil, err
	}

	var frames []entity.Frame
	for i := 0; ; i++ {
		ts := float64(i) * interval
		if ts >= meta.Duration {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", entity.ErrExtraction, ctx.Err())
		default:
		}

		if err := media.Seek(ctx, ts); err != nil {
			return nil, fmt.Errorf("%w: seek to %.3fs: %v", entity.ErrExtraction, ts, err)
		}
		img, err := media.Capture(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: capture at %.3fs: %v", entity.ErrExtraction, ts, err)
		}

		canvas.Draw(img, img.Bounds(), canvas.Bounds())
		data, err := raster.EncodeJPEG(canvas.Image(), s.cfg.Quality)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %v", entity.ErrExtraction, i, err)
		}

		frames = append(frames, entity.Frame{
			Index:     i,
			Timestamp: ts,
			Width:     width,
			Height:    height,
			Data:      data,
		})
	}

	s.logger.Info("frames sampled",
		zap.Int("count", len(frames)),
		zap.Float64("duration", meta.Duration),
		zap.Float64("interval", interval),
	)
	return frames, nil
}
