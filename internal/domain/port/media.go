package port

import (
	"context"
	"image"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
)

// MediaHandle is an exclusively owned decoding session over one video.
// Calls are sequential: one Seek/Capture completes before the next begins.
type MediaHandle interface {
	// Metadata blocks until duration and intrinsic dimensions are known.
	Metadata(ctx context.Context) (entity.MediaMetadata, error)
	// Seek positions the media at t seconds and returns once the seek settled.
	Seek(ctx context.Context, t float64) error
	// Capture rasterizes the content currently displayed.
	Capture(ctx context.Context) (image.Image, error)
	Close() error
}

type MediaOpener interface {
	Open(ctx context.Context, file entity.VideoFile) (MediaHandle, error)
}
