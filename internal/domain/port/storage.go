package port

import (
	"context"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
)

// VideoSource fetches an uploaded video into destDir and reports its
// declared MIME type.
type VideoSource interface {
	FetchVideo(ctx context.Context, key string, destDir string) (entity.VideoFile, error)
}

// ResultExporter delivers the chronophoto under name and returns where it went.
type ResultExporter interface {
	Export(ctx context.Context, name string, data []byte) (string, error)
}

// FrameArchiver bundles the sampled frames into a single archive file.
type FrameArchiver interface {
	Archive(ctx context.Context, frames []entity.Frame, outputPath string) error
}
