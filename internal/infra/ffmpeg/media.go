package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"strconv"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/port"
)

var ErrHandleClosed = errors.New("media handle closed")

// Opener opens local video files for seek-and-grab decoding through the
// ffmpeg and ffprobe binaries.
type Opener struct {
	logger *zap.Logger
}

func NewOpener(logger *zap.Logger) *Opener {
	return &Opener{logger: logger}
}

func (o *Opener) Open(_ context.Context, file entity.VideoFile) (port.MediaHandle, error) {
	if _, err := os.Stat(file.Path); err != nil {
		return nil, fmt.Errorf("open media: %w", err)
	}
	return &handle{path: file.Path, logger: o.logger.With(zap.String("video", file.Name))}, nil
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// parseProbe reads duration and intrinsic size from ffprobe JSON output.
// The container duration wins over the stream duration when both exist.
func parseProbe(raw string) (entity.MediaMetadata, error) {
	var probe probeResult
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return entity.MediaMetadata{}, fmt.Errorf("json unmarshal: %w", err)
	}

	var meta entity.MediaMetadata
	found := false
	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		meta.Width, meta.Height = s.Width, s.Height
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
			meta.Duration = d
		}
		found = true
		break
	}
	if !found {
		return entity.MediaMetadata{}, errors.New("no video stream found")
	}
	// Containers often outlast their last video frame, so the format
	// duration only fills in when the stream carries none.
	if meta.Duration <= 0 {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			meta.Duration = d
		}
	}
	return meta, nil
}

type handle struct {
	path   string
	logger *zap.Logger

	mu       sync.Mutex
	position float64
	meta     *entity.MediaMetadata
	closed   bool
}

func (h *handle) Metadata(_ context.Context) (entity.MediaMetadata, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return entity.MediaMetadata{}, ErrHandleClosed
	}
	if h.meta != nil {
		return *h.meta, nil
	}

	raw, err := ffmpeg.Probe(h.path)
	if err != nil {
		return entity.MediaMetadata{}, fmt.Errorf("ffprobe: %w", err)
	}
	meta, err := parseProbe(raw)
	if err != nil {
		return entity.MediaMetadata{}, fmt.Errorf("ffprobe: %w", err)
	}
	h.meta = &meta
	h.logger.Debug("media probed",
		zap.Float64("duration", meta.Duration),
		zap.Int("width", meta.Width),
		zap.Int("height", meta.Height),
	)
	return meta, nil
}

// Seek records the position the next Capture decodes from.
func (h *handle) Seek(_ context.Context, t float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandleClosed
	}
	if t < 0 {
		return fmt.Errorf("seek to negative position %v", t)
	}
	h.position = t
	return nil
}

func (h *handle) Capture(ctx context.Context) (image.Image, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHandleClosed
	}
	pos := h.position
	h.mu.Unlock()

	seek := ffmpeg.KwArgs{"ss": strconv.FormatFloat(pos, 'f', 3, 64)}
	img, err := grab(ctx, h.path, seek)
	if errors.Is(err, errNoFrame) {
		// Seeking at the very end lands past the last frame; take the
		// final decodable one instead.
		h.logger.Debug("no frame at position, grabbing tail", zap.Float64("position", pos))
		img, err = grab(ctx, h.path, ffmpeg.KwArgs{"sseof": tailWindow})
	}
	if err != nil {
		return nil, fmt.Errorf("capture at %.3fs: %w", pos, err)
	}
	return img, nil
}

// tailWindow is how far before the end a tail grab starts decoding.
const tailWindow = "-0.5"

var errNoFrame = errors.New("no frame decoded")

func grab(ctx context.Context, path string, input ffmpeg.KwArgs) (image.Image, error) {
	var out, stderr bytes.Buffer
	stream := ffmpeg.Input(path, input).
		Output("pipe:", ffmpeg.KwArgs{
			"vframes": "1",
			"format":  "image2",
			"vcodec":  "png",
		}).
		WithOutput(&out).
		WithErrorOutput(&stderr)
	stream.Context = ctx

	if err := stream.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, stderr.String())
	}
	if out.Len() == 0 {
		return nil, errNoFrame
	}

	img, err := png.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("decode still: %w", err)
	}
	return img, nil
}

func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}
