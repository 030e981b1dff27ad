package usecase

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/compositor"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/port"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/i18n"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/input"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/maskcanvas"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/measure"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/raster"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/sampler"
)

// fakeMedia yields a solid grey still whose level encodes the second it
// was captured at: 60 at 0s, 120 at 1s, 180 at 2s.
type fakeMedia struct {
	mu      sync.Mutex
	meta    entity.MediaMetadata
	metaErr error
	entered chan struct{}
	release chan struct{}
	pos     float64
	closed  bool
}

func newFakeMedia(duration float64, w, h int) *fakeMedia {
	return &fakeMedia{meta: entity.MediaMetadata{Duration: duration, Width: w, Height: h}}
}

func (m *fakeMedia) Metadata(ctx context.Context) (entity.MediaMetadata, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return entity.MediaMetadata{}, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta, m.metaErr
}

func (m *fakeMedia) Seek(_ context.Context, t float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = t
	return nil
}

func (m *fakeMedia) Capture(_ context.Context) (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	level := uint8(60 + 60*int(math.Round(m.pos)))
	img := image.NewRGBA(image.Rect(0, 0, m.meta.Width, m.meta.Height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = level, level, level, 255
	}
	return img, nil
}

func (m *fakeMedia) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *fakeMedia) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type fakeOpener struct {
	media port.MediaHandle
	err   error
}

func (o *fakeOpener) Open(_ context.Context, _ entity.VideoFile) (port.MediaHandle, error) {
	return o.media, o.err
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []entity.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n entity.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

// reentrantNotifier reads the editor state from inside Notify, the way a UI
// sink refreshing its view would.
type reentrantNotifier struct {
	editor *Editor
	steps  chan entity.Step
}

func (r *reentrantNotifier) Notify(_ context.Context, _ entity.Notification) {
	r.steps <- r.editor.Snapshot().Step
}

func (r *recordingNotifier) all() []entity.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.Notification(nil), r.got...)
}

type memoryExporter struct {
	names []string
	data  [][]byte
	err   error
}

func (m *memoryExporter) Export(_ context.Context, name string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.names = append(m.names, name)
	m.data = append(m.data, data)
	return "mem://" + name, nil
}

var clip = entity.VideoFile{Name: "clip.mp4", Type: "video/mp4", Path: "clip.mp4", Size: 1024}

func newTestEditor(media port.MediaHandle) (*Editor, *recordingNotifier) {
	log := zap.NewNop()
	notes := &recordingNotifier{}
	e := NewEditor(
		&fakeOpener{media: media},
		sampler.New(sampler.Config{}, log),
		compositor.New(raster.ResultQuality, log),
		notes,
		i18n.New("en"),
		log,
		EditorConfig{},
	)
	return e, notes
}

// extracted returns an editor in Select over a 3s clip sampled every second.
func extracted(t *testing.T) (*Editor, *recordingNotifier) {
	t.Helper()
	e, notes := newTestEditor(newFakeMedia(3, 64, 48))
	ctx := context.Background()
	require.NoError(t, e.SelectVideo(ctx, clip))
	require.NoError(t, e.SetInterval(1.0))
	require.NoError(t, e.Extract(ctx))
	return e, notes
}

var fullSurface = input.Surface{IntrinsicWidth: 64, IntrinsicHeight: 48, DisplayWidth: 64, DisplayHeight: 48}

func paint(t *testing.T, e *Editor, surface input.Surface, pts ...[2]float64) {
	t.Helper()
	require.NoError(t, e.HandlePointer(input.Event{Kind: input.Down, ClientX: pts[0][0], ClientY: pts[0][1]}, surface))
	for _, p := range pts[1:] {
		require.NoError(t, e.HandlePointer(input.Event{Kind: input.Move, ClientX: p[0], ClientY: p[1]}, surface))
	}
	require.NoError(t, e.HandlePointer(input.Event{Kind: input.Up}, surface))
}

func TestNewEditorStartsAtUpload(t *testing.T) {
	e, _ := newTestEditor(newFakeMedia(3, 64, 48))
	s := e.Snapshot()
	assert.Equal(t, entity.StepUpload, s.Step)
	assert.Equal(t, "Upload", s.StepLabel)
	assert.Equal(t, entity.DefaultInterval, s.Interval)
	assert.Equal(t, maskcanvas.Brush, s.Tool)
	assert.Equal(t, 40.0, s.Diameter)
}

func TestSelectVideoRejectsNonVideo(t *testing.T) {
	e, notes := newTestEditor(newFakeMedia(3, 64, 48))

	err := e.SelectVideo(context.Background(), entity.VideoFile{Name: "cat.png", Type: "image/png"})
	assert.ErrorIs(t, err, entity.ErrInvalidFileType)
	assert.Equal(t, entity.StepUpload, e.Snapshot().Step)

	got := notes.all()
	require.Len(t, got, 1)
	assert.Equal(t, "Invalid file type", got[0].Title)
	assert.Equal(t, entity.SeverityError, got[0].Severity)
}

func TestSelectVideoOpenFailureStaysAtUpload(t *testing.T) {
	log := zap.NewNop()
	notes := &recordingNotifier{}
	e := NewEditor(&fakeOpener{err: errors.New("no such file")},
		sampler.New(sampler.Config{}, log), compositor.New(0, log), notes, i18n.New("en"), log, EditorConfig{})

	assert.Error(t, e.SelectVideo(context.Background(), clip))
	assert.Equal(t, entity.StepUpload, e.Snapshot().Step)
	require.Len(t, notes.all(), 1)
}

func TestNotifierMayReadEditorState(t *testing.T) {
	log := zap.NewNop()
	notes := &reentrantNotifier{steps: make(chan entity.Step, 4)}
	e := NewEditor(&fakeOpener{media: newFakeMedia(3, 64, 48)},
		sampler.New(sampler.Config{}, log), compositor.New(0, log), notes, i18n.New("en"), log, EditorConfig{})
	notes.editor = e

	done := make(chan error, 1)
	go func() {
		done <- e.SelectVideo(context.Background(), entity.VideoFile{Name: "cat.png", Type: "image/png"})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, entity.ErrInvalidFileType)
	case <-time.After(2 * time.Second):
		t.Fatal("SelectVideo deadlocked while notifying")
	}
	assert.Equal(t, entity.StepUpload, <-notes.steps)
}

func TestSetIntervalValidation(t *testing.T) {
	e, _ := newTestEditor(newFakeMedia(3, 64, 48))
	assert.ErrorIs(t, e.SetInterval(1.0), entity.ErrInvalidTransition)

	require.NoError(t, e.SelectVideo(context.Background(), clip))
	assert.ErrorIs(t, e.SetInterval(3), entity.ErrInvalidInterval)
	assert.ErrorIs(t, e.SetInterval(0), entity.ErrInvalidInterval)
	require.NoError(t, e.SetInterval(0.7))
	assert.Equal(t, 0.7, e.Snapshot().Interval)
}

func TestEndToEndUnmaskedCompositeEqualsFrameZero(t *testing.T) {
	e, notes := extracted(t)

	s := e.Snapshot()
	assert.Equal(t, entity.StepSelect, s.Step)
	require.Equal(t, 3, s.FrameCount)
	assert.Equal(t, 0, s.CurrentIndex)
	assert.Equal(t, entity.SeveritySuccess, notes.all()[0].Severity)

	require.NoError(t, e.Finish(context.Background()))
	assert.Equal(t, entity.StepResult, e.Snapshot().Step)

	res, err := e.Result()
	require.NoError(t, err)

	base, err := raster.Decode(e.frames[0].Data)
	require.NoError(t, err)
	want, err := raster.EncodeJPEG(raster.ToRGBA(base), raster.ResultQuality)
	require.NoError(t, err)
	assert.Equal(t, want, res.Data)
}

func TestResetDuringExtractionDiscardsLateResult(t *testing.T) {
	media := newFakeMedia(3, 64, 48)
	media.entered = make(chan struct{}, 1)
	media.release = make(chan struct{})
	e, notes := newTestEditor(media)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.SelectVideo(ctx, clip))

	done := make(chan error, 1)
	go func() { done <- e.Extract(ctx) }()
	<-media.entered

	assert.True(t, e.Snapshot().Extracting)
	assert.ErrorIs(t, e.Extract(ctx), entity.ErrBusy)

	e.Reset()
	close(media.release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, entity.ErrSessionSuperseded)
	case <-ctx.Done():
		t.Fatal("extraction never completed")
	}

	s := e.Snapshot()
	assert.Equal(t, entity.StepUpload, s.Step)
	assert.Zero(t, s.FrameCount)
	assert.False(t, s.Extracting)
	assert.False(t, s.HasResult)
	assert.True(t, media.isClosed())
	assert.Empty(t, notes.all())
}

func TestExtractFailureStaysInExtractUntilRetried(t *testing.T) {
	media := newFakeMedia(3, 64, 48)
	media.metaErr = errors.New("metadata never loaded")
	e, notes := newTestEditor(media)
	ctx := context.Background()
	require.NoError(t, e.SelectVideo(ctx, clip))

	err := e.Extract(ctx)
	assert.ErrorIs(t, err, entity.ErrMetadataUnavailable)
	assert.Equal(t, entity.StepExtract, e.Snapshot().Step)

	got := notes.all()
	require.Len(t, got, 1)
	assert.Equal(t, "Could not read the video duration or size.", got[0].Description)

	media.mu.Lock()
	media.metaErr = nil
	media.mu.Unlock()
	require.NoError(t, e.Extract(ctx))
	assert.Equal(t, entity.StepSelect, e.Snapshot().Step)
}

func TestZeroDurationIsExtractionError(t *testing.T) {
	e, notes := newTestEditor(newFakeMedia(0, 64, 48))
	ctx := context.Background()
	require.NoError(t, e.SelectVideo(ctx, clip))

	assert.ErrorIs(t, e.Extract(ctx), entity.ErrExtraction)
	assert.Equal(t, entity.StepExtract, e.Snapshot().Step)
	assert.Equal(t, "The video produced no frames.", notes.all()[0].Description)
}

func TestFrameNavigationIsBounded(t *testing.T) {
	e, _ := extracted(t)
	ctx := context.Background()

	assert.ErrorIs(t, e.PrevFrame(ctx), entity.ErrFrameOutOfRange)
	require.NoError(t, e.NextFrame(ctx))
	require.NoError(t, e.NextFrame(ctx))
	assert.Equal(t, 2, e.Snapshot().CurrentIndex)
	assert.ErrorIs(t, e.NextFrame(ctx), entity.ErrFrameOutOfRange)
	require.NoError(t, e.PrevFrame(ctx))
	assert.Equal(t, 1, e.Snapshot().CurrentIndex)
}

func TestStrokeCommitsMaskForCurrentFrameOnly(t *testing.T) {
	e, _ := extracted(t)
	ctx := context.Background()
	require.NoError(t, e.NextFrame(ctx))

	// displayed at half size: client (10,10) is intrinsic (20,20)
	half := input.Surface{IntrinsicWidth: 64, IntrinsicHeight: 48, DisplayWidth: 32, DisplayHeight: 24}
	paint(t, e, half, [2]float64{10, 10}, [2]float64{15, 10})

	s := e.Snapshot()
	assert.True(t, s.HasMask)
	assert.Equal(t, 1, s.MaskedCount)

	require.NoError(t, e.NextFrame(ctx))
	assert.False(t, e.Snapshot().HasMask)
	assert.Zero(t, e.canvas.Surface().Image().RGBAAt(20, 20).A, "buffer was flushed for the next frame")

	require.NoError(t, e.PrevFrame(ctx))
	assert.True(t, e.Snapshot().HasMask)
	assert.Equal(t, uint8(255), e.canvas.Surface().Image().RGBAAt(20, 20).A)
	assert.Equal(t, uint8(255), e.canvas.Surface().Image().RGBAAt(25, 20).A)
}

func TestStrokeOnBackgroundFrameIsNotStored(t *testing.T) {
	e, _ := extracted(t)
	ctx := context.Background()

	paint(t, e, fullSurface, [2]float64{20, 20}, [2]float64{30, 20})

	s := e.Snapshot()
	assert.Zero(t, s.CurrentIndex)
	assert.False(t, s.HasMask)
	assert.Zero(t, s.MaskedCount)

	require.NoError(t, e.NextFrame(ctx))
	require.NoError(t, e.PrevFrame(ctx))
	assert.False(t, e.Snapshot().HasMask)
	assert.Zero(t, e.canvas.Surface().Image().RGBAAt(25, 20).A)
}

func TestEraserClearsCommittedStroke(t *testing.T) {
	e, _ := extracted(t)
	ctx := context.Background()
	require.NoError(t, e.NextFrame(ctx))

	paint(t, e, fullSurface, [2]float64{20, 20}, [2]float64{30, 20})
	require.NoError(t, e.SetTool(maskcanvas.Eraser))
	require.NoError(t, e.SetBrushDiameter(60))
	paint(t, e, fullSurface, [2]float64{25, 20}, [2]float64{26, 20})

	assert.Zero(t, e.canvas.Surface().Image().RGBAAt(20, 20).A)
	assert.Zero(t, e.canvas.Surface().Image().RGBAAt(30, 20).A)
	assert.Error(t, e.SetTool(maskcanvas.Tool("spray")))
	assert.Error(t, e.SetBrushDiameter(0))
}

func TestMaskedFrameReachesComposite(t *testing.T) {
	e, _ := extracted(t)
	ctx := context.Background()
	require.NoError(t, e.NextFrame(ctx))
	require.NoError(t, e.NextFrame(ctx))
	require.NoError(t, e.SetBrushDiameter(200))
	paint(t, e, fullSurface, [2]float64{32, 24}, [2]float64{33, 24})

	overlay, err := e.Overlay()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), overlay.Bounds())

	require.NoError(t, e.Finish(ctx))
	res, err := e.Result()
	require.NoError(t, err)

	img, err := raster.Decode(res.Data)
	require.NoError(t, err)
	r, _, _, _ := img.At(32, 24).RGBA()
	assert.InDelta(t, 180, int(r>>8), 6)
}

func TestStepGuards(t *testing.T) {
	e, _ := newTestEditor(newFakeMedia(3, 64, 48))
	ctx := context.Background()

	assert.ErrorIs(t, e.Extract(ctx), entity.ErrInvalidTransition)
	assert.ErrorIs(t, e.Finish(ctx), entity.ErrInvalidTransition)
	assert.ErrorIs(t, e.EnterMeasure(), entity.ErrInvalidTransition)
	_, err := e.Result()
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	_, err = e.Overlay()
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	// pointer input outside Select and Measure is ignored
	assert.NoError(t, e.HandlePointer(input.Event{Kind: input.Down}, fullSurface))

	e, _ = extracted(t)
	assert.ErrorIs(t, e.EnterMeasure(), entity.ErrInvalidTransition)
	assert.ErrorIs(t, e.SelectVideo(ctx, clip), entity.ErrInvalidTransition)
}

func TestResetFromEveryStep(t *testing.T) {
	ctx := context.Background()

	e, _ := extracted(t)
	first := e.Snapshot().SessionID
	e.Reset()
	s := e.Snapshot()
	assert.Equal(t, entity.StepUpload, s.Step)
	assert.Zero(t, s.FrameCount)
	assert.NotEqual(t, first, s.SessionID)

	e, _ = extracted(t)
	require.NoError(t, e.Finish(ctx))
	require.NoError(t, e.EnterMeasure())
	e.Reset()
	s = e.Snapshot()
	assert.Equal(t, entity.StepUpload, s.Step)
	assert.False(t, s.HasResult)

	// the next session starts clean
	media := newFakeMedia(1, 32, 32)
	e.opener = &fakeOpener{media: media}
	require.NoError(t, e.SelectVideo(ctx, clip))
	assert.Equal(t, entity.DefaultInterval, e.Snapshot().Interval)
	require.NoError(t, e.Extract(ctx))
	assert.Equal(t, 2, e.Snapshot().FrameCount)
}

func TestMeasureToggleKeepsResult(t *testing.T) {
	e, _ := extracted(t)
	ctx := context.Background()
	require.NoError(t, e.Finish(ctx))
	before, err := e.Result()
	require.NoError(t, err)
	data := append([]byte(nil), before.Data...)

	require.NoError(t, e.EnterMeasure())
	assert.Equal(t, "Measurements", e.Snapshot().StepLabel)

	paint(t, e, fullSurface, [2]float64{2, 10}, [2]float64{62, 10})
	require.NoError(t, e.Measure(func(tool *measure.Tool) error {
		if err := tool.SetScale(30, measure.Centimetre); err != nil {
			return err
		}
		return tool.ConfirmScale()
	}))
	paint(t, e, fullSurface, [2]float64{2, 30}, [2]float64{32, 30})

	require.NoError(t, e.Measure(func(tool *measure.Tool) error {
		ms := tool.Measurements()
		require.Len(t, ms, 1)
		assert.Equal(t, "15.00 cm", ms[0].Label())
		return nil
	}))

	rendered, err := e.RenderMeasurements()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), rendered.Bounds())

	require.NoError(t, e.LeaveMeasure())
	after, err := e.Result()
	require.NoError(t, err)
	assert.Equal(t, data, after.Data)

	require.NoError(t, e.EnterMeasure())
	require.NoError(t, e.Measure(func(tool *measure.Tool) error {
		_, ok := tool.ScaleLine()
		assert.False(t, ok, "measure tool starts fresh")
		return nil
	}))
}

func TestDownloadExportsNamedResult(t *testing.T) {
	e, notes := extracted(t)
	ctx := context.Background()
	require.NoError(t, e.Finish(ctx))

	a, b := &memoryExporter{}, &memoryExporter{}
	locs, err := e.Download(ctx, a, b)
	require.NoError(t, err)

	res, _ := e.Result()
	assert.Equal(t, []string{"mem://" + res.FileName(), "mem://" + res.FileName()}, locs)
	assert.Regexp(t, `^chronophoto-\d+\.jpg$`, a.names[0])
	assert.Equal(t, res.Data, b.data[0])

	last := notes.all()[len(notes.all())-1]
	assert.Equal(t, "Image saved", last.Description)

	_, err = e.Download(ctx, &memoryExporter{err: errors.New("disk full")})
	assert.Error(t, err)
	last = notes.all()[len(notes.all())-1]
	assert.Equal(t, entity.SeverityError, last.Severity)
}

type recordingArchiver struct {
	frames []entity.Frame
	path   string
}

func (r *recordingArchiver) Archive(_ context.Context, frames []entity.Frame, path string) error {
	r.frames, r.path = frames, path
	return nil
}

func TestExportFramesAfterExtraction(t *testing.T) {
	e, _ := newTestEditor(newFakeMedia(3, 64, 48))
	arch := &recordingArchiver{}
	assert.ErrorIs(t, e.ExportFrames(context.Background(), arch, "f.zip"), entity.ErrInvalidTransition)

	e, _ = extracted(t)
	require.NoError(t, e.ExportFrames(context.Background(), arch, "f.zip"))
	assert.Len(t, arch.frames, 3)
	assert.Equal(t, "f.zip", arch.path)
}
