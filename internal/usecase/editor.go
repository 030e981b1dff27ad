package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/compositor"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/port"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/infra/metrics"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/input"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/maskcanvas"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/measure"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/raster"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/sampler"
)

type EditorConfig struct {
	Interval      float64
	BrushDiameter float64
}

// Snapshot is a read-only view of the editing session.
type Snapshot struct {
	SessionID    uuid.UUID
	Step         entity.Step
	StepLabel    string
	VideoName    string
	Interval     float64
	Extracting   bool
	FrameCount   int
	CurrentIndex int
	FrameWidth   int
	FrameHeight  int
	HasMask      bool
	MaskedCount  int
	Tool         maskcanvas.Tool
	Diameter     float64
	HasResult    bool
}

// Editor drives one editing session through Upload, Extract, Select,
// Result and Measure. All methods are safe for concurrent use; Extract
// releases the lock while sampling so Reset can supersede it.
type Editor struct {
	opener     port.MediaOpener
	sampler    *sampler.Sampler
	compositor *compositor.Compositor
	notifier   port.Notifier
	translator port.Translator
	logger     *zap.Logger
	cfg        EditorConfig

	mu         sync.Mutex
	generation uint64
	sessionID  uuid.UUID
	log        *zap.Logger
	step       entity.Step
	file       entity.VideoFile
	media      port.MediaHandle
	interval   float64
	extracting bool
	frames     []entity.Frame
	selections *entity.SelectionStore
	current    int
	canvas     *maskcanvas.Canvas
	tool       maskcanvas.Tool
	diameter   float64
	result     *entity.CompositeResult
	measure    *measure.Tool

	// pending holds notifications raised under mu. They are delivered by
	// unlock once mu is released.
	pending []queuedNotification
}

type queuedNotification struct {
	ctx context.Context
	n   entity.Notification
}

func NewEditor(
	opener port.MediaOpener,
	smp *sampler.Sampler,
	comp *compositor.Compositor,
	notifier port.Notifier,
	translator port.Translator,
	logger *zap.Logger,
	cfg EditorConfig,
) *Editor {
	if cfg.Interval == 0 {
		cfg.Interval = entity.DefaultInterval
	}
	if cfg.BrushDiameter <= 0 {
		cfg.BrushDiameter = 40
	}
	e := &Editor{
		opener:     opener,
		sampler:    smp,
		compositor: comp,
		notifier:   notifier,
		translator: translator,
		logger:     logger,
		cfg:        cfg,
	}
	e.resetLocked()
	return e
}

// resetLocked starts a new session. Any in-flight extraction belongs to the
// previous generation and will be discarded when it completes.
func (e *Editor) resetLocked() {
	if e.media != nil {
		if err := e.media.Close(); err != nil {
			e.log.Warn("failed to close media", zap.Error(err))
		}
	}
	e.generation++
	e.sessionID = uuid.New()
	e.log = e.logger.With(zap.String("session_id", e.sessionID.String()))
	e.step = entity.StepUpload
	e.file = entity.VideoFile{}
	e.media = nil
	e.interval = e.cfg.Interval
	e.extracting = false
	e.frames = nil
	e.selections = nil
	e.current = 0
	e.canvas = maskcanvas.New(e.log)
	e.tool = maskcanvas.Brush
	e.diameter = e.cfg.BrushDiameter
	e.result = nil
	e.measure = nil
}

// Reset discards everything accumulated in the session and returns to
// Upload. It is accepted from every step.
func (e *Editor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	from := e.step
	e.resetLocked()
	e.log.Info("session reset", zap.String("from", string(from)))
}

func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Snapshot{
		SessionID:    e.sessionID,
		Step:         e.step,
		StepLabel:    e.translator.T(e.step.TranslationKey()),
		VideoName:    e.file.Name,
		Interval:     e.interval,
		Extracting:   e.extracting,
		FrameCount:   len(e.frames),
		CurrentIndex: e.current,
		Tool:         e.tool,
		Diameter:     e.diameter,
		HasResult:    e.result != nil,
	}
	if len(e.frames) > 0 {
		s.FrameWidth, s.FrameHeight = e.frames[e.current].Width, e.frames[e.current].Height
	}
	if e.selections != nil {
		s.HasMask = e.selections.Has(e.current)
		s.MaskedCount = e.selections.Count()
	}
	return s
}

func (e *Editor) moveTo(next entity.Step) error {
	if !e.step.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", entity.ErrInvalidTransition, e.step, next)
	}
	e.log.Info("step changed", zap.String("from", string(e.step)), zap.String("to", string(next)))
	e.step = next
	return nil
}

func (e *Editor) requireStep(steps ...entity.Step) error {
	for _, s := range steps {
		if e.step == s {
			return nil
		}
	}
	return fmt.Errorf("%w: not allowed in %s", entity.ErrInvalidTransition, e.step)
}

// notify queues a toast for delivery after mu is released. Callers must
// hold mu and release it with unlock.
func (e *Editor) notify(ctx context.Context, severity entity.Severity, titleKey, descKey string) {
	e.pending = append(e.pending, queuedNotification{ctx: ctx, n: entity.Notification{
		SessionID:   e.sessionID,
		Title:       e.translator.T(titleKey),
		Description: e.translator.T(descKey),
		Severity:    severity,
	}})
}

// unlock releases mu and then hands queued notifications to the notifier, so
// a slow or re-entrant sink never runs under the session lock.
func (e *Editor) unlock() {
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()
	for _, q := range pending {
		e.notifier.Notify(q.ctx, q.n)
	}
}

// SelectVideo accepts the picked file when its declared type is video/*,
// opens it for decoding and moves to Extract.
func (e *Editor) SelectVideo(ctx context.Context, file entity.VideoFile) error {
	e.mu.Lock()
	defer e.unlock()

	if err := e.requireStep(entity.StepUpload); err != nil {
		return err
	}
	if !file.IsVideo() {
		e.log.Warn("rejected file", zap.String("name", file.Name), zap.String("type", file.Type))
		e.notify(ctx, entity.SeverityError, "toast.invalid_type.title", "toast.invalid_type.desc")
		return fmt.Errorf("%w: %q", entity.ErrInvalidFileType, file.Type)
	}

	media, err := e.opener.Open(ctx, file)
	if err != nil {
		e.log.Error("failed to open video", zap.String("name", file.Name), zap.Error(err))
		e.notify(ctx, entity.SeverityError, "toast.error", "toast.open.desc")
		return fmt.Errorf("open video: %w", err)
	}

	e.file = file
	e.media = media
	e.log.Info("video selected", zap.String("name", file.Name), zap.Int64("size", file.Size))
	return e.moveTo(entity.StepExtract)
}

func (e *Editor) SetInterval(v float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStep(entity.StepExtract); err != nil {
		return err
	}
	if e.extracting {
		return entity.ErrBusy
	}
	if err := entity.ValidateInterval(v); err != nil {
		return err
	}
	e.interval = v
	return nil
}

// Extract samples the selected video at the configured interval. When the
// session is reset while sampling, the late result is dropped and
// ErrSessionSuperseded is returned.
func (e *Editor) Extract(ctx context.Context) error {
	e.mu.Lock()
	if err := e.requireStep(entity.StepExtract); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.extracting {
		e.mu.Unlock()
		return entity.ErrBusy
	}
	e.extracting = true
	gen, media, interval, log := e.generation, e.media, e.interval, e.log
	e.mu.Unlock()

	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "extract_frames")
	defer span.End()
	span.SetAttributes(attribute.Float64("extract.interval", interval))

	start := time.Now()
	frames, err := e.sampler.Extract(ctx, media, interval)
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())

	e.mu.Lock()
	defer e.unlock()

	if gen != e.generation {
		log.Info("discarding stale extraction",
			zap.Uint64("stale_generation", gen),
			zap.Uint64("current_generation", e.generation),
		)
		metrics.StaleCompletionsTotal.Inc()
		span.SetStatus(codes.Error, "superseded")
		return entity.ErrSessionSuperseded
	}
	e.extracting = false

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ExtractionsTotal.WithLabelValues("failed").Inc()
		e.log.Error("frame extraction failed", zap.Error(err))
		desc := "toast.extract.desc"
		switch {
		case errors.Is(err, entity.ErrMetadataUnavailable):
			desc = "toast.metadata.desc"
		case errors.Is(err, entity.ErrCanvasUnavailable):
			desc = "toast.canvas.desc"
		}
		e.notify(ctx, entity.SeverityError, "toast.error", desc)
		return err
	}
	if len(frames) == 0 {
		metrics.ExtractionsTotal.WithLabelValues("empty").Inc()
		e.log.Warn("extraction produced no frames")
		e.notify(ctx, entity.SeverityError, "toast.error", "toast.extract.empty")
		return fmt.Errorf("%w: no frames sampled", entity.ErrExtraction)
	}

	e.frames = frames
	e.selections = entity.NewSelectionStore(len(frames))
	e.current = 0
	if err := e.loadCanvasLocked(ctx); err != nil {
		e.frames, e.selections = nil, nil
		metrics.ExtractionsTotal.WithLabelValues("failed").Inc()
		return err
	}

	metrics.ExtractionsTotal.WithLabelValues("completed").Inc()
	metrics.FramesExtractedTotal.Add(float64(len(frames)))
	span.SetAttributes(attribute.Int("extract.frame_count", len(frames)))
	e.log.Info("frames extracted", zap.Int("frame_count", len(frames)))
	e.notify(ctx, entity.SeveritySuccess, "toast.success", "toast.extract.done")
	return e.moveTo(entity.StepSelect)
}

// loadCanvasLocked binds the mask canvas to the current frame. The previous
// frame's buffer is flushed before reuse.
func (e *Editor) loadCanvasLocked(ctx context.Context) error {
	f := e.frames[e.current]
	var existing *entity.Mask
	if m, ok := e.selections.Get(e.current); ok {
		existing = &m
	}
	if err := e.canvas.Load(e.current, f.Width, f.Height, existing); err != nil {
		e.log.Error("failed to load mask canvas", zap.Int("frame_index", e.current), zap.Error(err))
		e.notify(ctx, entity.SeverityError, "toast.error", "toast.canvas.desc")
		return err
	}
	return nil
}

func (e *Editor) NextFrame(ctx context.Context) error {
	return e.goToFrame(ctx, 1)
}

func (e *Editor) PrevFrame(ctx context.Context) error {
	return e.goToFrame(ctx, -1)
}

func (e *Editor) goToFrame(ctx context.Context, delta int) error {
	e.mu.Lock()
	defer e.unlock()

	if err := e.requireStep(entity.StepSelect); err != nil {
		return err
	}
	next := e.current + delta
	if next < 0 || next >= len(e.frames) {
		return fmt.Errorf("%w: %d", entity.ErrFrameOutOfRange, next)
	}
	if err := e.commitStrokeLocked(); err != nil {
		return err
	}
	e.current = next
	return e.loadCanvasLocked(ctx)
}

func (e *Editor) SetTool(tool maskcanvas.Tool) error {
	if tool != maskcanvas.Brush && tool != maskcanvas.Eraser {
		return fmt.Errorf("unknown tool %q", tool)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tool = tool
	return nil
}

func (e *Editor) SetBrushDiameter(d float64) error {
	if !(d > 0) {
		return fmt.Errorf("brush diameter must be positive, got %v", d)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.diameter = d
	return nil
}

// HandlePointer routes one input event to the mask canvas in Select or to
// the measurement tool in Measure. Events in other steps are ignored.
func (e *Editor) HandlePointer(ev input.Event, surface input.Surface) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := input.Map(ev, surface)
	switch e.step {
	case entity.StepSelect:
		switch ev.Kind {
		case input.Down:
			e.canvas.BeginStroke(p, e.tool, e.diameter)
		case input.Move:
			e.canvas.ContinueStroke(p, e.tool, e.diameter)
		case input.Up, input.Leave:
			return e.commitStrokeLocked()
		}
	case entity.StepMeasure:
		switch ev.Kind {
		case input.Down:
			e.measure.Begin(p)
		case input.Move:
			e.measure.Move(p)
		case input.Up, input.Leave:
			e.measure.End()
		}
	}
	return nil
}

// commitStrokeLocked ends a stroke in progress and replaces the current
// frame's mask with the canvas content. Frame 0 is the composite background
// and never carries a mask: strokes there stay on the canvas but are not
// stored.
func (e *Editor) commitStrokeLocked() error {
	mask, ok, err := e.canvas.EndStroke()
	if err != nil {
		e.log.Error("failed to commit stroke", zap.Error(err))
		return err
	}
	if !ok {
		return nil
	}
	if e.current == 0 {
		e.log.Debug("stroke on background frame not stored", zap.String("tool", string(e.tool)))
		return nil
	}
	store, err := e.selections.With(e.current, mask)
	if err != nil {
		return err
	}
	e.selections = store
	metrics.StrokesCommittedTotal.WithLabelValues(string(e.tool)).Inc()
	e.log.Debug("stroke committed", zap.Int("frame_index", e.current), zap.String("tool", string(e.tool)))
	return nil
}

// Overlay renders the current frame dimmed with its painted region
// highlighted.
func (e *Editor) Overlay() (*image.RGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStep(entity.StepSelect); err != nil {
		return nil, err
	}
	img, err := raster.Decode(e.frames[e.current].Data)
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", e.current, err)
	}
	return e.canvas.Overlay(img), nil
}

// Finish composites the masked frames and moves to Result. On failure the
// editor stays in Select.
func (e *Editor) Finish(ctx context.Context) error {
	e.mu.Lock()
	defer e.unlock()

	if err := e.requireStep(entity.StepSelect); err != nil {
		return err
	}
	if err := e.commitStrokeLocked(); err != nil {
		return err
	}

	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "composite")
	defer span.End()
	span.SetAttributes(
		attribute.Int("composite.frame_count", len(e.frames)),
		attribute.Int("composite.masked_count", e.selections.Count()),
	)

	start := time.Now()
	result, err := e.compositor.Compose(e.frames, e.selections)
	metrics.StageDuration.WithLabelValues("composite").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.CompositesTotal.WithLabelValues("failed").Inc()
		e.log.Error("composite failed", zap.Error(err))
		e.notify(ctx, entity.SeverityError, "toast.error", "toast.composite.desc")
		return err
	}

	e.result = result
	metrics.CompositesTotal.WithLabelValues("completed").Inc()
	e.log.Info("chronophoto created",
		zap.Int("width", result.Width),
		zap.Int("height", result.Height),
		zap.Int("masked_frames", e.selections.Count()),
	)
	return e.moveTo(entity.StepResult)
}

func (e *Editor) Result() (*entity.CompositeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStep(entity.StepResult, entity.StepMeasure); err != nil {
		return nil, err
	}
	return e.result, nil
}

// Download hands the chronophoto to every exporter under its
// chronophoto-<unix-ms>.jpg name and returns the locations written.
func (e *Editor) Download(ctx context.Context, exporters ...port.ResultExporter) ([]string, error) {
	e.mu.Lock()
	defer e.unlock()

	if err := e.requireStep(entity.StepResult, entity.StepMeasure); err != nil {
		return nil, err
	}

	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "export_result")
	defer span.End()

	name := e.result.FileName()
	span.SetAttributes(attribute.String("export.name", name))

	start := time.Now()
	locations := make([]string, 0, len(exporters))
	for _, exp := range exporters {
		loc, err := exp.Export(ctx, name, e.result.Data)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.log.Error("export failed", zap.String("name", name), zap.Error(err))
			e.notify(ctx, entity.SeverityError, "toast.error", "toast.export.desc")
			return locations, fmt.Errorf("export result: %w", err)
		}
		locations = append(locations, loc)
	}
	metrics.StageDuration.WithLabelValues("export").Observe(time.Since(start).Seconds())

	e.log.Info("chronophoto exported", zap.String("name", name), zap.Strings("locations", locations))
	e.notify(ctx, entity.SeveritySuccess, "toast.success", "toast.export.done")
	return locations, nil
}

// ExportFrames archives the sampled frames once extraction has succeeded.
func (e *Editor) ExportFrames(ctx context.Context, archiver port.FrameArchiver, outputPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStep(entity.StepSelect, entity.StepResult, entity.StepMeasure); err != nil {
		return err
	}
	start := time.Now()
	if err := archiver.Archive(ctx, e.frames, outputPath); err != nil {
		e.log.Error("frame archive failed", zap.String("path", outputPath), zap.Error(err))
		return fmt.Errorf("archive frames: %w", err)
	}
	metrics.StageDuration.WithLabelValues("archive").Observe(time.Since(start).Seconds())
	e.log.Info("frames archived", zap.String("path", outputPath), zap.Int("frame_count", len(e.frames)))
	return nil
}

// EnterMeasure opens the measurement step with a fresh tool.
func (e *Editor) EnterMeasure() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.moveTo(entity.StepMeasure); err != nil {
		return err
	}
	e.measure = measure.NewTool()
	return nil
}

// LeaveMeasure returns to Result and discards the measurements.
func (e *Editor) LeaveMeasure() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStep(entity.StepMeasure); err != nil {
		return err
	}
	if err := e.moveTo(entity.StepResult); err != nil {
		return err
	}
	e.measure = nil
	return nil
}

// Measure runs fn against the measurement tool while holding the session
// lock.
func (e *Editor) Measure(fn func(*measure.Tool) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStep(entity.StepMeasure); err != nil {
		return err
	}
	return fn(e.measure)
}

// RenderMeasurements draws the current measurements over the chronophoto.
// The stored result is not modified.
func (e *Editor) RenderMeasurements() (*image.RGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStep(entity.StepMeasure); err != nil {
		return nil, err
	}
	img, err := raster.Decode(e.result.Data)
	if err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return e.measure.Render(img)
}
