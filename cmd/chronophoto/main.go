package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/compositor"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/port"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/i18n"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/infra/config"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/infra/email"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/infra/ffmpeg"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/infra/filesystem"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/infra/metrics"
	miniostorage "github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/infra/minio"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/infra/notify"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/infra/rabbitmq"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/infra/tracing"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/replay"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/sampler"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/usecase"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/pkg/logger"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func init() {
	for ext, typ := range map[string]string{
		".mp4":  "video/mp4",
		".m4v":  "video/mp4",
		".webm": "video/webm",
		".ogv":  "video/ogg",
		".ogg":  "video/ogg",
		".mov":  "video/quicktime",
	} {
		if err := mime.AddExtensionType(ext, typ); err != nil {
			panic(fmt.Sprintf("register mime type %s: %v", ext, err))
		}
	}
}

type flags struct {
	video    string
	minioKey string
	mimeType string
	script   string
	overlays string
	frames   string
	measured string
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.video, "video", "", "local video file")
	flag.StringVar(&f.minioKey, "minio-key", "", "object key of an uploaded video in the video bucket")
	flag.StringVar(&f.mimeType, "type", "", "declared MIME type (default: from the file extension)")
	flag.StringVar(&f.script, "script", "", "JSON script of strokes and measurements")
	flag.StringVar(&f.overlays, "overlays", "", "directory receiving one overlay PNG per painted frame")
	flag.StringVar(&f.frames, "frames", "", "zip archive receiving the sampled frames")
	flag.StringVar(&f.measured, "measured", "", "PNG receiving the chronophoto with measurements")
	help := flag.Bool("help", false, "show usage")
	flag.Parse()

	if *help || (f.video == "") == (f.minioKey == "") {
		flag.Usage()
		os.Exit(2)
	}
	return f
}

func main() {
	os.Exit(run(parseFlags()))
}

func run(f flags) int {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting chronophoto")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	// Tracing (non-fatal if the collector is unavailable)
	if cfg.JaegerEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, tracing.Options{
			Endpoint:    cfg.JaegerEndpoint,
			Version:     version,
			Environment: cfg.DeploymentEnv,
			SampleRatio: cfg.TraceSampleRatio,
		})
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
	}

	if cfg.MetricsPort > 0 {
		srv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	// Notification sinks
	sinks := notify.Fanout{notify.NewLogNotifier(log)}
	if cfg.RabbitMQURL != "" {
		rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
		fatalOnErr(err, "connect to rabbitmq")
		defer rmqConn.Close()

		pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
		fatalOnErr(err, "create rabbitmq publisher")
		defer pub.Close()
		sinks = append(sinks, rabbitmq.NewNotificationPublisher(pub, cfg.RabbitMQRoutingKey, log))
	}
	if cfg.SMTPHost != "" {
		sinks = append(sinks, email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.NotificationTo, log))
	}

	exporters := []port.ResultExporter{filesystem.NewExporter(cfg.OutputDir)}
	var storage *miniostorage.Storage
	if cfg.MinIOEnabled {
		storage, err = miniostorage.NewStorage(miniostorage.StorageConfig{
			Endpoint:     cfg.MinIOEndpoint,
			AccessKey:    cfg.MinIOAccessKey,
			SecretKey:    cfg.MinIOSecretKey,
			UseSSL:       cfg.MinIOUseSSL,
			VideoBucket:  cfg.MinIOVideoBucket,
			ResultBucket: cfg.MinIOResultBucket,
		})
		fatalOnErr(err, "create minio storage")
		fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")
		exporters = append(exporters, storage)
	}

	editor := usecase.NewEditor(
		ffmpeg.NewOpener(log),
		sampler.New(sampler.Config{
			Quality:        cfg.FrameJPEGQuality,
			FallbackWidth:  cfg.FallbackWidth,
			FallbackHeight: cfg.FallbackHeight,
		}, log),
		compositor.New(cfg.ResultJPEGQuality, log),
		sinks,
		i18n.New(cfg.AppLanguage),
		log,
		usecase.EditorConfig{
			Interval:      cfg.SamplingInterval,
			BrushDiameter: cfg.BrushDiameter,
		},
	)

	if err := session(ctx, f, cfg, storage, editor, exporters, log); err != nil {
		log.Error("session failed", zap.Error(err))
		return 1
	}
	log.Info("chronophoto stopped")
	return 0
}

func session(
	ctx context.Context,
	f flags,
	cfg *config.Config,
	storage *miniostorage.Storage,
	editor *usecase.Editor,
	exporters []port.ResultExporter,
	log *zap.Logger,
) error {
	file, err := pickVideo(ctx, f, cfg, storage)
	if err != nil {
		return err
	}
	if err := editor.SelectVideo(ctx, file); err != nil {
		return err
	}

	script := &replay.Script{}
	if f.script != "" {
		if script, err = replay.Load(f.script); err != nil {
			return err
		}
	}

	runner := replay.NewRunner(editor, log)
	if f.frames != "" {
		runner.OnExtracted = func(ctx context.Context) error {
			return editor.ExportFrames(ctx, ffmpeg.NewArchiver(), f.frames)
		}
	}
	if f.overlays != "" {
		if err := os.MkdirAll(f.overlays, 0o755); err != nil {
			return fmt.Errorf("create overlay dir: %w", err)
		}
		strokes := 0
		runner.OnOverlay = func(index int, overlay *image.RGBA) error {
			strokes++
			return writePNG(filepath.Join(f.overlays, fmt.Sprintf("overlay_%04d_%03d.png", index, strokes)), overlay)
		}
	}

	report, err := runner.Run(ctx, script)
	if err != nil {
		return err
	}

	locations, err := editor.Download(ctx, exporters...)
	if err != nil {
		return err
	}
	for _, loc := range locations {
		fmt.Println(loc)
	}

	if f.measured != "" && report.Annotated != nil {
		if err := writePNG(f.measured, report.Annotated); err != nil {
			return err
		}
		for _, m := range report.Measurements {
			log.Info("measurement", zap.String("length", m.Label()), zap.Float64("pixels", m.PixelLength()))
		}
	}
	return nil
}

// pickVideo plays the file picker: a MinIO object reports its stored
// Content-Type, a local file its extension's type unless -type overrides it.
func pickVideo(ctx context.Context, f flags, cfg *config.Config, storage *miniostorage.Storage) (entity.VideoFile, error) {
	if f.minioKey != "" {
		if storage == nil {
			return entity.VideoFile{}, fmt.Errorf("-minio-key requires MINIO_ENABLED=true")
		}
		if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
			return entity.VideoFile{}, fmt.Errorf("create temp dir: %w", err)
		}
		file, err := storage.FetchVideo(ctx, f.minioKey, cfg.TempDir)
		if err != nil {
			return entity.VideoFile{}, err
		}
		if f.mimeType != "" {
			file.Type = f.mimeType
		}
		return file, nil
	}

	info, err := os.Stat(f.video)
	if err != nil {
		return entity.VideoFile{}, fmt.Errorf("stat video: %w", err)
	}
	typ := f.mimeType
	if typ == "" {
		typ = mime.TypeByExtension(filepath.Ext(f.video))
	}
	return entity.VideoFile{
		Name: info.Name(),
		Type: typ,
		Path: f.video,
		Size: info.Size(),
	}, nil
}

func writePNG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()
	if err := png.Encode(out, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
