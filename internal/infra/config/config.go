package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`
	AppLanguage string `env:"APP_LANGUAGE" envDefault:"fr"`

	SamplingInterval  float64 `env:"SAMPLING_INTERVAL"   envDefault:"0.5"`
	FrameJPEGQuality  int     `env:"FRAME_JPEG_QUALITY"  envDefault:"80"`
	ResultJPEGQuality int     `env:"RESULT_JPEG_QUALITY" envDefault:"90"`
	BrushDiameter     float64 `env:"BRUSH_DIAMETER"      envDefault:"40"`
	FallbackWidth     int     `env:"FALLBACK_WIDTH"      envDefault:"1280"`
	FallbackHeight    int     `env:"FALLBACK_HEIGHT"     envDefault:"720"`

	OutputDir string `env:"OUTPUT_DIR" envDefault:"."`
	TempDir   string `env:"TEMP_DIR"   envDefault:"/tmp/chronophoto"`

	MinIOEnabled      bool   `env:"MINIO_ENABLED"       envDefault:"false"`
	MinIOEndpoint     string `env:"MINIO_ENDPOINT"      envDefault:"localhost:9000"`
	MinIOAccessKey    string `env:"MINIO_ACCESS_KEY"    envDefault:"minioadmin"`
	MinIOSecretKey    string `env:"MINIO_SECRET_KEY"    envDefault:"minioadmin"`
	MinIOUseSSL       bool   `env:"MINIO_USE_SSL"       envDefault:"false"`
	MinIOVideoBucket  string `env:"MINIO_VIDEO_BUCKET"  envDefault:"videos"`
	MinIOResultBucket string `env:"MINIO_RESULT_BUCKET" envDefault:"chronophotos"`

	RabbitMQURL        string `env:"RABBITMQ_URL"`
	RabbitMQExchange   string `env:"RABBITMQ_EXCHANGE"    envDefault:"chronophoto.events"`
	RabbitMQRoutingKey string `env:"RABBITMQ_ROUTING_KEY" envDefault:"chronophoto.notification"`

	SMTPHost       string `env:"SMTP_HOST"`
	SMTPPort       int    `env:"SMTP_PORT"       envDefault:"1025"`
	SMTPFrom       string `env:"SMTP_FROM"       envDefault:"noreply@chronophoto.local"`
	NotificationTo string `env:"NOTIFICATION_TO" envDefault:"admin@chronophoto.local"`

	MetricsPort      int     `env:"METRICS_PORT"       envDefault:"0"`
	JaegerEndpoint   string  `env:"JAEGER_ENDPOINT"`
	TraceSampleRatio float64 `env:"TRACE_SAMPLE_RATIO" envDefault:"1"`
	DeploymentEnv    string  `env:"DEPLOYMENT_ENV"     envDefault:"local"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := entity.ValidateInterval(c.SamplingInterval); err != nil {
		return fmt.Errorf("SAMPLING_INTERVAL: %w", err)
	}
	if c.FrameJPEGQuality < 1 || c.FrameJPEGQuality > 100 {
		return fmt.Errorf("FRAME_JPEG_QUALITY out of range: %d", c.FrameJPEGQuality)
	}
	if c.ResultJPEGQuality < 1 || c.ResultJPEGQuality > 100 {
		return fmt.Errorf("RESULT_JPEG_QUALITY out of range: %d", c.ResultJPEGQuality)
	}
	if c.BrushDiameter <= 0 {
		return fmt.Errorf("BRUSH_DIAMETER must be positive: %v", c.BrushDiameter)
	}
	if c.FallbackWidth <= 0 || c.FallbackHeight <= 0 {
		return fmt.Errorf("fallback size must be positive: %dx%d", c.FallbackWidth, c.FallbackHeight)
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("METRICS_PORT out of range: %d", c.MetricsPort)
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATIO out of range: %v", c.TraceSampleRatio)
	}
	return nil
}
