package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the gallery service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"gallery-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"GALLERY_API_PORT" envDefault:"3001"`
	LogLevel        string        `env:"GALLERY_LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Shared upload/delete secret. Empty means the server is misconfigured
	// for any mutating request, not that auth is disabled.
	GalleryPassword string `env:"GALLERY_PASSWORD"`

	// Database
	DatabaseDSN    string        `env:"DB_POSTGRESQL_DSN,notEmpty"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// S3-compatible object storage. Remote mode is active only when bucket,
	// access key, and secret key are all present.
	S3Endpoint     string        `env:"GALLERY_S3_ENDPOINT"`
	S3Region       string        `env:"GALLERY_S3_REGION" envDefault:"us-east-1"`
	S3Bucket       string        `env:"GALLERY_S3_BUCKET"`
	S3AccessKeyID  string        `env:"GALLERY_S3_ACCESS_KEY_ID"`
	S3SecretKey    string        `env:"GALLERY_S3_SECRET_ACCESS_KEY"`
	S3TenantID     string        `env:"GALLERY_S3_TENANT_ID"`
	S3UsePathStyle bool          `env:"GALLERY_S3_USE_PATH_STYLE" envDefault:"true"`
	S3PresignTTL   time.Duration `env:"GALLERY_S3_PRESIGN_TTL" envDefault:"15m"`

	// Local storage
	LocalStoragePath string `env:"GALLERY_UPLOADS_DIR" envDefault:"./uploads"`

	// Upload limits
	MaxUploadBytes int64 `env:"GALLERY_MAX_UPLOAD_BYTES" envDefault:"209715200"`

	// Transcoding
	FFmpegPath          string        `env:"GALLERY_FFMPEG_PATH" envDefault:"ffmpeg"`
	FFprobePath         string        `env:"GALLERY_FFPROBE_PATH" envDefault:"ffprobe"`
	ThumbnailWidth      int           `env:"GALLERY_THUMBNAIL_WIDTH" envDefault:"480"`
	ThumbnailOffsetSec  int           `env:"GALLERY_THUMBNAIL_OFFSET_SEC" envDefault:"3"`
	TranscodeTimeout    time.Duration `env:"GALLERY_TRANSCODE_TIMEOUT" envDefault:"2m"`
	MigrationBackupDir  string        `env:"GALLERY_MIGRATION_BACKUP_DIR" envDefault:"./backups"`

	// Allow-lists. Both the extension and the detected MIME type of an
	// upload must appear here; the lists are data, not pipeline logic.
	ImageExtensions  []string `env:"GALLERY_IMAGE_EXTENSIONS" envSeparator:","`
	VideoExtensions  []string `env:"GALLERY_VIDEO_EXTENSIONS" envSeparator:","`
	AllowedMIMETypes []string `env:"GALLERY_ALLOWED_MIME_TYPES" envSeparator:","`

	imageExts   map[string]struct{}
	videoExts   map[string]struct{}
	allowedMIME map[string]struct{}
}

var defaultImageExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff",
	".heic", ".heif", ".avif",
	".dng", ".arw", ".cr2", ".cr3", ".nef", ".orf", ".rw2", ".raf",
}

var defaultVideoExtensions = []string{
	".mp4", ".mov", ".m4v", ".avi", ".mkv", ".webm", ".mpg", ".mpeg",
	".wmv", ".flv", ".3gp",
}

// Several RAW formats detect as TIFF variants or plain octet streams, which
// is why the extension check exists alongside this list.
var defaultAllowedMIMETypes = []string{
	"image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp",
	"image/tiff", "image/heic", "image/heif", "image/avif",
	"image/x-canon-cr2", "image/x-nikon-nef", "image/x-sony-arw",
	"image/x-adobe-dng", "image/x-fuji-raf", "image/x-olympus-orf",
	"application/octet-stream",
	"video/mp4", "video/quicktime", "video/x-msvideo", "video/x-matroska",
	"video/webm", "video/mpeg", "video/x-ms-wmv", "video/x-flv", "video/3gpp",
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.GalleryPassword = strings.TrimSpace(cfg.GalleryPassword)
	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)
	cfg.S3TenantID = strings.TrimSpace(cfg.S3TenantID)
	cfg.LocalStoragePath = strings.TrimSpace(cfg.LocalStoragePath)
	if cfg.LocalStoragePath == "" {
		cfg.LocalStoragePath = "./uploads"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 200 * 1024 * 1024
	}
	if cfg.ThumbnailWidth <= 0 {
		cfg.ThumbnailWidth = 480
	}
	if cfg.ThumbnailOffsetSec < 0 {
		cfg.ThumbnailOffsetSec = 3
	}

	if len(cfg.ImageExtensions) == 0 {
		cfg.ImageExtensions = defaultImageExtensions
	}
	if len(cfg.VideoExtensions) == 0 {
		cfg.VideoExtensions = defaultVideoExtensions
	}
	if len(cfg.AllowedMIMETypes) == 0 {
		cfg.AllowedMIMETypes = defaultAllowedMIMETypes
	}
	cfg.imageExts = toSet(cfg.ImageExtensions)
	cfg.videoExts = toSet(cfg.VideoExtensions)
	cfg.allowedMIME = toSet(cfg.AllowedMIMETypes)

	return cfg, nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsRemoteStorage reports whether uploads target the object store. Remote
// mode requires bucket, access key, and secret key; anything less falls
// back to local disk.
func (c *Config) IsRemoteStorage() bool {
	return c.S3Bucket != "" && c.S3AccessKeyID != "" && c.S3SecretKey != ""
}

// KindForExtension classifies a lowercase extension (with leading dot) as
// "image" or "video". Empty string means the extension is not allowed.
func (c *Config) KindForExtension(ext string) string {
	ext = strings.ToLower(ext)
	if _, ok := c.imageExts[ext]; ok {
		return "image"
	}
	if _, ok := c.videoExts[ext]; ok {
		return "video"
	}
	return ""
}

// MIMEAllowed reports whether a detected MIME type is on the allow-list.
// Parameters after the media type (e.g. "; charset=utf-8") are ignored.
func (c *Config) MIMEAllowed(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	_, ok := c.allowedMIME[mime]
	return ok
}
