package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"gallery-server/internal/config"
	"gallery-server/internal/infrastructure/metrics"
	"gallery-server/internal/utils/platformerrors"
	"gallery-server/utils/mediaid"
)

// Repository defines persistence operations needed by the service. Lookups
// return (nil, nil) when no record matches.
type Repository interface {
	Create(ctx context.Context, rec *MediaRecord) error
	GetByFilename(ctx context.Context, filename string) (*MediaRecord, error)
	List(ctx context.Context) ([]MediaRecord, error)
	UpdateDetails(ctx context.Context, filename string, update DetailUpdate) (*MediaRecord, error)
	Delete(ctx context.Context, filename string) error
}

// ObjectStore defines remote object storage operations.
type ObjectStore interface {
	IsConfigured() bool
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	PublicURL(key string) string
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// LocalStore defines local filesystem storage operations.
type LocalStore interface {
	Save(ctx context.Context, key string, body io.Reader) (string, error)
	SaveThumbnail(ctx context.Context, baseKey string, data []byte) (string, error)
	Delete(key string) error
	DeleteThumbnail(baseKey string) error
	Path(key string) string
	Exists(key string) bool
}

// Deriver is the narrow capability interface over the external transcoder.
type Deriver interface {
	ExtractFrame(ctx context.Context, videoPath string) ([]byte, error)
	ProbeDimensions(ctx context.Context, path string) (width, height int, err error)
	WriteTempFile(data []byte, suffix string) (path string, cleanup func(), err error)
}

// Service orchestrates the gallery upload, listing, update, and deletion
// pipelines. The storage target is decided once per batch from the
// configuration resolved at startup.
type Service struct {
	cfg     *config.Config
	repo    Repository
	store   ObjectStore
	local   LocalStore
	deriver Deriver
	log     zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, store ObjectStore, local LocalStore, deriver Deriver, log zerolog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		repo:    repo,
		store:   store,
		local:   local,
		deriver: deriver,
		log:     log.With().Str("component", "media-service").Logger(),
	}
}

// BaseKey strips the extension from a storage key.
func BaseKey(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// ThumbnailKey computes the thumbnail storage key for a primary key. The
// thumbnail always lives in the same storage domain as the primary.
func ThumbnailKey(filename string) string {
	return "thumbnails/" + BaseKey(filename) + ".jpg"
}

func (s *Service) checkPassword(ctx context.Context, provided string) error {
	if s.cfg.GalleryPassword == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"no gallery password configured on the server", nil, "media-auth-config-001")
	}
	if provided == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
			"password is required", nil, "media-auth-required-001")
	}
	if provided != s.cfg.GalleryPassword {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
			"invalid password", nil, "media-auth-invalid-001")
	}
	return nil
}

// StorageTarget reports where new uploads go with the current configuration.
func (s *Service) StorageTarget() StorageType {
	if s.store != nil && s.store.IsConfigured() {
		return StorageS3
	}
	return StorageLocal
}

// Upload authenticates the batch once, then processes files independently:
// a rejected or failed file never stops the rest of the batch.
func (s *Service) Upload(ctx context.Context, password string, files []UploadFile, meta *MetadataSpec) (*UploadResult, error) {
	if err := s.checkPassword(ctx, password); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"no files provided", nil, "media-upload-empty-001")
	}

	target := s.StorageTarget()
	uploadedAt := time.Now().UTC()
	result := &UploadResult{StorageType: target}

	for i, f := range files {
		rec, err := s.uploadOne(ctx, f, meta.For(i), target, uploadedAt)
		if err != nil {
			s.log.Error().Err(err).Str("file", f.OriginalName).Msg("upload failed")
			metrics.RecordUpload("unknown", "failure", 0)
			result.Failures = append(result.Failures, FileFailure{
				OriginalName: f.OriginalName,
				Reason:       failureReason(err),
			})
			continue
		}
		result.Records = append(result.Records, *rec)
	}

	return result, nil
}

func (s *Service) uploadOne(ctx context.Context, f UploadFile, meta FileMetadata, target StorageType, uploadedAt time.Time) (*MediaRecord, error) {
	ext := strings.ToLower(filepath.Ext(f.OriginalName))
	kind := MediaType(s.cfg.KindForExtension(ext))
	if kind == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("file extension %q is not allowed", ext), nil, "media-upload-ext-001")
	}

	if len(f.Data) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"file is empty", nil, "media-upload-size-001")
	}
	if int64(len(f.Data)) > s.cfg.MaxUploadBytes {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("file exceeds max size of %d bytes", s.cfg.MaxUploadBytes), nil, "media-upload-size-002")
	}

	// The declared Content-Type is client-supplied and spoofable, so the
	// sniffed type is authoritative. Both the extension and the sniffed
	// type must be allow-listed.
	detected := mimetype.Detect(f.Data).String()
	if !s.cfg.MIMEAllowed(detected) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("unsupported media type %s", detected), nil, "media-upload-mime-001")
	}
	if !mimeMatchesKind(detected, kind) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("file content (%s) does not match its %s extension", detected, kind), nil, "media-upload-mime-002")
	}

	key := mediaid.New() + ext

	var url string
	var err error
	if target == StorageS3 {
		url, err = s.store.Put(ctx, key, bytes.NewReader(f.Data), int64(len(f.Data)), detected)
		if err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
				"failed to store file", err, "media-upload-store-001")
		}
	} else {
		url, err = s.local.Save(ctx, key, bytes.NewReader(f.Data))
		if err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
				"failed to store file", err, "media-upload-store-002")
		}
	}

	var thumbnail string
	var width, height int
	if kind == MediaVideo {
		thumbnail, width, height = s.deriveVideoArtifacts(ctx, key, f.Data, ext, target)
	} else if w, h, ok := decodeImageDimensions(f.Data); ok {
		width, height = w, h
	}

	rec := &MediaRecord{
		Filename:     key,
		OriginalName: f.OriginalName,
		Name:         displayName(meta.Name, f.OriginalName),
		URL:          url,
		Thumbnail:    thumbnail,
		StorageType:  target,
		MediaType:    kind,
		MimeType:     detected,
		Bytes:        int64(len(f.Data)),
		Width:        width,
		Height:       height,
		TakenAt:      meta.Date,
		Location:     meta.Location,
		Tags:         meta.Tags,
		Photographer: meta.Photographer,
		UploadedAt:   uploadedAt,
	}

	// The artifact is already placed; a failed record write leaves an
	// orphaned object rather than a dangling record.
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	metrics.RecordUpload(string(kind), "success", rec.Bytes)
	return rec, nil
}

// deriveVideoArtifacts produces the thumbnail and dimensions for a video.
// Derivation is best-effort and paired: any failure suppresses both fields
// and never fails the upload.
func (s *Service) deriveVideoArtifacts(ctx context.Context, key string, data []byte, ext string, target StorageType) (thumbnail string, width, height int) {
	var path string
	if target == StorageS3 {
		tempPath, cleanup, err := s.deriver.WriteTempFile(data, ext)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("temp file for transcoding failed")
			return "", 0, 0
		}
		defer cleanup()
		path = tempPath
	} else {
		path = s.local.Path(key)
	}

	frame, err := s.deriver.ExtractFrame(ctx, path)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("thumbnail extraction failed, continuing without it")
		return "", 0, 0
	}

	w, h, err := s.deriver.ProbeDimensions(ctx, path)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("dimension probe failed, continuing without it")
		return "", 0, 0
	}

	if target == StorageS3 {
		url, err := s.store.Put(ctx, ThumbnailKey(key), bytes.NewReader(frame), int64(len(frame)), "image/jpeg")
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("thumbnail upload failed, continuing without it")
			return "", 0, 0
		}
		return url, w, h
	}

	url, err := s.local.SaveThumbnail(ctx, BaseKey(key), frame)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("thumbnail save failed, continuing without it")
		return "", 0, 0
	}
	return url, w, h
}

// List returns all records, newest upload first.
func (s *Service) List(ctx context.Context) ([]MediaRecord, error) {
	return s.repo.List(ctx)
}

// Delete removes the record's artifacts best-effort, then the record
// itself. Storage-layer failures are logged but never leave an
// undeletable gallery entry.
func (s *Service) Delete(ctx context.Context, password, filename string) error {
	if err := s.checkPassword(ctx, password); err != nil {
		return err
	}

	rec, err := s.repo.GetByFilename(ctx, filename)
	if err != nil {
		return err
	}
	if rec == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("media %s not found", filename), nil, "media-delete-notfound-001")
	}

	if rec.StorageType == StorageS3 {
		if err := s.store.Delete(ctx, rec.Filename); err != nil {
			s.log.Warn().Err(err).Str("key", rec.Filename).Msg("remote delete failed, removing record anyway")
		}
		if rec.Thumbnail != "" {
			if err := s.store.Delete(ctx, ThumbnailKey(rec.Filename)); err != nil {
				s.log.Warn().Err(err).Str("key", rec.Filename).Msg("remote thumbnail delete failed")
			}
		}
	} else {
		if err := s.local.Delete(rec.Filename); err != nil {
			s.log.Warn().Err(err).Str("key", rec.Filename).Msg("local delete failed, removing record anyway")
		}
		if rec.Thumbnail != "" {
			if err := s.local.DeleteThumbnail(BaseKey(rec.Filename)); err != nil {
				s.log.Warn().Err(err).Str("key", rec.Filename).Msg("local thumbnail delete failed")
			}
		}
	}

	return s.repo.Delete(ctx, filename)
}

// Update mutates descriptive metadata only; storage fields are untouchable
// through this path.
func (s *Service) Update(ctx context.Context, password, filename string, update DetailUpdate) (*MediaRecord, error) {
	if err := s.checkPassword(ctx, password); err != nil {
		return nil, err
	}

	rec, err := s.repo.UpdateDetails(ctx, filename, update)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("media %s not found", filename), nil, "media-update-notfound-001")
	}
	return rec, nil
}

// mimeMatchesKind ties the sniffed content family to the extension-derived
// kind, so a video container cannot smuggle image bytes and vice versa. RAW
// images sniff as octet-stream, which keeps octet-stream in the image family
// and means an unrecognized binary with a RAW extension passes on the
// extension alone.
func mimeMatchesKind(mime string, kind MediaType) bool {
	switch kind {
	case MediaVideo:
		return strings.HasPrefix(mime, "video/")
	case MediaImage:
		return strings.HasPrefix(mime, "image/") || mime == "application/octet-stream"
	}
	return false
}

func displayName(name, originalName string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return originalName
}

func failureReason(err error) string {
	var platformErr *platformerrors.PlatformError
	if errors.As(err, &platformErr) {
		return platformErr.Message
	}
	return err.Error()
}
