package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"gallery-server/internal/config"
)

const thumbnailDir = "thumbnails"

// LocalStore persists uploads under the configured uploads root, with
// thumbnails in a thumbnails/ subdirectory. URLs are server-relative so the
// static file route can serve them directly.
type LocalStore struct {
	basePath string
	log      zerolog.Logger
}

func NewLocalStore(cfg *config.Config, log zerolog.Logger) (*LocalStore, error) {
	logger := log.With().Str("component", "local-store").Logger()

	basePath := cfg.LocalStoragePath
	if err := os.MkdirAll(filepath.Join(basePath, thumbnailDir), 0755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}

	logger.Info().Str("path", basePath).Msg("local storage initialized")
	return &LocalStore{basePath: basePath, log: logger}, nil
}

// Save writes the file under the uploads root and returns its relative URL.
func (l *LocalStore) Save(ctx context.Context, key string, body io.Reader) (string, error) {
	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, body)
	if err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	l.log.Debug().Str("key", key).Int64("bytes", written).Msg("file saved to local storage")
	return "/uploads/" + key, nil
}

// SaveThumbnail writes a derived JPEG thumbnail for baseKey.
func (l *LocalStore) SaveThumbnail(ctx context.Context, baseKey string, data []byte) (string, error) {
	name := baseKey + ".jpg"
	fullPath := filepath.Join(l.basePath, thumbnailDir, name)

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("write thumbnail: %w", err)
	}
	return "/uploads/" + thumbnailDir + "/" + name, nil
}

// Delete removes the primary file. A missing file is not an error.
func (l *LocalStore) Delete(key string) error {
	err := os.Remove(filepath.Join(l.basePath, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// DeleteThumbnail removes the derived thumbnail for baseKey.
func (l *LocalStore) DeleteThumbnail(baseKey string) error {
	err := os.Remove(filepath.Join(l.basePath, thumbnailDir, baseKey+".jpg"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove thumbnail: %w", err)
	}
	return nil
}

// Path returns the absolute filesystem path for a key.
func (l *LocalStore) Path(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

// Exists reports whether the file for a key is on disk.
func (l *LocalStore) Exists(key string) bool {
	_, err := os.Stat(l.Path(key))
	return err == nil
}

// BasePath returns the uploads root for the static file route.
func (l *LocalStore) BasePath() string {
	return l.basePath
}
