package migration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"gallery-server/internal/domain/media"
	"gallery-server/internal/infrastructure/metrics"
)

// Repository is the persistence surface the migrator needs.
type Repository interface {
	List(ctx context.Context) ([]media.MediaRecord, error)
	ListLocal(ctx context.Context) ([]media.MediaRecord, error)
	UpdateStorage(ctx context.Context, filename, url, thumbnail string, storageType media.StorageType) error
}

// Options control a migration run.
type Options struct {
	// DryRun reports what would be migrated without writing anything:
	// no uploads, no record changes, no backup file.
	DryRun bool
	// VerifyOnly re-checks that every record already marked s3 has its
	// artifacts in the object store. Nothing is migrated.
	VerifyOnly bool
	// BackupDir receives a JSON snapshot of all records before the first
	// record is rewritten.
	BackupDir string
}

// Result summarises one migration run.
type Result struct {
	Candidates int      `json:"candidates"`
	Uploaded   int      `json:"uploaded"`
	Verified   int      `json:"verified"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	BackupPath string   `json:"backupPath,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// Migrator moves local artifacts into the object store. Local files are
// never deleted; after a successful run they remain on disk as a fallback
// copy the operator can remove manually.
type Migrator struct {
	repo  Repository
	store media.ObjectStore
	local media.LocalStore
	log   zerolog.Logger
}

func NewMigrator(repo Repository, store media.ObjectStore, local media.LocalStore, log zerolog.Logger) *Migrator {
	return &Migrator{
		repo:  repo,
		store: store,
		local: local,
		log:   log.With().Str("component", "migrator").Logger(),
	}
}

// Run executes the migration. Each candidate is processed independently: a
// failure is recorded and the run continues with the next file. A record is
// rewritten only after every uploaded artifact is confirmed present in the
// object store.
func (m *Migrator) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.VerifyOnly {
		return m.verify(ctx)
	}

	if !m.store.IsConfigured() {
		return nil, fmt.Errorf("object storage is not configured; nothing to migrate to")
	}

	candidates, err := m.repo.ListLocal(ctx)
	if err != nil {
		return nil, fmt.Errorf("list local records: %w", err)
	}

	result := &Result{Candidates: len(candidates)}
	if len(candidates) == 0 {
		m.log.Info().Msg("no local records to migrate")
		return result, nil
	}

	if opts.DryRun {
		for _, rec := range candidates {
			if !m.local.Exists(rec.Filename) {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: local file missing", rec.Filename))
				continue
			}
			m.log.Info().Str("filename", rec.Filename).Msg("would migrate")
		}
		return result, nil
	}

	backupPath, err := m.writeBackup(ctx, opts.BackupDir)
	if err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}
	result.BackupPath = backupPath

	for _, rec := range candidates {
		if err := m.migrateOne(ctx, rec, result); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rec.Filename, err))
			metrics.RecordMigrationFile("failure")
			m.log.Error().Err(err).Str("filename", rec.Filename).Msg("migration failed for file")
		}
	}

	m.log.Info().
		Int("candidates", result.Candidates).
		Int("uploaded", result.Uploaded).
		Int("verified", result.Verified).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("migration finished")
	return result, nil
}

func (m *Migrator) migrateOne(ctx context.Context, rec media.MediaRecord, result *Result) error {
	if !m.local.Exists(rec.Filename) {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("%s: local file missing", rec.Filename))
		metrics.RecordMigrationFile("skipped")
		return nil
	}

	data, err := os.ReadFile(m.local.Path(rec.Filename))
	if err != nil {
		return fmt.Errorf("read local file: %w", err)
	}

	contentType := rec.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := m.store.Put(ctx, rec.Filename, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	result.Uploaded++

	ok, err := m.store.Exists(ctx, rec.Filename)
	if err != nil {
		return fmt.Errorf("verify upload: %w", err)
	}
	if !ok {
		return fmt.Errorf("uploaded object not found during verification")
	}

	thumbnailURL := ""
	if rec.Thumbnail != "" {
		thumbKey := media.ThumbnailKey(rec.Filename)
		thumbPath := m.local.Path(thumbKey)
		thumbData, err := os.ReadFile(thumbPath)
		if err != nil {
			// A record referencing a vanished thumbnail migrates without
			// one rather than blocking the file.
			m.log.Warn().Str("filename", rec.Filename).Msg("local thumbnail missing, migrating without it")
		} else {
			thumbnailURL, err = m.store.Put(ctx, thumbKey, bytes.NewReader(thumbData), int64(len(thumbData)), "image/jpeg")
			if err != nil {
				return fmt.Errorf("upload thumbnail: %w", err)
			}
			ok, err := m.store.Exists(ctx, thumbKey)
			if err != nil {
				return fmt.Errorf("verify thumbnail: %w", err)
			}
			if !ok {
				return fmt.Errorf("uploaded thumbnail not found during verification")
			}
		}
	}

	if err := m.repo.UpdateStorage(ctx, rec.Filename, url, thumbnailURL, media.StorageS3); err != nil {
		return fmt.Errorf("rewrite record: %w", err)
	}

	result.Verified++
	metrics.RecordMigrationFile("success")
	m.log.Info().Str("filename", rec.Filename).Str("url", url).Msg("migrated")
	return nil
}

// verify re-checks records already marked s3 without touching anything.
func (m *Migrator) verify(ctx context.Context) (*Result, error) {
	records, err := m.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	result := &Result{}
	for _, rec := range records {
		if rec.StorageType != media.StorageS3 {
			continue
		}
		result.Candidates++

		ok, err := m.store.Exists(ctx, rec.Filename)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rec.Filename, err))
			continue
		}
		if !ok {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: object missing", rec.Filename))
			continue
		}

		if rec.Thumbnail != "" {
			ok, err := m.store.Exists(ctx, media.ThumbnailKey(rec.Filename))
			if err != nil || !ok {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: thumbnail missing", rec.Filename))
				continue
			}
		}
		result.Verified++
	}
	return result, nil
}

// writeBackup snapshots every record to a timestamped JSON file.
func (m *Migrator) writeBackup(ctx context.Context, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	records, err := m.repo.List(ctx)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("media-records-backup-%s.json", time.Now().UTC().Format("20060102-150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}

	m.log.Info().Str("path", path).Int("records", len(records)).Msg("backup written")
	return path, nil
}
