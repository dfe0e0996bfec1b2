package migration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gallery-server/internal/domain/media"
)

type fakeRepository struct {
	records        []media.MediaRecord
	storageUpdates map[string]media.StorageType
}

func newFakeRepository(records ...media.MediaRecord) *fakeRepository {
	return &fakeRepository{records: records, storageUpdates: make(map[string]media.StorageType)}
}

func (f *fakeRepository) List(ctx context.Context) ([]media.MediaRecord, error) {
	return f.records, nil
}

func (f *fakeRepository) ListLocal(ctx context.Context) ([]media.MediaRecord, error) {
	var out []media.MediaRecord
	for _, rec := range f.records {
		if rec.StorageType == media.StorageLocal || rec.StorageType == "" {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRepository) UpdateStorage(ctx context.Context, filename, url, thumbnail string, storageType media.StorageType) error {
	for i := range f.records {
		if f.records[i].Filename == filename {
			f.records[i].URL = url
			f.records[i].Thumbnail = thumbnail
			f.records[i].StorageType = storageType
			f.storageUpdates[filename] = storageType
			return nil
		}
	}
	return errors.New("record not found")
}

type fakeObjectStore struct {
	objects    map[string][]byte
	putErr     error
	existsLies bool // uploaded objects report as absent
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) IsConfigured() bool { return true }

func (f *fakeObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return "https://objects.example.com/gallery/" + key, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	if f.existsLies {
		return false, nil
	}
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return "https://objects.example.com/gallery/" + key
}

func (f *fakeObjectStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return f.PublicURL(key), nil
}

// diskLocalStore is a LocalStore over a temp directory so the migrator's
// file reads hit real files.
type diskLocalStore struct {
	dir string
}

func (d *diskLocalStore) Save(ctx context.Context, key string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return "/uploads/" + key, os.WriteFile(d.Path(key), data, 0o644)
}

func (d *diskLocalStore) SaveThumbnail(ctx context.Context, baseKey string, data []byte) (string, error) {
	return "/uploads/thumbnails/" + baseKey + ".jpg", os.WriteFile(d.Path("thumbnails/"+baseKey+".jpg"), data, 0o644)
}

func (d *diskLocalStore) Delete(key string) error { return os.Remove(d.Path(key)) }
func (d *diskLocalStore) DeleteThumbnail(base string) error { return os.Remove(d.Path("thumbnails/" + base + ".jpg")) }
func (d *diskLocalStore) Path(key string) string { return filepath.Join(d.dir, filepath.FromSlash(key)) }
func (d *diskLocalStore) Exists(key string) bool {
	_, err := os.Stat(d.Path(key))
	return err == nil
}

func newDiskLocalStore(t *testing.T) *diskLocalStore {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "thumbnails"), 0o755); err != nil {
		t.Fatalf("mkdir thumbnails: %v", err)
	}
	return &diskLocalStore{dir: dir}
}

func localRecord(filename, thumbnail string) media.MediaRecord {
	return media.MediaRecord{
		Filename:    filename,
		URL:         "/uploads/" + filename,
		Thumbnail:   thumbnail,
		StorageType: media.StorageLocal,
		MediaType:   media.MediaImage,
		MimeType:    "image/jpeg",
		UploadedAt:  time.Now().UTC(),
	}
}

func TestMigrateMovesLocalRecords(t *testing.T) {
	local := newDiskLocalStore(t)
	if err := os.WriteFile(local.Path("a.jpg"), []byte("photo-a"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := newFakeRepository(localRecord("a.jpg", ""))
	store := newFakeObjectStore()
	m := NewMigrator(repo, store, local, zerolog.Nop())

	result, err := m.Run(context.Background(), Options{BackupDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Candidates != 1 || result.Uploaded != 1 || result.Verified != 1 || result.Failed != 0 {
		t.Fatalf("Run() = %+v", result)
	}

	if repo.storageUpdates["a.jpg"] != media.StorageS3 {
		t.Error("record not rewritten to s3")
	}
	if _, ok := store.objects["a.jpg"]; !ok {
		t.Error("object not uploaded")
	}
	// The local file is never deleted.
	if !local.Exists("a.jpg") {
		t.Error("local file removed by migration")
	}
}

func TestMigrateIncludesThumbnail(t *testing.T) {
	local := newDiskLocalStore(t)
	if err := os.WriteFile(local.Path("v.mp4"), []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(local.Path("thumbnails/v.jpg"), []byte("thumb"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := localRecord("v.mp4", "/uploads/thumbnails/v.jpg")
	rec.MediaType = media.MediaVideo
	repo := newFakeRepository(rec)
	store := newFakeObjectStore()
	m := NewMigrator(repo, store, local, zerolog.Nop())

	result, err := m.Run(context.Background(), Options{BackupDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Verified != 1 {
		t.Fatalf("Run() = %+v", result)
	}
	if _, ok := store.objects["thumbnails/v.jpg"]; !ok {
		t.Error("thumbnail not uploaded")
	}
	if repo.records[0].Thumbnail != "https://objects.example.com/gallery/thumbnails/v.jpg" {
		t.Errorf("thumbnail URL = %q", repo.records[0].Thumbnail)
	}
}

func TestMigrateSkipsMissingLocalFiles(t *testing.T) {
	local := newDiskLocalStore(t)
	if err := os.WriteFile(local.Path("present.jpg"), []byte("ok"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := newFakeRepository(localRecord("present.jpg", ""), localRecord("ghost.jpg", ""))
	store := newFakeObjectStore()
	m := NewMigrator(repo, store, local, zerolog.Nop())

	result, err := m.Run(context.Background(), Options{BackupDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Skipped != 1 || result.Verified != 1 {
		t.Fatalf("Run() = %+v", result)
	}
	if _, updated := repo.storageUpdates["ghost.jpg"]; updated {
		t.Error("record with missing file was rewritten")
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %v, want the missing file reported", result.Errors)
	}
}

func TestMigrateNeverRewritesUnverifiedRecord(t *testing.T) {
	local := newDiskLocalStore(t)
	if err := os.WriteFile(local.Path("a.jpg"), []byte("photo"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := newFakeRepository(localRecord("a.jpg", ""))
	store := newFakeObjectStore()
	store.existsLies = true
	m := NewMigrator(repo, store, local, zerolog.Nop())

	result, err := m.Run(context.Background(), Options{BackupDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("Run() = %+v, want failure", result)
	}
	if repo.records[0].StorageType != media.StorageLocal {
		t.Error("record rewritten without verified upload")
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	local := newDiskLocalStore(t)
	if err := os.WriteFile(local.Path("a.jpg"), []byte("photo"), 0o644); err != nil {
		t.Fatal(err)
	}

	backupDir := t.TempDir()
	repo := newFakeRepository(localRecord("a.jpg", ""))
	store := newFakeObjectStore()
	m := NewMigrator(repo, store, local, zerolog.Nop())

	result, err := m.Run(context.Background(), Options{DryRun: true, BackupDir: backupDir})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Candidates != 1 || result.Uploaded != 0 {
		t.Fatalf("Run() = %+v", result)
	}

	if len(store.objects) != 0 {
		t.Error("dry run uploaded objects")
	}
	if len(repo.storageUpdates) != 0 {
		t.Error("dry run rewrote records")
	}
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Error("dry run wrote a backup file")
	}
}

func TestVerifyOnlyReportsMissingObjects(t *testing.T) {
	local := newDiskLocalStore(t)
	store := newFakeObjectStore()
	store.objects["ok.jpg"] = []byte("x")

	okRec := localRecord("ok.jpg", "")
	okRec.StorageType = media.StorageS3
	missingRec := localRecord("missing.jpg", "")
	missingRec.StorageType = media.StorageS3
	skipRec := localRecord("still-local.jpg", "")

	repo := newFakeRepository(okRec, missingRec, skipRec)
	m := NewMigrator(repo, store, local, zerolog.Nop())

	result, err := m.Run(context.Background(), Options{VerifyOnly: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Candidates != 2 {
		t.Errorf("Candidates = %d, want 2 (local records are not verified)", result.Candidates)
	}
	if result.Verified != 1 || result.Failed != 1 {
		t.Errorf("Run() = %+v, want 1 verified and 1 failed", result)
	}
	if len(store.objects) != 1 || len(repo.storageUpdates) != 0 {
		t.Error("verify-only mode mutated state")
	}
}

func TestBackupSnapshotsAllRecords(t *testing.T) {
	local := newDiskLocalStore(t)
	if err := os.WriteFile(local.Path("a.jpg"), []byte("photo"), 0o644); err != nil {
		t.Fatal(err)
	}

	remote := localRecord("r.jpg", "")
	remote.StorageType = media.StorageS3
	repo := newFakeRepository(localRecord("a.jpg", ""), remote)
	store := newFakeObjectStore()
	m := NewMigrator(repo, store, local, zerolog.Nop())

	backupDir := t.TempDir()
	result, err := m.Run(context.Background(), Options{BackupDir: backupDir})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.BackupPath == "" {
		t.Fatal("no backup path in result")
	}

	data, err := os.ReadFile(result.BackupPath)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	var snapshot []media.MediaRecord
	if err := json.Unmarshal(data, &snapshot); err != nil {
		t.Fatalf("decode backup: %v", err)
	}
	// The snapshot covers every record, not just migration candidates.
	if len(snapshot) != 2 {
		t.Errorf("backup has %d records, want 2", len(snapshot))
	}
}
