package media_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	domain "gallery-server/internal/domain/media"
	"gallery-server/internal/infrastructure/database"
	repository "gallery-server/internal/infrastructure/repository/media"
	"gallery-server/internal/utils/platformerrors"
)

func newTestRepository(t *testing.T) *repository.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(context.Background(), db, zerolog.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repository.NewRepository(db)
}

func sampleRecord(filename string, uploadedAt time.Time) *domain.MediaRecord {
	return &domain.MediaRecord{
		Filename:     filename,
		OriginalName: "original-" + filename,
		Name:         "Sample",
		URL:          "/uploads/" + filename,
		StorageType:  domain.StorageLocal,
		MediaType:    domain.MediaImage,
		MimeType:     "image/jpeg",
		Bytes:        1024,
		Width:        800,
		Height:       600,
		Tags:         []string{"test", "fixture"},
		UploadedAt:   uploadedAt,
	}
}

func TestCreateAndGetByFilename(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := sampleRecord("01hq0001aaaaaaaaaaaaaaaaaa.jpg", time.Now().UTC())
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByFilename(ctx, rec.Filename)
	if err != nil {
		t.Fatalf("GetByFilename() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetByFilename() = nil, want record")
	}
	if got.OriginalName != rec.OriginalName || got.MimeType != rec.MimeType {
		t.Errorf("GetByFilename() = %+v, want %+v", got, rec)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "test" {
		t.Errorf("Tags = %v, want round-tripped tags", got.Tags)
	}

	missing, err := repo.GetByFilename(ctx, "does-not-exist.jpg")
	if err != nil {
		t.Fatalf("GetByFilename(missing) error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetByFilename(missing) = %+v, want nil", missing)
	}
}

func TestCreateDuplicateFilename(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := sampleRecord("01hq0002aaaaaaaaaaaaaaaaaa.jpg", time.Now().UTC())
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dup := sampleRecord(rec.Filename, time.Now().UTC())
	err := repo.Create(ctx, dup)
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeDatabaseError) {
		t.Fatalf("Create(duplicate) error = %v, want DATABASE_ERROR", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	names := []string{"a.jpg", "b.jpg", "c.jpg"}
	for i, name := range names {
		rec := sampleRecord(name, base.Add(time.Duration(i)*time.Hour))
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	records, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("List() = %d records, want 3", len(records))
	}
	want := []string{"c.jpg", "b.jpg", "a.jpg"}
	for i, rec := range records {
		if rec.Filename != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, rec.Filename, want[i])
		}
	}
}

func TestListLocalIncludesEmptyStorageType(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	local := sampleRecord("local.jpg", now)
	if err := repo.Create(ctx, local); err != nil {
		t.Fatalf("Create(local) error = %v", err)
	}

	legacy := sampleRecord("legacy.jpg", now)
	legacy.StorageType = ""
	if err := repo.Create(ctx, legacy); err != nil {
		t.Fatalf("Create(legacy) error = %v", err)
	}

	remote := sampleRecord("remote.jpg", now)
	remote.StorageType = domain.StorageS3
	remote.URL = "https://objects.example.com/gallery/remote.jpg"
	if err := repo.Create(ctx, remote); err != nil {
		t.Fatalf("Create(remote) error = %v", err)
	}

	records, err := repo.ListLocal(ctx)
	if err != nil {
		t.Fatalf("ListLocal() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ListLocal() = %d records, want 2", len(records))
	}
	for _, rec := range records {
		if rec.Filename == "remote.jpg" {
			t.Error("ListLocal() returned an s3 record")
		}
	}
}

func TestUpdateDetails(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := sampleRecord("update-me.jpg", time.Now().UTC())
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	name := "Sunset over the bay"
	location := "Ericeira"
	got, err := repo.UpdateDetails(ctx, rec.Filename, domain.DetailUpdate{
		Name:     &name,
		Location: &location,
		Tags:     []string{"sunset"},
	})
	if err != nil {
		t.Fatalf("UpdateDetails() error = %v", err)
	}
	if got == nil {
		t.Fatal("UpdateDetails() = nil, want record")
	}
	if got.Name != name || got.Location != location {
		t.Errorf("UpdateDetails() = %+v, want updated fields", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "sunset" {
		t.Errorf("Tags = %v, want [sunset]", got.Tags)
	}
	// Storage fields survive untouched.
	if got.URL != rec.URL || got.StorageType != rec.StorageType {
		t.Errorf("storage fields changed: %+v", got)
	}

	missing, err := repo.UpdateDetails(ctx, "missing.jpg", domain.DetailUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateDetails(missing) error = %v", err)
	}
	if missing != nil {
		t.Errorf("UpdateDetails(missing) = %+v, want nil", missing)
	}
}

func TestUpdateStorage(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := sampleRecord("migrated.jpg", time.Now().UTC())
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	url := "https://objects.example.com/gallery/migrated.jpg"
	thumb := "https://objects.example.com/gallery/thumbnails/migrated.jpg"
	if err := repo.UpdateStorage(ctx, rec.Filename, url, thumb, domain.StorageS3); err != nil {
		t.Fatalf("UpdateStorage() error = %v", err)
	}

	got, err := repo.GetByFilename(ctx, rec.Filename)
	if err != nil {
		t.Fatalf("GetByFilename() error = %v", err)
	}
	if got.URL != url || got.Thumbnail != thumb || got.StorageType != domain.StorageS3 {
		t.Errorf("UpdateStorage() left %+v", got)
	}

	err = repo.UpdateStorage(ctx, "missing.jpg", url, "", domain.StorageS3)
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("UpdateStorage(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := sampleRecord("delete-me.jpg", time.Now().UTC())
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(ctx, rec.Filename); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, err := repo.GetByFilename(ctx, rec.Filename)
	if err != nil {
		t.Fatalf("GetByFilename() error = %v", err)
	}
	if got != nil {
		t.Errorf("record still present after delete: %+v", got)
	}

	// Deleting an absent row is not an error at this layer.
	if err := repo.Delete(ctx, rec.Filename); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}
