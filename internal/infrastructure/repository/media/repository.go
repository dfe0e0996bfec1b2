package media

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "gallery-server/internal/domain/media"
	"gallery-server/internal/infrastructure/database/entities"
	"gallery-server/internal/utils/platformerrors"
)

// Repository handles media record persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, rec *domain.MediaRecord) error {
	entity := mapDomain(rec)
	err := r.db.WithContext(ctx).Create(&entity).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create media record",
			err,
			"media-repo-create-001",
		)
	}
	rec.CreatedAt = entity.CreatedAt
	rec.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *Repository) GetByFilename(ctx context.Context, filename string) (*domain.MediaRecord, error) {
	var entity entities.MediaRecord
	err := r.db.WithContext(ctx).Where("filename = ?", filename).First(&entity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to get media by filename",
			err,
			"media-repo-get-001",
		)
	}
	rec := mapEntity(entity)
	return &rec, nil
}

// List returns every record, newest upload first.
func (r *Repository) List(ctx context.Context) ([]domain.MediaRecord, error) {
	var rows []entities.MediaRecord
	err := r.db.WithContext(ctx).
		Order("uploaded_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list media records",
			err,
			"media-repo-list-001",
		)
	}
	records := make([]domain.MediaRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, mapEntity(row))
	}
	return records, nil
}

// ListLocal returns records whose artifacts live on the local disk. Rows
// written before storage types were recorded have an empty storage_type and
// count as local.
func (r *Repository) ListLocal(ctx context.Context) ([]domain.MediaRecord, error) {
	var rows []entities.MediaRecord
	err := r.db.WithContext(ctx).
		Where("storage_type = ? OR storage_type = ''", string(domain.StorageLocal)).
		Order("uploaded_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list local media records",
			err,
			"media-repo-listlocal-001",
		)
	}
	records := make([]domain.MediaRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, mapEntity(row))
	}
	return records, nil
}

// UpdateDetails mutates descriptive fields only and returns the updated
// record, or (nil, nil) when no record matches.
func (r *Repository) UpdateDetails(ctx context.Context, filename string, update domain.DetailUpdate) (*domain.MediaRecord, error) {
	changes := map[string]any{}
	if update.Name != nil {
		changes["name"] = *update.Name
	}
	if update.Location != nil {
		changes["location"] = *update.Location
	}
	if update.Photographer != nil {
		changes["photographer"] = *update.Photographer
	}
	if update.Date != nil {
		changes["taken_at"] = *update.Date
	}
	if update.Tags != nil {
		tags, err := json.Marshal(update.Tags)
		if err != nil {
			return nil, platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeValidation,
				"failed to encode tags",
				err,
				"media-repo-update-001",
			)
		}
		changes["tags"] = datatypes.JSON(tags)
	}

	if len(changes) > 0 {
		res := r.db.WithContext(ctx).
			Model(&entities.MediaRecord{}).
			Where("filename = ?", filename).
			Updates(changes)
		if res.Error != nil {
			return nil, platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeDatabaseError,
				"failed to update media record",
				res.Error,
				"media-repo-update-002",
			)
		}
		if res.RowsAffected == 0 {
			return nil, nil
		}
	}

	return r.GetByFilename(ctx, filename)
}

// UpdateStorage rewrites the storage coordinates of a record after its
// artifacts have been verified at the new location.
func (r *Repository) UpdateStorage(ctx context.Context, filename, url, thumbnail string, storageType domain.StorageType) error {
	res := r.db.WithContext(ctx).
		Model(&entities.MediaRecord{}).
		Where("filename = ?", filename).
		Updates(map[string]any{
			"url":          url,
			"thumbnail":    thumbnail,
			"storage_type": string(storageType),
		})
	if res.Error != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update storage location",
			res.Error,
			"media-repo-storage-001",
		)
	}
	if res.RowsAffected == 0 {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"media record not found",
			nil,
			"media-repo-storage-002",
		)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, filename string) error {
	err := r.db.WithContext(ctx).
		Where("filename = ?", filename).
		Delete(&entities.MediaRecord{}).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete media record",
			err,
			"media-repo-delete-001",
		)
	}
	return nil
}

func mapDomain(rec *domain.MediaRecord) entities.MediaRecord {
	var tags datatypes.JSON
	if len(rec.Tags) > 0 {
		if data, err := json.Marshal(rec.Tags); err == nil {
			tags = datatypes.JSON(data)
		}
	}
	return entities.MediaRecord{
		Filename:     rec.Filename,
		OriginalName: rec.OriginalName,
		Name:         rec.Name,
		URL:          rec.URL,
		Thumbnail:    rec.Thumbnail,
		StorageType:  string(rec.StorageType),
		MediaType:    string(rec.MediaType),
		MimeType:     rec.MimeType,
		Bytes:        rec.Bytes,
		Width:        rec.Width,
		Height:       rec.Height,
		TakenAt:      rec.TakenAt,
		Location:     rec.Location,
		Tags:         tags,
		Photographer: rec.Photographer,
		UploadedAt:   rec.UploadedAt,
	}
}

func mapEntity(entity entities.MediaRecord) domain.MediaRecord {
	var tags []string
	if len(entity.Tags) > 0 {
		_ = json.Unmarshal(entity.Tags, &tags)
	}
	return domain.MediaRecord{
		Filename:     entity.Filename,
		OriginalName: entity.OriginalName,
		Name:         entity.Name,
		URL:          entity.URL,
		Thumbnail:    entity.Thumbnail,
		StorageType:  domain.StorageType(entity.StorageType),
		MediaType:    domain.MediaType(entity.MediaType),
		MimeType:     entity.MimeType,
		Bytes:        entity.Bytes,
		Width:        entity.Width,
		Height:       entity.Height,
		TakenAt:      entity.TakenAt,
		Location:     entity.Location,
		Tags:         tags,
		Photographer: entity.Photographer,
		UploadedAt:   entity.UploadedAt,
		CreatedAt:    entity.CreatedAt,
		UpdatedAt:    entity.UpdatedAt,
	}
}
