package gorm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/platewise/v1/internal/domain/upload"
	"github.com/platewise/v1/internal/ports/outbound"
)

// UploadRepository implements the upload repository interface using GORM
type UploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository creates a new upload repository
func NewUploadRepository(db *gorm.DB) outbound.UploadRepository {
	return &UploadRepository{db: db}
}

// Create persists a new upload with its stage scaffolding
func (r *UploadRepository) Create(ctx context.Context, u *upload.MenuUpload) error {
	model := UploadToModel(u)
	assignChildIDs(model)
	return session(ctx, r.db).Create(model).Error
}

// Update saves the aggregate's current state. Stage rows are upserted by
// their (upload, stage) key and provenance links by (upload, recipe), so
// repeated saves of the same aggregate stay idempotent.
func (r *UploadRepository) Update(ctx context.Context, u *upload.MenuUpload) error {
	db := session(ctx, r.db)
	model := UploadToModel(u)
	assignChildIDs(model)

	fields := map[string]any{
		"status":              model.Status,
		"error_message":       model.ErrorMessage,
		"stage0_completed_at": model.Stage0CompletedAt,
		"stage1_completed_at": model.Stage1CompletedAt,
		"stage2_completed_at": model.Stage2CompletedAt,
		"updated_at":          model.UpdatedAt,
	}
	result := db.Model(&MenuUploadModel{}).Where("id = ?", model.ID).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return upload.ErrUploadNotFound
	}

	for i := range model.Stages {
		stage := model.Stages[i]
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "upload_id"}, {Name: "stage"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "started_at", "completed_at", "error_message", "details",
			}),
		}).Create(&stage).Error
		if err != nil {
			return err
		}
	}

	for i := range model.Recipes {
		link := model.Recipes[i]
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "upload_id"}, {Name: "recipe_id"}},
			DoNothing: true,
		}).Create(&link).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// FindByID loads one upload aggregate
func (r *UploadRepository) FindByID(ctx context.Context, id uuid.UUID) (*upload.MenuUpload, error) {
	var model MenuUploadModel
	err := session(ctx, r.db).
		Preload("Stages").
		Preload("Recipes").
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, upload.ErrUploadNotFound
		}
		return nil, err
	}
	return UploadFromModel(&model), nil
}

// FindByRestaurant lists a restaurant's uploads, newest first
func (r *UploadRepository) FindByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*upload.MenuUpload, error) {
	var models []MenuUploadModel
	err := session(ctx, r.db).
		Preload("Stages").
		Preload("Recipes").
		Where("restaurant_id = ?", restaurantID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	uploads := make([]*upload.MenuUpload, 0, len(models))
	for i := range models {
		uploads = append(uploads, UploadFromModel(&models[i]))
	}
	return uploads, nil
}

func assignChildIDs(model *MenuUploadModel) {
	for i := range model.Stages {
		if model.Stages[i].ID == uuid.Nil {
			model.Stages[i].ID = uuid.New()
		}
	}
	for i := range model.Recipes {
		if model.Recipes[i].ID == uuid.Nil {
			model.Recipes[i].ID = uuid.New()
		}
	}
}
