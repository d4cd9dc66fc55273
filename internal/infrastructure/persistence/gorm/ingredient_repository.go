package gorm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/platewise/v1/internal/domain/menu"
	"github.com/platewise/v1/internal/ports/outbound"
)

// IngredientRepository implements the ingredient repository interface using GORM
type IngredientRepository struct {
	db *gorm.DB
}

// NewIngredientRepository creates a new ingredient repository
func NewIngredientRepository(db *gorm.DB) outbound.IngredientRepository {
	return &IngredientRepository{db: db}
}

// Create persists a new ingredient
func (r *IngredientRepository) Create(ctx context.Context, ing *menu.Ingredient) error {
	return session(ctx, r.db).Create(IngredientToModel(ing)).Error
}

// FindByID loads one ingredient
func (r *IngredientRepository) FindByID(ctx context.Context, id uuid.UUID) (*menu.Ingredient, error) {
	var model IngredientModel
	err := session(ctx, r.db).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, menu.ErrIngredientNotFound
		}
		return nil, err
	}
	return IngredientFromModel(&model), nil
}

// FindByCode loads one ingredient by its unique code
func (r *IngredientRepository) FindByCode(ctx context.Context, code string) (*menu.Ingredient, error) {
	var model IngredientModel
	err := session(ctx, r.db).First(&model, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, menu.ErrIngredientNotFound
		}
		return nil, err
	}
	return IngredientFromModel(&model), nil
}

// GetOrCreateAllergen upserts an allergen row by code
func (r *IngredientRepository) GetOrCreateAllergen(ctx context.Context, code, name string) (*menu.Allergen, error) {
	db := session(ctx, r.db)

	var model AllergenModel
	err := db.First(&model, "code = ?", code).Error
	if err == nil {
		return AllergenFromModel(&model), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	model = AllergenModel{
		ID:   uuid.New(),
		Code: code,
		Name: name,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&model).Error
	if err != nil {
		return nil, err
	}
	// A concurrent insert may have won the conflict; read back the row.
	if err := db.First(&model, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return AllergenFromModel(&model), nil
}

// LinkAllergen upserts an evidence link keyed by (ingredient, allergen, source)
func (r *IngredientRepository) LinkAllergen(ctx context.Context, link *menu.IngredientAllergen) error {
	model := &IngredientAllergenModel{
		ID:           link.ID,
		IngredientID: link.IngredientID,
		AllergenID:   link.AllergenID,
		Certainty:    link.Certainty,
		Source:       string(link.Source),
	}
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	return session(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ingredient_id"}, {Name: "allergen_id"}, {Name: "source"}},
		DoUpdates: clause.AssignmentColumns([]string{"certainty"}),
	}).Create(model).Error
}

// AllergenViews returns the joined links for one ingredient
func (r *IngredientRepository) AllergenViews(ctx context.Context, ingredientID uuid.UUID) ([]outbound.IngredientAllergenView, error) {
	var views []outbound.IngredientAllergenView
	err := session(ctx, r.db).
		Model(&IngredientAllergenModel{}).
		Select("allergens.code AS code, allergens.name AS name, ingredient_allergens.certainty AS certainty").
		Joins("JOIN allergens ON allergens.id = ingredient_allergens.allergen_id").
		Where("ingredient_allergens.ingredient_id = ?", ingredientID).
		Order("allergens.code ASC").
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}
