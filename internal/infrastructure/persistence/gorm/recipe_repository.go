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

// RecipeRepository implements the recipe repository interface using GORM
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *gorm.DB) outbound.RecipeRepository {
	return &RecipeRepository{db: db}
}

// Create persists a new recipe
func (r *RecipeRepository) Create(ctx context.Context, recipe *menu.Recipe) error {
	return session(ctx, r.db).Create(RecipeToModel(recipe)).Error
}

// Update saves recipe changes
func (r *RecipeRepository) Update(ctx context.Context, recipe *menu.Recipe) error {
	result := session(ctx, r.db).Save(RecipeToModel(recipe))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return menu.ErrRecipeNotFound
	}
	return nil
}

// FindByID loads one recipe
func (r *RecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*menu.Recipe, error) {
	var model RecipeModel
	err := session(ctx, r.db).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, menu.ErrRecipeNotFound
		}
		return nil, err
	}
	return RecipeFromModel(&model), nil
}

// FindByRestaurant lists a restaurant's recipes by creation time
func (r *RecipeRepository) FindByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*menu.Recipe, error) {
	var models []RecipeModel
	err := session(ctx, r.db).
		Where("restaurant_id = ?", restaurantID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return recipesFromModels(models), nil
}

// FindByStatus lists a restaurant's recipes in one review status
func (r *RecipeRepository) FindByStatus(ctx context.Context, restaurantID uuid.UUID, status menu.RecipeStatus) ([]*menu.Recipe, error) {
	var models []RecipeModel
	err := session(ctx, r.db).
		Where("restaurant_id = ? AND status = ?", restaurantID, string(status)).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return recipesFromModels(models), nil
}

// AddIngredient upserts a recipe line keyed by (recipe, ingredient)
func (r *RecipeRepository) AddIngredient(ctx context.Context, line *menu.RecipeIngredient) error {
	return session(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "recipe_id"}, {Name: "ingredient_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"quantity", "unit", "notes", "allergens", "confirmed",
		}),
	}).Create(RecipeIngredientToModel(line)).Error
}

// Ingredients lists a recipe's lines
func (r *RecipeRepository) Ingredients(ctx context.Context, recipeID uuid.UUID) ([]*menu.RecipeIngredient, error) {
	var models []RecipeIngredientModel
	err := session(ctx, r.db).
		Where("recipe_id = ?", recipeID).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	lines := make([]*menu.RecipeIngredient, 0, len(models))
	for i := range models {
		lines = append(lines, RecipeIngredientFromModel(&models[i]))
	}
	return lines, nil
}

func recipesFromModels(models []RecipeModel) []*menu.Recipe {
	recipes := make([]*menu.Recipe, 0, len(models))
	for i := range models {
		recipes = append(recipes, RecipeFromModel(&models[i]))
	}
	return recipes
}
