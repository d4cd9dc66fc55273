// Package gorm provides GORM model definitions for the application
package gorm

import (
	"time"

	"github.com/google/uuid"
)

// RestaurantModel represents the GORM model for restaurants
type RestaurantModel struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name        string    `gorm:"type:varchar(255);not null;index"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time

	// Relationships
	Menus   []MenuModel   `gorm:"foreignKey:RestaurantID"`
	Recipes []RecipeModel `gorm:"foreignKey:RestaurantID"`
}

// TableName specifies the table name
func (RestaurantModel) TableName() string {
	return "restaurants"
}

// MenuModel represents the GORM model for menus
type MenuModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	RestaurantID uuid.UUID `gorm:"type:char(36);not null;index"`
	Name         string    `gorm:"type:varchar(255);not null"`
	Description  string    `gorm:"type:text"`
	Active       bool      `gorm:"default:true;index"`
	CreatedAt    time.Time

	Sections []MenuSectionModel `gorm:"foreignKey:MenuID"`
}

// TableName specifies the table name
func (MenuModel) TableName() string {
	return "menus"
}

// MenuSectionModel represents the GORM model for menu sections
type MenuSectionModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	MenuID    uuid.UUID `gorm:"type:char(36);not null;index"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Position  *int
	CreatedAt time.Time
}

// TableName specifies the table name
func (MenuSectionModel) TableName() string {
	return "menu_sections"
}

// RecipeModel represents the GORM model for recipes
type RecipeModel struct {
	ID              uuid.UUID  `gorm:"type:char(36);primaryKey"`
	RestaurantID    uuid.UUID  `gorm:"type:char(36);not null;index"`
	SectionID       *uuid.UUID `gorm:"type:char(36);index"`
	Name            string     `gorm:"type:varchar(500);not null;index"`
	Description     string     `gorm:"type:text"`
	Instructions    string     `gorm:"type:text"`
	ServingSize     string     `gorm:"type:varchar(100)"`
	Price           string     `gorm:"type:varchar(50)"`
	Image           string     `gorm:"type:text"`
	Options         string     `gorm:"type:text"`
	SpecialNotes    string     `gorm:"type:text"`
	ProminenceScore *float64
	Status          string `gorm:"type:varchar(50);not null;index"`
	IsOnMenu        bool   `gorm:"default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Ingredients []RecipeIngredientModel `gorm:"foreignKey:RecipeID"`
}

// TableName specifies the table name
func (RecipeModel) TableName() string {
	return "recipes"
}

// IngredientModel represents the GORM model for ingredients
type IngredientModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	Code         string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name         string    `gorm:"type:varchar(500);not null;index"`
	ParentCode   string    `gorm:"type:varchar(255)"`
	AllergenCode string    `gorm:"type:varchar(255)"`
	Source       string    `gorm:"type:varchar(50);not null;index"`
	LastUpdated  time.Time

	Allergens []IngredientAllergenModel `gorm:"foreignKey:IngredientID"`
}

// TableName specifies the table name
func (IngredientModel) TableName() string {
	return "ingredients"
}

// AllergenModel represents the GORM model for allergens
type AllergenModel struct {
	ID       uuid.UUID `gorm:"type:char(36);primaryKey"`
	Code     string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name     string    `gorm:"type:varchar(500);not null"`
	Category string    `gorm:"type:varchar(100)"`
}

// TableName specifies the table name
func (AllergenModel) TableName() string {
	return "allergens"
}

// IngredientAllergenModel links ingredients to allergens with certainty.
// The (ingredient, allergen, source) triple is unique.
type IngredientAllergenModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	IngredientID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_ingredient_allergen_source"`
	AllergenID   uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_ingredient_allergen_source"`
	Certainty    string    `gorm:"type:varchar(50)"`
	Source       string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_ingredient_allergen_source"`

	Allergen AllergenModel `gorm:"foreignKey:AllergenID"`
}

// TableName specifies the table name
func (IngredientAllergenModel) TableName() string {
	return "ingredient_allergens"
}

// RecipeIngredientModel represents one line on a recipe
type RecipeIngredientModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	RecipeID     uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_recipe_ingredient"`
	IngredientID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_recipe_ingredient"`
	Quantity     *float64
	Unit         string `gorm:"type:varchar(100)"`
	Notes        string `gorm:"type:text"`
	Allergens    string `gorm:"type:text"`
	Confirmed    bool   `gorm:"default:false"`
}

// TableName specifies the table name
func (RecipeIngredientModel) TableName() string {
	return "recipe_ingredients"
}

// MenuUploadModel represents the GORM model for menu uploads
type MenuUploadModel struct {
	ID                uuid.UUID  `gorm:"type:char(36);primaryKey"`
	RestaurantID      uuid.UUID  `gorm:"type:char(36);not null;index"`
	UserID            *uuid.UUID `gorm:"type:char(36)"`
	SourceType        string     `gorm:"type:varchar(20);not null"`
	SourceValue       string     `gorm:"type:text;not null"`
	Status            string     `gorm:"type:varchar(20);not null;index"`
	ErrorMessage      string     `gorm:"type:text"`
	Stage0CompletedAt *time.Time
	Stage1CompletedAt *time.Time
	Stage2CompletedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Stages  []MenuUploadStageModel  `gorm:"foreignKey:UploadID"`
	Recipes []MenuUploadRecipeModel `gorm:"foreignKey:UploadID"`
}

// TableName specifies the table name
func (MenuUploadModel) TableName() string {
	return "menu_uploads"
}

// MenuUploadStageModel is one pipeline stage row, unique per (upload, stage)
type MenuUploadStageModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	UploadID     uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_upload_stage"`
	Stage        string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_upload_stage"`
	Status       string    `gorm:"type:varchar(20);not null"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string `gorm:"type:text"`
	Details      string `gorm:"type:text"`
}

// TableName specifies the table name
func (MenuUploadStageModel) TableName() string {
	return "menu_upload_stages"
}

// MenuUploadRecipeModel is a provenance link, unique per (upload, recipe)
type MenuUploadRecipeModel struct {
	ID       uuid.UUID `gorm:"type:char(36);primaryKey"`
	UploadID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_upload_recipe"`
	RecipeID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_upload_recipe"`
	Stage    string    `gorm:"type:varchar(20);not null"`
}

// TableName specifies the table name
func (MenuUploadRecipeModel) TableName() string {
	return "menu_upload_recipes"
}

// AllModels lists every model for schema migration
func AllModels() []any {
	return []any{
		&RestaurantModel{},
		&MenuModel{},
		&MenuSectionModel{},
		&RecipeModel{},
		&IngredientModel{},
		&AllergenModel{},
		&IngredientAllergenModel{},
		&RecipeIngredientModel{},
		&MenuUploadModel{},
		&MenuUploadStageModel{},
		&MenuUploadRecipeModel{},
	}
}
