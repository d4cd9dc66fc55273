package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/v1/internal/domain/allergen"
)

// MenuService defines the use cases for catalog management: restaurants,
// sections, recipes and allergen metadata.
type MenuService interface {
	// Commands
	CreateRestaurant(ctx context.Context, cmd CreateRestaurantCommand) (*RestaurantDTO, error)
	CreateRecipe(ctx context.Context, cmd CreateRecipeCommand) (*RecipeDTO, error)
	UpdateRecipe(ctx context.Context, cmd UpdateRecipeCommand) (*RecipeDTO, error)
	ApproveRecipe(ctx context.Context, recipeID uuid.UUID) error

	// DeleteRecipe retires a recipe by moving it to the archive section.
	DeleteRecipe(ctx context.Context, recipeID uuid.UUID) error

	UpdateSection(ctx context.Context, cmd UpdateSectionCommand) (*SectionDTO, error)

	// DeleteSection removes a section; its recipes move to the archive
	// section.
	DeleteSection(ctx context.Context, restaurantID, sectionID uuid.UUID) error

	// Queries
	GetRestaurant(ctx context.Context, restaurantID uuid.UUID) (*RestaurantDTO, error)
	ListRestaurants(ctx context.Context) ([]RestaurantDTO, error)
	ListSections(ctx context.Context, restaurantID uuid.UUID) ([]SectionDTO, error)
	ListRecipes(ctx context.Context, restaurantID uuid.UUID) ([]RecipeDTO, error)
	GetRecipeDetails(ctx context.Context, recipeID uuid.UUID) (*RecipeDetailsDTO, error)

	// ListAllergenMarkers exposes the canonical marker vocabulary.
	ListAllergenMarkers(ctx context.Context) []AllergenMarkerDTO
}

// CreateRestaurantCommand contains data for creating a restaurant.
type CreateRestaurantCommand struct {
	Name        string
	Description string
}

// CreateRecipeCommand contains data for manually creating a recipe.
type CreateRecipeCommand struct {
	RestaurantID uuid.UUID
	Name         string
	Description  string
	Price        string
	SectionName  string
}

// UpdateRecipeCommand contains partial recipe changes. Nil fields are left
// unchanged.
type UpdateRecipeCommand struct {
	RecipeID    uuid.UUID
	Name        *string
	Description *string
	Price       *string
	SectionName *string
}

// UpdateSectionCommand contains partial section changes. Nil fields are left
// unchanged.
type UpdateSectionCommand struct {
	RestaurantID uuid.UUID
	SectionID    uuid.UUID
	Name         *string
	Position     *int
}

// RestaurantDTO is the data transfer object for restaurants.
type RestaurantDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SectionDTO is the data transfer object for menu sections.
type SectionDTO struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Position *int      `json:"position"`
	Archive  bool      `json:"archive"`
}

// RecipeDTO is the summary data transfer object for recipes.
type RecipeDTO struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Price        string    `json:"price,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecipeIngredientDTO is one recipe line with its reconciled allergen
// badges.
type RecipeIngredientDTO struct {
	IngredientID uuid.UUID        `json:"ingredient_id"`
	Name         string           `json:"name"`
	Quantity     *float64         `json:"quantity,omitempty"`
	Unit         string           `json:"unit,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	Confirmed    bool             `json:"confirmed"`
	Allergens    []allergen.Badge `json:"allergens"`
}

// RecipeDetailsDTO is the full recipe view.
type RecipeDetailsDTO struct {
	Recipe      RecipeDTO             `json:"recipe"`
	Ingredients []RecipeIngredientDTO `json:"ingredients"`
}

// AllergenMarkerDTO is one canonical marker vocabulary entry.
type AllergenMarkerDTO struct {
	Slug       string `json:"slug"`
	Label      string `json:"label"`
	Family     string `json:"family,omitempty"`
	MarkerType string `json:"marker_type"`
}
