// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/v1/internal/domain/menu"
	"github.com/platewise/v1/internal/domain/upload"
)

// Transactor runs a function inside one database transaction. Repository
// calls made with the context it passes join that transaction; any error
// rolls the whole unit back.
type Transactor interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}

// UploadRepository persists menu upload aggregates with their stages and
// recipe provenance links.
type UploadRepository interface {
	Create(ctx context.Context, u *upload.MenuUpload) error
	Update(ctx context.Context, u *upload.MenuUpload) error
	FindByID(ctx context.Context, id uuid.UUID) (*upload.MenuUpload, error)
	FindByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*upload.MenuUpload, error)
}

// RestaurantRepository persists restaurants.
type RestaurantRepository interface {
	Create(ctx context.Context, r *menu.Restaurant) error
	FindByID(ctx context.Context, id uuid.UUID) (*menu.Restaurant, error)
	FindAll(ctx context.Context) ([]*menu.Restaurant, error)
}

// MenuRepository persists menus and their sections. Section name matching is
// case-insensitive throughout.
type MenuRepository interface {
	Create(ctx context.Context, m *menu.Menu) error

	// EnsurePrimaryMenu returns the restaurant's first active menu, creating
	// a default one when none exists yet.
	EnsurePrimaryMenu(ctx context.Context, restaurantID uuid.UUID) (*menu.Menu, error)

	// Sections returns a menu's sections ordered by position (nil last),
	// then creation time.
	Sections(ctx context.Context, menuID uuid.UUID) ([]*menu.MenuSection, error)

	// GetOrCreateSection resolves a section by normalized name, creating it
	// at the next free position when missing.
	GetOrCreateSection(ctx context.Context, menuID uuid.UUID, name string) (*menu.MenuSection, error)

	// EnsureArchiveSection returns the menu's pinned archive section,
	// creating it when missing.
	EnsureArchiveSection(ctx context.Context, menuID uuid.UUID) (*menu.MenuSection, error)

	UpdateSection(ctx context.Context, s *menu.MenuSection) error

	// DeleteSection removes a section after moving its recipes to the
	// archive section.
	DeleteSection(ctx context.Context, sectionID uuid.UUID) error
}

// RecipeRepository persists recipes and their ingredient lines.
type RecipeRepository interface {
	Create(ctx context.Context, r *menu.Recipe) error
	Update(ctx context.Context, r *menu.Recipe) error
	FindByID(ctx context.Context, id uuid.UUID) (*menu.Recipe, error)
	FindByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*menu.Recipe, error)
	FindByStatus(ctx context.Context, restaurantID uuid.UUID, status menu.RecipeStatus) ([]*menu.Recipe, error)

	AddIngredient(ctx context.Context, line *menu.RecipeIngredient) error
	Ingredients(ctx context.Context, recipeID uuid.UUID) ([]*menu.RecipeIngredient, error)
}

// IngredientAllergenView is a joined read of one ingredient-allergen link:
// the allergen row's identity plus the link's certainty.
type IngredientAllergenView struct {
	Code      string
	Name      string
	Certainty string
}

// IngredientRepository persists ingredients, allergens and the evidence
// links between them.
type IngredientRepository interface {
	Create(ctx context.Context, ing *menu.Ingredient) error
	FindByID(ctx context.Context, id uuid.UUID) (*menu.Ingredient, error)
	FindByCode(ctx context.Context, code string) (*menu.Ingredient, error)

	// GetOrCreateAllergen upserts an allergen row by code.
	GetOrCreateAllergen(ctx context.Context, code, name string) (*menu.Allergen, error)

	// LinkAllergen upserts an evidence link; the (ingredient, allergen,
	// source) triple is unique.
	LinkAllergen(ctx context.Context, link *menu.IngredientAllergen) error

	// AllergenViews returns the joined links for one ingredient.
	AllergenViews(ctx context.Context, ingredientID uuid.UUID) ([]IngredientAllergenView, error)
}

// CacheRepository defines the caching operations the application needs.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
