// Package menu holds the catalog side of the domain: restaurants, their
// menus and sections, recipes and the ingredient/allergen records recipes
// reference. Unlike the upload aggregate these are persistence-shaped
// records mutated through the repositories, so they carry exported fields
// with constructor validation rather than a full state machine.
package menu

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Restaurant owns menus and recipes.
type Restaurant struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
}

// NewRestaurant creates a restaurant with a required name.
func NewRestaurant(name, description string) (*Restaurant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRestaurantNameRequired
	}
	return &Restaurant{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Menu is a named collection of sections. A restaurant's first active menu
// is its primary menu; the upload pipeline always targets the primary menu.
type Menu struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Description  string
	Active       bool
	CreatedAt    time.Time
}

// NewMenu creates an active menu for a restaurant.
func NewMenu(restaurantID uuid.UUID, name, description string) (*Menu, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMenuNameRequired
	}
	return &Menu{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Name:         name,
		Description:  description,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// MenuSection groups recipes on a menu. Position is nil until an explicit
// ordering is saved; nil positions sort last, then by creation time.
type MenuSection struct {
	ID        uuid.UUID
	MenuID    uuid.UUID
	Name      string
	Position  *int
	CreatedAt time.Time
}

// NewMenuSection creates a section with an already-normalized name.
func NewMenuSection(menuID uuid.UUID, name string, position *int) *MenuSection {
	return &MenuSection{
		ID:        uuid.New(),
		MenuID:    menuID,
		Name:      NormalizeSectionName(name),
		Position:  position,
		CreatedAt: time.Now().UTC(),
	}
}

// NewArchiveSection creates the pinned trailing section for a menu.
func NewArchiveSection(menuID uuid.UUID) *MenuSection {
	pos := ArchiveSectionPosition
	return &MenuSection{
		ID:        uuid.New(),
		MenuID:    menuID,
		Name:      ArchiveSectionName,
		Position:  &pos,
		CreatedAt: time.Now().UTC(),
	}
}

// IsArchive reports whether this is the pinned archive section.
func (s *MenuSection) IsArchive() bool {
	return SectionNamesEqual(s.Name, ArchiveSectionName)
}

// Recipe is a menu item. Options and SpecialNotes are free-form payloads
// carried through from extraction without interpretation.
type Recipe struct {
	ID              uuid.UUID
	RestaurantID    uuid.UUID
	SectionID       *uuid.UUID
	Name            string
	Description     string
	Instructions    string
	ServingSize     string
	Price           string
	Image           string
	Options         string
	SpecialNotes    string
	ProminenceScore *float64
	Status          RecipeStatus
	IsOnMenu        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewRecipe creates a recipe in the given review status.
func NewRecipe(restaurantID uuid.UUID, name string, status RecipeStatus) (*Recipe, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRecipeNameRequired
	}
	if _, err := ParseRecipeStatus(string(status)); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Recipe{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Name:         name,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Approve moves a recipe out of review.
func (r *Recipe) Approve() {
	r.Status = RecipeApproved
	r.UpdatedAt = time.Now().UTC()
}

// Ingredient is a taxonomy entry. LLM-minted ingredients get a synthetic
// code under the llm: prefix so they never collide with real taxonomy codes.
type Ingredient struct {
	ID           uuid.UUID
	Code         string
	Name         string
	ParentCode   string
	AllergenCode string
	Source       IngredientSource
	LastUpdated  time.Time
}

// NewIngredient creates a taxonomy ingredient.
func NewIngredient(code, name string, source IngredientSource) (*Ingredient, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrIngredientCodeRequired
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrIngredientNameRequired
	}
	return &Ingredient{
		ID:          uuid.New(),
		Code:        code,
		Name:        name,
		Source:      source,
		LastUpdated: time.Now().UTC(),
	}, nil
}

// NewLLMIngredient creates an ingredient invented by the deduction stage.
func NewLLMIngredient(name string) (*Ingredient, error) {
	return NewIngredient(NewLLMIngredientCode(), name, SourceLLM)
}

// Allergen is a stored allergen row referenced by ingredient links. Code is
// a canonical registry slug for rows the pipeline writes.
type Allergen struct {
	ID       uuid.UUID
	Code     string
	Name     string
	Category string
}

// IngredientAllergen links an ingredient to an allergen with a certainty
// level. The (ingredient, allergen, source) triple is unique so evidence
// from different sources can coexist on one ingredient.
type IngredientAllergen struct {
	ID           uuid.UUID
	IngredientID uuid.UUID
	AllergenID   uuid.UUID
	Certainty    string
	Source       IngredientSource
}

// NewIngredientAllergen creates an evidence link.
func NewIngredientAllergen(ingredientID, allergenID uuid.UUID, certainty string, source IngredientSource) *IngredientAllergen {
	return &IngredientAllergen{
		ID:           uuid.New(),
		IngredientID: ingredientID,
		AllergenID:   allergenID,
		Certainty:    certainty,
		Source:       source,
	}
}

// RecipeIngredient is one line on a recipe. Allergens holds the serialized
// per-line allergen override payload; empty means no override and the
// ingredient's stored links apply.
type RecipeIngredient struct {
	ID           uuid.UUID
	RecipeID     uuid.UUID
	IngredientID uuid.UUID
	Quantity     *float64
	Unit         string
	Notes        string
	Allergens    string
	Confirmed    bool
}

// NewRecipeIngredient creates a recipe line.
func NewRecipeIngredient(recipeID, ingredientID uuid.UUID) *RecipeIngredient {
	return &RecipeIngredient{
		ID:           uuid.New(),
		RecipeID:     recipeID,
		IngredientID: ingredientID,
	}
}
