package menu

import "errors"

// Domain errors for menu management operations

var (
	ErrRestaurantNotFound       = errors.New("restaurant not found")
	ErrRestaurantNameRequired   = errors.New("restaurant name is required")
	ErrMenuNotFound             = errors.New("menu not found")
	ErrMenuNameRequired         = errors.New("menu name is required")
	ErrSectionNotFound          = errors.New("menu section not found")
	ErrArchiveSectionImmutable  = errors.New("archive section cannot be renamed or deleted")
	ErrRecipeNotFound           = errors.New("recipe not found")
	ErrRecipeNameRequired       = errors.New("recipe name is required")
	ErrInvalidRecipeStatus      = errors.New("invalid recipe status")
	ErrIngredientNotFound       = errors.New("ingredient not found")
	ErrIngredientCodeRequired   = errors.New("ingredient code is required")
	ErrIngredientNameRequired   = errors.New("ingredient name is required")
	ErrAllergenNotFound         = errors.New("allergen not found")
	ErrDuplicateAllergenLink    = errors.New("ingredient allergen link already exists")
	ErrDuplicateRecipeLine      = errors.New("ingredient already on recipe")
	ErrRecipeIngredientNotFound = errors.New("recipe ingredient line not found")
)
