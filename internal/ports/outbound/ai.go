package outbound

import "context"

// ExtractionSource describes the menu document handed to the extraction
// service. Exactly one of URL or ContentBase64 is set depending on the
// source type.
type ExtractionSource struct {
	SourceType    string
	URL           string
	Filename      string
	ContentBase64 string
}

// DeductionRecipe is one recipe sent for ingredient deduction. RecipeID is
// echoed back by the service and preferred over name matching.
type DeductionRecipe struct {
	RecipeID    string
	Name        string
	Description string
	Price       string
}

// DeducedIngredient is one predicted ingredient on a deduced recipe.
// Allergens is left undecoded; its shape varies across model versions and
// the reconciler normalizes it.
type DeducedIngredient struct {
	Name      string
	Quantity  *float64
	Unit      string
	Notes     string
	Allergens any
}

// DeducedRecipe is the deduction output for one recipe.
type DeducedRecipe struct {
	RecipeID    string
	Name        string
	Ingredients []DeducedIngredient
}

// MenuExtractionService is the outbound port to the LLM menu services.
type MenuExtractionService interface {
	// Extract returns the raw menu items found in a source document. Items
	// keep their loosely-typed shape; the orchestrator interprets fields.
	Extract(ctx context.Context, source ExtractionSource) ([]map[string]any, error)

	// Deduce predicts ingredients and allergens for a batch of recipes.
	Deduce(ctx context.Context, recipes []DeductionRecipe) ([]DeducedRecipe, error)
}
