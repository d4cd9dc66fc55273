package menu

import (
	"strings"

	"github.com/google/uuid"
)

// RecipeStatus is the review lifecycle of a recipe.
type RecipeStatus string

const (
	// RecipeDraft is a manually created recipe not yet submitted.
	RecipeDraft RecipeStatus = "draft"
	// RecipeNeedsReview marks recipes produced by the upload pipeline.
	// They stay here until a human approves them.
	RecipeNeedsReview RecipeStatus = "needs_review"
	RecipeApproved    RecipeStatus = "approved"
)

// ParseRecipeStatus normalizes a raw status value.
func ParseRecipeStatus(value string) (RecipeStatus, error) {
	switch RecipeStatus(strings.ToLower(strings.TrimSpace(value))) {
	case RecipeDraft:
		return RecipeDraft, nil
	case RecipeNeedsReview:
		return RecipeNeedsReview, nil
	case RecipeApproved:
		return RecipeApproved, nil
	default:
		return "", ErrInvalidRecipeStatus
	}
}

// IngredientSource identifies where an ingredient record came from.
type IngredientSource string

const (
	SourceTaxonomy IngredientSource = "off"
	SourceLLM      IngredientSource = "llm"
	SourceManual   IngredientSource = "manual"
)

const (
	// DefaultSectionName receives recipes whose extracted section is blank.
	DefaultSectionName = "Uncategorized"

	// ArchiveSectionName is the pinned trailing section. Recipes from deleted
	// sections move here instead of being orphaned.
	ArchiveSectionName = "Archive"

	// ArchiveSectionPosition keeps the archive sorted after every real
	// section regardless of how many are created.
	ArchiveSectionPosition = 9999
)

// NormalizeSectionName trims the requested name and substitutes the default
// for blank input. Matching against existing sections is case-insensitive.
func NormalizeSectionName(name string) string {
	cleaned := strings.TrimSpace(name)
	if cleaned == "" {
		return DefaultSectionName
	}
	return cleaned
}

// SectionNamesEqual reports whether two section names refer to the same
// section.
func SectionNamesEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// NewLLMIngredientCode mints a synthetic taxonomy code for an ingredient the
// deduction stage invented. The prefix keeps it out of the real taxonomy
// namespace.
func NewLLMIngredientCode() string {
	return "llm:" + uuid.NewString()
}
