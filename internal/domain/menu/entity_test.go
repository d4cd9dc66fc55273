package menu

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecipe(t *testing.T) {
	t.Run("ValidRecipe", func(t *testing.T) {
		r, err := NewRecipe(uuid.New(), "  Margherita Pizza  ", RecipeNeedsReview)
		require.NoError(t, err)
		assert.Equal(t, "Margherita Pizza", r.Name)
		assert.Equal(t, RecipeNeedsReview, r.Status)
		assert.False(t, r.IsOnMenu)
	})

	t.Run("BlankName", func(t *testing.T) {
		_, err := NewRecipe(uuid.New(), "   ", RecipeDraft)
		assert.ErrorIs(t, err, ErrRecipeNameRequired)
	})

	t.Run("BogusStatus", func(t *testing.T) {
		_, err := NewRecipe(uuid.New(), "Soup", RecipeStatus("published"))
		assert.ErrorIs(t, err, ErrInvalidRecipeStatus)
	})

	t.Run("Approve", func(t *testing.T) {
		r, err := NewRecipe(uuid.New(), "Soup", RecipeNeedsReview)
		require.NoError(t, err)
		r.Approve()
		assert.Equal(t, RecipeApproved, r.Status)
	})
}

func TestSectionNames(t *testing.T) {
	t.Run("BlankBecomesDefault", func(t *testing.T) {
		assert.Equal(t, DefaultSectionName, NormalizeSectionName(""))
		assert.Equal(t, DefaultSectionName, NormalizeSectionName("   "))
	})

	t.Run("TrimsWhitespace", func(t *testing.T) {
		assert.Equal(t, "Starters", NormalizeSectionName(" Starters "))
	})

	t.Run("CaseInsensitiveMatch", func(t *testing.T) {
		assert.True(t, SectionNamesEqual("STARTERS", "starters"))
		assert.True(t, SectionNamesEqual(" Mains", "mains "))
		assert.False(t, SectionNamesEqual("Mains", "Desserts"))
	})
}

func TestArchiveSection(t *testing.T) {
	s := NewArchiveSection(uuid.New())
	assert.True(t, s.IsArchive())
	require.NotNil(t, s.Position)
	assert.Equal(t, ArchiveSectionPosition, *s.Position)

	regular := NewMenuSection(uuid.New(), "Mains", nil)
	assert.False(t, regular.IsArchive())
	assert.Nil(t, regular.Position)
}

func TestNewLLMIngredient(t *testing.T) {
	ing, err := NewLLMIngredient("smoked paprika")
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, ing.Source)
	assert.True(t, strings.HasPrefix(ing.Code, "llm:"), "code %q", ing.Code)

	// Code suffix is a parseable uuid
	_, err = uuid.Parse(strings.TrimPrefix(ing.Code, "llm:"))
	assert.NoError(t, err)

	// Two mints never collide
	other, err := NewLLMIngredient("smoked paprika")
	require.NoError(t, err)
	assert.NotEqual(t, ing.Code, other.Code)
}

func TestNewIngredientValidation(t *testing.T) {
	_, err := NewIngredient("", "salt", SourceManual)
	assert.ErrorIs(t, err, ErrIngredientCodeRequired)

	_, err = NewIngredient("en:salt", " ", SourceManual)
	assert.ErrorIs(t, err, ErrIngredientNameRequired)
}
