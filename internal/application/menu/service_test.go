package menu

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appallergen "github.com/platewise/v1/internal/application/allergen"
	"github.com/platewise/v1/internal/domain/allergen"
	"github.com/platewise/v1/internal/domain/menu"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
)

type memStore struct {
	restaurants map[uuid.UUID]*menu.Restaurant
	menus       map[uuid.UUID]*menu.Menu
	sections    map[uuid.UUID][]*menu.MenuSection
	recipes     map[uuid.UUID]*menu.Recipe
	lines       map[uuid.UUID][]*menu.RecipeIngredient
	ingredients map[uuid.UUID]*menu.Ingredient
	allergens   map[string]*menu.Allergen
	links       []*menu.IngredientAllergen
}

func newMemStore() *memStore {
	return &memStore{
		restaurants: make(map[uuid.UUID]*menu.Restaurant),
		menus:       make(map[uuid.UUID]*menu.Menu),
		sections:    make(map[uuid.UUID][]*menu.MenuSection),
		recipes:     make(map[uuid.UUID]*menu.Recipe),
		lines:       make(map[uuid.UUID][]*menu.RecipeIngredient),
		ingredients: make(map[uuid.UUID]*menu.Ingredient),
		allergens:   make(map[string]*menu.Allergen),
	}
}

func (m *memStore) Create(_ context.Context, r *menu.Restaurant) error {
	m.restaurants[r.ID] = r
	return nil
}

func (m *memStore) FindByID(_ context.Context, id uuid.UUID) (*menu.Restaurant, error) {
	r, ok := m.restaurants[id]
	if !ok {
		return nil, menu.ErrRestaurantNotFound
	}
	return r, nil
}

func (m *memStore) FindAll(_ context.Context) ([]*menu.Restaurant, error) {
	var out []*menu.Restaurant
	for _, r := range m.restaurants {
		out = append(out, r)
	}
	return out, nil
}

type memMenuRepo struct{ store *memStore }

func (m memMenuRepo) Create(_ context.Context, mn *menu.Menu) error {
	m.store.menus[mn.ID] = mn
	return nil
}

func (m memMenuRepo) EnsurePrimaryMenu(_ context.Context, restaurantID uuid.UUID) (*menu.Menu, error) {
	for _, mn := range m.store.menus {
		if mn.RestaurantID == restaurantID && mn.Active {
			return mn, nil
		}
	}
	mn, err := menu.NewMenu(restaurantID, "Main Menu", "")
	if err != nil {
		return nil, err
	}
	m.store.menus[mn.ID] = mn
	return mn, nil
}

func (m memMenuRepo) Sections(_ context.Context, menuID uuid.UUID) ([]*menu.MenuSection, error) {
	return m.store.sections[menuID], nil
}

func (m memMenuRepo) GetOrCreateSection(_ context.Context, menuID uuid.UUID, name string) (*menu.MenuSection, error) {
	normalized := menu.NormalizeSectionName(name)
	for _, s := range m.store.sections[menuID] {
		if menu.SectionNamesEqual(s.Name, normalized) {
			return s, nil
		}
	}
	s := menu.NewMenuSection(menuID, normalized, nil)
	m.store.sections[menuID] = append(m.store.sections[menuID], s)
	return s, nil
}

func (m memMenuRepo) EnsureArchiveSection(_ context.Context, menuID uuid.UUID) (*menu.MenuSection, error) {
	for _, s := range m.store.sections[menuID] {
		if s.IsArchive() {
			return s, nil
		}
	}
	s := menu.NewArchiveSection(menuID)
	m.store.sections[menuID] = append(m.store.sections[menuID], s)
	return s, nil
}

func (m memMenuRepo) UpdateSection(_ context.Context, s *menu.MenuSection) error {
	for menuID, sections := range m.store.sections {
		for i, existing := range sections {
			if existing.ID != s.ID {
				continue
			}
			if existing.IsArchive() {
				return menu.ErrArchiveSectionImmutable
			}
			m.store.sections[menuID][i] = s
			return nil
		}
	}
	return menu.ErrSectionNotFound
}

func (m memMenuRepo) DeleteSection(ctx context.Context, sectionID uuid.UUID) error {
	for menuID, sections := range m.store.sections {
		for _, existing := range sections {
			if existing.ID != sectionID {
				continue
			}
			if existing.IsArchive() {
				return menu.ErrArchiveSectionImmutable
			}
			archive, err := m.EnsureArchiveSection(ctx, menuID)
			if err != nil {
				return err
			}
			for _, r := range m.store.recipes {
				if r.SectionID != nil && *r.SectionID == sectionID {
					id := archive.ID
					r.SectionID = &id
				}
			}
			kept := m.store.sections[menuID][:0]
			for _, s := range m.store.sections[menuID] {
				if s.ID != sectionID {
					kept = append(kept, s)
				}
			}
			m.store.sections[menuID] = kept
			return nil
		}
	}
	return menu.ErrSectionNotFound
}

type memRecipeRepo struct{ store *memStore }

func (m memRecipeRepo) Create(_ context.Context, r *menu.Recipe) error {
	m.store.recipes[r.ID] = r
	return nil
}

func (m memRecipeRepo) Update(_ context.Context, r *menu.Recipe) error {
	m.store.recipes[r.ID] = r
	return nil
}

func (m memRecipeRepo) FindByID(_ context.Context, id uuid.UUID) (*menu.Recipe, error) {
	r, ok := m.store.recipes[id]
	if !ok {
		return nil, menu.ErrRecipeNotFound
	}
	return r, nil
}

func (m memRecipeRepo) FindByRestaurant(_ context.Context, restaurantID uuid.UUID) ([]*menu.Recipe, error) {
	var out []*menu.Recipe
	for _, r := range m.store.recipes {
		if r.RestaurantID == restaurantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m memRecipeRepo) FindByStatus(_ context.Context, restaurantID uuid.UUID, status menu.RecipeStatus) ([]*menu.Recipe, error) {
	var out []*menu.Recipe
	for _, r := range m.store.recipes {
		if r.RestaurantID == restaurantID && r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m memRecipeRepo) AddIngredient(_ context.Context, line *menu.RecipeIngredient) error {
	m.store.lines[line.RecipeID] = append(m.store.lines[line.RecipeID], line)
	return nil
}

func (m memRecipeRepo) Ingredients(_ context.Context, recipeID uuid.UUID) ([]*menu.RecipeIngredient, error) {
	return m.store.lines[recipeID], nil
}

type memIngredientRepo struct{ store *memStore }

func (m memIngredientRepo) Create(_ context.Context, ing *menu.Ingredient) error {
	m.store.ingredients[ing.ID] = ing
	return nil
}

func (m memIngredientRepo) FindByID(_ context.Context, id uuid.UUID) (*menu.Ingredient, error) {
	ing, ok := m.store.ingredients[id]
	if !ok {
		return nil, menu.ErrIngredientNotFound
	}
	return ing, nil
}

func (m memIngredientRepo) FindByCode(_ context.Context, code string) (*menu.Ingredient, error) {
	for _, ing := range m.store.ingredients {
		if ing.Code == code {
			return ing, nil
		}
	}
	return nil, menu.ErrIngredientNotFound
}

func (m memIngredientRepo) GetOrCreateAllergen(_ context.Context, code, name string) (*menu.Allergen, error) {
	if existing, ok := m.store.allergens[code]; ok {
		return existing, nil
	}
	a := &menu.Allergen{ID: uuid.New(), Code: code, Name: name}
	m.store.allergens[code] = a
	return a, nil
}

func (m memIngredientRepo) LinkAllergen(_ context.Context, link *menu.IngredientAllergen) error {
	m.store.links = append(m.store.links, link)
	return nil
}

func (m memIngredientRepo) AllergenViews(_ context.Context, ingredientID uuid.UUID) ([]outbound.IngredientAllergenView, error) {
	var out []outbound.IngredientAllergenView
	for _, link := range m.store.links {
		if link.IngredientID != ingredientID {
			continue
		}
		for _, a := range m.store.allergens {
			if a.ID == link.AllergenID {
				out = append(out, outbound.IngredientAllergenView{
					Code:      a.Code,
					Name:      a.Name,
					Certainty: link.Certainty,
				})
			}
		}
	}
	return out, nil
}

func newTestService(store *memStore) *MenuService {
	registry := allergen.NewRegistry()
	return NewMenuService(
		store,
		memMenuRepo{store},
		memRecipeRepo{store},
		memIngredientRepo{store},
		registry,
		appallergen.NewReconciler(registry),
		zap.NewNop(),
	)
}

func TestCreateRestaurant(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	dto, err := service.CreateRestaurant(context.Background(), inbound.CreateRestaurantCommand{
		Name: "Trattoria Nonna",
	})
	require.NoError(t, err)
	assert.Equal(t, "Trattoria Nonna", dto.Name)

	// A primary menu exists right away
	require.Len(t, store.menus, 1)

	_, err = service.CreateRestaurant(context.Background(), inbound.CreateRestaurantCommand{Name: " "})
	assert.Error(t, err)
}

func TestListSectionsPinsArchive(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	dto, err := service.CreateRestaurant(context.Background(), inbound.CreateRestaurantCommand{Name: "Bistro"})
	require.NoError(t, err)

	sections, err := service.ListSections(context.Background(), dto.ID)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.True(t, sections[0].Archive)
	require.NotNil(t, sections[0].Position)
	assert.Equal(t, menu.ArchiveSectionPosition, *sections[0].Position)
}

func TestGetRecipeDetails(t *testing.T) {
	setup := func(t *testing.T) (*MenuService, *memStore, *menu.Recipe, *menu.Ingredient) {
		t.Helper()
		store := newMemStore()
		service := newTestService(store)

		restaurant, err := menu.NewRestaurant("Bistro", "")
		require.NoError(t, err)
		store.restaurants[restaurant.ID] = restaurant

		recipe, err := menu.NewRecipe(restaurant.ID, "Carbonara", menu.RecipeNeedsReview)
		require.NoError(t, err)
		store.recipes[recipe.ID] = recipe

		ingredient, err := menu.NewLLMIngredient("pecorino")
		require.NoError(t, err)
		store.ingredients[ingredient.ID] = ingredient

		// Stored evidence: milk, confirmed
		a := &menu.Allergen{ID: uuid.New(), Code: "milk", Name: "Milk"}
		store.allergens[a.Code] = a
		store.links = append(store.links, menu.NewIngredientAllergen(ingredient.ID, a.ID, "confirmed", menu.SourceLLM))

		return service, store, recipe, ingredient
	}

	t.Run("StoredLinksWithoutOverride", func(t *testing.T) {
		service, store, recipe, ingredient := setup(t)
		store.lines[recipe.ID] = []*menu.RecipeIngredient{menu.NewRecipeIngredient(recipe.ID, ingredient.ID)}

		details, err := service.GetRecipeDetails(context.Background(), recipe.ID)
		require.NoError(t, err)
		require.Len(t, details.Ingredients, 1)
		require.Len(t, details.Ingredients[0].Allergens, 1)
		assert.Equal(t, "milk", details.Ingredients[0].Allergens[0].Slug)
		assert.Equal(t, allergen.UIConfirmed, details.Ingredients[0].Allergens[0].Certainty)
	})

	t.Run("OverrideReplacesStored", func(t *testing.T) {
		service, store, recipe, ingredient := setup(t)
		line := menu.NewRecipeIngredient(recipe.ID, ingredient.ID)
		line.Allergens = `[{"allergen":"sesame","certainty":"likely"}]`
		store.lines[recipe.ID] = []*menu.RecipeIngredient{line}

		details, err := service.GetRecipeDetails(context.Background(), recipe.ID)
		require.NoError(t, err)
		require.Len(t, details.Ingredients, 1)
		require.Len(t, details.Ingredients[0].Allergens, 1)
		assert.Equal(t, "sesame", details.Ingredients[0].Allergens[0].Slug)
	})

	t.Run("EmptyOverrideClears", func(t *testing.T) {
		service, store, recipe, ingredient := setup(t)
		line := menu.NewRecipeIngredient(recipe.ID, ingredient.ID)
		line.Allergens = `[]`
		store.lines[recipe.ID] = []*menu.RecipeIngredient{line}

		details, err := service.GetRecipeDetails(context.Background(), recipe.ID)
		require.NoError(t, err)
		require.Len(t, details.Ingredients, 1)
		assert.Empty(t, details.Ingredients[0].Allergens)
	})

	t.Run("UnknownRecipe", func(t *testing.T) {
		service, _, _, _ := setup(t)
		_, err := service.GetRecipeDetails(context.Background(), uuid.New())
		assert.Error(t, err)
	})
}

func TestUpdateSection(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	dto, err := service.CreateRestaurant(context.Background(), inbound.CreateRestaurantCommand{Name: "Bistro"})
	require.NoError(t, err)

	_, err = service.CreateRecipe(context.Background(), inbound.CreateRecipeCommand{
		RestaurantID: dto.ID,
		Name:         "Soup",
		SectionName:  "Starters",
	})
	require.NoError(t, err)

	sections, err := service.ListSections(context.Background(), dto.ID)
	require.NoError(t, err)

	var starters, archive inbound.SectionDTO
	for _, s := range sections {
		if s.Archive {
			archive = s
		} else {
			starters = s
		}
	}

	t.Run("Rename", func(t *testing.T) {
		name := "Antipasti"
		updated, err := service.UpdateSection(context.Background(), inbound.UpdateSectionCommand{
			RestaurantID: dto.ID,
			SectionID:    starters.ID,
			Name:         &name,
		})
		require.NoError(t, err)
		assert.Equal(t, "Antipasti", updated.Name)
	})

	t.Run("Reposition", func(t *testing.T) {
		position := 3
		updated, err := service.UpdateSection(context.Background(), inbound.UpdateSectionCommand{
			RestaurantID: dto.ID,
			SectionID:    starters.ID,
			Position:     &position,
		})
		require.NoError(t, err)
		require.NotNil(t, updated.Position)
		assert.Equal(t, 3, *updated.Position)
	})

	t.Run("ArchiveRejected", func(t *testing.T) {
		name := "Old Stuff"
		_, err := service.UpdateSection(context.Background(), inbound.UpdateSectionCommand{
			RestaurantID: dto.ID,
			SectionID:    archive.ID,
			Name:         &name,
		})
		assert.Error(t, err)
	})

	t.Run("UnknownSection", func(t *testing.T) {
		name := "Ghost"
		_, err := service.UpdateSection(context.Background(), inbound.UpdateSectionCommand{
			RestaurantID: dto.ID,
			SectionID:    uuid.New(),
			Name:         &name,
		})
		assert.Error(t, err)
	})
}

func TestDeleteSection(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	dto, err := service.CreateRestaurant(context.Background(), inbound.CreateRestaurantCommand{Name: "Bistro"})
	require.NoError(t, err)

	recipe, err := service.CreateRecipe(context.Background(), inbound.CreateRecipeCommand{
		RestaurantID: dto.ID,
		Name:         "Soup",
		SectionName:  "Starters",
	})
	require.NoError(t, err)

	sections, err := service.ListSections(context.Background(), dto.ID)
	require.NoError(t, err)
	var starters inbound.SectionDTO
	for _, s := range sections {
		if !s.Archive {
			starters = s
		}
	}

	require.NoError(t, service.DeleteSection(context.Background(), dto.ID, starters.ID))

	// The recipe moved to the archive section instead of being orphaned
	stored := store.recipes[recipe.ID]
	require.NotNil(t, stored.SectionID)
	archived, err := service.ListSections(context.Background(), dto.ID)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.True(t, archived[0].Archive)
	assert.Equal(t, archived[0].ID, *stored.SectionID)

	t.Run("ArchiveRejected", func(t *testing.T) {
		err := service.DeleteSection(context.Background(), dto.ID, archived[0].ID)
		assert.Error(t, err)
	})
}

func TestUpdateRecipe(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	dto, err := service.CreateRestaurant(context.Background(), inbound.CreateRestaurantCommand{Name: "Bistro"})
	require.NoError(t, err)

	recipe, err := service.CreateRecipe(context.Background(), inbound.CreateRecipeCommand{
		RestaurantID: dto.ID,
		Name:         "Soup",
		Price:        "6.00",
		SectionName:  "Starters",
	})
	require.NoError(t, err)

	t.Run("PartialUpdateKeepsOtherFields", func(t *testing.T) {
		name := "Minestrone"
		updated, err := service.UpdateRecipe(context.Background(), inbound.UpdateRecipeCommand{
			RecipeID: recipe.ID,
			Name:     &name,
		})
		require.NoError(t, err)
		assert.Equal(t, "Minestrone", updated.Name)
		assert.Equal(t, "6.00", updated.Price)
	})

	t.Run("MoveToNewSection", func(t *testing.T) {
		section := "Mains"
		_, err := service.UpdateRecipe(context.Background(), inbound.UpdateRecipeCommand{
			RecipeID:    recipe.ID,
			SectionName: &section,
		})
		require.NoError(t, err)

		sections, err := service.ListSections(context.Background(), dto.ID)
		require.NoError(t, err)
		names := make(map[string]uuid.UUID, len(sections))
		for _, s := range sections {
			names[s.Name] = s.ID
		}
		require.Contains(t, names, "Mains")
		assert.Equal(t, names["Mains"], *store.recipes[recipe.ID].SectionID)
	})

	t.Run("BlankNameRejected", func(t *testing.T) {
		name := "  "
		_, err := service.UpdateRecipe(context.Background(), inbound.UpdateRecipeCommand{
			RecipeID: recipe.ID,
			Name:     &name,
		})
		assert.Error(t, err)
	})

	t.Run("UnknownRecipe", func(t *testing.T) {
		name := "Ghost"
		_, err := service.UpdateRecipe(context.Background(), inbound.UpdateRecipeCommand{
			RecipeID: uuid.New(),
			Name:     &name,
		})
		assert.Error(t, err)
	})
}

func TestDeleteRecipeMovesToArchive(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	dto, err := service.CreateRestaurant(context.Background(), inbound.CreateRestaurantCommand{Name: "Bistro"})
	require.NoError(t, err)

	recipe, err := service.CreateRecipe(context.Background(), inbound.CreateRecipeCommand{
		RestaurantID: dto.ID,
		Name:         "Soup",
		SectionName:  "Starters",
	})
	require.NoError(t, err)

	require.NoError(t, service.DeleteRecipe(context.Background(), recipe.ID))

	stored := store.recipes[recipe.ID]
	require.NotNil(t, stored.SectionID)
	assert.False(t, stored.IsOnMenu)

	sections, err := service.ListSections(context.Background(), dto.ID)
	require.NoError(t, err)
	for _, s := range sections {
		if s.ID == *stored.SectionID {
			assert.True(t, s.Archive)
		}
	}

	require.Error(t, service.DeleteRecipe(context.Background(), uuid.New()))
}

func TestApproveRecipe(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	restaurant, err := menu.NewRestaurant("Bistro", "")
	require.NoError(t, err)
	store.restaurants[restaurant.ID] = restaurant

	recipe, err := menu.NewRecipe(restaurant.ID, "Soup", menu.RecipeNeedsReview)
	require.NoError(t, err)
	store.recipes[recipe.ID] = recipe

	require.NoError(t, service.ApproveRecipe(context.Background(), recipe.ID))
	assert.Equal(t, menu.RecipeApproved, store.recipes[recipe.ID].Status)
}

func TestListAllergenMarkers(t *testing.T) {
	service := newTestService(newMemStore())

	markers := service.ListAllergenMarkers(context.Background())
	require.Len(t, markers, 16)
	assert.Equal(t, "cereals_gluten", markers[0].Slug)

	dietary := 0
	for _, marker := range markers {
		if marker.MarkerType == "dietary" {
			dietary++
		}
	}
	assert.Equal(t, 2, dietary)
}
