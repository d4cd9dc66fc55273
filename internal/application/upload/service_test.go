package upload

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appallergen "github.com/platewise/v1/internal/application/allergen"
	"github.com/platewise/v1/internal/domain/allergen"
	"github.com/platewise/v1/internal/domain/menu"
	"github.com/platewise/v1/internal/domain/upload"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
)

type passthroughTx struct{}

func (passthroughTx) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memUploads struct {
	mu    sync.Mutex
	items map[uuid.UUID]upload.ReconstituteState
}

func newMemUploads() *memUploads {
	return &memUploads{items: make(map[uuid.UUID]upload.ReconstituteState)}
}

// snapshotUpload copies the aggregate into its persisted form. Storing
// snapshots instead of pointers keeps later in-memory mutations out of the
// store, the same way a real database behaves across a rollback.
func snapshotUpload(u *upload.MenuUpload) upload.ReconstituteState {
	state := upload.ReconstituteState{
		ID:                u.ID(),
		RestaurantID:      u.RestaurantID(),
		UserID:            u.UserID(),
		SourceType:        u.SourceType(),
		SourceValue:       u.SourceValue(),
		Status:            u.Status(),
		ErrorMessage:      u.ErrorMessage(),
		Stage0CompletedAt: u.StageCompletedAt(upload.StageIngest),
		Stage1CompletedAt: u.StageCompletedAt(upload.StageExtraction),
		Stage2CompletedAt: u.StageCompletedAt(upload.StageDeduction),
		Recipes:           append([]upload.RecipeLink(nil), u.Recipes()...),
		CreatedAt:         u.CreatedAt(),
		UpdatedAt:         u.UpdatedAt(),
	}
	for _, s := range u.Stages() {
		state.Stages = append(state.Stages, upload.ReconstituteStage{
			Name:         s.Name(),
			Status:       s.Status(),
			StartedAt:    s.StartedAt(),
			CompletedAt:  s.CompletedAt(),
			ErrorMessage: s.ErrorMessage(),
			Details:      s.Details(),
		})
	}
	return state
}

func (r *memUploads) Create(_ context.Context, u *upload.MenuUpload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[u.ID()] = snapshotUpload(u)
	return nil
}

func (r *memUploads) Update(_ context.Context, u *upload.MenuUpload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[u.ID()]; !ok {
		return upload.ErrUploadNotFound
	}
	r.items[u.ID()] = snapshotUpload(u)
	return nil
}

func (r *memUploads) FindByID(_ context.Context, id uuid.UUID) (*upload.MenuUpload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.items[id]
	if !ok {
		return nil, upload.ErrUploadNotFound
	}
	return upload.Reconstitute(state), nil
}

func (r *memUploads) FindByRestaurant(_ context.Context, restaurantID uuid.UUID) ([]*upload.MenuUpload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*upload.MenuUpload
	for _, state := range r.items {
		if state.RestaurantID == restaurantID {
			out = append(out, upload.Reconstitute(state))
		}
	}
	return out, nil
}

type memRestaurants struct {
	items map[uuid.UUID]*menu.Restaurant
}

func (r *memRestaurants) Create(_ context.Context, rest *menu.Restaurant) error {
	r.items[rest.ID] = rest
	return nil
}

func (r *memRestaurants) FindByID(_ context.Context, id uuid.UUID) (*menu.Restaurant, error) {
	rest, ok := r.items[id]
	if !ok {
		return nil, menu.ErrRestaurantNotFound
	}
	return rest, nil
}

func (r *memRestaurants) FindAll(_ context.Context) ([]*menu.Restaurant, error) {
	var out []*menu.Restaurant
	for _, rest := range r.items {
		out = append(out, rest)
	}
	return out, nil
}

type memMenus struct {
	menus    map[uuid.UUID]*menu.Menu
	sections map[uuid.UUID][]*menu.MenuSection
}

func newMemMenus() *memMenus {
	return &memMenus{
		menus:    make(map[uuid.UUID]*menu.Menu),
		sections: make(map[uuid.UUID][]*menu.MenuSection),
	}
}

func (r *memMenus) Create(_ context.Context, m *menu.Menu) error {
	r.menus[m.ID] = m
	return nil
}

func (r *memMenus) EnsurePrimaryMenu(_ context.Context, restaurantID uuid.UUID) (*menu.Menu, error) {
	for _, m := range r.menus {
		if m.RestaurantID == restaurantID && m.Active {
			return m, nil
		}
	}
	m, err := menu.NewMenu(restaurantID, "Main Menu", "")
	if err != nil {
		return nil, err
	}
	r.menus[m.ID] = m
	return m, nil
}

func (r *memMenus) Sections(_ context.Context, menuID uuid.UUID) ([]*menu.MenuSection, error) {
	return r.sections[menuID], nil
}

func (r *memMenus) GetOrCreateSection(_ context.Context, menuID uuid.UUID, name string) (*menu.MenuSection, error) {
	normalized := menu.NormalizeSectionName(name)
	for _, s := range r.sections[menuID] {
		if menu.SectionNamesEqual(s.Name, normalized) {
			return s, nil
		}
	}
	s := menu.NewMenuSection(menuID, normalized, nil)
	r.sections[menuID] = append(r.sections[menuID], s)
	return s, nil
}

func (r *memMenus) EnsureArchiveSection(ctx context.Context, menuID uuid.UUID) (*menu.MenuSection, error) {
	return r.GetOrCreateSection(ctx, menuID, menu.ArchiveSectionName)
}

func (r *memMenus) UpdateSection(_ context.Context, _ *menu.MenuSection) error { return nil }

func (r *memMenus) DeleteSection(_ context.Context, _ uuid.UUID) error { return nil }

type memRecipes struct {
	recipes map[uuid.UUID]*menu.Recipe
	lines   map[uuid.UUID][]*menu.RecipeIngredient
}

func newMemRecipes() *memRecipes {
	return &memRecipes{
		recipes: make(map[uuid.UUID]*menu.Recipe),
		lines:   make(map[uuid.UUID][]*menu.RecipeIngredient),
	}
}

func (r *memRecipes) Create(_ context.Context, recipe *menu.Recipe) error {
	r.recipes[recipe.ID] = recipe
	return nil
}

func (r *memRecipes) Update(_ context.Context, recipe *menu.Recipe) error {
	r.recipes[recipe.ID] = recipe
	return nil
}

func (r *memRecipes) FindByID(_ context.Context, id uuid.UUID) (*menu.Recipe, error) {
	recipe, ok := r.recipes[id]
	if !ok {
		return nil, menu.ErrRecipeNotFound
	}
	return recipe, nil
}

func (r *memRecipes) FindByRestaurant(_ context.Context, restaurantID uuid.UUID) ([]*menu.Recipe, error) {
	var out []*menu.Recipe
	for _, recipe := range r.recipes {
		if recipe.RestaurantID == restaurantID {
			out = append(out, recipe)
		}
	}
	return out, nil
}

func (r *memRecipes) FindByStatus(_ context.Context, restaurantID uuid.UUID, status menu.RecipeStatus) ([]*menu.Recipe, error) {
	var out []*menu.Recipe
	for _, recipe := range r.recipes {
		if recipe.RestaurantID == restaurantID && recipe.Status == status {
			out = append(out, recipe)
		}
	}
	return out, nil
}

func (r *memRecipes) AddIngredient(_ context.Context, line *menu.RecipeIngredient) error {
	r.lines[line.RecipeID] = append(r.lines[line.RecipeID], line)
	return nil
}

func (r *memRecipes) Ingredients(_ context.Context, recipeID uuid.UUID) ([]*menu.RecipeIngredient, error) {
	return r.lines[recipeID], nil
}

type memIngredients struct {
	ingredients map[uuid.UUID]*menu.Ingredient
	allergens   map[string]*menu.Allergen
	links       []*menu.IngredientAllergen
}

func newMemIngredients() *memIngredients {
	return &memIngredients{
		ingredients: make(map[uuid.UUID]*menu.Ingredient),
		allergens:   make(map[string]*menu.Allergen),
	}
}

func (r *memIngredients) Create(_ context.Context, ing *menu.Ingredient) error {
	r.ingredients[ing.ID] = ing
	return nil
}

func (r *memIngredients) FindByID(_ context.Context, id uuid.UUID) (*menu.Ingredient, error) {
	ing, ok := r.ingredients[id]
	if !ok {
		return nil, menu.ErrIngredientNotFound
	}
	return ing, nil
}

func (r *memIngredients) FindByCode(_ context.Context, code string) (*menu.Ingredient, error) {
	for _, ing := range r.ingredients {
		if ing.Code == code {
			return ing, nil
		}
	}
	return nil, menu.ErrIngredientNotFound
}

func (r *memIngredients) GetOrCreateAllergen(_ context.Context, code, name string) (*menu.Allergen, error) {
	if existing, ok := r.allergens[code]; ok {
		return existing, nil
	}
	a := &menu.Allergen{ID: uuid.New(), Code: code, Name: name}
	r.allergens[code] = a
	return a, nil
}

func (r *memIngredients) LinkAllergen(_ context.Context, link *menu.IngredientAllergen) error {
	r.links = append(r.links, link)
	return nil
}

func (r *memIngredients) AllergenViews(_ context.Context, ingredientID uuid.UUID) ([]outbound.IngredientAllergenView, error) {
	var out []outbound.IngredientAllergenView
	for _, link := range r.links {
		if link.IngredientID != ingredientID {
			continue
		}
		for _, a := range r.allergens {
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

// commitFailUploads rejects the save carrying a completed deduction stage,
// as a transaction commit failure would.
type commitFailUploads struct {
	*memUploads
	tripped bool
}

func (r *commitFailUploads) Update(ctx context.Context, u *upload.MenuUpload) error {
	if !r.tripped {
		if stage, err := u.Stage(upload.StageDeduction); err == nil && stage.Status() == upload.StageCompleted {
			r.tripped = true
			return errors.New("connection reset by peer")
		}
	}
	return r.memUploads.Update(ctx, u)
}

type fakeExtraction struct {
	extractFn func(ctx context.Context, source outbound.ExtractionSource) ([]map[string]any, error)
	deduceFn  func(ctx context.Context, recipes []outbound.DeductionRecipe) ([]outbound.DeducedRecipe, error)

	deduceCalls [][]outbound.DeductionRecipe
}

func (f *fakeExtraction) Extract(ctx context.Context, source outbound.ExtractionSource) ([]map[string]any, error) {
	return f.extractFn(ctx, source)
}

func (f *fakeExtraction) Deduce(ctx context.Context, recipes []outbound.DeductionRecipe) ([]outbound.DeducedRecipe, error) {
	f.deduceCalls = append(f.deduceCalls, recipes)
	return f.deduceFn(ctx, recipes)
}

type fixture struct {
	service     *UploadService
	uploads     *memUploads
	restaurants *memRestaurants
	menus       *memMenus
	recipes     *memRecipes
	ingredients *memIngredients
	extraction  *fakeExtraction

	restaurantID uuid.UUID
}

func newFixture(t *testing.T, extraction *fakeExtraction) *fixture {
	t.Helper()

	restaurant, err := menu.NewRestaurant("Trattoria Nonna", "")
	require.NoError(t, err)

	f := &fixture{
		uploads:      newMemUploads(),
		restaurants:  &memRestaurants{items: map[uuid.UUID]*menu.Restaurant{restaurant.ID: restaurant}},
		menus:        newMemMenus(),
		recipes:      newMemRecipes(),
		ingredients:  newMemIngredients(),
		extraction:   extraction,
		restaurantID: restaurant.ID,
	}
	f.service = NewUploadService(
		f.uploads, f.restaurants, f.menus, f.recipes, f.ingredients,
		f.extraction, passthroughTx{},
		appallergen.NewReconciler(allergen.NewRegistry()),
		zap.NewNop(),
	)
	return f
}

func (f *fixture) createURLUpload(t *testing.T) *inbound.UploadDTO {
	t.Helper()
	dto, err := f.service.CreateUpload(context.Background(), inbound.CreateUploadCommand{
		RestaurantID: f.restaurantID,
		SourceType:   "url",
		SourceValue:  "https://example.com/menu",
	})
	require.NoError(t, err)
	return dto
}

func TestCreateUpload(t *testing.T) {
	f := newFixture(t, &fakeExtraction{})

	t.Run("ScaffoldsStages", func(t *testing.T) {
		dto := f.createURLUpload(t)
		assert.Equal(t, "processing", dto.Status)
		require.Len(t, dto.Stages, 3)
		assert.Equal(t, "completed", dto.Stages[0].Status)
		assert.Equal(t, "pending", dto.Stages[1].Status)
		assert.Equal(t, "pending", dto.Stages[2].Status)
	})

	t.Run("UnknownRestaurant", func(t *testing.T) {
		_, err := f.service.CreateUpload(context.Background(), inbound.CreateUploadCommand{
			RestaurantID: uuid.New(),
			SourceType:   "url",
			SourceValue:  "https://example.com/menu",
		})
		assert.Error(t, err)
	})

	t.Run("MissingURL", func(t *testing.T) {
		_, err := f.service.CreateUpload(context.Background(), inbound.CreateUploadCommand{
			RestaurantID: f.restaurantID,
			SourceType:   "url",
		})
		assert.Error(t, err)
	})

	t.Run("BadSourceType", func(t *testing.T) {
		_, err := f.service.CreateUpload(context.Background(), inbound.CreateUploadCommand{
			RestaurantID: f.restaurantID,
			SourceType:   "spreadsheet",
			SourceValue:  "x",
		})
		assert.Error(t, err)
	})
}

func TestProcessUpload(t *testing.T) {
	t.Run("HappyPath", func(t *testing.T) {
		extraction := &fakeExtraction{
			extractFn: func(_ context.Context, _ outbound.ExtractionSource) ([]map[string]any, error) {
				return []map[string]any{
					{"name": "Carbonara", "category": "Mains", "price": "14.00"},
					{"title": "Tiramisu", "section": "Desserts"},
					{"description": "nameless item, skipped"},
				}, nil
			},
		}
		extraction.deduceFn = func(_ context.Context, recipes []outbound.DeductionRecipe) ([]outbound.DeducedRecipe, error) {
			results := make([]outbound.DeducedRecipe, 0, len(recipes))
			for _, r := range recipes {
				results = append(results, outbound.DeducedRecipe{
					RecipeID: r.RecipeID,
					Name:     r.Name,
					Ingredients: []outbound.DeducedIngredient{
						{Name: "egg", Allergens: []any{"egg"}},
					},
				})
			}
			return results, nil
		}

		f := newFixture(t, extraction)
		created := f.createURLUpload(t)

		dto, err := f.service.ProcessUpload(context.Background(), created.ID)
		require.NoError(t, err)

		assert.Equal(t, "completed", dto.Status)
		assert.Empty(t, dto.ErrorMessage)
		assert.Len(t, dto.RecipeIDs, 2)
		assert.Equal(t, "completed", dto.Stages[1].Status)
		assert.Equal(t, "completed", dto.Stages[2].Status)
		assert.Contains(t, dto.Stages[1].Details, `"recipes_created":2`)
		assert.Contains(t, dto.Stages[2].Details, `"ingredients_added":2`)

		// Every created recipe is a needs_review draft in a real section
		recipes, err := f.recipes.FindByRestaurant(context.Background(), f.restaurantID)
		require.NoError(t, err)
		require.Len(t, recipes, 2)
		for _, r := range recipes {
			assert.Equal(t, menu.RecipeNeedsReview, r.Status)
			require.NotNil(t, r.SectionID)
		}

		// Allergen links were written with the llm source
		require.Len(t, f.ingredients.links, 2)
		for _, link := range f.ingredients.links {
			assert.Equal(t, menu.SourceLLM, link.Source)
		}
	})

	t.Run("ExtractionFailureIsFatal", func(t *testing.T) {
		extraction := &fakeExtraction{
			extractFn: func(_ context.Context, _ outbound.ExtractionSource) ([]map[string]any, error) {
				return nil, errors.New("document service exploded")
			},
		}
		f := newFixture(t, extraction)
		created := f.createURLUpload(t)

		_, err := f.service.ProcessUpload(context.Background(), created.ID)
		require.Error(t, err)

		stored, err := f.uploads.FindByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, upload.StatusFailed, stored.Status())
		assert.True(t, strings.HasPrefix(stored.ErrorMessage(), "Stage 1 failed:"), stored.ErrorMessage())

		// Deduction stage was never touched
		deduction, _ := stored.Stage(upload.StageDeduction)
		assert.Equal(t, upload.StagePending, deduction.Status())
	})

	t.Run("NoRecipesSkipsDeduction", func(t *testing.T) {
		extraction := &fakeExtraction{
			extractFn: func(_ context.Context, _ outbound.ExtractionSource) ([]map[string]any, error) {
				return []map[string]any{}, nil
			},
		}
		f := newFixture(t, extraction)
		created := f.createURLUpload(t)

		dto, err := f.service.ProcessUpload(context.Background(), created.ID)
		require.NoError(t, err)

		assert.Equal(t, "completed", dto.Status)
		assert.Equal(t, "skipped", dto.Stages[2].Status)
		assert.Contains(t, dto.Stages[2].Details, "No recipes created in Stage 1")
		assert.Empty(t, f.extraction.deduceCalls)
	})

	t.Run("DeductionFailureIsFatal", func(t *testing.T) {
		extraction := &fakeExtraction{
			extractFn: func(_ context.Context, _ outbound.ExtractionSource) ([]map[string]any, error) {
				return []map[string]any{{"name": "Soup"}}, nil
			},
			deduceFn: func(_ context.Context, _ []outbound.DeductionRecipe) ([]outbound.DeducedRecipe, error) {
				return nil, errors.New("deduction timeout")
			},
		}
		f := newFixture(t, extraction)
		created := f.createURLUpload(t)

		_, err := f.service.ProcessUpload(context.Background(), created.ID)
		require.Error(t, err)

		stored, _ := f.uploads.FindByID(context.Background(), created.ID)
		assert.Equal(t, upload.StatusFailed, stored.Status())
		assert.True(t, strings.HasPrefix(stored.ErrorMessage(), "Stage 2 failed:"), stored.ErrorMessage())

		// Stage 1 results stay recorded
		stage1, _ := stored.Stage(upload.StageExtraction)
		assert.Equal(t, upload.StageCompleted, stage1.Status())
	})

	t.Run("PersistenceFailureAfterCompletedStageRecordsFailure", func(t *testing.T) {
		extraction := &fakeExtraction{
			extractFn: func(_ context.Context, _ outbound.ExtractionSource) ([]map[string]any, error) {
				return []map[string]any{{"name": "Soup"}}, nil
			},
			deduceFn: func(_ context.Context, _ []outbound.DeductionRecipe) ([]outbound.DeducedRecipe, error) {
				return nil, nil
			},
		}
		f := newFixture(t, extraction)
		// The save that would commit the completed deduction stage fails,
		// standing in for a transaction that rolls back at commit time.
		uploads := &commitFailUploads{memUploads: f.uploads}
		f.service = NewUploadService(
			uploads, f.restaurants, f.menus, f.recipes, f.ingredients,
			f.extraction, passthroughTx{},
			appallergen.NewReconciler(allergen.NewRegistry()),
			zap.NewNop(),
		)
		created := f.createURLUpload(t)

		_, err := f.service.ProcessUpload(context.Background(), created.ID)
		require.Error(t, err)

		stored, err := uploads.FindByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, upload.StatusFailed, stored.Status())
		assert.True(t, strings.HasPrefix(stored.ErrorMessage(), "Stage 2 failed:"), stored.ErrorMessage())

		// The failure is recorded against persisted state: the stage is
		// failed, not left completed or running from the doomed save.
		deduction, _ := stored.Stage(upload.StageDeduction)
		assert.Equal(t, upload.StageFailed, deduction.Status())
	})

	t.Run("LargeMenuSplitsIntoTestBatchAndRemainder", func(t *testing.T) {
		items := make([]map[string]any, 8)
		for i := range items {
			items[i] = map[string]any{"name": "Dish " + string(rune('A'+i))}
		}
		extraction := &fakeExtraction{
			extractFn: func(_ context.Context, _ outbound.ExtractionSource) ([]map[string]any, error) {
				return items, nil
			},
			deduceFn: func(_ context.Context, _ []outbound.DeductionRecipe) ([]outbound.DeducedRecipe, error) {
				return nil, nil
			},
		}
		f := newFixture(t, extraction)
		created := f.createURLUpload(t)

		_, err := f.service.ProcessUpload(context.Background(), created.ID)
		require.NoError(t, err)

		require.Len(t, f.extraction.deduceCalls, 2)
		assert.Len(t, f.extraction.deduceCalls[0], 5)
		assert.Len(t, f.extraction.deduceCalls[1], 3)
	})

	t.Run("RecipeIDMatchWinsOverName", func(t *testing.T) {
		var carbonaraID, tiramisuID string
		extraction := &fakeExtraction{
			extractFn: func(_ context.Context, _ outbound.ExtractionSource) ([]map[string]any, error) {
				return []map[string]any{
					{"name": "Carbonara"},
					{"name": "Tiramisu"},
				}, nil
			},
		}
		extraction.deduceFn = func(_ context.Context, recipes []outbound.DeductionRecipe) ([]outbound.DeducedRecipe, error) {
			for _, r := range recipes {
				switch r.Name {
				case "Carbonara":
					carbonaraID = r.RecipeID
				case "Tiramisu":
					tiramisuID = r.RecipeID
				}
			}
			// Conflicting signals: id points at Carbonara, name at Tiramisu
			return []outbound.DeducedRecipe{{
				RecipeID: carbonaraID,
				Name:     "tiramisu",
				Ingredients: []outbound.DeducedIngredient{
					{Name: "guanciale"},
				},
			}}, nil
		}
		f := newFixture(t, extraction)
		created := f.createURLUpload(t)

		_, err := f.service.ProcessUpload(context.Background(), created.ID)
		require.NoError(t, err)

		carbonara := uuid.MustParse(carbonaraID)
		tiramisu := uuid.MustParse(tiramisuID)

		carbonaraLines, _ := f.recipes.Ingredients(context.Background(), carbonara)
		tiramisuLines, _ := f.recipes.Ingredients(context.Background(), tiramisu)
		assert.Len(t, carbonaraLines, 1)
		assert.Empty(t, tiramisuLines)
	})

	t.Run("BlankSectionFallsBackToDefault", func(t *testing.T) {
		extraction := &fakeExtraction{
			extractFn: func(_ context.Context, _ outbound.ExtractionSource) ([]map[string]any, error) {
				return []map[string]any{{"name": "Mystery Dish"}}, nil
			},
			deduceFn: func(_ context.Context, _ []outbound.DeductionRecipe) ([]outbound.DeducedRecipe, error) {
				return nil, nil
			},
		}
		f := newFixture(t, extraction)
		created := f.createURLUpload(t)

		_, err := f.service.ProcessUpload(context.Background(), created.ID)
		require.NoError(t, err)

		primary, err := f.menus.EnsurePrimaryMenu(context.Background(), f.restaurantID)
		require.NoError(t, err)
		sections, _ := f.menus.Sections(context.Background(), primary.ID)
		require.Len(t, sections, 1)
		assert.Equal(t, menu.DefaultSectionName, sections[0].Name)
	})
}
