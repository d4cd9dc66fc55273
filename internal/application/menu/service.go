// Package menu implements the catalog use cases: restaurants, sections,
// recipes and the allergen views served to clients.
package menu

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appallergen "github.com/platewise/v1/internal/application/allergen"
	"github.com/platewise/v1/internal/domain/allergen"
	"github.com/platewise/v1/internal/domain/menu"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
	apperrors "github.com/platewise/v1/pkg/errors"
)

// MenuService implements inbound.MenuService.
type MenuService struct {
	restaurants outbound.RestaurantRepository
	menus       outbound.MenuRepository
	recipes     outbound.RecipeRepository
	ingredients outbound.IngredientRepository
	registry    *allergen.Registry
	reconciler  *appallergen.Reconciler
	logger      *zap.Logger
}

// NewMenuService creates the catalog service.
func NewMenuService(
	restaurants outbound.RestaurantRepository,
	menus outbound.MenuRepository,
	recipes outbound.RecipeRepository,
	ingredients outbound.IngredientRepository,
	registry *allergen.Registry,
	reconciler *appallergen.Reconciler,
	logger *zap.Logger,
) *MenuService {
	return &MenuService{
		restaurants: restaurants,
		menus:       menus,
		recipes:     recipes,
		ingredients: ingredients,
		registry:    registry,
		reconciler:  reconciler,
		logger:      logger.Named("menu-service"),
	}
}

// CreateRestaurant creates a restaurant with a default primary menu.
func (s *MenuService) CreateRestaurant(ctx context.Context, cmd inbound.CreateRestaurantCommand) (*inbound.RestaurantDTO, error) {
	restaurant, err := menu.NewRestaurant(cmd.Name, cmd.Description)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := s.restaurants.Create(ctx, restaurant); err != nil {
		return nil, apperrors.NewDatabaseError("create restaurant", err)
	}
	if _, err := s.menus.EnsurePrimaryMenu(ctx, restaurant.ID); err != nil {
		return nil, apperrors.NewDatabaseError("create primary menu", err)
	}

	s.logger.Info("restaurant created",
		zap.String("restaurant_id", restaurant.ID.String()),
		zap.String("name", restaurant.Name))

	return restaurantDTO(restaurant), nil
}

// CreateRecipe manually creates a draft recipe in the named section.
func (s *MenuService) CreateRecipe(ctx context.Context, cmd inbound.CreateRecipeCommand) (*inbound.RecipeDTO, error) {
	if _, err := s.restaurants.FindByID(ctx, cmd.RestaurantID); err != nil {
		return nil, apperrors.NewRestaurantNotFoundError(cmd.RestaurantID.String())
	}

	recipe, err := menu.NewRecipe(cmd.RestaurantID, cmd.Name, menu.RecipeDraft)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	recipe.Description = cmd.Description
	recipe.Price = cmd.Price

	primary, err := s.menus.EnsurePrimaryMenu(ctx, cmd.RestaurantID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("resolve primary menu", err)
	}
	section, err := s.menus.GetOrCreateSection(ctx, primary.ID, cmd.SectionName)
	if err != nil {
		return nil, apperrors.NewDatabaseError("resolve menu section", err)
	}
	recipe.SectionID = &section.ID

	if err := s.recipes.Create(ctx, recipe); err != nil {
		return nil, apperrors.NewDatabaseError("create recipe", err)
	}
	return recipeDTO(recipe), nil
}

// UpdateRecipe applies partial changes to a recipe. A section name resolves
// against the primary menu, creating the section when missing.
func (s *MenuService) UpdateRecipe(ctx context.Context, cmd inbound.UpdateRecipeCommand) (*inbound.RecipeDTO, error) {
	recipe, err := s.recipes.FindByID(ctx, cmd.RecipeID)
	if err != nil {
		return nil, apperrors.NewRecipeNotFoundError(cmd.RecipeID.String())
	}

	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("recipe name cannot be blank")
		}
		recipe.Name = name
	}
	if cmd.Description != nil {
		recipe.Description = *cmd.Description
	}
	if cmd.Price != nil {
		recipe.Price = *cmd.Price
	}
	if cmd.SectionName != nil {
		primary, err := s.menus.EnsurePrimaryMenu(ctx, recipe.RestaurantID)
		if err != nil {
			return nil, apperrors.NewDatabaseError("resolve primary menu", err)
		}
		section, err := s.menus.GetOrCreateSection(ctx, primary.ID, *cmd.SectionName)
		if err != nil {
			return nil, apperrors.NewDatabaseError("resolve menu section", err)
		}
		recipe.SectionID = &section.ID
	}

	recipe.UpdatedAt = time.Now().UTC()
	if err := s.recipes.Update(ctx, recipe); err != nil {
		return nil, apperrors.NewDatabaseError("update recipe", err)
	}
	return recipeDTO(recipe), nil
}

// DeleteRecipe retires a recipe by moving it to the primary menu's archive
// section, the same place recipes from deleted sections end up.
func (s *MenuService) DeleteRecipe(ctx context.Context, recipeID uuid.UUID) error {
	recipe, err := s.recipes.FindByID(ctx, recipeID)
	if err != nil {
		return apperrors.NewRecipeNotFoundError(recipeID.String())
	}
	primary, err := s.menus.EnsurePrimaryMenu(ctx, recipe.RestaurantID)
	if err != nil {
		return apperrors.NewDatabaseError("resolve primary menu", err)
	}
	archive, err := s.menus.EnsureArchiveSection(ctx, primary.ID)
	if err != nil {
		return apperrors.NewDatabaseError("ensure archive section", err)
	}

	recipe.SectionID = &archive.ID
	recipe.IsOnMenu = false
	recipe.UpdatedAt = time.Now().UTC()
	if err := s.recipes.Update(ctx, recipe); err != nil {
		return apperrors.NewDatabaseError("archive recipe", err)
	}

	s.logger.Info("recipe archived",
		zap.String("recipe_id", recipeID.String()),
		zap.String("restaurant_id", recipe.RestaurantID.String()))
	return nil
}

// UpdateSection renames or repositions a section on the restaurant's primary
// menu. The archive section rejects changes.
func (s *MenuService) UpdateSection(ctx context.Context, cmd inbound.UpdateSectionCommand) (*inbound.SectionDTO, error) {
	if _, err := s.restaurants.FindByID(ctx, cmd.RestaurantID); err != nil {
		return nil, apperrors.NewRestaurantNotFoundError(cmd.RestaurantID.String())
	}
	section, err := s.findSection(ctx, cmd.RestaurantID, cmd.SectionID)
	if err != nil {
		return nil, err
	}

	updated := *section
	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("section name cannot be blank")
		}
		updated.Name = menu.NormalizeSectionName(name)
	}
	if cmd.Position != nil {
		updated.Position = cmd.Position
	}

	if err := s.menus.UpdateSection(ctx, &updated); err != nil {
		return nil, sectionWriteError("update section", err)
	}
	return &inbound.SectionDTO{
		ID:       updated.ID,
		Name:     updated.Name,
		Position: updated.Position,
		Archive:  updated.IsArchive(),
	}, nil
}

// DeleteSection removes a section from the restaurant's primary menu after
// its recipes have moved to the archive section.
func (s *MenuService) DeleteSection(ctx context.Context, restaurantID, sectionID uuid.UUID) error {
	if _, err := s.restaurants.FindByID(ctx, restaurantID); err != nil {
		return apperrors.NewRestaurantNotFoundError(restaurantID.String())
	}
	if _, err := s.findSection(ctx, restaurantID, sectionID); err != nil {
		return err
	}
	if err := s.menus.DeleteSection(ctx, sectionID); err != nil {
		return sectionWriteError("delete section", err)
	}
	return nil
}

// findSection resolves a section on the restaurant's primary menu.
func (s *MenuService) findSection(ctx context.Context, restaurantID, sectionID uuid.UUID) (*menu.MenuSection, error) {
	primary, err := s.menus.EnsurePrimaryMenu(ctx, restaurantID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("resolve primary menu", err)
	}
	sections, err := s.menus.Sections(ctx, primary.ID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list sections", err)
	}
	for _, candidate := range sections {
		if candidate.ID == sectionID {
			return candidate, nil
		}
	}
	return nil, apperrors.NewNotFoundError("menu section")
}

func sectionWriteError(operation string, err error) *apperrors.AppError {
	switch {
	case errors.Is(err, menu.ErrSectionNotFound):
		return apperrors.NewNotFoundError("menu section")
	case errors.Is(err, menu.ErrArchiveSectionImmutable):
		return apperrors.NewConflictError(err.Error())
	default:
		return apperrors.NewDatabaseError(operation, err)
	}
}

// ApproveRecipe moves a recipe out of review.
func (s *MenuService) ApproveRecipe(ctx context.Context, recipeID uuid.UUID) error {
	recipe, err := s.recipes.FindByID(ctx, recipeID)
	if err != nil {
		return apperrors.NewRecipeNotFoundError(recipeID.String())
	}
	recipe.Approve()
	if err := s.recipes.Update(ctx, recipe); err != nil {
		return apperrors.NewDatabaseError("approve recipe", err)
	}
	return nil
}

// GetRestaurant returns one restaurant.
func (s *MenuService) GetRestaurant(ctx context.Context, restaurantID uuid.UUID) (*inbound.RestaurantDTO, error) {
	restaurant, err := s.restaurants.FindByID(ctx, restaurantID)
	if err != nil {
		return nil, apperrors.NewRestaurantNotFoundError(restaurantID.String())
	}
	return restaurantDTO(restaurant), nil
}

// ListRestaurants returns all restaurants.
func (s *MenuService) ListRestaurants(ctx context.Context) ([]inbound.RestaurantDTO, error) {
	restaurants, err := s.restaurants.FindAll(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list restaurants", err)
	}
	dtos := make([]inbound.RestaurantDTO, 0, len(restaurants))
	for _, r := range restaurants {
		dtos = append(dtos, *restaurantDTO(r))
	}
	return dtos, nil
}

// ListSections returns the primary menu's sections with the archive section
// guaranteed present and pinned last.
func (s *MenuService) ListSections(ctx context.Context, restaurantID uuid.UUID) ([]inbound.SectionDTO, error) {
	if _, err := s.restaurants.FindByID(ctx, restaurantID); err != nil {
		return nil, apperrors.NewRestaurantNotFoundError(restaurantID.String())
	}
	primary, err := s.menus.EnsurePrimaryMenu(ctx, restaurantID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("resolve primary menu", err)
	}
	if _, err := s.menus.EnsureArchiveSection(ctx, primary.ID); err != nil {
		return nil, apperrors.NewDatabaseError("ensure archive section", err)
	}
	sections, err := s.menus.Sections(ctx, primary.ID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list sections", err)
	}

	dtos := make([]inbound.SectionDTO, 0, len(sections))
	for _, section := range sections {
		dtos = append(dtos, inbound.SectionDTO{
			ID:       section.ID,
			Name:     section.Name,
			Position: section.Position,
			Archive:  section.IsArchive(),
		})
	}
	return dtos, nil
}

// ListRecipes returns a restaurant's recipes.
func (s *MenuService) ListRecipes(ctx context.Context, restaurantID uuid.UUID) ([]inbound.RecipeDTO, error) {
	if _, err := s.restaurants.FindByID(ctx, restaurantID); err != nil {
		return nil, apperrors.NewRestaurantNotFoundError(restaurantID.String())
	}
	recipes, err := s.recipes.FindByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list recipes", err)
	}
	dtos := make([]inbound.RecipeDTO, 0, len(recipes))
	for _, r := range recipes {
		dtos = append(dtos, *recipeDTO(r))
	}
	return dtos, nil
}

// GetRecipeDetails returns a recipe with its ingredient lines and
// reconciled allergen badges. Per line, a stored override payload replaces
// the ingredient's stored links; otherwise the links are canonicalized.
func (s *MenuService) GetRecipeDetails(ctx context.Context, recipeID uuid.UUID) (*inbound.RecipeDetailsDTO, error) {
	recipe, err := s.recipes.FindByID(ctx, recipeID)
	if err != nil {
		return nil, apperrors.NewRecipeNotFoundError(recipeID.String())
	}
	lines, err := s.recipes.Ingredients(ctx, recipeID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load recipe ingredients", err)
	}

	details := &inbound.RecipeDetailsDTO{Recipe: *recipeDTO(recipe)}
	for _, line := range lines {
		ingredient, err := s.ingredients.FindByID(ctx, line.IngredientID)
		if err != nil {
			s.logger.Warn("recipe line references missing ingredient",
				zap.String("recipe_id", recipeID.String()),
				zap.String("ingredient_id", line.IngredientID.String()))
			continue
		}

		views, err := s.ingredients.AllergenViews(ctx, line.IngredientID)
		if err != nil {
			return nil, apperrors.NewDatabaseError("load ingredient allergens", err)
		}
		stored := make([]appallergen.StoredAllergen, 0, len(views))
		for _, view := range views {
			stored = append(stored, appallergen.StoredAllergen{
				Code:      view.Code,
				Name:      view.Name,
				Certainty: view.Certainty,
			})
		}

		badges, warnings := s.reconciler.Reconcile(stored, appallergen.ParseOverride(line.Allergens))
		for _, warning := range warnings {
			s.logger.Warn("skipped allergen entry",
				zap.String("ingredient", ingredient.Name),
				zap.String("kind", string(warning.Kind)),
				zap.String("value", warning.Value))
		}

		details.Ingredients = append(details.Ingredients, inbound.RecipeIngredientDTO{
			IngredientID: ingredient.ID,
			Name:         ingredient.Name,
			Quantity:     line.Quantity,
			Unit:         line.Unit,
			Notes:        line.Notes,
			Confirmed:    line.Confirmed,
			Allergens:    badges,
		})
	}
	return details, nil
}

// ListAllergenMarkers exposes the canonical marker vocabulary.
func (s *MenuService) ListAllergenMarkers(_ context.Context) []inbound.AllergenMarkerDTO {
	entries := s.registry.All()
	dtos := make([]inbound.AllergenMarkerDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, inbound.AllergenMarkerDTO{
			Slug:       entry.Slug,
			Label:      entry.Label,
			Family:     entry.Family,
			MarkerType: string(entry.MarkerType),
		})
	}
	return dtos
}

func restaurantDTO(r *menu.Restaurant) *inbound.RestaurantDTO {
	return &inbound.RestaurantDTO{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

func recipeDTO(r *menu.Recipe) *inbound.RecipeDTO {
	return &inbound.RecipeDTO{
		ID:           r.ID,
		RestaurantID: r.RestaurantID,
		Name:         r.Name,
		Description:  r.Description,
		Price:        r.Price,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
	}
}
