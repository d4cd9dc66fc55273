package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/ports/inbound"
	apperrors "github.com/platewise/v1/pkg/errors"
)

// MenuAPIHandlers handles catalog REST API requests
type MenuAPIHandlers struct {
	menuService inbound.MenuService
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewMenuAPIHandlers creates a new menu API handlers instance
func NewMenuAPIHandlers(menuService inbound.MenuService, logger *zap.Logger) *MenuAPIHandlers {
	return &MenuAPIHandlers{
		menuService: menuService,
		validate:    validator.New(),
		logger:      logger,
	}
}

type createRestaurantRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

type createRecipeRequest struct {
	Name        string `json:"name" validate:"required,max=500"`
	Description string `json:"description" validate:"max=5000"`
	Price       string `json:"price" validate:"max=50"`
	SectionName string `json:"section_name" validate:"max=255"`
}

type updateRecipeRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=500"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Price       *string `json:"price" validate:"omitempty,max=50"`
	SectionName *string `json:"section_name" validate:"omitempty,max=255"`
}

type updateSectionRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Position *int    `json:"position" validate:"omitempty,min=0"`
}

// CreateRestaurant handles POST /api/v1/restaurants
func (h *MenuAPIHandlers) CreateRestaurant(w http.ResponseWriter, r *http.Request) {
	var req createRestaurantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, apperrors.NewBadRequestError("invalid JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, h.logger, apperrors.NewValidationError(err.Error()))
		return
	}

	restaurant, err := h.menuService.CreateRestaurant(r.Context(), inbound.CreateRestaurantCommand{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, APIResponse{Success: true, Data: restaurant})
}

// ListRestaurants handles GET /api/v1/restaurants
func (h *MenuAPIHandlers) ListRestaurants(w http.ResponseWriter, r *http.Request) {
	restaurants, err := h.menuService.ListRestaurants(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: restaurants})
}

// GetRestaurant handles GET /api/v1/restaurants/{restaurantID}
func (h *MenuAPIHandlers) GetRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := h.pathUUID(w, r, "restaurantID")
	if !ok {
		return
	}
	restaurant, err := h.menuService.GetRestaurant(r.Context(), restaurantID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: restaurant})
}

// ListSections handles GET /api/v1/restaurants/{restaurantID}/sections
func (h *MenuAPIHandlers) ListSections(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := h.pathUUID(w, r, "restaurantID")
	if !ok {
		return
	}
	sections, err := h.menuService.ListSections(r.Context(), restaurantID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: sections})
}

// ListRecipes handles GET /api/v1/restaurants/{restaurantID}/recipes
func (h *MenuAPIHandlers) ListRecipes(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := h.pathUUID(w, r, "restaurantID")
	if !ok {
		return
	}
	recipes, err := h.menuService.ListRecipes(r.Context(), restaurantID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: recipes})
}

// CreateRecipe handles POST /api/v1/restaurants/{restaurantID}/recipes
func (h *MenuAPIHandlers) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := h.pathUUID(w, r, "restaurantID")
	if !ok {
		return
	}
	var req createRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, apperrors.NewBadRequestError("invalid JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, h.logger, apperrors.NewValidationError(err.Error()))
		return
	}

	recipe, err := h.menuService.CreateRecipe(r.Context(), inbound.CreateRecipeCommand{
		RestaurantID: restaurantID,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		SectionName:  req.SectionName,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, APIResponse{Success: true, Data: recipe})
}

// UpdateSection handles PUT /api/v1/restaurants/{restaurantID}/sections/{sectionID}
func (h *MenuAPIHandlers) UpdateSection(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := h.pathUUID(w, r, "restaurantID")
	if !ok {
		return
	}
	sectionID, ok := h.pathUUID(w, r, "sectionID")
	if !ok {
		return
	}
	var req updateSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, apperrors.NewBadRequestError("invalid JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, h.logger, apperrors.NewValidationError(err.Error()))
		return
	}

	section, err := h.menuService.UpdateSection(r.Context(), inbound.UpdateSectionCommand{
		RestaurantID: restaurantID,
		SectionID:    sectionID,
		Name:         req.Name,
		Position:     req.Position,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: section})
}

// DeleteSection handles DELETE /api/v1/restaurants/{restaurantID}/sections/{sectionID}
func (h *MenuAPIHandlers) DeleteSection(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := h.pathUUID(w, r, "restaurantID")
	if !ok {
		return
	}
	sectionID, ok := h.pathUUID(w, r, "sectionID")
	if !ok {
		return
	}
	if err := h.menuService.DeleteSection(r.Context(), restaurantID, sectionID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Message: "Section deleted"})
}

// UpdateRecipe handles PUT /api/v1/recipes/{recipeID}
func (h *MenuAPIHandlers) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := h.pathUUID(w, r, "recipeID")
	if !ok {
		return
	}
	var req updateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, apperrors.NewBadRequestError("invalid JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, h.logger, apperrors.NewValidationError(err.Error()))
		return
	}

	recipe, err := h.menuService.UpdateRecipe(r.Context(), inbound.UpdateRecipeCommand{
		RecipeID:    recipeID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		SectionName: req.SectionName,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: recipe})
}

// DeleteRecipe handles DELETE /api/v1/recipes/{recipeID}
func (h *MenuAPIHandlers) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := h.pathUUID(w, r, "recipeID")
	if !ok {
		return
	}
	if err := h.menuService.DeleteRecipe(r.Context(), recipeID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Message: "Recipe archived"})
}

// GetRecipeDetails handles GET /api/v1/recipes/{recipeID}/details
func (h *MenuAPIHandlers) GetRecipeDetails(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := h.pathUUID(w, r, "recipeID")
	if !ok {
		return
	}
	details, err := h.menuService.GetRecipeDetails(r.Context(), recipeID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: details})
}

// ApproveRecipe handles POST /api/v1/recipes/{recipeID}/approve
func (h *MenuAPIHandlers) ApproveRecipe(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := h.pathUUID(w, r, "recipeID")
	if !ok {
		return
	}
	if err := h.menuService.ApproveRecipe(r.Context(), recipeID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Message: "Recipe approved"})
}

// ListAllergenMarkers handles GET /api/v1/allergens
func (h *MenuAPIHandlers) ListAllergenMarkers(w http.ResponseWriter, r *http.Request) {
	markers := h.menuService.ListAllergenMarkers(r.Context())
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: markers})
}

func (h *MenuAPIHandlers) pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, r, h.logger, apperrors.NewBadRequestError("invalid "+param))
		return uuid.Nil, false
	}
	return id, true
}
