// Package upload implements the menu upload use cases: creating uploads and
// running the extraction and deduction stages against the LLM menu services.
package upload

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appallergen "github.com/platewise/v1/internal/application/allergen"
	"github.com/platewise/v1/internal/domain/menu"
	"github.com/platewise/v1/internal/domain/upload"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
	apperrors "github.com/platewise/v1/pkg/errors"
)

// deductionTestBatchSize limits the first deduction call. A bad document
// fails after one small call instead of burning tokens on the full menu; the
// remainder goes out in a single second call.
const deductionTestBatchSize = 5

// UploadService implements inbound.UploadService.
type UploadService struct {
	uploads     outbound.UploadRepository
	restaurants outbound.RestaurantRepository
	menus       outbound.MenuRepository
	recipes     outbound.RecipeRepository
	ingredients outbound.IngredientRepository
	extraction  outbound.MenuExtractionService
	tx          outbound.Transactor
	reconciler  *appallergen.Reconciler
	logger      *zap.Logger
}

// NewUploadService creates the upload orchestrator.
func NewUploadService(
	uploads outbound.UploadRepository,
	restaurants outbound.RestaurantRepository,
	menus outbound.MenuRepository,
	recipes outbound.RecipeRepository,
	ingredients outbound.IngredientRepository,
	extraction outbound.MenuExtractionService,
	tx outbound.Transactor,
	reconciler *appallergen.Reconciler,
	logger *zap.Logger,
) *UploadService {
	return &UploadService{
		uploads:     uploads,
		restaurants: restaurants,
		menus:       menus,
		recipes:     recipes,
		ingredients: ingredients,
		extraction:  extraction,
		tx:          tx,
		reconciler:  reconciler,
		logger:      logger.Named("upload-service"),
	}
}

// CreateUpload validates the source and persists a new upload with its stage
// scaffolding. The ingest stage completes immediately: the document is
// already stored by the time this runs.
func (s *UploadService) CreateUpload(ctx context.Context, cmd inbound.CreateUploadCommand) (*inbound.UploadDTO, error) {
	sourceType, err := upload.ParseSourceType(cmd.SourceType)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported source type %q", cmd.SourceType))
	}
	if strings.TrimSpace(cmd.SourceValue) == "" {
		if sourceType == upload.SourceURL {
			return nil, apperrors.NewValidationError("url is required for url uploads")
		}
		return nil, apperrors.NewValidationError("file upload is required")
	}

	if _, err := s.restaurants.FindByID(ctx, cmd.RestaurantID); err != nil {
		return nil, apperrors.NewRestaurantNotFoundError(cmd.RestaurantID.String())
	}

	u, err := upload.NewMenuUpload(cmd.RestaurantID, cmd.UserID, sourceType, cmd.SourceValue)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := s.uploads.Create(ctx, u); err != nil {
		return nil, apperrors.NewDatabaseError("create upload", err)
	}

	s.logger.Info("upload created",
		zap.String("upload_id", u.ID().String()),
		zap.String("restaurant_id", cmd.RestaurantID.String()),
		zap.String("source_type", string(sourceType)))

	return toDTO(u), nil
}

// createdRecipe tracks one recipe produced by the extraction stage, in the
// shape the deduction service expects back.
type createdRecipe struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       string
}

// ProcessUpload runs the extraction and deduction stages synchronously.
// Each stage persists inside its own transaction; failure rows are written
// after the rollback so diagnostics survive.
func (s *UploadService) ProcessUpload(ctx context.Context, uploadID uuid.UUID) (*inbound.UploadDTO, error) {
	u, err := s.uploads.FindByID(ctx, uploadID)
	if err != nil {
		return nil, apperrors.NewUploadNotFoundError(uploadID.String())
	}

	created, err := s.runExtractionStage(ctx, u)
	if err != nil {
		return nil, err
	}

	if err := s.runDeductionStage(ctx, u, created); err != nil {
		return nil, err
	}

	if err := u.Complete(); err != nil {
		return nil, apperrors.NewInternalError(err.Error())
	}
	if err := s.uploads.Update(ctx, u); err != nil {
		return nil, apperrors.NewDatabaseError("complete upload", err)
	}

	s.logger.Info("upload processed",
		zap.String("upload_id", u.ID().String()),
		zap.Int("recipes_created", len(created)))

	return toDTO(u), nil
}

// GetUpload returns one upload with its stages and recipe links.
func (s *UploadService) GetUpload(ctx context.Context, uploadID uuid.UUID) (*inbound.UploadDTO, error) {
	u, err := s.uploads.FindByID(ctx, uploadID)
	if err != nil {
		return nil, apperrors.NewUploadNotFoundError(uploadID.String())
	}
	return toDTO(u), nil
}

// ListUploads returns a restaurant's uploads, newest first.
func (s *UploadService) ListUploads(ctx context.Context, restaurantID uuid.UUID) ([]inbound.UploadDTO, error) {
	uploads, err := s.uploads.FindByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list uploads", err)
	}
	dtos := make([]inbound.UploadDTO, 0, len(uploads))
	for _, u := range uploads {
		dtos = append(dtos, *toDTO(u))
	}
	return dtos, nil
}

// runExtractionStage calls the extraction service and turns every usable
// item into a needs_review draft recipe. Any failure is fatal for the whole
// upload.
func (s *UploadService) runExtractionStage(ctx context.Context, u *upload.MenuUpload) ([]createdRecipe, error) {
	if err := u.BeginStage(upload.StageExtraction); err != nil {
		return nil, apperrors.NewInternalError(err.Error())
	}
	if err := s.uploads.Update(ctx, u); err != nil {
		return nil, apperrors.NewDatabaseError("start extraction stage", err)
	}

	source, err := s.buildExtractionSource(u)
	if err != nil {
		return nil, s.failStage(ctx, u, upload.StageExtraction, err)
	}

	items, err := s.extraction.Extract(ctx, source)
	if err != nil {
		return nil, s.failStage(ctx, u, upload.StageExtraction, err)
	}

	var created []createdRecipe
	err = s.tx.Transact(ctx, func(ctx context.Context) error {
		primary, err := s.menus.EnsurePrimaryMenu(ctx, u.RestaurantID())
		if err != nil {
			return err
		}

		for _, item := range items {
			name := safeString(item["name"])
			if name == "" {
				name = safeString(item["title"])
			}
			if name == "" {
				continue
			}

			sectionName := safeString(item["category"])
			if sectionName == "" {
				sectionName = safeString(item["section"])
			}
			section, err := s.menus.GetOrCreateSection(ctx, primary.ID, sectionName)
			if err != nil {
				return err
			}

			recipe, err := menu.NewRecipe(u.RestaurantID(), name, menu.RecipeNeedsReview)
			if err != nil {
				continue
			}
			recipe.SectionID = &section.ID
			recipe.Description = safeString(item["description"])
			recipe.Instructions = safeString(item["instructions"])
			recipe.ServingSize = safeString(item["serving_size"])
			recipe.Price = safeString(item["price"])
			recipe.Image = safeString(item["image"])
			recipe.Options = encodeOptions(firstValue(item, "options", "extras"))
			recipe.SpecialNotes = safeString(firstValue(item, "special_notes", "notes"))
			recipe.ProminenceScore = parseFloat(firstValue(item, "prominence", "score"))

			if err := s.recipes.Create(ctx, recipe); err != nil {
				return err
			}
			if err := u.AttachRecipe(recipe.ID, upload.StageExtraction); err != nil {
				return err
			}
			created = append(created, createdRecipe{
				ID:          recipe.ID,
				Name:        name,
				Description: recipe.Description,
				Price:       recipe.Price,
			})
		}

		if err := u.CompleteStage(upload.StageExtraction, map[string]any{"recipes_created": len(created)}); err != nil {
			return err
		}
		return s.uploads.Update(ctx, u)
	})
	if err != nil {
		return nil, s.failStage(ctx, u, upload.StageExtraction, err)
	}
	return created, nil
}

// runDeductionStage predicts ingredients for the created recipes. Zero
// recipes skips the stage; the upload still completes. Service failures are
// fatal, single-item persistence problems are skipped with warnings.
func (s *UploadService) runDeductionStage(ctx context.Context, u *upload.MenuUpload, created []createdRecipe) error {
	if len(created) == 0 {
		if err := u.SkipStage(upload.StageDeduction, "No recipes created in Stage 1"); err != nil {
			return apperrors.NewInternalError(err.Error())
		}
		if err := s.uploads.Update(ctx, u); err != nil {
			return apperrors.NewDatabaseError("skip deduction stage", err)
		}
		return nil
	}

	if err := u.BeginStage(upload.StageDeduction); err != nil {
		return apperrors.NewInternalError(err.Error())
	}
	if err := s.uploads.Update(ctx, u); err != nil {
		return apperrors.NewDatabaseError("start deduction stage", err)
	}

	// A small test batch first, then the remainder in one call. At most two
	// calls per upload.
	batches := [][]createdRecipe{created}
	if len(created) > deductionTestBatchSize {
		batches = [][]createdRecipe{
			created[:deductionTestBatchSize],
			created[deductionTestBatchSize:],
		}
	}

	type deducedBatch struct {
		recipes []createdRecipe
		results []outbound.DeducedRecipe
	}
	deduced := make([]deducedBatch, 0, len(batches))
	for _, batch := range batches {
		payload := make([]outbound.DeductionRecipe, 0, len(batch))
		for _, recipe := range batch {
			payload = append(payload, outbound.DeductionRecipe{
				RecipeID:    recipe.ID.String(),
				Name:        recipe.Name,
				Description: recipe.Description,
				Price:       recipe.Price,
			})
		}
		results, err := s.extraction.Deduce(ctx, payload)
		if err != nil {
			return s.failStage(ctx, u, upload.StageDeduction, err)
		}
		deduced = append(deduced, deducedBatch{recipes: batch, results: results})
	}

	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		added := 0
		for _, batch := range deduced {
			count, err := s.storeDeducedIngredients(ctx, batch.recipes, batch.results)
			if err != nil {
				return err
			}
			added += count
		}
		if err := u.CompleteStage(upload.StageDeduction, map[string]any{"ingredients_added": added}); err != nil {
			return err
		}
		return s.uploads.Update(ctx, u)
	})
	if err != nil {
		return s.failStage(ctx, u, upload.StageDeduction, err)
	}
	return nil
}

// storeDeducedIngredients persists one batch of predictions. Recipes are
// matched by echoed recipe id first, then by case-insensitive name; entries
// matching neither are dropped.
func (s *UploadService) storeDeducedIngredients(ctx context.Context, batch []createdRecipe, results []outbound.DeducedRecipe) (int, error) {
	byID := make(map[uuid.UUID]uuid.UUID, len(batch))
	byName := make(map[string]uuid.UUID, len(batch))
	for _, recipe := range batch {
		byID[recipe.ID] = recipe.ID
		if recipe.Name != "" {
			byName[strings.ToLower(recipe.Name)] = recipe.ID
		}
	}

	added := 0
	for _, result := range results {
		recipeID, ok := s.matchRecipe(result, byID, byName)
		if !ok {
			s.logger.Warn("deduced recipe matched nothing, dropping",
				zap.String("recipe_id", result.RecipeID),
				zap.String("name", result.Name))
			continue
		}

		for _, predicted := range result.Ingredients {
			name := strings.TrimSpace(predicted.Name)
			if name == "" {
				continue
			}

			ingredient, err := menu.NewLLMIngredient(name)
			if err != nil {
				continue
			}
			if err := s.ingredients.Create(ctx, ingredient); err != nil {
				return added, err
			}

			predictions, warnings := s.reconciler.NormalizePredictions(predicted.Allergens)
			for _, warning := range warnings {
				s.logger.Warn("skipped allergen prediction",
					zap.String("ingredient", name),
					zap.String("kind", string(warning.Kind)),
					zap.String("value", warning.Value))
			}

			line := menu.NewRecipeIngredient(recipeID, ingredient.ID)
			line.Quantity = predicted.Quantity
			line.Unit = predicted.Unit
			line.Notes = predicted.Notes
			line.Allergens = appallergen.SerializePredictions(predictions)
			if err := s.recipes.AddIngredient(ctx, line); err != nil {
				return added, err
			}

			for _, prediction := range predictions {
				stored, err := s.ingredients.GetOrCreateAllergen(ctx, prediction.Canonical.Slug, prediction.Canonical.Label)
				if err != nil {
					return added, err
				}
				link := menu.NewIngredientAllergen(ingredient.ID, stored.ID, string(prediction.Certainty), menu.SourceLLM)
				if err := s.ingredients.LinkAllergen(ctx, link); err != nil {
					return added, err
				}
			}
			added++
		}
	}
	return added, nil
}

func (s *UploadService) matchRecipe(result outbound.DeducedRecipe, byID map[uuid.UUID]uuid.UUID, byName map[string]uuid.UUID) (uuid.UUID, bool) {
	if result.RecipeID != "" {
		if id, err := uuid.Parse(result.RecipeID); err == nil {
			if matched, ok := byID[id]; ok {
				return matched, true
			}
		}
	}
	if result.Name != "" {
		if matched, ok := byName[strings.ToLower(result.Name)]; ok {
			return matched, true
		}
	}
	return uuid.Nil, false
}

// failStage records the stage failure and marks the upload failed. It runs
// outside any transaction so diagnostics survive the rollback.
func (s *UploadService) failStage(ctx context.Context, u *upload.MenuUpload, stage upload.StageName, cause error) error {
	// The in-memory aggregate may carry mutations from the rolled-back
	// transaction, such as a stage marked completed or links to recipes that
	// no longer exist. Record the failure against the persisted state.
	if fresh, err := s.uploads.FindByID(ctx, u.ID()); err == nil {
		u = fresh
	}
	if err := u.FailStage(stage, cause.Error()); err != nil {
		s.logger.Error("failed to record stage failure",
			zap.String("upload_id", u.ID().String()),
			zap.Error(err))
	}
	if err := s.uploads.Update(ctx, u); err != nil {
		s.logger.Error("failed to persist stage failure",
			zap.String("upload_id", u.ID().String()),
			zap.Error(err))
	}

	s.logger.Warn("upload stage failed",
		zap.String("upload_id", u.ID().String()),
		zap.String("stage", string(stage)),
		zap.Error(cause))

	return apperrors.NewUploadFailedError(string(stage), cause)
}

// buildExtractionSource turns the stored source into the extraction request
// shape. Stored files are read back and inlined as base64.
func (s *UploadService) buildExtractionSource(u *upload.MenuUpload) (outbound.ExtractionSource, error) {
	if u.SourceType() == upload.SourceURL {
		return outbound.ExtractionSource{
			SourceType: string(u.SourceType()),
			URL:        u.SourceValue(),
		}, nil
	}

	content, err := os.ReadFile(u.SourceValue())
	if err != nil {
		return outbound.ExtractionSource{}, fmt.Errorf("failed to read source file: %w", err)
	}
	return outbound.ExtractionSource{
		SourceType:    string(u.SourceType()),
		Filename:      filepath.Base(u.SourceValue()),
		ContentBase64: base64.StdEncoding.EncodeToString(content),
	}, nil
}

func toDTO(u *upload.MenuUpload) *inbound.UploadDTO {
	dto := &inbound.UploadDTO{
		ID:           u.ID(),
		RestaurantID: u.RestaurantID(),
		SourceType:   string(u.SourceType()),
		SourceValue:  u.SourceValue(),
		Status:       string(u.Status()),
		ErrorMessage: u.ErrorMessage(),
		RecipeIDs:    make([]uuid.UUID, 0, len(u.Recipes())),
		CreatedAt:    u.CreatedAt(),
		UpdatedAt:    u.UpdatedAt(),
	}
	for _, stage := range u.Stages() {
		dto.Stages = append(dto.Stages, inbound.UploadStageDTO{
			Stage:        string(stage.Name()),
			Status:       string(stage.Status()),
			StartedAt:    stage.StartedAt(),
			CompletedAt:  stage.CompletedAt(),
			ErrorMessage: stage.ErrorMessage(),
			Details:      stage.Details(),
		})
	}
	for _, link := range u.Recipes() {
		dto.RecipeIDs = append(dto.RecipeIDs, link.RecipeID)
	}
	return dto
}

func safeString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	default:
		return ""
	}
}

func firstValue(item map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := item[key]; ok && value != nil {
			return value
		}
	}
	return nil
}

func parseFloat(value any) *float64 {
	switch v := value.(type) {
	case float64:
		return &v
	case string:
		var parsed float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &parsed); err == nil {
			return &parsed
		}
	}
	return nil
}

func encodeOptions(value any) string {
	if value == nil {
		return ""
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(encoded)
}
