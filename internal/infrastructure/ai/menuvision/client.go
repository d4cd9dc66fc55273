// Package menuvision is the HTTP client for the hosted LLM menu services:
// extraction (document to menu items) and deduction (recipes to predicted
// ingredients and allergens). Implements the MenuExtractionService port.
package menuvision

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/platewise/v1/internal/ports/outbound"
	apperrors "github.com/platewise/v1/pkg/errors"
)

// DefaultTimeout matches the upstream services' worst-case document
// processing time.
const DefaultTimeout = 120 * time.Second

const cacheTTL = 24 * time.Hour

// Config holds the menu service endpoints and credentials.
type Config struct {
	ExtractionURL string
	DeductionURL  string
	APIKey        string
	Timeout       time.Duration
}

// Client calls the extraction and deduction services. Extraction responses
// are cached by source digest so re-querying an already-processed document
// costs no tokens; cache failures are logged and ignored.
type Client struct {
	config Config
	client *http.Client
	cache  outbound.CacheRepository
	logger *zap.Logger
}

// NewClient creates a menu vision client.
func NewClient(config Config, cache outbound.CacheRepository, logger *zap.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		cache:  cache,
		logger: logger.Named("menuvision"),
	}
}

type extractionRequest struct {
	SourceType    string `json:"source_type"`
	URL           string `json:"url,omitempty"`
	Filename      string `json:"filename,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty"`
}

// Extract sends a source document to the extraction service and returns the
// raw menu items. One attempt, no retry; a failed extraction fails the
// upload stage and re-running the upload is the retry path.
func (c *Client) Extract(ctx context.Context, source outbound.ExtractionSource) ([]map[string]any, error) {
	if c.config.ExtractionURL == "" {
		return nil, apperrors.NewServiceUnavailableError("menu extraction service")
	}

	cacheKey := c.extractionCacheKey(source)
	if items, ok := c.cachedItems(ctx, cacheKey); ok {
		c.logger.Debug("extraction cache hit", zap.String("key", cacheKey))
		return items, nil
	}

	body, err := c.post(ctx, c.config.ExtractionURL, extractionRequest{
		SourceType:    source.SourceType,
		URL:           source.URL,
		Filename:      source.Filename,
		ContentBase64: source.ContentBase64,
	})
	if err != nil {
		return nil, err
	}

	items, err := decodeItems(body)
	if err != nil {
		c.logger.Warn("extraction response unparseable, treating as empty",
			zap.Int("body_bytes", len(body)))
		return []map[string]any{}, nil
	}

	c.storeItems(ctx, cacheKey, items)
	return items, nil
}

type deductionRequest struct {
	Recipes []deductionRecipePayload `json:"recipes"`
}

type deductionRecipePayload struct {
	RecipeID    string `json:"recipe_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
}

// Deduce predicts ingredients for a batch of recipes.
func (c *Client) Deduce(ctx context.Context, recipes []outbound.DeductionRecipe) ([]outbound.DeducedRecipe, error) {
	if c.config.DeductionURL == "" {
		return nil, apperrors.NewServiceUnavailableError("recipe deduction service")
	}

	payload := deductionRequest{Recipes: make([]deductionRecipePayload, 0, len(recipes))}
	for _, r := range recipes {
		if r.Name == "" {
			return nil, apperrors.NewValidationError("recipe name missing for deduction")
		}
		payload.Recipes = append(payload.Recipes, deductionRecipePayload{
			RecipeID:    r.RecipeID,
			Name:        r.Name,
			Description: r.Description,
			Price:       r.Price,
		})
	}

	body, err := c.post(ctx, c.config.DeductionURL, payload)
	if err != nil {
		return nil, err
	}

	items, err := decodeItems(body)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("recipe deduction service", errNoJSONPayload)
	}

	deduced := make([]outbound.DeducedRecipe, 0, len(items))
	for _, item := range items {
		deduced = append(deduced, decodeDeducedRecipe(item))
	}
	return deduced, nil
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("menu service", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("menu service", err)
	}

	c.logger.Info("menu service call completed",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewExternalServiceError("menu service",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return body, nil
}

func decodeDeducedRecipe(item map[string]any) outbound.DeducedRecipe {
	recipe := outbound.DeducedRecipe{
		RecipeID: stringField(item, "recipe_id"),
		Name:     stringField(item, "name"),
	}

	rawIngredients, _ := item["ingredients"].([]any)
	for _, rawIngredient := range rawIngredients {
		entry, ok := rawIngredient.(map[string]any)
		if !ok {
			continue
		}
		name := stringField(entry, "name")
		if name == "" {
			name = stringField(entry, "ingredient")
		}
		recipe.Ingredients = append(recipe.Ingredients, outbound.DeducedIngredient{
			Name:      name,
			Quantity:  floatField(entry, "quantity"),
			Unit:      stringField(entry, "unit"),
			Notes:     stringField(entry, "notes"),
			Allergens: entry["allergens"],
		})
	}
	return recipe
}

// stringField reads a field that models emit as string or number.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func floatField(m map[string]any, key string) *float64 {
	switch v := m[key].(type) {
	case float64:
		return &v
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return &parsed
		}
	}
	return nil
}

func (c *Client) extractionCacheKey(source outbound.ExtractionSource) string {
	digest := sha256.New()
	digest.Write([]byte(source.SourceType))
	digest.Write([]byte{0})
	if source.URL != "" {
		digest.Write([]byte(source.URL))
	} else {
		digest.Write([]byte(source.ContentBase64))
	}
	return "menuvision:extract:" + hex.EncodeToString(digest.Sum(nil))
}

func (c *Client) cachedItems(ctx context.Context, key string) ([]map[string]any, bool) {
	if c.cache == nil {
		return nil, false
	}
	cached, err := c.cache.Get(ctx, key)
	if err != nil || len(cached) == 0 {
		return nil, false
	}
	var items []map[string]any
	if err := json.Unmarshal(cached, &items); err != nil {
		return nil, false
	}
	return items, true
}

func (c *Client) storeItems(ctx context.Context, key string, items []map[string]any) {
	if c.cache == nil || len(items) == 0 {
		return
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, encoded, cacheTTL); err != nil {
		c.logger.Warn("failed to cache extraction response", zap.Error(err))
	}
}
