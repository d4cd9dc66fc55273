// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UploadService defines the use cases for the menu upload pipeline.
type UploadService interface {
	// CreateUpload validates and persists a new upload with its stage
	// scaffolding. The source document must already be stored; SourceValue
	// is its path, or the URL for url uploads.
	CreateUpload(ctx context.Context, cmd CreateUploadCommand) (*UploadDTO, error)

	// ProcessUpload runs extraction and deduction synchronously and returns
	// the terminal upload state.
	ProcessUpload(ctx context.Context, uploadID uuid.UUID) (*UploadDTO, error)

	// Queries
	GetUpload(ctx context.Context, uploadID uuid.UUID) (*UploadDTO, error)
	ListUploads(ctx context.Context, restaurantID uuid.UUID) ([]UploadDTO, error)
}

// CreateUploadCommand contains data for creating a new upload.
type CreateUploadCommand struct {
	RestaurantID uuid.UUID
	UserID       *uuid.UUID
	SourceType   string
	SourceValue  string
}

// UploadStageDTO is one pipeline stage in API responses.
type UploadStageDTO struct {
	Stage        string     `json:"stage"`
	Status       string     `json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Details      string     `json:"details,omitempty"`
}

// UploadDTO is the data transfer object for uploads.
type UploadDTO struct {
	ID           uuid.UUID        `json:"id"`
	RestaurantID uuid.UUID        `json:"restaurant_id"`
	SourceType   string           `json:"source_type"`
	SourceValue  string           `json:"source_value"`
	Status       string           `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	Stages       []UploadStageDTO `json:"stages"`
	RecipeIDs    []uuid.UUID      `json:"recipe_ids"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
