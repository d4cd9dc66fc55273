package upload

import "errors"

// Domain errors for menu upload operations

var (
	ErrUnsupportedSourceType  = errors.New("unsupported upload source type")
	ErrSourceValueRequired    = errors.New("upload source value is required")
	ErrRestaurantRequired     = errors.New("restaurant id is required")
	ErrStageNotFound          = errors.New("upload stage not found")
	ErrInvalidStageTransition = errors.New("invalid upload stage transition")
	ErrUploadNotFound         = errors.New("menu upload not found")
	ErrUploadAlreadyTerminal  = errors.New("menu upload already completed or failed")
	ErrDuplicateRecipeLink    = errors.New("recipe already linked to upload")
)
