package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/infrastructure/config"
	"github.com/platewise/v1/internal/ports/inbound"
	apperrors "github.com/platewise/v1/pkg/errors"
)

// UploadAPIHandlers handles menu upload REST API requests
type UploadAPIHandlers struct {
	uploadService inbound.UploadService
	uploadConfig  config.UploadConfig
	validate      *validator.Validate
	logger        *zap.Logger
}

// NewUploadAPIHandlers creates a new upload API handlers instance
func NewUploadAPIHandlers(uploadService inbound.UploadService, cfg *config.Config, logger *zap.Logger) *UploadAPIHandlers {
	return &UploadAPIHandlers{
		uploadService: uploadService,
		uploadConfig:  cfg.Upload,
		validate:      validator.New(),
		logger:        logger,
	}
}

type createURLUploadRequest struct {
	SourceType string `json:"source_type" validate:"required,oneof=url"`
	URL        string `json:"url" validate:"required,url"`
}

// CreateUpload handles POST /api/v1/restaurants/{restaurantID}/uploads.
// Accepts either a multipart form with a menu file or a JSON body naming a
// menu URL, then runs the pipeline synchronously.
func (h *UploadAPIHandlers) CreateUpload(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "restaurantID"))
	if err != nil {
		writeError(w, r, h.logger, apperrors.NewBadRequestError("invalid restaurantID"))
		return
	}

	var cmd inbound.CreateUploadCommand
	cmd.RestaurantID = restaurantID

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		sourceType, sourceValue, err := h.storeUploadedFile(r)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		cmd.SourceType = sourceType
		cmd.SourceValue = sourceValue
	} else {
		var req createURLUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, h.logger, apperrors.NewBadRequestError("invalid JSON body"))
			return
		}
		if err := h.validate.Struct(req); err != nil {
			writeError(w, r, h.logger, apperrors.NewValidationError(err.Error()))
			return
		}
		cmd.SourceType = req.SourceType
		cmd.SourceValue = req.URL
	}

	created, err := h.uploadService.CreateUpload(r.Context(), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	processed, err := h.uploadService.ProcessUpload(r.Context(), created.ID)
	if err != nil {
		// The upload record carries the failure state; return it alongside
		// the error status so clients see both.
		appErr := apperrors.Wrap(err, "upload processing failed")
		if failed, getErr := h.uploadService.GetUpload(r.Context(), created.ID); getErr == nil {
			writeJSON(w, h.logger, appErr.StatusCode(), APIResponse{Success: false, Data: failed, Message: appErr.Message})
			return
		}
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, APIResponse{Success: true, Data: processed})
}

// GetUpload handles GET /api/v1/uploads/{uploadID}
func (h *UploadAPIHandlers) GetUpload(w http.ResponseWriter, r *http.Request) {
	uploadID, err := uuid.Parse(chi.URLParam(r, "uploadID"))
	if err != nil {
		writeError(w, r, h.logger, apperrors.NewBadRequestError("invalid uploadID"))
		return
	}
	dto, err := h.uploadService.GetUpload(r.Context(), uploadID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: dto})
}

// ListUploads handles GET /api/v1/restaurants/{restaurantID}/uploads
func (h *UploadAPIHandlers) ListUploads(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "restaurantID"))
	if err != nil {
		writeError(w, r, h.logger, apperrors.NewBadRequestError("invalid restaurantID"))
		return
	}
	uploads, err := h.uploadService.ListUploads(r.Context(), restaurantID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: uploads})
}

// storeUploadedFile saves the multipart file under the upload directory and
// returns the inferred source type plus the stored path.
func (h *UploadAPIHandlers) storeUploadedFile(r *http.Request) (string, string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, h.uploadConfig.MaxFileSize)
	if err := r.ParseMultipartForm(h.uploadConfig.MaxFileSize); err != nil {
		return "", "", apperrors.NewBadRequestError("file upload is required")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", apperrors.NewBadRequestError("file upload is required")
	}
	defer file.Close()

	fileType := header.Header.Get("Content-Type")
	sourceType, err := h.sourceTypeFor(fileType)
	if err != nil {
		return "", "", err
	}

	if err := os.MkdirAll(h.uploadConfig.Dir, 0o755); err != nil {
		return "", "", apperrors.NewInternalError("failed to prepare upload directory").WithCause(err)
	}

	name := fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(header.Filename))
	path := filepath.Join(h.uploadConfig.Dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", "", apperrors.NewInternalError("failed to store upload").WithCause(err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", "", apperrors.NewInternalError("failed to store upload").WithCause(err)
	}

	h.logger.Info("menu file stored",
		zap.String("path", path),
		zap.String("content_type", fileType),
		zap.Int64("size", header.Size))

	return sourceType, path, nil
}

func (h *UploadAPIHandlers) sourceTypeFor(contentType string) (string, error) {
	allowed := false
	for _, t := range h.uploadConfig.AllowedTypes {
		if strings.EqualFold(t, contentType) {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", apperrors.NewValidationError(fmt.Sprintf("unsupported file type %q", contentType))
	}
	if contentType == "application/pdf" {
		return "pdf", nil
	}
	return "image", nil
}
