// Package upload contains the core domain logic for the menu upload
// pipeline. The MenuUpload aggregate owns the per-stage state machine:
// stages are created once at upload time and mutated in place as the
// pipeline advances, never re-created.
package upload

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Stage is one discrete phase of the pipeline with its own status, timing,
// and diagnostics. Details is a JSON-encoded payload for operator
// visibility only; it is not part of any external contract.
type Stage struct {
	name         StageName
	status       StageStatus
	startedAt    *time.Time
	completedAt  *time.Time
	errorMessage string
	details      string
}

// Name returns the stage identifier.
func (s *Stage) Name() StageName { return s.name }

// Status returns the stage's current status.
func (s *Stage) Status() StageStatus { return s.status }

// StartedAt returns when the stage began running.
func (s *Stage) StartedAt() *time.Time { return s.startedAt }

// CompletedAt returns when the stage reached a terminal status.
func (s *Stage) CompletedAt() *time.Time { return s.completedAt }

// ErrorMessage returns the captured failure text.
func (s *Stage) ErrorMessage() string { return s.errorMessage }

// Details returns the JSON-encoded diagnostic payload.
func (s *Stage) Details() string { return s.details }

func (s *Stage) setDetails(details map[string]any) {
	if details == nil {
		return
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		return
	}
	s.details = string(encoded)
}

// RecipeLink records the provenance of a recipe created during the pipeline.
type RecipeLink struct {
	RecipeID uuid.UUID
	Stage    StageName
}

// MenuUpload is the aggregate root for one ingestion request. It is created
// once, mutated by the orchestrator as stages progress, and never deleted by
// the pipeline itself.
type MenuUpload struct {
	id           uuid.UUID
	restaurantID uuid.UUID
	userID       *uuid.UUID
	sourceType   SourceType
	sourceValue  string
	status       Status
	errorMessage string

	stage0CompletedAt *time.Time
	stage1CompletedAt *time.Time
	stage2CompletedAt *time.Time

	stages  map[StageName]*Stage
	recipes []RecipeLink

	createdAt time.Time
	updatedAt time.Time
}

// NewMenuUpload creates an upload with scaffolding for all three stages.
// Stage 0 is synthetically completed: the source is already persisted by the
// time the aggregate exists, so there is no external call to make.
func NewMenuUpload(restaurantID uuid.UUID, userID *uuid.UUID, sourceType SourceType, sourceValue string) (*MenuUpload, error) {
	if restaurantID == uuid.Nil {
		return nil, ErrRestaurantRequired
	}
	if sourceValue == "" {
		return nil, ErrSourceValueRequired
	}
	if _, err := ParseSourceType(string(sourceType)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &MenuUpload{
		id:           uuid.New(),
		restaurantID: restaurantID,
		userID:       userID,
		sourceType:   sourceType,
		sourceValue:  sourceValue,
		status:       StatusProcessing,
		stages:       make(map[StageName]*Stage, len(StageNames)),
		createdAt:    now,
		updatedAt:    now,
	}

	for _, name := range StageNames {
		u.stages[name] = &Stage{name: name, status: StagePending}
	}

	ingest := u.stages[StageIngest]
	ingest.status = StageCompleted
	ingest.completedAt = &now
	ingest.setDetails(map[string]any{"source": sourceValue})
	u.stage0CompletedAt = &now

	return u, nil
}

// ID returns the upload's unique identifier.
func (u *MenuUpload) ID() uuid.UUID { return u.id }

// RestaurantID returns the owning restaurant.
func (u *MenuUpload) RestaurantID() uuid.UUID { return u.restaurantID }

// UserID returns the submitting user, if known.
func (u *MenuUpload) UserID() *uuid.UUID { return u.userID }

// SourceType returns the kind of source document.
func (u *MenuUpload) SourceType() SourceType { return u.sourceType }

// SourceValue returns the stored file path or URL.
func (u *MenuUpload) SourceValue() string { return u.sourceValue }

// Status returns the upload's overall status.
func (u *MenuUpload) Status() Status { return u.status }

// ErrorMessage returns the upload-level failure text.
func (u *MenuUpload) ErrorMessage() string { return u.errorMessage }

// CreatedAt returns the creation timestamp.
func (u *MenuUpload) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt returns the last mutation timestamp.
func (u *MenuUpload) UpdatedAt() time.Time { return u.updatedAt }

// StageCompletedAt returns the per-upload completion timestamp for a stage.
func (u *MenuUpload) StageCompletedAt(name StageName) *time.Time {
	switch name {
	case StageIngest:
		return u.stage0CompletedAt
	case StageExtraction:
		return u.stage1CompletedAt
	case StageDeduction:
		return u.stage2CompletedAt
	}
	return nil
}

// Stage returns the stage record for a name.
func (u *MenuUpload) Stage(name StageName) (*Stage, error) {
	stage, ok := u.stages[name]
	if !ok {
		return nil, ErrStageNotFound
	}
	return stage, nil
}

// Stages returns the stage records in execution order.
func (u *MenuUpload) Stages() []*Stage {
	out := make([]*Stage, 0, len(StageNames))
	for _, name := range StageNames {
		if stage, ok := u.stages[name]; ok {
			out = append(out, stage)
		}
	}
	return out
}

// Recipes returns the provenance links in attachment order.
func (u *MenuUpload) Recipes() []RecipeLink { return u.recipes }

// BeginStage transitions a stage from pending to running.
func (u *MenuUpload) BeginStage(name StageName) error {
	stage, err := u.Stage(name)
	if err != nil {
		return err
	}
	if stage.status != StagePending {
		return ErrInvalidStageTransition
	}
	now := time.Now().UTC()
	stage.status = StageRunning
	stage.startedAt = &now
	u.touch(now)
	return nil
}

// CompleteStage transitions a running stage to completed, recording its
// diagnostic payload and the upload-level completion timestamp.
func (u *MenuUpload) CompleteStage(name StageName, details map[string]any) error {
	stage, err := u.Stage(name)
	if err != nil {
		return err
	}
	if stage.status != StageRunning {
		return ErrInvalidStageTransition
	}
	now := time.Now().UTC()
	stage.status = StageCompleted
	stage.completedAt = &now
	stage.setDetails(details)
	u.setStageCompletedAt(name, now)
	u.touch(now)
	return nil
}

// FailStage transitions a running stage to failed and records the upload as
// failed with the stage's error context.
func (u *MenuUpload) FailStage(name StageName, message string) error {
	stage, err := u.Stage(name)
	if err != nil {
		return err
	}
	if stage.status != StageRunning {
		return ErrInvalidStageTransition
	}
	now := time.Now().UTC()
	stage.status = StageFailed
	stage.completedAt = &now
	stage.errorMessage = message
	u.status = StatusFailed
	u.errorMessage = stageFailureMessage(name, message)
	u.touch(now)
	return nil
}

// SkipStage transitions a pending stage to skipped. Skipping is not a
// failure: an upload with a skipped deduction stage still completes.
func (u *MenuUpload) SkipStage(name StageName, reason string) error {
	stage, err := u.Stage(name)
	if err != nil {
		return err
	}
	if stage.status != StagePending {
		return ErrInvalidStageTransition
	}
	now := time.Now().UTC()
	stage.status = StageSkipped
	stage.completedAt = &now
	stage.setDetails(map[string]any{"reason": reason})
	u.setStageCompletedAt(name, now)
	u.touch(now)
	return nil
}

// Complete marks the upload as completed and clears any prior error message.
func (u *MenuUpload) Complete() error {
	if u.status == StatusCompleted || u.status == StatusFailed {
		return ErrUploadAlreadyTerminal
	}
	u.status = StatusCompleted
	u.errorMessage = ""
	u.touch(time.Now().UTC())
	return nil
}

// AttachRecipe records provenance for a recipe created during a stage.
func (u *MenuUpload) AttachRecipe(recipeID uuid.UUID, stage StageName) error {
	for _, link := range u.recipes {
		if link.RecipeID == recipeID {
			return ErrDuplicateRecipeLink
		}
	}
	u.recipes = append(u.recipes, RecipeLink{RecipeID: recipeID, Stage: stage})
	u.touch(time.Now().UTC())
	return nil
}

func (u *MenuUpload) setStageCompletedAt(name StageName, at time.Time) {
	switch name {
	case StageIngest:
		u.stage0CompletedAt = &at
	case StageExtraction:
		u.stage1CompletedAt = &at
	case StageDeduction:
		u.stage2CompletedAt = &at
	}
}

func (u *MenuUpload) touch(at time.Time) {
	u.updatedAt = at
}

func stageFailureMessage(name StageName, message string) string {
	switch name {
	case StageExtraction:
		return "Stage 1 failed: " + message
	case StageDeduction:
		return "Stage 2 failed: " + message
	default:
		return "Stage 0 failed: " + message
	}
}

// ReconstituteState carries persisted state back into the aggregate.
// Repositories use it to rebuild uploads without replaying transitions.
type ReconstituteState struct {
	ID                uuid.UUID
	RestaurantID      uuid.UUID
	UserID            *uuid.UUID
	SourceType        SourceType
	SourceValue       string
	Status            Status
	ErrorMessage      string
	Stage0CompletedAt *time.Time
	Stage1CompletedAt *time.Time
	Stage2CompletedAt *time.Time
	Stages            []ReconstituteStage
	Recipes           []RecipeLink
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ReconstituteStage is the persisted form of one stage record.
type ReconstituteStage struct {
	Name         StageName
	Status       StageStatus
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	Details      string
}

// Reconstitute rebuilds an aggregate from persisted state.
func Reconstitute(state ReconstituteState) *MenuUpload {
	u := &MenuUpload{
		id:                state.ID,
		restaurantID:      state.RestaurantID,
		userID:            state.UserID,
		sourceType:        state.SourceType,
		sourceValue:       state.SourceValue,
		status:            state.Status,
		errorMessage:      state.ErrorMessage,
		stage0CompletedAt: state.Stage0CompletedAt,
		stage1CompletedAt: state.Stage1CompletedAt,
		stage2CompletedAt: state.Stage2CompletedAt,
		stages:            make(map[StageName]*Stage, len(state.Stages)),
		recipes:           state.Recipes,
		createdAt:         state.CreatedAt,
		updatedAt:         state.UpdatedAt,
	}
	for _, s := range state.Stages {
		u.stages[s.Name] = &Stage{
			name:         s.Name,
			status:       s.Status,
			startedAt:    s.StartedAt,
			completedAt:  s.CompletedAt,
			errorMessage: s.ErrorMessage,
			details:      s.Details,
		}
	}
	return u
}
