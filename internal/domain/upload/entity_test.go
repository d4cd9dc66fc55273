package upload

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUpload(t *testing.T) *MenuUpload {
	t.Helper()
	u, err := NewMenuUpload(uuid.New(), nil, SourcePDF, "/var/uploads/menu.pdf")
	require.NoError(t, err)
	return u
}

func TestNewMenuUpload(t *testing.T) {
	t.Run("CreatesStageScaffolding", func(t *testing.T) {
		u := newTestUpload(t)

		assert.Equal(t, StatusProcessing, u.Status())
		require.Len(t, u.Stages(), 3)

		ingest, err := u.Stage(StageIngest)
		require.NoError(t, err)
		assert.Equal(t, StageCompleted, ingest.Status())
		assert.NotNil(t, ingest.CompletedAt())
		assert.NotNil(t, u.StageCompletedAt(StageIngest))

		var details map[string]any
		require.NoError(t, json.Unmarshal([]byte(ingest.Details()), &details))
		assert.Equal(t, "/var/uploads/menu.pdf", details["source"])

		extraction, err := u.Stage(StageExtraction)
		require.NoError(t, err)
		assert.Equal(t, StagePending, extraction.Status())

		deduction, err := u.Stage(StageDeduction)
		require.NoError(t, err)
		assert.Equal(t, StagePending, deduction.Status())
	})

	t.Run("RejectsMissingRestaurant", func(t *testing.T) {
		_, err := NewMenuUpload(uuid.Nil, nil, SourcePDF, "/tmp/x.pdf")
		assert.ErrorIs(t, err, ErrRestaurantRequired)
	})

	t.Run("RejectsEmptySource", func(t *testing.T) {
		_, err := NewMenuUpload(uuid.New(), nil, SourceURL, "")
		assert.ErrorIs(t, err, ErrSourceValueRequired)
	})

	t.Run("RejectsUnknownSourceType", func(t *testing.T) {
		_, err := NewMenuUpload(uuid.New(), nil, SourceType("docx"), "/tmp/x.docx")
		assert.ErrorIs(t, err, ErrUnsupportedSourceType)
	})
}

func TestStageTransitions(t *testing.T) {
	t.Run("BeginCompleteFlow", func(t *testing.T) {
		u := newTestUpload(t)

		require.NoError(t, u.BeginStage(StageExtraction))
		stage, _ := u.Stage(StageExtraction)
		assert.Equal(t, StageRunning, stage.Status())
		assert.NotNil(t, stage.StartedAt())

		require.NoError(t, u.CompleteStage(StageExtraction, map[string]any{"recipes_created": 4}))
		assert.Equal(t, StageCompleted, stage.Status())
		assert.NotNil(t, u.StageCompletedAt(StageExtraction))

		var details map[string]any
		require.NoError(t, json.Unmarshal([]byte(stage.Details()), &details))
		assert.EqualValues(t, 4, details["recipes_created"])
	})

	t.Run("FailStageFailsUpload", func(t *testing.T) {
		u := newTestUpload(t)

		require.NoError(t, u.BeginStage(StageExtraction))
		require.NoError(t, u.FailStage(StageExtraction, "extraction service timeout"))

		stage, _ := u.Stage(StageExtraction)
		assert.Equal(t, StageFailed, stage.Status())
		assert.Equal(t, "extraction service timeout", stage.ErrorMessage())
		assert.Equal(t, StatusFailed, u.Status())
		assert.Equal(t, "Stage 1 failed: extraction service timeout", u.ErrorMessage())

		// Deduction stage untouched
		deduction, _ := u.Stage(StageDeduction)
		assert.Equal(t, StagePending, deduction.Status())
	})

	t.Run("SkipStageIsNotFailure", func(t *testing.T) {
		u := newTestUpload(t)

		require.NoError(t, u.SkipStage(StageDeduction, "No recipes created in Stage 1"))
		require.NoError(t, u.Complete())

		stage, _ := u.Stage(StageDeduction)
		assert.Equal(t, StageSkipped, stage.Status())
		assert.Equal(t, StatusCompleted, u.Status())
	})

	t.Run("IllegalTransitionsRejected", func(t *testing.T) {
		u := newTestUpload(t)

		// Cannot complete a stage that never ran
		assert.ErrorIs(t, u.CompleteStage(StageExtraction, nil), ErrInvalidStageTransition)

		// Cannot begin a completed stage
		assert.ErrorIs(t, u.BeginStage(StageIngest), ErrInvalidStageTransition)

		// Cannot begin a running stage twice
		require.NoError(t, u.BeginStage(StageExtraction))
		assert.ErrorIs(t, u.BeginStage(StageExtraction), ErrInvalidStageTransition)

		// Cannot skip a running stage
		assert.ErrorIs(t, u.SkipStage(StageExtraction, "late"), ErrInvalidStageTransition)
	})

	t.Run("UnknownStage", func(t *testing.T) {
		u := newTestUpload(t)
		assert.ErrorIs(t, u.BeginStage(StageName("stage_9")), ErrStageNotFound)
	})
}

func TestCompleteClearsErrorMessage(t *testing.T) {
	u := newTestUpload(t)

	require.NoError(t, u.BeginStage(StageExtraction))
	require.NoError(t, u.CompleteStage(StageExtraction, nil))
	require.NoError(t, u.BeginStage(StageDeduction))
	require.NoError(t, u.CompleteStage(StageDeduction, nil))
	require.NoError(t, u.Complete())

	assert.Equal(t, StatusCompleted, u.Status())
	assert.Empty(t, u.ErrorMessage())
}

func TestAttachRecipe(t *testing.T) {
	u := newTestUpload(t)
	recipeID := uuid.New()

	require.NoError(t, u.AttachRecipe(recipeID, StageExtraction))
	assert.ErrorIs(t, u.AttachRecipe(recipeID, StageExtraction), ErrDuplicateRecipeLink)
	assert.Len(t, u.Recipes(), 1)
}

func TestReconstitute(t *testing.T) {
	original := newTestUpload(t)
	require.NoError(t, original.BeginStage(StageExtraction))
	require.NoError(t, original.CompleteStage(StageExtraction, map[string]any{"recipes_created": 2}))

	state := ReconstituteState{
		ID:           original.ID(),
		RestaurantID: original.RestaurantID(),
		SourceType:   original.SourceType(),
		SourceValue:  original.SourceValue(),
		Status:       original.Status(),
		CreatedAt:    original.CreatedAt(),
		UpdatedAt:    original.UpdatedAt(),
	}
	for _, s := range original.Stages() {
		state.Stages = append(state.Stages, ReconstituteStage{
			Name:        s.Name(),
			Status:      s.Status(),
			StartedAt:   s.StartedAt(),
			CompletedAt: s.CompletedAt(),
			Details:     s.Details(),
		})
	}

	rebuilt := Reconstitute(state)
	assert.Equal(t, original.ID(), rebuilt.ID())
	assert.Equal(t, original.Status(), rebuilt.Status())

	stage, err := rebuilt.Stage(StageExtraction)
	require.NoError(t, err)
	assert.Equal(t, StageCompleted, stage.Status())
}
