package upload

import "strings"

// SourceType identifies the kind of document a menu upload was created from.
type SourceType string

const (
	SourcePDF   SourceType = "pdf"
	SourceImage SourceType = "image"
	SourceURL   SourceType = "url"
)

// ParseSourceType normalizes a raw source type value.
func ParseSourceType(value string) (SourceType, error) {
	switch SourceType(strings.ToLower(strings.TrimSpace(value))) {
	case SourcePDF:
		return SourcePDF, nil
	case SourceImage:
		return SourceImage, nil
	case SourceURL:
		return SourceURL, nil
	default:
		return "", ErrUnsupportedSourceType
	}
}

// Status is the overall lifecycle state of a menu upload.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// StageName identifies one discrete phase of the upload pipeline.
type StageName string

const (
	// StageIngest records that the source document was persisted.
	StageIngest StageName = "stage_0"
	// StageExtraction covers the LLM menu-item extraction call and the
	// draft recipes created from it.
	StageExtraction StageName = "stage_1"
	// StageDeduction covers the LLM ingredient deduction call and the
	// allergen links persisted from it.
	StageDeduction StageName = "stage_2"
)

// StageNames lists the pipeline stages in execution order.
var StageNames = []StageName{StageIngest, StageExtraction, StageDeduction}

// StageStatus is the lifecycle state of a single pipeline stage.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
	StageSkipped   StageStatus = "skipped"
)
