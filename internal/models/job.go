package models

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether the status ends a job's lifecycle.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

type JobType string

const (
	JobTypeVideoProcessing     JobType = "video-processing"
	JobTypeHighlightGeneration JobType = "highlight-generation"
)

// MediaJob is the unit of work consumed by a worker. JobData is decoded per
// JobType into VideoProcessingData or HighlightData.
type MediaJob struct {
	JobID       string          `json:"job_id" db:"job_id" redis:"job_id" validate:"omitempty"`
	UserID      string          `json:"user_id" db:"user_id" redis:"user_id" validate:"omitempty"`
	JobType     JobType         `json:"job_type" db:"job_type" redis:"job_type" validate:"required,oneof=video-processing highlight-generation"`
	JobData     json.RawMessage `json:"job_data" db:"job_data" redis:"job_data" validate:"required"`
	Status      JobStatus       `json:"status" db:"status" redis:"status" validate:"omitempty"`
	Progress    float64         `json:"progress" db:"progress" redis:"progress" validate:"omitempty"`
	Error       string          `json:"error,omitempty" db:"error_message" redis:"error_message" validate:"omitempty"`
	SubmittedAt time.Time       `json:"submitted_at" db:"submitted_at" redis:"submitted_at" validate:"omitempty"`
	StartedAt   time.Time       `json:"started_at" db:"started_at" redis:"started_at" validate:"omitempty"`
	CompletedAt time.Time       `json:"completed_at" db:"completed_at" redis:"completed_at" validate:"omitempty"`
}

type CompressionSettings struct {
	Quality    string `json:"quality" validate:"omitempty,oneof=low medium high"`
	Resolution string `json:"resolution" validate:"omitempty"`
	Bitrate    string `json:"bitrate" validate:"omitempty"`
}

type ProcessingOptions struct {
	ExtractFrames       bool                 `json:"extractFrames"`
	FrameRate           float64              `json:"frameRate" validate:"omitempty,gt=0"`
	CompressVideo       bool                 `json:"compressVideo"`
	CompressionSettings *CompressionSettings `json:"compressionSettings" validate:"omitempty"`
	ExtractAudio        bool                 `json:"extractAudio"`
}

// VideoProcessingData is the payload for JobTypeVideoProcessing. When
// InputS3Key is set the worker downloads the source from S3 before the run;
// otherwise VideoPath must point at a local file.
type VideoProcessingData struct {
	VideoPath    string            `json:"videoPath" validate:"required"`
	OutputDir    string            `json:"outputDir" validate:"required"`
	Options      ProcessingOptions `json:"options"`
	InputS3Key   string            `json:"input_s3_key,omitempty" validate:"omitempty"`
	InputBucket  string            `json:"input_bucket,omitempty" validate:"omitempty"`
	UploadBucket string            `json:"upload_bucket,omitempty" validate:"omitempty"`
}

type HighlightOptions struct {
	OutputDir      string  `json:"outputDir" validate:"omitempty"`
	HighlightCount int     `json:"highlightCount" validate:"omitempty,gt=0"`
	MinDuration    float64 `json:"minDuration" validate:"omitempty,gt=0"`
	MaxDuration    float64 `json:"maxDuration" validate:"omitempty,gt=0"`
}

// HighlightData is the payload for JobTypeHighlightGeneration.
type HighlightData struct {
	VideoID      string           `json:"videoId" validate:"required"`
	VideoPath    string           `json:"videoPath" validate:"required"`
	GARAnalysis  *GARAnalysis     `json:"garAnalysis" validate:"required"`
	Options      HighlightOptions `json:"options"`
	InputS3Key   string           `json:"input_s3_key,omitempty" validate:"omitempty"`
	InputBucket  string           `json:"input_bucket,omitempty" validate:"omitempty"`
	UploadBucket string           `json:"upload_bucket,omitempty" validate:"omitempty"`
}

type JobEventType string

const (
	EventProgress JobEventType = "progress"
	EventComplete JobEventType = "complete"
	EventError    JobEventType = "error"
)

// JobEvent is published on the per-job event channel. Exactly one of
// EventComplete or EventError is emitted per run; EventProgress any number
// of times before that.
type JobEvent struct {
	Type     JobEventType `json:"type"`
	JobID    string       `json:"jobId"`
	Progress int          `json:"progress,omitempty"`
	Result   any          `json:"result,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// VideoProcessingResult is the terminal payload of a video-processing job.
type VideoProcessingResult struct {
	Metadata        *MediaMetadata `json:"metadata"`
	ProcessedFiles  []string       `json:"processedFiles"`
	OriginalPath    string         `json:"originalPath"`
	OutputPath      string         `json:"outputPath"`
	Frames          []string       `json:"frames,omitempty"`
	CompressedVideo string         `json:"compressedVideo,omitempty"`
	AudioPath       string         `json:"audioPath,omitempty"`
}

// HighlightResult is the terminal payload of a highlight-generation job.
type HighlightResult struct {
	VideoID       string  `json:"videoId"`
	HighlightPath string  `json:"highlightPath"`
	MetadataPath  string  `json:"metadataPath"`
	KeyMoments    int     `json:"keyMoments"`
	Duration      float64 `json:"duration"`
	ThumbnailPath string  `json:"thumbnailPath"`
}

type JobList struct {
	Jobs       []*MediaJob `json:"jobs"`
	TotalCount int         `json:"total_count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	HasMore    bool        `json:"has_more"`
}

// SubmitJobInput is the API payload for creating a job.
type SubmitJobInput struct {
	JobType JobType         `json:"job_type" validate:"required,oneof=video-processing highlight-generation"`
	JobData json.RawMessage `json:"job_data" validate:"required"`
}
