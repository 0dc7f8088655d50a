package models

import "io"

// UploadInput describes a source-video upload destined for the input bucket.
type UploadInput struct {
	File       io.Reader `json:"-"`
	Name       string    `json:"name" validate:"required,lte=255"`
	MimeType   string    `json:"mime_type" validate:"required"`
	Size       int64     `json:"size" validate:"required,gt=0"`
	Key        string    `json:"key" validate:"omitempty"`
	BucketName string    `json:"bucket_name" validate:"omitempty"`
}
