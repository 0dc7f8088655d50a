package jobs

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go4it-sports/media-engine/internal/models"
)

// AWSRepository is the object storage for source videos and job artifacts.
type AWSRepository interface {
	GetPresignedURL(ctx context.Context, input *models.UploadInput) (string, error)
	GetObject(ctx context.Context, bucket, key string) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, input models.UploadInput) (*s3.PutObjectOutput, error)
	RemoveObject(ctx context.Context, bucket, key string) error
}
