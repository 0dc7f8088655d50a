package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go4it-sports/media-engine/internal/jobs"
	"github.com/go4it-sports/media-engine/internal/models"
)

var videoFileRe = regexp.MustCompile(`.+\.(mp4|mkv|avi|mov|wmv|flv|webm|m4v|mpeg|mpg|3gp|ogv|vob|ts|mxf)$`)

type awsRepository struct {
	client        *s3.Client
	preSignClient *s3.PresignClient
}

func NewAwsRepository(awsClient *s3.Client, preSignClient *s3.PresignClient) jobs.AWSRepository {
	return &awsRepository{
		preSignClient: preSignClient,
		client:        awsClient,
	}
}

func (a *awsRepository) GetPresignedURL(ctx context.Context, input *models.UploadInput) (string, error) {
	if !videoFileRe.MatchString(input.Name) {
		return "", fmt.Errorf("invalid file format: %s", input.Name)
	}
	putObjectReq, err := a.preSignClient.PresignPutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:        &input.BucketName,
			Key:           &input.Key,
			ContentLength: &input.Size,
			ContentType:   &input.MimeType,
		},
		s3.WithPresignExpires(60*time.Minute),
	)
	if err != nil {
		return "", fmt.Errorf("failed to presign put object : %w", err)
	}
	return putObjectReq.URL, nil
}

func (a *awsRepository) PutObject(ctx context.Context, input models.UploadInput) (*s3.PutObjectOutput, error) {
	res, err := a.client.PutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:        &input.BucketName,
			Key:           &input.Key,
			ContentType:   &input.MimeType,
			ContentLength: &input.Size,
			Body:          input.File,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file : %w", err)
	}
	return res, nil
}

func (a *awsRepository) GetObject(ctx context.Context, bucket, fileKey string) (*s3.GetObjectOutput, error) {
	res, err := a.client.GetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: &bucket,
			Key:    &fileKey,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to download file : %w", err)
	}
	return res, nil
}

func (a *awsRepository) RemoveObject(ctx context.Context, bucket, filename string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &filename,
	})
	if err != nil {
		return fmt.Errorf("failed to remove file : %w", err)
	}
	return nil
}
