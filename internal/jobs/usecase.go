package jobs

import (
	"context"

	"github.com/go4it-sports/media-engine/internal/models"
	"github.com/go4it-sports/media-engine/pkg/utils"
)

type UseCase interface {
	SubmitJob(ctx context.Context, input *models.SubmitJobInput) (*models.MediaJob, error)
	GetJob(ctx context.Context, jobID string) (*models.MediaJob, error)
	ListJobs(ctx context.Context, pagination *utils.Pagination) (*models.JobList, error)
	CancelJob(ctx context.Context, jobID string) error

	GetPresignUpload(ctx context.Context, input *models.UploadInput) (string, error)
}
