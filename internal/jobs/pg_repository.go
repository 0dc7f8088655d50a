package jobs

import (
	"context"

	"github.com/go4it-sports/media-engine/internal/models"
	"github.com/go4it-sports/media-engine/pkg/utils"
)

// Repository persists submitted jobs and their terminal outcomes.
type Repository interface {
	CreateJob(ctx context.Context, job *models.MediaJob) (*models.MediaJob, error)
	GetJobByID(ctx context.Context, jobID string) (*models.MediaJob, error)
	ListJobs(ctx context.Context, pagination *utils.Pagination) (*models.JobList, error)
	UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error
}
