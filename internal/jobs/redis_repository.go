package jobs

import (
	"context"

	"github.com/go4it-sports/media-engine/internal/models"
)

// RedisRepository is the job queue and the event channel between workers and
// job consumers.
type RedisRepository interface {
	EnqueueJob(ctx context.Context, key string, job *models.MediaJob) error
	DequeueJob(ctx context.Context, key string) (*models.MediaJob, error)

	UpdateProgress(ctx context.Context, jobID string, progress float64) error
	UpdateStatus(ctx context.Context, jobID string, status models.JobStatus) error
	GetJobState(ctx context.Context, jobID string) (models.JobStatus, float64, error)

	PublishEvent(ctx context.Context, event *models.JobEvent) error
	PublishCancel(ctx context.Context, jobID string) error
	// SubscribeCancel delivers at most one signal when the job is
	// cancelled. The returned stop function releases the subscription.
	SubscribeCancel(ctx context.Context, jobID string) (<-chan struct{}, func(), error)
}
