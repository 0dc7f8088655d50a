package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go4it-sports/media-engine/internal/jobs"
	"github.com/go4it-sports/media-engine/internal/models"
	"github.com/pkg/errors"
)

const (
	jobProgressPrefix = "jobs:progress:"
	jobEventsPrefix   = "jobs:events:"
	jobCancelPrefix   = "jobs:cancel:"

	progressKeyTTL = 24 * time.Hour
)

type jobRedisRepo struct {
	redisClient *redis.Client
}

func NewJobRedisRepo(redisClient *redis.Client) jobs.RedisRepository {
	return &jobRedisRepo{
		redisClient: redisClient,
	}
}

func (r *jobRedisRepo) EnqueueJob(ctx context.Context, key string, job *models.MediaJob) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "jobRedisRepo.EnqueueJob.Marshal")
	}

	pipe := r.redisClient.Pipeline()
	pipe.LPush(ctx, key, jobData)
	pipe.HSet(ctx, jobProgressPrefix+job.JobID, map[string]interface{}{
		"status":   string(models.JobStatusQueued),
		"progress": 0,
	})
	pipe.Expire(ctx, jobProgressPrefix+job.JobID, progressKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "jobRedisRepo.EnqueueJob.Exec")
	}
	return nil
}

func (r *jobRedisRepo) DequeueJob(ctx context.Context, key string) (*models.MediaJob, error) {
	res, err := r.redisClient.BLPop(ctx, 0*time.Second, key).Result()
	if err != nil {
		return nil, err
	}
	job := &models.MediaJob{}
	if err = json.Unmarshal([]byte(res[1]), job); err != nil {
		return nil, errors.Wrap(err, "jobRedisRepo.DequeueJob.Unmarshal")
	}

	// A cancel issued while the job sat in the queue only updates the
	// state hash; surface it instead of flipping the job back to running.
	if status, _, err := r.GetJobState(ctx, job.JobID); err == nil && status == models.JobStatusCancelled {
		job.Status = models.JobStatusCancelled
		return job, nil
	}

	job.StartedAt = time.Now()
	job.Status = models.JobStatusProcessing
	if err := r.UpdateStatus(ctx, job.JobID, models.JobStatusProcessing); err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRedisRepo) UpdateProgress(ctx context.Context, jobID string, progress float64) error {
	if err := r.redisClient.HSet(ctx, jobProgressPrefix+jobID, "progress", progress).Err(); err != nil {
		return errors.Wrap(err, "jobRedisRepo.UpdateProgress")
	}
	return nil
}

func (r *jobRedisRepo) UpdateStatus(ctx context.Context, jobID string, status models.JobStatus) error {
	if err := r.redisClient.HSet(ctx, jobProgressPrefix+jobID, "status", string(status)).Err(); err != nil {
		return errors.Wrap(err, "jobRedisRepo.UpdateStatus")
	}
	return nil
}

func (r *jobRedisRepo) GetJobState(ctx context.Context, jobID string) (models.JobStatus, float64, error) {
	values, err := r.redisClient.HGetAll(ctx, jobProgressPrefix+jobID).Result()
	if err != nil {
		return "", 0, errors.Wrap(err, "jobRedisRepo.GetJobState")
	}
	if len(values) == 0 {
		return "", 0, redis.Nil
	}

	status := models.JobStatus(values["status"])
	var progress float64
	if raw, ok := values["progress"]; ok {
		if err := json.Unmarshal([]byte(raw), &progress); err != nil {
			progress = 0
		}
	}
	return status, progress, nil
}

func (r *jobRedisRepo) PublishEvent(ctx context.Context, event *models.JobEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "jobRedisRepo.PublishEvent.Marshal")
	}
	if err := r.redisClient.Publish(ctx, jobEventsPrefix+event.JobID, payload).Err(); err != nil {
		return errors.Wrap(err, "jobRedisRepo.PublishEvent.Publish")
	}
	return nil
}

func (r *jobRedisRepo) PublishCancel(ctx context.Context, jobID string) error {
	if err := r.redisClient.Publish(ctx, jobCancelPrefix+jobID, "cancel").Err(); err != nil {
		return errors.Wrap(err, "jobRedisRepo.PublishCancel")
	}
	return nil
}

func (r *jobRedisRepo) SubscribeCancel(ctx context.Context, jobID string) (<-chan struct{}, func(), error) {
	pubsub := r.redisClient.Subscribe(ctx, jobCancelPrefix+jobID)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, errors.Wrap(err, "jobRedisRepo.SubscribeCancel")
	}

	cancelCh := make(chan struct{}, 1)
	go func() {
		defer close(cancelCh)
		ch := pubsub.Channel()
		select {
		case <-ctx.Done():
		case _, ok := <-ch:
			if ok {
				cancelCh <- struct{}{}
			}
		}
	}()

	stop := func() {
		pubsub.Close()
	}
	return cancelCh, stop, nil
}
