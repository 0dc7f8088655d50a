package usecase

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/go4it-sports/media-engine/internal/config"
	"github.com/go4it-sports/media-engine/internal/jobs"
	"github.com/go4it-sports/media-engine/internal/models"
	"github.com/go4it-sports/media-engine/pkg/logger"
	"github.com/go4it-sports/media-engine/pkg/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type jobsUC struct {
	cfg       *config.Config
	jobsRepo  jobs.Repository
	redisRepo jobs.RedisRepository
	awsRepo   jobs.AWSRepository
	logger    logger.Logger
}

func NewJobsUseCase(cfg *config.Config, jobsRepo jobs.Repository, redisRepo jobs.RedisRepository, awsRepo jobs.AWSRepository, logger logger.Logger) jobs.UseCase {
	return &jobsUC{
		cfg:       cfg,
		jobsRepo:  jobsRepo,
		redisRepo: redisRepo,
		awsRepo:   awsRepo,
		logger:    logger,
	}
}

func (u *jobsUC) SubmitJob(ctx context.Context, input *models.SubmitJobInput) (*models.MediaJob, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, errors.Wrap(err, "jobsUC.SubmitJob.ValidateStruct")
	}
	if err := validateJobData(ctx, input.JobType, input.JobData); err != nil {
		return nil, err
	}

	job := &models.MediaJob{
		JobID:   uuid.New().String(),
		JobType: input.JobType,
		JobData: input.JobData,
		Status:  models.JobStatusQueued,
	}

	createdJob, err := u.jobsRepo.CreateJob(ctx, job)
	if err != nil {
		return nil, err
	}
	if err := u.redisRepo.EnqueueJob(ctx, u.cfg.Redis.JobQueueKey, createdJob); err != nil {
		return nil, err
	}
	u.logger.Infof("submitted job %s type %s", createdJob.JobID, createdJob.JobType)
	return createdJob, nil
}

// validateJobData decodes the raw payload against the schema of its job type.
// Unknown fields are rejected so a mistyped option fails at submission rather
// than silently at run time.
func validateJobData(ctx context.Context, jobType models.JobType, raw json.RawMessage) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	switch jobType {
	case models.JobTypeVideoProcessing:
		data := &models.VideoProcessingData{}
		if err := dec.Decode(data); err != nil {
			return errors.Wrap(err, "jobsUC.validateJobData.Decode")
		}
		return utils.ValidateStruct(ctx, data)
	case models.JobTypeHighlightGeneration:
		data := &models.HighlightData{}
		if err := dec.Decode(data); err != nil {
			return errors.Wrap(err, "jobsUC.validateJobData.Decode")
		}
		return utils.ValidateStruct(ctx, data)
	default:
		return errors.Errorf("unsupported job type: %s", jobType)
	}
}

func (u *jobsUC) GetJob(ctx context.Context, jobID string) (*models.MediaJob, error) {
	job, err := u.jobsRepo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	// The row only carries terminal state; live status and progress come
	// from the worker's redis hash.
	status, progress, err := u.redisRepo.GetJobState(ctx, jobID)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			u.logger.Warnf("job state lookup failed for %s: %v", jobID, err)
		}
		return job, nil
	}
	if !job.Status.IsTerminal() {
		job.Status = status
		job.Progress = progress
	}
	return job, nil
}

func (u *jobsUC) ListJobs(ctx context.Context, pagination *utils.Pagination) (*models.JobList, error) {
	return u.jobsRepo.ListJobs(ctx, pagination)
}

func (u *jobsUC) CancelJob(ctx context.Context, jobID string) error {
	job, err := u.jobsRepo.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return errors.Errorf("job %s already %s", jobID, job.Status)
	}

	if err := u.redisRepo.PublishCancel(ctx, jobID); err != nil {
		return err
	}
	if err := u.redisRepo.UpdateStatus(ctx, jobID, models.JobStatusCancelled); err != nil {
		return err
	}
	if err := u.jobsRepo.UpdateJobStatus(ctx, jobID, models.JobStatusCancelled, ""); err != nil {
		return err
	}
	u.logger.Infof("cancelled job %s", jobID)
	return nil
}

func (u *jobsUC) GetPresignUpload(ctx context.Context, input *models.UploadInput) (string, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return "", errors.Wrap(err, "jobsUC.GetPresignUpload.ValidateStruct")
	}
	if input.BucketName == "" {
		input.BucketName = u.cfg.S3.InputBucket
	}
	if input.Key == "" {
		input.Key = input.Name
	}
	return u.awsRepo.GetPresignedURL(ctx, input)
}
