package repository

import (
	"context"

	"github.com/go4it-sports/media-engine/internal/jobs"
	"github.com/go4it-sports/media-engine/internal/models"
	"github.com/go4it-sports/media-engine/pkg/utils"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type jobRepo struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) jobs.Repository {
	return &jobRepo{db: db}
}

func (r *jobRepo) CreateJob(ctx context.Context, job *models.MediaJob) (*models.MediaJob, error) {
	createdJob := &models.MediaJob{}
	if err := r.db.QueryRowxContext(ctx, createJobQuery,
		job.JobID,
		job.UserID,
		job.JobType,
		job.JobData,
		job.Status,
		job.Progress,
	).StructScan(createdJob); err != nil {
		return nil, errors.Wrap(err, "jobRepo.CreateJob.StructScan")
	}
	return createdJob, nil
}

func (r *jobRepo) GetJobByID(ctx context.Context, jobID string) (*models.MediaJob, error) {
	job := &models.MediaJob{}
	if err := r.db.GetContext(ctx, job, getJobByIDQuery, jobID); err != nil {
		return nil, errors.Wrap(err, "jobRepo.GetJobByID.GetContext")
	}
	return job, nil
}

func (r *jobRepo) ListJobs(ctx context.Context, pq *utils.Pagination) (*models.JobList, error) {
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, getTotalJobsCount); err != nil {
		return nil, errors.Wrap(err, "jobRepo.ListJobs.GetTotalCount")
	}

	if totalCount == 0 {
		return &models.JobList{
			Jobs:       make([]*models.MediaJob, 0),
			TotalCount: totalCount,
			Page:       pq.GetPage(),
			PageSize:   pq.GetSize(),
			HasMore:    utils.GetHasMore(pq.GetPage(), totalCount, pq.GetSize()),
		}, nil
	}

	rows, err := r.db.QueryxContext(ctx, listJobsQuery, pq.GetOffset(), pq.GetLimit())
	if err != nil {
		return nil, errors.Wrap(err, "jobRepo.ListJobs.QueryxContext")
	}
	defer rows.Close()

	jobList := make([]*models.MediaJob, 0, pq.GetSize())
	for rows.Next() {
		job := &models.MediaJob{}
		if err := rows.StructScan(job); err != nil {
			return nil, errors.Wrap(err, "jobRepo.ListJobs.StructScan")
		}
		jobList = append(jobList, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "jobRepo.ListJobs.rows.Err")
	}

	return &models.JobList{
		Jobs:       jobList,
		TotalCount: totalCount,
		Page:       pq.GetPage(),
		PageSize:   pq.GetSize(),
		HasMore:    utils.GetHasMore(pq.GetPage(), totalCount, pq.GetSize()),
	}, nil
}

func (r *jobRepo) UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error {
	result, err := r.db.ExecContext(ctx, updateJobStatusQuery, jobID, status, errMsg)
	if err != nil {
		return errors.Wrap(err, "jobRepo.UpdateJobStatus.ExecContext")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "jobRepo.UpdateJobStatus.RowsAffected")
	}
	if affected == 0 {
		return errors.Errorf("jobRepo.UpdateJobStatus: job %s not found", jobID)
	}
	return nil
}
