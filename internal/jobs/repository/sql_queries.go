package repository

const (
	jobColumns = `job_id, user_id, job_type, job_data, status, progress,
		COALESCE(error_message, '') AS error_message, submitted_at,
		COALESCE(started_at, 'epoch') AS started_at,
		COALESCE(completed_at, 'epoch') AS completed_at`

	createJobQuery = `INSERT INTO media_jobs (job_id, user_id, job_type, job_data, status, progress, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING ` + jobColumns

	getJobByIDQuery = `SELECT ` + jobColumns + `
		FROM media_jobs
		WHERE job_id = $1`

	getTotalJobsCount = `SELECT COUNT(job_id) FROM media_jobs`

	listJobsQuery = `SELECT ` + jobColumns + `
		FROM media_jobs
		ORDER BY submitted_at DESC
		OFFSET $1 LIMIT $2`

	updateJobStatusQuery = `UPDATE media_jobs
		SET status = $2,
		    error_message = NULLIF($3, ''),
		    started_at = CASE WHEN $2 = 'in_progress' THEN now() ELSE started_at END,
		    completed_at = CASE WHEN $2 IN ('completed', 'failed', 'cancelled') THEN now() ELSE completed_at END
		WHERE job_id = $1`
)
