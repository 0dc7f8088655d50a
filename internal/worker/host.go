package worker

import (
	"context"
	"encoding/json"
	"math"
	"sync"

	"github.com/go4it-sports/media-engine/internal/jobs"
	"github.com/go4it-sports/media-engine/internal/models"
	"github.com/go4it-sports/media-engine/pkg/logger"
	"github.com/pkg/errors"
)

// JobHost is the execution context of a single job run. It owns the three
// outbound signals (progress, complete, error), guarantees exactly one
// terminal signal per run wherever a failure originates, and tears the job
// down on an inbound cancel.
//
// State machine: Initialized -> Running -> {Completed | Failed | Cancelled}.
type JobHost struct {
	job         *models.MediaJob
	jobsRepo    jobs.Repository
	redisRepo   jobs.RedisRepository
	prober      MediaProber
	transformer MediaTransformer
	cgroup      *jobCgroup
	extractor   *MomentExtractor
	logger      logger.Logger

	mu        sync.Mutex
	terminal  bool
	cancelled bool
	succeeded bool
	result    any
}

// HostDeps carries everything a JobHost needs beyond the job itself.
type HostDeps struct {
	JobsRepo    jobs.Repository
	RedisRepo   jobs.RedisRepository
	Prober      MediaProber
	Transformer MediaTransformer
	Cgroup      *jobCgroup
	Extractor   *MomentExtractor
	Logger      logger.Logger
}

func NewJobHost(job *models.MediaJob, deps HostDeps) *JobHost {
	return &JobHost{
		job:         job,
		jobsRepo:    deps.JobsRepo,
		redisRepo:   deps.RedisRepo,
		prober:      deps.Prober,
		transformer: deps.Transformer,
		cgroup:      deps.Cgroup,
		extractor:   deps.Extractor,
		logger:      deps.Logger,
	}
}

// Run executes the job to a terminal state. The returned error reports
// infrastructure problems only; job-level failures are surfaced through the
// error event and a nil return.
func (h *JobHost) Run(ctx context.Context) error {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	cancelCh, stopSub, err := h.redisRepo.SubscribeCancel(ctx, h.job.JobID)
	if err != nil {
		return errors.Wrap(err, "JobHost.Run.SubscribeCancel")
	}
	defer stopSub()

	go func() {
		if _, ok := <-cancelCh; !ok {
			return
		}
		h.mu.Lock()
		if h.terminal {
			h.mu.Unlock()
			return
		}
		h.cancelled = true
		h.terminal = true
		h.mu.Unlock()

		h.logger.Infof("job %s cancelled, tearing down", h.job.JobID)
		cancelRun()
		if h.cgroup != nil {
			h.cgroup.Kill()
		}
	}()

	defer func() {
		if h.cgroup != nil {
			h.cgroup.Close()
		}
	}()
	// Uncaught panics anywhere in the job's call tree surface as a single
	// error event rather than killing the worker.
	defer func() {
		if r := recover(); r != nil {
			h.Fail(errors.Errorf("job panicked: %v", r))
		}
	}()

	result, err := h.dispatch(runCtx)

	h.mu.Lock()
	wasCancelled := h.cancelled
	h.mu.Unlock()
	if wasCancelled {
		// Cancellation emits no terminal event; the canceller already
		// recorded the state.
		h.markCancelled(ctx)
		return nil
	}

	if err != nil {
		h.Fail(err)
		return nil
	}
	h.Complete(result)
	return nil
}

func (h *JobHost) dispatch(ctx context.Context) (any, error) {
	switch h.job.JobType {
	case models.JobTypeVideoProcessing:
		data := &models.VideoProcessingData{}
		if err := json.Unmarshal(h.job.JobData, data); err != nil {
			return nil, errors.Wrap(err, "invalid video-processing payload")
		}
		proc := NewVideoProcessor(h.prober, h.transformer, h.logger)
		return proc.Process(ctx, data, h)
	case models.JobTypeHighlightGeneration:
		data := &models.HighlightData{}
		if err := json.Unmarshal(h.job.JobData, data); err != nil {
			return nil, errors.Wrap(err, "invalid highlight-generation payload")
		}
		gen := NewHighlightGenerator(h.prober, h.transformer, h.extractor, h.logger)
		return gen.Process(ctx, data, h)
	default:
		return nil, errors.Errorf("unsupported job type: %s", h.job.JobType)
	}
}

// ReportProgress publishes a progress event and refreshes the live progress
// hash. A non-nil status rides along on the event unchanged. Calls after a
// terminal signal are dropped.
func (h *JobHost) ReportProgress(progress float64, status any) {
	h.mu.Lock()
	if h.terminal {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	ctx := context.Background()
	if err := h.redisRepo.UpdateProgress(ctx, h.job.JobID, progress); err != nil {
		h.logger.Warnf("job %s: progress update failed: %v", h.job.JobID, err)
	}
	if err := h.redisRepo.PublishEvent(ctx, &models.JobEvent{
		Type:     models.EventProgress,
		JobID:    h.job.JobID,
		Progress: int(math.Round(progress)),
		Result:   status,
	}); err != nil {
		h.logger.Warnf("job %s: progress event failed: %v", h.job.JobID, err)
	}
}

// Complete emits the completion event. At most one terminal signal is emitted
// per run.
func (h *JobHost) Complete(result any) {
	if !h.enterTerminal() {
		return
	}
	h.mu.Lock()
	h.succeeded = true
	h.result = result
	h.mu.Unlock()
	ctx := context.Background()
	if err := h.redisRepo.UpdateStatus(ctx, h.job.JobID, models.JobStatusCompleted); err != nil {
		h.logger.Warnf("job %s: status update failed: %v", h.job.JobID, err)
	}
	if err := h.redisRepo.PublishEvent(ctx, &models.JobEvent{
		Type:     models.EventComplete,
		JobID:    h.job.JobID,
		Progress: 100,
		Result:   result,
	}); err != nil {
		h.logger.Warnf("job %s: complete event failed: %v", h.job.JobID, err)
	}
	if err := h.jobsRepo.UpdateJobStatus(ctx, h.job.JobID, models.JobStatusCompleted, ""); err != nil {
		h.logger.Warnf("job %s: persist completed failed: %v", h.job.JobID, err)
	}
	h.logger.Infof("job %s completed", h.job.JobID)
}

// Fail logs the failure and emits the error event. At most one terminal
// signal is emitted per run.
func (h *JobHost) Fail(err error) {
	if !h.enterTerminal() {
		return
	}
	h.logger.Errorf("job %s failed: %v", h.job.JobID, err)
	ctx := context.Background()
	if uerr := h.redisRepo.UpdateStatus(ctx, h.job.JobID, models.JobStatusFailed); uerr != nil {
		h.logger.Warnf("job %s: status update failed: %v", h.job.JobID, uerr)
	}
	if perr := h.redisRepo.PublishEvent(ctx, &models.JobEvent{
		Type:  models.EventError,
		JobID: h.job.JobID,
		Error: err.Error(),
	}); perr != nil {
		h.logger.Warnf("job %s: error event failed: %v", h.job.JobID, perr)
	}
	if uerr := h.jobsRepo.UpdateJobStatus(ctx, h.job.JobID, models.JobStatusFailed, err.Error()); uerr != nil {
		h.logger.Warnf("job %s: persist failed state failed: %v", h.job.JobID, uerr)
	}
}

func (h *JobHost) markCancelled(ctx context.Context) {
	if err := h.redisRepo.UpdateStatus(ctx, h.job.JobID, models.JobStatusCancelled); err != nil {
		h.logger.Warnf("job %s: status update failed: %v", h.job.JobID, err)
	}
	if err := h.jobsRepo.UpdateJobStatus(ctx, h.job.JobID, models.JobStatusCancelled, ""); err != nil {
		h.logger.Warnf("job %s: persist cancelled failed: %v", h.job.JobID, err)
	}
}

// Result reports the terminal payload of a successful run.
func (h *JobHost) Result() (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.succeeded
}

func (h *JobHost) enterTerminal() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.terminal {
		return false
	}
	h.terminal = true
	return true
}
