package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/go4it-sports/media-engine/internal/jobs"
	"github.com/go4it-sports/media-engine/internal/models"
	"github.com/go4it-sports/media-engine/pkg/ffmpeg"
	"github.com/go4it-sports/media-engine/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRedisRepo struct {
	mu       sync.Mutex
	state    models.JobStatus
	events   []*models.JobEvent
	statuses []models.JobStatus
	cancelCh chan struct{}
}

func newStubRedisRepo() *stubRedisRepo {
	return &stubRedisRepo{state: models.JobStatusQueued, cancelCh: make(chan struct{}, 1)}
}

func (s *stubRedisRepo) EnqueueJob(ctx context.Context, key string, job *models.MediaJob) error {
	return nil
}

func (s *stubRedisRepo) DequeueJob(ctx context.Context, key string) (*models.MediaJob, error) {
	return nil, nil
}

func (s *stubRedisRepo) UpdateProgress(ctx context.Context, jobID string, progress float64) error {
	return nil
}

func (s *stubRedisRepo) UpdateStatus(ctx context.Context, jobID string, status models.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *stubRedisRepo) GetJobState(ctx context.Context, jobID string) (models.JobStatus, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, 0, nil
}

func (s *stubRedisRepo) PublishEvent(ctx context.Context, event *models.JobEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubRedisRepo) PublishCancel(ctx context.Context, jobID string) error {
	select {
	case s.cancelCh <- struct{}{}:
	default:
	}
	return nil
}

func (s *stubRedisRepo) SubscribeCancel(ctx context.Context, jobID string) (<-chan struct{}, func(), error) {
	return s.cancelCh, func() {}, nil
}

func (s *stubRedisRepo) eventsOfType(eventType models.JobEventType) []*models.JobEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.JobEvent
	for _, ev := range s.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type stubJobsRepo struct {
	mu       sync.Mutex
	statuses []models.JobStatus
}

func (s *stubJobsRepo) CreateJob(ctx context.Context, job *models.MediaJob) (*models.MediaJob, error) {
	return job, nil
}

func (s *stubJobsRepo) GetJobByID(ctx context.Context, jobID string) (*models.MediaJob, error) {
	return nil, nil
}

func (s *stubJobsRepo) ListJobs(ctx context.Context, pagination *utils.Pagination) (*models.JobList, error) {
	return nil, nil
}

func (s *stubJobsRepo) UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	return nil
}

var _ jobs.RedisRepository = (*stubRedisRepo)(nil)
var _ jobs.Repository = (*stubJobsRepo)(nil)

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func newTestHost(t *testing.T, job *models.MediaJob, transformer MediaTransformer) (*JobHost, *stubRedisRepo, *stubJobsRepo) {
	t.Helper()
	redisRepo := newStubRedisRepo()
	jobsRepo := &stubJobsRepo{}
	host := NewJobHost(job, HostDeps{
		JobsRepo:    jobsRepo,
		RedisRepo:   redisRepo,
		Prober:      &stubProber{meta: longVideoMeta()},
		Transformer: transformer,
		Extractor:   newTestExtractor(),
		Logger:      nopLogger{},
	})
	return host, redisRepo, jobsRepo
}

func TestJobHostSuccessfulRun(t *testing.T) {
	videoPath := writeTempVideo(t)
	job := &models.MediaJob{
		JobID:   "job-1",
		JobType: models.JobTypeVideoProcessing,
		JobData: mustMarshal(t, models.VideoProcessingData{
			VideoPath: videoPath,
			OutputDir: t.TempDir(),
			Options:   models.ProcessingOptions{ExtractAudio: true},
		}),
	}
	host, redisRepo, jobsRepo := newTestHost(t, job, &stubTransformer{audioPath: "source.mp3"})

	require.NoError(t, host.Run(context.Background()))

	completes := redisRepo.eventsOfType(models.EventComplete)
	require.Len(t, completes, 1, "exactly one terminal event")
	assert.Empty(t, redisRepo.eventsOfType(models.EventError))
	assert.Equal(t, 100, completes[0].Progress)

	result, ok := host.Result()
	require.True(t, ok)
	vpResult, ok := result.(*models.VideoProcessingResult)
	require.True(t, ok)
	assert.Equal(t, "source.mp3", vpResult.AudioPath)

	assert.Contains(t, jobsRepo.statuses, models.JobStatusCompleted)

	progresses := redisRepo.eventsOfType(models.EventProgress)
	require.NotEmpty(t, progresses)
	for i := 1; i < len(progresses); i++ {
		assert.GreaterOrEqual(t, progresses[i].Progress, progresses[i-1].Progress)
	}
}

func TestJobHostProgressEventCarriesStatus(t *testing.T) {
	job := &models.MediaJob{JobID: "job-7", JobType: models.JobTypeVideoProcessing}
	host, redisRepo, _ := newTestHost(t, job, &stubTransformer{})

	host.ReportProgress(42, stageStatus{Stage: "probed"})
	host.ReportProgress(50, nil)

	progresses := redisRepo.eventsOfType(models.EventProgress)
	require.Len(t, progresses, 2)
	assert.Equal(t, 42, progresses[0].Progress)
	assert.Equal(t, stageStatus{Stage: "probed"}, progresses[0].Result)
	assert.Nil(t, progresses[1].Result)
}

func TestJobHostMissingFileEmitsSingleError(t *testing.T) {
	job := &models.MediaJob{
		JobID:   "job-2",
		JobType: models.JobTypeVideoProcessing,
		JobData: mustMarshal(t, models.VideoProcessingData{
			VideoPath: "/nonexistent/video.mp4",
			OutputDir: t.TempDir(),
			Options:   models.ProcessingOptions{ExtractFrames: true},
		}),
	}
	host, redisRepo, jobsRepo := newTestHost(t, job, &stubTransformer{})

	require.NoError(t, host.Run(context.Background()))

	errs := redisRepo.eventsOfType(models.EventError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error, "not found")
	assert.Empty(t, redisRepo.eventsOfType(models.EventProgress), "no progress before validation failure")
	assert.Empty(t, redisRepo.eventsOfType(models.EventComplete))
	assert.Contains(t, jobsRepo.statuses, models.JobStatusFailed)

	_, ok := host.Result()
	assert.False(t, ok)
}

func TestJobHostInvalidPayload(t *testing.T) {
	job := &models.MediaJob{
		JobID:   "job-3",
		JobType: models.JobTypeVideoProcessing,
		JobData: json.RawMessage(`{"videoPath": 42}`),
	}
	host, redisRepo, _ := newTestHost(t, job, &stubTransformer{})

	require.NoError(t, host.Run(context.Background()))
	require.Len(t, redisRepo.eventsOfType(models.EventError), 1)
}

func TestJobHostUnsupportedJobType(t *testing.T) {
	job := &models.MediaJob{
		JobID:   "job-4",
		JobType: models.JobType("image-processing"),
		JobData: json.RawMessage(`{}`),
	}
	host, redisRepo, _ := newTestHost(t, job, &stubTransformer{})

	require.NoError(t, host.Run(context.Background()))
	errs := redisRepo.eventsOfType(models.EventError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error, "unsupported job type")
}

// blockingTransformer blocks inside the stage until its context is cancelled.
type blockingTransformer struct {
	stubTransformer
	started chan struct{}
}

func (b *blockingTransformer) ExtractAudio(ctx context.Context, videoPath, outputDir string, meta *models.MediaMetadata, onProgress ffmpeg.ProgressFunc) (string, error) {
	close(b.started)
	<-ctx.Done()
	return "", ctx.Err()
}

func TestJobHostCancellationEmitsNoTerminalEvent(t *testing.T) {
	videoPath := writeTempVideo(t)
	job := &models.MediaJob{
		JobID:   "job-5",
		JobType: models.JobTypeVideoProcessing,
		JobData: mustMarshal(t, models.VideoProcessingData{
			VideoPath: videoPath,
			OutputDir: t.TempDir(),
			Options:   models.ProcessingOptions{ExtractAudio: true},
		}),
	}
	transformer := &blockingTransformer{started: make(chan struct{})}
	host, redisRepo, jobsRepo := newTestHost(t, job, transformer)

	done := make(chan error, 1)
	go func() {
		done <- host.Run(context.Background())
	}()

	<-transformer.started
	require.NoError(t, redisRepo.PublishCancel(context.Background(), job.JobID))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("host did not stop after cancel")
	}

	assert.Empty(t, redisRepo.eventsOfType(models.EventComplete))
	assert.Empty(t, redisRepo.eventsOfType(models.EventError))
	assert.Contains(t, jobsRepo.statuses, models.JobStatusCancelled)
}

// panickingTransformer simulates a bug deep in a stage.
type panickingTransformer struct {
	stubTransformer
}

func (p *panickingTransformer) ExtractAudio(ctx context.Context, videoPath, outputDir string, meta *models.MediaMetadata, onProgress ffmpeg.ProgressFunc) (string, error) {
	panic("unexpected condition")
}

func TestJobHostPanicRoutedToError(t *testing.T) {
	videoPath := writeTempVideo(t)
	job := &models.MediaJob{
		JobID:   "job-6",
		JobType: models.JobTypeVideoProcessing,
		JobData: mustMarshal(t, models.VideoProcessingData{
			VideoPath: videoPath,
			OutputDir: t.TempDir(),
			Options:   models.ProcessingOptions{ExtractAudio: true},
		}),
	}
	host, redisRepo, _ := newTestHost(t, job, &panickingTransformer{})

	require.NoError(t, host.Run(context.Background()))

	errs := redisRepo.eventsOfType(models.EventError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error, "panicked")
	assert.Empty(t, redisRepo.eventsOfType(models.EventComplete))
}
