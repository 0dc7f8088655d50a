package worker

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go4it-sports/media-engine/internal/config"
	"github.com/go4it-sports/media-engine/internal/jobs"
	"github.com/go4it-sports/media-engine/internal/models"
	"github.com/go4it-sports/media-engine/pkg/ffmpeg"
	"github.com/go4it-sports/media-engine/pkg/logger"
	"github.com/go4it-sports/media-engine/pkg/utils"
	"github.com/pkg/errors"
)

const cpuBackoff = 5 * time.Second

// Worker is the job-consuming side of the queue: a fixed pool of goroutines,
// each dequeuing one job at a time and running it to a terminal state in its
// own JobHost.
type Worker struct {
	cfg            *config.Config
	logger         logger.Logger
	jobsRepo       jobs.Repository
	redisRepo      jobs.RedisRepository
	awsRepo        jobs.AWSRepository
	prober         MediaProber
	newTransformer func(onProcessStart func(pid int)) MediaTransformer
	wg             sync.WaitGroup
}

func NewWorker(cfg *config.Config, logger logger.Logger, jobsRepo jobs.Repository, redisRepo jobs.RedisRepository, awsRepo jobs.AWSRepository) *Worker {
	return &Worker{
		cfg:       cfg,
		logger:    logger,
		jobsRepo:  jobsRepo,
		redisRepo: redisRepo,
		awsRepo:   awsRepo,
		prober:    ffmpeg.NewProber(cfg.FFmpeg.FFprobePath),
		newTransformer: func(onProcessStart func(pid int)) MediaTransformer {
			toolkit := ffmpeg.NewToolkit(cfg.FFmpeg.FFmpegPath)
			toolkit.OnProcessStart = onProcessStart
			return toolkit
		},
	}
}

// Start launches the pool. It returns immediately; Wait blocks until every
// goroutine has drained after ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Infof("starting %d workers", w.cfg.Worker.WorkerCount)
	for i := 0; i < w.cfg.Worker.WorkerCount; i++ {
		w.wg.Add(1)
		go w.loop(ctx, i)
	}
}

func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context, id int) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ok, usage := utils.CheckCPUUsage(w.cfg.Worker.MaxCPUUsage); !ok {
			w.logger.Infof("worker %d: CPU usage too high (%.1f%%), backing off", id, usage)
			select {
			case <-ctx.Done():
				return
			case <-time.After(cpuBackoff):
			}
			continue
		}

		job, err := w.redisRepo.DequeueJob(ctx, w.cfg.Redis.JobQueueKey)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Errorf("worker %d: dequeue failed: %v", id, err)
			continue
		}

		w.logger.Infof("worker %d: picked up job %s (%s)", id, job.JobID, job.JobType)
		if err := w.runJob(ctx, job); err != nil {
			w.logger.Errorf("worker %d: job %s run failed: %v", id, job.JobID, err)
		}
	}
}

func (w *Worker) runJob(ctx context.Context, job *models.MediaJob) error {
	if w.jobCancelled(ctx, job) {
		w.logger.Infof("job %s: cancelled while queued, skipping", job.JobID)
		return nil
	}

	if err := w.jobsRepo.UpdateJobStatus(ctx, job.JobID, models.JobStatusProcessing, ""); err != nil {
		w.logger.Warnf("job %s: persist in_progress failed: %v", job.JobID, err)
	}

	staged, err := w.stageInput(ctx, job)
	if err != nil {
		return err
	}
	if staged.tempDir != "" {
		defer os.RemoveAll(staged.tempDir)
	}

	cg := newJobCgroup(w.cfg.Cgroup, job.JobID, w.logger)

	host := NewJobHost(job, HostDeps{
		JobsRepo:    w.jobsRepo,
		RedisRepo:   w.redisRepo,
		Prober:      w.prober,
		Transformer: w.newTransformer(cg.AddProcess),
		Cgroup:      cg,
		Extractor:   NewMomentExtractor(rand.New(rand.NewSource(time.Now().UnixNano()))),
		Logger:      w.logger,
	})
	if err := host.Run(ctx); err != nil {
		return err
	}

	if result, ok := host.Result(); ok {
		if staged.uploadBucket != "" {
			w.uploadArtifacts(ctx, staged.uploadBucket, job.JobID, result)
		}
		if staged.inputKey != "" {
			if err := w.awsRepo.RemoveObject(ctx, staged.inputBucket, staged.inputKey); err != nil {
				w.logger.Warnf("job %s: staged input cleanup failed: %v", job.JobID, err)
			}
		}
	}
	return nil
}

// jobCancelled reports whether the job reached a cancelled state before
// execution started. The dequeued payload carries the state at enqueue time,
// so the state hash is checked as well.
func (w *Worker) jobCancelled(ctx context.Context, job *models.MediaJob) bool {
	if job.Status == models.JobStatusCancelled {
		return true
	}
	status, _, err := w.redisRepo.GetJobState(ctx, job.JobID)
	return err == nil && status == models.JobStatusCancelled
}

// stagedInput describes where the run's input came from and where its
// artifacts go. inputKey is empty when the payload referenced a local path.
type stagedInput struct {
	uploadBucket string
	tempDir      string
	inputBucket  string
	inputKey     string
}

// stageInput downloads the source object when the payload references S3,
// rewriting the payload's video path to the local copy.
func (w *Worker) stageInput(ctx context.Context, job *models.MediaJob) (stagedInput, error) {
	var common struct {
		InputS3Key   string `json:"input_s3_key"`
		InputBucket  string `json:"input_bucket"`
		UploadBucket string `json:"upload_bucket"`
	}
	if err := json.Unmarshal(job.JobData, &common); err != nil {
		return stagedInput{}, errors.Wrap(err, "worker.stageInput.Unmarshal")
	}
	if common.InputS3Key == "" {
		return stagedInput{uploadBucket: common.UploadBucket}, nil
	}

	bucket := common.InputBucket
	if bucket == "" {
		bucket = w.cfg.S3.InputBucket
	}
	tempDir := filepath.Join(w.cfg.Worker.TempDir, job.JobID)
	localPath, err := w.downloadObject(ctx, bucket, common.InputS3Key, tempDir)
	if err != nil {
		os.RemoveAll(tempDir)
		return stagedInput{}, err
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(job.JobData, &payload); err != nil {
		return stagedInput{}, errors.Wrap(err, "worker.stageInput.Unmarshal")
	}
	encodedPath, err := json.Marshal(localPath)
	if err != nil {
		return stagedInput{}, errors.Wrap(err, "worker.stageInput.Marshal")
	}
	payload["videoPath"] = encodedPath
	rewritten, err := json.Marshal(payload)
	if err != nil {
		return stagedInput{}, errors.Wrap(err, "worker.stageInput.Marshal")
	}
	job.JobData = rewritten
	return stagedInput{
		uploadBucket: common.UploadBucket,
		tempDir:      tempDir,
		inputBucket:  bucket,
		inputKey:     common.InputS3Key,
	}, nil
}

func (w *Worker) downloadObject(ctx context.Context, bucket, key, tempDir string) (string, error) {
	if err := os.MkdirAll(tempDir, os.ModePerm); err != nil {
		return "", errors.Wrap(err, "failed to create temp directory")
	}
	localPath := filepath.Join(tempDir, filepath.Base(key))
	obj, err := w.awsRepo.GetObject(ctx, bucket, key)
	if err != nil {
		return "", errors.Wrap(err, "failed to get object from S3")
	}
	defer obj.Body.Close()

	outFile, err := os.Create(localPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to create local video file")
	}
	defer outFile.Close()
	if _, err := io.Copy(outFile, obj.Body); err != nil {
		return "", errors.Wrap(err, "failed to write video file")
	}
	return localPath, nil
}

// uploadArtifacts pushes the run's output files under <jobID>/ in the upload
// bucket. Upload failures are logged, not fatal; the job already completed.
func (w *Worker) uploadArtifacts(ctx context.Context, bucket, jobID string, result any) {
	var paths []string
	switch r := result.(type) {
	case *models.VideoProcessingResult:
		paths = r.ProcessedFiles
	case *models.HighlightResult:
		paths = []string{r.HighlightPath, r.MetadataPath, r.ThumbnailPath}
	default:
		return
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := w.uploadFile(ctx, bucket, jobID, path); err != nil {
			w.logger.Warnf("job %s: artifact upload failed for %s: %v", jobID, path, err)
		}
	}
}

func (w *Worker) uploadFile(ctx context.Context, bucket, jobID, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return err
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	_, err = w.awsRepo.PutObject(ctx, models.UploadInput{
		File:       file,
		Name:       filepath.Base(path),
		MimeType:   mimeType,
		Size:       info.Size(),
		Key:        jobID + "/" + filepath.Base(path),
		BucketName: bucket,
	})
	return err
}
