package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go4it-sports/media-engine/internal/models"
	"github.com/go4it-sports/media-engine/pkg/ffmpeg"
)

type nopLogger struct{}

func (nopLogger) InitLogger()                          {}
func (nopLogger) Debug(args ...interface{})            {}
func (nopLogger) Debugf(t string, args ...interface{}) {}
func (nopLogger) Info(args ...interface{})             {}
func (nopLogger) Infof(t string, args ...interface{})  {}
func (nopLogger) Warn(args ...interface{})             {}
func (nopLogger) Warnf(t string, args ...interface{})  {}
func (nopLogger) Error(args ...interface{})            {}
func (nopLogger) Errorf(t string, args ...interface{}) {}
func (nopLogger) Fatal(args ...interface{})            {}
func (nopLogger) Fatalf(t string, args ...interface{}) {}

// recordingReporter collects reported progress values and their status
// payloads in order.
type recordingReporter struct {
	mu       sync.Mutex
	values   []float64
	statuses []any
}

func (r *recordingReporter) ReportProgress(progress float64, status any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, progress)
	r.statuses = append(r.statuses, status)
}

func (r *recordingReporter) recorded() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

func (r *recordingReporter) recordedStatuses() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.statuses))
	copy(out, r.statuses)
	return out
}

type stubProber struct {
	meta *models.MediaMetadata
	err  error
}

func (p *stubProber) Probe(ctx context.Context, path string) (*models.MediaMetadata, error) {
	return p.meta, p.err
}

// stubTransformer satisfies MediaTransformer without spawning processes. Each
// primitive can drive the progress callback and report an error; calls are
// recorded in order.
type stubTransformer struct {
	mu    sync.Mutex
	calls []string

	framesErr  error
	frames     []string
	compressed string
	audioPath  string

	clipErr      error
	thumbnailErr error
	concatErr    error
}

func (s *stubTransformer) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *stubTransformer) ExtractFrames(ctx context.Context, videoPath, outputDir string, frameRate float64, meta *models.MediaMetadata, onProgress ffmpeg.ProgressFunc) ([]string, error) {
	s.record("frames")
	if s.framesErr != nil {
		return nil, s.framesErr
	}
	if onProgress != nil {
		onProgress(50)
		onProgress(100)
	}
	return s.frames, nil
}

func (s *stubTransformer) Compress(ctx context.Context, videoPath, outputDir string, settings *models.CompressionSettings, meta *models.MediaMetadata, onProgress ffmpeg.ProgressFunc) (string, error) {
	s.record("compress")
	if onProgress != nil {
		onProgress(50)
		onProgress(100)
	}
	return s.compressed, nil
}

func (s *stubTransformer) ExtractAudio(ctx context.Context, videoPath, outputDir string, meta *models.MediaMetadata, onProgress ffmpeg.ProgressFunc) (string, error) {
	s.record("audio")
	if onProgress != nil {
		onProgress(100)
	}
	return s.audioPath, nil
}

func (s *stubTransformer) CreateClip(ctx context.Context, videoPath, outputPath string, startTime, duration float64) (string, error) {
	s.record("clip:" + filepath.Base(outputPath))
	if s.clipErr != nil {
		return "", s.clipErr
	}
	return outputPath, nil
}

func (s *stubTransformer) GenerateThumbnail(ctx context.Context, clipPath, outputPath string) (string, error) {
	s.record("thumbnail:" + filepath.Base(outputPath))
	if s.thumbnailErr != nil {
		return "", s.thumbnailErr
	}
	return outputPath, nil
}

func (s *stubTransformer) ConcatenateClips(ctx context.Context, clipPaths []string, outputDir string) (string, error) {
	s.record("concat")
	if s.concatErr != nil {
		return "", s.concatErr
	}
	return filepath.Join(outputDir, "highlight_reel.mp4"), nil
}

func (s *stubTransformer) recordedCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// writeTempVideo creates a placeholder source file so existence checks pass.
func writeTempVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.mp4")
	if err := os.WriteFile(path, []byte("not a real video"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
