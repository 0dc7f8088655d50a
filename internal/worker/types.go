package worker

import (
	"context"

	"github.com/go4it-sports/media-engine/internal/models"
	"github.com/go4it-sports/media-engine/pkg/ffmpeg"
)

// MediaProber reads stream metadata from a media file.
// *ffmpeg.Prober is the production implementation.
type MediaProber interface {
	Probe(ctx context.Context, path string) (*models.MediaMetadata, error)
}

// MediaTransformer is the set of transform primitives a job can run.
// *ffmpeg.Toolkit is the production implementation; tests substitute stubs so
// orchestration can be exercised without spawning processes.
type MediaTransformer interface {
	ExtractFrames(ctx context.Context, videoPath, outputDir string, frameRate float64, meta *models.MediaMetadata, onProgress ffmpeg.ProgressFunc) ([]string, error)
	Compress(ctx context.Context, videoPath, outputDir string, settings *models.CompressionSettings, meta *models.MediaMetadata, onProgress ffmpeg.ProgressFunc) (string, error)
	ExtractAudio(ctx context.Context, videoPath, outputDir string, meta *models.MediaMetadata, onProgress ffmpeg.ProgressFunc) (string, error)
	CreateClip(ctx context.Context, videoPath, outputPath string, startTime, duration float64) (string, error)
	GenerateThumbnail(ctx context.Context, clipPath, outputPath string) (string, error)
	ConcatenateClips(ctx context.Context, clipPaths []string, outputDir string) (string, error)
}

var (
	_ MediaProber      = (*ffmpeg.Prober)(nil)
	_ MediaTransformer = (*ffmpeg.Toolkit)(nil)
)

// ProgressReporter receives overall job progress in percent, optionally
// annotated with an opaque status payload forwarded to subscribers as-is.
// Implementations must tolerate repeated values; monotonicity is enforced by
// the caller.
type ProgressReporter interface {
	ReportProgress(progress float64, status any)
}
