package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go4it-sports/media-engine/internal/models"
)

// Toolkit wraps the external transcoding tool behind the media transform
// primitives shared by every job type.
type Toolkit struct {
	ffmpegPath string

	// OnProcessStart receives the PID of every spawned process. The job
	// host uses it to place children in the job's cgroup so cancellation
	// tears them down.
	OnProcessStart func(pid int)
}

func NewToolkit(ffmpegPath string) *Toolkit {
	return &Toolkit{ffmpegPath: ffmpegPath}
}

// ExtractFrames writes a numbered image sequence under outputDir/frames at
// the given rate. Progress is derived from the running frame counter against
// a duration-based frame estimate.
func (t *Toolkit) ExtractFrames(ctx context.Context, videoPath, outputDir string, frameRate float64, meta *models.MediaMetadata, onProgress ProgressFunc) ([]string, error) {
	framesDir := filepath.Join(outputDir, "frames")
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create frames directory: %w", err)
	}

	if frameRate <= 0 {
		frameRate = 1
	}
	totalFrames := math.Max(meta.Duration*frameRate, 1)

	args := []string{
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%g", frameRate),
		"-q:v", "2",
		"-y", filepath.Join(framesDir, "frame_%04d.jpg"),
	}

	err := t.run(ctx, args, func(line string) {
		if frame, ok := parseFrameCount(line); ok && onProgress != nil {
			onProgress(math.Min(float64(frame)/totalFrames*100, 100))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("frame extraction failed: %w", err)
	}

	frames, err := filepath.Glob(filepath.Join(framesDir, "frame_*.jpg"))
	if err != nil {
		return nil, err
	}
	return frames, nil
}

// Compress re-encodes the video into outputDir with a "compressed_" prefix.
// Progress is derived from the encoder's running time marker against the
// source duration.
func (t *Toolkit) Compress(ctx context.Context, videoPath, outputDir string, settings *models.CompressionSettings, meta *models.MediaMetadata, onProgress ProgressFunc) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, "compressed_"+filepath.Base(videoPath))

	args := []string{
		"-i", videoPath,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", compressionCRF(settings),
	}
	if settings != nil && settings.Resolution != "" {
		if height, ok := resolutionHeight(settings.Resolution); ok {
			args = append(args, "-vf", fmt.Sprintf("scale=-2:%d", height))
		}
	}
	if settings != nil && settings.Bitrate != "" {
		args = append(args, "-b:v", settings.Bitrate)
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-y", outputPath,
	)

	err := t.run(ctx, args, timeProgress(meta.Duration, onProgress))
	if err != nil {
		return "", fmt.Errorf("compression failed: %w", err)
	}
	return outputPath, nil
}

// ExtractAudio writes the audio track as <basename>.mp3 in outputDir.
func (t *Toolkit) ExtractAudio(ctx context.Context, videoPath, outputDir string, meta *models.MediaMetadata, onProgress ProgressFunc) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	outputPath := filepath.Join(outputDir, base+".mp3")

	args := []string{
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		"-y", outputPath,
	}

	err := t.run(ctx, args, timeProgress(meta.Duration, onProgress))
	if err != nil {
		return "", fmt.Errorf("audio extraction failed: %w", err)
	}
	return outputPath, nil
}

// CreateClip cuts a re-encoded sub-clip. Clips are short, so no progress is
// reported; the caller advances per clip.
func (t *Toolkit) CreateClip(ctx context.Context, videoPath, outputPath string, startTime, duration float64) (string, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create clip directory: %w", err)
	}

	args := []string{
		"-ss", fmt.Sprintf("%.2f", startTime),
		"-i", videoPath,
		"-t", fmt.Sprintf("%.2f", duration),
		"-c:v", "libx264",
		"-preset", "fast",
		"-c:a", "aac",
		"-y", outputPath,
	}

	if err := t.run(ctx, args, nil); err != nil {
		return "", fmt.Errorf("clip creation failed: %w", err)
	}
	return outputPath, nil
}

// GenerateThumbnail writes a single JPEG still from the start of a clip.
func (t *Toolkit) GenerateThumbnail(ctx context.Context, clipPath, outputPath string) (string, error) {
	args := []string{
		"-i", clipPath,
		"-ss", "0",
		"-vframes", "1",
		"-q:v", "2",
		"-y", outputPath,
	}

	if err := t.run(ctx, args, nil); err != nil {
		return "", fmt.Errorf("thumbnail generation failed: %w", err)
	}
	return outputPath, nil
}

// ConcatenateClips joins clips in order into outputDir/highlight_reel.mp4
// using stream-copy concatenation driven by a clips.txt manifest.
func (t *Toolkit) ConcatenateClips(ctx context.Context, clipPaths []string, outputDir string) (string, error) {
	manifestPath, err := WriteConcatManifest(clipPaths, outputDir)
	if err != nil {
		return "", err
	}

	outputPath := filepath.Join(outputDir, "highlight_reel.mp4")
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		"-movflags", "+faststart",
		"-y", outputPath,
	}

	if err := t.run(ctx, args, nil); err != nil {
		return "", fmt.Errorf("concatenation failed: %w", err)
	}
	return outputPath, nil
}

// WriteConcatManifest writes the clips.txt file list the concat demuxer
// requires, one `file '<path>'` line per clip in order.
func WriteConcatManifest(clipPaths []string, outputDir string) (string, error) {
	manifestPath := filepath.Join(outputDir, "clips.txt")
	manifest, err := os.Create(manifestPath)
	if err != nil {
		return "", fmt.Errorf("failed to create concat manifest: %w", err)
	}
	defer manifest.Close()

	for _, clip := range clipPaths {
		absPath, err := filepath.Abs(clip)
		if err != nil {
			return "", fmt.Errorf("failed to resolve clip path: %w", err)
		}
		if _, err := fmt.Fprintf(manifest, "file '%s'\n", absPath); err != nil {
			return "", fmt.Errorf("failed to write concat manifest: %w", err)
		}
	}
	return manifestPath, nil
}

// timeProgress converts "time=" markers from the diagnostic stream into a
// percentage of the given duration.
func timeProgress(duration float64, onProgress ProgressFunc) func(line string) {
	if onProgress == nil || duration <= 0 {
		return nil
	}
	return func(line string) {
		if current, ok := parseClockTime(line); ok {
			onProgress(math.Min(current/duration*100, 100))
		}
	}
}

// compressionCRF maps a quality label to an x264 CRF value.
func compressionCRF(settings *models.CompressionSettings) string {
	if settings == nil {
		return "23"
	}
	switch settings.Quality {
	case "low":
		return "28"
	case "high":
		return "18"
	default:
		return "23"
	}
}

// resolutionHeight parses labels like "720p" or "1080p" into a scale height.
func resolutionHeight(resolution string) (int, bool) {
	trimmed := strings.TrimSuffix(strings.ToLower(resolution), "p")
	var height int
	if _, err := fmt.Sscanf(trimmed, "%d", &height); err != nil || height <= 0 {
		return 0, false
	}
	return height, true
}
