package worker

import (
	"context"
	"testing"

	"github.com/go4it-sports/media-engine/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeta() *models.MediaMetadata {
	return &models.MediaMetadata{Duration: 60, Width: 1280, Height: 720, FPS: 30, Codec: "h264", Format: "mp4"}
}

func TestVideoProcessorMissingFile(t *testing.T) {
	reporter := &recordingReporter{}
	proc := NewVideoProcessor(&stubProber{meta: testMeta()}, &stubTransformer{}, nopLogger{})

	_, err := proc.Process(context.Background(), &models.VideoProcessingData{
		VideoPath: "/nonexistent/video.mp4",
		OutputDir: t.TempDir(),
	}, reporter)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Empty(t, reporter.recorded(), "no progress may be reported before validation")
}

func TestVideoProcessorRunsEnabledStagesInOrder(t *testing.T) {
	videoPath := writeTempVideo(t)
	reporter := &recordingReporter{}
	transformer := &stubTransformer{
		frames:     []string{"frames/frame_0001.jpg", "frames/frame_0002.jpg"},
		compressed: "compressed_source.mp4",
		audioPath:  "source.mp3",
	}
	proc := NewVideoProcessor(&stubProber{meta: testMeta()}, transformer, nopLogger{})

	result, err := proc.Process(context.Background(), &models.VideoProcessingData{
		VideoPath: videoPath,
		OutputDir: t.TempDir(),
		Options: models.ProcessingOptions{
			ExtractFrames: true,
			FrameRate:     1,
			CompressVideo: true,
			ExtractAudio:  true,
		},
	}, reporter)

	require.NoError(t, err)
	assert.Equal(t, []string{"frames", "compress", "audio"}, transformer.recordedCalls())

	assert.Equal(t, transformer.frames, result.Frames)
	assert.Equal(t, "compressed_source.mp4", result.CompressedVideo)
	assert.Equal(t, "source.mp3", result.AudioPath)
	assert.Len(t, result.ProcessedFiles, 4)
	assert.Equal(t, videoPath, result.OriginalPath)
	assert.NotNil(t, result.Metadata)
	assert.InDelta(t, 60, result.Metadata.Duration, 1e-9)

	values := reporter.recorded()
	require.NotEmpty(t, values)
	assert.InDelta(t, 10, values[0], 1e-9, "baseline after probe")
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1])
	}
	assert.InDelta(t, 100, values[len(values)-1], 1e-9)
}

func TestVideoProcessorSkipsDisabledStages(t *testing.T) {
	videoPath := writeTempVideo(t)
	transformer := &stubTransformer{audioPath: "source.mp3"}
	proc := NewVideoProcessor(&stubProber{meta: testMeta()}, transformer, nopLogger{})

	result, err := proc.Process(context.Background(), &models.VideoProcessingData{
		VideoPath: videoPath,
		OutputDir: t.TempDir(),
		Options:   models.ProcessingOptions{ExtractAudio: true},
	}, &recordingReporter{})

	require.NoError(t, err)
	assert.Equal(t, []string{"audio"}, transformer.recordedCalls())
	assert.Empty(t, result.Frames)
	assert.Empty(t, result.CompressedVideo)
	assert.Equal(t, []string{"source.mp3"}, result.ProcessedFiles)
}

func TestVideoProcessorStageFailureAborts(t *testing.T) {
	videoPath := writeTempVideo(t)
	transformer := &stubTransformer{framesErr: errors.New("ffmpeg exited with code 1")}
	proc := NewVideoProcessor(&stubProber{meta: testMeta()}, transformer, nopLogger{})

	_, err := proc.Process(context.Background(), &models.VideoProcessingData{
		VideoPath: videoPath,
		OutputDir: t.TempDir(),
		Options: models.ProcessingOptions{
			ExtractFrames: true,
			CompressVideo: true,
		},
	}, &recordingReporter{})

	require.Error(t, err)
	assert.Equal(t, []string{"frames"}, transformer.recordedCalls(), "later stages must not run")
}

func TestVideoProcessorProbeFailure(t *testing.T) {
	videoPath := writeTempVideo(t)
	probeErr := errors.New("ffprobe process failed: exit code 1")
	proc := NewVideoProcessor(&stubProber{err: probeErr}, &stubTransformer{}, nopLogger{})

	reporter := &recordingReporter{}
	_, err := proc.Process(context.Background(), &models.VideoProcessingData{
		VideoPath: videoPath,
		OutputDir: t.TempDir(),
	}, reporter)

	require.ErrorIs(t, err, probeErr)
	assert.Empty(t, reporter.recorded())
}
