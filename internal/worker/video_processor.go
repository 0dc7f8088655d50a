package worker

import (
	"context"
	"os"

	"github.com/go4it-sports/media-engine/internal/models"
	"github.com/go4it-sports/media-engine/pkg/logger"
	"github.com/pkg/errors"
)

// Relative weights of the video-processing sub-tasks. Metadata probing is the
// baseline, granted as a flat 10 once the probe returns; the enabled
// transform stages split the remaining span by weight.
const (
	metadataBaseline  = 10.0
	framesWeight      = 30.0
	compressionWeight = 40.0
	audioWeight       = 20.0
)

// VideoProcessor runs the configurable transform stages of a
// video-processing job sequentially and assembles the combined result.
type VideoProcessor struct {
	prober      MediaProber
	transformer MediaTransformer
	logger      logger.Logger
}

func NewVideoProcessor(prober MediaProber, transformer MediaTransformer, logger logger.Logger) *VideoProcessor {
	return &VideoProcessor{
		prober:      prober,
		transformer: transformer,
		logger:      logger,
	}
}

// Process probes the source and runs the enabled stages in fixed order:
// frame extraction, compression, audio extraction. The first failing stage
// aborts the job; files produced by earlier stages stay on disk.
func (p *VideoProcessor) Process(ctx context.Context, data *models.VideoProcessingData, reporter ProgressReporter) (*models.VideoProcessingResult, error) {
	if _, err := os.Stat(data.VideoPath); err != nil {
		return nil, errors.Errorf("video file not found: %s", data.VideoPath)
	}

	meta, err := p.prober.Probe(ctx, data.VideoPath)
	if err != nil {
		return nil, err
	}

	tracker := newProgressTracker(reporter, metadataBaseline)
	var framesStage, compressStage, audioStage = -1, -1, -1
	if data.Options.ExtractFrames {
		framesStage = tracker.addStage(framesWeight)
	}
	if data.Options.CompressVideo {
		compressStage = tracker.addStage(compressionWeight)
	}
	if data.Options.ExtractAudio {
		audioStage = tracker.addStage(audioWeight)
	}
	tracker.reportBaseline()

	result := &models.VideoProcessingResult{
		Metadata:       meta,
		ProcessedFiles: make([]string, 0),
		OriginalPath:   data.VideoPath,
		OutputPath:     data.OutputDir,
	}

	if framesStage >= 0 {
		p.logger.Infof("extracting frames from %s", data.VideoPath)
		frames, err := p.transformer.ExtractFrames(ctx, data.VideoPath, data.OutputDir, data.Options.FrameRate, meta, tracker.stageProgress(framesStage))
		if err != nil {
			return nil, err
		}
		tracker.completeStage(framesStage)
		result.Frames = frames
		result.ProcessedFiles = append(result.ProcessedFiles, frames...)
	}

	if compressStage >= 0 {
		p.logger.Infof("compressing %s", data.VideoPath)
		compressed, err := p.transformer.Compress(ctx, data.VideoPath, data.OutputDir, data.Options.CompressionSettings, meta, tracker.stageProgress(compressStage))
		if err != nil {
			return nil, err
		}
		tracker.completeStage(compressStage)
		result.CompressedVideo = compressed
		result.ProcessedFiles = append(result.ProcessedFiles, compressed)
	}

	if audioStage >= 0 {
		p.logger.Infof("extracting audio from %s", data.VideoPath)
		audioPath, err := p.transformer.ExtractAudio(ctx, data.VideoPath, data.OutputDir, meta, tracker.stageProgress(audioStage))
		if err != nil {
			return nil, err
		}
		tracker.completeStage(audioStage)
		result.AudioPath = audioPath
		result.ProcessedFiles = append(result.ProcessedFiles, audioPath)
	}

	tracker.finish()
	return result, nil
}
