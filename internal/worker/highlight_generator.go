package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go4it-sports/media-engine/internal/models"
	"github.com/go4it-sports/media-engine/pkg/logger"
	"github.com/pkg/errors"
)

// Coarse progress milestones of the highlight pipeline. The clip loop owns
// the span between clipLoopStart and reelDone, advancing equally per clip.
const (
	validatedMark   = 5.0
	probedMark      = 10.0
	momentsMark     = 20.0
	clipLoopStart   = 30.0
	reelDone        = 70.0
	clipLoopSpan    = reelDone - clipLoopStart
	highlightReelFn = "highlight_reel.mp4"
)

// stageStatus annotates progress events with the pipeline stage; subscribers
// receive it verbatim on the event payload.
type stageStatus struct {
	Stage     string `json:"stage"`
	ClipsDone int    `json:"clips_done,omitempty"`
}

// HighlightGenerator drives a highlight-generation job: key-moment selection,
// per-moment clip cuts, stream-copy concatenation into a single reel, and a
// JSON side-car describing the whole mapping.
type HighlightGenerator struct {
	prober      MediaProber
	transformer MediaTransformer
	extractor   *MomentExtractor
	logger      logger.Logger
}

func NewHighlightGenerator(prober MediaProber, transformer MediaTransformer, extractor *MomentExtractor, logger logger.Logger) *HighlightGenerator {
	return &HighlightGenerator{
		prober:      prober,
		transformer: transformer,
		extractor:   extractor,
		logger:      logger,
	}
}

func (g *HighlightGenerator) Process(ctx context.Context, data *models.HighlightData, reporter ProgressReporter) (*models.HighlightResult, error) {
	if _, err := os.Stat(data.VideoPath); err != nil {
		return nil, errors.Errorf("video file not found: %s", data.VideoPath)
	}
	if data.GARAnalysis == nil {
		return nil, errors.New("missing performance analysis data")
	}
	reporter.ReportProgress(validatedMark, stageStatus{Stage: "validated"})

	meta, err := g.prober.Probe(ctx, data.VideoPath)
	if err != nil {
		return nil, err
	}
	reporter.ReportProgress(probedMark, stageStatus{Stage: "probed"})

	outputDir := data.Options.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(filepath.Dir(data.VideoPath), "highlights")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create highlight output directory")
	}

	moments := g.extractor.Extract(data.GARAnalysis, meta, data.Options)
	if len(moments) == 0 {
		return nil, errors.New("no key moments identified")
	}
	g.logger.Infof("identified %d key moments for video %s", len(moments), data.VideoID)
	reporter.ReportProgress(momentsMark, stageStatus{Stage: "moments_selected"})

	reporter.ReportProgress(clipLoopStart, stageStatus{Stage: "cutting_clips"})
	clips := make([]models.Clip, 0, len(moments))
	clipPaths := make([]string, 0, len(moments))
	thumbnailPath := ""
	perClip := clipLoopSpan / float64(len(moments))
	var totalDuration float64

	for i, moment := range moments {
		clipName := fmt.Sprintf("clip_%d_%s_%.2f.mp4", i+1, moment.Type, moment.StartTime)
		clipPath := filepath.Join(outputDir, clipName)
		if _, err := g.transformer.CreateClip(ctx, data.VideoPath, clipPath, moment.StartTime, moment.Duration); err != nil {
			return nil, err
		}
		if i == 0 {
			thumbnailPath = filepath.Join(outputDir, "thumbnail_1.jpg")
			if _, err := g.transformer.GenerateThumbnail(ctx, clipPath, thumbnailPath); err != nil {
				return nil, err
			}
		}
		clips = append(clips, models.Clip{
			Path:        clipPath,
			StartTime:   moment.StartTime,
			Duration:    moment.Duration,
			Type:        moment.Type,
			Description: moment.Description,
		})
		clipPaths = append(clipPaths, clipPath)
		totalDuration += moment.Duration
		reporter.ReportProgress(clipLoopStart+perClip*float64(i+1), stageStatus{Stage: "cutting_clips", ClipsDone: i + 1})
	}

	highlightPath, err := g.transformer.ConcatenateClips(ctx, clipPaths, outputDir)
	if err != nil {
		return nil, err
	}
	reporter.ReportProgress(reelDone, stageStatus{Stage: "reel_assembled"})

	metadataPath, err := g.writeMetadata(outputDir, data, highlightPath, moments, clips, meta)
	if err != nil {
		return nil, err
	}

	reporter.ReportProgress(100, stageStatus{Stage: "finalized"})
	return &models.HighlightResult{
		VideoID:       data.VideoID,
		HighlightPath: highlightPath,
		MetadataPath:  metadataPath,
		KeyMoments:    len(moments),
		Duration:      totalDuration,
		ThumbnailPath: thumbnailPath,
	}, nil
}

// writeMetadata records the source -> reel -> moments -> clips mapping next
// to the reel as highlight_metadata.json.
func (g *HighlightGenerator) writeMetadata(outputDir string, data *models.HighlightData, highlightPath string, moments []models.KeyMoment, clips []models.Clip, meta *models.MediaMetadata) (string, error) {
	metadataPath := filepath.Join(outputDir, "highlight_metadata.json")
	doc := models.HighlightMetadata{
		VideoID:       data.VideoID,
		SourceVideo:   data.VideoPath,
		HighlightPath: highlightPath,
		KeyMoments:    moments,
		Clips:         clips,
		Metadata:      meta,
		GeneratedAt:   time.Now().UTC(),
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode highlight metadata")
	}
	if err := os.WriteFile(metadataPath, payload, 0644); err != nil {
		return "", errors.Wrap(err, "failed to write highlight metadata")
	}
	return metadataPath, nil
}
