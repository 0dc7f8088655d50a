package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go4it-sports/media-engine/internal/models"
)

var (
	// ErrProbeFailed indicates the ffprobe process exited non-zero.
	ErrProbeFailed = errors.New("ffprobe process failed")
	// ErrProbeParse indicates ffprobe produced output we could not decode.
	ErrProbeParse = errors.New("malformed ffprobe output")
)

// probeResult mirrors the JSON ffprobe emits with -show_format -show_streams.
type probeResult struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type probeStream struct {
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	RFrameRate   string `json:"r_frame_rate,omitempty"`
	AvgFrameRate string `json:"avg_frame_rate,omitempty"`
}

// Prober extracts container and stream metadata from media files.
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

func NewProber(ffprobePath string) *Prober {
	return &Prober{
		ffprobePath: ffprobePath,
		timeout:     30 * time.Second,
	}
}

// WithTimeout sets the probe timeout.
func (p *Prober) WithTimeout(timeout time.Duration) *Prober {
	p.timeout = timeout
	return p
}

// Probe runs ffprobe against path and reduces its JSON output to a metadata
// snapshot. Probing the same unmodified file twice returns identical
// metadata.
func (p *Prober) Probe(ctx context.Context, path string) (*models.MediaMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: timeout after %v", ErrProbeFailed, p.timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: exit code %d", ErrProbeFailed, exitErr.ExitCode())
		}
		return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	return parseProbeOutput(output)
}

// parseProbeOutput decodes raw ffprobe JSON into MediaMetadata.
func parseProbeOutput(output []byte) (*models.MediaMetadata, error) {
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbeParse, err)
	}

	meta := &models.MediaMetadata{
		Format: result.Format.FormatName,
	}

	if result.Format.Duration == "" {
		return nil, fmt.Errorf("%w: missing duration", ErrProbeParse)
	}
	dur, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid duration %q", ErrProbeParse, result.Format.Duration)
	}
	meta.Duration = dur

	if result.Format.Size != "" {
		if size, err := strconv.ParseInt(result.Format.Size, 10, 64); err == nil {
			meta.Size = size
		}
	}
	if result.Format.BitRate != "" {
		if br, err := strconv.Atoi(result.Format.BitRate); err == nil {
			meta.Bitrate = br
		}
	}

	for _, stream := range result.Streams {
		if stream.CodecType != "video" {
			continue
		}
		meta.Codec = stream.CodecName
		meta.Width = stream.Width
		meta.Height = stream.Height
		if stream.AvgFrameRate != "" {
			meta.FPS = parseFrameRate(stream.AvgFrameRate)
		}
		if meta.FPS == 0 && stream.RFrameRate != "" {
			meta.FPS = parseFrameRate(stream.RFrameRate)
		}
		break
	}

	return meta, nil
}

// parseFrameRate evaluates a frame-rate fraction like "30000/1001" by
// explicit numerator/denominator division. ffprobe output is untrusted
// subprocess output and is never evaluated as an expression.
func parseFrameRate(fr string) float64 {
	parts := strings.Split(fr, "/")
	if len(parts) != 2 {
		if f, err := strconv.ParseFloat(fr, 64); err == nil {
			return f
		}
		return 0
	}

	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}

	return num / den
}
