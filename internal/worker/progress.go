package worker

import (
	"math"
	"sync"

	"github.com/go4it-sports/media-engine/pkg/ffmpeg"
)

// progressTracker maps per-stage completion onto a single job-level
// percentage. A fixed baseline is granted up front (metadata probing), and the
// remaining span up to 100 is divided between the registered stages in
// proportion to their weights. Reported values never go backwards.
type progressTracker struct {
	mu       sync.Mutex
	baseline float64
	weights  []float64
	total    float64
	current  float64
	reporter ProgressReporter
}

func newProgressTracker(reporter ProgressReporter, baseline float64) *progressTracker {
	return &progressTracker{
		baseline: baseline,
		reporter: reporter,
	}
}

// addStage registers a weighted stage and returns its index. All stages must
// be registered before any progress is reported.
func (t *progressTracker) addStage(weight float64) int {
	t.weights = append(t.weights, weight)
	t.total += weight
	return len(t.weights) - 1
}

// reportBaseline emits the baseline grant.
func (t *progressTracker) reportBaseline() {
	t.emit(t.baseline)
}

// stageProgress returns a callback translating stage-local percent (0-100)
// into overall progress. Stages are laid out back to back in registration
// order.
func (t *progressTracker) stageProgress(idx int) ffmpeg.ProgressFunc {
	return func(percent float64) {
		t.emit(t.overall(idx, percent))
	}
}

// completeStage marks a stage fully done.
func (t *progressTracker) completeStage(idx int) {
	t.emit(t.overall(idx, 100))
}

// finish emits the terminal 100.
func (t *progressTracker) finish() {
	t.emit(100)
}

func (t *progressTracker) overall(idx int, percent float64) float64 {
	if t.total <= 0 {
		return t.baseline
	}
	percent = math.Min(math.Max(percent, 0), 100)
	var before float64
	for i := 0; i < idx; i++ {
		before += t.weights[i]
	}
	done := before + t.weights[idx]*percent/100
	return t.baseline + done/t.total*(100-t.baseline)
}

func (t *progressTracker) emit(value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if value <= t.current {
		return
	}
	t.current = value
	t.reporter.ReportProgress(value, nil)
}
