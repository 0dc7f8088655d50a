package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTrackerWeightedSlices(t *testing.T) {
	reporter := &recordingReporter{}
	tracker := newProgressTracker(reporter, 10)

	frames := tracker.addStage(30)
	compress := tracker.addStage(40)
	audio := tracker.addStage(20)

	tracker.reportBaseline()
	tracker.completeStage(frames)
	tracker.completeStage(compress)
	tracker.completeStage(audio)
	tracker.finish()

	values := reporter.recorded()
	require.Len(t, values, 5)

	// Stage completion boundaries land at 10 + (w1+..+wi)/W * 90.
	assert.InDelta(t, 10, values[0], 1e-9)
	assert.InDelta(t, 10+30.0/90.0*90, values[1], 1e-9)
	assert.InDelta(t, 10+70.0/90.0*90, values[2], 1e-9)
	assert.InDelta(t, 100, values[3], 1e-9)
	assert.InDelta(t, 100, values[4], 1e-9)
}

func TestProgressTrackerMonotonic(t *testing.T) {
	reporter := &recordingReporter{}
	tracker := newProgressTracker(reporter, 10)
	stage := tracker.addStage(30)
	tracker.addStage(40)

	tracker.reportBaseline()
	progress := tracker.stageProgress(stage)
	progress(50)
	progress(30) // regression must be suppressed
	progress(80)
	tracker.completeStage(stage)
	tracker.finish()

	values := reporter.recorded()
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1], "values: %v", values)
	}
	assert.InDelta(t, 100, values[len(values)-1], 1e-9)
}

func TestProgressTrackerStageMapping(t *testing.T) {
	reporter := &recordingReporter{}
	tracker := newProgressTracker(reporter, 10)
	first := tracker.addStage(30)
	second := tracker.addStage(60)

	// Halfway through the first stage: 10 + (15/90)*90 = 25.
	tracker.stageProgress(first)(50)
	values := reporter.recorded()
	require.Len(t, values, 1)
	assert.InDelta(t, 25, values[0], 1e-9)

	// Halfway through the second stage: 10 + ((30+30)/90)*90 = 70.
	tracker.stageProgress(second)(50)
	values = reporter.recorded()
	require.Len(t, values, 2)
	assert.InDelta(t, 70, values[1], 1e-9)
}

func TestProgressTrackerSingleStage(t *testing.T) {
	reporter := &recordingReporter{}
	tracker := newProgressTracker(reporter, 10)
	only := tracker.addStage(20)

	tracker.reportBaseline()
	tracker.completeStage(only)

	values := reporter.recorded()
	require.Len(t, values, 2)
	assert.InDelta(t, 10, values[0], 1e-9)
	assert.InDelta(t, 100, values[1], 1e-9)
}

func TestProgressTrackerClampsOutOfRangeInput(t *testing.T) {
	reporter := &recordingReporter{}
	tracker := newProgressTracker(reporter, 10)
	stage := tracker.addStage(50)

	tracker.stageProgress(stage)(150)
	values := reporter.recorded()
	require.Len(t, values, 1)
	assert.InDelta(t, 100, values[0], 1e-9)
}
