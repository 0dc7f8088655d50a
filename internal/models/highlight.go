package models

import "time"

// GARAnalysis is the sport-specific performance analysis attached to a
// highlight job. Metrics map metric names (e.g. "shooting") to scores.
type GARAnalysis struct {
	Sport     string             `json:"sport" validate:"required"`
	Metrics   map[string]float64 `json:"metrics" validate:"required"`
	Movements []any              `json:"movements,omitempty"`
	Insights  []any              `json:"insights,omitempty"`
}

// KeyMoment is a time-bounded interval of the source video selected for
// highlight extraction. Moments are produced sorted by StartTime and
// mutually non-overlapping; each maps to exactly one clip.
type KeyMoment struct {
	Type        string  `json:"type"`
	StartTime   float64 `json:"startTime"`
	Duration    float64 `json:"duration"`
	Description string  `json:"description"`
}

// End returns the exclusive end boundary of the moment's interval.
func (m KeyMoment) End() float64 {
	return m.StartTime + m.Duration
}

// Clip is a materialized cut of the source video for one KeyMoment.
type Clip struct {
	Path        string  `json:"path"`
	StartTime   float64 `json:"startTime"`
	Duration    float64 `json:"duration"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
}

// HighlightMetadata is the JSON side-car written next to the highlight reel.
type HighlightMetadata struct {
	VideoID       string         `json:"videoId"`
	SourceVideo   string         `json:"sourceVideo"`
	HighlightPath string         `json:"highlightPath"`
	KeyMoments    []KeyMoment    `json:"keyMoments"`
	Clips         []Clip         `json:"clips"`
	Metadata      *MediaMetadata `json:"metadata"`
	GeneratedAt   time.Time      `json:"generatedAt"`
}
