package models

// MediaMetadata is a read-only snapshot of a source file's technical
// properties, probed once at job start.
type MediaMetadata struct {
	Duration float64 `json:"duration"`
	Size     int64   `json:"size"`
	Bitrate  int     `json:"bitrate"`
	Format   string  `json:"format"`
	Codec    string  `json:"codec"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
}
