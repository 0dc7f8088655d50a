package worker

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/go4it-sports/media-engine/internal/models"
)

const (
	defaultMinMomentDuration = 3.0
	defaultMaxMomentDuration = 10.0
	defaultHighlightCount    = 5
)

// momentTemplate ties a sport-action category to the performance metric its
// description reads, with a fallback score when the analysis omits the metric.
type momentTemplate struct {
	momentType   string
	metric       string
	fallback     float64
	descriptionF string
}

var sportTemplates = map[string][]momentTemplate{
	"basketball": {
		{"shot", "shooting", 7.5, "Impressive shot with shooting score %.1f"},
		{"pass", "passing", 7.0, "Great pass with passing score %.1f"},
		{"defensive", "defense", 7.0, "Strong defensive play with defense score %.1f"},
		{"dribble", "dribbling", 7.5, "Skilled dribbling with score %.1f"},
	},
	"football": {
		{"throw", "throwing", 7.5, "Powerful throw with throwing score %.1f"},
		{"run", "running", 7.0, "Explosive run with running score %.1f"},
		{"tackle", "tackling", 7.0, "Solid tackle with tackling score %.1f"},
		{"play", "playmaking", 7.5, "Smart play with playmaking score %.1f"},
	},
	"soccer": {
		{"shot", "shooting", 7.5, "Impressive shot with shooting score %.1f"},
		{"pass", "passing", 7.0, "Great pass with passing score %.1f"},
		{"dribble", "dribbling", 7.5, "Skilled dribbling with score %.1f"},
		{"tackle", "tackling", 7.0, "Solid tackle with tackling score %.1f"},
	},
}

var genericTemplate = momentTemplate{"highlight", "overall", 7.0, "Notable highlight with overall score %.1f"}

// MomentExtractor derives non-overlapping key moments from a sport analysis.
// Moment timing is sampled, standing in for a real motion-analysis pipeline;
// the random source is injected so tests are deterministic.
type MomentExtractor struct {
	rng *rand.Rand
}

func NewMomentExtractor(rng *rand.Rand) *MomentExtractor {
	return &MomentExtractor{rng: rng}
}

// Extract produces key moments sorted by start time with overlaps resolved
// left to right. Each moment starts within [0, duration-maxDuration] and
// lasts between the configured min and max durations.
func (e *MomentExtractor) Extract(analysis *models.GARAnalysis, meta *models.MediaMetadata, opts models.HighlightOptions) []models.KeyMoment {
	minDur := opts.MinDuration
	if minDur <= 0 {
		minDur = defaultMinMomentDuration
	}
	maxDur := opts.MaxDuration
	if maxDur < minDur {
		maxDur = defaultMaxMomentDuration
		if maxDur < minDur {
			maxDur = minDur
		}
	}

	templates := e.templatesFor(analysis, opts)

	startCeiling := meta.Duration - maxDur
	if startCeiling < 0 {
		startCeiling = 0
	}

	moments := make([]models.KeyMoment, 0, len(templates))
	for _, tpl := range templates {
		score, ok := analysis.Metrics[tpl.metric]
		if !ok {
			score = tpl.fallback
		}
		moments = append(moments, models.KeyMoment{
			Type:        tpl.momentType,
			StartTime:   e.rng.Float64() * startCeiling,
			Duration:    minDur + e.rng.Float64()*(maxDur-minDur),
			Description: fmt.Sprintf(tpl.descriptionF, score),
		})
	}

	sort.Slice(moments, func(i, j int) bool {
		return moments[i].StartTime < moments[j].StartTime
	})

	// Push overlapping moments forward to the end of their predecessor,
	// keeping durations intact.
	for i := 1; i < len(moments); i++ {
		if prevEnd := moments[i-1].End(); moments[i].StartTime < prevEnd {
			moments[i].StartTime = prevEnd
		}
	}
	return moments
}

func (e *MomentExtractor) templatesFor(analysis *models.GARAnalysis, opts models.HighlightOptions) []momentTemplate {
	if templates, ok := sportTemplates[strings.ToLower(analysis.Sport)]; ok {
		return templates
	}
	count := opts.HighlightCount
	if count <= 0 {
		count = defaultHighlightCount
	}
	templates := make([]momentTemplate, count)
	for i := range templates {
		templates[i] = genericTemplate
	}
	return templates
}
