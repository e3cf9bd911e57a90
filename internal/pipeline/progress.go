package pipeline

import "clipforge/internal/ledger"

// Stage names, in execution order per kind.
const (
	StageValidate        = "validate"
	StageTranscribe      = "transcribe"
	StageSegmentSelect   = "segment-select"
	StageProcessSegments = "process-segments"
	StageStoryGenerate   = "story-generate"
	StageStoryboard      = "storyboard"
	StageRenderScenes    = "render-scenes"
	StageCompose         = "compose"
	StageCaptionSync     = "caption-sync"
	StageFinalize        = "finalize"
)

// progressSpan maps a stage onto its slice of the 0-100 progress range.
// Intra-stage fractions interpolate within the span, so overall progress
// stays monotonic across stage boundaries.
type progressSpan struct {
	stage string
	from  float64
	to    float64
}

var progressPlans = map[ledger.Kind][]progressSpan{
	ledger.KindClipExtraction: {
		{StageValidate, 0, 10},
		{StageTranscribe, 10, 30},
		{StageSegmentSelect, 30, 50},
		{StageProcessSegments, 50, 95},
		{StageFinalize, 95, 100},
	},
	ledger.KindStoryVideo: {
		{StageStoryGenerate, 5, 20},
		{StageStoryboard, 20, 25},
		{StageRenderScenes, 25, 85},
		{StageCompose, 85, 90},
		{StageCaptionSync, 90, 95},
		{StageFinalize, 95, 100},
	},
}

func spanFor(kind ledger.Kind, stage string) (progressSpan, bool) {
	for _, span := range progressPlans[kind] {
		if span.stage == stage {
			return span, true
		}
	}
	return progressSpan{}, false
}
