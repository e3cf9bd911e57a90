package pipeline

import (
	"encoding/json"
	"strings"

	"clipforge/internal/services"
)

// ClipParams describe a clip-extraction job. SourceKey points at the
// uploaded long-form video in the asset store.
type ClipParams struct {
	SourceKey       string  `json:"source_key"`
	Title           string  `json:"title,omitempty"`
	MaxClips        int     `json:"max_clips,omitempty"`
	ExpectedMinutes float64 `json:"expected_minutes,omitempty"`
}

// StoryParams describe a synthetic-generation job.
type StoryParams struct {
	Topic           string  `json:"topic"`
	VoiceID         string  `json:"voice_id,omitempty"`
	MaxScenes       int     `json:"max_scenes,omitempty"`
	ExpectedMinutes float64 `json:"expected_minutes,omitempty"`
}

func parseClipParams(raw string) (ClipParams, error) {
	var p ClipParams
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, services.Wrap(services.ErrValidation, "validate", "parse params",
			"job parameters are not valid JSON", err)
	}
	if strings.TrimSpace(p.SourceKey) == "" {
		return p, services.Wrap(services.ErrValidation, "validate", "parse params",
			"source_key is required", nil)
	}
	return p, nil
}

func parseStoryParams(raw string) (StoryParams, error) {
	var p StoryParams
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, services.Wrap(services.ErrValidation, "validate", "parse params",
			"job parameters are not valid JSON", err)
	}
	if strings.TrimSpace(p.Topic) == "" {
		return p, services.Wrap(services.ErrValidation, "validate", "parse params",
			"topic is required", nil)
	}
	return p, nil
}
