package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/captions"
	"clipforge/internal/ledger"
	"clipforge/internal/logging"
	"clipforge/internal/services"
	"clipforge/internal/storage"
	"clipforge/internal/textutil"
)

// narrationWordsPerSecond estimates scene length before the voice track
// exists. Actual durations replace the estimate after synthesis.
const narrationWordsPerSecond = 2.5

type storyState struct {
	params     StoryParams
	script     string
	scenes     []captions.Scene
	scenePaths []ScenePaths
	voiceTrack []byte
	composed   string
}

func (o *Orchestrator) storyStages(exec *Execution) []stageDef {
	state := &storyState{}
	return []stageDef{
		{StageStoryGenerate, func(ctx context.Context, exec *Execution) error {
			return o.storyGenerate(ctx, exec, state)
		}},
		{StageStoryboard, func(ctx context.Context, exec *Execution) error {
			return o.storyboard(ctx, exec, state)
		}},
		{StageRenderScenes, func(ctx context.Context, exec *Execution) error {
			return o.renderScenes(ctx, exec, state)
		}},
		{StageCompose, func(ctx context.Context, exec *Execution) error {
			return o.composeScenes(ctx, exec, state)
		}},
		{StageCaptionSync, func(ctx context.Context, exec *Execution) error {
			return o.captionSync(ctx, exec, state)
		}},
		{StageFinalize, func(ctx context.Context, exec *Execution) error {
			return o.storyFinalize(ctx, exec, state)
		}},
	}
}

func (o *Orchestrator) storyGenerate(ctx context.Context, exec *Execution, state *storyState) error {
	params, err := parseStoryParams(exec.Job.ParamsJSON)
	if err != nil {
		return err
	}
	state.params = params

	if err := exec.Acquire(ctx, ResourceTextGen); err != nil {
		return err
	}
	prompt := fmt.Sprintf(
		"Write a short narrated story about %q between %d and %d characters. Plain prose, no headings.",
		params.Topic, o.cfg.Story.CharLimitMin, o.cfg.Story.CharLimitMax)
	script, err := o.contracts.Text.GenerateText(ctx, prompt)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageStoryGenerate, "generate script",
			"text generation call failed", err)
	}
	exec.AddCost(o.cfg.Story.TextCostCents)

	script = strings.TrimSpace(script)
	length := len([]rune(script))
	if length < o.cfg.Story.CharLimitMin || length > o.cfg.Story.CharLimitMax {
		// Out-of-range scripts regenerate on retry rather than failing.
		return services.Wrap(services.ErrTransient, StageStoryGenerate, "generate script",
			fmt.Sprintf("script length %d outside %d-%d", length,
				o.cfg.Story.CharLimitMin, o.cfg.Story.CharLimitMax), nil)
	}
	state.script = script
	return nil
}

// storyboard cuts the script into scene-sized narration chunks with duration
// estimates. Measured audio replaces the estimates during rendering.
func (o *Orchestrator) storyboard(ctx context.Context, exec *Execution, state *storyState) error {
	maxScenes := o.cfg.Story.MaxScenes
	if state.params.MaxScenes > 0 && state.params.MaxScenes < maxScenes {
		maxScenes = state.params.MaxScenes
	}

	sentences := textutil.SplitSentences(state.script)
	if len(sentences) == 0 {
		return services.Wrap(services.ErrFatal, StageStoryboard, "storyboard",
			"generated script contains no sentences", nil)
	}

	// Group sentences evenly so the scene count never exceeds the cap.
	perScene := (len(sentences) + maxScenes - 1) / maxScenes
	for i := 0; i < len(sentences); i += perScene {
		end := i + perScene
		if end > len(sentences) {
			end = len(sentences)
		}
		text := strings.Join(sentences[i:end], " ")
		estimate := float64(len(strings.Fields(text))) / narrationWordsPerSecond
		if estimate > o.cfg.Story.MaxSceneSeconds {
			estimate = o.cfg.Story.MaxSceneSeconds
		}
		state.scenes = append(state.scenes, captions.Scene{
			Index:             len(state.scenes),
			Text:              text,
			EstimatedDuration: estimate,
		})
	}

	updated, err := exec.Store.Update(ctx, exec.Job.ID, ledger.Mutation{
		TotalSegments: ledger.IntPtr(len(state.scenes)),
	})
	if err != nil {
		return err
	}
	exec.Job = updated
	return nil
}

func (o *Orchestrator) renderScenes(ctx context.Context, exec *Execution, state *storyState) error {
	// Image and voice models are both needed per scene; keep them resident
	// together instead of thrashing.
	if _, err := exec.Guard.AcquireAll(ctx, ResourceImageGen, ResourceVoice); err != nil {
		return err
	}

	total := len(state.scenes)
	for i := range state.scenes {
		scene := &state.scenes[i]

		image, err := o.contracts.Image.GenerateImage(ctx,
			fmt.Sprintf("Vertical illustration for: %s", scene.Text))
		if err != nil {
			return services.Wrap(services.ErrTransient, StageRenderScenes, "generate image",
				fmt.Sprintf("scene %d", i), err)
		}
		exec.AddCost(o.cfg.Story.ImageCostCents)

		voice, err := o.contracts.Voice.SynthesizeVoice(ctx, scene.Text, state.params.VoiceID)
		if err != nil {
			return services.Wrap(services.ErrTransient, StageRenderScenes, "synthesize voice",
				fmt.Sprintf("scene %d", i), err)
		}
		exec.AddCost(o.cfg.Story.VoiceCostCents)

		duration, err := o.contracts.Prober.AudioDuration(ctx, voice)
		if err != nil {
			return services.Wrap(services.ErrTransient, StageRenderScenes, "probe audio",
				fmt.Sprintf("scene %d", i), err)
		}
		scene.AudioDuration = duration
		state.voiceTrack = append(state.voiceTrack, voice...)

		imagePath := filepath.Join(exec.WorkDir, fmt.Sprintf("scene_%d.png", i))
		audioPath := filepath.Join(exec.WorkDir, fmt.Sprintf("scene_%d.mp3", i))
		if err := os.WriteFile(imagePath, image, 0o644); err != nil {
			return services.Wrap(services.ErrTransient, StageRenderScenes, "write scene image", imagePath, err)
		}
		if err := os.WriteFile(audioPath, voice, 0o644); err != nil {
			return services.Wrap(services.ErrTransient, StageRenderScenes, "write scene audio", audioPath, err)
		}
		state.scenePaths = append(state.scenePaths, ScenePaths{
			ImagePath: imagePath,
			AudioPath: audioPath,
			Duration:  duration,
		})

		// Keep intermediates recoverable until finalize cleans them up.
		if err := o.uploadBytes(ctx, exec,
			image, storage.ProcessingKey(exec.Job.ID, fmt.Sprintf("scene_%d.png", i)), "image/png"); err != nil {
			return err
		}
		if err := exec.Progress(ctx, float64(i+1)/float64(total)); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) composeScenes(ctx context.Context, exec *Execution, state *storyState) error {
	state.composed = filepath.Join(exec.WorkDir, "final.mp4")
	if err := o.contracts.Editor.ComposeScenes(ctx, state.scenePaths, state.composed); err != nil {
		return services.Wrap(services.ErrFatal, StageCompose, "compose",
			"assembling scenes into final video", err)
	}
	return nil
}

// captionSync builds the word-level caption document. Transcription of the
// composed track is best effort; proportional placement covers the rest.
func (o *Orchestrator) captionSync(ctx context.Context, exec *Execution, state *storyState) error {
	if err := exec.Acquire(ctx, ResourceTranscriber); err != nil {
		return err
	}
	doc, err := captions.Synchronize(ctx, state.scenes, state.voiceTrack, o.contracts.Transcriber)
	if err != nil {
		exec.Logger.Warn("caption transcription unavailable, using proportional timing",
			logging.Error(err))
		doc = captions.Proportional(state.scenes)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return services.Wrap(services.ErrFatal, StageCaptionSync, "encode captions",
			"marshaling caption document", err)
	}
	if err := o.uploadBytes(ctx, exec, payload,
		storage.ResultKey(exec.Job.ID, "captions.json"), "application/json"); err != nil {
		return err
	}
	if err := o.uploadBytes(ctx, exec, []byte(doc.SRT()),
		storage.ResultKey(exec.Job.ID, "captions.srt"), "text/plain"); err != nil {
		return err
	}

	for _, tm := range captions.Retime(state.scenes) {
		if err := exec.Store.InsertSegment(ctx, ledger.Segment{
			JobID: exec.Job.ID,
			Index: tm.Scene.Index,
			Start: tm.Start,
			End:   tm.End,
			Title: textutil.SanitizeFileName(textutil.Truncate(tm.Scene.Text, 48)),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) storyFinalize(ctx context.Context, exec *Execution, state *storyState) error {
	if err := o.uploadFile(ctx, exec, state.composed,
		storage.ResultKey(exec.Job.ID, "final.mp4"), "video/mp4"); err != nil {
		return err
	}
	return o.finalizeArtifacts(ctx, exec)
}
