package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"clipforge/internal/captions"
	"clipforge/internal/crop"
	"clipforge/internal/ledger"
	"clipforge/internal/media"
	"clipforge/internal/segmenter"
	"clipforge/internal/services"
	"clipforge/internal/storage"
	"clipforge/internal/textutil"
)

type clipState struct {
	params     ClipParams
	sourcePath string
	transcript media.Transcript
	proposals  []segmenter.Proposal
}

func (o *Orchestrator) clipStages(exec *Execution) []stageDef {
	state := &clipState{}
	cropper := crop.New(crop.Config{
		AspectW:             9,
		AspectH:             16,
		SampleInterval:      o.cfg.Crop.SampleInterval,
		ConfidenceThreshold: o.cfg.Crop.ConfidenceThreshold,
		PersonWeight:        o.cfg.Crop.PersonWeight,
		ObjectWeight:        o.cfg.Crop.ObjectWeight,
		MaxStepPx:           o.cfg.Crop.MaxStepPx,
		SmoothingFactor:     o.cfg.Crop.SmoothingFactor,
	}, o.contracts.Detector)

	return []stageDef{
		{StageValidate, func(ctx context.Context, exec *Execution) error {
			return o.clipValidate(ctx, exec, state)
		}},
		{StageTranscribe, func(ctx context.Context, exec *Execution) error {
			return o.clipTranscribe(ctx, exec, state)
		}},
		{StageSegmentSelect, func(ctx context.Context, exec *Execution) error {
			return o.clipSegmentSelect(ctx, exec, state)
		}},
		{StageProcessSegments, func(ctx context.Context, exec *Execution) error {
			return o.clipProcessSegments(ctx, exec, state, cropper)
		}},
		{StageFinalize, func(ctx context.Context, exec *Execution) error {
			return o.finalizeArtifacts(ctx, exec)
		}},
	}
}

// clipValidate checks parameters and pulls the uploaded source into the work
// dir so later stages operate on a local file.
func (o *Orchestrator) clipValidate(ctx context.Context, exec *Execution, state *clipState) error {
	params, err := parseClipParams(exec.Job.ParamsJSON)
	if err != nil {
		return err
	}
	state.params = params

	rc, err := exec.Assets.Get(ctx, params.SourceKey)
	if err != nil {
		return services.Wrap(services.ErrValidation, StageValidate, "fetch source",
			fmt.Sprintf("source asset %s is not available", params.SourceKey), err)
	}
	defer rc.Close()

	state.sourcePath = filepath.Join(exec.WorkDir, "source"+path.Ext(params.SourceKey))
	dst, err := os.Create(state.sourcePath)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageValidate, "stage source",
			"creating local source copy", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, rc); err != nil {
		return services.Wrap(services.ErrTransient, StageValidate, "stage source",
			"copying source to work dir", err)
	}
	return nil
}

func (o *Orchestrator) clipTranscribe(ctx context.Context, exec *Execution, state *clipState) error {
	if err := exec.Acquire(ctx, ResourceTranscriber); err != nil {
		return err
	}
	audio, err := os.ReadFile(state.sourcePath)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageTranscribe, "read source",
			state.sourcePath, err)
	}
	raw, err := o.contracts.Transcriber.Transcribe(ctx, audio)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageTranscribe, "transcribe",
			"speech-to-text call failed", err)
	}
	transcript, err := media.Normalize(raw)
	if err != nil {
		return err
	}
	if transcript.Duration() == 0 {
		return services.Wrap(services.ErrFatal, StageTranscribe, "transcribe",
			"no speech found in source video", nil)
	}
	state.transcript = transcript
	return nil
}

func (o *Orchestrator) clipSegmentSelect(ctx context.Context, exec *Execution, state *clipState) error {
	segCfg := segmenter.Config{
		MinSeconds:  o.cfg.Segmenter.MinSeconds,
		MaxSeconds:  o.cfg.Segmenter.MaxSeconds,
		MaxSegments: o.cfg.Segmenter.MaxSegments,
	}
	if state.params.MaxClips > 0 && state.params.MaxClips < segCfg.MaxSegments {
		segCfg.MaxSegments = state.params.MaxClips
	}

	state.proposals = segmenter.Select(state.transcript, segCfg, segmenter.HeuristicScorer{})
	if len(state.proposals) == 0 {
		return services.Wrap(services.ErrFatal, StageSegmentSelect, "select",
			"no segments satisfy the duration bounds", nil)
	}

	updated, err := exec.Store.Update(ctx, exec.Job.ID, ledger.Mutation{
		TotalSegments: ledger.IntPtr(len(state.proposals)),
	})
	if err != nil {
		return err
	}
	exec.Job = updated
	return nil
}

func (o *Orchestrator) clipProcessSegments(ctx context.Context, exec *Execution, state *clipState, cropper *crop.Engine) error {
	if err := exec.Acquire(ctx, ResourceDetector); err != nil {
		return err
	}

	// One detector pass over the source serves every segment; CutClip reads
	// the slice of the plan each segment covers.
	frames, err := o.contracts.Frames.OpenFrames(ctx, state.sourcePath)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageProcessSegments, "decode frames",
			state.sourcePath, err)
	}
	plan, err := cropper.Plan(ctx, frames)
	if err != nil {
		return err
	}

	total := len(state.proposals)
	for i, proposal := range state.proposals {
		outPath := filepath.Join(exec.WorkDir, fmt.Sprintf("clip_%d.mp4", i))
		if err := o.contracts.Editor.CutClip(ctx, state.sourcePath, proposal.Start, proposal.End, plan, outPath); err != nil {
			return services.Wrap(services.ErrFatal, StageProcessSegments, "cut clip",
				fmt.Sprintf("segment %d (%.1fs-%.1fs)", i, proposal.Start, proposal.End), err)
		}

		resultKey := storage.ResultKey(exec.Job.ID, fmt.Sprintf("clip_%d.mp4", i))
		if err := o.uploadFile(ctx, exec, outPath, resultKey, "video/mp4"); err != nil {
			return err
		}
		if err := o.uploadClipCaptions(ctx, exec, state, proposal, i); err != nil {
			return err
		}

		if err := exec.Store.InsertSegment(ctx, ledger.Segment{
			JobID:     exec.Job.ID,
			Index:     i,
			Start:     proposal.Start,
			End:       proposal.End,
			Score:     proposal.Score,
			Title:     textutil.SanitizeFileName(textutil.Truncate(proposal.Text, 48)),
			ResultKey: resultKey,
		}); err != nil {
			return err
		}
		if err := exec.Progress(ctx, float64(i+1)/float64(total)); err != nil {
			return err
		}
	}
	return nil
}

// uploadClipCaptions writes the word-level caption sidecars for one extracted
// clip, timed on the clip's own zero-based timeline.
func (o *Orchestrator) uploadClipCaptions(ctx context.Context, exec *Execution, state *clipState, proposal segmenter.Proposal, index int) error {
	doc := captions.ForClip(proposal.Text,
		state.transcript.Slice(proposal.Start, proposal.End),
		proposal.Start, proposal.End)

	payload, err := json.Marshal(doc)
	if err != nil {
		return services.Wrap(services.ErrFatal, StageProcessSegments, "encode captions",
			fmt.Sprintf("segment %d", index), err)
	}
	if err := o.uploadBytes(ctx, exec, payload,
		storage.ResultKey(exec.Job.ID, fmt.Sprintf("clip_%d.json", index)), "application/json"); err != nil {
		return err
	}
	return o.uploadBytes(ctx, exec, []byte(doc.SRT()),
		storage.ResultKey(exec.Job.ID, fmt.Sprintf("clip_%d.srt", index)), "text/plain")
}

// finalizeArtifacts drops every intermediate asset the job wrote to the
// processing namespace. Results stay.
func (o *Orchestrator) finalizeArtifacts(ctx context.Context, exec *Execution) error {
	prefix := storage.ProcessingKey(exec.Job.ID, "")
	assets, err := exec.Assets.List(ctx, prefix)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageFinalize, "list artifacts", prefix, err)
	}
	for _, asset := range assets {
		if err := exec.Assets.Delete(ctx, asset.Key); err != nil {
			return services.Wrap(services.ErrTransient, StageFinalize, "delete artifact", asset.Key, err)
		}
	}
	return nil
}

func (o *Orchestrator) uploadFile(ctx context.Context, exec *Execution, localPath, key, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return services.Wrap(services.ErrTransient, exec.currentSpan.stage, "upload", localPath, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return services.Wrap(services.ErrTransient, exec.currentSpan.stage, "upload", localPath, err)
	}
	if err := exec.Assets.Put(ctx, key, f, info.Size(), contentType); err != nil {
		return services.Wrap(services.ErrTransient, exec.currentSpan.stage, "upload", key, err)
	}
	return nil
}

func (o *Orchestrator) uploadBytes(ctx context.Context, exec *Execution, payload []byte, key, contentType string) error {
	if err := exec.Assets.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), contentType); err != nil {
		return services.Wrap(services.ErrTransient, exec.currentSpan.stage, "upload", key, err)
	}
	return nil
}
