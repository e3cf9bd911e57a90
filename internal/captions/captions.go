package captions

import (
	"context"
	"fmt"
	"strings"

	"clipforge/internal/media"
	"clipforge/internal/services"
)

// Scene is one narrated unit of a synthetic video. EstimatedDuration is the
// planning estimate; AudioDuration is measured from the synthesized voice
// track and takes precedence once known.
type Scene struct {
	Index             int
	Text              string
	EstimatedDuration float64
	AudioDuration     float64
}

// Timing is a scene's position on the final composed timeline.
type Timing struct {
	Scene Scene
	Start float64
	End   float64
}

// duration prefers the measured audio length over the planning estimate.
func (s Scene) duration() float64 {
	if s.AudioDuration > 0 {
		return s.AudioDuration
	}
	return s.EstimatedDuration
}

// Retime lays scenes out back to back using measured audio durations, falling
// back to the estimate only for scenes whose audio has not been measured.
// The result always starts at zero with no gaps or overlap.
func Retime(scenes []Scene) []Timing {
	out := make([]Timing, 0, len(scenes))
	var cursor float64
	for _, sc := range scenes {
		d := sc.duration()
		if d < 0 {
			d = 0
		}
		out = append(out, Timing{Scene: sc, Start: cursor, End: cursor + d})
		cursor += d
	}
	return out
}

// Synchronize transcribes the composed voice track and assigns each
// transcribed word to the scene whose retimed window contains its start time.
// Word timestamps are kept verbatim from the transcript. A transcription
// failure is transient; the caller is expected to fall back to Proportional.
func Synchronize(ctx context.Context, scenes []Scene, audio []byte, tr media.Transcriber) (Document, error) {
	timings := Retime(scenes)

	raw, err := tr.Transcribe(ctx, audio)
	if err != nil {
		return Document{}, services.Wrap(services.ErrTransient, "caption-sync", "transcribe",
			"composed audio track", err)
	}
	transcript, err := media.Normalize(raw)
	if err != nil {
		return Document{}, err
	}

	// An empty or grossly short recognition cannot anchor word-level timing;
	// the caller falls back to Proportional instead of persisting it.
	scripted := len(strings.Fields(joinSceneText(scenes)))
	recognized := len(transcript.Words)
	if recognized == 0 {
		return Document{}, services.Wrap(services.ErrTransient, "caption-sync", "transcribe",
			"no words recognized in composed audio", nil)
	}
	if scripted > 0 && (recognized*2 < scripted || recognized > scripted*2) {
		return Document{}, services.Wrap(services.ErrTransient, "caption-sync", "transcribe",
			fmt.Sprintf("recognized %d words for %d scripted", recognized, scripted), nil)
	}

	segments := make([]Segment, len(timings))
	for i, tm := range timings {
		segments[i] = Segment{
			ID:    tm.Scene.Index,
			Start: tm.Start,
			End:   tm.End,
			Text:  tm.Scene.Text,
		}
	}

	// Assign by start time. The final scene also absorbs words whose start
	// lands exactly on, or drifts slightly past, the timeline end.
	for _, w := range transcript.Words {
		idx := -1
		for i, tm := range timings {
			if w.Start >= tm.Start && w.Start < tm.End {
				idx = i
				break
			}
		}
		if idx < 0 {
			if len(timings) > 0 && w.Start >= timings[len(timings)-1].End {
				idx = len(timings) - 1
			} else {
				continue
			}
		}
		segments[idx].Words = append(segments[idx].Words, Word{
			Word:  w.Text,
			Start: w.Start,
			End:   w.End,
		})
	}

	return Document{Text: joinSceneText(scenes), Segments: segments}, nil
}

// ForClip builds the caption document for one clip cut from [start, end) of a
// longer source. Words come from the source transcript slice covering the
// clip; their timestamps are rebased so the clip starts at zero.
func ForClip(text string, words []media.Word, start, end float64) Document {
	seg := Segment{
		Start: 0,
		End:   end - start,
		Text:  strings.TrimSpace(text),
	}
	for _, w := range words {
		seg.Words = append(seg.Words, Word{
			Word:  w.Text,
			Start: w.Start - start,
			End:   w.End - start,
		})
	}
	return Document{Text: seg.Text, Segments: []Segment{seg}}
}

// Proportional builds a caption document without a transcript by spreading
// each scene's own words evenly across its retimed window. Used when
// transcription of the composed track is unavailable.
func Proportional(scenes []Scene) Document {
	timings := Retime(scenes)
	segments := make([]Segment, len(timings))
	for i, tm := range timings {
		seg := Segment{
			ID:    tm.Scene.Index,
			Start: tm.Start,
			End:   tm.End,
			Text:  tm.Scene.Text,
		}
		tokens := strings.Fields(tm.Scene.Text)
		if n := len(tokens); n > 0 && tm.End > tm.Start {
			step := (tm.End - tm.Start) / float64(n)
			for j, tok := range tokens {
				seg.Words = append(seg.Words, Word{
					Word:  tok,
					Start: tm.Start + float64(j)*step,
					End:   tm.Start + float64(j+1)*step,
				})
			}
		}
		segments[i] = seg
	}
	return Document{Text: joinSceneText(scenes), Segments: segments}
}

func joinSceneText(scenes []Scene) string {
	parts := make([]string, 0, len(scenes))
	for _, sc := range scenes {
		if t := strings.TrimSpace(sc.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
