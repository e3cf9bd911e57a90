package captions

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"clipforge/internal/media"
	"clipforge/internal/services"
)

type fakeTranscriber struct {
	words []media.Word
	err   error
}

func (f fakeTranscriber) Transcribe(context.Context, []byte) ([]media.Word, error) {
	return f.words, f.err
}

func scenesFixture() []Scene {
	return []Scene{
		{Index: 0, Text: "The storm arrived at dawn.", EstimatedDuration: 4, AudioDuration: 3.2},
		{Index: 1, Text: "Nobody saw it coming.", EstimatedDuration: 3, AudioDuration: 2.5},
		{Index: 2, Text: "The town would never be the same.", EstimatedDuration: 5},
	}
}

func TestRetimeUsesMeasuredDurations(t *testing.T) {
	timings := Retime(scenesFixture())
	if len(timings) != 3 {
		t.Fatalf("expected 3 timings, got %d", len(timings))
	}
	if timings[0].Start != 0 || math.Abs(timings[0].End-3.2) > 1e-9 {
		t.Fatalf("scene 0 timing wrong: %+v", timings[0])
	}
	if math.Abs(timings[1].Start-3.2) > 1e-9 || math.Abs(timings[1].End-5.7) > 1e-9 {
		t.Fatalf("scene 1 timing wrong: %+v", timings[1])
	}
	// Scene 2 has no measured audio, so the estimate stands.
	if math.Abs(timings[2].End-10.7) > 1e-9 {
		t.Fatalf("scene 2 timing wrong: %+v", timings[2])
	}
	for i := 1; i < len(timings); i++ {
		if timings[i].Start != timings[i-1].End {
			t.Fatalf("gap between scenes %d and %d", i-1, i)
		}
	}
}

func TestSynchronizeAssignsWordsByStartTime(t *testing.T) {
	tr := fakeTranscriber{words: []media.Word{
		{Text: "The", Start: 0.1, End: 0.3},
		{Text: "storm", Start: 0.4, End: 0.9},
		{Text: "arrived", Start: 1.0, End: 1.5},
		{Text: "at", Start: 1.6, End: 1.8},
		{Text: "dawn", Start: 1.9, End: 2.4},
		{Text: "Nobody", Start: 3.3, End: 3.8},
		{Text: "saw", Start: 3.9, End: 4.2},
		{Text: "same", Start: 10.8, End: 11.1},
	}}

	doc, err := Synchronize(context.Background(), scenesFixture(), []byte("audio"), tr)
	if err != nil {
		t.Fatalf("Synchronize returned error: %v", err)
	}
	if len(doc.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(doc.Segments))
	}
	if got := len(doc.Segments[0].Words); got != 5 {
		t.Fatalf("scene 0: expected 5 words, got %d", got)
	}
	if doc.Segments[1].Words[0].Word != "Nobody" {
		t.Fatalf("scene 1: wrong word %q", doc.Segments[1].Words[0].Word)
	}
	// A word starting past the timeline end sticks to the last scene.
	last := doc.Segments[2].Words
	if len(last) != 1 || last[0].Word != "same" {
		t.Fatalf("scene 2: words %+v", last)
	}
	// Timestamps come through verbatim.
	if doc.Segments[0].Words[1].Start != 0.4 || doc.Segments[0].Words[1].End != 0.9 {
		t.Fatalf("word timing was altered: %+v", doc.Segments[0].Words[1])
	}
}

func TestSynchronizeTranscriberFailureIsTransient(t *testing.T) {
	tr := fakeTranscriber{err: errors.New("asr backend unavailable")}
	_, err := Synchronize(context.Background(), scenesFixture(), []byte("audio"), tr)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func TestSynchronizeRejectsEmptyTranscript(t *testing.T) {
	// A transcriber that succeeds but hears nothing must not produce an empty
	// caption document; the caller falls back to Proportional instead.
	tr := fakeTranscriber{}
	_, err := Synchronize(context.Background(), scenesFixture(), []byte("audio"), tr)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func TestSynchronizeRejectsSparseTranscript(t *testing.T) {
	// The fixture scripts 16 words; recognizing only two of them means the
	// recognition cannot anchor word-level timing.
	tr := fakeTranscriber{words: []media.Word{
		{Text: "The", Start: 0.1, End: 0.3},
		{Text: "storm", Start: 0.4, End: 0.9},
	}}
	_, err := Synchronize(context.Background(), scenesFixture(), []byte("audio"), tr)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func TestForClipRebasesWordTimings(t *testing.T) {
	words := []media.Word{
		{Text: "keep", Start: 12.5, End: 12.9},
		{Text: "going", Start: 13.0, End: 13.6},
	}
	doc := ForClip(" Keep going. ", words, 12.0, 15.0)

	if len(doc.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(doc.Segments))
	}
	seg := doc.Segments[0]
	if seg.Start != 0 || math.Abs(seg.End-3.0) > 1e-9 {
		t.Fatalf("segment boundaries: %+v", seg)
	}
	if seg.Text != "Keep going." || doc.Text != "Keep going." {
		t.Fatalf("text not trimmed: %q", seg.Text)
	}
	if len(seg.Words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(seg.Words))
	}
	if math.Abs(seg.Words[0].Start-0.5) > 1e-9 || math.Abs(seg.Words[1].End-1.6) > 1e-9 {
		t.Fatalf("word timings not rebased to the clip: %+v", seg.Words)
	}
}

func TestProportionalMatchesRetimedBoundaries(t *testing.T) {
	scenes := scenesFixture()
	doc := Proportional(scenes)
	timings := Retime(scenes)

	for i, seg := range doc.Segments {
		if seg.Start != timings[i].Start || seg.End != timings[i].End {
			t.Fatalf("segment %d boundaries diverge from retimed layout", i)
		}
		words := seg.Words
		if len(words) != len(strings.Fields(scenes[i].Text)) {
			t.Fatalf("segment %d: word count mismatch", i)
		}
		if words[0].Start != seg.Start {
			t.Fatalf("segment %d: first word does not start at segment start", i)
		}
		if math.Abs(words[len(words)-1].End-seg.End) > 1e-9 {
			t.Fatalf("segment %d: last word does not end at segment end", i)
		}
		for j := 1; j < len(words); j++ {
			if words[j].Start < words[j-1].End-1e-9 {
				t.Fatalf("segment %d: words %d and %d overlap", i, j-1, j)
			}
		}
	}
}

func TestSRTFormat(t *testing.T) {
	doc := Proportional([]Scene{{Index: 0, Text: "Hello there.", AudioDuration: 2.5}})
	srt := doc.SRT()
	want := "1\n00:00:00,000 --> 00:00:02,500\nHello there.\n\n"
	if srt != want {
		t.Fatalf("SRT output:\n%q\nwant:\n%q", srt, want)
	}
}
