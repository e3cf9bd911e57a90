package segmenter

import (
	"sort"
	"strings"

	"clipforge/internal/media"
)

// Config bounds candidate segment durations and caps the selection size.
type Config struct {
	MinSeconds  float64
	MaxSeconds  float64
	MaxSegments int
}

// Proposal is one selected segment, in original chronological order.
type Proposal struct {
	Start float64
	End   float64
	Text  string
	Score float64
}

// pauseGapSeconds is the silence length that separates two phrases.
const pauseGapSeconds = 0.8

// Select proposes duration-bounded candidate segments from the transcript,
// ranks them with the scorer, keeps the top-N non-overlapping candidates, and
// returns them re-sorted chronologically. Fewer than N qualifying candidates
// yield a shorter result, never an error.
func Select(tr media.Transcript, cfg Config, scorer Scorer) []Proposal {
	if cfg.MinSeconds <= 0 {
		cfg.MinSeconds = 1
	}
	if cfg.MaxSeconds <= cfg.MinSeconds || cfg.MaxSegments < 1 {
		return nil
	}
	if scorer == nil {
		scorer = HeuristicScorer{}
	}

	phrases := splitPhrases(tr)
	if len(phrases) == 0 {
		return nil
	}

	candidates := buildCandidates(phrases, cfg, scorer)
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	selected := make([]Proposal, 0, cfg.MaxSegments)
	for _, cand := range candidates {
		if len(selected) == cfg.MaxSegments {
			break
		}
		if overlapsAny(cand, selected) {
			continue
		}
		selected = append(selected, cand)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Start < selected[j].Start
	})
	return selected
}

type phrase struct {
	start float64
	end   float64
	text  string
}

// splitPhrases groups words into phrases separated by silence gaps.
func splitPhrases(tr media.Transcript) []phrase {
	var out []phrase
	var current []media.Word
	flush := func() {
		if len(current) == 0 {
			return
		}
		parts := make([]string, len(current))
		for i, w := range current {
			parts[i] = w.Text
		}
		out = append(out, phrase{
			start: current[0].Start,
			end:   current[len(current)-1].End,
			text:  strings.Join(parts, " "),
		})
		current = current[:0]
	}

	for i, w := range tr.Words {
		if i > 0 && w.Start-tr.Words[i-1].End > pauseGapSeconds {
			flush()
		}
		current = append(current, w)
	}
	flush()
	return out
}

// buildCandidates combines consecutive phrase runs into windows that satisfy
// the duration bounds and scores each window's text.
func buildCandidates(phrases []phrase, cfg Config, scorer Scorer) []Proposal {
	var out []Proposal
	for i := 0; i < len(phrases); i++ {
		var parts []string
		for j := i; j < len(phrases); j++ {
			parts = append(parts, phrases[j].text)
			duration := phrases[j].end - phrases[i].start
			if duration > cfg.MaxSeconds {
				break
			}
			if duration < cfg.MinSeconds {
				continue
			}
			text := strings.TrimSpace(strings.Join(parts, " "))
			if text == "" {
				continue
			}
			out = append(out, Proposal{
				Start: phrases[i].start,
				End:   phrases[j].end,
				Text:  text,
				Score: scorer.Score(text),
			})
		}
	}
	return out
}

func overlapsAny(cand Proposal, selected []Proposal) bool {
	for _, s := range selected {
		if cand.Start < s.End && s.Start < cand.End {
			return true
		}
	}
	return false
}
