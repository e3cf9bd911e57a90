package segmenter

import (
	"regexp"
	"strings"
)

// Scorer ranks candidate segment text. Higher is better.
type Scorer interface {
	Score(text string) float64
}

var (
	reNum  = regexp.MustCompile(`\b\d+(?:[\.,]\d+)?\b`)
	reHook = regexp.MustCompile(`(?i)\b(important|key|secret|mistake|never|always|here\s+is\s+why|remember)\b`)
	reHow  = regexp.MustCompile(`(?i)\b(how\s+to|step\s+\d+|first|second|third|do\s+this)\b`)
)

// HeuristicScorer is the default content-quality heuristic: cheap,
// deterministic pre-ranking of informational density and hook strength.
type HeuristicScorer struct{}

// Score returns a combined score in [0, 20].
func (HeuristicScorer) Score(text string) float64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}
	lower := strings.ToLower(t)

	info := float64(len(reNum.FindAllStringIndex(t, -1))) * 0.4
	if reHow.MatchString(lower) {
		info += 1.2
	}
	// small length penalty
	info -= 0.0006 * float64(len([]rune(t)))

	hook := float64(len(reHook.FindAllStringIndex(lower, -1))) * 0.9
	hook += float64(strings.Count(t, "?")) * 0.7
	hook += float64(strings.Count(t, "!")) * 0.3

	return clamp(info, 0, 10) + clamp(hook, 0, 10)
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
