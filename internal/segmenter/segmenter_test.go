package segmenter

import (
	"strings"
	"testing"

	"clipforge/internal/media"
)

// phraseWords spreads text's words over half-second slots starting at offset,
// with intra-phrase gaps well below the pause threshold.
func phraseWords(text string, offset float64) []media.Word {
	fields := strings.Fields(text)
	words := make([]media.Word, 0, len(fields))
	for i, f := range fields {
		start := offset + float64(i)*0.5
		words = append(words, media.Word{Text: f, Start: start, End: start + 0.4})
	}
	return words
}

func transcript(phrases ...[]media.Word) media.Transcript {
	var all []media.Word
	for _, p := range phrases {
		all = append(all, p...)
	}
	return media.Transcript{Words: all}
}

func TestSelectReturnsTopCandidatesChronologically(t *testing.T) {
	tr := transcript(
		phraseWords("the weather was mild and calm", 0),
		phraseWords("here is why you should never skip step 1", 10),
		phraseWords("lunch was fine overall today too", 20),
		phraseWords("the key mistake is important always remember this", 30),
	)
	cfg := Config{MinSeconds: 2, MaxSeconds: 8, MaxSegments: 2}

	proposals := Select(tr, cfg, nil)
	if len(proposals) != 2 {
		t.Fatalf("got %d proposals, want 2", len(proposals))
	}
	if proposals[0].Start >= proposals[1].Start {
		t.Fatalf("proposals out of chronological order: %.1f then %.1f", proposals[0].Start, proposals[1].Start)
	}
	if !strings.Contains(proposals[0].Text, "never skip") {
		t.Errorf("first proposal = %q, want the hook phrase", proposals[0].Text)
	}
	if !strings.Contains(proposals[1].Text, "key mistake") {
		t.Errorf("second proposal = %q, want the mistake phrase", proposals[1].Text)
	}
}

func TestSelectFewerQualifyingThanMax(t *testing.T) {
	tr := transcript(phraseWords("remember this one important thing always", 0))
	cfg := Config{MinSeconds: 1, MaxSeconds: 8, MaxSegments: 5}

	proposals := Select(tr, cfg, nil)
	if len(proposals) != 1 {
		t.Fatalf("got %d proposals, want 1", len(proposals))
	}
}

func TestSelectRespectsDurationBounds(t *testing.T) {
	tr := transcript(
		phraseWords("one two three four five six seven eight", 0),
		phraseWords("nine ten eleven twelve thirteen fourteen", 10),
	)
	cfg := Config{MinSeconds: 2, MaxSeconds: 5, MaxSegments: 10}

	for _, p := range Select(tr, cfg, nil) {
		duration := p.End - p.Start
		if duration < cfg.MinSeconds || duration > cfg.MaxSeconds {
			t.Errorf("proposal duration %.2f outside [%.0f, %.0f]", duration, cfg.MinSeconds, cfg.MaxSeconds)
		}
	}
}

func TestSelectedProposalsNeverOverlap(t *testing.T) {
	tr := transcript(
		phraseWords("first important point about the key idea", 0),
		phraseWords("second important point about the key idea", 5),
		phraseWords("third important point about the key idea", 10),
	)
	cfg := Config{MinSeconds: 2, MaxSeconds: 12, MaxSegments: 3}

	proposals := Select(tr, cfg, nil)
	for i := 1; i < len(proposals); i++ {
		if proposals[i].Start < proposals[i-1].End {
			t.Fatalf("proposal %d starting at %.1f overlaps previous ending at %.1f",
				i, proposals[i].Start, proposals[i-1].End)
		}
	}
}

func TestSelectEmptyTranscript(t *testing.T) {
	cfg := Config{MinSeconds: 2, MaxSeconds: 8, MaxSegments: 3}
	if got := Select(media.Transcript{}, cfg, nil); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestSelectRejectsDegenerateConfig(t *testing.T) {
	tr := transcript(phraseWords("some words here", 0))
	if got := Select(tr, Config{MinSeconds: 5, MaxSeconds: 5, MaxSegments: 3}, nil); got != nil {
		t.Fatalf("max <= min accepted: %v", got)
	}
	if got := Select(tr, Config{MinSeconds: 1, MaxSeconds: 8, MaxSegments: 0}, nil); got != nil {
		t.Fatalf("zero max segments accepted: %v", got)
	}
}

func TestHeuristicScorerPrefersHooksAndNumbers(t *testing.T) {
	scorer := HeuristicScorer{}

	flat := scorer.Score("we went to the store and then came home")
	hooked := scorer.Score("here is why you should never make this mistake: step 1 matters")
	if hooked <= flat {
		t.Fatalf("hooked %.2f <= flat %.2f", hooked, flat)
	}
	if scorer.Score("") != 0 {
		t.Fatal("empty text scored above zero")
	}
}
