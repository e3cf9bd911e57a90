package media

import (
	"fmt"
	"strings"

	"clipforge/internal/services"
)

// Word is a single transcribed word with absolute timing in seconds.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is an ordered, non-overlapping word-timing sequence.
type Transcript struct {
	Words []Word
}

// Normalize converts raw transcription engine output into a Transcript.
// Empty words are dropped; timing violations reject the whole payload as a
// transient failure so the orchestrator retries the transcription call.
func Normalize(words []Word) (Transcript, error) {
	cleaned := make([]Word, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		cleaned = append(cleaned, Word{Text: text, Start: w.Start, End: w.End})
	}

	for i, w := range cleaned {
		if w.Start < 0 {
			return Transcript{}, invalid(fmt.Sprintf("word %d starts at %.3f before zero", i, w.Start))
		}
		if w.End <= w.Start {
			return Transcript{}, invalid(fmt.Sprintf("word %d has end %.3f <= start %.3f", i, w.End, w.Start))
		}
		if i > 0 && w.Start < cleaned[i-1].End {
			return Transcript{}, invalid(fmt.Sprintf("word %d overlaps previous word (start %.3f < end %.3f)", i, w.Start, cleaned[i-1].End))
		}
	}

	return Transcript{Words: cleaned}, nil
}

func invalid(detail string) error {
	return services.Wrap(services.ErrTransient, "transcribe", "normalize", detail, nil)
}

// Duration returns the end time of the last word, in seconds.
func (t Transcript) Duration() float64 {
	if len(t.Words) == 0 {
		return 0
	}
	return t.Words[len(t.Words)-1].End
}

// Text joins all words with single spaces.
func (t Transcript) Text() string {
	parts := make([]string, len(t.Words))
	for i, w := range t.Words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// Slice returns the words whose start time falls within [start, end).
func (t Transcript) Slice(start, end float64) []Word {
	var out []Word
	for _, w := range t.Words {
		if w.Start >= start && w.Start < end {
			out = append(out, w)
		}
	}
	return out
}
