package captions

import (
	"fmt"
	"strings"
	"time"
)

// Word is one caption word with absolute timeline timestamps in seconds.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is one scene's caption block.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words"`
}

// Document is the caption payload stored alongside a composed video. Its JSON
// shape is consumed by downstream renderers and must stay stable.
type Document struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// SRT renders the document in SubRip format, one cue per segment.
func (d Document) SRT() string {
	var b strings.Builder
	for i, seg := range d.Segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(seg.Start), srtTimestamp(seg.End), strings.TrimSpace(seg.Text))
	}
	return b.String()
}

func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second))
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
