// Package segmenter selects the most promising transcript windows for clip
// extraction: duration-bounded candidate windows ranked by a pluggable
// content-quality scorer, returned in chronological order.
package segmenter
