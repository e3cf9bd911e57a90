// Package captions recomputes scene timing from measured audio durations and
// produces word-level caption documents, either by re-transcribing the
// composed voice track or by proportional word placement when no transcript
// is available.
package captions
