// Package media holds the word-timing transcript model and the contracts
// clipforge expects from external inference backends (transcription, object
// detection, text/image/voice generation). The backends themselves live
// outside this module; the pipeline only depends on these interfaces.
package media
