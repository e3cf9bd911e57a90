// Package toolchain implements the pipeline's media contracts on top of
// external binaries: ffmpeg and ffprobe for cutting, composing, decoding,
// and probing, plus configurable transcription and detection CLIs that emit
// JSON on stdout.
package toolchain
