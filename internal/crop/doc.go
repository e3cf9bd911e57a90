// Package crop computes subject-aware crop windows for reframing video to a
// target aspect ratio. Detector samples are taken at a fixed frame interval,
// smoothed, and interpolated so the window moves without visible jumps.
package crop
