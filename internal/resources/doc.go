// Package resources manages lazily constructed heavyweight handles (model
// weights, GPU contexts) so at most one is resident unless a stage explicitly
// needs several at once.
package resources
