// Package pipeline runs jobs from the ledger through their stage sequences:
// a worker pool claims queued jobs, executes each stage with weighted
// progress reporting, classifies failures, and keeps heartbeats fresh. The
// sweeper recovers jobs whose workers died without reporting.
package pipeline
