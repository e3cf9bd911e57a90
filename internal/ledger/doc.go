// Package ledger persists jobs and their produced segments in SQLite. It is
// the single source of truth for job status, monotonic progress, worker
// claims, heartbeats, and stuck-job recovery.
package ledger
