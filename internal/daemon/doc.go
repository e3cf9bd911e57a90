// Package daemon ties the ledger, pipeline, sweeper, and retention loop into
// a single-instance background service.
package daemon
