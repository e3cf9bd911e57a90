// Package storage is the asset store: namespaced keys over a local directory
// tree or an S3-compatible bucket, with per-namespace retention sweeps.
package storage
