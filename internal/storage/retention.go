package storage

import (
	"context"
	"log/slog"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
)

// Retention removes expired assets per namespace. A zero duration disables
// expiry for that namespace.
type Retention struct {
	backend Backend
	maxAge  map[string]time.Duration
	logger  *slog.Logger
}

// NewRetention wires retention windows from configuration.
func NewRetention(backend Backend, cfg config.Storage, logger *slog.Logger) *Retention {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Retention{
		backend: backend,
		maxAge: map[string]time.Duration{
			NamespaceUploads:    time.Duration(cfg.UploadRetentionHours) * time.Hour,
			NamespaceProcessing: time.Duration(cfg.ProcessingRetentionHours) * time.Hour,
			NamespaceResults:    time.Duration(cfg.ResultRetentionHours) * time.Hour,
		},
		logger: logger.With(logging.String(logging.FieldComponent, "retention")),
	}
}

// Sweep deletes every asset older than its namespace's retention window and
// returns how many were removed. Listing or deletion failures stop the sweep
// for that namespace but do not undo earlier deletions.
func (r *Retention) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	for _, ns := range []string{NamespaceUploads, NamespaceProcessing, NamespaceResults} {
		maxAge := r.maxAge[ns]
		if maxAge <= 0 {
			continue
		}
		cutoff := now.Add(-maxAge)
		assets, err := r.backend.List(ctx, ns)
		if err != nil {
			return removed, err
		}
		for _, asset := range assets {
			if asset.LastModified.After(cutoff) {
				continue
			}
			if err := r.backend.Delete(ctx, asset.Key); err != nil {
				return removed, err
			}
			removed++
			r.logger.Info("expired asset removed",
				logging.String("key", asset.Key),
				logging.String("namespace", ns))
		}
	}
	return removed, nil
}
