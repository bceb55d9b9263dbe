package retention

import (
	"context"
	"log/slog"
	"time"

	"tianji-hq/oracle/pkg/ledger"
)

// Config contains configuration for retention pruning.
type Config struct {
	// RetentionDays is how long records are kept. Zero keeps forever.
	RetentionDays int

	// PruneSchedule is a standard five-field cron expression. Empty
	// disables scheduled pruning.
	PruneSchedule string
}

// Pruner deletes ledger records older than the retention period.
type Pruner struct {
	store  ledger.Store
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// NewPruner creates a pruner for store.
func NewPruner(store ledger.Store, config Config, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:  store,
		config: config,
		logger: logger.With("component", "ledger.retention"),
		now:    time.Now,
	}
}

// Cutoff returns the oldest start time that survives pruning, or the zero
// time when retention is unlimited.
func (p *Pruner) Cutoff() time.Time {
	if p.config.RetentionDays <= 0 {
		return time.Time{}
	}
	return p.now().AddDate(0, 0, -p.config.RetentionDays)
}

// Prune deletes expired records and returns how many were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff := p.Cutoff()
	if cutoff.IsZero() {
		p.logger.Debug("retention unlimited, nothing to prune")
		return 0, nil
	}

	deleted, err := p.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		p.logger.Info("pruned ledger records",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
			"cutoff", cutoff.Format(time.RFC3339),
		)
	}
	return deleted, nil
}
