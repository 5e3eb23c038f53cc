// Package resetter zeroes every account's daily transferred counter on a
// fixed schedule, typically once per day at the accounting boundary.
package resetter

import (
	"context"
	"log/slog"
	"time"

	"github.com/modular-banking-backend/internal/config"
	"github.com/modular-banking-backend/internal/domain/account"
)

// Resetter periodically resets daily transfer allowances across all accounts
type Resetter struct {
	accounts account.Repository
	logger   *slog.Logger
	interval time.Duration
}

func NewResetter(cfg *config.ResetterConfig, accounts account.Repository, logger *slog.Logger) *Resetter {
	return &Resetter{
		accounts: accounts,
		logger:   logger,
		interval: cfg.Interval,
	}
}

// Start runs the reset loop until context is canceled. The reset itself is a
// single statement, so a crash between ticks never leaves counters half reset,
// and running twice in a row is a harmless no-op.
func (r *Resetter) Start(ctx context.Context) {
	r.logger.Info("Starting daily limit resetter", "interval", r.interval.String())
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Daily limit resetter stopping due to context cancellation.")
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

// RunOnce performs a single reset pass, returning how many accounts were reset
func (r *Resetter) RunOnce(ctx context.Context) (int64, error) {
	return r.accounts.ResetAllDailyLimits(ctx)
}

func (r *Resetter) runOnce(ctx context.Context) {
	count, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Error("Failed to reset daily transfer limits", "error", err)
		return
	}
	r.logger.Info("Reset daily transfer limits", "accounts_reset", count)
}
