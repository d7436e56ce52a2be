package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reconciler periodically rebuilds the vote counters from the ledger.
type Reconciler struct {
	logger   *zap.Logger
	clock    TickerClocker
	ledger   VoteLedgerProvider
	interval time.Duration
}

func NewReconciler(logger *zap.Logger, clock TickerClocker, ledger VoteLedgerProvider, interval time.Duration) *Reconciler {
	return &Reconciler{
		logger:   logger,
		clock:    clock,
		ledger:   ledger,
		interval: interval,
	}
}

// Run reconciles once then on every tick until ctx is done. With a zero
// interval only the startup run happens.
func (rc *Reconciler) Run(ctx context.Context) error {
	rc.reconcile(ctx)
	if rc.interval <= 0 {
		rc.logger.Info("reconciler: periodic run disabled")
		return nil
	}

	ticker := rc.clock.NewTicker(rc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			rc.logger.Info("reconciler: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		case <-ticker.C:
			rc.reconcile(ctx)
		}
	}
}

func (rc *Reconciler) reconcile(ctx context.Context) {
	report, err := rc.ledger.ReconcileCounters(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		rc.logger.Error("reconciler: run failed", zap.Error(err))
		return
	}
	if len(report.Corrected) > 0 {
		rc.logger.Warn("reconciler: counters drifted", zap.Int("corrected", len(report.Corrected)), zap.Int("books", report.Books))
	}
}
