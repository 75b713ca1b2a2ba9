package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
	"github.com/spec-kit/repair-service/internal/service"
)

// Recoverer is the part of the lifecycle service the sweep needs.
type Recoverer interface {
	ListDevices(ctx context.Context, filter repository.DeviceFilter) ([]domain.Device, error)
	RecoverCorruptedStatus(ctx context.Context, deviceID string) (service.RecoveryResult, error)
}

// SweepReport tallies one sweep.
type SweepReport struct {
	Scanned  int
	Restored int
	Flagged  int
	Failed   int
}

// RecoveryWorker periodically repairs devices whose stored status fell
// outside the enumeration.
type RecoveryWorker struct {
	recoverer Recoverer
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

// NewRecoveryWorker builds the worker. A non-positive interval disables Run.
func NewRecoveryWorker(recoverer Recoverer, interval time.Duration, batchSize int, logger *zap.Logger) *RecoveryWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecoveryWorker{recoverer: recoverer, interval: interval, batchSize: batchSize, logger: logger}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (w *RecoveryWorker) Run(ctx context.Context) {
	if w == nil || w.recoverer == nil || w.interval <= 0 {
		return
	}
	w.logger.Info("recovery worker started", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runSweep(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("recovery worker stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *RecoveryWorker) runSweep(ctx context.Context) {
	report, err := w.Sweep(ctx)
	if err != nil {
		w.logger.Error("recovery sweep failed", zap.Error(err))
		return
	}
	if report.Scanned == 0 {
		return
	}
	w.logger.Info("recovery sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("restored", report.Restored),
		zap.Int("flagged", report.Flagged),
		zap.Int("failed", report.Failed))
}

// Sweep processes one batch of corrupted devices. Devices already found
// unrecoverable are left for an operator.
func (w *RecoveryWorker) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	filter := repository.DeviceFilter{CorruptedOnly: true, SkipAttempted: true, Limit: w.batchSize}
	devices, err := w.recoverer.ListDevices(ctx, filter)
	if err != nil {
		return report, err
	}
	for i := range devices {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Scanned++
		result, err := w.recoverer.RecoverCorruptedStatus(ctx, devices[i].ID)
		if err != nil {
			report.Failed++
			w.logger.Warn("device recovery failed", zap.String("device_id", devices[i].ID), zap.Error(err))
			continue
		}
		switch result.Outcome {
		case service.RecoveryRestored:
			report.Restored++
		case service.RecoveryFlagged:
			report.Flagged++
		}
	}
	return report, nil
}
