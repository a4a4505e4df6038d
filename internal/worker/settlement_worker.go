package worker

import (
	"context"
	"time"

	"github.com/podpay/fee-engine/internal/observability"
	"github.com/podpay/fee-engine/internal/service"
	"go.uber.org/zap"
)

// SettlementWorker advances commission splits in the background.
// Safe for concurrent instances thanks to FOR UPDATE SKIP LOCKED.
type SettlementWorker struct {
	settlement   *service.SettlementService
	pollInterval time.Duration
	batchSize    int32
	logger       *zap.Logger
	stopCh       chan struct{}
}

// NewSettlementWorker creates a new SettlementWorker instance.
func NewSettlementWorker(settlement *service.SettlementService, logger *zap.Logger) *SettlementWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementWorker{
		settlement:   settlement,
		pollInterval: 30 * time.Second,
		batchSize:    50,
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
}

// WithPollInterval sets the poll interval for the worker.
func (w *SettlementWorker) WithPollInterval(interval time.Duration) *SettlementWorker {
	w.pollInterval = interval
	return w
}

// WithBatchSize sets the batch size for the worker.
func (w *SettlementWorker) WithBatchSize(size int32) *SettlementWorker {
	w.batchSize = size
	return w
}

// Start runs the worker loop until Stop is called or the context is canceled.
func (w *SettlementWorker) Start(ctx context.Context) {
	w.logger.Info("settlement worker starting",
		zap.Duration("interval", w.pollInterval),
		zap.Int32("batch", w.batchSize),
	)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("settlement worker stopping: context canceled")
			return
		case <-w.stopCh:
			w.logger.Info("settlement worker stopping: stop signal")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

// Stop signals the worker to stop.
func (w *SettlementWorker) Stop() {
	close(w.stopCh)
}

func (w *SettlementWorker) processBatch(ctx context.Context) {
	if _, err := w.settlement.ProcessSplits(ctx, w.batchSize); err != nil {
		observability.IncrementWorkerRun("settlement", "error")
		w.logger.Error("settlement batch failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("settlement", "ok")
}

// ProcessOnce processes a single batch immediately. Useful for tests and
// manual triggering.
func (w *SettlementWorker) ProcessOnce(ctx context.Context) error {
	_, err := w.settlement.ProcessSplits(ctx, w.batchSize)
	return err
}

// Run starts the worker in a goroutine and returns its stop function.
func (w *SettlementWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}
