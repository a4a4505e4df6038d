package service

import (
	"context"
	"fmt"

	"github.com/podpay/fee-engine/internal/domain"
	"github.com/podpay/fee-engine/internal/split"
	"go.uber.org/zap"
)

// SettlementService advances commission splits through their lifecycle:
// pending splits are processed into payout instructions, processed splits are
// marked transferred once funds move.
type SettlementService struct {
	store  QueryStore
	logger *zap.Logger
}

func NewSettlementService(store QueryStore, logger *zap.Logger) *SettlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementService{store: store, logger: logger}
}

// ProcessSplits claims one batch per lifecycle stage and advances it. The
// batch claim uses SKIP LOCKED, so concurrent instances are safe.
func (s *SettlementService) ProcessSplits(ctx context.Context, batchSize int32) (int, error) {
	advanced := 0

	stages := []struct{ from, to string }{
		{domain.SplitStatusPending, domain.SplitStatusProcessed},
		{domain.SplitStatusProcessed, domain.SplitStatusTransferred},
	}

	for _, stage := range stages {
		err := s.store.RunInTx(ctx, func(q Queries) error {
			splits, err := q.ListSplitsByStatus(ctx, stage.from, batchSize)
			if err != nil {
				return err
			}
			for _, sp := range splits {
				if !split.CanTransition(sp.Status, stage.to) {
					return fmt.Errorf("illegal split transition %s -> %s", sp.Status, stage.to)
				}
				if err := q.AdvanceSplitStatus(ctx, sp.ID, stage.from, stage.to); err != nil {
					return err
				}
				advanced++
			}
			return nil
		})
		if err != nil {
			return advanced, fmt.Errorf("advance splits %s -> %s: %w", stage.from, stage.to, err)
		}
	}

	if advanced > 0 {
		s.logger.Info("splits advanced", zap.Int("count", advanced))
	}
	return advanced, nil
}
