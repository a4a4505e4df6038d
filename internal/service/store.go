package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/podpay/fee-engine/internal/domain"
	"github.com/podpay/fee-engine/internal/models"
	"github.com/podpay/fee-engine/internal/repository"
)

// Queries is the minimal data access contract required by services.
// *repository.Repository satisfies it; tests use in-memory fakes.
type Queries interface {
	CreateFeeRule(ctx context.Context, rule *domain.FeeRule) error
	DeactivateFeeRules(ctx context.Context, feeType domain.FeeType, tenantID *uuid.UUID) ([]domain.FeeRule, error)
	ListActiveFeeRules(ctx context.Context, tenantID *uuid.UUID) ([]domain.FeeRule, error)
	ListFeeRules(ctx context.Context, tenantID *uuid.UUID) ([]domain.FeeRule, error)
	CreateFeeChangeLog(ctx context.Context, log *models.FeeChangeLog) error

	CreateSale(ctx context.Context, sale *models.Sale) error
	GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	GetSaleByProcessorTxID(ctx context.Context, processorTxID string) (*models.Sale, error)
	UpdateSaleStatus(ctx context.Context, id uuid.UUID, status string, paidAt *time.Time) error

	CreateCommissionSplit(ctx context.Context, s *models.CommissionSplit) error
	ListSplitsBySale(ctx context.Context, saleID uuid.UUID) ([]models.CommissionSplit, error)
	ListSplitsByStatus(ctx context.Context, status string, limit int32) ([]models.CommissionSplit, error)
	AdvanceSplitStatus(ctx context.Context, id uuid.UUID, from, to string) error

	TenantBalance(ctx context.Context, tenantID uuid.UUID) (availableCents, pendingCents int64, err error)

	CreateNotificationLog(ctx context.Context, log *models.NotificationLog) error
}

// QueryStore scopes queries either to the pool or to one transaction.
type QueryStore interface {
	Queries() Queries
	RunInTx(ctx context.Context, fn func(q Queries) error) error
}

type pgStore struct {
	store *repository.Store
}

// NewPgStore adapts the repository store to the service contract.
func NewPgStore(store *repository.Store) QueryStore {
	return pgStore{store: store}
}

func (s pgStore) Queries() Queries {
	return s.store.Repo()
}

func (s pgStore) RunInTx(ctx context.Context, fn func(q Queries) error) error {
	return s.store.RunInTx(ctx, func(r *repository.Repository) error {
		return fn(r)
	})
}
