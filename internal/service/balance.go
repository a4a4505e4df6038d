package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Balance is a tenant's settlement-gated totals. Only sales the classifier
// marks allowed count as available; terminal-negative sales count nowhere.
type Balance struct {
	TenantID       uuid.UUID `json:"tenant_id"`
	AvailableCents int64     `json:"available_cents"`
	PendingCents   int64     `json:"pending_cents"`
}

// BalanceService aggregates per-tenant balances.
type BalanceService struct {
	store QueryStore
}

func NewBalanceService(store QueryStore) *BalanceService {
	return &BalanceService{store: store}
}

func (s *BalanceService) TenantBalance(ctx context.Context, tenantID uuid.UUID) (*Balance, error) {
	available, pending, err := s.store.Queries().TenantBalance(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("tenant balance: %w", err)
	}
	return &Balance{
		TenantID:       tenantID,
		AvailableCents: available,
		PendingCents:   pending,
	}, nil
}
