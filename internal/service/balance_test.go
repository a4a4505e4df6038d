package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantBalance_SettlementGated(t *testing.T) {
	store := newMemStore()
	saleSvc := newSaleService(store)
	balanceSvc := NewBalanceService(store)
	tenantID := uuid.New()
	otherTenant := uuid.New()

	// paid pix sale: net 90.33
	event := paidEvent(tenantID)
	_, err := deliver(t, saleSvc, event)
	require.NoError(t, err)

	// approved boleto sale also counts as available: 5.99% of 50.00 plus
	// 3.49 is 6.49, acquirer 1.60, net 41.91
	event = paidEvent(tenantID)
	event.TransactionID = "tx-1002"
	event.AmountCents = 50_00
	event.PaymentMethod = "boleto"
	event.Status = "approved"
	_, err = deliver(t, saleSvc, event)
	require.NoError(t, err)

	// pending pix sale: net 90.33 held back
	event = paidEvent(tenantID)
	event.TransactionID = "tx-1003"
	event.Status = "pending"
	_, err = deliver(t, saleSvc, event)
	require.NoError(t, err)

	// refunded sale counts nowhere
	event = paidEvent(tenantID)
	event.TransactionID = "tx-1004"
	event.Status = "refunded"
	_, err = deliver(t, saleSvc, event)
	require.NoError(t, err)

	// another tenant's paid sale must not leak in
	event = paidEvent(otherTenant)
	event.TransactionID = "tx-2001"
	_, err = deliver(t, saleSvc, event)
	require.NoError(t, err)

	balance, err := balanceSvc.TenantBalance(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, tenantID, balance.TenantID)
	assert.Equal(t, int64(90_33+41_91), balance.AvailableCents)
	assert.Equal(t, int64(90_33), balance.PendingCents)
}

func TestTenantBalance_EmptyTenant(t *testing.T) {
	store := newMemStore()
	balanceSvc := NewBalanceService(store)

	balance, err := balanceSvc.TenantBalance(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, balance.AvailableCents)
	assert.Zero(t, balance.PendingCents)
}
