package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/podpay/fee-engine/internal/domain"
	"github.com/podpay/fee-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHMACKey = "webhook-test-key"

func newSaleService(store *memStore) *SaleService {
	return NewSaleService(store, newTestCalculator(store), testHMACKey, false, nil)
}

func paidEvent(tenantID uuid.UUID) ProcessorEvent {
	return ProcessorEvent{
		TransactionID: "tx-1001",
		TenantID:      tenantID.String(),
		AmountCents:   100_00,
		PaymentMethod: domain.MethodPix,
		Status:        "paid",
	}
}

func deliver(t *testing.T, svc *SaleService, event ProcessorEvent) (*WebhookResponse, error) {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return svc.HandleProcessorWebhook(context.Background(), body, signBody(testHMACKey, body))
}

func TestHandleProcessorWebhook_RecordsPaidSale(t *testing.T) {
	store := newMemStore()
	svc := newSaleService(store)
	tenantID := uuid.New()

	resp, err := deliver(t, svc, paidEvent(tenantID))
	require.NoError(t, err)
	assert.Equal(t, "paid", resp.Status)

	sale, err := store.GetSale(context.Background(), resp.SaleID)
	require.NoError(t, err)
	// R$ 100.00 pix: payment fee 4.99% + 1.49 = 6.48, acquirer fee 3.19 = 3.19
	assert.Equal(t, int64(6_48), sale.PaymentFeeCents)
	assert.Equal(t, int64(3_19), sale.PlatformFeeCents)
	assert.Equal(t, int64(0), sale.CommissionCents)
	assert.Equal(t, int64(90_33), sale.NetCents)
	require.NotNil(t, sale.PaidAt)

	splits, err := store.ListSplitsBySale(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Len(t, splits, 2, "default allocation is producer plus platform")

	var total int64
	for _, s := range splits {
		total += s.NetCents
	}
	assert.Equal(t, sale.NetCents, total)
}

func TestHandleProcessorWebhook_AffiliateCommission(t *testing.T) {
	store := newMemStore()
	svc := newSaleService(store)
	tenantID := uuid.New()

	event := paidEvent(tenantID)
	event.AffiliatePercent = 10

	resp, err := deliver(t, svc, event)
	require.NoError(t, err)

	sale, err := store.GetSale(context.Background(), resp.SaleID)
	require.NoError(t, err)
	assert.Equal(t, int64(10_00), sale.CommissionCents)
	assert.Equal(t, int64(100_00-6_48-3_19-10_00), sale.NetCents)
}

func TestHandleProcessorWebhook_RejectsBadSignature(t *testing.T) {
	store := newMemStore()
	svc := newSaleService(store)

	body, err := json.Marshal(paidEvent(uuid.New()))
	require.NoError(t, err)

	_, err = svc.HandleProcessorWebhook(context.Background(), body, "sha256=bad")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = svc.HandleProcessorWebhook(context.Background(), body, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestHandleProcessorWebhook_IdempotentRedelivery(t *testing.T) {
	store := newMemStore()
	svc := newSaleService(store)
	tenantID := uuid.New()

	first, err := deliver(t, svc, paidEvent(tenantID))
	require.NoError(t, err)
	second, err := deliver(t, svc, paidEvent(tenantID))
	require.NoError(t, err)
	assert.Equal(t, first.SaleID, second.SaleID)
	assert.Equal(t, "already processed", second.Message)

	splits, err := store.ListSplitsBySale(context.Background(), first.SaleID)
	require.NoError(t, err)
	assert.Len(t, splits, 2, "redelivery must not duplicate splits")
}

func TestHandleProcessorWebhook_PendingThenPaid(t *testing.T) {
	store := newMemStore()
	svc := newSaleService(store)
	tenantID := uuid.New()

	event := paidEvent(tenantID)
	event.Status = "pending"
	resp, err := deliver(t, svc, event)
	require.NoError(t, err)

	sale, err := store.GetSale(context.Background(), resp.SaleID)
	require.NoError(t, err)
	assert.Nil(t, sale.PaidAt)

	splits, err := store.ListSplitsBySale(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Empty(t, splits, "pending sales carry no splits yet")

	event.Status = "paid"
	_, err = deliver(t, svc, event)
	require.NoError(t, err)

	sale, err = store.GetSale(context.Background(), resp.SaleID)
	require.NoError(t, err)
	assert.Equal(t, "paid", sale.Status)
	require.NotNil(t, sale.PaidAt)

	splits, err = store.ListSplitsBySale(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Len(t, splits, 2)
}

func TestHandleProcessorWebhook_TerminalNeverReverts(t *testing.T) {
	store := newMemStore()
	svc := newSaleService(store)
	tenantID := uuid.New()

	event := paidEvent(tenantID)
	event.Status = "refunded"
	_, err := deliver(t, svc, event)
	require.NoError(t, err)

	event.Status = "paid"
	_, err = deliver(t, svc, event)
	assert.ErrorIs(t, err, models.ErrStaleStatus)
}

func TestHandleProcessorWebhook_PaidOnlyMovesToTerminalNegative(t *testing.T) {
	store := newMemStore()
	svc := newSaleService(store)
	tenantID := uuid.New()

	resp, err := deliver(t, svc, paidEvent(tenantID))
	require.NoError(t, err)

	// paid -> pending is refused
	event := paidEvent(tenantID)
	event.Status = "pending"
	_, err = deliver(t, svc, event)
	assert.ErrorIs(t, err, models.ErrStaleStatus)

	// paid -> chargeback is the legitimate reversal path
	event.Status = "chargeback"
	_, err = deliver(t, svc, event)
	require.NoError(t, err)

	sale, err := store.GetSale(context.Background(), resp.SaleID)
	require.NoError(t, err)
	assert.Equal(t, "chargeback", sale.Status)
}

func TestHandleProcessorWebhook_FeesExceedTinyGross(t *testing.T) {
	store := newMemStore()
	svc := newSaleService(store)
	tenantID := uuid.New()

	// R$ 1.00 pix: payment fee 1.54 plus acquirer 0.03 exceed the gross,
	// leaving a net of -0.57. The sale must still be recorded.
	event := paidEvent(tenantID)
	event.AmountCents = 1_00

	resp, err := deliver(t, svc, event)
	require.NoError(t, err)

	sale, err := store.GetSale(context.Background(), resp.SaleID)
	require.NoError(t, err)
	assert.Equal(t, int64(-57), sale.NetCents)
	require.NotNil(t, sale.PaidAt)

	splits, err := store.ListSplitsBySale(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Empty(t, splits, "a negative net leaves nothing to distribute")

	// redelivery stays a clean no-op
	second, err := deliver(t, svc, event)
	require.NoError(t, err)
	assert.Equal(t, resp.SaleID, second.SaleID)
}

func TestHandleProcessorWebhook_AllowedStatusRedelivery(t *testing.T) {
	store := newMemStore()
	svc := newSaleService(store)
	tenantID := uuid.New()

	resp, err := deliver(t, svc, paidEvent(tenantID))
	require.NoError(t, err)

	event := paidEvent(tenantID)
	event.Status = "confirmed"
	second, err := deliver(t, svc, event)
	require.NoError(t, err)
	assert.Equal(t, resp.SaleID, second.SaleID)
	assert.Equal(t, "already processed", second.Message)

	sale, err := store.GetSale(context.Background(), resp.SaleID)
	require.NoError(t, err)
	assert.Equal(t, "paid", sale.Status)

	splits, err := store.ListSplitsBySale(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Len(t, splits, 2, "redelivery must not duplicate splits")
}

func TestHandleProcessorWebhook_PayloadMismatch(t *testing.T) {
	store := newMemStore()
	svc := newSaleService(store)
	tenantID := uuid.New()

	_, err := deliver(t, svc, paidEvent(tenantID))
	require.NoError(t, err)

	event := paidEvent(tenantID)
	event.AmountCents = 999_99
	event.Status = "chargeback"
	_, err = deliver(t, svc, event)
	assert.ErrorIs(t, err, ErrWebhookPayloadMismatch)
}

func TestHandleProcessorWebhook_CustomSplits(t *testing.T) {
	store := newMemStore()
	svc := newSaleService(store)
	tenantID := uuid.New()
	affiliate := uuid.New()

	event := paidEvent(tenantID)
	event.Splits = []SplitInput{
		{BeneficiaryID: tenantID.String(), Role: domain.RoleProducer, Percentage: 60},
		{BeneficiaryID: affiliate.String(), Role: domain.RoleAffiliate, Percentage: 30},
		{BeneficiaryID: "", Role: domain.RolePlatform, Percentage: 10},
	}

	resp, err := deliver(t, svc, event)
	require.NoError(t, err)

	sale, err := store.GetSale(context.Background(), resp.SaleID)
	require.NoError(t, err)

	splits, err := store.ListSplitsBySale(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Len(t, splits, 3)

	var total int64
	for _, s := range splits {
		total += s.NetCents
	}
	assert.Equal(t, sale.NetCents, total)
}

func TestHandleProcessorWebhook_InvalidSplitsRejectWholeEvent(t *testing.T) {
	store := newMemStore()
	svc := newSaleService(store)
	tenantID := uuid.New()

	event := paidEvent(tenantID)
	event.Splits = []SplitInput{
		{BeneficiaryID: tenantID.String(), Role: domain.RoleProducer, Percentage: 50},
		{BeneficiaryID: "", Role: domain.RolePlatform, Percentage: 20},
	}

	_, err := deliver(t, svc, event)
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestHandleProcessorWebhook_ValidationFailures(t *testing.T) {
	store := newMemStore()
	svc := newSaleService(store)
	tenantID := uuid.New()

	cases := []struct {
		name   string
		mutate func(*ProcessorEvent)
	}{
		{name: "missing_tx_id", mutate: func(e *ProcessorEvent) { e.TransactionID = " " }},
		{name: "missing_tenant", mutate: func(e *ProcessorEvent) { e.TenantID = "" }},
		{name: "bad_tenant", mutate: func(e *ProcessorEvent) { e.TenantID = "not-a-uuid" }},
		{name: "zero_amount", mutate: func(e *ProcessorEvent) { e.AmountCents = 0 }},
		{name: "negative_amount", mutate: func(e *ProcessorEvent) { e.AmountCents = -100 }},
		{name: "bad_method", mutate: func(e *ProcessorEvent) { e.PaymentMethod = "cash" }},
		{name: "missing_status", mutate: func(e *ProcessorEvent) { e.Status = "" }},
		{name: "bad_affiliate_percent", mutate: func(e *ProcessorEvent) { e.AffiliatePercent = 101 }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			event := paidEvent(tenantID)
			tc.mutate(&event)
			_, err := deliver(t, svc, event)
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestGetSale(t *testing.T) {
	store := newMemStore()
	svc := newSaleService(store)
	tenantID := uuid.New()

	resp, err := deliver(t, svc, paidEvent(tenantID))
	require.NoError(t, err)

	sale, splits, err := svc.GetSale(context.Background(), resp.SaleID)
	require.NoError(t, err)
	assert.Equal(t, resp.SaleID, sale.ID)
	assert.Len(t, splits, 2)

	_, _, err = svc.GetSale(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrSaleNotFound)
}
