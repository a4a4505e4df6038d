package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/podpay/fee-engine/internal/domain"
	"github.com/podpay/fee-engine/internal/fees"
	"github.com/podpay/fee-engine/internal/models"
	"github.com/podpay/fee-engine/internal/notify"
	"github.com/podpay/fee-engine/internal/observability"
	"github.com/podpay/fee-engine/internal/split"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidSignature       = errors.New("invalid signature")
	ErrWebhookPayloadMismatch = errors.New("webhook payload does not match existing transaction")
	ErrInvalidEvent           = errors.New("invalid webhook event")
)

// SaleService ingests payment processor webhooks. Deliveries are idempotent
// on the processor-assigned transaction id: redelivery of a known status is a
// no-op and balances are never double-credited.
type SaleService struct {
	store      QueryStore
	calc       *fees.Calculator
	hmacKey    []byte
	skipSig    bool
	logger     *zap.Logger
	dispatcher *notify.Dispatcher
	notifyURL  string
}

func NewSaleService(store QueryStore, calc *fees.Calculator, hmacKey string, skipSignature bool, logger *zap.Logger) *SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleService{
		store:   store,
		calc:    calc,
		hmacKey: []byte(hmacKey),
		skipSig: skipSignature,
		logger:  logger,
	}
}

// WithNotifications announces settled sales to the given webhook URL.
func (s *SaleService) WithNotifications(dispatcher *notify.Dispatcher, url string) *SaleService {
	s.dispatcher = dispatcher
	s.notifyURL = url
	return s
}

// SplitInput is one split participant as delivered by the processor.
type SplitInput struct {
	BeneficiaryID string  `json:"beneficiary_id"`
	Role          string  `json:"role"`
	Percentage    float64 `json:"percentage"`
}

// ProcessorEvent is the incoming webhook payload.
type ProcessorEvent struct {
	TransactionID    string       `json:"transaction_id"`
	TenantID         string       `json:"tenant_id"`
	AmountCents      int64        `json:"amount_cents"`
	PaymentMethod    string       `json:"payment_method"`
	CardTermDays     int          `json:"card_term_days,omitempty"`
	Status           string       `json:"status"`
	AffiliatePercent float64      `json:"affiliate_percent,omitempty"`
	Splits           []SplitInput `json:"splits,omitempty"`
}

// WebhookResponse is the acknowledgement returned to the processor.
type WebhookResponse struct {
	SaleID  uuid.UUID `json:"sale_id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// HandleProcessorWebhook verifies the HMAC signature and records or advances
// the sale the event refers to. A sale reaching an allowed settlement status
// gets its commission splits created in the same transaction, all-or-nothing.
func (s *SaleService) HandleProcessorWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResponse, error) {
	if !s.verifyHMAC(payload, signature) {
		observability.IncrementWebhookEvent("invalid_signature")
		return nil, ErrInvalidSignature
	}

	var event ProcessorEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		observability.IncrementWebhookEvent("malformed")
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	event.TransactionID = strings.TrimSpace(event.TransactionID)
	event.PaymentMethod = strings.ToLower(strings.TrimSpace(event.PaymentMethod))
	event.Status = strings.ToLower(strings.TrimSpace(event.Status))

	if err := event.validate(); err != nil {
		observability.IncrementWebhookEvent("malformed")
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	tenantID, err := uuid.Parse(event.TenantID)
	if err != nil {
		observability.IncrementWebhookEvent("malformed")
		return nil, fmt.Errorf("%w: invalid tenant_id: %v", ErrInvalidEvent, err)
	}

	var (
		resp    *WebhookResponse
		settled bool
	)
	err = s.store.RunInTx(ctx, func(q Queries) error {
		existing, err := q.GetSaleByProcessorTxID(ctx, event.TransactionID)
		if err != nil && !errors.Is(err, models.ErrSaleNotFound) {
			return err
		}
		if existing != nil {
			wasPaid := existing.PaidAt != nil
			resp, err = s.advanceSale(ctx, q, existing, event)
			settled = err == nil && !wasPaid && domain.Classify(event.Status).Allowed
			return err
		}
		resp, err = s.createSale(ctx, q, tenantID, event)
		settled = err == nil && domain.Classify(event.Status).Allowed
		return err
	})
	if err != nil {
		observability.IncrementWebhookEvent("failed")
		return nil, err
	}

	if settled {
		s.announceSettlement(resp.SaleID, event)
	}

	observability.IncrementWebhookEvent("processed")
	return resp, nil
}

// announceSettlement delivers a settlement notification in the background.
// Delivery failures are retried and logged by the dispatcher; they never
// fail the webhook acknowledgement.
func (s *SaleService) announceSettlement(saleID uuid.UUID, event ProcessorEvent) {
	if s.dispatcher == nil || s.notifyURL == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		_, _ = s.dispatcher.Dispatch(ctx, s.notifyURL, "sale.settled", map[string]string{
			"sale_id":        saleID.String(),
			"transaction_id": event.TransactionID,
			"tenant_id":      event.TenantID,
			"status":         event.Status,
		})
	}()
}

func (e ProcessorEvent) validate() error {
	if e.TransactionID == "" {
		return errors.New("transaction_id is required")
	}
	if e.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if e.AmountCents <= 0 {
		return fmt.Errorf("invalid amount: %d", e.AmountCents)
	}
	if !domain.IsValidMethod(e.PaymentMethod) {
		return fmt.Errorf("unsupported payment method: %s", e.PaymentMethod)
	}
	if e.Status == "" {
		return errors.New("status is required")
	}
	if e.AffiliatePercent < 0 || e.AffiliatePercent > 100 {
		return fmt.Errorf("invalid affiliate_percent: %.2f", e.AffiliatePercent)
	}
	return nil
}

// GetSale returns one sale with its commission splits.
func (s *SaleService) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, []models.CommissionSplit, error) {
	sale, err := s.store.Queries().GetSale(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	splits, err := s.store.Queries().ListSplitsBySale(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return sale, splits, nil
}

// createSale records a first-seen transaction with its full fee breakdown.
// Each fee component is rounded to the cent on its own before the net is
// derived.
func (s *SaleService) createSale(ctx context.Context, q Queries, tenantID uuid.UUID, event ProcessorEvent) (*WebhookResponse, error) {
	paymentFee, err := s.calc.CalculateMethod(ctx, event.AmountCents, event.PaymentMethod, &tenantID, event.CardTermDays)
	if err != nil {
		return nil, fmt.Errorf("calculate payment fee: %w", err)
	}
	platformFee, err := s.calc.Calculate(ctx, event.AmountCents, domain.FeeAcquirer, &tenantID, 0)
	if err != nil {
		return nil, fmt.Errorf("calculate platform fee: %w", err)
	}

	commission := domain.NewMoney(event.AmountCents).
		Percent(decimal.NewFromFloat(event.AffiliatePercent))

	sale := &models.Sale{
		ID:               uuid.New(),
		TenantID:         tenantID,
		ProcessorTxID:    event.TransactionID,
		AmountCents:      event.AmountCents,
		PaymentMethod:    event.PaymentMethod,
		CardTermDays:     event.CardTermDays,
		Status:           event.Status,
		PaymentFeeCents:  paymentFee.FeeCents,
		PlatformFeeCents: platformFee.FeeCents,
		CommissionCents:  commission.Cents,
		NetCents:         event.AmountCents - paymentFee.FeeCents - platformFee.FeeCents - commission.Cents,
	}

	if domain.Classify(event.Status).Allowed {
		now := time.Now().UTC()
		sale.PaidAt = &now
	}

	if err := q.CreateSale(ctx, sale); err != nil {
		return nil, err
	}

	if sale.PaidAt != nil {
		if err := s.createSplits(ctx, q, sale, event.Splits); err != nil {
			return nil, err
		}
	}

	return &WebhookResponse{SaleID: sale.ID, Status: sale.Status, Message: "sale recorded"}, nil
}

// advanceSale applies a status update to a known transaction. Terminal
// statuses never revert, and a sale already settled only moves to a
// terminal-negative status (refund or chargeback reversal flow).
func (s *SaleService) advanceSale(ctx context.Context, q Queries, sale *models.Sale, event ProcessorEvent) (*WebhookResponse, error) {
	if sale.AmountCents != event.AmountCents || sale.PaymentMethod != event.PaymentMethod {
		return nil, ErrWebhookPayloadMismatch
	}

	if sale.Status == event.Status {
		return &WebhookResponse{SaleID: sale.ID, Status: sale.Status, Message: "already processed"}, nil
	}

	current := domain.Classify(sale.Status)
	next := domain.Classify(event.Status)
	switch {
	case current.TerminalNegative:
		return nil, models.ErrStaleStatus
	case current.Allowed && next.Allowed:
		// paid -> confirmed and the like carry no new information; treat the
		// redelivery like an exact duplicate.
		return &WebhookResponse{SaleID: sale.ID, Status: sale.Status, Message: "already processed"}, nil
	case current.Allowed && !next.TerminalNegative:
		return nil, models.ErrStaleStatus
	}

	var paidAt *time.Time
	if next.Allowed && sale.PaidAt == nil {
		now := time.Now().UTC()
		paidAt = &now
	}
	if err := q.UpdateSaleStatus(ctx, sale.ID, event.Status, paidAt); err != nil {
		return nil, err
	}

	// First arrival at an allowed status creates the splits; a redelivered
	// allowed status finds them already present and leaves them alone.
	if next.Allowed && !current.Allowed {
		existing, err := q.ListSplitsBySale(ctx, sale.ID)
		if err != nil {
			return nil, err
		}
		if len(existing) == 0 {
			if err := s.createSplits(ctx, q, sale, event.Splits); err != nil {
				return nil, err
			}
		}
	}

	return &WebhookResponse{SaleID: sale.ID, Status: event.Status, Message: "status updated"}, nil
}

func (s *SaleService) createSplits(ctx context.Context, q Queries, sale *models.Sale, inputs []SplitInput) error {
	// Fees can exceed a small gross amount (fixed components have a floor).
	// The sale is still real money owed, so it is recorded as-is, but there is
	// nothing to distribute.
	if sale.NetCents < 0 {
		observability.IncrementNegativeNetSale()
		s.logger.Warn("sale net is negative, skipping split allocation",
			zap.String("sale_id", sale.ID.String()),
			zap.Int64("amount_cents", sale.AmountCents),
			zap.Int64("net_cents", sale.NetCents),
		)
		return nil
	}

	participants, err := buildParticipants(sale.TenantID, inputs)
	if err != nil {
		return err
	}

	splits, err := split.Allocate(sale.ID, sale.AmountCents, sale.NetCents, participants)
	if err != nil {
		return fmt.Errorf("%w: allocate splits: %v", ErrInvalidEvent, err)
	}

	var total int64
	for i := range splits {
		if err := q.CreateCommissionSplit(ctx, &splits[i]); err != nil {
			return err
		}
		total += splits[i].NetCents
	}
	if total != sale.NetCents {
		// The allocator guarantees this; divergence means a bug upstream.
		observability.IncrementSplitImbalance()
		s.logger.Error("split allocation diverged from sale net",
			zap.String("sale_id", sale.ID.String()),
			zap.Int64("allocated_cents", total),
			zap.Int64("net_cents", sale.NetCents),
		)
	}
	return nil
}

// buildParticipants converts the event's split list, defaulting to the
// producer taking everything with the platform absorbing rounding drift.
func buildParticipants(tenantID uuid.UUID, inputs []SplitInput) ([]split.Participant, error) {
	if len(inputs) == 0 {
		return []split.Participant{
			{BeneficiaryID: tenantID, Role: domain.RoleProducer, Percentage: 100},
			{BeneficiaryID: uuid.Nil, Role: domain.RolePlatform, Percentage: 0},
		}, nil
	}

	participants := make([]split.Participant, 0, len(inputs))
	for _, in := range inputs {
		beneficiaryID := uuid.Nil
		if in.BeneficiaryID != "" {
			parsed, err := uuid.Parse(in.BeneficiaryID)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid beneficiary_id %q", ErrInvalidEvent, in.BeneficiaryID)
			}
			beneficiaryID = parsed
		}
		participants = append(participants, split.Participant{
			BeneficiaryID: beneficiaryID,
			Role:          in.Role,
			Percentage:    in.Percentage,
		})
	}
	return participants, nil
}

// verifyHMAC verifies the HMAC signature of the payload.
func (s *SaleService) verifyHMAC(payload []byte, signature string) bool {
	if s.skipSig {
		return true
	}
	if len(s.hmacKey) == 0 {
		return false
	}

	h := hmac.New(sha256.New, s.hmacKey)
	h.Write(payload)
	expectedSig := "sha256=" + hex.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedSig))
}
