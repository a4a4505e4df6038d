package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSaleNotFound    = errors.New("sale not found")
	ErrFeeRuleNotFound = errors.New("fee rule not found")
	ErrStaleStatus     = errors.New("status update would revert a terminal state")
)

// Sale is one payment attempt created by the processor via webhook.
// The invariant NetCents = AmountCents − PaymentFeeCents − PlatformFeeCents −
// CommissionCents holds with each component rounded to the cent independently.
type Sale struct {
	ID               uuid.UUID  `json:"id"`
	TenantID         uuid.UUID  `json:"tenant_id"`
	ProcessorTxID    string     `json:"processor_tx_id"`
	AmountCents      int64      `json:"amount_cents"`
	PaymentMethod    string     `json:"payment_method"`
	CardTermDays     int        `json:"card_term_days,omitempty"`
	Status           string     `json:"status"`
	PaymentFeeCents  int64      `json:"payment_fee_cents"`
	PlatformFeeCents int64      `json:"platform_fee_cents"`
	CommissionCents  int64      `json:"commission_cents"`
	NetCents         int64      `json:"net_cents"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
}

// CommissionSplit is one beneficiary's share of a sale's net amount.
type CommissionSplit struct {
	ID            uuid.UUID `json:"id"`
	SaleID        uuid.UUID `json:"sale_id"`
	BeneficiaryID uuid.UUID `json:"beneficiary_id"`
	Role          string    `json:"role"`
	Percentage    float64   `json:"percentage"`
	GrossCents    int64     `json:"gross_cents"`
	NetCents      int64     `json:"net_cents"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FeeChangeLog is an append-only audit record of one fee rule mutation.
type FeeChangeLog struct {
	ID        uuid.UUID  `json:"id"`
	RuleID    uuid.UUID  `json:"rule_id"`
	ActorID   uuid.UUID  `json:"actor_id"`
	Action    string     `json:"action"`
	PrevValue []byte     `json:"prev_value,omitempty"`
	NextValue []byte     `json:"next_value"`
	TenantID  *uuid.UUID `json:"tenant_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NotificationLog records one outbound notification's final outcome.
// Exhausted deliveries are recorded here, never silently dropped.
type NotificationLog struct {
	ID         uuid.UUID `json:"id"`
	Channel    string    `json:"channel"`
	Recipient  string    `json:"recipient"`
	Success    bool      `json:"success"`
	Attempts   int       `json:"attempts"`
	ProviderID string    `json:"provider_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
