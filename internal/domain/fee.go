package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeType identifies one configured charge in the fee schedule.
type FeeType string

const (
	FeePix        FeeType = "pix"
	FeeBoleto     FeeType = "boleto"
	FeeCard2d     FeeType = "card_2d"
	FeeCard7d     FeeType = "card_7d"
	FeeCard15d    FeeType = "card_15d"
	FeeCard30d    FeeType = "card_30d"
	FeeAcquirer   FeeType = "acquirer_fee"
	FeeWithdrawal FeeType = "withdrawal"

	FeeReservePix    FeeType = "reserve_pix"
	FeeReserveBoleto FeeType = "reserve_boleto"
	FeeReserveCard   FeeType = "reserve_card"
)

// ValueType distinguishes percentage fees from flat per-transaction fees.
type ValueType string

const (
	ValuePercentage ValueType = "percentage"
	ValueFixed      ValueType = "fixed"
)

// FeeRule is one configured fee. Gateway rules carry both a percentage and a
// fixed per-transaction component; pure-fixed rules leave Percent at zero.
// At most one active rule exists per (fee type, scope); a tenant-scoped rule
// shadows the global rule of the same fee type.
type FeeRule struct {
	ID         uuid.UUID       `json:"id"`
	FeeType    FeeType         `json:"fee_type"`
	ValueType  ValueType       `json:"value_type"`
	Percent    decimal.Decimal `json:"percent"`
	FixedCents int64           `json:"fixed_cents"`
	MinCents   *int64          `json:"min_cents,omitempty"`
	MaxCents   *int64          `json:"max_cents,omitempty"`
	TenantID   *uuid.UUID      `json:"tenant_id,omitempty"`
	IsActive   bool            `json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Scope returns the owning scope of the rule.
func (r FeeRule) Scope() string {
	if r.TenantID != nil {
		return ScopeTenant
	}
	return ScopeGlobal
}

// IsValidFeeType checks if the fee type is one of the known schedule entries.
func IsValidFeeType(t FeeType) bool {
	switch t {
	case FeePix, FeeBoleto, FeeCard2d, FeeCard7d, FeeCard15d, FeeCard30d,
		FeeAcquirer, FeeWithdrawal, FeeReservePix, FeeReserveBoleto, FeeReserveCard:
		return true
	default:
		return false
	}
}

// CardFeeType maps a settlement term in days onto the card fee schedule entry.
// An unrecognized or absent term falls back to the 2-day rule.
func CardFeeType(termDays int) FeeType {
	switch termDays {
	case 7:
		return FeeCard7d
	case 15:
		return FeeCard15d
	case 30:
		return FeeCard30d
	default:
		return FeeCard2d
	}
}

// DefaultFeeTable is the hard-coded fallback schedule used when neither a
// tenant override nor a global rule is configured. It guarantees total
// coverage so checkout is never interrupted by missing configuration.
var DefaultFeeTable = map[FeeType]FeeRule{
	FeePix:        {FeeType: FeePix, ValueType: ValuePercentage, Percent: decimal.NewFromFloat(4.99), FixedCents: 149, IsActive: true},
	FeeBoleto:     {FeeType: FeeBoleto, ValueType: ValuePercentage, Percent: decimal.NewFromFloat(5.99), FixedCents: 349, IsActive: true},
	FeeCard2d:     {FeeType: FeeCard2d, ValueType: ValuePercentage, Percent: decimal.NewFromFloat(9.99), FixedCents: 149, IsActive: true},
	FeeCard7d:     {FeeType: FeeCard7d, ValueType: ValuePercentage, Percent: decimal.NewFromFloat(8.99), FixedCents: 149, IsActive: true},
	FeeCard15d:    {FeeType: FeeCard15d, ValueType: ValuePercentage, Percent: decimal.NewFromFloat(7.99), FixedCents: 149, IsActive: true},
	FeeCard30d:    {FeeType: FeeCard30d, ValueType: ValuePercentage, Percent: decimal.NewFromFloat(6.99), FixedCents: 149, IsActive: true},
	FeeAcquirer:   {FeeType: FeeAcquirer, ValueType: ValuePercentage, Percent: decimal.NewFromFloat(3.19), FixedCents: 0, IsActive: true},
	FeeWithdrawal: {FeeType: FeeWithdrawal, ValueType: ValueFixed, Percent: decimal.Zero, FixedCents: 367, IsActive: true},

	FeeReservePix:    {FeeType: FeeReservePix, ValueType: ValuePercentage, Percent: decimal.NewFromFloat(2.00), FixedCents: 0, IsActive: true},
	FeeReserveBoleto: {FeeType: FeeReserveBoleto, ValueType: ValuePercentage, Percent: decimal.NewFromFloat(4.00), FixedCents: 0, IsActive: true},
	FeeReserveCard:   {FeeType: FeeReserveCard, ValueType: ValuePercentage, Percent: decimal.NewFromFloat(4.00), FixedCents: 0, IsActive: true},
}

// DefaultRule returns the built-in fallback rule for the fee type. The bool
// result is false only for unknown fee types, which callers treat as a
// zero-fee rule.
func DefaultRule(t FeeType) (FeeRule, bool) {
	rule, ok := DefaultFeeTable[t]
	return rule, ok
}
