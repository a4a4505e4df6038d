package fees

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/podpay/fee-engine/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNegativeAmount = errors.New("amount must not be negative")

// Breakdown is the gross/fee/net result of one fee calculation.
type Breakdown struct {
	FeeType  domain.FeeType `json:"fee_type"`
	FeeCents int64          `json:"fee_cents"`
	NetCents int64          `json:"net_cents"`
}

// Calculator applies the resolved fee schedule to transaction amounts.
type Calculator struct {
	resolver *Resolver
	logger   *zap.Logger
}

// NewCalculator creates a calculator over the given resolver.
func NewCalculator(resolver *Resolver, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{resolver: resolver, logger: logger}
}

// Calculate resolves the applicable rule and computes the fee and net amount
// for a gross amount in centavos. For credit card the term-specific sub-rule
// is selected by cardTermDays; unrecognized terms use the 2-day rule.
//
// Fee and net are each rounded to the cent independently, in that order.
func (c *Calculator) Calculate(ctx context.Context, amountCents int64, feeType domain.FeeType, tenantID *uuid.UUID, cardTermDays int) (Breakdown, error) {
	if amountCents < 0 {
		return Breakdown{}, ErrNegativeAmount
	}
	if feeType == domain.FeeCard2d || feeType == domain.FeeCard7d ||
		feeType == domain.FeeCard15d || feeType == domain.FeeCard30d {
		feeType = domain.CardFeeType(cardTermDays)
	}

	rule, err := c.resolver.Resolve(ctx, tenantID, feeType)
	if err != nil {
		return Breakdown{}, fmt.Errorf("resolve fee rule: %w", err)
	}

	fee := applyRule(domain.NewMoney(amountCents), rule)
	net := domain.NewMoney(amountCents).Sub(fee)

	return Breakdown{
		FeeType:  feeType,
		FeeCents: fee.Cents,
		NetCents: net.Cents,
	}, nil
}

// CalculateMethod maps a checkout payment method onto the fee schedule and
// computes its breakdown.
func (c *Calculator) CalculateMethod(ctx context.Context, amountCents int64, method string, tenantID *uuid.UUID, cardTermDays int) (Breakdown, error) {
	var feeType domain.FeeType
	switch method {
	case domain.MethodPix:
		feeType = domain.FeePix
	case domain.MethodBoleto:
		feeType = domain.FeeBoleto
	case domain.MethodCreditCard:
		feeType = domain.CardFeeType(cardTermDays)
	default:
		return Breakdown{}, fmt.Errorf("unsupported payment method: %s", method)
	}
	return c.Calculate(ctx, amountCents, feeType, tenantID, cardTermDays)
}

// SimulateAll computes the breakdown for every schedule entry at the given
// amount. Used by the dashboard fee simulator.
func (c *Calculator) SimulateAll(ctx context.Context, amountCents int64, tenantID *uuid.UUID) ([]Breakdown, error) {
	if amountCents < 0 {
		return nil, ErrNegativeAmount
	}

	feeTypes := []domain.FeeType{
		domain.FeePix, domain.FeeBoleto,
		domain.FeeCard2d, domain.FeeCard7d, domain.FeeCard15d, domain.FeeCard30d,
		domain.FeeAcquirer, domain.FeeWithdrawal,
	}

	out := make([]Breakdown, 0, len(feeTypes))
	for _, ft := range feeTypes {
		rule, err := c.resolver.Resolve(ctx, tenantID, ft)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", ft, err)
		}
		fee := applyRule(domain.NewMoney(amountCents), rule)
		out = append(out, Breakdown{
			FeeType:  ft,
			FeeCents: fee.Cents,
			NetCents: amountCents - fee.Cents,
		})
	}
	return out, nil
}

// applyRule computes the raw fee for a rule and clamps it to the configured
// bounds. Percentage rules add the fixed per-transaction component on top of
// the percentage fee before rounding.
func applyRule(amount domain.Money, rule domain.FeeRule) domain.Money {
	var raw decimal.Decimal
	switch rule.ValueType {
	case domain.ValueFixed:
		raw = domain.NewMoney(rule.FixedCents).ToDecimal()
	default:
		raw = amount.ToDecimal().
			Mul(rule.Percent).
			Div(decimal.NewFromInt(100)).
			Add(domain.NewMoney(rule.FixedCents).ToDecimal())
	}

	fee := domain.NewMoney(domain.FromDecimal(raw))
	if rule.MinCents != nil && fee.Cents < *rule.MinCents {
		fee = domain.NewMoney(*rule.MinCents)
	}
	if rule.MaxCents != nil && fee.Cents > *rule.MaxCents {
		fee = domain.NewMoney(*rule.MaxCents)
	}
	return fee
}
