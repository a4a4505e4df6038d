package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/podpay/fee-engine/internal/domain"
	"github.com/podpay/fee-engine/internal/fees"
	"github.com/podpay/fee-engine/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrInvalidFeeRule = errors.New("invalid fee rule")

// FeeRuleService manages the configured fee schedule. Every mutation
// soft-deactivates the previous rule, appends a change log entry, and
// publishes a cache invalidation event.
type FeeRuleService struct {
	store     QueryStore
	publisher fees.Publisher
	logger    *zap.Logger
}

func NewFeeRuleService(store QueryStore, publisher fees.Publisher, logger *zap.Logger) *FeeRuleService {
	if publisher == nil {
		publisher = fees.NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeRuleService{store: store, publisher: publisher, logger: logger}
}

// UpsertRuleInput describes one rule mutation.
type UpsertRuleInput struct {
	FeeType    domain.FeeType
	ValueType  domain.ValueType
	Percent    decimal.Decimal
	FixedCents int64
	MinCents   *int64
	MaxCents   *int64
	TenantID   *uuid.UUID
	ActorID    uuid.UUID
}

func (in UpsertRuleInput) validate() error {
	if !domain.IsValidFeeType(in.FeeType) {
		return fmt.Errorf("%w: unknown fee type %q", ErrInvalidFeeRule, in.FeeType)
	}
	if in.ValueType != domain.ValuePercentage && in.ValueType != domain.ValueFixed {
		return fmt.Errorf("%w: unknown value type %q", ErrInvalidFeeRule, in.ValueType)
	}
	if in.Percent.IsNegative() || in.FixedCents < 0 {
		return fmt.Errorf("%w: negative fee value", ErrInvalidFeeRule)
	}
	if in.MinCents != nil && in.MaxCents != nil && *in.MinCents > *in.MaxCents {
		return fmt.Errorf("%w: min above max", ErrInvalidFeeRule)
	}
	return nil
}

// UpsertRule replaces the active rule for (feeType, scope) with a new one.
// The previous rule stays in the table deactivated, preserving audit history.
func (s *FeeRuleService) UpsertRule(ctx context.Context, in UpsertRuleInput) (*domain.FeeRule, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	rule := &domain.FeeRule{
		ID:         uuid.New(),
		FeeType:    in.FeeType,
		ValueType:  in.ValueType,
		Percent:    in.Percent,
		FixedCents: in.FixedCents,
		MinCents:   in.MinCents,
		MaxCents:   in.MaxCents,
		TenantID:   in.TenantID,
		IsActive:   true,
	}

	err := s.store.RunInTx(ctx, func(q Queries) error {
		previous, err := q.DeactivateFeeRules(ctx, in.FeeType, in.TenantID)
		if err != nil {
			return err
		}
		if err := q.CreateFeeRule(ctx, rule); err != nil {
			return err
		}

		action := "created"
		var prevValue []byte
		if len(previous) > 0 {
			action = "updated"
			if prevValue, err = json.Marshal(previous[len(previous)-1]); err != nil {
				return fmt.Errorf("encode previous rule: %w", err)
			}
		}
		nextValue, err := json.Marshal(rule)
		if err != nil {
			return fmt.Errorf("encode new rule: %w", err)
		}

		return q.CreateFeeChangeLog(ctx, &models.FeeChangeLog{
			ID:        uuid.New(),
			RuleID:    rule.ID,
			ActorID:   in.ActorID,
			Action:    action,
			PrevValue: prevValue,
			NextValue: nextValue,
			TenantID:  in.TenantID,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("upsert fee rule: %w", err)
	}

	s.publishChange(ctx)
	return rule, nil
}

// DeactivateRule retires the active rule for (feeType, scope) without a
// replacement, so resolution falls back to the global rule or the default
// table.
func (s *FeeRuleService) DeactivateRule(ctx context.Context, feeType domain.FeeType, tenantID *uuid.UUID, actorID uuid.UUID) error {
	if !domain.IsValidFeeType(feeType) {
		return fmt.Errorf("%w: unknown fee type %q", ErrInvalidFeeRule, feeType)
	}

	err := s.store.RunInTx(ctx, func(q Queries) error {
		previous, err := q.DeactivateFeeRules(ctx, feeType, tenantID)
		if err != nil {
			return err
		}
		if len(previous) == 0 {
			return models.ErrFeeRuleNotFound
		}

		prevValue, err := json.Marshal(previous[len(previous)-1])
		if err != nil {
			return fmt.Errorf("encode previous rule: %w", err)
		}
		return q.CreateFeeChangeLog(ctx, &models.FeeChangeLog{
			ID:        uuid.New(),
			RuleID:    previous[len(previous)-1].ID,
			ActorID:   actorID,
			Action:    "deactivated",
			PrevValue: prevValue,
			NextValue: []byte("null"),
			TenantID:  tenantID,
		})
	})
	if err != nil {
		return err
	}

	s.publishChange(ctx)
	return nil
}

// ListRules returns the full rule history for the scope.
func (s *FeeRuleService) ListRules(ctx context.Context, tenantID *uuid.UUID) ([]domain.FeeRule, error) {
	return s.store.Queries().ListFeeRules(ctx, tenantID)
}

func (s *FeeRuleService) publishChange(ctx context.Context) {
	if err := s.publisher.PublishRulesChanged(ctx); err != nil {
		s.logger.Warn("publish fee rule change", zap.Error(err))
	}
}
