package fees

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/podpay/fee-engine/internal/domain"
	"github.com/podpay/fee-engine/internal/observability"
	"go.uber.org/zap"
)

// RuleSource loads active fee rules from the backing store.
type RuleSource interface {
	// ListActiveFeeRules returns every active rule visible to the tenant:
	// global rules plus the tenant's overrides. A nil tenant id returns
	// global rules only.
	ListActiveFeeRules(ctx context.Context, tenantID *uuid.UUID) ([]domain.FeeRule, error)
}

// Resolver resolves the single effective fee rule for a (tenant, fee type)
// pair. Tenant-scoped rules shadow global rules of the same fee type; the
// built-in default table guarantees total coverage, so resolution never
// fails. Resolved schedules are cached per tenant until Invalidate is called.
type Resolver struct {
	source RuleSource
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[uuid.UUID]map[domain.FeeType]domain.FeeRule
}

// NewResolver creates a resolver over the given rule source.
func NewResolver(source RuleSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		source: source,
		logger: logger,
		cache:  make(map[uuid.UUID]map[domain.FeeType]domain.FeeRule),
	}
}

// Resolve returns the effective rule for the fee type: tenant override first,
// then global rule, then the hard-coded default. Falling through to the
// default table means configuration is missing entirely, which is allowed
// (checkout must not be interrupted) but logged and counted so it can alert.
func (r *Resolver) Resolve(ctx context.Context, tenantID *uuid.UUID, feeType domain.FeeType) (domain.FeeRule, error) {
	schedule, err := r.schedule(ctx, tenantID)
	if err != nil {
		return domain.FeeRule{}, err
	}

	if rule, ok := schedule[feeType]; ok {
		return rule, nil
	}

	rule, ok := domain.DefaultRule(feeType)
	if !ok {
		return domain.FeeRule{}, fmt.Errorf("unknown fee type: %s", feeType)
	}
	r.logger.Warn("no configured fee rule, using hard-coded default",
		zap.String("fee_type", string(feeType)),
	)
	observability.IncrementFeeFallback(string(feeType))
	return rule, nil
}

// Invalidate drops all cached schedules. Called when the rule store changes.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[uuid.UUID]map[domain.FeeType]domain.FeeRule)
	r.mu.Unlock()
}

func (r *Resolver) schedule(ctx context.Context, tenantID *uuid.UUID) (map[domain.FeeType]domain.FeeRule, error) {
	key := uuid.Nil
	if tenantID != nil {
		key = *tenantID
	}

	r.mu.RLock()
	schedule, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return schedule, nil
	}

	rules, err := r.source.ListActiveFeeRules(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active fee rules: %w", err)
	}

	schedule = make(map[domain.FeeType]domain.FeeRule, len(rules))
	for _, rule := range rules {
		existing, seen := schedule[rule.FeeType]
		// Tenant override wins over a global rule of the same type.
		if seen && existing.Scope() == domain.ScopeTenant && rule.Scope() == domain.ScopeGlobal {
			continue
		}
		schedule[rule.FeeType] = rule
	}

	r.mu.Lock()
	r.cache[key] = schedule
	r.mu.Unlock()
	return schedule, nil
}
