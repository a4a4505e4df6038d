package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/podpay/fee-engine/internal/domain"
	"github.com/podpay/fee-engine/internal/fees"
	"github.com/podpay/fee-engine/internal/models"
)

// memStore is an in-memory Queries/QueryStore double. It has no real
// transaction semantics; RunInTx just runs the function against the same
// maps, which is enough to exercise service logic.
type memStore struct {
	mu        sync.Mutex
	rules     []domain.FeeRule
	sales     map[uuid.UUID]*models.Sale
	splits    map[uuid.UUID]*models.CommissionSplit
	changeLog []*models.FeeChangeLog
	notifLog  []*models.NotificationLog
}

func newMemStore() *memStore {
	return &memStore{
		sales:  make(map[uuid.UUID]*models.Sale),
		splits: make(map[uuid.UUID]*models.CommissionSplit),
	}
}

func (m *memStore) Queries() Queries { return m }

func (m *memStore) RunInTx(ctx context.Context, fn func(q Queries) error) error {
	return fn(m)
}

func (m *memStore) CreateFeeRule(ctx context.Context, rule *domain.FeeRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule.CreatedAt = time.Now().UTC()
	rule.UpdatedAt = rule.CreatedAt
	m.rules = append(m.rules, *rule)
	return nil
}

func (m *memStore) DeactivateFeeRules(ctx context.Context, feeType domain.FeeType, tenantID *uuid.UUID) ([]domain.FeeRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deactivated []domain.FeeRule
	for i := range m.rules {
		r := &m.rules[i]
		if r.FeeType != feeType || !r.IsActive || !sameScope(r.TenantID, tenantID) {
			continue
		}
		r.IsActive = false
		deactivated = append(deactivated, *r)
	}
	return deactivated, nil
}

func (m *memStore) ListActiveFeeRules(ctx context.Context, tenantID *uuid.UUID) ([]domain.FeeRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FeeRule
	for _, r := range m.rules {
		if !r.IsActive {
			continue
		}
		if r.TenantID == nil || (tenantID != nil && *r.TenantID == *tenantID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListFeeRules(ctx context.Context, tenantID *uuid.UUID) ([]domain.FeeRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FeeRule
	for _, r := range m.rules {
		if sameScope(r.TenantID, tenantID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) CreateFeeChangeLog(ctx context.Context, log *models.FeeChangeLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changeLog = append(m.changeLog, log)
	return nil
}

func (m *memStore) CreateSale(ctx context.Context, sale *models.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sale.CreatedAt = time.Now().UTC()
	sale.UpdatedAt = sale.CreatedAt
	cp := *sale
	m.sales[sale.ID] = &cp
	return nil
}

func (m *memStore) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sale, ok := m.sales[id]
	if !ok {
		return nil, models.ErrSaleNotFound
	}
	cp := *sale
	return &cp, nil
}

func (m *memStore) GetSaleByProcessorTxID(ctx context.Context, processorTxID string) (*models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sale := range m.sales {
		if sale.ProcessorTxID == processorTxID {
			cp := *sale
			return &cp, nil
		}
	}
	return nil, models.ErrSaleNotFound
}

func (m *memStore) UpdateSaleStatus(ctx context.Context, id uuid.UUID, status string, paidAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sale, ok := m.sales[id]
	if !ok {
		return models.ErrSaleNotFound
	}
	sale.Status = status
	sale.UpdatedAt = time.Now().UTC()
	if paidAt != nil {
		sale.PaidAt = paidAt
	}
	return nil
}

func (m *memStore) CreateCommissionSplit(ctx context.Context, s *models.CommissionSplit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.splits[s.ID] = &cp
	return nil
}

func (m *memStore) ListSplitsBySale(ctx context.Context, saleID uuid.UUID) ([]models.CommissionSplit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CommissionSplit
	for _, s := range m.splits {
		if s.SaleID == saleID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NetCents > out[j].NetCents })
	return out, nil
}

func (m *memStore) ListSplitsByStatus(ctx context.Context, status string, limit int32) ([]models.CommissionSplit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CommissionSplit
	for _, s := range m.splits {
		if s.Status == status && int32(len(out)) < limit {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) AdvanceSplitStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.splits[id]
	if !ok || s.Status != from {
		return models.ErrStaleStatus
	}
	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) TenantBalance(ctx context.Context, tenantID uuid.UUID) (availableCents, pendingCents int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sale := range m.sales {
		if sale.TenantID != tenantID {
			continue
		}
		c := domain.Classify(sale.Status)
		switch {
		case c.Allowed:
			availableCents += sale.NetCents
		case c.Pending:
			pendingCents += sale.NetCents
		}
	}
	return availableCents, pendingCents, nil
}

func (m *memStore) CreateNotificationLog(ctx context.Context, log *models.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifLog = append(m.notifLog, log)
	return nil
}

func sameScope(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// recordingPublisher counts invalidation events.
type recordingPublisher struct {
	published int
}

func (p *recordingPublisher) PublishRulesChanged(ctx context.Context) error {
	p.published++
	return nil
}

func newTestCalculator(store *memStore) *fees.Calculator {
	return fees.NewCalculator(fees.NewResolver(store, nil), nil)
}

func signBody(key string, body []byte) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
