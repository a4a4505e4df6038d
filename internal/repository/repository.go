package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/podpay/fee-engine/internal/domain"
	"github.com/podpay/fee-engine/internal/models"
)

// DBTX abstracts over the pgx pool and a transaction so the same queries run
// in both scopes.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db DBTX
}

func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// --- fee rules ---

func (r *Repository) CreateFeeRule(ctx context.Context, rule *domain.FeeRule) error {
	query := `
		INSERT INTO platform_fees (id, fee_type, value_type, percent, fixed_cents, min_cents, max_cents, tenant_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		rule.ID, rule.FeeType, rule.ValueType, rule.Percent, rule.FixedCents,
		rule.MinCents, rule.MaxCents, rule.TenantID, rule.IsActive,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create fee rule: %w", err)
	}
	return nil
}

// DeactivateFeeRules soft-deactivates the active rules for (feeType, scope).
// Rules are never hard-deleted so the audit history stays intact.
func (r *Repository) DeactivateFeeRules(ctx context.Context, feeType domain.FeeType, tenantID *uuid.UUID) ([]domain.FeeRule, error) {
	query := `
		UPDATE platform_fees
		SET is_active = FALSE, updated_at = NOW()
		WHERE fee_type = $1 AND tenant_id IS NOT DISTINCT FROM $2 AND is_active
		RETURNING id, fee_type, value_type, percent, fixed_cents, min_cents, max_cents, tenant_id, is_active, created_at, updated_at
	`
	rows, err := r.db.Query(ctx, query, feeType, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate fee rules: %w", err)
	}
	defer rows.Close()
	return scanFeeRules(rows)
}

// ListActiveFeeRules returns global rules plus, when tenantID is set, the
// tenant's overrides.
func (r *Repository) ListActiveFeeRules(ctx context.Context, tenantID *uuid.UUID) ([]domain.FeeRule, error) {
	query := `
		SELECT id, fee_type, value_type, percent, fixed_cents, min_cents, max_cents, tenant_id, is_active, created_at, updated_at
		FROM platform_fees
		WHERE is_active AND (tenant_id IS NULL OR tenant_id = $1)
		ORDER BY fee_type, tenant_id NULLS FIRST
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active fee rules: %w", err)
	}
	defer rows.Close()
	return scanFeeRules(rows)
}

// ListFeeRules returns every rule (active and deactivated) for the scope.
func (r *Repository) ListFeeRules(ctx context.Context, tenantID *uuid.UUID) ([]domain.FeeRule, error) {
	query := `
		SELECT id, fee_type, value_type, percent, fixed_cents, min_cents, max_cents, tenant_id, is_active, created_at, updated_at
		FROM platform_fees
		WHERE tenant_id IS NOT DISTINCT FROM $1
		ORDER BY fee_type, created_at DESC
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fee rules: %w", err)
	}
	defer rows.Close()
	return scanFeeRules(rows)
}

func (r *Repository) CreateFeeChangeLog(ctx context.Context, log *models.FeeChangeLog) error {
	query := `
		INSERT INTO fee_change_logs (id, rule_id, actor_id, action, prev_value, next_value, tenant_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		log.ID, log.RuleID, log.ActorID, log.Action, log.PrevValue, log.NextValue, log.TenantID,
	).Scan(&log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create fee change log: %w", err)
	}
	return nil
}

func scanFeeRules(rows pgx.Rows) ([]domain.FeeRule, error) {
	var rules []domain.FeeRule
	for rows.Next() {
		var rule domain.FeeRule
		if err := rows.Scan(
			&rule.ID, &rule.FeeType, &rule.ValueType, &rule.Percent, &rule.FixedCents,
			&rule.MinCents, &rule.MaxCents, &rule.TenantID, &rule.IsActive,
			&rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fee rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// --- sales ---

const saleColumns = `id, tenant_id, processor_tx_id, amount_cents, payment_method, card_term_days, status,
	payment_fee_cents, platform_fee_cents, commission_cents, net_cents, created_at, updated_at, paid_at`

func (r *Repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW(), $12)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		sale.ID, sale.TenantID, sale.ProcessorTxID, sale.AmountCents, sale.PaymentMethod,
		sale.CardTermDays, sale.Status, sale.PaymentFeeCents, sale.PlatformFeeCents,
		sale.CommissionCents, sale.NetCents, sale.PaidAt,
	).Scan(&sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create sale: %w", err)
	}
	return nil
}

// GetSaleByProcessorTxID locks the sale row for the duration of the enclosing
// transaction so concurrent webhook redeliveries serialize.
func (r *Repository) GetSaleByProcessorTxID(ctx context.Context, processorTxID string) (*models.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE processor_tx_id = $1 FOR UPDATE`
	sale, err := scanSale(r.db.QueryRow(ctx, query, processorTxID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return sale, nil
}

func (r *Repository) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`
	sale, err := scanSale(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return sale, nil
}

func (r *Repository) UpdateSaleStatus(ctx context.Context, id uuid.UUID, status string, paidAt *time.Time) error {
	query := `UPDATE sales SET status = $1, paid_at = COALESCE($2, paid_at), updated_at = NOW() WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, status, paidAt, id)
	if err != nil {
		return fmt.Errorf("failed to update sale status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return models.ErrSaleNotFound
	}
	return nil
}

func scanSale(row pgx.Row) (*models.Sale, error) {
	sale := &models.Sale{}
	err := row.Scan(
		&sale.ID, &sale.TenantID, &sale.ProcessorTxID, &sale.AmountCents, &sale.PaymentMethod,
		&sale.CardTermDays, &sale.Status, &sale.PaymentFeeCents, &sale.PlatformFeeCents,
		&sale.CommissionCents, &sale.NetCents, &sale.CreatedAt, &sale.UpdatedAt, &sale.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// --- commission splits ---

func (r *Repository) CreateCommissionSplit(ctx context.Context, s *models.CommissionSplit) error {
	query := `
		INSERT INTO sale_commissions (id, sale_id, beneficiary_id, role, percentage, gross_cents, net_cents, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		s.ID, s.SaleID, s.BeneficiaryID, s.Role, s.Percentage, s.GrossCents, s.NetCents, s.Status,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create commission split: %w", err)
	}
	return nil
}

func (r *Repository) ListSplitsBySale(ctx context.Context, saleID uuid.UUID) ([]models.CommissionSplit, error) {
	query := `
		SELECT id, sale_id, beneficiary_id, role, percentage, gross_cents, net_cents, status, created_at, updated_at
		FROM sale_commissions
		WHERE sale_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer rows.Close()
	return scanSplits(rows)
}

// ListSplitsByStatus claims up to limit splits in the given status using
// SKIP LOCKED so concurrent worker instances never double-process.
func (r *Repository) ListSplitsByStatus(ctx context.Context, status string, limit int32) ([]models.CommissionSplit, error) {
	query := `
		SELECT id, sale_id, beneficiary_id, role, percentage, gross_cents, net_cents, status, created_at, updated_at
		FROM sale_commissions
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.db.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits by status: %w", err)
	}
	defer rows.Close()
	return scanSplits(rows)
}

// AdvanceSplitStatus moves a split from one status to the next. The WHERE
// guard keeps the progression monotonic.
func (r *Repository) AdvanceSplitStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	query := `UPDATE sale_commissions SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	tag, err := r.db.Exec(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to advance split status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return models.ErrStaleStatus
	}
	return nil
}

func scanSplits(rows pgx.Rows) ([]models.CommissionSplit, error) {
	var splits []models.CommissionSplit
	for rows.Next() {
		var s models.CommissionSplit
		if err := rows.Scan(
			&s.ID, &s.SaleID, &s.BeneficiaryID, &s.Role, &s.Percentage,
			&s.GrossCents, &s.NetCents, &s.Status, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, s)
	}
	return splits, rows.Err()
}

// --- balances ---

// TenantBalance sums sale net amounts per settlement bucket. The status
// lists are taken from the classifier, never repeated here.
func (r *Repository) TenantBalance(ctx context.Context, tenantID uuid.UUID) (availableCents, pendingCents int64, err error) {
	query := `
		SELECT
			COALESCE(SUM(net_cents) FILTER (WHERE status = ANY($2)), 0),
			COALESCE(SUM(net_cents) FILTER (WHERE status = ANY($3)), 0)
		FROM sales
		WHERE tenant_id = $1
	`
	err = r.db.QueryRow(ctx, query, tenantID, domain.AllowedStatuses(), domain.PendingStatuses()).
		Scan(&availableCents, &pendingCents)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate tenant balance: %w", err)
	}
	return availableCents, pendingCents, nil
}

// --- notification logs ---

func (r *Repository) CreateNotificationLog(ctx context.Context, log *models.NotificationLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	query := `
		INSERT INTO notification_logs (id, channel, recipient, success, attempts, provider_id, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		log.ID, log.Channel, log.Recipient, log.Success, log.Attempts, log.ProviderID, log.Error,
	).Scan(&log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification log: %w", err)
	}
	return nil
}
