package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/podpay/fee-engine/internal/domain"
	"github.com/podpay/fee-engine/internal/fees"
	"github.com/podpay/fee-engine/internal/models"
	"github.com/podpay/fee-engine/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FeeHandler exposes fee schedule administration and fee simulation.
type FeeHandler struct {
	rules *service.FeeRuleService
	calc  *fees.Calculator
}

func NewFeeHandler(rules *service.FeeRuleService, calc *fees.Calculator) *FeeHandler {
	return &FeeHandler{rules: rules, calc: calc}
}

// UpsertRule handles PUT /v1/admin/fees.
func (h *FeeHandler) UpsertRule(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req struct {
		FeeType    string          `json:"fee_type"`
		ValueType  string          `json:"value_type"`
		Percent    decimal.Decimal `json:"percent"`
		FixedCents int64           `json:"fixed_cents"`
		MinCents   *int64          `json:"min_cents"`
		MaxCents   *int64          `json:"max_cents"`
		TenantID   string          `json:"tenant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	tenantID, errResp := parseOptionalTenant(req.TenantID)
	if errResp != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-tenant-id", "Invalid tenant_id")
		return
	}

	rule, err := h.rules.UpsertRule(r.Context(), service.UpsertRuleInput{
		FeeType:    domain.FeeType(req.FeeType),
		ValueType:  domain.ValueType(req.ValueType),
		Percent:    req.Percent,
		FixedCents: req.FixedCents,
		MinCents:   req.MinCents,
		MaxCents:   req.MaxCents,
		TenantID:   tenantID,
		ActorID:    actorID,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidFeeRule) {
			RespondError(w, r, http.StatusBadRequest, "fees/invalid-rule", err.Error())
			return
		}
		if status, pType, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("upsert fee rule failed", zap.Error(err), zap.String("fee_type", req.FeeType))
		RespondError(w, r, http.StatusInternalServerError, "fees/upsert-failed", "Failed to save fee rule")
		return
	}

	RespondJSON(w, http.StatusOK, rule)
}

// DeactivateRule handles DELETE /v1/admin/fees/{feeType}.
func (h *FeeHandler) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	feeType := domain.FeeType(chi.URLParam(r, "feeType"))
	if !domain.IsValidFeeType(feeType) {
		RespondError(w, r, http.StatusBadRequest, "fees/invalid-fee-type", "Unknown fee type")
		return
	}

	tenantID, errResp := parseOptionalTenant(r.URL.Query().Get("tenant_id"))
	if errResp != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-tenant-id", "Invalid tenant_id")
		return
	}

	if err := h.rules.DeactivateRule(r.Context(), feeType, tenantID, actorID); err != nil {
		if errors.Is(err, models.ErrFeeRuleNotFound) {
			RespondError(w, r, http.StatusNotFound, "fees/rule-not-found", "No active rule for this fee type")
			return
		}
		zap.L().Error("deactivate fee rule failed", zap.Error(err), zap.String("fee_type", string(feeType)))
		RespondError(w, r, http.StatusInternalServerError, "fees/deactivate-failed", "Failed to deactivate fee rule")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListRules handles GET /v1/admin/fees.
func (h *FeeHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	tenantID, errResp := parseOptionalTenant(r.URL.Query().Get("tenant_id"))
	if errResp != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-tenant-id", "Invalid tenant_id")
		return
	}

	rules, err := h.rules.ListRules(r.Context(), tenantID)
	if err != nil {
		zap.L().Error("list fee rules failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "fees/list-failed", "Failed to list fee rules")
		return
	}

	RespondJSON(w, http.StatusOK, rules)
}

// Simulate handles POST /v1/fees/simulate. It computes the fee and net for
// every payment method, or a single method when one is named.
func (h *FeeHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	_, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req struct {
		AmountCents  int64  `json:"amount_cents"`
		Method       string `json:"method"`
		CardTermDays int    `json:"card_term_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.AmountCents < 0 {
		RespondError(w, r, http.StatusBadRequest, "fees/negative-amount", "amount_cents must not be negative")
		return
	}

	tenantID, tErr := requestTenant(r, isAdmin)
	if tErr != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-tenant-id", "Invalid tenant")
		return
	}

	if req.Method != "" {
		if !domain.IsValidMethod(req.Method) {
			RespondError(w, r, http.StatusBadRequest, "fees/invalid-method", "Unknown payment method")
			return
		}
		breakdown, err := h.calc.CalculateMethod(r.Context(), req.AmountCents, req.Method, &tenantID, req.CardTermDays)
		if err != nil {
			zap.L().Error("fee simulation failed", zap.Error(err), zap.String("method", req.Method))
			RespondError(w, r, http.StatusInternalServerError, "fees/simulate-failed", "Failed to simulate fees")
			return
		}
		RespondJSON(w, http.StatusOK, breakdown)
		return
	}

	breakdowns, err := h.calc.SimulateAll(r.Context(), req.AmountCents, &tenantID)
	if err != nil {
		zap.L().Error("fee simulation failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "fees/simulate-failed", "Failed to simulate fees")
		return
	}

	RespondJSON(w, http.StatusOK, breakdowns)
}

func parseOptionalTenant(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
