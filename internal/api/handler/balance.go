package handler

import (
	"net/http"

	"github.com/podpay/fee-engine/internal/service"
	"go.uber.org/zap"
)

// BalanceHandler reports per-tenant available and pending balances.
type BalanceHandler struct {
	svc *service.BalanceService
}

func NewBalanceHandler(svc *service.BalanceService) *BalanceHandler {
	return &BalanceHandler{svc: svc}
}

// GetBalance handles GET /v1/balance.
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	_, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	tenantID, err := requestTenant(r, isAdmin)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-tenant-id", "Invalid tenant")
		return
	}

	balance, err := h.svc.TenantBalance(r.Context(), tenantID)
	if err != nil {
		zap.L().Error("tenant balance failed", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		RespondError(w, r, http.StatusInternalServerError, "balance/read-failed", "Failed to get balance")
		return
	}

	RespondJSON(w, http.StatusOK, balance)
}
