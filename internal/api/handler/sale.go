package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/podpay/fee-engine/internal/api/middleware"
	"github.com/podpay/fee-engine/internal/models"
	"github.com/podpay/fee-engine/internal/service"
	"go.uber.org/zap"
)

// SaleHandler exposes read access to recorded sales.
type SaleHandler struct {
	svc *service.SaleService
}

func NewSaleHandler(svc *service.SaleService) *SaleHandler {
	return &SaleHandler{svc: svc}
}

// GetSale handles GET /v1/sales/{id}.
func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	_, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	saleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-sale-id", "Invalid sale ID")
		return
	}

	sale, splits, err := h.svc.GetSale(r.Context(), saleID)
	if err != nil {
		if errors.Is(err, models.ErrSaleNotFound) {
			RespondError(w, r, http.StatusNotFound, "sales/not-found", "Sale not found")
			return
		}
		zap.L().Error("get sale failed", zap.Error(err), zap.String("sale_id", saleID.String()))
		RespondError(w, r, http.StatusInternalServerError, "sales/read-failed", "Failed to get sale")
		return
	}
	if !isAdmin && middleware.TenantIDFromContext(r.Context()) != sale.TenantID.String() {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"sale":   sale,
		"splits": splits,
	})
}
