package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/podpay/fee-engine/internal/models"
	"github.com/podpay/fee-engine/internal/service"
	"go.uber.org/zap"
)

// WebhookHandler handles incoming webhook events from the payment processor.
type WebhookHandler struct {
	saleSvc *service.SaleService
}

// NewWebhookHandler creates a new WebhookHandler instance.
func NewWebhookHandler(saleSvc *service.SaleService) *WebhookHandler {
	return &WebhookHandler{saleSvc: saleSvc}
}

// HandleProcessorWebhook handles POST /v1/webhooks/processor.
// It verifies the HMAC signature and applies the transaction status update.
func (h *WebhookHandler) HandleProcessorWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		zap.L().Error("read webhook body failed", zap.Error(err))
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
		return
	}

	signature := r.Header.Get("X-Webhook-Signature")

	resp, err := h.saleSvc.HandleProcessorWebhook(r.Context(), body, signature)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-signature", "Invalid signature")
			return
		}
		if errors.Is(err, service.ErrWebhookPayloadMismatch) {
			RespondError(w, r, http.StatusConflict, "webhook/payload-mismatch", err.Error())
			return
		}
		if errors.Is(err, models.ErrStaleStatus) {
			RespondError(w, r, http.StatusConflict, "webhook/stale-status", err.Error())
			return
		}
		if errors.Is(err, service.ErrInvalidEvent) {
			RespondError(w, r, http.StatusBadRequest, "webhook/rejected", err.Error())
			return
		}
		// Anything else is a server-side fault (storage, fee resolution). A
		// 500 tells the processor to keep retrying.
		zap.L().Error("process webhook failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "webhook/processing-failed", "Failed to process event")
		return
	}

	RespondJSON(w, http.StatusOK, resp)
}
