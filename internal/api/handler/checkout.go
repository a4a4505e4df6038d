package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/podpay/fee-engine/internal/checkout"
	"go.uber.org/zap"
)

// CheckoutHandler validates checkout payloads before they are forwarded to
// the payment processor.
type CheckoutHandler struct{}

func NewCheckoutHandler() *CheckoutHandler {
	return &CheckoutHandler{}
}

// Validate handles POST /v1/checkout/validate.
func (h *CheckoutHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var payload checkout.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	sanitized, err := checkout.Validate(payload)
	if err != nil {
		var verrs checkout.ValidationErrors
		if errors.As(err, &verrs) {
			RespondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"valid":  false,
				"errors": verrs,
			})
			return
		}
		zap.L().Error("checkout validation failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "checkout/validate-failed", "Failed to validate checkout")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":       true,
		"payload":     sanitized,
		"total_cents": sanitized.TotalCents(),
	})
}
