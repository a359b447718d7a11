package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/safehold/escrowpay/internal/infrastructure/auth"
	"github.com/safehold/escrowpay/internal/infrastructure/gateway"
)

func (h *Handler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var req struct {
		EscrowID      int32  `json:"escrow_id"`
		PaymentMethod string `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	url, err := h.payments.Initialize(r.Context(), req.EscrowID, userID, gateway.Method(req.PaymentMethod))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"authorization_url": url})
}

func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFrom(r.Context()); !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}
	reference := mux.Vars(r)["reference"]
	if reference == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("reference is required"))
		return
	}

	escrow, err := h.payments.Verify(r.Context(), reference)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, escrow)
}
