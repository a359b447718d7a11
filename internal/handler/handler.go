package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	service "github.com/safehold/escrowpay/internal/services"
	pkgerrors "github.com/safehold/escrowpay/pkg/errors"
)

type Handler struct {
	auth          service.AuthService
	escrows       service.EscrowService
	payments      service.PaymentService
	chat          service.ChatService
	notifications service.NotificationService
	profile       service.ProfileService
}

func NewHandler(
	auth service.AuthService,
	escrows service.EscrowService,
	payments service.PaymentService,
	chat service.ChatService,
	notifications service.NotificationService,
	profile service.ProfileService,
) *Handler {
	return &Handler{
		auth:          auth,
		escrows:       escrows,
		payments:      payments,
		chat:          chat,
		notifications: notifications,
		profile:       profile,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, pkgerrors.ErrNotParty):
		return http.StatusForbidden
	case errors.Is(err, pkgerrors.ErrEscrowNotFound),
		errors.Is(err, pkgerrors.ErrUserNotFound),
		errors.Is(err, pkgerrors.ErrNotificationNotFound),
		errors.Is(err, pkgerrors.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrUsernameExists),
		errors.Is(err, pkgerrors.ErrRequestAlreadyProcessed),
		errors.Is(err, pkgerrors.ErrEscrowLocked),
		errors.Is(err, pkgerrors.ErrStaleStatus):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrInvalidTransition),
		errors.Is(err, pkgerrors.ErrActionNotAllowedForRole):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pkgerrors.ErrInvalidInput),
		errors.Is(err, pkgerrors.ErrInvalidAmount),
		errors.Is(err, pkgerrors.ErrInvalidKYCTier),
		errors.Is(err, pkgerrors.ErrTierLimitExceeded),
		errors.Is(err, pkgerrors.ErrUnsupportedGateway),
		errors.Is(err, pkgerrors.ErrPaymentNotConfirmed):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	h.writeError(w, statusFor(err), err)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/escrows", h.CreateEscrow).Methods("POST")
	r.HandleFunc("/escrows", h.ListEscrows).Methods("GET")
	r.HandleFunc("/escrows/{id:[0-9]+}", h.GetEscrow).Methods("GET")
	r.HandleFunc("/escrows/{id:[0-9]+}/{action:accept|reject|deliver|confirm|cancel|dispute}", h.EscrowAction).Methods("POST")
	r.HandleFunc("/escrows/{id:[0-9]+}/messages", h.ListMessages).Methods("GET")
	r.HandleFunc("/escrows/{id:[0-9]+}/messages", h.SendMessage).Methods("POST")
	r.HandleFunc("/payments/initialize", h.InitializePayment).Methods("POST")
	r.HandleFunc("/payments/verify/{reference}", h.VerifyPayment).Methods("GET")
	r.HandleFunc("/notifications", h.ListNotifications).Methods("GET")
	r.HandleFunc("/notifications/read", h.MarkAllNotificationsRead).Methods("PUT")
	r.HandleFunc("/notifications/{id:[0-9]+}/read", h.MarkNotificationRead).Methods("PUT")
	r.HandleFunc("/notifications/{id:[0-9]+}", h.DeleteNotification).Methods("DELETE")
	r.HandleFunc("/profile", h.GetProfile).Methods("GET")
	r.HandleFunc("/profile", h.UpdateProfile).Methods("PUT")
	r.HandleFunc("/profile/kyc", h.SubmitKYC).Methods("POST")
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	userID, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]int32{"user_id": userID})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
