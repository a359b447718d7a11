package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/safehold/escrowpay/internal/infrastructure/gateway"
	"github.com/safehold/escrowpay/internal/infrastructure/kafka"
	"github.com/safehold/escrowpay/internal/infrastructure/redis"
	"github.com/safehold/escrowpay/internal/lifecycle"
	"github.com/safehold/escrowpay/internal/models"
	"github.com/safehold/escrowpay/internal/repository"
	pkgerrors "github.com/safehold/escrowpay/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

type PaymentService interface {
	// Initialize opens a gateway charge for the buyer-pays total and returns
	// the redirect URL the buyer completes payment on.
	Initialize(ctx context.Context, escrowID, userID int32, method gateway.Method) (string, error)
	// Verify checks the charge for an escrow reference with its gateway and,
	// on success, moves the escrow to funded. Safe to call repeatedly.
	Verify(ctx context.Context, reference string) (*models.Escrow, error)
}

type paymentService struct {
	escrowRepo  repository.EscrowRepository
	userRepo    repository.UserRepository
	redisClient redis.RedisClient
	producer    kafka.KafkaProducer
	gateways    map[gateway.Method]gateway.Client
	callbackURL string
}

func NewPaymentService(
	escrowRepo repository.EscrowRepository,
	userRepo repository.UserRepository,
	redisClient redis.RedisClient,
	producer kafka.KafkaProducer,
	clients []gateway.Client,
	callbackURL string,
) *paymentService {
	gateways := make(map[gateway.Method]gateway.Client, len(clients))
	for _, c := range clients {
		gateways[c.Name()] = c
	}
	return &paymentService{
		escrowRepo:  escrowRepo,
		userRepo:    userRepo,
		redisClient: redisClient,
		producer:    producer,
		gateways:    gateways,
		callbackURL: callbackURL,
	}
}

func (s *paymentService) Initialize(ctx context.Context, escrowID, userID int32, method gateway.Method) (string, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "InitializePayment")
	defer span.End()

	client, ok := s.gateways[method]
	if !ok {
		span.SetStatus(codes.Error, "unsupported gateway")
		return "", pkgerrors.ErrUnsupportedGateway
	}

	escrow, err := s.escrowRepo.GetByID(ctx, escrowID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if escrow.BuyerID != userID {
		span.SetStatus(codes.Error, "only the buyer pays")
		return "", pkgerrors.ErrNotParty
	}
	// Funding is only meaningful while the escrow awaits payment.
	if _, err := lifecycle.Transition(escrow.Status, lifecycle.ActionFund, models.RoleBuyer); err != nil {
		span.SetStatus(codes.Error, "escrow not payable")
		return "", err
	}

	buyer, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	resp, err := client.Initialize(ctx, gateway.InitializeRequest{
		Reference:   escrow.Reference,
		Amount:      escrow.Payment.BuyerPays,
		Currency:    escrow.Currency,
		Email:       buyer.Email,
		CallbackURL: s.callbackURL,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway initialize failed")
		slog.Error("gateway initialize failed", "escrow_id", escrowID, "method", method, "error", err)
		return "", err
	}

	if err := s.escrowRepo.SetPayment(ctx, escrowID, &models.Payment{
		Method:    string(method),
		Reference: escrow.Reference,
	}); err != nil {
		span.RecordError(err)
		return "", err
	}

	slog.Info("payment initialized", "escrow_id", escrowID, "method", method, "reference", escrow.Reference)
	return resp.AuthorizationURL, nil
}

func (s *paymentService) Verify(ctx context.Context, reference string) (*models.Escrow, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "VerifyPayment")
	defer span.End()

	escrow, err := s.escrowRepo.GetByReference(ctx, reference)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// A repeated callback for an already-funded escrow is a no-op.
	if escrow.Status != models.StatusAccepted {
		if escrow.Payment != nil && escrow.Payment.PaidAt != nil {
			return escrow, nil
		}
		span.SetStatus(codes.Error, "escrow not awaiting payment")
		return nil, pkgerrors.ErrInvalidTransition
	}

	if escrow.Payment == nil || escrow.Payment.Method == "" {
		span.SetStatus(codes.Error, "payment never initialized")
		return nil, pkgerrors.ErrPaymentNotFound
	}
	client, ok := s.gateways[gateway.Method(escrow.Payment.Method)]
	if !ok {
		span.SetStatus(codes.Error, "unsupported gateway")
		return nil, pkgerrors.ErrUnsupportedGateway
	}

	requestKey := fmt.Sprintf("request:verify:%s", reference)
	locked, err := s.redisClient.SetNX(ctx, requestKey, "pending", 30*time.Second)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !locked {
		span.SetStatus(codes.Error, "verification in flight")
		return nil, pkgerrors.ErrRequestAlreadyProcessed
	}
	defer s.redisClient.Del(ctx, requestKey)

	result, err := client.Verify(ctx, reference)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway verify failed")
		slog.Error("gateway verify failed", "reference", reference, "error", err)
		return nil, err
	}
	if !result.Paid {
		span.SetStatus(codes.Error, "payment not confirmed")
		slog.Warn("payment not confirmed", "reference", reference)
		return nil, pkgerrors.ErrPaymentNotConfirmed
	}
	if result.Amount < escrow.Payment.BuyerPays {
		span.SetStatus(codes.Error, "underpayment")
		slog.Error("gateway amount below buyer total", "reference", reference,
			"paid", result.Amount, "expected", escrow.Payment.BuyerPays)
		return nil, pkgerrors.ErrPaymentNotConfirmed
	}

	next, err := lifecycle.Transition(escrow.Status, lifecycle.ActionFund, models.RoleBuyer)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.escrowRepo.UpdateStatus(ctx, escrow.ID, escrow.Status, next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status update failed")
		return nil, err
	}

	paidAt := result.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	if err := s.escrowRepo.SetPayment(ctx, escrow.ID, &models.Payment{
		Method:    escrow.Payment.Method,
		Reference: reference,
		PaidAt:    &paidAt,
	}); err != nil {
		slog.Error("failed to record paid_at", "escrow_id", escrow.ID, "error", err)
		span.RecordError(err)
	}

	s.emitEvent(ctx, escrow, escrow.Status, next, string(lifecycle.ActionFund), escrow.BuyerID)

	updated, err := s.escrowRepo.GetByID(ctx, escrow.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	slog.Info("payment verified, escrow funded", "escrow_id", escrow.ID, "reference", reference)
	return updated, nil
}

func (s *paymentService) emitEvent(ctx context.Context, escrow *models.Escrow, from, to models.EscrowStatus, action string, actorID int32) {
	event := map[string]interface{}{
		"event_type": "escrow_transition",
		"escrow_id":  escrow.ID,
		"reference":  escrow.Reference,
		"title":      escrow.Title,
		"from":       string(from),
		"to":         string(to),
		"action":     action,
		"actor_id":   actorID,
		"buyer_id":   escrow.BuyerID,
		"seller_id":  escrow.SellerID,
		"amount":     escrow.Amount,
		"currency":   escrow.Currency,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal escrow event", "escrow_id", escrow.ID, "error", err)
		return
	}
	if err := s.producer.Send(ctx, "escrows", escrow.Reference, eventBytes); err != nil {
		slog.Error("failed to send escrow event", "escrow_id", escrow.ID, "error", err)
	}
}
