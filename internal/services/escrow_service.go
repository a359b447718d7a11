package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/safehold/escrowpay/internal/infrastructure/kafka"
	"github.com/safehold/escrowpay/internal/infrastructure/redis"
	"github.com/safehold/escrowpay/internal/lifecycle"
	"github.com/safehold/escrowpay/internal/models"
	"github.com/safehold/escrowpay/internal/repository"
	pkgerrors "github.com/safehold/escrowpay/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var supportedCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "NGN": true,
}

type CreateEscrowRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	SellerID    int32  `json:"seller_id"`
}

// EscrowView is one escrow as the caller sees it: the snapshot plus the
// affordances the lifecycle tables derive for the caller's role.
type EscrowView struct {
	*models.Escrow
	Role            models.Role          `json:"role"`
	StatusInfo      lifecycle.StatusInfo `json:"status_info"`
	NextAction      lifecycle.NextAction `json:"next_action"`
	CanCancel       bool                 `json:"can_cancel"`
	CanDispute      bool                 `json:"can_dispute"`
	StepIndex       int                  `json:"step_index"`
	ProgressPercent int                  `json:"progress_percent"`
	AmountDisplay   string               `json:"amount_display"`
}

type EscrowService interface {
	Create(ctx context.Context, buyerID int32, req CreateEscrowRequest) (*EscrowView, error)
	Get(ctx context.Context, escrowID, userID int32) (*EscrowView, error)
	List(ctx context.Context, userID int32) ([]EscrowView, error)
	Act(ctx context.Context, escrowID, userID int32, action lifecycle.Action, reason string) (*EscrowView, error)
}

type escrowService struct {
	escrowRepo  repository.EscrowRepository
	userRepo    repository.UserRepository
	redisClient redis.RedisClient
	producer    kafka.KafkaProducer
	fees        lifecycle.FeeSchedule
}

func NewEscrowService(
	escrowRepo repository.EscrowRepository,
	userRepo repository.UserRepository,
	redisClient redis.RedisClient,
	producer kafka.KafkaProducer,
	fees lifecycle.FeeSchedule,
) *escrowService {
	return &escrowService{
		escrowRepo:  escrowRepo,
		userRepo:    userRepo,
		redisClient: redisClient,
		producer:    producer,
		fees:        fees,
	}
}

func viewOf(e *models.Escrow, role models.Role) *EscrowView {
	return &EscrowView{
		Escrow:          e,
		Role:            role,
		StatusInfo:      lifecycle.StatusInfoFor(e.Status),
		NextAction:      lifecycle.NextActionFor(e.Status, role),
		CanCancel:       lifecycle.CanCancel(e.Status),
		CanDispute:      lifecycle.CanDispute(e.Status),
		StepIndex:       lifecycle.StepIndex(e.Status),
		ProgressPercent: lifecycle.ProgressPercent(e.Status),
		AmountDisplay:   lifecycle.FormatAmount(e.Amount, e.Currency),
	}
}

func (s *escrowService) Create(ctx context.Context, buyerID int32, req CreateEscrowRequest) (*EscrowView, error) {
	tracer := otel.Tracer("escrow-service")
	ctx, span := tracer.Start(ctx, "CreateEscrow")
	defer span.End()

	if req.Title == "" || req.SellerID == 0 {
		span.SetStatus(codes.Error, "missing title or seller")
		return nil, pkgerrors.ErrInvalidInput
	}
	if req.SellerID == buyerID {
		span.SetStatus(codes.Error, "buyer and seller identical")
		return nil, fmt.Errorf("%w: cannot open an escrow with yourself", pkgerrors.ErrInvalidInput)
	}
	if !supportedCurrencies[req.Currency] {
		span.SetStatus(codes.Error, "unsupported currency")
		return nil, fmt.Errorf("%w: unsupported currency %q", pkgerrors.ErrInvalidInput, req.Currency)
	}

	amount, err := lifecycle.ParseAmount(req.Amount)
	if err != nil || amount == 0 {
		span.SetStatus(codes.Error, "invalid amount")
		return nil, pkgerrors.ErrInvalidAmount
	}

	buyer, err := s.userRepo.GetByID(ctx, buyerID)
	if err != nil {
		span.RecordError(err)
		slog.Error("buyer not found", "user_id", buyerID, "error", err)
		return nil, err
	}
	if amount > buyer.KYCTier.EscrowLimit() {
		span.SetStatus(codes.Error, "tier limit exceeded")
		slog.Warn("escrow amount exceeds tier limit",
			"user_id", buyerID, "tier", buyer.KYCTier, "amount", amount, "limit", buyer.KYCTier.EscrowLimit())
		return nil, pkgerrors.ErrTierLimitExceeded
	}
	if _, err := s.userRepo.GetByID(ctx, req.SellerID); err != nil {
		span.RecordError(err)
		slog.Error("seller not found", "user_id", req.SellerID, "error", err)
		return nil, err
	}

	quote := s.fees.Quote(amount)
	escrow := &models.Escrow{
		Reference:   uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Amount:      amount,
		Currency:    req.Currency,
		Status:      models.StatusPending,
		BuyerID:     buyerID,
		SellerID:    req.SellerID,
		Payment: &models.Payment{
			Amount:         quote.Amount,
			BuyerFee:       quote.BuyerFee,
			BuyerPays:      quote.BuyerPays,
			SellerFee:      quote.SellerFee,
			SellerReceives: quote.SellerReceives,
			PlatformFee:    quote.PlatformFee,
		},
	}

	if err := s.escrowRepo.Create(ctx, escrow); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "escrow creation failed")
		return nil, err
	}

	s.emitEvent(ctx, escrow, "", escrow.Status, "create", buyerID)
	slog.Info("escrow created", "escrow_id", escrow.ID, "reference", escrow.Reference,
		"buyer_id", buyerID, "seller_id", req.SellerID, "amount", amount, "currency", req.Currency)
	return viewOf(escrow, models.RoleBuyer), nil
}

func (s *escrowService) Get(ctx context.Context, escrowID, userID int32) (*EscrowView, error) {
	tracer := otel.Tracer("escrow-service")
	ctx, span := tracer.Start(ctx, "GetEscrow")
	defer span.End()

	escrow, err := s.escrowRepo.GetByID(ctx, escrowID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	role, ok := escrow.RoleOf(userID)
	if !ok {
		span.SetStatus(codes.Error, "not a party")
		return nil, pkgerrors.ErrNotParty
	}
	return viewOf(escrow, role), nil
}

func (s *escrowService) List(ctx context.Context, userID int32) ([]EscrowView, error) {
	tracer := otel.Tracer("escrow-service")
	ctx, span := tracer.Start(ctx, "ListEscrows")
	defer span.End()

	escrows, err := s.escrowRepo.ListByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	views := make([]EscrowView, 0, len(escrows))
	for i := range escrows {
		role, _ := escrows[i].RoleOf(userID)
		views = append(views, *viewOf(&escrows[i], role))
	}
	return views, nil
}

// Act applies one party action to an escrow. Fund is excluded here: funding
// only happens through payment verification.
func (s *escrowService) Act(ctx context.Context, escrowID, userID int32, action lifecycle.Action, reason string) (*EscrowView, error) {
	tracer := otel.Tracer("escrow-service")
	ctx, span := tracer.Start(ctx, "EscrowAction")
	defer span.End()

	if action == lifecycle.ActionFund || action == lifecycle.ActionPayout {
		span.SetStatus(codes.Error, "action not available directly")
		return nil, pkgerrors.ErrInvalidTransition
	}

	escrow, err := s.escrowRepo.GetByID(ctx, escrowID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	role, ok := escrow.RoleOf(userID)
	if !ok {
		span.SetStatus(codes.Error, "not a party")
		return nil, pkgerrors.ErrNotParty
	}

	next, err := lifecycle.Transition(escrow.Status, action, role)
	if err != nil {
		span.SetStatus(codes.Error, "transition rejected")
		slog.Warn("transition rejected", "escrow_id", escrowID, "status", escrow.Status,
			"action", action, "role", role, "error", err)
		return nil, err
	}

	if action == lifecycle.ActionDispute && reason == "" {
		span.SetStatus(codes.Error, "dispute reason required")
		return nil, fmt.Errorf("%w: dispute reason is required", pkgerrors.ErrInvalidInput)
	}

	// Serialize concurrent actions on the same escrow.
	lockKey := fmt.Sprintf("escrow:%d:lock", escrowID)
	locked, err := s.redisClient.SetNX(ctx, lockKey, "locked", 3*time.Second)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to acquire escrow lock", "escrow_id", escrowID, "error", err)
		return nil, pkgerrors.ErrEscrowLocked
	}
	if !locked {
		span.SetStatus(codes.Error, "escrow locked")
		return nil, pkgerrors.ErrEscrowLocked
	}
	defer s.redisClient.Del(ctx, lockKey)

	if err := s.escrowRepo.UpdateStatus(ctx, escrowID, escrow.Status, next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status update failed")
		return nil, err
	}

	if action == lifecycle.ActionDispute {
		dispute := &models.Dispute{IsDisputed: true, Reason: reason, RaisedBy: userID}
		if err := s.escrowRepo.SetDispute(ctx, escrowID, dispute); err != nil {
			slog.Error("failed to record dispute", "escrow_id", escrowID, "error", err)
			span.RecordError(err)
		}
	}

	s.emitEvent(ctx, escrow, escrow.Status, next, string(action), userID)

	updated, err := s.escrowRepo.GetByID(ctx, escrowID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	slog.Info("escrow action applied", "escrow_id", escrowID, "action", action,
		"role", role, "from", escrow.Status, "to", next)
	return viewOf(updated, role), nil
}

func (s *escrowService) emitEvent(ctx context.Context, escrow *models.Escrow, from, to models.EscrowStatus, action string, actorID int32) {
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
