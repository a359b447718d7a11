package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/safehold/escrowpay/internal/models"
	"github.com/safehold/escrowpay/internal/repository"
	pkgerrors "github.com/safehold/escrowpay/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

type ChatService interface {
	SendMessage(ctx context.Context, escrowID, senderID int32, body string) (*models.Message, error)
	// ListMessages returns messages newer than sinceID; the SPA polls with
	// the last id it rendered.
	ListMessages(ctx context.Context, escrowID, userID int32, sinceID int64) ([]models.Message, error)
}

type chatService struct {
	escrowRepo       repository.EscrowRepository
	messageRepo      repository.MessageRepository
	notificationRepo repository.NotificationRepository
}

func NewChatService(
	escrowRepo repository.EscrowRepository,
	messageRepo repository.MessageRepository,
	notificationRepo repository.NotificationRepository,
) *chatService {
	return &chatService{
		escrowRepo:       escrowRepo,
		messageRepo:      messageRepo,
		notificationRepo: notificationRepo,
	}
}

func (s *chatService) SendMessage(ctx context.Context, escrowID, senderID int32, body string) (*models.Message, error) {
	tracer := otel.Tracer("chat-service")
	ctx, span := tracer.Start(ctx, "SendMessage")
	defer span.End()

	if body == "" {
		span.SetStatus(codes.Error, "empty message")
		return nil, pkgerrors.ErrInvalidInput
	}

	escrow, err := s.escrowRepo.GetByID(ctx, escrowID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	role, ok := escrow.RoleOf(senderID)
	if !ok {
		span.SetStatus(codes.Error, "not a party")
		return nil, pkgerrors.ErrNotParty
	}
	// Cancelled escrows are closed for chat. Disputed ones stay open so the
	// parties can argue their case.
	if escrow.Status == models.StatusCancelled {
		span.SetStatus(codes.Error, "escrow cancelled")
		return nil, fmt.Errorf("%w: escrow is cancelled", pkgerrors.ErrInvalidTransition)
	}

	msg := &models.Message{EscrowID: escrowID, SenderID: senderID, Body: body}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		span.RecordError(err)
		return nil, err
	}

	counterparty := escrow.SellerID
	if role == models.RoleSeller {
		counterparty = escrow.BuyerID
	}
	notification := &models.Notification{
		UserID:   counterparty,
		EscrowID: escrowID,
		Kind:     models.NotifyChat,
		Title:    "New message",
		Body:     "You have a new message on " + escrow.Title,
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		slog.Error("failed to create chat notification", "escrow_id", escrowID, "error", err)
	}

	slog.Info("message sent", "escrow_id", escrowID, "sender_id", senderID, "message_id", msg.ID)
	return msg, nil
}

func (s *chatService) ListMessages(ctx context.Context, escrowID, userID int32, sinceID int64) ([]models.Message, error) {
	tracer := otel.Tracer("chat-service")
	ctx, span := tracer.Start(ctx, "ListMessages")
	defer span.End()

	escrow, err := s.escrowRepo.GetByID(ctx, escrowID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if _, ok := escrow.RoleOf(userID); !ok {
		span.SetStatus(codes.Error, "not a party")
		return nil, pkgerrors.ErrNotParty
	}
	return s.messageRepo.ListByEscrow(ctx, escrowID, sinceID)
}
