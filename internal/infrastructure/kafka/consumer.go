package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/safehold/escrowpay/internal/lifecycle"
	"github.com/safehold/escrowpay/internal/models"
	"github.com/safehold/escrowpay/internal/repository"
	"github.com/segmentio/kafka-go"
)

// Consumer materializes escrow transition events into notifications and runs
// the system payout: completed escrows are moved to paid_out here, not by any
// user-facing endpoint.
type Consumer struct {
	reader           *kafka.Reader
	escrowRepo       repository.EscrowRepository
	notificationRepo repository.NotificationRepository
}

func NewConsumer(brokers []string, topic, groupID string, escrowRepo repository.EscrowRepository, notificationRepo repository.NotificationRepository) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		escrowRepo:       escrowRepo,
		notificationRepo: notificationRepo,
	}
}

type escrowEvent struct {
	EventType string `json:"event_type"`
	EscrowID  int32  `json:"escrow_id"`
	Reference string `json:"reference"`
	Title     string `json:"title"`
	From      string `json:"from"`
	To        string `json:"to"`
	Action    string `json:"action"`
	ActorID   int32  `json:"actor_id"`
	BuyerID   int32  `json:"buyer_id"`
	SellerID  int32  `json:"seller_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"created_at"`
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			continue
		}

		slog.Info("Kafka message received", "topic", msg.Topic, "key", string(msg.Key))

		switch msg.Topic {
		case "escrows":
			var event escrowEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				slog.Error("failed to unmarshal escrow event", "error", err)
				continue
			}
			if event.EventType != "escrow_transition" {
				slog.Error("unknown escrow event type", "event_type", event.EventType)
				continue
			}
			c.handleTransition(ctx, event)

		case "users":
			var event struct {
				EventType string `json:"event_type"`
				UserID    int32  `json:"user_id"`
				Username  string `json:"username"`
			}
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				slog.Error("failed to unmarshal user event", "error", err)
				continue
			}
			if event.EventType != "user_registered" {
				continue
			}
			welcome := &models.Notification{
				UserID: event.UserID,
				Kind:   models.NotifySystem,
				Title:  "Welcome to the platform",
				Body:   "Complete KYC verification to raise your escrow limits.",
			}
			if err := c.notificationRepo.Create(ctx, welcome); err != nil {
				slog.Error("failed to create welcome notification", "user_id", event.UserID, "error", err)
			}
		}
	}
}

func (c *Consumer) handleTransition(ctx context.Context, event escrowEvent) {
	to := models.EscrowStatus(event.To)
	amount := lifecycle.FormatAmount(event.Amount, event.Currency)

	// Everyone but the actor learns about the transition.
	for _, userID := range []int32{event.BuyerID, event.SellerID} {
		if userID == event.ActorID {
			continue
		}
		info := lifecycle.StatusInfoFor(to)
		n := &models.Notification{
			UserID:   userID,
			EscrowID: event.EscrowID,
			Kind:     models.NotifyEscrowUpdate,
			Title:    fmt.Sprintf("Escrow %s: %s", event.Title, info.Text),
			Body:     fmt.Sprintf("%s (%s)", info.Text, amount),
		}
		if to == models.StatusFunded {
			n.Kind = models.NotifyPayment
		}
		if err := c.notificationRepo.Create(ctx, n); err != nil {
			slog.Error("failed to create transition notification",
				"escrow_id", event.EscrowID, "user_id", userID, "error", err)
		}
	}

	if to != models.StatusCompleted {
		return
	}

	// System payout: completed -> paid_out.
	next, err := lifecycle.Transition(to, lifecycle.ActionPayout, models.RoleSystem)
	if err != nil {
		slog.Error("payout transition rejected", "escrow_id", event.EscrowID, "error", err)
		return
	}
	if err := c.escrowRepo.UpdateStatus(ctx, event.EscrowID, to, next); err != nil {
		slog.Error("failed to pay out escrow", "escrow_id", event.EscrowID, "error", err)
		// TODO: route payout failures to a retry topic
		return
	}
	payout := &models.Notification{
		UserID:   event.SellerID,
		EscrowID: event.EscrowID,
		Kind:     models.NotifyPayment,
		Title:    "Payout released",
		Body:     fmt.Sprintf("Funds for %s have been released to you", event.Title),
	}
	if err := c.notificationRepo.Create(ctx, payout); err != nil {
		slog.Error("failed to create payout notification", "escrow_id", event.EscrowID, "error", err)
	}
	slog.Info("payout processed", "escrow_id", event.EscrowID, "seller_id", event.SellerID)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
