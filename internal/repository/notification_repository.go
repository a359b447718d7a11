package repository

import (
	"context"

	"github.com/safehold/escrowpay/internal/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID int32) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID int32, id int64) error
	MarkAllRead(ctx context.Context, userID int32) error
	Delete(ctx context.Context, userID int32, id int64) error
}
