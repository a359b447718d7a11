package repository

import (
	"context"

	"github.com/safehold/escrowpay/internal/models"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	// ListByEscrow returns messages newer than sinceID, oldest first. The SPA
	// polls with the last id it has seen.
	ListByEscrow(ctx context.Context, escrowID int32, sinceID int64) ([]models.Message, error)
}
