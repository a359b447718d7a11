package repository

import (
	"context"

	"github.com/safehold/escrowpay/internal/models"
)

type EscrowRepository interface {
	Create(ctx context.Context, escrow *models.Escrow) error
	GetByID(ctx context.Context, id int32) (*models.Escrow, error)
	GetByReference(ctx context.Context, reference string) (*models.Escrow, error)
	ListByUser(ctx context.Context, userID int32) ([]models.Escrow, error)
	// UpdateStatus moves the escrow from expected current status to the new
	// one and appends a timeline row in the same transaction. Returns
	// ErrStaleStatus when another writer got there first.
	UpdateStatus(ctx context.Context, id int32, from, to models.EscrowStatus) error
	SetPayment(ctx context.Context, id int32, payment *models.Payment) error
	SetDispute(ctx context.Context, id int32, dispute *models.Dispute) error
}
