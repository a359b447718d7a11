package repository

import (
	"context"

	"github.com/safehold/escrowpay/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int32) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int32, email, fullName string) error
	SetKYCTier(ctx context.Context, userID int32, tier models.KYCTier) error
}
