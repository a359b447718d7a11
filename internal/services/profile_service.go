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

type ProfileService interface {
	Get(ctx context.Context, userID int32) (*models.User, error)
	Update(ctx context.Context, userID int32, email, fullName string) (*models.User, error)
	// SubmitKYC requests a tier upgrade. Downgrades are rejected.
	SubmitKYC(ctx context.Context, userID int32, tier models.KYCTier) (*models.User, error)
}

type profileService struct {
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository
}

func NewProfileService(userRepo repository.UserRepository, notificationRepo repository.NotificationRepository) *profileService {
	return &profileService{userRepo: userRepo, notificationRepo: notificationRepo}
}

func (s *profileService) Get(ctx context.Context, userID int32) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *profileService) Update(ctx context.Context, userID int32, email, fullName string) (*models.User, error) {
	if err := s.userRepo.UpdateProfile(ctx, userID, email, fullName); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

var tierRank = map[models.KYCTier]int{
	models.TierBasic:    0,
	models.TierAdvanced: 1,
	models.TierPremium:  2,
}

func (s *profileService) SubmitKYC(ctx context.Context, userID int32, tier models.KYCTier) (*models.User, error) {
	tracer := otel.Tracer("profile-service")
	ctx, span := tracer.Start(ctx, "SubmitKYC")
	defer span.End()

	if !tier.Valid() {
		span.SetStatus(codes.Error, "invalid tier")
		return nil, pkgerrors.ErrInvalidKYCTier
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if tierRank[tier] <= tierRank[user.KYCTier] {
		span.SetStatus(codes.Error, "not an upgrade")
		return nil, fmt.Errorf("%w: tier %s does not upgrade %s", pkgerrors.ErrInvalidKYCTier, tier, user.KYCTier)
	}

	if err := s.userRepo.SetKYCTier(ctx, userID, tier); err != nil {
		span.RecordError(err)
		return nil, err
	}

	notification := &models.Notification{
		UserID: userID,
		Kind:   models.NotifySystem,
		Title:  "KYC tier upgraded",
		Body:   fmt.Sprintf("Your verification tier is now %s", tier),
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		slog.Error("failed to create kyc notification", "user_id", userID, "error", err)
	}

	slog.Info("kyc tier upgraded", "user_id", userID, "tier", tier)
	return s.userRepo.GetByID(ctx, userID)
}
