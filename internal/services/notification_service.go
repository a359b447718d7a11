package service

import (
	"context"

	"github.com/safehold/escrowpay/internal/models"
	"github.com/safehold/escrowpay/internal/repository"
)

type NotificationService interface {
	List(ctx context.Context, userID int32) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID int32, id int64) error
	MarkAllRead(ctx context.Context, userID int32) error
	Delete(ctx context.Context, userID int32, id int64) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) *notificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) List(ctx context.Context, userID int32) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, userID int32, id int64) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID int32) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *notificationService) Delete(ctx context.Context, userID int32, id int64) error {
	return s.repo.Delete(ctx, userID, id)
}
