package usecase

import (
	"context"

	"orderflow/internal/domain/notification"
	"orderflow/internal/infrastructure/postgres"
)

type ListNotifications struct {
	notificationRepo *postgres.NotificationRepository
}

func NewListNotifications(notificationRepo *postgres.NotificationRepository) *ListNotifications {
	return &ListNotifications{notificationRepo: notificationRepo}
}

func (uc *ListNotifications) Execute(ctx context.Context, orderID string) ([]*notification.Notification, error) {
	notifications, err := uc.notificationRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []*notification.Notification{}
	}
	return notifications, nil
}
