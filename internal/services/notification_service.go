// internal/services/notification_service.go
package services

import (
	"context"
	"database/sql"
	"fmt"

	"allowancehub/internal/achievements"
	"allowancehub/internal/models"
	"allowancehub/internal/notifications"
	"allowancehub/internal/repositories"

	"go.uber.org/zap"
)

// notificationService implements NotificationService. Notifications are
// stored for the family feed and, when a hub is attached, pushed live
// to connected devices.
type notificationService struct {
	repo   repositories.NotificationRepository
	hub    *notifications.Hub
	logger *zap.Logger
}

// NewNotificationService creates a new instance of NotificationService.
// hub may be nil in contexts without live push, such as tests.
func NewNotificationService(repo repositories.NotificationRepository, hub *notifications.Hub, logger *zap.Logger) NotificationService {
	return &notificationService{
		repo:   repo,
		hub:    hub,
		logger: logger,
	}
}

// NotifyBadgeAwarded stores an award notification and pushes it to the
// family's connected devices.
func (s *notificationService) NotifyBadgeAwarded(ctx context.Context, child *models.Child, def *achievements.Definition) error {
	notification := &models.Notification{
		FamilyID: child.FamilyID,
		ChildID:  &child.ID,
		Kind:     models.NotificationKindAchievement,
		Title:    fmt.Sprintf("%s earned a badge!", child.Name),
		Body:     fmt.Sprintf("%s: %s", def.Name, def.Description),
		Metadata: map[string]any{
			"badge_code": def.Code,
			"badge_name": def.Name,
			"points":     def.Points,
			"rarity":     def.Rarity.String(),
		},
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return NewInternalError("failed to store notification")
	}

	if s.hub != nil {
		s.hub.Broadcast(child.FamilyID, models.NotificationKindAchievement, notification)
	}

	return nil
}

// Create stores an arbitrary notification for the family feed.
func (s *notificationService) Create(ctx context.Context, notification *models.Notification) error {
	if notification.FamilyID == 0 {
		return InvalidInputError("family_id", "must be set")
	}
	if notification.Kind == "" {
		return InvalidInputError("kind", "must be set")
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return NewInternalError("failed to store notification")
	}

	if s.hub != nil {
		s.hub.Broadcast(notification.FamilyID, notification.Kind, notification)
	}

	return nil
}

// List returns a family's notifications, newest first.
func (s *notificationService) List(ctx context.Context, familyID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Notification], error) {
	params.Normalize()

	result, err := s.repo.ListByFamily(ctx, familyID, params)
	if err != nil {
		return nil, NewInternalError("failed to list notifications")
	}

	return result, nil
}

// MarkRead marks one notification as read.
func (s *notificationService) MarkRead(ctx context.Context, id int64) error {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return EntityNotFoundError("notification", id)
		}
		return NewInternalError("failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every unread notification of a family as read.
func (s *notificationService) MarkAllRead(ctx context.Context, familyID int64) error {
	if err := s.repo.MarkAllRead(ctx, familyID); err != nil {
		return NewInternalError("failed to mark notifications read")
	}
	return nil
}

// CountUnread returns the family's unread notification count.
func (s *notificationService) CountUnread(ctx context.Context, familyID int64) (int, error) {
	count, err := s.repo.CountUnread(ctx, familyID)
	if err != nil {
		return 0, NewInternalError("failed to count unread notifications")
	}
	return count, nil
}
