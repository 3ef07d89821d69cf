// internal/repositories/notification_repository.go
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"allowancehub/internal/database"
	"allowancehub/internal/models"

	"go.uber.org/zap"
)

// notificationRepository implements NotificationRepository over Postgres.
// Kind-specific metadata is stored as a jsonb column.
type notificationRepository struct {
	*BaseRepository
}

// NewNotificationRepository creates a new instance of NotificationRepository.
func NewNotificationRepository(db *database.Manager, logger *zap.Logger) NotificationRepository {
	return &notificationRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create inserts a notification for the family feed.
func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	metadata, err := json.Marshal(notification.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal notification metadata: %w", err)
	}

	query := `
		INSERT INTO notifications (family_id, child_id, kind, title, body, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err = r.QueryRowContext(
		ctx, query,
		notification.FamilyID, notification.ChildID, notification.Kind,
		notification.Title, notification.Body, metadata,
	).Scan(&notification.ID, &notification.CreatedAt)
	if err != nil {
		r.GetLogger().Error("Failed to create notification",
			zap.Error(err),
			zap.Int64("family_id", notification.FamilyID),
			zap.String("kind", notification.Kind),
		)
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListByFamily returns a family's notifications, newest first.
func (r *notificationRepository) ListByFamily(ctx context.Context, familyID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Notification], error) {
	baseQuery := `
		SELECT id, family_id, child_id, kind, title, body, metadata, read, created_at
		FROM notifications`
	whereClause := "family_id = $1"
	args := []interface{}{familyID}

	query, args := r.BuildPaginatedQuery(baseQuery, whereClause, "created_at", params, args)

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var notification models.Notification
		var metadata []byte
		if err := rows.Scan(
			&notification.ID, &notification.FamilyID, &notification.ChildID,
			&notification.Kind, &notification.Title, &notification.Body,
			&metadata, &notification.Read, &notification.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &notification.Metadata); err != nil {
				r.GetLogger().Warn("Malformed notification metadata",
					zap.Int64("notification_id", notification.ID),
					zap.Error(err),
				)
			}
		}

		notifications = append(notifications, &notification)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	total, err := r.GetTotalCount(ctx, r.BuildCountQuery(baseQuery, whereClause), familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	return &models.PaginatedResponse[*models.Notification]{
		Data:       notifications,
		Pagination: r.BuildPaginationMeta(params, total),
	}, nil
}

// MarkRead marks one notification as read.
func (r *notificationRepository) MarkRead(ctx context.Context, id int64) error {
	result, err := r.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// MarkAllRead marks all of a family's notifications as read.
func (r *notificationRepository) MarkAllRead(ctx context.Context, familyID int64) error {
	_, err := r.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE family_id = $1 AND read = FALSE`, familyID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return nil
}

// CountUnread counts a family's unread notifications.
func (r *notificationRepository) CountUnread(ctx context.Context, familyID int64) (int, error) {
	var count int
	err := r.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE family_id = $1 AND read = FALSE`, familyID).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}
