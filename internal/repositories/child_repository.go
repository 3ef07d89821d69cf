// internal/repositories/child_repository.go
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"allowancehub/internal/database"
	"allowancehub/internal/models"

	"go.uber.org/zap"
)

// childRepository implements ChildRepository over Postgres.
type childRepository struct {
	*BaseRepository
}

// NewChildRepository creates a new instance of ChildRepository.
func NewChildRepository(db *database.Manager, logger *zap.Logger) ChildRepository {
	return &childRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// ===============================
// BASIC CRUD OPERATIONS
// ===============================

// Create inserts a new child with a zeroed points ledger.
func (r *childRepository) Create(ctx context.Context, child *models.Child) error {
	query := `
		INSERT INTO children (family_id, name)
		VALUES ($1, $2)
		RETURNING id, total_points, available_points, badges_earned, created_at, updated_at`

	err := r.QueryRowContext(ctx, query, child.FamilyID, child.Name).Scan(
		&child.ID, &child.TotalPoints, &child.AvailablePoints,
		&child.BadgesEarned, &child.CreatedAt, &child.UpdatedAt,
	)
	if err != nil {
		r.GetLogger().Error("Failed to create child",
			zap.Error(err),
			zap.Int64("family_id", child.FamilyID),
		)
		return fmt.Errorf("failed to create child: %w", err)
	}

	r.GetLogger().Info("Child created",
		zap.Int64("child_id", child.ID),
		zap.Int64("family_id", child.FamilyID),
	)

	return nil
}

// GetByID retrieves a child by ID.
func (r *childRepository) GetByID(ctx context.Context, id int64) (*models.Child, error) {
	query := `
		SELECT id, family_id, name, avatar_url, avatar_public_id,
		       total_points, available_points, badges_earned,
		       created_at, updated_at
		FROM children
		WHERE id = $1`

	var child models.Child
	err := r.QueryRowContext(ctx, query, id).Scan(
		&child.ID, &child.FamilyID, &child.Name,
		&child.AvatarURL, &child.AvatarPublicID,
		&child.TotalPoints, &child.AvailablePoints, &child.BadgesEarned,
		&child.CreatedAt, &child.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &child, nil
}

// Update updates the mutable fields of a child.
func (r *childRepository) Update(ctx context.Context, child *models.Child) error {
	query := `
		UPDATE children
		SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.QueryRowContext(ctx, query, child.ID, child.Name).Scan(&child.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}

	return nil
}

// Delete removes a child and, through cascading constraints, its stats,
// progress and award records.
func (r *childRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.ExecContext(ctx, `DELETE FROM children WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// ListByFamily returns the children of a family, paginated.
func (r *childRepository) ListByFamily(ctx context.Context, familyID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Child], error) {
	baseQuery := `
		SELECT id, family_id, name, avatar_url, avatar_public_id,
		       total_points, available_points, badges_earned,
		       created_at, updated_at
		FROM children`
	whereClause := "family_id = $1"
	args := []interface{}{familyID}

	query, args := r.BuildPaginatedQuery(baseQuery, whereClause, "created_at", params, args)

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	var children []*models.Child
	for rows.Next() {
		var child models.Child
		if err := rows.Scan(
			&child.ID, &child.FamilyID, &child.Name,
			&child.AvatarURL, &child.AvatarPublicID,
			&child.TotalPoints, &child.AvailablePoints, &child.BadgesEarned,
			&child.CreatedAt, &child.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, &child)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	total, err := r.GetTotalCount(ctx, r.BuildCountQuery(baseQuery, whereClause), familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count children: %w", err)
	}

	return &models.PaginatedResponse[*models.Child]{
		Data:       children,
		Pagination: r.BuildPaginationMeta(params, total),
	}, nil
}

// ===============================
// MEASURES
// ===============================

// GetStats returns the child's named measures keyed by field. A child
// with no recorded measures gets an empty map, never an error.
func (r *childRepository) GetStats(ctx context.Context, childID int64) (map[string]float64, error) {
	query := `
		SELECT field, value
		FROM child_stats
		WHERE child_id = $1`

	rows, err := r.QueryContext(ctx, query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]float64)
	for rows.Next() {
		var field string
		var value float64
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("failed to scan child stat: %w", err)
		}
		stats[field] = value
	}

	return stats, rows.Err()
}

// UpsertStats overwrites the given measures with their latest absolute
// values in a single transaction.
func (r *childRepository) UpsertStats(ctx context.Context, childID int64, measures map[string]float64) error {
	if len(measures) == 0 {
		return nil
	}

	return r.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO child_stats (child_id, field, value, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (child_id, field)
			DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

		for field, value := range measures {
			if _, err := tx.ExecContext(ctx, query, childID, field, value); err != nil {
				return fmt.Errorf("failed to upsert stat %s: %w", field, err)
			}
		}
		return nil
	})
}

// ===============================
// POINTS LEDGER
// ===============================

// AddPoints credits earned points to both ledger columns.
func (r *childRepository) AddPoints(ctx context.Context, childID int64, points int) error {
	query := `
		UPDATE children
		SET total_points = total_points + $2,
		    available_points = available_points + $2,
		    updated_at = NOW()
		WHERE id = $1`

	result, err := r.ExecContext(ctx, query, childID, points)
	if err != nil {
		return fmt.Errorf("failed to add points: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// SpendPoints debits available points, guarded against overdraw.
func (r *childRepository) SpendPoints(ctx context.Context, childID int64, points int) error {
	query := `
		UPDATE children
		SET available_points = available_points - $2,
		    updated_at = NOW()
		WHERE id = $1 AND available_points >= $2`

	result, err := r.ExecContext(ctx, query, childID, points)
	if err != nil {
		return fmt.Errorf("failed to spend points: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("insufficient points for child %d", childID)
	}

	return nil
}

// ===============================
// AVATAR
// ===============================

// UpdateAvatar stores the Cloudinary URL and public ID for the child.
func (r *childRepository) UpdateAvatar(ctx context.Context, childID int64, url, publicID string) error {
	query := `
		UPDATE children
		SET avatar_url = $2, avatar_public_id = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := r.ExecContext(ctx, query, childID, url, publicID)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
