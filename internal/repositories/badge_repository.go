// internal/repositories/badge_repository.go
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"allowancehub/internal/database"
	"allowancehub/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// badgeRepository implements BadgeRepository over Postgres. The award
// ledger relies on the (child_id, badge_code) primary key: concurrent
// writers race at the constraint, exactly one insert wins.
type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates a new instance of BadgeRepository.
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// ===============================
// PROGRESS TRACKING
// ===============================

// UpsertProgress stores the latest absolute measure for an unearned
// badge. The value overwrites whatever was there, so replayed events
// rewrite the same number and progress may legitimately decrease after
// a streak reset.
func (r *badgeRepository) UpsertProgress(ctx context.Context, childID int64, badgeCode string, progress float64) error {
	query := `
		INSERT INTO child_badge_progress (child_id, badge_code, progress, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (child_id, badge_code)
		DO UPDATE SET progress = EXCLUDED.progress, updated_at = NOW()`

	if _, err := r.ExecContext(ctx, query, childID, badgeCode, progress); err != nil {
		r.GetLogger().Error("Failed to upsert badge progress",
			zap.Error(err),
			zap.Int64("child_id", childID),
			zap.String("badge_code", badgeCode),
		)
		return fmt.Errorf("failed to upsert badge progress: %w", err)
	}

	return nil
}

// GetProgress returns all stored progress values for a child keyed by
// badge code.
func (r *badgeRepository) GetProgress(ctx context.Context, childID int64) (map[string]float64, error) {
	query := `
		SELECT badge_code, progress
		FROM child_badge_progress
		WHERE child_id = $1`

	rows, err := r.QueryContext(ctx, query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get badge progress: %w", err)
	}
	defer rows.Close()

	progress := make(map[string]float64)
	for rows.Next() {
		var code string
		var value float64
		if err := rows.Scan(&code, &value); err != nil {
			return nil, fmt.Errorf("failed to scan badge progress: %w", err)
		}
		progress[code] = value
	}

	return progress, rows.Err()
}

// ===============================
// AWARD LEDGER
// ===============================

// Award records an earned badge, increments the child's points ledger
// and clears the progress record, all in one transaction. Returns
// ErrAlreadyAwarded when the ledger row already exists; nothing is
// changed in that case.
func (r *badgeRepository) Award(ctx context.Context, award *models.ChildBadgeAward, points int) error {
	return r.WithTransaction(ctx, func(tx *sql.Tx) error {
		insert := `
			INSERT INTO child_badge_awards (
				child_id, badge_code, earned_at, earned_context, is_new, is_displayed
			) VALUES ($1, $2, NOW(), $3, TRUE, FALSE)
			ON CONFLICT (child_id, badge_code) DO NOTHING
			RETURNING earned_at`

		err := tx.QueryRowContext(
			ctx, insert,
			award.ChildID, award.BadgeCode, award.EarnedContext,
		).Scan(&award.EarnedAt)

		if err == sql.ErrNoRows {
			return ErrAlreadyAwarded
		}
		if err != nil {
			// Surfaced when the race loser hits the unique constraint
			// in a way ON CONFLICT does not absorb.
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				return ErrAlreadyAwarded
			}
			return fmt.Errorf("failed to record badge award: %w", err)
		}

		award.IsNew = true
		award.IsDisplayed = false

		ledger := `
			UPDATE children
			SET total_points = total_points + $2,
			    available_points = available_points + $2,
			    badges_earned = badges_earned + 1,
			    updated_at = NOW()
			WHERE id = $1`

		if _, err := tx.ExecContext(ctx, ledger, award.ChildID, points); err != nil {
			return fmt.Errorf("failed to credit badge points: %w", err)
		}

		clear := `
			DELETE FROM child_badge_progress
			WHERE child_id = $1 AND badge_code = $2`

		if _, err := tx.ExecContext(ctx, clear, award.ChildID, award.BadgeCode); err != nil {
			return fmt.Errorf("failed to clear badge progress: %w", err)
		}

		return nil
	})
}

// GetAwardedCodes returns the set of badge codes the child has earned.
func (r *badgeRepository) GetAwardedCodes(ctx context.Context, childID int64) (map[string]bool, error) {
	query := `
		SELECT badge_code
		FROM child_badge_awards
		WHERE child_id = $1`

	rows, err := r.QueryContext(ctx, query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get awarded codes: %w", err)
	}
	defer rows.Close()

	earned := make(map[string]bool)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan awarded code: %w", err)
		}
		earned[code] = true
	}

	return earned, rows.Err()
}

// ListAwards returns all awards for a child, most recent first.
func (r *badgeRepository) ListAwards(ctx context.Context, childID int64) ([]*models.ChildBadgeAward, error) {
	query := `
		SELECT child_id, badge_code, earned_at, earned_context, is_new, is_displayed
		FROM child_badge_awards
		WHERE child_id = $1
		ORDER BY earned_at DESC`

	rows, err := r.QueryContext(ctx, query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to list awards: %w", err)
	}
	defer rows.Close()

	var awards []*models.ChildBadgeAward
	for rows.Next() {
		var award models.ChildBadgeAward
		if err := rows.Scan(
			&award.ChildID, &award.BadgeCode, &award.EarnedAt,
			&award.EarnedContext, &award.IsNew, &award.IsDisplayed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan award: %w", err)
		}
		awards = append(awards, &award)
	}

	return awards, rows.Err()
}

// GetAward returns one award record, or sql.ErrNoRows if absent.
func (r *badgeRepository) GetAward(ctx context.Context, childID int64, badgeCode string) (*models.ChildBadgeAward, error) {
	query := `
		SELECT child_id, badge_code, earned_at, earned_context, is_new, is_displayed
		FROM child_badge_awards
		WHERE child_id = $1 AND badge_code = $2`

	var award models.ChildBadgeAward
	err := r.QueryRowContext(ctx, query, childID, badgeCode).Scan(
		&award.ChildID, &award.BadgeCode, &award.EarnedAt,
		&award.EarnedContext, &award.IsNew, &award.IsDisplayed,
	)
	if err != nil {
		return nil, err
	}

	return &award, nil
}

// ===============================
// PRESENTATION FLAGS
// ===============================

// MarkSeen clears the is_new flag once the award has been shown.
func (r *badgeRepository) MarkSeen(ctx context.Context, childID int64, badgeCode string) error {
	query := `
		UPDATE child_badge_awards
		SET is_new = FALSE
		WHERE child_id = $1 AND badge_code = $2`

	result, err := r.ExecContext(ctx, query, childID, badgeCode)
	if err != nil {
		return fmt.Errorf("failed to mark award seen: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// SetDisplayed toggles whether the badge shows on the child's profile.
func (r *badgeRepository) SetDisplayed(ctx context.Context, childID int64, badgeCode string, displayed bool) error {
	query := `
		UPDATE child_badge_awards
		SET is_displayed = $3
		WHERE child_id = $1 AND badge_code = $2`

	result, err := r.ExecContext(ctx, query, childID, badgeCode, displayed)
	if err != nil {
		return fmt.Errorf("failed to set award display flag: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// ===============================
// ANALYTICS
// ===============================

// CountAwardsSince counts awards earned by a child after a point in time.
func (r *badgeRepository) CountAwardsSince(ctx context.Context, childID int64, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM child_badge_awards
		WHERE child_id = $1 AND earned_at >= $2`

	var count int
	if err := r.QueryRowContext(ctx, query, childID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count awards: %w", err)
	}

	return count, nil
}
