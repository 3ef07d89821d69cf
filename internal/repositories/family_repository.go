// internal/repositories/family_repository.go
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"allowancehub/internal/database"
	"allowancehub/internal/models"

	"go.uber.org/zap"
)

// familyRepository implements FamilyRepository over Postgres.
type familyRepository struct {
	*BaseRepository
}

// NewFamilyRepository creates a new instance of FamilyRepository.
func NewFamilyRepository(db *database.Manager, logger *zap.Logger) FamilyRepository {
	return &familyRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create inserts a new family. ParentPINHash must already be hashed by
// the service layer; raw PINs never reach this repository.
func (r *familyRepository) Create(ctx context.Context, family *models.Family) error {
	query := `
		INSERT INTO families (name, parent_pin_hash)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.QueryRowContext(ctx, query, family.Name, family.ParentPINHash).
		Scan(&family.ID, &family.CreatedAt)
	if err != nil {
		r.GetLogger().Error("Failed to create family", zap.Error(err))
		return fmt.Errorf("failed to create family: %w", err)
	}

	r.GetLogger().Info("Family created", zap.Int64("family_id", family.ID))

	return nil
}

// GetByID retrieves a family by ID.
func (r *familyRepository) GetByID(ctx context.Context, id int64) (*models.Family, error) {
	query := `
		SELECT id, name, parent_pin_hash, created_at
		FROM families
		WHERE id = $1`

	var family models.Family
	err := r.QueryRowContext(ctx, query, id).Scan(
		&family.ID, &family.Name, &family.ParentPINHash, &family.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &family, nil
}

// Update updates a family's name and PIN hash.
func (r *familyRepository) Update(ctx context.Context, family *models.Family) error {
	query := `
		UPDATE families
		SET name = $2, parent_pin_hash = $3
		WHERE id = $1`

	result, err := r.ExecContext(ctx, query, family.ID, family.Name, family.ParentPINHash)
	if err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Delete removes a family and all dependent records.
func (r *familyRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.ExecContext(ctx, `DELETE FROM families WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// List returns families, paginated. Intended for admin tooling.
func (r *familyRepository) List(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.Family], error) {
	baseQuery := `
		SELECT id, name, parent_pin_hash, created_at
		FROM families`

	query, args := r.BuildPaginatedQuery(baseQuery, "", "created_at", params, nil)

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	defer rows.Close()

	var families []*models.Family
	for rows.Next() {
		var family models.Family
		if err := rows.Scan(&family.ID, &family.Name, &family.ParentPINHash, &family.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, &family)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	total, err := r.GetTotalCount(ctx, r.BuildCountQuery(baseQuery, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to count families: %w", err)
	}

	return &models.PaginatedResponse[*models.Family]{
		Data:       families,
		Pagination: r.BuildPaginationMeta(params, total),
	}, nil
}
