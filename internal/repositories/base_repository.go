package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"allowancehub/internal/database"
	"allowancehub/internal/models"

	"go.uber.org/zap"
)

// BaseRepository provides common database operations shared by the
// concrete repositories. Query instrumentation lives in the database
// manager; this layer adds pagination and transaction helpers.
type BaseRepository struct {
	db     *database.Manager
	logger *zap.Logger
}

// NewBaseRepository creates a new base repository.
func NewBaseRepository(db *database.Manager, logger *zap.Logger) *BaseRepository {
	return &BaseRepository{
		db:     db,
		logger: logger,
	}
}

// ===============================
// CORE DATABASE OPERATIONS
// ===============================

// ExecContext executes a statement through the instrumented manager.
func (r *BaseRepository) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return r.db.ExecContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (r *BaseRepository) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query that returns a single row.
func (r *BaseRepository) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return r.db.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a new transaction.
func (r *BaseRepository) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, opts)
}

// ===============================
// PAGINATION HELPERS
// ===============================

// BuildPaginatedQuery appends validated ORDER BY / LIMIT / OFFSET
// clauses to a base query. whereClause placeholders must already be
// bound in args before this call appends its own.
func (r *BaseRepository) BuildPaginatedQuery(baseQuery, whereClause, defaultSort string, params models.PaginationParams, args []interface{}) (string, []interface{}) {
	params.Normalize()

	query := baseQuery
	if whereClause != "" {
		query += " WHERE " + whereClause
	}

	if params.Sort == "" {
		params.Sort = defaultSort
	}

	validSorts := map[string]bool{
		"created_at": true, "updated_at": true, "earned_at": true,
		"name": true, "id": true,
	}
	validOrders := map[string]bool{"asc": true, "desc": true}

	if !validSorts[params.Sort] {
		params.Sort = defaultSort
	}
	if !validOrders[params.Order] {
		params.Order = "desc"
	}

	argIndex := len(args) + 1
	query += fmt.Sprintf(" ORDER BY %s %s", params.Sort, strings.ToUpper(params.Order))
	query += fmt.Sprintf(" LIMIT $%d", argIndex)
	args = append(args, params.Limit)
	argIndex++

	if params.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, params.Offset)
	}

	return query, args
}

// BuildCountQuery derives a COUNT(*) query from a base query.
func (r *BaseRepository) BuildCountQuery(baseQuery, whereClause string) string {
	fromIndex := strings.Index(strings.ToUpper(baseQuery), "FROM")
	if fromIndex == -1 {
		return ""
	}

	fromClause := baseQuery[fromIndex:]

	orderByIndex := strings.Index(strings.ToUpper(fromClause), "ORDER BY")
	if orderByIndex != -1 {
		fromClause = fromClause[:orderByIndex]
	}

	countQuery := "SELECT COUNT(*) " + fromClause

	if whereClause != "" {
		countQuery += " WHERE " + whereClause
	}

	return countQuery
}

// GetTotalCount executes a count query.
func (r *BaseRepository) GetTotalCount(ctx context.Context, countQuery string, args ...interface{}) (int64, error) {
	var total int64
	err := r.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	return total, err
}

// BuildPaginationMeta creates pagination metadata for a response.
func (r *BaseRepository) BuildPaginationMeta(params models.PaginationParams, total int64) models.PaginationMeta {
	params.Normalize()

	currentPage := (params.Offset / params.Limit) + 1
	totalPages := int((total + int64(params.Limit) - 1) / int64(params.Limit))

	return models.PaginationMeta{
		CurrentPage:  currentPage,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: params.Limit,
		HasNext:      int64(params.Offset+params.Limit) < total,
		HasPrev:      params.Offset > 0,
	}
}

// ===============================
// TRANSACTION HELPERS
// ===============================

// WithTransaction executes fn within a transaction, rolling back on
// error or panic.
func (r *BaseRepository) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("cause", err),
			)
		}
		return err
	}

	return tx.Commit()
}

// ===============================
// UTILITY METHODS
// ===============================

// IsNotFound checks if an error is a "not found" error.
func (r *BaseRepository) IsNotFound(err error) bool {
	return err == sql.ErrNoRows
}

// HandleNotFound converts sql.ErrNoRows to nil for optional queries.
func (r *BaseRepository) HandleNotFound(err error) error {
	if err == sql.ErrNoRows {
		return nil
	}
	return err
}

// GetDB returns the underlying database manager.
func (r *BaseRepository) GetDB() *database.Manager {
	return r.db
}

// GetLogger returns the logger instance.
func (r *BaseRepository) GetLogger() *zap.Logger {
	return r.logger
}
