// file: internal/repositories/interfaces.go
package repositories

import (
	"context"
	"errors"
	"time"

	"allowancehub/internal/models"
)

// ===============================
// CORE REPOSITORY INTERFACES
// ===============================

// FamilyRepository defines the contract for family data operations.
type FamilyRepository interface {
	Create(ctx context.Context, family *models.Family) error
	GetByID(ctx context.Context, id int64) (*models.Family, error)
	Update(ctx context.Context, family *models.Family) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.Family], error)
}

// ChildRepository defines the contract for child data operations,
// including the named measures the achievement evaluator reads.
type ChildRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, child *models.Child) error
	GetByID(ctx context.Context, id int64) (*models.Child, error)
	Update(ctx context.Context, child *models.Child) error
	Delete(ctx context.Context, id int64) error
	ListByFamily(ctx context.Context, familyID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Child], error)

	// Measures
	GetStats(ctx context.Context, childID int64) (map[string]float64, error)
	UpsertStats(ctx context.Context, childID int64, measures map[string]float64) error

	// Points ledger
	AddPoints(ctx context.Context, childID int64, points int) error
	SpendPoints(ctx context.Context, childID int64, points int) error

	// Avatar
	UpdateAvatar(ctx context.Context, childID int64, url, publicID string) error
}

// BadgeRepository defines the contract for badge progress and award
// records. Award is the single write path to the ledger and must be the
// only place a badge can be granted.
type BadgeRepository interface {
	// Progress tracking
	UpsertProgress(ctx context.Context, childID int64, badgeCode string, progress float64) error
	GetProgress(ctx context.Context, childID int64) (map[string]float64, error)

	// Award ledger
	Award(ctx context.Context, award *models.ChildBadgeAward, points int) error
	GetAwardedCodes(ctx context.Context, childID int64) (map[string]bool, error)
	ListAwards(ctx context.Context, childID int64) ([]*models.ChildBadgeAward, error)
	GetAward(ctx context.Context, childID int64, badgeCode string) (*models.ChildBadgeAward, error)

	// Presentation flags
	MarkSeen(ctx context.Context, childID int64, badgeCode string) error
	SetDisplayed(ctx context.Context, childID int64, badgeCode string, displayed bool) error

	// Analytics
	CountAwardsSince(ctx context.Context, childID int64, since time.Time) (int, error)
}

// NotificationRepository defines the contract for stored notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByFamily(ctx context.Context, familyID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Notification], error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, familyID int64) error
	CountUnread(ctx context.Context, familyID int64) (int, error)
}

// ErrAlreadyAwarded is returned by BadgeRepository.Award when the
// (child, badge) pair already exists in the ledger. Callers treat it as
// a successful no-op.
var ErrAlreadyAwarded = errors.New("badge already awarded")
