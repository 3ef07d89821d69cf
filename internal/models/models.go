// file: internal/models/models.go
package models

import (
	"time"
)

// ===============================
// CORE ENTITIES
// ===============================

// Family represents a household account. The parent PIN guards sensitive
// operations from the family's shared devices.
type Family struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name" validate:"required,max=100"`

	// Authentication
	ParentPINHash string `json:"-" db:"parent_pin_hash"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Child represents a child account within a family, including the running
// points ledger derived from awarded badges.
type Child struct {
	ID       int64  `json:"id" db:"id"`
	FamilyID int64  `json:"family_id" db:"family_id"`
	Name     string `json:"name" db:"name" validate:"required,max=100"`

	// Files (Cloudinary)
	AvatarURL      *string `json:"avatar_url,omitempty" db:"avatar_url"`
	AvatarPublicID *string `json:"avatar_public_id,omitempty" db:"avatar_public_id"`

	// Points ledger: total is the sum of all awarded badge points,
	// available is total minus points spent on reward redemptions.
	TotalPoints     int `json:"total_points" db:"total_points"`
	AvailablePoints int `json:"available_points" db:"available_points"`
	BadgesEarned    int `json:"badges_earned" db:"badges_earned"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ChildStat is one named running measure on the child aggregate
// (total_saved, task_count, approved_task_streak, ...). The achievement
// evaluator reads these by field name.
type ChildStat struct {
	ChildID   int64     `json:"child_id" db:"child_id"`
	Field     string    `json:"field" db:"field"`
	Value     float64   `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ===============================
// ACHIEVEMENT RECORDS
// ===============================

// ChildBadgeProgress tracks partial progress toward an unearned badge.
// The stored value is the latest absolute measure, so duplicate event
// delivery overwrites it with the same number. Exactly one record exists
// per (child, badge) pair, and only while the badge is unearned.
type ChildBadgeProgress struct {
	ChildID   int64     `json:"child_id" db:"child_id"`
	BadgeCode string    `json:"badge_code" db:"badge_code"`
	Progress  float64   `json:"progress" db:"progress"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ChildBadgeAward records an earned badge, at most once per (child, badge).
// ChildID, BadgeCode and EarnedAt are immutable once written; only IsNew
// and IsDisplayed change afterwards.
type ChildBadgeAward struct {
	ChildID       int64     `json:"child_id" db:"child_id"`
	BadgeCode     string    `json:"badge_code" db:"badge_code"`
	EarnedAt      time.Time `json:"earned_at" db:"earned_at"`
	EarnedContext string    `json:"earned_context" db:"earned_context"`
	IsNew         bool      `json:"is_new" db:"is_new"`
	IsDisplayed   bool      `json:"is_displayed" db:"is_displayed"`
}

// ChildBadgeView merges the catalog entry with the child's award or
// progress record for UI progress bars. At most one of EarnedAt/Progress
// is populated.
type ChildBadgeView struct {
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Rarity      string     `json:"rarity"`
	Points      int        `json:"points"`
	Target      float64    `json:"target"`
	Earned      bool       `json:"earned"`
	EarnedAt    *time.Time `json:"earned_at,omitempty"`
	IsNew       bool       `json:"is_new,omitempty"`
	IsDisplayed bool       `json:"is_displayed,omitempty"`
	Progress    *float64   `json:"progress,omitempty"`
}

// ===============================
// NOTIFICATIONS
// ===============================

// Notification is a stored notification for the family feed; award
// notifications are also pushed live over the websocket hub.
type Notification struct {
	ID       int64  `json:"id" db:"id"`
	FamilyID int64  `json:"family_id" db:"family_id"`
	ChildID  *int64 `json:"child_id,omitempty" db:"child_id"`
	Kind     string `json:"kind" db:"kind"`
	Title    string `json:"title" db:"title"`
	Body     string `json:"body" db:"body"`

	// Metadata carries kind-specific fields (badge code, points, rarity)
	// serialized as JSON.
	Metadata  map[string]any `json:"metadata,omitempty" db:"-"`
	Read      bool           `json:"read" db:"read"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// NotificationKindAchievement marks "achievement unlocked" notifications.
const NotificationKindAchievement = "achievement_unlocked"

// ===============================
// PAGINATION & QUERY HELPERS
// ===============================

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Limit  int    `json:"limit" validate:"min=1,max=100"`
	Offset int    `json:"offset" validate:"min=0"`
	Sort   string `json:"sort,omitempty" validate:"omitempty,oneof=created_at updated_at earned_at name"`
	Order  string `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// PaginationMeta contains pagination metadata
type PaginationMeta struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
	HasNext      bool  `json:"has_next"`
	HasPrev      bool  `json:"has_prev"`
}

// CalculateOffset returns the row offset for the current params.
func (p *PaginationParams) CalculateOffset() int {
	if p.Offset < 0 {
		return 0
	}
	return p.Offset
}

// Normalize clamps pagination params to sane bounds.
func (p *PaginationParams) Normalize() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Order == "" {
		p.Order = "desc"
	}
}
