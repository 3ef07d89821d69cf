// file: internal/services/interface.go
package services

import (
	"context"

	"allowancehub/internal/achievements"
	"allowancehub/internal/models"
)

// ===============================
// CORE SERVICE INTERFACES
// ===============================

// FamilyService defines family account and parent PIN business logic.
type FamilyService interface {
	Create(ctx context.Context, req *CreateFamilyRequest) (*models.Family, error)
	GetByID(ctx context.Context, id int64) (*models.Family, error)
	UpdateName(ctx context.Context, id int64, name string) (*models.Family, error)
	Delete(ctx context.Context, id int64) error

	// Parent authentication
	VerifyPIN(ctx context.Context, req *VerifyPINRequest) (*AuthResponse, error)
	ChangePIN(ctx context.Context, familyID int64, currentPIN, newPIN string) error
}

// ChildService defines child account business logic.
type ChildService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateChildRequest) (*models.Child, error)
	GetByID(ctx context.Context, id int64) (*models.Child, error)
	Update(ctx context.Context, id int64, req *UpdateChildRequest) (*models.Child, error)
	Delete(ctx context.Context, id int64) error
	ListByFamily(ctx context.Context, familyID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Child], error)

	// Points ledger
	SpendPoints(ctx context.Context, childID int64, points int) (*models.Child, error)

	// Avatar
	UpdateAvatar(ctx context.Context, childID int64, upload *FileUploadRequest) (*models.Child, error)
}

// AchievementService defines the badge evaluation pipeline and the read
// side of the award ledger.
type AchievementService interface {
	// Trigger pipeline
	HandleTrigger(ctx context.Context, childID int64, trigger string, payload map[string]interface{}, measures map[string]float64) (*TriggerOutcome, error)
	HandleTriggerAsync(childID int64, trigger string, payload map[string]interface{}, measures map[string]float64)
	RegisterEventHandlers() error

	// Badge views
	GetChildBadges(ctx context.Context, childID int64) ([]*models.ChildBadgeView, error)
	ListCatalog(ctx context.Context) []*achievements.Definition
	GetDefinition(ctx context.Context, code string) (*achievements.Definition, error)

	// Presentation flags
	MarkBadgeSeen(ctx context.Context, childID int64, badgeCode string) error
	SetBadgeDisplayed(ctx context.Context, childID int64, badgeCode string, displayed bool) error
}

// NotificationService defines the family notification feed.
type NotificationService interface {
	NotifyBadgeAwarded(ctx context.Context, child *models.Child, def *achievements.Definition) error
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, familyID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Notification], error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, familyID int64) error
	CountUnread(ctx context.Context, familyID int64) (int, error)
}

// ===============================
// INFRASTRUCTURE SERVICE INTERFACES
// ===============================

// FileService defines media upload operations.
type FileService interface {
	UploadAvatar(ctx context.Context, req *FileUploadRequest) (*FileUploadResult, error)
	DeleteFile(ctx context.Context, publicID string) error
}

// CacheService defines application level caching on top of the raw
// cache backend.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
	InvalidateChild(ctx context.Context, childID int64) error
	GetStats(ctx context.Context) map[string]interface{}

	HealthCheck(ctx context.Context) error
	ServiceName() string
}
