// internal/services/child_service.go
package services

import (
	"context"
	"database/sql"
	"time"

	"allowancehub/internal/events"
	"allowancehub/internal/models"
	"allowancehub/internal/repositories"

	"go.uber.org/zap"
)

// ===============================
// REQUEST TYPES
// ===============================

// CreateChildRequest is the payload for adding a child to a family.
type CreateChildRequest struct {
	FamilyID int64  `json:"family_id" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

// UpdateChildRequest is the payload for renaming a child.
type UpdateChildRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// childService implements ChildService.
type childService struct {
	children repositories.ChildRepository
	families repositories.FamilyRepository
	files    FileService
	eventBus events.EventBus
	cache    CacheService
	logger   *zap.Logger
}

// NewChildService creates a new instance of ChildService.
func NewChildService(
	children repositories.ChildRepository,
	families repositories.FamilyRepository,
	files FileService,
	eventBus events.EventBus,
	cacheService CacheService,
	logger *zap.Logger,
) ChildService {
	return &childService{
		children: children,
		families: families,
		files:    files,
		eventBus: eventBus,
		cache:    cacheService,
		logger:   logger,
	}
}

// ===============================
// CRUD
// ===============================

// Create adds a child to a family and raises the account opening
// trigger so first-login badges evaluate immediately.
func (s *childService) Create(ctx context.Context, req *CreateChildRequest) (*models.Child, error) {
	if req.Name == "" {
		return nil, InvalidInputError("name", "must not be empty")
	}

	if _, err := s.families.GetByID(ctx, req.FamilyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, EntityNotFoundError("family", req.FamilyID)
		}
		return nil, NewInternalError("failed to load family")
	}

	child := &models.Child{
		FamilyID: req.FamilyID,
		Name:     req.Name,
	}

	if err := s.children.Create(ctx, child); err != nil {
		return nil, NewInternalError("failed to create child")
	}

	if s.eventBus != nil {
		if err := s.eventBus.PublishAsync(ctx, events.NewChildCreatedEvent(child.ID, child.FamilyID, child.Name)); err != nil {
			s.logger.Warn("Failed to publish child created event", zap.Error(err))
		}

		trigger := events.NewTriggerRaisedEvent(child.ID, "account_created",
			map[string]interface{}{"account_created": true}, nil)
		if err := s.eventBus.PublishAsync(ctx, trigger); err != nil {
			s.logger.Warn("Failed to publish account created trigger", zap.Error(err))
		}
	}

	return child, nil
}

// GetByID retrieves a child.
func (s *childService) GetByID(ctx context.Context, id int64) (*models.Child, error) {
	child, err := s.children.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, EntityNotFoundError("child", id)
		}
		return nil, NewInternalError("failed to load child")
	}
	return child, nil
}

// Update renames a child.
func (s *childService) Update(ctx context.Context, id int64, req *UpdateChildRequest) (*models.Child, error) {
	if req.Name == "" {
		return nil, InvalidInputError("name", "must not be empty")
	}

	child, err := s.children.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, EntityNotFoundError("child", id)
		}
		return nil, NewInternalError("failed to load child")
	}

	child.Name = req.Name
	if err := s.children.Update(ctx, child); err != nil {
		return nil, NewInternalError("failed to update child")
	}

	return child, nil
}

// Delete removes a child. The avatar is cleaned up on a best effort
// basis; a dangling Cloudinary asset is acceptable, an undeletable
// child is not.
func (s *childService) Delete(ctx context.Context, id int64) error {
	child, err := s.children.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return EntityNotFoundError("child", id)
		}
		return NewInternalError("failed to load child")
	}

	if err := s.children.Delete(ctx, id); err != nil {
		return NewInternalError("failed to delete child")
	}

	if child.AvatarPublicID != nil && s.files != nil {
		if err := s.files.DeleteFile(ctx, *child.AvatarPublicID); err != nil {
			s.logger.Warn("Failed to delete avatar for removed child",
				zap.Error(err),
				zap.Int64("child_id", id),
			)
		}
	}

	s.invalidateChildCache(ctx, id)

	return nil
}

// ListByFamily returns a family's children, paginated.
func (s *childService) ListByFamily(ctx context.Context, familyID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Child], error) {
	params.Normalize()

	result, err := s.children.ListByFamily(ctx, familyID, params)
	if err != nil {
		return nil, NewInternalError("failed to list children")
	}

	return result, nil
}

// ===============================
// POINTS
// ===============================

// SpendPoints debits a child's available points for a reward
// redemption. Overdraw is rejected as a business rule, not an internal
// fault.
func (s *childService) SpendPoints(ctx context.Context, childID int64, points int) (*models.Child, error) {
	if points <= 0 {
		return nil, InvalidInputError("points", "must be positive")
	}

	if err := s.children.SpendPoints(ctx, childID, points); err != nil {
		return nil, NewBusinessError("Not enough available points", "INSUFFICIENT_POINTS")
	}

	child, err := s.children.GetByID(ctx, childID)
	if err != nil {
		return nil, NewInternalError("failed to load child")
	}

	s.logger.Info("Points spent",
		zap.Int64("child_id", childID),
		zap.Int("points", points),
		zap.Int("available", child.AvailablePoints),
	)

	return child, nil
}

// ===============================
// AVATAR
// ===============================

// UpdateAvatar uploads a new avatar image, stores its location and
// removes the previous asset.
func (s *childService) UpdateAvatar(ctx context.Context, childID int64, upload *FileUploadRequest) (*models.Child, error) {
	child, err := s.children.GetByID(ctx, childID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, EntityNotFoundError("child", childID)
		}
		return nil, NewInternalError("failed to load child")
	}

	if s.files == nil {
		return nil, NewServiceUnavailableError("avatar uploads are not configured")
	}

	upload.ChildID = childID
	result, err := s.files.UploadAvatar(ctx, upload)
	if err != nil {
		return nil, err
	}

	previousPublicID := child.AvatarPublicID

	if err := s.children.UpdateAvatar(ctx, childID, result.URL, result.PublicID); err != nil {
		return nil, NewInternalError("failed to store avatar location")
	}

	if previousPublicID != nil {
		if err := s.files.DeleteFile(ctx, *previousPublicID); err != nil {
			s.logger.Warn("Failed to delete previous avatar",
				zap.Error(err),
				zap.Int64("child_id", childID),
			)
		}
	}

	child.AvatarURL = &result.URL
	child.AvatarPublicID = &result.PublicID
	child.UpdatedAt = time.Now()

	s.invalidateChildCache(ctx, childID)

	return child, nil
}

// ===============================
// HELPERS
// ===============================

func (s *childService) invalidateChildCache(ctx context.Context, childID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateChild(ctx, childID); err != nil {
		s.logger.Debug("Failed to invalidate child cache", zap.Error(err))
	}
}
