// internal/services/family_service.go
package services

import (
	"context"
	"database/sql"
	"time"

	"allowancehub/internal/config"
	"allowancehub/internal/models"
	"allowancehub/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ===============================
// REQUEST / RESPONSE TYPES
// ===============================

// CreateFamilyRequest is the payload for registering a family.
type CreateFamilyRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
	PIN  string `json:"pin" validate:"required,len=4,numeric"`
}

// VerifyPINRequest is the payload for parent PIN verification.
type VerifyPINRequest struct {
	FamilyID int64  `json:"family_id" validate:"required"`
	PIN      string `json:"pin" validate:"required"`
}

// AuthResponse carries the parent session token after PIN verification.
type AuthResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Family    *models.Family `json:"family"`
}

// familyService implements FamilyService. The parent PIN is the only
// credential; it is stored as a bcrypt hash and verified through
// constant time comparison.
type familyService struct {
	families   repositories.FamilyRepository
	authConfig *config.AuthConfig
	logger     *zap.Logger
}

// NewFamilyService creates a new instance of FamilyService.
func NewFamilyService(families repositories.FamilyRepository, authConfig *config.AuthConfig, logger *zap.Logger) FamilyService {
	return &familyService{
		families:   families,
		authConfig: authConfig,
		logger:     logger,
	}
}

// ===============================
// REGISTRATION & AUTH
// ===============================

// Create registers a family. The raw PIN is hashed here and never
// stored or logged.
func (s *familyService) Create(ctx context.Context, req *CreateFamilyRequest) (*models.Family, error) {
	if req.Name == "" {
		return nil, InvalidInputError("name", "must not be empty")
	}
	if len(req.PIN) < 4 {
		return nil, InvalidInputError("pin", "must be at least 4 digits")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), s.authConfig.BCryptCost)
	if err != nil {
		return nil, NewInternalError("failed to hash PIN")
	}

	family := &models.Family{
		Name:          req.Name,
		ParentPINHash: string(hash),
	}

	if err := s.families.Create(ctx, family); err != nil {
		return nil, NewInternalError("failed to create family")
	}

	return family, nil
}

// VerifyPIN checks the parent PIN and issues a short lived session
// token for parent-only operations.
func (s *familyService) VerifyPIN(ctx context.Context, req *VerifyPINRequest) (*AuthResponse, error) {
	family, err := s.families.GetByID(ctx, req.FamilyID)
	if err != nil {
		if err == sql.ErrNoRows {
			// Same error as a bad PIN so probing for family IDs learns
			// nothing.
			return nil, NewUnauthorizedError("Invalid family or PIN")
		}
		return nil, NewInternalError("failed to load family")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(family.ParentPINHash), []byte(req.PIN)); err != nil {
		s.logger.Warn("PIN verification failed", zap.Int64("family_id", req.FamilyID))
		return nil, NewUnauthorizedError("Invalid family or PIN")
	}

	expiresAt := time.Now().Add(s.authConfig.JWTExpiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  family.ID,
		"name": family.Name,
		"role": "parent",
		"iat":  time.Now().Unix(),
		"exp":  expiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte(s.authConfig.JWTSecret))
	if err != nil {
		return nil, NewInternalError("failed to sign session token")
	}

	s.logger.Info("Parent session issued", zap.Int64("family_id", family.ID))

	return &AuthResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
		Family:    family,
	}, nil
}

// ChangePIN rotates the parent PIN after verifying the current one.
func (s *familyService) ChangePIN(ctx context.Context, familyID int64, currentPIN, newPIN string) error {
	family, err := s.families.GetByID(ctx, familyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return EntityNotFoundError("family", familyID)
		}
		return NewInternalError("failed to load family")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(family.ParentPINHash), []byte(currentPIN)); err != nil {
		return NewUnauthorizedError("Current PIN is incorrect")
	}

	if len(newPIN) < 4 {
		return InvalidInputError("pin", "must be at least 4 digits")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPIN), s.authConfig.BCryptCost)
	if err != nil {
		return NewInternalError("failed to hash PIN")
	}

	family.ParentPINHash = string(hash)
	if err := s.families.Update(ctx, family); err != nil {
		return NewInternalError("failed to update family")
	}

	s.logger.Info("Parent PIN changed", zap.Int64("family_id", familyID))

	return nil
}

// ===============================
// CRUD
// ===============================

// GetByID retrieves a family.
func (s *familyService) GetByID(ctx context.Context, id int64) (*models.Family, error) {
	family, err := s.families.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, EntityNotFoundError("family", id)
		}
		return nil, NewInternalError("failed to load family")
	}
	return family, nil
}

// UpdateName renames a family.
func (s *familyService) UpdateName(ctx context.Context, id int64, name string) (*models.Family, error) {
	if name == "" {
		return nil, InvalidInputError("name", "must not be empty")
	}

	family, err := s.families.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, EntityNotFoundError("family", id)
		}
		return nil, NewInternalError("failed to load family")
	}

	family.Name = name
	if err := s.families.Update(ctx, family); err != nil {
		return nil, NewInternalError("failed to update family")
	}

	return family, nil
}

// Delete removes a family and everything under it.
func (s *familyService) Delete(ctx context.Context, id int64) error {
	if err := s.families.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return EntityNotFoundError("family", id)
		}
		return NewInternalError("failed to delete family")
	}

	s.logger.Info("Family deleted", zap.Int64("family_id", id))

	return nil
}
