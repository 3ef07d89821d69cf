// ===============================
// FILE: internal/handlers/api/v1/families/families_controller.go
// ===============================

package families

import (
	"encoding/json"
	"net/http"

	"allowancehub/internal/middleware"
	"allowancehub/internal/response"
	"allowancehub/internal/services"

	"go.uber.org/zap"
)

// FamilyController handles family registration and parent auth
// endpoints.
type FamilyController struct {
	serviceCollection *services.ServiceCollection
	responseBuilder   *response.Builder
	logger            *zap.Logger
}

// NewFamilyController creates a new family controller.
func NewFamilyController(
	serviceCollection *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *FamilyController {
	return &FamilyController{
		serviceCollection: serviceCollection,
		responseBuilder:   responseBuilder,
		logger:            logger,
	}
}

// Register handles POST /api/v1/families
func (c *FamilyController) Register(w http.ResponseWriter, r *http.Request) {
	var req services.CreateFamilyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("Invalid request body format", err))
		return
	}

	family, err := c.serviceCollection.GetFamilyService().Create(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Family registered via API", zap.Int64("family_id", family.ID))

	c.responseBuilder.WriteCreated(w, r, family)
}

// VerifyPIN handles POST /api/v1/families/verify-pin
func (c *FamilyController) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req services.VerifyPINRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("Invalid request body format", err))
		return
	}

	auth, err := c.serviceCollection.GetFamilyService().VerifyPIN(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, auth)
}

// GetFamily handles GET /api/v1/families/me
func (c *FamilyController) GetFamily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	familyID, ok := middleware.GetFamilyID(ctx)
	if !ok {
		c.responseBuilder.WriteError(w, r, services.NewUnauthorizedError("Parent session required"))
		return
	}

	family, err := c.serviceCollection.GetFamilyService().GetByID(ctx, familyID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, family)
}

// UpdateFamily handles PUT /api/v1/families/me
func (c *FamilyController) UpdateFamily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	familyID, ok := middleware.GetFamilyID(ctx)
	if !ok {
		c.responseBuilder.WriteError(w, r, services.NewUnauthorizedError("Parent session required"))
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("Invalid request body format", err))
		return
	}

	family, err := c.serviceCollection.GetFamilyService().UpdateName(ctx, familyID, req.Name)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, family)
}

// ChangePIN handles POST /api/v1/families/change-pin
func (c *FamilyController) ChangePIN(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	familyID, ok := middleware.GetFamilyID(ctx)
	if !ok {
		c.responseBuilder.WriteError(w, r, services.NewUnauthorizedError("Parent session required"))
		return
	}

	var req struct {
		CurrentPIN string `json:"current_pin"`
		NewPIN     string `json:"new_pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("Invalid request body format", err))
		return
	}

	if err := c.serviceCollection.GetFamilyService().ChangePIN(ctx, familyID, req.CurrentPIN, req.NewPIN); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteNoContent(w, r)
}
