// ===============================
// FILE: internal/handlers/api/v1/badges/badges_controller.go
// ===============================

package badges

import (
	"encoding/json"
	"net/http"
	"strconv"

	"allowancehub/internal/response"
	"allowancehub/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// BadgeController handles badge catalog and per-child badge endpoints.
type BadgeController struct {
	serviceCollection *services.ServiceCollection
	responseBuilder   *response.Builder
	logger            *zap.Logger
}

// NewBadgeController creates a new badge controller.
func NewBadgeController(
	serviceCollection *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *BadgeController {
	return &BadgeController{
		serviceCollection: serviceCollection,
		responseBuilder:   responseBuilder,
		logger:            logger,
	}
}

// ===============================
// CATALOG ENDPOINTS
// ===============================

// ListCatalog handles GET /api/v1/badges
func (c *BadgeController) ListCatalog(w http.ResponseWriter, r *http.Request) {
	defs := c.serviceCollection.GetAchievementService().ListCatalog(r.Context())
	c.responseBuilder.WriteSuccess(w, r, defs)
}

// GetBadge handles GET /api/v1/badges/{code}
func (c *BadgeController) GetBadge(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	def, err := c.serviceCollection.GetAchievementService().GetDefinition(r.Context(), code)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	// Secret badges are not discoverable through the catalog.
	if def.Secret {
		c.responseBuilder.WriteError(w, r, services.NewNotFoundError("badge not found"))
		return
	}

	c.responseBuilder.WriteSuccess(w, r, def)
}

// ===============================
// CHILD BADGE ENDPOINTS
// ===============================

// GetChildBadges handles GET /api/v1/children/{id}/badges
func (c *BadgeController) GetChildBadges(w http.ResponseWriter, r *http.Request) {
	childID, err := parsePathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("Invalid child ID", err))
		return
	}

	views, err := c.serviceCollection.GetAchievementService().GetChildBadges(r.Context(), childID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, views)
}

// MarkSeen handles POST /api/v1/children/{id}/badges/{code}/seen
func (c *BadgeController) MarkSeen(w http.ResponseWriter, r *http.Request) {
	childID, err := parsePathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("Invalid child ID", err))
		return
	}
	code := mux.Vars(r)["code"]

	if err := c.serviceCollection.GetAchievementService().MarkBadgeSeen(r.Context(), childID, code); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteNoContent(w, r)
}

// SetDisplayed handles PUT /api/v1/children/{id}/badges/{code}/display
func (c *BadgeController) SetDisplayed(w http.ResponseWriter, r *http.Request) {
	childID, err := parsePathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("Invalid child ID", err))
		return
	}
	code := mux.Vars(r)["code"]

	var req struct {
		Displayed bool `json:"displayed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("Invalid request body format", err))
		return
	}

	if err := c.serviceCollection.GetAchievementService().SetBadgeDisplayed(r.Context(), childID, code, req.Displayed); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteNoContent(w, r)
}

func parsePathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}
