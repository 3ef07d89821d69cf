// ===============================
// FILE: internal/handlers/api/v1/children/children_controller.go
// ===============================

package children

import (
	"encoding/json"
	"net/http"
	"strconv"

	"allowancehub/internal/middleware"
	"allowancehub/internal/models"
	"allowancehub/internal/response"
	"allowancehub/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxAvatarUploadBytes bounds the multipart form we are willing to
// parse for avatar uploads.
const maxAvatarUploadBytes = 6 << 20

// ChildController handles child account API endpoints.
type ChildController struct {
	serviceCollection *services.ServiceCollection
	responseBuilder   *response.Builder
	logger            *zap.Logger
}

// NewChildController creates a new child controller.
func NewChildController(
	serviceCollection *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *ChildController {
	return &ChildController{
		serviceCollection: serviceCollection,
		responseBuilder:   responseBuilder,
		logger:            logger,
	}
}

// ===============================
// CORE CRUD OPERATIONS
// ===============================

// CreateChild handles POST /api/v1/children
func (c *ChildController) CreateChild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	familyID, ok := middleware.GetFamilyID(ctx)
	if !ok {
		c.responseBuilder.WriteError(w, r, services.NewUnauthorizedError("Parent session required"))
		return
	}

	var req services.CreateChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("Invalid request body format", err))
		return
	}
	req.FamilyID = familyID

	child, err := c.serviceCollection.GetChildService().Create(ctx, &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Child created via API",
		zap.Int64("child_id", child.ID),
		zap.Int64("family_id", familyID),
	)

	c.responseBuilder.WriteCreated(w, r, child)
}

// GetChild handles GET /api/v1/children/{id}
func (c *ChildController) GetChild(w http.ResponseWriter, r *http.Request) {
	childID, err := parsePathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("Invalid child ID", err))
		return
	}

	child, err := c.serviceCollection.GetChildService().GetByID(r.Context(), childID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, child)
}

// UpdateChild handles PUT /api/v1/children/{id}
func (c *ChildController) UpdateChild(w http.ResponseWriter, r *http.Request) {
	childID, err := parsePathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("Invalid child ID", err))
		return
	}

	var req services.UpdateChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("Invalid request body format", err))
		return
	}

	child, err := c.serviceCollection.GetChildService().Update(r.Context(), childID, &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, child)
}

// DeleteChild handles DELETE /api/v1/children/{id}
func (c *ChildController) DeleteChild(w http.ResponseWriter, r *http.Request) {
	childID, err := parsePathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("Invalid child ID", err))
		return
	}

	if err := c.serviceCollection.GetChildService().Delete(r.Context(), childID); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteNoContent(w, r)
}

// ListChildren handles GET /api/v1/children
func (c *ChildController) ListChildren(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	familyID, ok := middleware.GetFamilyID(ctx)
	if !ok {
		c.responseBuilder.WriteError(w, r, services.NewUnauthorizedError("Parent session required"))
		return
	}

	params := parsePagination(r)
	result, err := c.serviceCollection.GetChildService().ListByFamily(ctx, familyID, params)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WritePaginated(w, r, result.Data, result.Pagination)
}

// ===============================
// POINTS
// ===============================

// SpendPoints handles POST /api/v1/children/{id}/points/spend
func (c *ChildController) SpendPoints(w http.ResponseWriter, r *http.Request) {
	childID, err := parsePathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("Invalid child ID", err))
		return
	}

	var req struct {
		Points int `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("Invalid request body format", err))
		return
	}

	child, err := c.serviceCollection.GetChildService().SpendPoints(r.Context(), childID, req.Points)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, child)
}

// ===============================
// AVATAR
// ===============================

// UploadAvatar handles POST /api/v1/children/{id}/avatar
func (c *ChildController) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	childID, err := parsePathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("Invalid child ID", err))
		return
	}

	if err := r.ParseMultipartForm(maxAvatarUploadBytes); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("Invalid multipart form", err))
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("Missing avatar file", err))
		return
	}
	defer file.Close()

	upload := &services.FileUploadRequest{
		File:        file,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}

	child, err := c.serviceCollection.GetChildService().UpdateAvatar(r.Context(), childID, upload)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, child)
}

// ===============================
// HELPERS
// ===============================

func parsePathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

func parsePagination(r *http.Request) models.PaginationParams {
	params := models.PaginationParams{}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		params.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		params.Offset = offset
	}
	params.Sort = r.URL.Query().Get("sort")
	params.Order = r.URL.Query().Get("order")
	params.Normalize()
	return params
}
