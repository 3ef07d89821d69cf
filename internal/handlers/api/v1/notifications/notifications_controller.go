// ===============================
// FILE: internal/handlers/api/v1/notifications/notifications_controller.go
// ===============================

package notifications

import (
	"net/http"
	"strconv"

	"allowancehub/internal/middleware"
	"allowancehub/internal/models"
	"allowancehub/internal/response"
	"allowancehub/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NotificationController handles the family notification feed.
type NotificationController struct {
	serviceCollection *services.ServiceCollection
	responseBuilder   *response.Builder
	logger            *zap.Logger
}

// NewNotificationController creates a new notification controller.
func NewNotificationController(
	serviceCollection *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *NotificationController {
	return &NotificationController{
		serviceCollection: serviceCollection,
		responseBuilder:   responseBuilder,
		logger:            logger,
	}
}

// List handles GET /api/v1/notifications
func (c *NotificationController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	familyID, ok := middleware.GetFamilyID(ctx)
	if !ok {
		c.responseBuilder.WriteError(w, r, services.NewUnauthorizedError("Parent session required"))
		return
	}

	params := models.PaginationParams{}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		params.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		params.Offset = offset
	}
	params.Normalize()

	result, err := c.serviceCollection.GetNotificationService().List(ctx, familyID, params)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WritePaginated(w, r, result.Data, result.Pagination)
}

// UnreadCount handles GET /api/v1/notifications/unread
func (c *NotificationController) UnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	familyID, ok := middleware.GetFamilyID(ctx)
	if !ok {
		c.responseBuilder.WriteError(w, r, services.NewUnauthorizedError("Parent session required"))
		return
	}

	count, err := c.serviceCollection.GetNotificationService().CountUnread(ctx, familyID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, map[string]int{"unread": count})
}

// MarkRead handles POST /api/v1/notifications/{id}/read
func (c *NotificationController) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("Invalid notification ID", err))
		return
	}

	if err := c.serviceCollection.GetNotificationService().MarkRead(r.Context(), id); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteNoContent(w, r)
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (c *NotificationController) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	familyID, ok := middleware.GetFamilyID(ctx)
	if !ok {
		c.responseBuilder.WriteError(w, r, services.NewUnauthorizedError("Parent session required"))
		return
	}

	if err := c.serviceCollection.GetNotificationService().MarkAllRead(ctx, familyID); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteNoContent(w, r)
}
