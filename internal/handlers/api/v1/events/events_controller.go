// ===============================
// FILE: internal/handlers/api/v1/events/events_controller.go
// ===============================

package events

import (
	"encoding/json"
	"net/http"

	"allowancehub/internal/achievements"
	"allowancehub/internal/response"
	"allowancehub/internal/services"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// RaiseEventRequest is the intake payload for a domain trigger event.
type RaiseEventRequest struct {
	ChildID  int64                  `json:"child_id" validate:"required,gt=0"`
	Trigger  string                 `json:"trigger" validate:"required"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	Measures map[string]float64     `json:"measures,omitempty" validate:"dive,gte=0"`

	// Sync requests block until evaluation completes and return the
	// outcome; the default is fire and forget.
	Sync bool `json:"sync,omitempty"`
}

// EventController handles the trigger event intake endpoint.
type EventController struct {
	serviceCollection *services.ServiceCollection
	responseBuilder   *response.Builder
	validate          *validator.Validate
	logger            *zap.Logger
}

// NewEventController creates a new event controller.
func NewEventController(
	serviceCollection *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *EventController {
	return &EventController{
		serviceCollection: serviceCollection,
		responseBuilder:   responseBuilder,
		validate:          validator.New(),
		logger:            logger,
	}
}

// RaiseEvent handles POST /api/v1/events
func (c *EventController) RaiseEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RaiseEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("Invalid request body format", err))
		return
	}

	if err := c.validate.Struct(&req); err != nil {
		fields := make([]services.FieldError, 0)
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, verr := range verrs {
				fields = append(fields, services.FieldError{
					Field:   verr.Field(),
					Message: verr.Error(),
					Code:    verr.Tag(),
				})
			}
		}
		c.responseBuilder.WriteError(w, r,
			services.NewDetailedValidationError("Invalid event data", fields))
		return
	}

	achievementService := c.serviceCollection.GetAchievementService()

	if req.Sync {
		outcome, err := achievementService.HandleTrigger(ctx, req.ChildID, req.Trigger, req.Payload, req.Measures)
		if err != nil {
			c.responseBuilder.WriteError(w, r, err)
			return
		}
		c.responseBuilder.WriteSuccess(w, r, outcome)
		return
	}

	// Validate up front what the async path can no longer report.
	if !achievements.IsKnownTrigger(achievements.TriggerEvent(req.Trigger)) {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("Unknown trigger event", nil))
		return
	}
	if _, err := c.serviceCollection.GetChildService().GetByID(ctx, req.ChildID); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	achievementService.HandleTriggerAsync(req.ChildID, req.Trigger, req.Payload, req.Measures)

	c.logger.Debug("Trigger event accepted",
		zap.Int64("child_id", req.ChildID),
		zap.String("trigger", req.Trigger),
	)

	c.responseBuilder.WriteAccepted(w, r, map[string]interface{}{
		"accepted": true,
		"child_id": req.ChildID,
		"trigger":  req.Trigger,
	})
}
