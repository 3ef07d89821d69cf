// file: internal/router/api_v1.go
package router

import (
	"net/http"

	"allowancehub/internal/handlers/api/v1/badges"
	"allowancehub/internal/handlers/api/v1/children"
	apievents "allowancehub/internal/handlers/api/v1/events"
	"allowancehub/internal/handlers/api/v1/families"
	apinotifications "allowancehub/internal/handlers/api/v1/notifications"

	"allowancehub/internal/middleware"
	"allowancehub/internal/response"
	"allowancehub/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AddAPIv1Routes mounts the versioned JSON API onto the root mux. Path
// variables are handled by a gorilla subrouter.
func AddAPIv1Routes(
	rootMux *http.ServeMux,
	serviceCollection *services.ServiceCollection,
	parentAuth *middleware.ParentAuth,
	rateLimiter *middleware.RateLimiter,
	responseBuilder *response.Builder,
	logger *zap.Logger,
) {
	eventController := apievents.NewEventController(serviceCollection, logger, responseBuilder)
	badgeController := badges.NewBadgeController(serviceCollection, logger, responseBuilder)
	childController := children.NewChildController(serviceCollection, logger, responseBuilder)
	familyController := families.NewFamilyController(serviceCollection, logger, responseBuilder)
	notificationController := apinotifications.NewNotificationController(serviceCollection, logger, responseBuilder)

	api := mux.NewRouter().PathPrefix("/api/v1").Subrouter()

	// ===============================
	// PUBLIC ENDPOINTS
	// ===============================

	api.HandleFunc("/families", familyController.Register).Methods(http.MethodPost)
	api.HandleFunc("/families/verify-pin", familyController.VerifyPIN).Methods(http.MethodPost)

	// Badge catalog is public read; secret badges are filtered inside.
	api.HandleFunc("/badges", badgeController.ListCatalog).Methods(http.MethodGet)
	api.HandleFunc("/badges/{code}", badgeController.GetBadge).Methods(http.MethodGet)

	// Child-facing reads
	api.HandleFunc("/children/{id:[0-9]+}", childController.GetChild).Methods(http.MethodGet)
	api.HandleFunc("/children/{id:[0-9]+}/badges", badgeController.GetChildBadges).Methods(http.MethodGet)
	api.HandleFunc("/children/{id:[0-9]+}/badges/{code}/seen", badgeController.MarkSeen).Methods(http.MethodPost)
	api.HandleFunc("/children/{id:[0-9]+}/badges/{code}/display", badgeController.SetDisplayed).Methods(http.MethodPut)

	// Event intake from the money/chore services. Rate limited, not
	// authenticated; producers live inside the trust boundary.
	api.Handle("/events", rateLimiter.Limit(http.HandlerFunc(eventController.RaiseEvent))).Methods(http.MethodPost)

	// ===============================
	// PARENT ENDPOINTS
	// ===============================

	parent := api.NewRoute().Subrouter()
	parent.Use(parentAuth.Require)

	parent.HandleFunc("/families/me", familyController.GetFamily).Methods(http.MethodGet)
	parent.HandleFunc("/families/me", familyController.UpdateFamily).Methods(http.MethodPut)
	parent.HandleFunc("/families/change-pin", familyController.ChangePIN).Methods(http.MethodPost)

	parent.HandleFunc("/children", childController.CreateChild).Methods(http.MethodPost)
	parent.HandleFunc("/children", childController.ListChildren).Methods(http.MethodGet)
	parent.HandleFunc("/children/{id:[0-9]+}", childController.UpdateChild).Methods(http.MethodPut)
	parent.HandleFunc("/children/{id:[0-9]+}", childController.DeleteChild).Methods(http.MethodDelete)
	parent.HandleFunc("/children/{id:[0-9]+}/points/spend", childController.SpendPoints).Methods(http.MethodPost)
	parent.HandleFunc("/children/{id:[0-9]+}/avatar", childController.UploadAvatar).Methods(http.MethodPost)

	parent.HandleFunc("/notifications", notificationController.List).Methods(http.MethodGet)
	parent.HandleFunc("/notifications/unread", notificationController.UnreadCount).Methods(http.MethodGet)
	parent.HandleFunc("/notifications/read-all", notificationController.MarkAllRead).Methods(http.MethodPost)
	parent.HandleFunc("/notifications/{id:[0-9]+}/read", notificationController.MarkRead).Methods(http.MethodPost)

	rootMux.Handle("/api/v1/", api)

	logger.Info("API v1 routes registered")
}
