// file: internal/router/router.go
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"allowancehub/internal/middleware"
	"allowancehub/internal/response"
	"allowancehub/internal/services"

	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// SetupRouter configures all HTTP routes and returns the main handler.
func SetupRouter(
	serviceCollection *services.ServiceCollection,
	parentAuth *middleware.ParentAuth,
	rateLimiter *middleware.RateLimiter,
	responseBuilder *response.Builder,
	logger *zap.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI and spec
	mux.HandleFunc("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/swagger" {
			http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
			return
		}

		handler := httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		)
		handler.ServeHTTP(w, r)
	})

	mux.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		health, err := serviceCollection.HealthCheck(ctx)
		if err != nil {
			http.Error(w, "health check failed", http.StatusServiceUnavailable)
			return
		}

		statusCode := http.StatusOK
		if health.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(health); err != nil {
			logger.Error("Failed to encode health response", zap.Error(err))
		}
	})

	// Live notification feed. The family ID is taken from the verified
	// parent session.
	mux.Handle("/ws", parentAuth.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		familyID, ok := middleware.GetFamilyID(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		serviceCollection.Hub.ServeWS(w, r, familyID)
	})))

	AddAPIv1Routes(mux, serviceCollection, parentAuth, rateLimiter, responseBuilder, logger)

	logger.Info("Router setup completed",
		zap.String("swagger_ui", "/swagger/"),
		zap.String("api_base", "/api/v1"),
	)

	// Outermost chain: correlation ID first so everything downstream
	// logs with it.
	var handler http.Handler = mux
	handler = middleware.SecureHeaders(handler)
	handler = middleware.CORS(serviceCollection.GetConfig().Server.CORSOrigin)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RecoverPanic(logger)(handler)
	handler = middleware.RequestID(logger)(handler)

	return handler
}
