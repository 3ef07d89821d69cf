package response

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"allowancehub/internal/middleware"
	"allowancehub/internal/models"
	"allowancehub/internal/services"

	"go.uber.org/zap"
)

// ===============================
// RESPONSE CONFIGURATION
// ===============================

// Config holds configuration for the response system.
type Config struct {
	PrettyJSON         bool   `json:"pretty_json"`
	IncludeRequestID   bool   `json:"include_request_id"`
	APIVersion         string `json:"api_version"`
	MaskInternalErrors bool   `json:"mask_internal_errors"`
}

// DefaultConfig returns production-ready response configuration.
func DefaultConfig() *Config {
	return &Config{
		PrettyJSON:         false,
		IncludeRequestID:   true,
		APIVersion:         "v1",
		MaskInternalErrors: true,
	}
}

// ===============================
// RESPONSE TYPES
// ===============================

// APIResponse represents a standardized API response.
type APIResponse struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	Meta      interface{}  `json:"meta,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Timestamp int64        `json:"timestamp,omitempty"`
	Version   string       `json:"version,omitempty"`
}

// ErrorDetail represents error information in API responses.
type ErrorDetail struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Fields  []services.FieldError  `json:"fields,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ===============================
// RESPONSE BUILDER
// ===============================

// Builder helps construct standardized responses.
type Builder struct {
	config *Config
	logger *zap.Logger
}

// NewBuilder creates a new response builder.
func NewBuilder(config *Config, logger *zap.Logger) *Builder {
	if config == nil {
		config = DefaultConfig()
	}
	return &Builder{
		config: config,
		logger: logger,
	}
}

// Success creates a successful API response.
func (b *Builder) Success(ctx context.Context, data interface{}) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: b.getRequestID(ctx),
		Timestamp: time.Now().Unix(),
		Version:   b.config.APIVersion,
	}
}

// Error creates an error response from a service error.
func (b *Builder) Error(ctx context.Context, err error) *APIResponse {
	detail := b.convertError(err)

	response := &APIResponse{
		Success:   false,
		Error:     detail,
		RequestID: b.getRequestID(ctx),
		Timestamp: time.Now().Unix(),
		Version:   b.config.APIVersion,
	}

	b.logError(ctx, err, detail)

	return response
}

// ===============================
// HTTP RESPONSE WRITERS
// ===============================

// WriteJSON writes a JSON response with appropriate headers.
func (b *Builder) WriteJSON(w http.ResponseWriter, r *http.Request, response *APIResponse, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	if b.config.PrettyJSON {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(response); err != nil {
		b.logger.Error("Failed to encode JSON response",
			zap.Error(err),
			zap.String("request_id", b.getRequestID(r.Context())),
		)
	}
}

// WriteSuccess writes a successful JSON response.
func (b *Builder) WriteSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.WriteJSON(w, r, b.Success(r.Context(), data), http.StatusOK)
}

// WriteCreated writes a successful creation response.
func (b *Builder) WriteCreated(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.WriteJSON(w, r, b.Success(r.Context(), data), http.StatusCreated)
}

// WriteAccepted writes an accepted-for-processing response.
func (b *Builder) WriteAccepted(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.WriteJSON(w, r, b.Success(r.Context(), data), http.StatusAccepted)
}

// WriteNoContent writes a successful no-content response.
func (b *Builder) WriteNoContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError writes an error response with the status code carried by
// the service error.
func (b *Builder) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	response := b.Error(r.Context(), err)
	b.WriteJSON(w, r, response, services.GetServiceError(err).GetStatusCode())
}

// WritePaginated writes a page of results with pagination metadata.
func (b *Builder) WritePaginated(w http.ResponseWriter, r *http.Request, data interface{}, meta models.PaginationMeta) {
	response := b.Success(r.Context(), data)
	response.Meta = map[string]interface{}{"pagination": meta}
	b.WriteJSON(w, r, response, http.StatusOK)
}

// ===============================
// HELPERS
// ===============================

func (b *Builder) convertError(err error) *ErrorDetail {
	serviceErr := services.GetServiceError(err)

	detail := &ErrorDetail{
		Type:    serviceErr.Type,
		Message: serviceErr.Message,
		Code:    serviceErr.Code,
		Details: serviceErr.Details,
	}

	if valErr, ok := err.(*services.ValidationError); ok {
		detail.Fields = valErr.Fields
	}

	// Internal details stay in the logs, not the response body.
	if b.config.MaskInternalErrors && serviceErr.GetStatusCode() >= 500 {
		detail.Message = "An internal error occurred"
		detail.Details = nil
	}

	return detail
}

func (b *Builder) logError(ctx context.Context, err error, detail *ErrorDetail) {
	logger := middleware.GetRequestLogger(ctx)
	statusCode := services.GetServiceError(err).GetStatusCode()

	if statusCode >= 500 {
		logger.Error("Request failed",
			zap.Error(err),
			zap.String("error_type", detail.Type),
		)
	} else {
		logger.Warn("Request rejected",
			zap.String("error_type", detail.Type),
			zap.String("message", detail.Message),
		)
	}
}

func (b *Builder) getRequestID(ctx context.Context) string {
	if !b.config.IncludeRequestID {
		return ""
	}
	return middleware.GetRequestID(ctx)
}
