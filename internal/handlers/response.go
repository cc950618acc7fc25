package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"plugin-router/internal/common/errors"
	"plugin-router/internal/common/logging"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error *errors.AppError `json:"error"`
}

func (h *Handlers) sendJSONResponse(w http.ResponseWriter, data interface{}) {
	h.sendJSON(w, http.StatusOK, data)
}

func (h *Handlers) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("Failed to encode response", logging.Err(err))
	}
}

// sendJSONError maps err to a status code and writes it as JSON. Errors that
// are not AppErrors are reported as internal without their message.
func (h *Handlers) sendJSONError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.InternalError("internal server error", err)
	}

	status := statusFor(appErr)
	log := h.logger.WithContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", err, logging.String("path", r.URL.Path))
	} else {
		log.Debug("Request rejected",
			logging.String("path", r.URL.Path),
			logging.String("type", string(appErr.Type)),
			logging.String("message", appErr.Message),
		)
	}

	if status == http.StatusTooManyRequests {
		if seconds := retryAfterSeconds(appErr.Context["retry_after"]); seconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
	}

	h.sendJSON(w, status, errorBody{Error: appErr})
}

func retryAfterSeconds(v interface{}) int {
	switch retry := v.(type) {
	case int:
		return retry
	case time.Duration:
		return int(math.Ceil(retry.Seconds()))
	default:
		return 0
	}
}

func statusFor(err *errors.AppError) int {
	switch err.Type {
	case errors.ErrTypeNotFound:
		return http.StatusNotFound
	case errors.ErrTypeSignature:
		return http.StatusUnauthorized
	case errors.ErrTypeOrigin:
		return http.StatusForbidden
	case errors.ErrTypeValidation:
		if err.Code == "method_not_allowed" {
			return http.StatusMethodNotAllowed
		}
		return http.StatusBadRequest
	case errors.ErrTypeArgument, errors.ErrTypeDecodeAlgorithm:
		return http.StatusBadRequest
	case errors.ErrTypeRateLimit:
		return http.StatusTooManyRequests
	case errors.ErrTypeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrTypePluginInvocation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
