package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"plugin-router/internal/common/errors"
	"plugin-router/internal/common/logging"
)

// Recovery turns a handler panic into a 500 JSON response.
func Recovery(logger logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err := errors.InternalError("handler panicked", fmt.Errorf("%v", rec))
				logger.WithContext(r.Context()).Error("Recovered from panic", err,
					logging.String("path", r.URL.Path),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]string{
						"type":    string(errors.ErrTypeInternal),
						"message": "internal server error",
					},
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
