package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"

	"interview/internal/models"
	"interview/internal/utils"
)

type contextKey string

const validatedRequestKey contextKey = "validated_request"

const maxBodyBytes = 1 << 20

// request models implement this interface
type Validator interface {
	Validate() error
}

// ValidateRequest decodes the JSON body into a fresh T, runs its Validate
// method and stores the result in the request context. An empty body decodes
// to the zero request, which Validate may still reject.
func ValidateRequest[T Validator]() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req T
			reqType := reflect.TypeOf(req)
			if reqType.Kind() == reflect.Ptr {
				req = reflect.New(reqType.Elem()).Interface().(T)
			} else {
				req = reflect.New(reqType).Interface().(T)
			}

			err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(req)
			if err != nil && !errors.Is(err, io.EOF) {
				utils.JSON(w, http.StatusBadRequest, models.ErrorPayload{
					Code:    "invalid_json",
					Message: "Invalid JSON in request body",
				})
				return
			}

			if err := req.Validate(); err != nil {
				var payload *models.ErrorPayload
				if errors.As(err, &payload) {
					utils.JSON(w, http.StatusBadRequest, *payload)
				} else {
					utils.JSON(w, http.StatusBadRequest, models.ErrorPayload{
						Code:    "validation_error",
						Message: err.Error(),
					})
				}
				return
			}

			ctx := context.WithValue(r.Context(), validatedRequestKey, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetValidatedRequest retrieves the request stored by ValidateRequest.
func GetValidatedRequest[T any](r *http.Request) (T, bool) {
	req, ok := r.Context().Value(validatedRequestKey).(T)
	return req, ok
}
