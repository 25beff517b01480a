package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/norivo-storefront/internal/apperr"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the body of every failed request.
// Kind is a stable category the storefront UI switches on.
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Reason string `json:"reason,omitempty"`
}

const kindInvalidRequest = "invalid_request"

var validate = validator.New()

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error response in JSON format
func WriteError(w http.ResponseWriter, status int, message, kind string, logger *slog.Logger) {
	WriteJSON(w, status, ErrorResponse{Error: message, Kind: kind}, logger)
}

// WriteAppError maps err onto its status and kind
func WriteAppError(w http.ResponseWriter, err error, logger *slog.Logger) {
	WriteJSON(w, apperr.HTTPStatus(err), appErrorBody(err, logger), logger)
}

// appErrorBody describes err for the client. Unclassified errors are logged
// and masked, since their text can carry backend addresses.
func appErrorBody(err error, logger *slog.Logger) ErrorResponse {
	resp := ErrorResponse{
		Error:  err.Error(),
		Kind:   apperr.Kind(err),
		Reason: apperr.Reason(err),
	}
	if resp.Kind == "internal" {
		logger.Error("request failed", "error", err)
		resp.Error = "Internal server error"
		resp.Reason = ""
	}
	return resp
}

// decodeAndValidate decodes the JSON body into dst and runs struct validation
func decodeAndValidate(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			fe := ve[0]
			return fmt.Errorf("field %s failed %s validation", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}
