package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mesh-intelligence/propsync/pkg/types"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// RespondWithJSON writes payload as JSON with the given status.
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(body)
}

// WriteJSONError writes an error body with the given status.
func WriteJSONError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// writeError maps err to a status and writes it. Validation messages are
// shown as is; backend failures are reported without their detail.
func writeError(w http.ResponseWriter, err error) {
	var ve *types.ValidationError
	switch {
	case errors.As(err, &ve):
		RespondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, types.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, "property not found")
	case errors.Is(err, types.ErrInvalidID):
		WriteJSONError(w, http.StatusBadRequest, "invalid property id")
	case errors.Is(err, types.ErrInvalidCounter):
		WriteJSONError(w, http.StatusBadRequest, "unknown counter")
	case errors.Is(err, types.ErrTerminal):
		WriteJSONError(w, http.StatusBadGateway, err.Error())
	default:
		WriteJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
