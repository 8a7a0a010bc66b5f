// Package httpapi exposes the engine over HTTP/JSON. Handlers translate
// requests into service calls and service errors into a stable error
// envelope; no business rules live here.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/secureshare/internal/common"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps the service error taxonomy onto HTTP statuses. Anything
// unrecognized is reported as a plain internal error so server-side detail
// never reaches the client.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, common.ErrValidation):
		status, code = http.StatusBadRequest, "validation"
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrRefreshTokenExpired):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, common.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, common.ErrIntegrity):
		status, code = http.StatusUnprocessableEntity, "integrity"
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: errorBody{Code: "internal", Message: "internal error"},
		})
		return
	}

	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: err.Error()}})
}
